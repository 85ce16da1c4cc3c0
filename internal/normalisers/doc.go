// Package normalisers provides implementations of the Normaliser interface
// for the supported upload formats, and the registry that dispatches an
// upload to one of them by MIME type or filename extension.
//
// Normalisers are registered with the Registry at startup.
package normalisers
