// Package html provides a Normaliser implementation for HTML documents.
// It parses the page with golang.org/x/net/html, keeps the visible body text
// with whitespace collapsed, and lifts the title and meta tags into metadata.
package html
