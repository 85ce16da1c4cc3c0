// Package services implements the driving port interfaces.
// Services contain the core business logic: the ingestion pipeline, vector
// retrieval, answer composition and chat. They orchestrate calls to driven
// ports and never import adapters.
package services
