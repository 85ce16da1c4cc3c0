// Package api provides the HTTP boundary for kacey: document upload, search,
// chat and repair endpoints served with fiber.
package api

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/custodia-labs/kacey/internal/core/domain"
)

// Missing-port errors returned by NewServer.
var (
	ErrMissingIngestionService = errors.New("api: ingestion service is required")
	ErrMissingRetrievalService = errors.New("api: retrieval service is required")
	ErrMissingArtifactService  = errors.New("api: artifact service is required")
)

// statusFor maps a service error to an HTTP status. Ingestion failures map
// by step: a bad upload is the client's fault, a failed embed is a backend
// outage the client may retry.
func statusFor(err error) int {
	if step, ok := domain.FailedStep(err); ok {
		switch step {
		case domain.IngestStepParse:
			if errors.Is(err, domain.ErrInvalidInput) {
				return fiber.StatusBadRequest
			}
			return fiber.StatusUnprocessableEntity
		case domain.IngestStepEmbed:
			return fiber.StatusServiceUnavailable
		default:
			return fiber.StatusInternalServerError
		}
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrRetrievalFailure),
		errors.Is(err, domain.ErrEmbeddingService),
		errors.Is(err, domain.ErrGenerationFailure):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// fail writes err as a JSON error body with its mapped status.
func fail(c fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
}
