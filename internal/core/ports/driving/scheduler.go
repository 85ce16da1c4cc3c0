package driving

import "context"

// Scheduler runs background maintenance, such as the embedding repair sweep,
// while a long-lived surface like `kacey serve` is up.
type Scheduler interface {
	// Start runs scheduled work until ctx is cancelled or Stop is called.
	// It blocks.
	Start(ctx context.Context) error

	// Stop ends the loop and waits for in-flight work to finish.
	Stop() error
}
