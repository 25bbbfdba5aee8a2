package llm

import "context"

// Client abstracts the vision model provider used by the analyzer.
// Implementations must be concurrency-safe if used across goroutines.
type Client interface {
	// ScoreThumbnails sends the scoring rubric plus one image reference per
	// thumbnail in a single call and returns the raw model output text.
	// One round trip covers all thumbnails so cross-thumbnail comparison
	// is possible.
	ScoreThumbnails(ctx context.Context, imageURLs []string, videoTitle, category string) (string, error)
	// SourceName returns a short provider label (e.g., "ChatGPT", "Stub").
	SourceName() string
}
