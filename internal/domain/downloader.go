package domain

import "context"

// ProgressFunc receives byte counts while a stream is being written to disk.
// total is zero when the source does not know the stream size.
type ProgressFunc func(done, total int64)

// StreamSource resolves a URL to its streams and fetches single streams
type StreamSource interface {
	// Resolve fetches the title and stream catalog for a URL
	Resolve(ctx context.Context, url string) (*VideoRef, error)

	// Download writes the stream with the given itag to dest
	Download(ctx context.Context, url string, itag int, dest string, onProgress ProgressFunc) error
}

// Merger combines a video-only and an audio-only file into one playable file
type Merger interface {
	// Available reports whether the merge tool can be invoked
	Available() bool

	// Merge writes the combined file to out
	Merge(ctx context.Context, videoPath, audioPath, out string) error
}

// ArtifactStore hands finished files over to the user
type ArtifactStore interface {
	// Publish makes the file at path retrievable. Local stores leave the
	// file in place; remote stores upload it and remove the local copy.
	Publish(ctx context.Context, artifact *Artifact) error

	// Remove deletes a published artifact
	Remove(ctx context.Context, artifact *Artifact) error

	// Link returns a fresh retrieval URL for a remote artifact. Local
	// stores return an empty string; the file is served directly.
	Link(ctx context.Context, artifact *Artifact) (string, error)

	// Name returns the backend name
	Name() string
}

// Notifier receives job outcome events
type Notifier interface {
	NotifyDownloadCompleted(title string)
	NotifyDownloadFailed(title string, err error)
}
