package core

import "context"

// Detector is the capability boundary of the remote detection service.
// An instance is owned by a single request and must not be shared.
type Detector interface {
	// Upload submits the file at path and returns the job handle.
	Upload(ctx context.Context, path string) (*UploadReceipt, error)

	// GetResult blocks until the job identified by requestID reaches a
	// terminal state, then returns its verdict.
	GetResult(ctx context.Context, requestID string) (*Verdict, error)

	// Cleanup releases connections and background work held by the instance.
	Cleanup() error
}

// DetectorFactory creates a fresh Detector per request.
type DetectorFactory interface {
	NewDetector() (Detector, error)
}

// DetectorFactoryFunc adapts a function to DetectorFactory.
type DetectorFactoryFunc func() (Detector, error)

// NewDetector calls f.
func (f DetectorFactoryFunc) NewDetector() (Detector, error) {
	return f()
}
