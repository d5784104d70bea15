// Package photo turns captured or imported images into durable local
// records and, opportunistically, remote ones.
package photo

import "context"

// CaptureResult carries the binary payload obtained from the native
// capture surface.
type CaptureResult struct {
	Data     []byte
	MimeType string
}

// CaptureSource is the consumed native capture surface (camera or file
// picker). Implementations signal user cancellation with
// common.ErrCanceled, which callers treat as a non-error no-op, and denied
// camera/storage access with common.ErrPermissionDenied, which is surfaced
// immediately at the point of the attempt.
type CaptureSource interface {
	CapturePhoto(ctx context.Context) (*CaptureResult, error)
	PickFromGallery(ctx context.Context) ([]CaptureResult, error)
}
