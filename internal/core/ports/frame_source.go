package ports

import "context"

// FrameSource yields encoded JPEG frames. The sequence is infinite until the
// source ends; once Next returns an error it keeps returning it.
type FrameSource interface {
	Next(ctx context.Context) ([]byte, error)
}
