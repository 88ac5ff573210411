package bot

import "errors"

var (
	ErrPermissionDenied   = errors.New("permission denied")
	ErrUpstreamForwarding = errors.New("forwarding to storage channel failed")
	ErrPersistence        = errors.New("saving batch failed")
	ErrUnsupportedMedia   = errors.New("unsupported media type")
	ErrBatchInactive      = errors.New("batch is deleted")
)
