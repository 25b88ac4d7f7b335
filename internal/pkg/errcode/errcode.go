package errcode

const (
	ErrUnknown = 10000000 + iota
	ErrNotFound
	ErrInvalid
	ErrConflict
	ErrTooMany
	ErrInternal
	ErrInvalidFile
	ErrUploadFailed
	ErrImportFailed
	ErrImportInvalidJSON
	ErrMissingParameter
	ErrNotImplemented
	ErrInvalidURL
	ErrUnsupportedMediaType
	ErrUpstreamFetch
	ErrValidation
)
