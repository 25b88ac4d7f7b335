package errors

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalid     = errors.New("invalid")
	ErrConflict    = errors.New("conflict")
	ErrTooMany     = errors.New("too many requests")
	ErrInternal    = errors.New("internal")
	ErrInvalidJSON = errors.New("invalid json")

	ErrInvalidURL           = errors.New("invalid url")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrUpstreamFetch        = errors.New("upstream fetch failed")
	ErrMissingParameter     = errors.New("missing parameter")
	ErrNotImplemented       = errors.New("not implemented")
	ErrValidation           = errors.New("validation failed")
	ErrRepository           = errors.New("repository failure")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
