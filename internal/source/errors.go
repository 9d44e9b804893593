package source

import "errors"

// Normalized source errors. Stream sessions skip a tick on ErrNoData and
// ErrUnavailable and end on anything else.
var (
	ErrNoData      = errors.New("NO_DATA")
	ErrUnavailable = errors.New("UNAVAILABLE")
	ErrUnknownKind = errors.New("UNKNOWN_KIND")
)

// Transient reports whether err only means "nothing to send this tick".
func Transient(err error) bool {
	return errors.Is(err, ErrNoData) || errors.Is(err, ErrUnavailable)
}
