package studio

import (
	"errors"
	"fmt"

	"caslastudio/internal/imagegen"
)

// ErrorKind classifies request failures.
type ErrorKind int

const (
	KindAlreadyInFlight ErrorKind = iota + 1
	KindTransport
	KindServiceRejected
)

func (k ErrorKind) String() string {
	switch k {
	case KindAlreadyInFlight:
		return "already_in_flight"
	case KindTransport:
		return "transport"
	case KindServiceRejected:
		return "service_rejected"
	}
	return "unknown"
}

// RequestError is a failed or refused submit. errors.Is matches on Kind, so
// the package level sentinels can be used as targets.
type RequestError struct {
	Kind   ErrorKind
	Mode   Mode
	Detail string
	Err    error
}

var (
	ErrAlreadyInFlight = &RequestError{Kind: KindAlreadyInFlight}
	ErrTransport       = &RequestError{Kind: KindTransport}
	ErrServiceRejected = &RequestError{Kind: KindServiceRejected}
)

// ErrSessionClosed resolves an attempt whose session was closed while the
// request was in flight. The result, if any, is discarded.
var ErrSessionClosed = errors.New("session closed")

var errNoImage = errors.New("generation service returned no image")

func (e *RequestError) Error() string {
	switch {
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *RequestError) Unwrap() error { return e.Err }

func (e *RequestError) Is(target error) bool {
	t, ok := target.(*RequestError)
	return ok && t.Kind == e.Kind
}

// classify maps a transport failure onto a RequestError.
func classify(mode Mode, err error) *RequestError {
	var svc *imagegen.ServiceError
	if errors.As(err, &svc) {
		return &RequestError{Kind: KindServiceRejected, Mode: mode, Detail: svc.Detail, Err: err}
	}
	return &RequestError{Kind: KindTransport, Mode: mode, Err: err}
}
