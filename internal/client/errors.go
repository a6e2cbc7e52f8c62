package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/pkg/models"
)

// ErrUnauthorized means the backend rejected the bearer token. The session
// must be cleared and the request must not be retried.
var ErrUnauthorized = errors.New("session expired or invalid")

// NetworkError is a transport failure (refused, reset, timeout). It is
// transient: the next poll tick is the retry.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError is a non-2xx answer other than 401. Detail is shown verbatim.
type ServerError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *ServerError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s failed: %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s failed: %s", e.Op, e.Detail)
}

// ValidationError is a local input problem; nothing was sent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Kind is the outcome class the poller and submitter act on.
type Kind int

const (
	KindNone Kind = iota
	KindUnauthorized
	KindNetwork
	KindValidation
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindUnauthorized:
		return "unauthorized"
	case KindNetwork:
		return "network"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Classify maps any error returned by this package onto a Kind.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, ErrUnauthorized) {
		return KindUnauthorized
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return KindNetwork
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return KindValidation
	}
	return KindUnknown
}

func IsUnauthorized(err error) bool { return Classify(err) == KindUnauthorized }

// transportError separates failures that never produced a response from
// failures after one arrived (e.g. an undecodable body).
func transportError(op string, resp *resty.Response, err error) error {
	if resp != nil && resp.RawResponse != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return &NetworkError{Op: op, Err: err}
}

func newServerError(op string, resp *resty.Response) *ServerError {
	e := &ServerError{Op: op, StatusCode: resp.StatusCode()}
	if apiErr, ok := resp.Error().(*models.APIError); ok {
		e.Detail = apiErr.Message()
	}
	if e.Detail == "" {
		e.Detail = strings.TrimSpace(resp.String())
	}
	return e
}
