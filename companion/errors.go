package companion

import (
	"context"
	"errors"
	"fmt"

	"github.com/theimaginaryfoundation/pet-companion/companion/provider"
)

// ErrNilCapability is returned by constructors that need an external capability.
var ErrNilCapability = errors.New("companion: capability is nil")

// ErrorKind classifies a capability failure.
type ErrorKind string

const (
	KindTimeout     ErrorKind = "timeout"
	KindRateLimited ErrorKind = "rate_limited"
	KindServer      ErrorKind = "server"
	KindTransport   ErrorKind = "transport"
	KindMalformed   ErrorKind = "malformed"  // output was not the JSON shape asked for
	KindIncomplete  ErrorKind = "incomplete" // JSON decoded but required fields were missing
)

// CapabilityError reports a failed refiner or extractor call. Callers degrade
// to their fallback on any CapabilityError; none of them reach the user.
type CapabilityError struct {
	Op   string
	Kind ErrorKind
	Err  error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *CapabilityError) Unwrap() error { return e.Err }

func invocationError(op string, err error) *CapabilityError {
	kind := KindTransport
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		kind = KindTimeout
	case errors.Is(err, provider.ErrRateLimited):
		kind = KindRateLimited
	case errors.Is(err, provider.ErrServer):
		kind = KindServer
	case errors.Is(err, provider.ErrEmptyOutput):
		kind = KindMalformed
	}
	return &CapabilityError{Op: op, Kind: kind, Err: err}
}

// ErrorKindOf returns the kind of a CapabilityError in err's chain, or "" if none.
func ErrorKindOf(err error) ErrorKind {
	var ce *CapabilityError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}
