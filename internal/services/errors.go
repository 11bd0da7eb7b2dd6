package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	ErrTransient         = errors.New("transient failure")
	ErrMalformedResponse = errors.New("malformed response")
	ErrOffline           = errors.New("offline")
	ErrUnsupported       = errors.New("unsupported capability")
	ErrValidation        = errors.New("validation error")
	ErrConfiguration     = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRetryable reports whether a remote call that failed with err is worth
// attempting again.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrConfiguration) ||
		errors.Is(err, ErrOffline) || errors.Is(err, ErrUnsupported) ||
		errors.Is(err, ErrMalformedResponse) {
		return false
	}
	if errors.Is(err, ErrTransient) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// Hint returns a short operator hint for the marker carried by err.
func Hint(err error) string {
	switch {
	case errors.Is(err, ErrOffline):
		return "device is offline; the request will run again once connectivity returns"
	case errors.Is(err, ErrMalformedResponse):
		return "remote service returned an unexpected payload"
	case errors.Is(err, ErrConfiguration):
		return "check the [endpoints] section of the config file"
	case errors.Is(err, ErrValidation):
		return "check the request arguments"
	case errors.Is(err, ErrUnsupported):
		return "capability is not available on this platform"
	default:
		return "check network connectivity and remote service status"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
