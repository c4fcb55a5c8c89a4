package api

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a connection could not be established or was lost.
type ErrorKind string

const (
	// KindResolutionFailure means the target name did not resolve.
	KindResolutionFailure ErrorKind = "ResolutionFailure"
	// KindCapabilityDenied means an interface bind was suppressed by the
	// capability filter. It is never reported over the wire.
	KindCapabilityDenied ErrorKind = "CapabilityDenied"
	// KindConnectionLost means the peer transport closed.
	KindConnectionLost ErrorKind = "ConnectionLost"
	// KindInstanceStartFailure means the runner or package factory could not
	// produce a service endpoint.
	KindInstanceStartFailure ErrorKind = "InstanceStartFailure"
	// KindInvalidArgument means the connect request was malformed.
	KindInvalidArgument ErrorKind = "InvalidArgument"
	// KindAccessDenied means the source lacks the broker capability the
	// request needs.
	KindAccessDenied ErrorKind = "AccessDenied"
)

// ConnectError is the structured error delivered to the originator of a
// connection. Target is the identity string the caller asked for.
type ConnectError struct {
	Kind   ErrorKind
	Target string
	Err    error
}

// Error implements the error interface for ConnectError.
func (e *ConnectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("connect to %s: %s: %v", e.Target, e.Kind, e.Err)
	}
	return fmt.Sprintf("connect to %s: %s", e.Target, e.Kind)
}

// Unwrap returns the underlying cause.
func (e *ConnectError) Unwrap() error {
	return e.Err
}

// Result maps the error kind onto the wire result code.
func (e *ConnectError) Result() Result {
	switch e.Kind {
	case KindResolutionFailure:
		return ResultResolutionFailure
	case KindInstanceStartFailure:
		return ResultInstanceStartFailure
	case KindInvalidArgument:
		return ResultInvalidArgument
	case KindAccessDenied:
		return ResultAccessDenied
	default:
		return ResultConnectionLost
	}
}

// NewConnectError creates a ConnectError of the given kind.
func NewConnectError(kind ErrorKind, target string, err error) *ConnectError {
	return &ConnectError{Kind: kind, Target: target, Err: err}
}

// ErrorFromResult builds the error a caller sees for a non-success result.
// It returns nil for ResultSucceeded.
func ErrorFromResult(result Result, target string, reason string) error {
	var cause error
	if reason != "" {
		cause = errors.New(reason)
	}
	switch result {
	case ResultSucceeded:
		return nil
	case ResultResolutionFailure:
		return NewConnectError(KindResolutionFailure, target, cause)
	case ResultInstanceStartFailure:
		return NewConnectError(KindInstanceStartFailure, target, cause)
	case ResultInvalidArgument:
		return NewConnectError(KindInvalidArgument, target, cause)
	case ResultAccessDenied:
		return NewConnectError(KindAccessDenied, target, cause)
	default:
		return NewConnectError(KindConnectionLost, target, cause)
	}
}

func isKind(err error, kind ErrorKind) bool {
	var connectErr *ConnectError
	return errors.As(err, &connectErr) && connectErr.Kind == kind
}

// IsResolutionFailure checks if err is or wraps a resolution failure.
//
// Example:
//
//	conn := connector.Connect("storage")
//	conn.AddConnectionCompletedClosure(func() {
//	    if api.IsResolutionFailure(conn.Err()) {
//	        // storage is not in the catalog
//	    }
//	})
func IsResolutionFailure(err error) bool { return isKind(err, KindResolutionFailure) }

// IsCapabilityDenied checks if err is or wraps a capability denial.
func IsCapabilityDenied(err error) bool { return isKind(err, KindCapabilityDenied) }

// IsConnectionLost checks if err is or wraps a lost connection.
func IsConnectionLost(err error) bool { return isKind(err, KindConnectionLost) }

// IsInstanceStartFailure checks if err is or wraps a start failure.
func IsInstanceStartFailure(err error) bool { return isKind(err, KindInstanceStartFailure) }

// IsInvalidArgument checks if err is or wraps a malformed request.
func IsInvalidArgument(err error) bool { return isKind(err, KindInvalidArgument) }

// IsAccessDenied checks if err is or wraps an access denial.
func IsAccessDenied(err error) bool { return isKind(err, KindAccessDenied) }

// NotFoundError represents a catalog entry that does not exist.
type NotFoundError struct {
	// ResourceType categorizes the missing resource (e.g. "manifest", "service").
	ResourceType string
	// ResourceName is the identifier that was looked up.
	ResourceName string
}

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.ResourceType, e.ResourceName)
}

// IsNotFound checks if an error is a NotFoundError using error unwrapping.
func IsNotFound(err error) bool {
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr)
}

// NewNotFoundError creates a new NotFoundError with the specified resource type and name.
func NewNotFoundError(resourceType, resourceName string) *NotFoundError {
	return &NotFoundError{
		ResourceType: resourceType,
		ResourceName: resourceName,
	}
}
