package api

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectError_Helpers(t *testing.T) {
	tests := []struct {
		kind  ErrorKind
		check func(error) bool
	}{
		{KindResolutionFailure, IsResolutionFailure},
		{KindCapabilityDenied, IsCapabilityDenied},
		{KindConnectionLost, IsConnectionLost},
		{KindInstanceStartFailure, IsInstanceStartFailure},
		{KindInvalidArgument, IsInvalidArgument},
		{KindAccessDenied, IsAccessDenied},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", NewConnectError(tt.kind, "echo", nil))
			assert.True(t, tt.check(err))

			for _, other := range tests {
				if other.kind != tt.kind {
					assert.False(t, other.check(err), "kind %s matched %s", tt.kind, other.kind)
				}
			}
		})
	}
}

func TestConnectError_Message(t *testing.T) {
	err := NewConnectError(KindResolutionFailure, "bad:name", errors.New("manifest bad:name not found"))
	assert.Equal(t, "connect to bad:name: ResolutionFailure: manifest bad:name not found", err.Error())
	assert.Equal(t, ResultResolutionFailure, err.Result())

	bare := NewConnectError(KindConnectionLost, "echo", nil)
	assert.Equal(t, "connect to echo: ConnectionLost", bare.Error())
}

func TestErrorFromResult(t *testing.T) {
	assert.NoError(t, ErrorFromResult(ResultSucceeded, "echo", ""))

	for _, result := range []Result{
		ResultInvalidArgument,
		ResultAccessDenied,
		ResultResolutionFailure,
		ResultInstanceStartFailure,
		ResultConnectionLost,
	} {
		t.Run(result.String(), func(t *testing.T) {
			err := ErrorFromResult(result, "echo", "reason")
			var connectErr *ConnectError
			if assert.ErrorAs(t, err, &connectErr) {
				assert.Equal(t, result, connectErr.Result())
				assert.Equal(t, "echo", connectErr.Target)
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	err := fmt.Errorf("lookup: %w", NewNotFoundError("manifest", "echo"))
	assert.True(t, IsNotFound(err))
	assert.False(t, IsNotFound(errors.New("other")))
	assert.Equal(t, "manifest echo not found", NewNotFoundError("manifest", "echo").Error())
}
