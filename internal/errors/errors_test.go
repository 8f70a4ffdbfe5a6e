package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMirrorError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := errors.New("connection reset")

	// When: wrapping with MirrorError
	me := New(ErrCodeNetworkUnavailable, "fetch failed", originalErr)

	// Then: unwrapping returns original error
	require.NotNil(t, me)
	assert.Equal(t, originalErr, errors.Unwrap(me))
	assert.True(t, errors.Is(me, originalErr))
}

func TestMirrorError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "config error",
			code:     ErrCodeConfigNotFound,
			message:  "config file not found",
			expected: "[ERR_101_CONFIG_NOT_FOUND] config file not found",
		},
		{
			name:     "status error",
			code:     ErrCodeHTTPStatus,
			message:  "unexpected status 404",
			expected: "[ERR_304_HTTP_STATUS] unexpected status 404",
		},
		{
			name:     "grant error",
			code:     ErrCodeGrantDenied,
			message:  "write access denied",
			expected: "[ERR_601_GRANT_DENIED] write access denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestMirrorError_Is_MatchesByCode(t *testing.T) {
	// Given: two errors with same code
	err1 := New(ErrCodeHTTPStatus, "status 500", nil)
	err2 := New(ErrCodeHTTPStatus, "status 404", nil)

	// Then: they match by code, not by message
	assert.True(t, errors.Is(err1, err2))
	assert.False(t, errors.Is(err1, New(ErrCodeBadResponse, "status 500", nil)))
}

func TestMirrorError_Is_ThroughFmtWrapping(t *testing.T) {
	// Given: a MirrorError wrapped by fmt.Errorf
	inner := New(ErrCodeFSConflict, "not a directory", nil)
	outer := fmt.Errorf("materialize: %w", inner)

	// Then: helpers see through the chain
	assert.True(t, errors.Is(outer, New(ErrCodeFSConflict, "", nil)))
	assert.Equal(t, ErrCodeFSConflict, GetCode(outer))
	assert.Equal(t, CategoryIO, GetCategory(outer))
}

func TestMirrorError_WithDetails_AddsContext(t *testing.T) {
	err := New(ErrCodeHTTPStatus, "unexpected status", nil).
		WithDetail("url", "http://example.org/a.pdf").
		WithDetail("status", "404")

	assert.Equal(t, "http://example.org/a.pdf", err.Details["url"])
	assert.Equal(t, "404", err.Details["status"])
}

func TestMirrorError_CategoryFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantCategory Category
	}{
		{ErrCodeConfigInvalid, CategoryConfig},
		{ErrCodeFSConflict, CategoryIO},
		{ErrCodeDestinationBusy, CategoryIO},
		{ErrCodeHTTPStatus, CategoryNetwork},
		{ErrCodeBadResponse, CategoryNetwork},
		{ErrCodeInvalidURL, CategoryValidation},
		{ErrCodeProtocol, CategoryInternal},
		{ErrCodeGrantDenied, CategoryPermission},
		{ErrCodeGrantCancelled, CategoryPermission},
		{"BAD", CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantCategory, err.Category)
		})
	}
}

func TestMirrorError_SeverityFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantSeverity Severity
	}{
		{ErrCodeProtocol, SeverityFatal},
		{ErrCodeDiskFull, SeverityFatal},
		{ErrCodeTreeTooDeep, SeverityFatal},
		{ErrCodeHTTPStatus, SeverityError},
		{ErrCodeNetworkTimeout, SeverityWarning},
		{ErrCodeGrantCancelled, SeverityInfo},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantSeverity, err.Severity)
		})
	}
}

func TestMirrorError_RetryableFromCode(t *testing.T) {
	tests := []struct {
		code          string
		wantRetryable bool
	}{
		{ErrCodeNetworkTimeout, true},
		{ErrCodeDownloadFailed, true},
		{ErrCodeDestinationBusy, true},
		{ErrCodeHTTPStatus, false},
		{ErrCodeProtocol, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantRetryable, err.Retryable)
		})
	}
}

func TestWrap_CreatesMirrorErrorFromError(t *testing.T) {
	original := errors.New("something went wrong")

	me := Wrap(ErrCodeInternal, original)

	require.NotNil(t, me)
	assert.Equal(t, ErrCodeInternal, me.Code)
	assert.Equal(t, "something went wrong", me.Message)
	assert.Equal(t, original, me.Cause)
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestConstructors_SetCategory(t *testing.T) {
	assert.Equal(t, CategoryConfig, ConfigError("bad yaml", nil).Category)
	assert.Equal(t, CategoryIO, IOError("cannot write", nil).Category)
	assert.Equal(t, CategoryNetwork, NetworkError("refused", nil).Category)
	assert.True(t, NetworkError("refused", nil).Retryable)
	assert.Equal(t, CategoryValidation, ValidationError("empty", nil).Category)
	assert.Equal(t, CategoryInternal, InternalError("boom", nil).Category)
}

func TestIsFatal_ChecksFatalSeverity(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"protocol error", New(ErrCodeProtocol, "unknown message", nil), true},
		{"wrapped fatal", fmt.Errorf("ctx: %w", New(ErrCodeDiskFull, "full", nil)), true},
		{"non-fatal", New(ErrCodeHTTPStatus, "404", nil), false},
		{"standard error", errors.New("standard"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsFatal(tt.err))
		})
	}
}

func TestIsRetryable_ChecksRetryableFlag(t *testing.T) {
	assert.True(t, IsRetryable(New(ErrCodeNetworkTimeout, "timeout", nil)))
	assert.False(t, IsRetryable(New(ErrCodeHTTPStatus, "404", nil)))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.False(t, IsRetryable(nil))
}
