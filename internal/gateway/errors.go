// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the backend gateway.
type ClientError struct {
	Type ErrorType

	// Status is the HTTP status code, or 0 when no response was received.
	Status int

	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	msg := e.Message
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota

	// ErrTypeUnauthenticated: no session token; the request was not sent.
	ErrTypeUnauthenticated

	// ErrTypeUnauthorized: the backend answered 401 or 403.
	ErrTypeUnauthorized

	// ErrTypeTransport: dial, write or read failure.
	ErrTypeTransport

	ErrTypeTimeout

	// ErrTypeInvalidResponse: the body could not be decoded or was too large.
	ErrTypeInvalidResponse

	// ErrTypeStatus: any other non-2xx status.
	ErrTypeStatus
)

// String returns the error type name.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeUnauthenticated:
		return "unauthenticated"
	case ErrTypeUnauthorized:
		return "unauthorized"
	case ErrTypeTransport:
		return "transport"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeInvalidResponse:
		return "invalid_response"
	case ErrTypeStatus:
		return "status"
	default:
		return "unknown"
	}
}

// Sentinel errors for easy checking.
var (
	ErrUnauthenticated = &ClientError{Type: ErrTypeUnauthenticated, Message: "not signed in"}
	ErrTimeout         = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
)

// =============================================================================
// PREDICATES
// =============================================================================

func isType(err error, t ErrorType) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == t
	}
	return false
}

// IsUnauthenticated reports whether the request was refused locally for
// lack of a session.
func IsUnauthenticated(err error) bool {
	return isType(err, ErrTypeUnauthenticated)
}

// IsUnauthorized reports whether the backend rejected the credentials.
func IsUnauthorized(err error) bool {
	return isType(err, ErrTypeUnauthorized)
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	return isType(err, ErrTypeTimeout)
}

// IsTransport reports whether no usable response was received.
func IsTransport(err error) bool {
	return isType(err, ErrTypeTransport)
}

// IsInvalidResponse reports whether the response body could not be used.
func IsInvalidResponse(err error) bool {
	return isType(err, ErrTypeInvalidResponse)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Status
	}
	return 0
}

// Message returns the backend's human readable message when err carries
// one, falling back to err.Error().
func Message(err error) string {
	var clientErr *ClientError
	if errors.As(err, &clientErr) && clientErr.Message != "" {
		return clientErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// =============================================================================
// ERROR BODIES
// =============================================================================

// errorBody covers the shapes the backend uses: FastAPI's {"detail": ...}
// where detail is a string or a list of validation items, and the
// handlers' own {"message": ...}.
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

type validationItem struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// parseErrorMessage extracts a message from an error response body.
func parseErrorMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}

	if len(eb.Detail) > 0 {
		var s string
		if err := json.Unmarshal(eb.Detail, &s); err == nil && s != "" {
			return s
		}
		var items []validationItem
		if err := json.Unmarshal(eb.Detail, &items); err == nil && len(items) > 0 {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}
	if eb.Message != "" {
		return eb.Message
	}
	return eb.Error
}
