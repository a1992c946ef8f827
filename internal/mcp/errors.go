// Package mcp exposes the guideline engine over the Model Context Protocol:
// four tools (search_guidelines, get_guideline, list_category,
// update_guidelines) on a stdio transport.
package mcp

import (
	"errors"
	"fmt"

	guideerr "github.com/Aman-CERP/guidemcp/internal/errors"
)

// MCP error codes. Negative values in the -32000 range are
// implementation-defined per JSON-RPC; the rest are the standard codes.
const (
	// ErrCodeNotFound indicates an unknown guideline ID or category key.
	ErrCodeNotFound = -32001

	// ErrCodeUpdateFailed indicates a rebuild attempt failed; the previous
	// generation is still served.
	ErrCodeUpdateFailed = -32002

	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout = -32003

	// Standard JSON-RPC error codes.
	ErrCodeInvalidParams = -32602
	ErrCodeInternalError = -32603
)

// MCPError is a protocol error with a JSON-RPC code.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// NewInvalidParamsError creates an invalid-params protocol error.
func NewInvalidParamsError(message string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: message}
}

// MapError converts engine errors to protocol errors by their category and
// code. Unrecognized errors become internal errors with the original text.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var me *MCPError
	if errors.As(err, &me) {
		return me
	}

	var ge *guideerr.GuideError
	if !errors.As(err, &ge) {
		return &MCPError{Code: ErrCodeInternalError, Message: err.Error()}
	}

	switch ge.Code {
	case guideerr.ErrCodeNotFound, guideerr.ErrCodeUnknownFamily:
		return &MCPError{Code: ErrCodeNotFound, Message: ge.Message}
	case guideerr.ErrCodeInvalidInput, guideerr.ErrCodeQueryEmpty:
		return &MCPError{Code: ErrCodeInvalidParams, Message: ge.Message}
	case guideerr.ErrCodeNetworkTimeout:
		return &MCPError{Code: ErrCodeTimeout, Message: ge.Message}
	case guideerr.ErrCodeParseFailed, guideerr.ErrCodeEmbeddingFailed,
		guideerr.ErrCodeIndexFailed, guideerr.ErrCodeIndexLocked:
		return &MCPError{Code: ErrCodeUpdateFailed, Message: ge.Error()}
	}

	switch ge.Category {
	case guideerr.CategoryNetwork, guideerr.CategoryRepoState:
		// Update-path failures; the read path keeps serving.
		return &MCPError{Code: ErrCodeUpdateFailed, Message: ge.Error()}
	case guideerr.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: ge.Message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: ge.Error()}
	}
}
