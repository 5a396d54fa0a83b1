// Package mcp implements the Model Context Protocol server for LexMind.
package mcp

import (
	"context"
	"errors"
	"fmt"

	lexerrors "github.com/Aman-CERP/lexmind/internal/errors"
)

// Custom MCP error codes for LexMind.
const (
	ErrCodeCorpusUnavailable = -32001
	ErrCodeEmbeddingFailed   = -32002
	ErrCodeTimeout           = -32003
	ErrCodeSourceNotFound    = -32004

	// Standard JSON-RPC error codes.
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// MCPError is an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	var lexErr *lexerrors.LexError
	if errors.As(err, &lexErr) {
		return mapLexError(lexErr)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an error for invalid parameters.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{Code: ErrCodeMethodNotFound, Message: fmt.Sprintf("Tool '%s' not found.", name)}
}

func mapLexError(le *lexerrors.LexError) *MCPError {
	message := le.Message
	if le.Suggestion != "" {
		message = fmt.Sprintf("%s %s", le.Message, le.Suggestion)
	}

	switch le.Code {
	case lexerrors.ErrCodeSourceMissing:
		return &MCPError{Code: ErrCodeSourceNotFound, Message: message}
	case lexerrors.ErrCodeCorpusDirMissing, lexerrors.ErrCodeEmptyCorpus:
		return &MCPError{Code: ErrCodeCorpusUnavailable, Message: message}
	case lexerrors.ErrCodeEmbeddingFailed, lexerrors.ErrCodeDimensionMismatch:
		return &MCPError{Code: ErrCodeEmbeddingFailed, Message: message}
	}

	switch le.Category {
	case lexerrors.CategoryNetwork:
		return &MCPError{Code: ErrCodeTimeout, Message: message}
	case lexerrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
