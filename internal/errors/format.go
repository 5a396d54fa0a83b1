package errors

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// FormatForCLI formats an error for terminal display.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	le, ok := as(err)
	if !ok {
		le = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", le.Message))
	if le.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", le.Suggestion))
	}
	sb.WriteString(fmt.Sprintf("  Code: %s\n", le.Code))
	return sb.String()
}

type jsonError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Category   string            `json:"category"`
	Severity   string            `json:"severity"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Cause      string            `json:"cause,omitempty"`
	Retryable  bool              `json:"retryable"`
}

// FormatJSON returns a JSON representation of the error for machine consumers.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}

	le, ok := as(err)
	if !ok {
		le = Wrap(ErrCodeInternal, err)
	}

	je := jsonError{
		Code:       le.Code,
		Message:    le.Message,
		Category:   string(le.Category),
		Severity:   string(le.Severity),
		Details:    le.Details,
		Suggestion: le.Suggestion,
		Retryable:  le.Retryable,
	}
	if le.Cause != nil {
		je.Cause = le.Cause.Error()
	}
	return json.Marshal(je)
}

// LogAttrs returns slog attributes describing err.
func LogAttrs(err error) []any {
	if err == nil {
		return nil
	}
	le, ok := as(err)
	if !ok {
		return []any{slog.String("error", err.Error())}
	}

	attrs := []any{
		slog.String("error_code", le.Code),
		slog.String("error", le.Message),
		slog.String("severity", string(le.Severity)),
	}
	if le.Cause != nil {
		attrs = append(attrs, slog.String("cause", le.Cause.Error()))
	}
	for k, v := range le.Details {
		attrs = append(attrs, slog.String("detail_"+k, v))
	}
	return attrs
}
