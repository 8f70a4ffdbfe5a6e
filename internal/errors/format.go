package errors

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// FormatForUser returns a user-facing message. When debug is set the
// details and the underlying cause are included.
func FormatForUser(err error, debug bool) string {
	if err == nil {
		return ""
	}

	me, ok := As(err)
	if !ok {
		return err.Error()
	}

	var sb strings.Builder
	sb.WriteString("Error: ")
	sb.WriteString(me.Message)
	sb.WriteString("\n")

	if me.Suggestion != "" {
		sb.WriteString("\nSuggestion: ")
		sb.WriteString(me.Suggestion)
		sb.WriteString("\n")
	}

	if debug {
		for _, k := range sortedKeys(me.Details) {
			fmt.Fprintf(&sb, "  %s: %s\n", k, me.Details[k])
		}
		if me.Cause != nil {
			fmt.Fprintf(&sb, "  cause: %v\n", me.Cause)
		}
	}

	fmt.Fprintf(&sb, "\n[%s]", me.Code)
	return sb.String()
}

// FormatForCLI formats an error for terminal output.
// Plain errors are reported under the internal error code.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	me, ok := As(err)
	if !ok {
		me = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", me.Message)
	if url, ok := me.Details["url"]; ok {
		fmt.Fprintf(&sb, "  URL: %s\n", url)
	}
	if me.Suggestion != "" {
		fmt.Fprintf(&sb, "  Hint: %s\n", me.Suggestion)
	}
	fmt.Fprintf(&sb, "  Code: %s\n", me.Code)

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

// FormatJSON returns a JSON representation of the error.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}

	me, ok := As(err)
	if !ok {
		me = Wrap(ErrCodeInternal, err)
	}

	je := jsonError{
		Code:       me.Code,
		Message:    me.Message,
		Category:   string(me.Category),
		Severity:   string(me.Severity),
		Details:    me.Details,
		Suggestion: me.Suggestion,
		Retryable:  me.Retryable,
	}
	if me.Cause != nil {
		je.Cause = me.Cause.Error()
	}

	return json.Marshal(je)
}

// FormatForLog flattens an error into key-value pairs for structured logs.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}

	me, ok := As(err)
	if !ok {
		return map[string]any{
			"error": err.Error(),
		}
	}

	result := map[string]any{
		"error_code": me.Code,
		"message":    me.Message,
		"category":   string(me.Category),
		"severity":   string(me.Severity),
		"retryable":  me.Retryable,
	}
	if me.Cause != nil {
		result["cause"] = me.Cause.Error()
	}
	if me.Suggestion != "" {
		result["suggestion"] = me.Suggestion
	}
	for k, v := range me.Details {
		result["detail_"+k] = v
	}

	return result
}

// LogAttr returns err as a single slog group attribute named "error".
func LogAttr(err error) slog.Attr {
	fields := FormatForLog(err)
	attrs := make([]any, 0, len(fields))
	for _, k := range sortedKeys(fields) {
		attrs = append(attrs, slog.Any(k, fields[k]))
	}
	return slog.Group("error", attrs...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
