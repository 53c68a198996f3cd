package log

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"

	"ttt/internal/config"
	"ttt/internal/errors"
)

type errorBody struct {
	Type       string                  `json:"type,omitempty"`
	Path       string                  `json:"path,omitempty"`
	Message    string                  `json:"message"`
	Cause      string                  `json:"cause,omitempty"`
	Violations []errors.FieldViolation `json:"violations,omitempty"`
}

// WriteError prints a command failure to w: `Error: <message>` in text and
// YAML modes, or `{"error": {...}}` in JSON mode.
func WriteError(w io.Writer, format config.OutputFormat, err error) {
	if format != config.FormatJSON {
		fmt.Fprintf(w, "Error: %s\n", err.Error())
		return
	}

	body := errorBody{Message: err.Error()}
	if base, ok := errors.AsTttError(err); ok {
		body.Type = string(base.Type)
		body.Path = base.Path
		body.Message = base.Message
		if base.Cause != nil {
			body.Cause = base.Cause.Error()
		}
	}
	var verr *errors.ValidationError
	if stderrors.As(err, &verr) {
		body.Violations = verr.Violations
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if encErr := encoder.Encode(map[string]errorBody{"error": body}); encErr != nil {
		fmt.Fprintf(w, "Error: %s\n", err.Error())
	}
}
