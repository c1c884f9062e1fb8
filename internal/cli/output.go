package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/liveset/internal/record"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation failure (write rejected, delete failed, etc.)
	ExitCommandError = 2 // Command error (invalid paths, database not found, etc.)
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format  string
	Writer  io.Writer
	Verbose bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string      `json:"status"`          // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`  // success payload
	Error  *CLIError   `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`    // persistence error code or "COMMAND_ERROR"
	Message string `json:"message"` // human-readable message
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// itemView is the JSON shape of one record in CLI output.
type itemView struct {
	ID       *int64 `json:"id"`
	Name     string `json:"name"`
	Quantity *int64 `json:"quantity,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

func viewOf(r record.Record) itemView {
	return itemView{ID: r.ID, Name: r.Name, Quantity: r.Quantity, Notes: r.Notes}
}

// Items outputs a record list in the configured format. Text mode renders
// one position-prefixed line per record so positions line up with what the
// delete command expects.
func (f *OutputFormatter) Items(records []record.Record) error {
	if f.Format == "json" {
		views := make([]itemView, len(records))
		for i, r := range records {
			views[i] = viewOf(r)
		}
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: views})
	}

	if len(records) == 0 {
		fmt.Fprintln(f.Writer, "(no items)")
		return nil
	}
	for i, r := range records {
		var b strings.Builder
		fmt.Fprintf(&b, "%3d  %s", i, r.Name)
		if r.Quantity != nil {
			fmt.Fprintf(&b, "  x%d", *r.Quantity)
		}
		if r.Notes != "" && r.Notes != r.Name {
			fmt.Fprintf(&b, "  (%s)", r.Notes)
		}
		fmt.Fprintln(f.Writer, b.String())
	}
	return nil
}
