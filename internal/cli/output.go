package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Process exit codes.
const (
	ExitSuccess      = 0 // includes a skipped generation
	ExitFailure      = 1 // the command ran but could not finish its writes
	ExitCommandError = 2 // bad flags or config, missing dataset or batch document
)

// Error codes shown to the user.
const (
	ErrCodeGeneric         = "E001"
	ErrCodeInvalidConfig   = "E002"
	ErrCodeDatasetNotFound = "E003"
	ErrCodeDatasetMismatch = "E004"
	ErrCodeBatchNotFound   = "E005"
	ErrCodeModel           = "E006"
	ErrCodeWriteFailed     = "E007"
)

// ExitError is a failed command: the process exit code, the user-facing
// error code and the cause.
type ExitError struct {
	Exit    int
	Code    string
	Message string
	Err     error

	// Reported is set once a Printer has shown the error.
	Reported bool
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

// usageError is a failure caused by the invocation, exit 2.
func usageError(code, message string, err error) *ExitError {
	return &ExitError{Exit: ExitCommandError, Code: code, Message: message, Err: err}
}

// runError is a failure while doing the work, exit 1.
func runError(code, message string, err error) *ExitError {
	return &ExitError{Exit: ExitFailure, Code: code, Message: message, Err: err}
}

// ExitCode maps err to the process exit code: 0 for nil, the carried code
// for an ExitError anywhere in the chain, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var e *ExitError
	if errors.As(err, &e) {
		return e.Exit
	}
	return ExitFailure
}

// Reported reports whether err was already shown to the user.
func Reported(err error) bool {
	var e *ExitError
	return errors.As(err, &e) && e.Reported
}

// Response is the JSON envelope of every command.
type Response struct {
	Status string         `json:"status"` // "ok" | "error"
	Data   any            `json:"data,omitempty"`
	Error  *ResponseError `json:"error,omitempty"`
}

// ResponseError describes a failed command in JSON output.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Printer writes command results as text or JSON.
type Printer struct {
	JSON    bool
	Out     io.Writer
	Diag    io.Writer // details in verbose text mode; defaults to Out
	Verbose bool
}

func newPrinter(opts *RootOptions, cmd *cobra.Command) *Printer {
	return &Printer{
		JSON:    opts.Format == "json",
		Out:     cmd.OutOrStdout(),
		Diag:    cmd.ErrOrStderr(),
		Verbose: opts.Verbose,
	}
}

// Success prints v. Text output uses v's String method.
func (p *Printer) Success(v any) error {
	if p.JSON {
		return json.NewEncoder(p.Out).Encode(Response{Status: "ok", Data: v})
	}
	_, err := fmt.Fprintln(p.Out, v)
	return err
}

// Fail prints e, marks it reported and returns it for RunE.
func (p *Printer) Fail(e *ExitError) error {
	var details string
	if e.Err != nil {
		details = e.Err.Error()
	}

	if p.JSON {
		_ = json.NewEncoder(p.Out).Encode(Response{
			Status: "error",
			Error:  &ResponseError{Code: e.Code, Message: e.Message, Details: details},
		})
	} else {
		fmt.Fprintf(p.Out, "Error [%s]: %s\n", e.Code, e.Message)
		if p.Verbose && details != "" {
			diag := p.Diag
			if diag == nil {
				diag = p.Out
			}
			fmt.Fprintf(diag, "Details: %s\n", details)
		}
	}
	e.Reported = true
	return e
}
