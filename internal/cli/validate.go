package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/qflow/internal/flow"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool              `json:"valid"`
	Circuit   string            `json:"circuit,omitempty"`
	CircuitID string            `json:"circuit_id,omitempty"`
	Qubits    int               `json:"qubits,omitempty"`
	Cbits     int               `json:"cbits,omitempty"`
	Nodes     int               `json:"nodes,omitempty"`
	Ops       int               `json:"ops,omitempty"` // after flattening
	Errors    []ValidationError `json:"errors,omitempty"`
}

// ValidationError is one problem found in a circuit file.
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <circuit-file>",
		Short: "Validate a circuit file",
		Long: `Validate a YAML or CUE circuit file without simulating it.

Checks syntax, resolves definitions, rejects definition cycles and
out-of-range operands, and flattens the result once to prove every
nested subcircuit maps onto the outer registers.

Exit codes:
  0 - Circuit is valid
  1 - Circuit is invalid
  2 - Command error (file not found, unknown format)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(cmd, opts)

	cf, err := LoadCircuitFile(path)
	if err != nil {
		var loadErr *LoadError
		if !errors.As(err, &loadErr) {
			return outputValidateError(formatter, ErrCodeGeneric, err.Error())
		}
		if loadErr.Code == ErrCodeNotFound || loadErr.Code == ErrCodeFormat {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message)
		}
		return outputValidationErrors(formatter, []ValidationError{{
			Code:    loadErr.Code,
			Message: loadErr.Message,
			Field:   loadErr.Field,
			Line:    loadErr.Line(),
		}})
	}

	formatter.VerboseLog("Loaded %s (%s, %d bytes)", path, cf.Format, len(cf.Source))

	ops, err := flow.Flatten(cf.Circuit)
	if err != nil {
		return outputValidationErrors(formatter, []ValidationError{{
			Code:    MapErrorToCode(err),
			Message: err.Error(),
		}})
	}

	result := ValidationResult{
		Valid:     true,
		Circuit:   cf.Circuit.Name(),
		CircuitID: cf.ID,
		Qubits:    cf.Circuit.Qubits(),
		Cbits:     cf.Circuit.Cbits(),
		Nodes:     cf.Circuit.Len(),
		Ops:       len(ops),
	}
	return outputValidateSuccess(formatter, result)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ %s valid: %d qubits, %d cbits, %d nodes, %d ops flattened\n",
		result.Circuit, result.Qubits, result.Cbits, result.Nodes, result.Ops)
	return nil
}

// outputValidateError outputs a single command error.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs the problems found in a circuit.
func outputValidationErrors(formatter *OutputFormatter, errs []ValidationError) error {
	if formatter.JSON() {
		err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		})
		if err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
