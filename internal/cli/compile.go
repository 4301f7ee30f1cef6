package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/qflow/internal/flow"
	"github.com/roach88/qflow/internal/loader"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult describes a flattened circuit.
type CompilationResult struct {
	Circuit   string   `json:"circuit"`
	CircuitID string   `json:"circuit_id"`
	Qubits    int      `json:"qubits"`
	Cbits     int      `json:"cbits"`
	Ops       []string `json:"ops"`
	Output    string   `json:"output,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <circuit-file>",
		Short: "Flatten a circuit to its gate stream",
		Long: `Resolve every definition and subcircuit application in a circuit file
and print the flat gate stream, outermost indices only.

With --output the flat circuit is written as a YAML circuit file with fixed
registers and no definitions. Loading that file yields the same gate stream.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the flat circuit to this YAML file")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(cmd, opts.RootOptions)

	cf, err := LoadCircuitFile(path)
	if err != nil {
		return outputCompileError(formatter, err)
	}

	ops, err := flow.Flatten(cf.Circuit)
	if err != nil {
		return outputCompileError(formatter, err)
	}
	formatter.VerboseLog("Flattened %d node(s) into %d op(s)", cf.Circuit.Len(), len(ops))

	result := CompilationResult{
		Circuit:   cf.Circuit.Name(),
		CircuitID: cf.ID,
		Qubits:    cf.Circuit.Qubits(),
		Cbits:     cf.Circuit.Cbits(),
		Ops:       make([]string, len(ops)),
		Output:    opts.Output,
	}
	for i, op := range ops {
		result.Ops[i] = op.String()
	}

	if opts.Output != "" {
		if err := writeFlatCircuit(cf, opts.Output); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "writing output file", err)
		}
	}

	return outputCompileSuccess(formatter, result)
}

// outputCompileSuccess outputs the flat gate stream.
func outputCompileSuccess(formatter *OutputFormatter, result CompilationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %s: %d qubits, %d cbits, %d op(s)\n", result.Circuit, result.Qubits, result.Cbits, len(result.Ops))
	fmt.Fprintf(w, "  id %s\n\n", result.CircuitID)
	for i, op := range result.Ops {
		fmt.Fprintf(w, "%4d  %s\n", i, op)
	}
	if result.Output != "" {
		fmt.Fprintf(w, "\nWrote flat circuit to %s\n", result.Output)
	}
	return nil
}

// outputCompileError reports a load or flatten failure. Missing files and
// unknown formats are command errors; anything wrong with the circuit
// itself is a validation failure.
func outputCompileError(formatter *OutputFormatter, err error) error {
	code, message, line := ErrCodeGeneric, err.Error(), 0
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		code, message, line = loadErr.Code, loadErr.Message, loadErr.Line()
	} else {
		code = MapErrorToCode(err)
	}

	if formatter.JSON() {
		_ = formatter.Error(code, message, nil)
	} else {
		fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
		if line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", code, message)
	}

	exit := ExitFailure
	if code == ErrCodeNotFound || code == ErrCodeFormat {
		exit = ExitCommandError
	}
	return WrapExitError(exit, fmt.Sprintf("%s: %s", code, message), nil)
}

// writeFlatCircuit writes the flattened circuit as a YAML circuit file.
func writeFlatCircuit(cf *CircuitFile, filename string) error {
	f, err := loader.Export(cf.Circuit)
	if err != nil {
		return fmt.Errorf("exporting circuit: %w", err)
	}
	data, err := f.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
