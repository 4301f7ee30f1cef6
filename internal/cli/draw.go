package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/qflow/internal/render"
)

// DrawResult holds a rendered circuit diagram.
type DrawResult struct {
	Circuit string `json:"circuit"`
	Diagram string `json:"diagram"`
}

// NewDrawCommand creates the draw command.
func NewDrawCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draw <circuit-file>",
		Short: "Draw a circuit as text",
		Long: `Render a circuit file as a text diagram with one row per qubit and
classical bit. Subcircuit applications are drawn as labelled boxes, not
expanded; use compile to see the flat gate stream.

Example:
  qflow draw ./circuits/bell.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDraw(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runDraw(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(cmd, opts)

	cf, err := LoadCircuitFile(path)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
		}
		return WrapExitError(ExitCommandError, "failed to load circuit", err)
	}

	diagram := render.Diagram(cf.Circuit)
	if formatter.JSON() {
		return formatter.Success(DrawResult{Circuit: cf.Circuit.Name(), Diagram: diagram})
	}

	fmt.Fprint(formatter.Writer, diagram)
	return nil
}
