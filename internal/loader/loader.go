// Package loader reads circuit description files.
//
// A file names a circuit, optionally fixes its register sizes, defines named
// subcircuits and lists the top-level steps. YAML (.yaml, .yml) and CUE
// (.cue) files share one schema:
//
//	name: bell
//	qubits: 2
//	cbits: 2
//	define:
//	  pair:
//	    ops:
//	      - {gate: h, qubits: [0]}
//	      - {gate: cnot, qubits: [0, 1]}
//	ops:
//	  - {apply: pair, qubits: [0, 1]}
//	  - {gate: measure, qubits: [0, 1], cbits: [0, 1]}
//
// Definitions may apply other definitions in any order; cycles are
// rejected. Registers are fixed when both qubits and cbits are given and
// grow on demand when neither is.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/qflow/internal/ir"
)

// Format identifies the syntax of a circuit file.
type Format int

const (
	FormatYAML Format = iota + 1
	FormatCUE
)

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatCUE:
		return "cue"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

var (
	// ErrUnknownFormat is returned for file extensions other than .yaml,
	// .yml and .cue.
	ErrUnknownFormat = errors.New("unknown circuit file format")

	// ErrUnknownDefinition is returned when a step applies a name that is
	// not in define.
	ErrUnknownDefinition = errors.New("unknown definition")

	// ErrDefinitionCycle is returned when definitions apply each other in a
	// loop.
	ErrDefinitionCycle = errors.New("definition cycle")

	// ErrMalformed is returned for files that decode but do not describe a
	// circuit: steps with both or neither of gate and apply, or a single
	// register size.
	ErrMalformed = errors.New("malformed circuit file")

	// ErrDecode is returned for YAML or CUE that does not parse or does not
	// evaluate to concrete values.
	ErrDecode = errors.New("cannot decode circuit file")
)

// Error locates a load failure. Field is a path into the file such as
// "define.pair.ops[1]". Pos is set for CUE syntax and evaluation errors.
type Error struct {
	Field string
	Pos   token.Pos
	Err   error
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Pos.IsValid() {
		fmt.Fprintf(&sb, "%s:%d:%d: ", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column())
	}
	if e.Field != "" {
		sb.WriteString(e.Field)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Err.Error())
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Err }

// File is the decoded form of a circuit file.
type File struct {
	Name   string                `yaml:"name,omitempty" json:"name,omitempty"`
	Qubits *int                  `yaml:"qubits,omitempty" json:"qubits,omitempty"`
	Cbits  *int                  `yaml:"cbits,omitempty" json:"cbits,omitempty"`
	Define map[string]Definition `yaml:"define,omitempty" json:"define,omitempty"`
	Ops    []Step                `yaml:"ops,omitempty" json:"ops,omitempty"`
}

// Definition is a named subcircuit.
type Definition struct {
	Qubits *int   `yaml:"qubits,omitempty" json:"qubits,omitempty"`
	Cbits  *int   `yaml:"cbits,omitempty" json:"cbits,omitempty"`
	Ops    []Step `yaml:"ops,omitempty" json:"ops,omitempty"`
}

// Step is one entry of an ops list: either a gate or the application of a
// definition.
type Step struct {
	Gate   string  `yaml:"gate,omitempty" json:"gate,omitempty"`
	Apply  string  `yaml:"apply,omitempty" json:"apply,omitempty"`
	Qubits []int   `yaml:"qubits,omitempty" json:"qubits,omitempty"`
	Cbits  []int   `yaml:"cbits,omitempty" json:"cbits,omitempty"`
	Angle  float64 `yaml:"angle,omitempty" json:"angle,omitempty"`
}

// FormatOf picks the format from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return 0, fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}
}

// ParseFormat returns the Format whose String is name.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "cue":
		return FormatCUE, nil
	default:
		return 0, fmt.Errorf("%q: %w", name, ErrUnknownFormat)
	}
}

// Load reads and builds the circuit at path.
func Load(path string) (*ir.Circuit, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read circuit file: %w", err)
	}
	return Parse(data, format, path)
}

// Parse decodes data and builds the circuit it describes. filename is used
// in error positions only.
func Parse(data []byte, format Format, filename string) (*ir.Circuit, error) {
	f, err := Decode(data, format, filename)
	if err != nil {
		return nil, err
	}
	return f.Build()
}

// Decode parses data without building the circuit.
func Decode(data []byte, format Format, filename string) (*File, error) {
	switch format {
	case FormatYAML:
		return decodeYAML(data)
	case FormatCUE:
		return decodeCUE(data, filename)
	default:
		return nil, fmt.Errorf("%s: %w", format, ErrUnknownFormat)
	}
}

func decodeYAML(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: parse YAML: %v", ErrDecode, err)
	}
	return &f, nil
}

func decodeCUE(data []byte, filename string) (*File, error) {
	v := cuecontext.New().CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, cueError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError(err)
	}
	var f File
	if err := v.Decode(&f); err != nil {
		return nil, cueError(err)
	}
	return &f, nil
}

// cueError keeps the position of the first CUE error.
func cueError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return fmt.Errorf("%w: parse CUE: %v", ErrDecode, err)
	}
	first := errs[0]
	e := &Error{Field: "cue", Err: fmt.Errorf("%w: %s", ErrDecode, first.Error())}
	if pos := cueerrors.Positions(first); len(pos) > 0 {
		e.Pos = pos[0]
	}
	return e
}
