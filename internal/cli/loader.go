package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"cuelang.org/go/cue/token"

	"github.com/roach88/qflow/internal/ir"
	"github.com/roach88/qflow/internal/loader"
)

// CircuitFile is a loaded circuit together with the bytes it came from.
type CircuitFile struct {
	Path    string
	Source  []byte
	Format  loader.Format
	Circuit *ir.Circuit
	ID      string // content hash from ir.CircuitID
}

// LoadError represents an error that occurred while loading a circuit file.
type LoadError struct {
	Code    string
	Message string
	Field   string    // step path such as "define.pair.ops[1]", if known
	Pos     token.Pos // CUE position if available
	Err     error
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Line returns the source line of the error, or 0 if unknown.
func (e *LoadError) Line() int {
	if e.Pos.IsValid() {
		return e.Pos.Line()
	}
	return 0
}

// LoadCircuitFile reads, parses and builds the circuit at path. All failures
// are returned as *LoadError.
func LoadCircuitFile(path string) (*CircuitFile, error) {
	format, err := loader.FormatOf(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeFormat, Message: err.Error(), Err: err}
	}

	source, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("circuit file not found: %s", path), Err: err}
		}
		return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("reading %s: %v", path, err), Err: err}
	}

	return LoadCircuitSource(path, source, format)
}

// LoadCircuitSource builds a circuit from bytes already in memory, such as
// the source stored with a run.
func LoadCircuitSource(name string, source []byte, format loader.Format) (*CircuitFile, error) {
	c, err := loader.Parse(source, format, name)
	if err != nil {
		return nil, convertLoadError(err)
	}

	id, err := ir.CircuitID(c)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("hashing circuit: %v", err), Err: err}
	}

	return &CircuitFile{Path: name, Source: source, Format: format, Circuit: c, ID: id}, nil
}

// convertLoadError maps a loader error to a LoadError with position info.
func convertLoadError(err error) *LoadError {
	le := &LoadError{Code: MapErrorToCode(err), Message: err.Error(), Err: err}

	var lerr *loader.Error
	if errors.As(err, &lerr) {
		le.Field = lerr.Field
		le.Pos = lerr.Pos
		le.Message = lerr.Err.Error()
		if lerr.Field != "" {
			le.Message = lerr.Field + ": " + le.Message
		}
	}
	return le
}

// Error codes reported in JSON output, shared by all commands.
const (
	ErrCodeGeneric          = "E001" // Generic/unknown error
	ErrCodeFormat           = "E002" // Unknown circuit file format
	ErrCodeMalformed        = "E003" // File does not match the circuit schema
	ErrCodeSyntax           = "E004" // YAML or CUE syntax error
	ErrCodeNotFound         = "E005" // Path not found
	ErrCodeDatabase         = "E006" // Database open/read/write failed
	ErrCodeRunNotFound      = "E007" // No stored run with the given ID
	ErrCodeSimulation       = "E008" // Simulation failed
	ErrCodeWriteFailed      = "E009" // File write error
	ErrCodeTestFailed       = "E010" // One or more scenarios failed
	ErrCodeNondeterministic = "E011" // Replayed shots differ from the stored run

	// Definition errors
	ErrCodeUnknownDefinition = "E101" // apply names an undefined subcircuit
	ErrCodeDefinitionCycle   = "E102" // definitions apply each other in a loop

	// Circuit errors, one per ir.ErrorCode
	ErrCodeIndexOutOfRange   = "E111"
	ErrCodeInvalidMapping    = "E112"
	ErrCodeInvalidOperands   = "E113"
	ErrCodeUnsupportedOp     = "E114"
	ErrCodeDimensionMismatch = "E115"
	ErrCodeContext           = "E116"
)

// MapErrorToCode maps a loader or circuit error to an error code.
func MapErrorToCode(err error) string {
	switch {
	case errors.Is(err, loader.ErrUnknownFormat):
		return ErrCodeFormat
	case errors.Is(err, loader.ErrUnknownDefinition):
		return ErrCodeUnknownDefinition
	case errors.Is(err, loader.ErrDefinitionCycle):
		return ErrCodeDefinitionCycle
	case errors.Is(err, loader.ErrMalformed):
		return ErrCodeMalformed
	case errors.Is(err, loader.ErrDecode):
		return ErrCodeSyntax
	}

	switch ir.CodeOf(err) {
	case ir.CodeIndexOutOfRange:
		return ErrCodeIndexOutOfRange
	case ir.CodeInvalidSubcircuitMapping:
		return ErrCodeInvalidMapping
	case ir.CodeInvalidOperands:
		return ErrCodeInvalidOperands
	case ir.CodeUnsupportedOperation:
		return ErrCodeUnsupportedOp
	case ir.CodeDimensionMismatch:
		return ErrCodeDimensionMismatch
	case ir.CodeContextConflict, ir.CodeContextViolation:
		return ErrCodeContext
	}

	return ErrCodeGeneric
}
