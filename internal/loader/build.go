package loader

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/qflow/internal/builder"
	"github.com/roach88/qflow/internal/ir"
)

// gates maps file gate names to op kinds.
var gates = map[string]ir.Kind{
	"h":       ir.KindHadamard,
	"x":       ir.KindPauliX,
	"y":       ir.KindPauliY,
	"z":       ir.KindPauliZ,
	"p":       ir.KindPhase,
	"phase":   ir.KindPhase,
	"rx":      ir.KindRotateX,
	"swap":    ir.KindSwap,
	"cnot":    ir.KindCnot,
	"cx":      ir.KindCnot,
	"not":     ir.KindCnot,
	"ccx":     ir.KindToffoli,
	"toffoli": ir.KindToffoli,
	"measure": ir.KindMeasure,
}

// GateNames returns the accepted gate names, sorted.
func GateNames() []string {
	names := make([]string, 0, len(gates))
	for name := range gates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resolver builds definitions on first use. building holds the chain of
// definitions currently under construction.
type resolver struct {
	defs     map[string]Definition
	built    map[string]*ir.Circuit
	building []string
}

// Build assembles the circuit f describes.
func (f *File) Build() (*ir.Circuit, error) {
	r := &resolver{
		defs:  f.Define,
		built: make(map[string]*ir.Circuit, len(f.Define)),
	}

	// Every definition must build, even those the top level never applies.
	names := make([]string, 0, len(f.Define))
	for name := range f.Define {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := r.resolve(name, "define."+name); err != nil {
			return nil, err
		}
	}

	name := f.Name
	if name == "" {
		name = ir.DefaultCircuitName
	}
	return r.circuit(name, "", f.Qubits, f.Cbits, f.Ops)
}

func (r *resolver) resolve(name, field string) (*ir.Circuit, error) {
	if c, ok := r.built[name]; ok {
		return c, nil
	}
	def, ok := r.defs[name]
	if !ok {
		return nil, &Error{Field: field, Err: fmt.Errorf("%w %q", ErrUnknownDefinition, name)}
	}
	if i := slices.Index(r.building, name); i >= 0 {
		path := append(slices.Clone(r.building[i:]), name)
		return nil, &Error{Field: field, Err: fmt.Errorf("%w: %s", ErrDefinitionCycle, strings.Join(path, " -> "))}
	}

	r.building = append(r.building, name)
	c, err := r.circuit(name, "define."+name+".", def.Qubits, def.Cbits, def.Ops)
	r.building = r.building[:len(r.building)-1]
	if err != nil {
		return nil, err
	}
	r.built[name] = c
	return c, nil
}

func (r *resolver) circuit(name, prefix string, qubits, cbits *int, steps []Step) (*ir.Circuit, error) {
	var b *builder.Builder
	switch {
	case qubits != nil && cbits != nil:
		var err error
		if b, err = builder.NewFixed(*qubits, *cbits, builder.WithName(name)); err != nil {
			return nil, &Error{Field: strings.TrimSuffix(prefix, "."), Err: err}
		}
	case qubits == nil && cbits == nil:
		b = builder.New(builder.WithName(name))
	default:
		return nil, &Error{
			Field: strings.TrimSuffix(prefix, "."),
			Err:   fmt.Errorf("%w: qubits and cbits must be given together", ErrMalformed),
		}
	}

	for i, step := range steps {
		field := fmt.Sprintf("%sops[%d]", prefix, i)
		if err := r.step(b, step, field); err != nil {
			return nil, err
		}
	}

	c, err := b.Circuit()
	if err != nil {
		return nil, &Error{Field: strings.TrimSuffix(prefix, "."), Err: err}
	}
	return c, nil
}

func (r *resolver) step(b *builder.Builder, s Step, field string) error {
	switch {
	case s.Gate != "" && s.Apply != "":
		return &Error{Field: field, Err: fmt.Errorf("%w: gate and apply are exclusive", ErrMalformed)}
	case s.Apply != "":
		sub, err := r.resolve(s.Apply, field)
		if err != nil {
			return err
		}
		if err := b.Apply(sub, s.Qubits, s.Cbits); err != nil {
			return &Error{Field: field, Err: err}
		}
		return nil
	case s.Gate == "":
		return &Error{Field: field, Err: fmt.Errorf("%w: step needs gate or apply", ErrMalformed)}
	}

	kind, ok := gates[strings.ToLower(s.Gate)]
	if !ok {
		return &Error{Field: field, Err: &ir.Error{
			Code:    ir.CodeUnsupportedOperation,
			Message: fmt.Sprintf("unknown gate %q", s.Gate),
			Details: map[string]string{"gate": s.Gate},
		}}
	}

	if len(s.Qubits) == 0 {
		return &Error{Field: field, Err: ir.NewOperandError(kind, "no qubits")}
	}
	if strings.EqualFold(s.Gate, "not") && len(s.Qubits) != 1 {
		return &Error{Field: field, Err: ir.NewOperandError(kind, fmt.Sprintf("not takes 1 qubit, got %d", len(s.Qubits)))}
	}
	if kind != ir.KindMeasure && len(s.Cbits) > 0 {
		return &Error{Field: field, Err: ir.NewOperandError(kind, "classical targets on a non-measurement")}
	}

	var err error
	switch kind {
	case ir.KindHadamard:
		err = b.Hadamard(s.Qubits...)
	case ir.KindPauliX:
		err = b.PauliX(s.Qubits...)
	case ir.KindPauliY:
		err = b.PauliY(s.Qubits...)
	case ir.KindPauliZ:
		err = b.PauliZ(s.Qubits...)
	default:
		err = b.Add(ir.Op{Kind: kind, Operands: s.Qubits, Targets: s.Cbits, Angle: s.Angle})
	}
	if err != nil {
		return &Error{Field: field, Err: err}
	}
	return nil
}
