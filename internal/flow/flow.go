// Package flow flattens circuits into a single stream of ops.
//
// Subcircuits are inlined recursively: each level composes its mapping
// with the enclosing Scope, so every op reaches the consumer with indices of
// the outermost register. Ops are delivered in declaration order with no
// reordering.
package flow

import (
	"fmt"

	"github.com/roach88/qflow/internal/ir"
)

// Each calls fn for every op of c in order, with subcircuits inlined and
// indices translated to c's register. It stops at the first error fn
// returns.
func Each(c *ir.Circuit, fn func(ir.Op) error) error {
	return each(c, Scope{}, fn)
}

func each(c *ir.Circuit, scope Scope, fn func(ir.Op) error) error {
	for i, n := range c.All() {
		switch node := n.(type) {
		case ir.Op:
			if err := fn(scope.Translate(node)); err != nil {
				return err
			}
		case *ir.Subcircuit:
			if err := each(node.Circuit(), scope.Compose(node), fn); err != nil {
				return fmt.Errorf("%s node %d: %w", c.Name(), i, err)
			}
		default:
			return fmt.Errorf("%s node %d: %w", c.Name(), i, &ir.Error{
				Code:    ir.CodeUnsupportedOperation,
				Message: fmt.Sprintf("unknown node type %T", n),
			})
		}
	}
	return nil
}

// Flatten returns every op of c with subcircuits inlined.
func Flatten(c *ir.Circuit) ([]ir.Op, error) {
	ops := []ir.Op{}
	err := Each(c, func(op ir.Op) error {
		ops = append(ops, op)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ops, nil
}

// Walk flattens c and dispatches each op to sink by kind.
//
// An op whose kind needs an optional interface that sink does not implement
// fails with UnsupportedOperation; ops before it have already been
// delivered.
func Walk(c *ir.Circuit, sink Sink) error {
	return Each(c, func(op ir.Op) error {
		if err := Dispatch(sink, op); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	})
}
