package linalg

// Pad embeds kernel between identities: eye(before) ⊗ kernel ⊗ eye(after).
// before and after are dimensions, not qubit counts; pass 1 for no padding.
func Pad(kernel *Operator, before, after int) *Operator {
	out := kernel
	if before != 1 {
		out = Eye(before).Kronecker(out)
	}
	if after != 1 {
		out = out.Kronecker(Eye(after))
	}
	return out
}

// Sum adds operators left to right.
// Returns DimensionMismatch if any two dimensions differ.
func Sum(first *Operator, rest ...*Operator) (*Operator, error) {
	out := first
	for _, op := range rest {
		var err error
		if out, err = out.Add(op); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// KroneckerAll returns ops[0] ⊗ ops[1] ⊗ … ⊗ ops[n-1], or the 1×1 identity
// when ops is empty.
func KroneckerAll(ops ...*Operator) *Operator {
	out := Eye(1)
	for _, op := range ops {
		out = out.Kronecker(op)
	}
	return out
}
