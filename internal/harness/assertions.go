package harness

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/roach88/qflow/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes the histogram to help debug the failure.
type AssertionError struct {
	Type      string         // Assertion type for categorization
	Expected  string         // Human-readable expected outcome
	Actual    string         // Human-readable actual outcome
	Histogram []store.Bucket // Full histogram for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nHistogram:\n")
	for _, b := range e.Histogram {
		fmt.Fprintf(&buf, "  %s: %d\n", b.Bits, b.Count)
	}
	return buf.String()
}

// evaluate checks one assertion against a histogram of shots.
func evaluate(a Assertion, hist []store.Bucket) error {
	switch a.Type {
	case AssertOutcomes:
		return assertOutcomes(a, hist)
	case AssertAlways:
		return assertAlways(a, hist)
	case AssertCorrelated:
		return assertCorrelated(a, hist)
	case AssertProbability:
		return assertProbability(a, hist)
	case AssertCount:
		return assertCount(a, hist)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertOutcomes(a Assertion, hist []store.Bucket) error {
	for _, b := range hist {
		if !slices.Contains(a.Values, b.Bits) {
			return &AssertionError{
				Type:      AssertOutcomes,
				Expected:  fmt.Sprintf("only %v", a.Values),
				Actual:    fmt.Sprintf("%s occurred %d times", b.Bits, b.Count),
				Histogram: hist,
			}
		}
	}
	return nil
}

func matches(pattern, bits string) bool {
	if len(pattern) != len(bits) {
		return false
	}
	for i := range len(pattern) {
		if pattern[i] != '.' && pattern[i] != bits[i] {
			return false
		}
	}
	return true
}

func assertAlways(a Assertion, hist []store.Bucket) error {
	for _, b := range hist {
		if !matches(a.Pattern, b.Bits) {
			return &AssertionError{
				Type:      AssertAlways,
				Expected:  fmt.Sprintf("every shot matches %s", a.Pattern),
				Actual:    fmt.Sprintf("%s occurred %d times", b.Bits, b.Count),
				Histogram: hist,
			}
		}
	}
	return nil
}

// bitOutOfRange reports the first index in bits outside a register of the
// given width.
func bitOutOfRange(bits []int, width int) (int, bool) {
	for _, i := range bits {
		if i < 0 || i >= width {
			return i, true
		}
	}
	return 0, false
}

func assertCorrelated(a Assertion, hist []store.Bucket) error {
	for _, b := range hist {
		if i, bad := bitOutOfRange(a.Bits, len(b.Bits)); bad {
			return &AssertionError{
				Type:      AssertCorrelated,
				Expected:  fmt.Sprintf("bit %d within the register", i),
				Actual:    fmt.Sprintf("register has %d bits", len(b.Bits)),
				Histogram: hist,
			}
		}
		first := b.Bits[a.Bits[0]]
		for _, i := range a.Bits[1:] {
			if b.Bits[i] != first {
				return &AssertionError{
					Type:      AssertCorrelated,
					Expected:  fmt.Sprintf("bits %v equal in every shot", a.Bits),
					Actual:    fmt.Sprintf("%s occurred %d times", b.Bits, b.Count),
					Histogram: hist,
				}
			}
		}
	}
	return nil
}

func assertProbability(a Assertion, hist []store.Bucket) error {
	total, set := 0, 0
	for _, b := range hist {
		if _, bad := bitOutOfRange([]int{a.Bit}, len(b.Bits)); bad {
			return &AssertionError{
				Type:      AssertProbability,
				Expected:  fmt.Sprintf("bit %d within the register", a.Bit),
				Actual:    fmt.Sprintf("register has %d bits", len(b.Bits)),
				Histogram: hist,
			}
		}
		total += b.Count
		if b.Bits[a.Bit] == '1' {
			set += b.Count
		}
	}
	if total == 0 {
		return &AssertionError{Type: AssertProbability, Expected: "at least one shot", Actual: "no shots", Histogram: hist}
	}

	p := float64(set) / float64(total)
	if math.Abs(p-a.Expect) > a.Tolerance {
		return &AssertionError{
			Type:      AssertProbability,
			Expected:  fmt.Sprintf("P(bit %d = 1) = %.4f ± %.4f", a.Bit, a.Expect, a.Tolerance),
			Actual:    fmt.Sprintf("%.4f (%d of %d shots)", p, set, total),
			Histogram: hist,
		}
	}
	return nil
}

func assertCount(a Assertion, hist []store.Bucket) error {
	count := 0
	for _, b := range hist {
		if b.Bits == a.Value {
			count = b.Count
		}
	}
	if count < a.Min || count > a.Max {
		return &AssertionError{
			Type:      AssertCount,
			Expected:  fmt.Sprintf("%d to %d shots of %s", a.Min, a.Max, a.Value),
			Actual:    fmt.Sprintf("%d shots", count),
			Histogram: hist,
		}
	}
	return nil
}
