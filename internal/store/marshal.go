package store

import "fmt"

// encodeBits renders a classical register as '0'/'1' text, bit 0 first.
func encodeBits(bits []byte) (string, error) {
	out := make([]byte, len(bits))
	for i, b := range bits {
		if b > 1 {
			return "", fmt.Errorf("encode bits: bit %d has value %d", i, b)
		}
		out[i] = '0' + b
	}
	return string(out), nil
}

// decodeBits is the inverse of encodeBits.
func decodeBits(s string) ([]byte, error) {
	out := make([]byte, len(s))
	for i := range len(s) {
		switch s[i] {
		case '0', '1':
			out[i] = s[i] - '0'
		default:
			return nil, fmt.Errorf("decode bits %q: invalid character at %d", s, i)
		}
	}
	return out, nil
}
