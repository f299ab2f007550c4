package graphs

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/bits-and-blooms/bitset"
)

var (
	ErrUnknownLeaf = errors.New("unknown leaf")
	ErrMismatch    = errors.New("leaf state mismatch")
)

// Computed leaf state disagrees with ground truth
type MismatchError struct {
	Leaf     string         // leaf label
	Expected *bitset.BitSet // ground truth state
	Actual   *bitset.BitSet // computed state
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s, leaf %s expected [%s] but computed [%s]",
		ErrMismatch, e.Leaf, FormatBits(e.Expected), FormatBits(e.Actual))
}

func (e *MismatchError) Unwrap() error {
	return ErrMismatch
}

// Checks computed states against ground truth for every leaf in truth, in
// label order. Fails on the first leaf that is not in leafIndex
// (ErrUnknownLeaf) or whose computed state differs (*MismatchError).
func Validate(states States, leafIndex map[string]int, truth map[string]*bitset.BitSet) error {
	for _, leaf := range slices.Sorted(maps.Keys(truth)) {
		v, ok := leafIndex[leaf]
		if !ok || v < 0 || v >= len(states) {
			return fmt.Errorf("%w, %s is not a leaf of the tree", ErrUnknownLeaf, leaf)
		}
		if !states[v].Equal(truth[leaf]) {
			return &MismatchError{Leaf: leaf, Expected: truth[leaf], Actual: states[v]}
		}
	}
	return nil
}

// Space separated 0/1 string of the first b.Len() bits
func FormatBits(b *bitset.BitSet) string {
	if b == nil {
		return ""
	}
	var sb strings.Builder
	for i := range b.Len() {
		if i != 0 {
			sb.WriteByte(' ')
		}
		if b.Test(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
