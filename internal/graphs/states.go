package graphs

import (
	"errors"
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

var ErrInvalidMutation = errors.New("invalid mutation index")

// Mutation state of every vertex (slice index = vertex index); bit m of a
// vertex is set if mutation m is present at that vertex
type States []*bitset.BitSet

// Computes vertex states for the tree given by parent array pi. See
// MutationTree.Propagate.
func Propagate(pi []int, edgeLabels [][]int, n int) (States, error) {
	mt, err := NewMutationTree(pi, nil)
	if err != nil {
		return nil, err
	}
	return mt.Propagate(edgeLabels, n)
}

// Computes the state of every vertex over n mutations. The root has no
// mutations; every other vertex copies its parent's state and toggles each
// mutation listed on its incoming edge (edgeLabels[v]). A mutation listed
// twice on the same edge is toggled twice and so is left unchanged.
//
// All mutation indices are checked before any state is computed.
func (mt *MutationTree) Propagate(edgeLabels [][]int, n int) (States, error) {
	nv := mt.NumVertices()
	if n < 0 {
		return nil, fmt.Errorf("%w, negative number of mutations %d", ErrInvalidMutation, n)
	}
	if len(edgeLabels) != nv {
		return nil, fmt.Errorf("%w, %d edge label sets given for %d vertices", ErrMalformedTree, len(edgeLabels), nv)
	}
	for v, muts := range edgeLabels {
		if v == mt.Root && len(muts) != 0 {
			return nil, fmt.Errorf("%w, %s is the root", ErrLabeledRoot, mt.Labels[v])
		}
		for _, m := range muts {
			if m < 0 || m >= n {
				return nil, fmt.Errorf("%w, mutation %d on edge into %s is not in [0, %d)",
					ErrInvalidMutation, m, mt.Labels[v], n)
			}
		}
	}
	states := make(States, nv)
	states[mt.Root] = bitset.New(uint(n))
	stack := make([]int, 0, nv)
	stack = append(stack, mt.Root)
	visited := 0
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited++; visited > nv {
			return nil, fmt.Errorf("%w, traversal from %s did not terminate", ErrMalformedTree, mt.Labels[mt.Root])
		}
		for _, c := range mt.Children[v] {
			if states[c] != nil {
				return nil, fmt.Errorf("%w, vertex %s reached twice", ErrMalformedTree, mt.Labels[c])
			}
			state := states[v].Clone()
			for _, m := range edgeLabels[c] {
				state.Flip(uint(m))
			}
			states[c] = state
			stack = append(stack, c)
		}
	}
	if visited != nv {
		return nil, fmt.Errorf("%w, %d of %d vertices not reached from %s",
			ErrMalformedTree, nv-visited, nv, mt.Labels[mt.Root])
	}
	return states, nil
}

// Returns the state of vertex v as 0/1 values
func (s States) Row(v int) []uint8 {
	n := s[v].Len()
	row := make([]uint8, n)
	for m := range n {
		if s[v].Test(m) {
			row[m] = 1
		}
	}
	return row
}

// Number of the given vertices carrying each mutation
func (s States) Prevalence(vertices []int) []int {
	if len(s) == 0 {
		return []int{}
	}
	counts := make([]int, s[0].Len())
	for _, v := range vertices {
		for m, ok := s[v].NextSet(0); ok; m, ok = s[v].NextSet(m + 1) {
			counts[m]++
		}
	}
	return counts
}
