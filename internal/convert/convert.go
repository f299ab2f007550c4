// Package running the conversions from SiFit and SCITE results to mutation
// states, one function per input tool.
package convert

import (
	"fmt"
	"log"

	"github.com/bits-and-blooms/bitset"
	"github.com/evolbioinfo/gotree/tree"

	gr "github.com/jsdoublel/mutree/internal/graphs"
	pr "github.com/jsdoublel/mutree/internal/prep"
)

// Computes the state of every vertex of a SiFit tree from the mutations on
// its edges, then checks the computed leaf states against truth. Errors
// returned come from building the tree (bad topology or labels), propagation
// (bad mutation indices), or validation (leaf state mismatches).
func SiFit(tre *tree.Tree, edgeLabels map[string][]int, truth map[string]*bitset.BitSet, n int) (*gr.MutationTree, gr.States, error) {
	log.Println("building mutation tree")
	mt, err := gr.FromNewick(tre)
	if err != nil {
		return nil, nil, fmt.Errorf("tree error: %w", err)
	}
	labels, err := mt.BindEdgeLabels(edgeLabels)
	if err != nil {
		return nil, nil, fmt.Errorf("edge label error: %w", err)
	}
	log.Printf("propagating %d mutations over %d vertices\n", n, mt.NumVertices())
	states, err := mt.Propagate(labels, n)
	if err != nil {
		return nil, nil, fmt.Errorf("propagation error: %w", err)
	}
	log.Printf("validating %d leaves against ground truth\n", len(truth))
	if err := gr.Validate(states, mt.LeafIndex(), truth); err != nil {
		return nil, nil, fmt.Errorf("validation error: %w", err)
	}
	return mt, states, nil
}

// Computes the m x n character matrix of a SCITE mutation tree. Each mutation
// vertex gains its own mutation on its incoming edge, so a sample carries
// exactly the mutations on the path from the root to the vertex it is
// attached to.
func Scite(st *pr.SciteTree, m int) (*pr.CharacterMatrix, error) {
	if len(st.Samples) != m {
		return nil, fmt.Errorf("%w, %d samples in tree but %d taxa", pr.ErrInvalidFormat, len(st.Samples), m)
	}
	n := st.NumMutations()
	log.Printf("building mutation tree with %d mutations and %d samples\n", n, m)
	mt, err := gr.NewMutationTree(st.Parent, nil)
	if err != nil {
		return nil, fmt.Errorf("tree error: %w", err)
	}
	edgeLabels := make([][]int, n+1)
	for v := range n {
		edgeLabels[v] = []int{v}
	}
	edgeLabels[st.Root()] = []int{}
	states, err := mt.Propagate(edgeLabels, n)
	if err != nil {
		return nil, fmt.Errorf("propagation error: %w", err)
	}
	entries := make([][]int, m)
	for p, v := range st.Samples {
		entries[p] = make([]int, n)
		for c, b := range states.Row(v) {
			entries[p][c] = int(b)
		}
	}
	return &pr.CharacterMatrix{Entries: entries, NChars: n}, nil
}
