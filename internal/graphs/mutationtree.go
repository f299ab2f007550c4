// Package containing the tree structures used by mutree: the parent-pointer
// mutation tree, its per-vertex mutation states, and the consistency checks
// run against leaf ground truth.
package graphs

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/evolbioinfo/gotree/tree"
)

// parent of the root in a parent array
const NoParent = -1

var (
	ErrMalformedTree = errors.New("malformed tree")
	ErrUnknownVertex = errors.New("unknown vertex")
	ErrLabeledRoot   = errors.New("root edge labeled")
)

// Rooted tree stored as a parent array, with the children relation inverted
// from it for top-down traversal
type MutationTree struct {
	Parent   []int          // parent of each vertex (NoParent for the root)
	Labels   []string       // original label of each vertex
	Children [][]int        // children of each vertex in increasing index order
	Root     int            // index of the root
	index    map[string]int // label to vertex index
}

// Builds a mutation tree from a parent array. Returns ErrMalformedTree unless
// pi has exactly one root, every parent is a valid vertex index, and every
// vertex is connected to the root (which rules out cycles). If labels is nil
// each vertex is labeled with its index; otherwise labels must be unique and
// non-empty.
func NewMutationTree(pi []int, labels []string) (*MutationTree, error) {
	nv := len(pi)
	if nv == 0 {
		return nil, fmt.Errorf("%w, tree has no vertices", ErrMalformedTree)
	}
	if labels == nil {
		labels = make([]string, nv)
		for v := range nv {
			labels[v] = strconv.Itoa(v)
		}
	} else if len(labels) != nv {
		return nil, fmt.Errorf("%w, %d labels given for %d vertices", ErrMalformedTree, len(labels), nv)
	}
	root := NoParent
	children := make([][]int, nv)
	for v, p := range pi {
		switch {
		case p == NoParent:
			if root != NoParent {
				return nil, fmt.Errorf("%w, vertices %d and %d are both roots", ErrMalformedTree, root, v)
			}
			root = v
		case p < 0 || p >= nv:
			return nil, fmt.Errorf("%w, parent %d of vertex %d is not a vertex", ErrMalformedTree, p, v)
		case p == v:
			return nil, fmt.Errorf("%w, vertex %d is its own parent", ErrMalformedTree, v)
		default:
			children[p] = append(children[p], v)
		}
	}
	if root == NoParent {
		return nil, fmt.Errorf("%w, no root", ErrMalformedTree)
	}
	index := make(map[string]int, nv)
	for v, l := range labels {
		if l == "" {
			return nil, fmt.Errorf("%w, vertex %d is unlabeled", ErrMalformedTree, v)
		}
		if u, ok := index[l]; ok {
			return nil, fmt.Errorf("%w, vertices %d and %d share label %s", ErrMalformedTree, u, v, l)
		}
		index[l] = v
	}
	if reached := countReachable(children, root); reached != nv {
		return nil, fmt.Errorf("%w, %d of %d vertices are not connected to root %s",
			ErrMalformedTree, nv-reached, nv, labels[root])
	}
	return &MutationTree{
		Parent:   pi,
		Labels:   labels,
		Children: children,
		Root:     root,
		index:    index,
	}, nil
}

// counts vertices reachable from root; vertices on a cycle never are
func countReachable(children [][]int, root int) int {
	reached := 0
	stack := []int{root}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		reached++
		if reached > len(children) {
			break
		}
		stack = append(stack, children[v]...)
	}
	return reached
}

// Builds a mutation tree from a gotree tree. Vertices are indexed in pre-order,
// so the root is always vertex 0. Node names are used as vertex labels and must
// be present and unique.
func FromNewick(tre *tree.Tree) (*MutationTree, error) {
	nNodes := len(tre.Nodes())
	ids := make(map[int]int, nNodes) // gotree node id to vertex index
	pi := make([]int, 0, nNodes)
	labels := make([]string, 0, nNodes)
	tre.PreOrder(func(cur, prev *tree.Node, e *tree.Edge) (keep bool) {
		ids[cur.Id()] = len(pi)
		if prev == nil {
			pi = append(pi, NoParent)
		} else {
			pi = append(pi, ids[prev.Id()])
		}
		labels = append(labels, cur.Name())
		return true
	})
	return NewMutationTree(pi, labels)
}

func (mt *MutationTree) NumVertices() int {
	return len(mt.Parent)
}

// Returns the vertex index with the given label
func (mt *MutationTree) Index(label string) (int, bool) {
	v, ok := mt.index[label]
	return v, ok
}

func (mt *MutationTree) IsLeaf(v int) bool {
	return len(mt.Children[v]) == 0
}

// Label to index map restricted to leaves
func (mt *MutationTree) LeafIndex() map[string]int {
	leaves := make(map[string]int)
	for v, l := range mt.Labels {
		if mt.IsLeaf(v) {
			leaves[l] = v
		}
	}
	return leaves
}

// Leaf vertex indices in increasing order
func (mt *MutationTree) Leaves() []int {
	leaves := make([]int, 0)
	for v := range mt.NumVertices() {
		if mt.IsLeaf(v) {
			leaves = append(leaves, v)
		}
	}
	return leaves
}

// Converts label keyed edge labels into one mutation list per vertex. Vertices
// without an entry get an empty list. Returns ErrUnknownVertex for labels that
// are not in the tree, and ErrLabeledRoot if the root is given mutations, as it
// has no incoming edge.
func (mt *MutationTree) BindEdgeLabels(byLabel map[string][]int) ([][]int, error) {
	edgeLabels := make([][]int, mt.NumVertices())
	for v := range edgeLabels {
		edgeLabels[v] = []int{}
	}
	for label, muts := range byLabel {
		v, ok := mt.index[label]
		if !ok {
			return nil, fmt.Errorf("%w, edge labels given for %s", ErrUnknownVertex, label)
		}
		if v == mt.Root && len(muts) != 0 {
			return nil, fmt.Errorf("%w, %s is the root", ErrLabeledRoot, label)
		}
		edgeLabels[v] = muts
	}
	return edgeLabels, nil
}
