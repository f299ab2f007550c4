package prep

import (
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/bits-and-blooms/bitset"
)

func TestReadSiFitFile(t *testing.T) {
	testCases := []struct {
		name        string
		treeFile    string
		tips        []string
		edgeLabels  map[string][]int
		expectedErr error
	}{
		{
			name:       "basic",
			treeFile:   "testdata/sifit.txt",
			tips:       []string{"sc1", "sc2", "sc3", "sc4"},
			edgeLabels: map[string][]int{"in1": {0}, "in2": {1}},
		},
		{
			name:       "record ends at next label",
			treeFile:   "testdata/sifit-adjacent.txt",
			tips:       []string{"sc1", "sc2", "sc3", "sc4"},
			edgeLabels: map[string][]int{"in1": {0, 3}, "in2": {1}},
		},
		{
			name:        "duplicate record",
			treeFile:    "testdata/sifit-duplicate.txt",
			expectedErr: ErrInvalidFormat,
		},
		{
			name:        "bad tree",
			treeFile:    "testdata/sifit-badtree.txt",
			expectedErr: ErrInvalidFormat,
		},
		{
			name:        "empty file",
			treeFile:    "testdata/empty.txt",
			expectedErr: ErrInvalidFile,
		},
		{
			name:        "missing file",
			treeFile:    "testdata/does-not-exist.txt",
			expectedErr: ErrInvalidFile,
		},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			tre, edgeLabels, err := ReadSiFitFile(test.treeFile)
			if !errors.Is(err, test.expectedErr) {
				t.Fatalf("got error %v, expected %v", err, test.expectedErr)
			}
			if test.expectedErr != nil {
				return
			}
			if tips := tre.AllTipNames(); !sameStrings(tips, test.tips) {
				t.Errorf("tips %v != expected %v", tips, test.tips)
			}
			if !reflect.DeepEqual(edgeLabels, test.edgeLabels) {
				t.Errorf("edge labels %v != expected %v", edgeLabels, test.edgeLabels)
			}
		})
	}
}

func TestParseEdgeLabels(t *testing.T) {
	testCases := []struct {
		name        string
		text        string
		expected    map[string][]int
		expectedErr error
	}{
		{
			name:     "duplicate mutation kept",
			text:     "in3\nheader\n4\n4\n\n",
			expected: map[string][]int{"in3": {4, 4}},
		},
		{
			name:     "empty record",
			text:     "in3\n0\n\nin4\n1\n2\n",
			expected: map[string][]int{"in3": {}, "in4": {2}},
		},
		{
			name:     "other lines ignored",
			text:     "comment\nin3\n1\n7\n\ntrailing\n",
			expected: map[string][]int{"in3": {7}},
		},
		{
			name:     "two tokens end record",
			text:     "in3\n2\n1\n2 3\n",
			expected: map[string][]int{"in3": {1}},
		},
		{
			name:        "duplicate label",
			text:        "in3\n1\n1\nin3\n1\n2\n",
			expectedErr: ErrInvalidFormat,
		},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			edgeLabels, err := parseEdgeLabels(strings.Split(test.text, "\n"))
			if !errors.Is(err, test.expectedErr) {
				t.Fatalf("got error %v, expected %v", err, test.expectedErr)
			}
			if test.expectedErr == nil && !reflect.DeepEqual(edgeLabels, test.expected) {
				t.Errorf("edge labels %v != expected %v", edgeLabels, test.expected)
			}
		})
	}
}

func TestReadLeafStates(t *testing.T) {
	testCases := []struct {
		name        string
		leavesFile  string
		n           int
		expected    map[string][]uint
		expectedErr error
	}{
		{
			name:       "basic",
			leavesFile: "testdata/leaves.tsv",
			n:          2,
			expected: map[string][]uint{
				"sc1": {0}, "sc2": {0}, "sc3": {1}, "sc4": {1},
			},
		},
		{
			name:        "wrong character count",
			leavesFile:  "testdata/leaves.tsv",
			n:           3,
			expectedErr: ErrInvalidFormat,
		},
		{
			name:        "short row",
			leavesFile:  "testdata/leaves-short.tsv",
			n:           2,
			expectedErr: ErrInvalidFormat,
		},
		{
			name:        "duplicate leaf",
			leavesFile:  "testdata/leaves-duplicate.tsv",
			n:           2,
			expectedErr: ErrInvalidFormat,
		},
		{
			name:        "not binary",
			leavesFile:  "testdata/leaves-badbit.tsv",
			n:           2,
			expectedErr: ErrInvalidFormat,
		},
		{
			name:       "empty file",
			leavesFile: "testdata/empty.txt",
			n:          2,
			expected:   map[string][]uint{},
		},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			states, err := ReadLeafStates(test.leavesFile, test.n)
			if !errors.Is(err, test.expectedErr) {
				t.Fatalf("got error %v, expected %v", err, test.expectedErr)
			}
			if test.expectedErr != nil {
				return
			}
			if len(states) != len(test.expected) {
				t.Fatalf("%d leaves, expected %d", len(states), len(test.expected))
			}
			for leaf, set := range test.expected {
				want := bitset.New(uint(test.n))
				for _, m := range set {
					want.Set(m)
				}
				if !states[leaf].Equal(want) {
					t.Errorf("leaf %s state %v != expected %v", leaf, states[leaf], want)
				}
			}
		})
	}
}

func TestReadSciteGV(t *testing.T) {
	testCases := []struct {
		name        string
		gvFile      string
		n           int
		parent      []int
		edges       [][2]int
		samples     []int
		expectedErr error
	}{
		{
			name:    "basic",
			gvFile:  "testdata/scite.gv",
			n:       3,
			parent:  []int{3, 0, 3, -1},
			edges:   [][2]int{{3, 0}, {0, 1}, {3, 2}},
			samples: []int{1, 2, 3, 0},
		},
		{
			name:    "count from edges",
			gvFile:  "testdata/scite.gv",
			n:       -1,
			parent:  []int{3, 0, 3, -1},
			edges:   [][2]int{{3, 0}, {0, 1}, {3, 2}},
			samples: []int{1, 2, 3, 0},
		},
		{
			name:        "wrong mutation count",
			gvFile:      "testdata/scite.gv",
			n:           4,
			expectedErr: ErrInvalidFormat,
		},
		{
			name:        "two parents",
			gvFile:      "testdata/scite-twoparents.gv",
			n:           3,
			expectedErr: ErrInvalidFormat,
		},
		{
			name:        "missing sample",
			gvFile:      "testdata/scite-gap.gv",
			n:           3,
			expectedErr: ErrInvalidFormat,
		},
		{
			name:        "empty",
			gvFile:      "testdata/empty.txt",
			n:           3,
			expectedErr: ErrInvalidFile,
		},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			f, err := os.Open(test.gvFile)
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()
			st, err := ReadSciteGV(f, test.n)
			if !errors.Is(err, test.expectedErr) {
				t.Fatalf("got error %v, expected %v", err, test.expectedErr)
			}
			if test.expectedErr != nil {
				return
			}
			if !reflect.DeepEqual(st.Parent, test.parent) {
				t.Errorf("parent %v != expected %v", st.Parent, test.parent)
			}
			if !reflect.DeepEqual(st.Edges, test.edges) {
				t.Errorf("edges %v != expected %v", st.Edges, test.edges)
			}
			if !reflect.DeepEqual(st.Samples, test.samples) {
				t.Errorf("samples %v != expected %v", st.Samples, test.samples)
			}
			if st.Root() != 3 || st.NumMutations() != 3 {
				t.Errorf("root %d, mutations %d", st.Root(), st.NumMutations())
			}
		})
	}
}

func TestReadCharacterMatrix(t *testing.T) {
	testCases := []struct {
		name        string
		matrixFile  string
		entries     [][]int
		expectedErr error
	}{
		{
			name:       "basic",
			matrixFile: "testdata/matrix.txt",
			entries:    [][]int{{1, 0}, {0, 1}, {1, 1}},
		},
		{
			name:        "ragged",
			matrixFile:  "testdata/matrix-ragged.txt",
			expectedErr: ErrInvalidFormat,
		},
		{
			name:        "empty",
			matrixFile:  "testdata/empty.txt",
			expectedErr: ErrInvalidFile,
		},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			cm, err := ReadCharacterMatrix(test.matrixFile)
			if !errors.Is(err, test.expectedErr) {
				t.Fatalf("got error %v, expected %v", err, test.expectedErr)
			}
			if test.expectedErr != nil {
				return
			}
			if !reflect.DeepEqual(cm.Entries, test.entries) || cm.NChars != 2 || cm.NTaxa() != 3 {
				t.Errorf("matrix %+v != expected %v", cm, test.entries)
			}
			if sums := cm.ColumnSums(); !reflect.DeepEqual(sums, []int{2, 2}) {
				t.Errorf("column sums %v != expected [2 2]", sums)
			}
		})
	}
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	count := make(map[string]int)
	for _, s := range a {
		count[s]++
	}
	for _, s := range b {
		count[s]--
	}
	for _, c := range count {
		if c != 0 {
			return false
		}
	}
	return true
}
