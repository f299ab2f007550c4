// Package used for reading and writing the file formats handled by mutree:
// SiFit trees with edge labels, leaf state tables, SCITE GraphViz dumps, and
// character matrices.
package prep

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bitset"
	"github.com/evolbioinfo/gotree/io/newick"
	"github.com/evolbioinfo/gotree/tree"
)

var (
	ErrInvalidFile   = errors.New("invalid file")
	ErrInvalidFormat = errors.New("invalid format")
	ErrWritingFile   = errors.New("error writing file")
)

// internal node labels in SiFit output start with this
const internalMarker = "in"

// Reads a SiFit result file: a newick tree on the first line followed by edge
// label records. Each record is a line holding an internal node label, one
// header line, and then one mutation index per line up to the first blank or
// non-numeric line. Returns the tree and the mutations on the edge into each
// labeled node.
func ReadSiFitFile(treeFile string) (*tree.Tree, map[string][]int, error) {
	defer silenceLog()()
	lines, err := readLines(treeFile)
	if err != nil {
		return nil, nil, err
	}
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return nil, nil, fmt.Errorf("%w, no newick tree on first line of %s", ErrInvalidFile, treeFile)
	}
	tre, err := newick.NewParser(strings.NewReader(strings.TrimSpace(lines[0]))).Parse()
	if err != nil {
		return nil, nil, fmt.Errorf("%w, error parsing tree newick string from %s: %s",
			ErrInvalidFormat, treeFile, err.Error())
	}
	edgeLabels, err := parseEdgeLabels(lines[1:])
	if err != nil {
		return nil, nil, fmt.Errorf("%w in %s", err, treeFile)
	}
	return tre, edgeLabels, nil
}

// parses edge label records; line numbers in errors are relative to the tree
// file
func parseEdgeLabels(lines []string) (map[string][]int, error) {
	edgeLabels := make(map[string][]int)
	for i := 0; i < len(lines); {
		label := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(label, internalMarker) {
			i++
			continue
		}
		if _, ok := edgeLabels[label]; ok {
			return nil, fmt.Errorf("%w, edge labels for %s given twice (line %d)", ErrInvalidFormat, label, i+2)
		}
		muts := make([]int, 0)
		for i += 2; i < len(lines); i++ { // skip label and header
			fields := strings.Fields(lines[i])
			if len(fields) != 1 {
				break
			}
			m, err := strconv.Atoi(fields[0])
			if err != nil {
				break
			}
			muts = append(muts, m)
		}
		edgeLabels[label] = muts
	}
	return edgeLabels, nil
}

// Reads tab separated leaf states, one leaf per line: the leaf label followed
// by n 0/1 values.
func ReadLeafStates(leavesFile string, n int) (map[string]*bitset.BitSet, error) {
	lines, err := readLines(leavesFile)
	if err != nil {
		return nil, err
	}
	leafStates := make(map[string]*bitset.BitSet)
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		leaf := strings.TrimSpace(fields[0])
		if len(fields)-1 != n {
			return nil, fmt.Errorf("%w, leaf %s on line %d of %s has %d states, expected %d",
				ErrInvalidFormat, leaf, i+1, leavesFile, len(fields)-1, n)
		}
		if _, ok := leafStates[leaf]; ok {
			return nil, fmt.Errorf("%w, leaf %s listed twice in %s", ErrInvalidFormat, leaf, leavesFile)
		}
		state := bitset.New(uint(n))
		for m, f := range fields[1:] {
			switch strings.TrimSpace(f) {
			case "0":
			case "1":
				state.Set(uint(m))
			default:
				return nil, fmt.Errorf("%w, state %q of leaf %s on line %d of %s is not 0 or 1",
					ErrInvalidFormat, f, leaf, i+1, leavesFile)
			}
		}
		leafStates[leaf] = state
	}
	return leafStates, nil
}

// Mutation tree read from a SCITE GraphViz dump. Vertex i < n is mutation i;
// vertex n is the root.
type SciteTree struct {
	Parent  []int    // parent of each vertex (-1 for the root)
	Edges   [][2]int // mutation edges in file order
	Samples []int    // vertex each sample is attached to
}

func (st *SciteTree) NumMutations() int {
	return len(st.Parent) - 1
}

func (st *SciteTree) Root() int {
	return len(st.Parent) - 1
}

// Reads a SCITE GraphViz dump. The dump has two header lines, the mutation
// edges "u -> v;" (1-based, source n+1 being the root), a node attribute line,
// and the sample edges "u -> s<k>;". If n is negative the number of mutations
// is taken from the number of mutation edges.
func ReadSciteGV(r io.Reader, n int) (*SciteTree, error) {
	scanner := bufio.NewScanner(r)
	lineNum := 0
	next := func() (string, bool) {
		if !scanner.Scan() {
			return "", false
		}
		lineNum++
		return strings.TrimSpace(scanner.Text()), true
	}
	for range 2 {
		if _, ok := next(); !ok {
			return nil, fmt.Errorf("%w, missing graphviz header", ErrInvalidFile)
		}
	}
	edges := make([][2]int, 0)
	var line string
	var ok bool
	for line, ok = next(); ok && !strings.HasPrefix(line, "node"); line, ok = next() {
		if line == "" {
			continue
		}
		u, v, err := parseGVEdge(line)
		if err != nil {
			return nil, fmt.Errorf("%w on line %d", err, lineNum)
		}
		target, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w, mutation edge target %q on line %d", ErrInvalidFormat, v, lineNum)
		}
		edges = append(edges, [2]int{u - 1, target - 1})
	}
	if !ok {
		return nil, fmt.Errorf("%w, no sample section", ErrInvalidFile)
	}
	if n < 0 {
		n = len(edges)
	} else if len(edges) != n {
		return nil, fmt.Errorf("%w, %d mutation edges but %d mutations", ErrInvalidFormat, len(edges), n)
	}
	parent := make([]int, n+1)
	for i := range parent {
		parent[i] = -2
	}
	parent[n] = -1
	for _, e := range edges {
		u, v := e[0], e[1]
		if v < 0 || v >= n || u < 0 || u > n {
			return nil, fmt.Errorf("%w, edge %d -> %d is out of range for %d mutations", ErrInvalidFormat, u+1, v+1, n)
		}
		if parent[v] != -2 {
			return nil, fmt.Errorf("%w, mutation %d has two parents", ErrInvalidFormat, v+1)
		}
		parent[v] = u
	}
	attach := make(map[int]int)
	for line, ok = next(); ok && !strings.HasPrefix(line, "}"); line, ok = next() {
		if line == "" {
			continue
		}
		u, s, err := parseGVEdge(line)
		if err != nil {
			return nil, fmt.Errorf("%w on line %d", err, lineNum)
		}
		k, err := strconv.Atoi(strings.TrimPrefix(s, "s"))
		if err != nil || !strings.HasPrefix(s, "s") || k < 0 {
			return nil, fmt.Errorf("%w, sample %q on line %d", ErrInvalidFormat, s, lineNum)
		}
		if u < 1 || u > n+1 {
			return nil, fmt.Errorf("%w, sample %s attached to unknown vertex %d", ErrInvalidFormat, s, u)
		}
		if _, ok := attach[k]; ok {
			return nil, fmt.Errorf("%w, sample %s attached twice", ErrInvalidFormat, s)
		}
		attach[k] = u - 1
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w, %s", ErrInvalidFile, err)
	}
	samples := make([]int, len(attach))
	for k := range samples {
		u, ok := attach[k]
		if !ok {
			return nil, fmt.Errorf("%w, sample s%d missing", ErrInvalidFormat, k)
		}
		samples[k] = u
	}
	for i, p := range parent {
		if p == -2 {
			return nil, fmt.Errorf("%w, mutation %d is not in the tree", ErrInvalidFormat, i+1)
		}
	}
	return &SciteTree{Parent: parent, Edges: edges, Samples: samples}, nil
}

// splits "u -> v;" into its (1-based) source and raw target
func parseGVEdge(line string) (int, string, error) {
	src, dst, found := strings.Cut(strings.TrimRight(line, ";"), "->")
	if !found {
		return 0, "", fmt.Errorf("%w, %q is not an edge", ErrInvalidFormat, line)
	}
	u, err := strconv.Atoi(strings.TrimSpace(src))
	if err != nil {
		return 0, "", fmt.Errorf("%w, edge source %q", ErrInvalidFormat, src)
	}
	return u, strings.TrimSpace(dst), nil
}

// Matrix of m taxa by n characters
type CharacterMatrix struct {
	Entries [][]int // Entries[taxon][character]
	NChars  int     // number of characters
}

func (cm *CharacterMatrix) NTaxa() int {
	return len(cm.Entries)
}

// Number of taxa with a non-zero state for each character
func (cm *CharacterMatrix) ColumnSums() []int {
	sums := make([]int, cm.NChars)
	for _, row := range cm.Entries {
		for j, s := range row {
			if s != 0 {
				sums[j]++
			}
		}
	}
	return sums
}

// Reads a character matrix: "m # taxa" and "n # characters" header lines
// followed by m rows of n whitespace separated values.
func ReadCharacterMatrix(matrixFile string) (*CharacterMatrix, error) {
	lines, err := readLines(matrixFile)
	if err != nil {
		return nil, err
	}
	if len(lines) < 2 {
		return nil, fmt.Errorf("%w, %s is missing the matrix header", ErrInvalidFile, matrixFile)
	}
	m, err := headerCount(lines[0])
	if err != nil {
		return nil, fmt.Errorf("%w in %s", err, matrixFile)
	}
	n, err := headerCount(lines[1])
	if err != nil {
		return nil, fmt.Errorf("%w in %s", err, matrixFile)
	}
	if len(lines)-2 < m {
		return nil, fmt.Errorf("%w, %s has %d rows, expected %d", ErrInvalidFile, matrixFile, len(lines)-2, m)
	}
	entries := make([][]int, m)
	for i := range m {
		fields := strings.Fields(lines[i+2])
		if len(fields) != n {
			return nil, fmt.Errorf("%w, row %d of %s has %d entries, expected %d",
				ErrInvalidFormat, i+1, matrixFile, len(fields), n)
		}
		entries[i] = make([]int, n)
		for j, f := range fields {
			if entries[i][j], err = strconv.Atoi(f); err != nil {
				return nil, fmt.Errorf("%w, entry %q in row %d of %s", ErrInvalidFormat, f, i+1, matrixFile)
			}
		}
	}
	return &CharacterMatrix{Entries: entries, NChars: n}, nil
}

// reads the leading count of a "<count> # <what>" line
func headerCount(line string) (int, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return 0, fmt.Errorf("%w, empty header line", ErrInvalidFormat)
	}
	c, err := strconv.Atoi(fields[0])
	if err != nil || c < 0 {
		return 0, fmt.Errorf("%w, header %q", ErrInvalidFormat, line)
	}
	return c, nil
}

func readLines(file string) ([]string, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("%w, error reading %s: %s", ErrInvalidFile, file, err)
	}
	lines := make([]string, 0)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), len(data)+1)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w, error reading %s: %s", ErrInvalidFile, file, err)
	}
	return lines, nil
}

// don't log while parsing as gotree can be noisy; call the returned function
// to restore the logger
func silenceLog() func() {
	flags := log.Flags()
	lout := log.Writer()
	log.SetOutput(io.Discard)
	return func() {
		log.SetOutput(lout)
		log.SetFlags(flags)
	}
}
