package prep

import (
	"bufio"
	"fmt"
	"image/color"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	gr "github.com/jsdoublel/mutree/internal/graphs"
)

const (
	plotH = 4 * vg.Inch
	plotW = 6 * vg.Inch

	maxTicks = 10
)

var (
	plotLineColor  = color.RGBA{R: 37, G: 150, B: 190, A: 255}
	plotMarkerShap = draw.SquareGlyph{}

	taxonLabel = regexp.MustCompile(`^[^0-9]*([0-9]+)$`)
)

// Writes the vertex count, the parent array, and one line per vertex holding
// its name followed by its state. Leaves labeled <prefix><digits> are named by
// their zero-based taxon number (digits - 1); other vertices keep their label.
func WriteVertexStates(w io.Writer, mt *gr.MutationTree, states gr.States) error {
	if len(states) != mt.NumVertices() {
		panic(fmt.Sprintf("%d states for %d vertices", len(states), mt.NumVertices()))
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d #vertices\n", mt.NumVertices())
	fmt.Fprintln(bw, joinInts(mt.Parent))
	for v := range mt.NumVertices() {
		fmt.Fprintf(bw, "%s %s\n", VertexName(mt, v), gr.FormatBits(states[v]))
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w, %s", ErrWritingFile, err)
	}
	return nil
}

// Printed name of vertex v
func VertexName(mt *gr.MutationTree, v int) string {
	label := mt.Labels[v]
	if !mt.IsLeaf(v) {
		return label
	}
	match := taxonLabel.FindStringSubmatch(label)
	if match == nil {
		return label
	}
	taxon, err := strconv.Atoi(match[1])
	if err != nil {
		return label
	}
	return strconv.Itoa(taxon - 1)
}

// Writes a character matrix with its "# taxa" and "# characters" header
func WriteCharacterMatrix(w io.Writer, cm *CharacterMatrix) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d # taxa\n", cm.NTaxa())
	fmt.Fprintf(bw, "%d # characters\n", cm.NChars)
	for _, row := range cm.Entries {
		fmt.Fprintln(bw, joinInts(row))
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w, %s", ErrWritingFile, err)
	}
	return nil
}

// Writes the matrix with one row per character and one column per taxon (the
// orientation SCITE reads), without a header
func WriteTransposed(w io.Writer, cm *CharacterMatrix) error {
	bw := bufio.NewWriter(w)
	col := make([]int, cm.NTaxa())
	for j := range cm.NChars {
		for i, row := range cm.Entries {
			col[i] = row[j]
		}
		fmt.Fprintln(bw, joinInts(col))
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w, %s", ErrWritingFile, err)
	}
	return nil
}

// Writes the SCITE mutation edges as zero-based "u v" pairs (the root is -1)
// followed by the vertex each sample is attached to
func WriteEdgeList(w io.Writer, st *SciteTree) error {
	root := st.Root()
	rename := func(u int) int {
		if u == root {
			return -1
		}
		return u
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d # n\n", len(st.Edges))
	for _, e := range st.Edges {
		fmt.Fprintf(bw, "%d %d\n", rename(e[0]), e[1])
	}
	fmt.Fprintf(bw, "%d # m\n", len(st.Samples))
	for _, u := range st.Samples {
		fmt.Fprintf(bw, "%d\n", rename(u))
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w, %s", ErrWritingFile, err)
	}
	return nil
}

// Saves a line plot of the percent of leaves carrying each mutation to
// <prefix>.png
func WriteMutationProfile(prevalence []int, nLeaves int, prefix string) error {
	if nLeaves == 0 {
		return fmt.Errorf("%w, no leaves to plot", ErrWritingFile)
	}
	p := plot.New()
	p.X.Label.Text = "Mutation"
	p.Y.Label.Text = "Percent of Leaves Carrying Mutation"
	p.X.Min = 0
	p.X.Max = math.Max(float64(len(prevalence)-1), 1)
	p.X.Tick.Marker = plot.TickerFunc(func(_, max float64) []plot.Tick {
		step := 1
		if int(max) > maxTicks {
			step = int(math.Ceil(max / maxTicks))
		}
		ticks := make([]plot.Tick, 0, int(max)/step+2)
		for i := range int(max) + 1 {
			if i%step == 0 {
				ticks = append(ticks, plot.Tick{Value: float64(i), Label: strconv.Itoa(i)})
			} else {
				ticks = append(ticks, plot.Tick{Value: float64(i)})
			}
		}
		return ticks
	})
	p.Y.Min = 0
	p.Y.Max = 100
	pts := make(plotter.XYs, len(prevalence))
	for m, count := range prevalence {
		pts[m].X = float64(m)
		pts[m].Y = 100 * float64(count) / float64(nLeaves)
	}
	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return fmt.Errorf("%w, %s", ErrWritingFile, err)
	}
	line.Color = plotLineColor
	line.Dashes = []vg.Length{vg.Points(6), vg.Points(3)}
	points.Color = plotLineColor
	points.Shape = plotMarkerShap
	points.Radius = vg.Points(4)
	p.Add(line, points)
	if err := p.Save(plotW, plotH, fmt.Sprintf("%s.png", prefix)); err != nil {
		return fmt.Errorf("%w, %s", ErrWritingFile, err)
	}
	return nil
}

func joinInts(vals []int) string {
	strs := make([]string, len(vals))
	for i, v := range vals {
		strs[i] = strconv.Itoa(v)
	}
	return strings.Join(strs, " ")
}
