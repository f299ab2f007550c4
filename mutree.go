/*
mutree converts mutation trees produced by SiFit and SCITE into vertex
mutation states and character matrices.

usage: mutree [ -p <prefix> | -n <procs> | -h | -v ] <command> <args...>

commands:

	sifit <tree> <leaves> <#characters>	vertex states from a SiFit tree with edge labels
	scite <scite.gv> <#taxa> <#characters>	character matrix from a SCITE graphviz tree
	gv2tree <scite.gv>			edge list from a SCITE graphviz tree
	transpose <matrix>			character matrix in SCITE input orientation
	forbidden <k>				forbidden k-Dollo submatrices

flags:

	-h	prints this message and exits
	-n int
	  	number of parallel processes
	-p prefix
	  	save mutation prevalence plot to <prefix>.png (sifit and scite)
	-v	prints version number and exits

examples:

	mutree sifit sifit-tree.txt leaves.tsv 50 > states.txt 2> log.txt
	mutree scite scite_ml0.gv 100 50 > matrix.txt 2> log.txt
*/
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"strconv"

	"github.com/jsdoublel/mutree/internal/convert"
	"github.com/jsdoublel/mutree/internal/forbidden"
	gr "github.com/jsdoublel/mutree/internal/graphs"
	pr "github.com/jsdoublel/mutree/internal/prep"
)

const (
	Version    = "v0.1.0"
	ErrMessage = "mutree encountered an error ::"

	SiFit Command = iota
	Scite
	GvToTree
	Transpose
	Forbidden
)

type Command int

var parseCommand = map[string]Command{
	"sifit":     SiFit,
	"scite":     Scite,
	"gv2tree":   GvToTree,
	"transpose": Transpose,
	"forbidden": Forbidden,
}

// positional arguments (after the command) required by each command
var commandArgs = map[Command][]string{
	SiFit:     {"<tree>", "<leaves>", "<#characters>"},
	Scite:     {"<scite.gv>", "<#taxa>", "<#characters>"},
	GvToTree:  {"<scite.gv>"},
	Transpose: {"<matrix>"},
	Forbidden: {"<k>"},
}

type args struct {
	command    Command  // which conversion to run
	positional []string // command arguments
	plotPrefix string   // prevalence plot prefix (empty for no plot)
	nprocs     int      // number of parallel processes
}

func setNProcs(nprocs int) int {
	maxProcs := runtime.GOMAXPROCS(0)
	switch {
	case nprocs > maxProcs:
		log.Printf("%d is greater than available processes (%d); limit set to %d\n", nprocs, maxProcs, maxProcs)
		return maxProcs
	case nprocs <= 0:
		return maxProcs
	default:
		return nprocs
	}
}

func parseArgs() args {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr,
			"usage: mutree [ -p <prefix> | -n <procs> | -h | -v ] <command> <args...>\n",
			"\n",
			"commands:\n\n",
			"  sifit <tree> <leaves> <#characters>\tvertex states from a SiFit tree with edge labels\n",
			"  scite <scite.gv> <#taxa> <#characters>\tcharacter matrix from a SCITE graphviz tree\n",
			"  gv2tree <scite.gv>\t\t\tedge list from a SCITE graphviz tree\n",
			"  transpose <matrix>\t\t\tcharacter matrix in SCITE input orientation\n",
			"  forbidden <k>\t\t\t\tforbidden k-Dollo submatrices\n",
			"\n",
			"flags:\n\n",
		)
		flag.PrintDefaults()
		fmt.Fprint(os.Stderr,
			"\n",
			"examples:\n\n",
			"\tmutree sifit sifit-tree.txt leaves.tsv 50 > states.txt 2> log.txt\n",
			"\tmutree scite scite_ml0.gv 100 50 > matrix.txt 2> log.txt\n",
		)
	}
	help := flag.Bool("h", false, "prints this message and exits")
	ver := flag.Bool("v", false, "prints version number and exits")
	nprocs := flag.Int("n", 0, "number of parallel processes")
	prefix := flag.String("p", "", "save mutation prevalence plot to <`prefix`>.png (sifit and scite)")
	flag.Parse()
	if *help {
		flag.Usage()
		os.Exit(0)
	}
	if *ver {
		fmt.Printf("mutree version %s\n", Version)
		os.Exit(0)
	}
	if flag.NArg() < 1 {
		parserError("a command is required")
	}
	cmd, ok := parseCommand[flag.Arg(0)]
	if !ok {
		parserError(fmt.Sprintf("\"%s\" is not a valid command", flag.Arg(0)))
	}
	if want := commandArgs[cmd]; flag.NArg()-1 != len(want) {
		parserError(fmt.Sprintf("%s requires %d positional arguments: %v", flag.Arg(0), len(want), want))
	}
	return args{
		command:    cmd,
		positional: flag.Args()[1:],
		plotPrefix: *prefix,
		nprocs:     setNProcs(*nprocs),
	}
}

// prints message, usage, and exits (status code 1)
func parserError(message string) {
	fmt.Fprintln(os.Stderr, message)
	flag.Usage()
	os.Exit(1)
}

// parses a positive count argument, exiting with usage if it is not one
func parseCount(s, what string) int {
	c, err := strconv.Atoi(s)
	if err != nil || c < 1 {
		parserError(fmt.Sprintf("%s must be a positive integer, got \"%s\"", what, s))
	}
	return c
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	args := parseArgs()
	log.Printf("mutree version %s", Version)
	var out bytes.Buffer // only written to stdout once the whole run succeeds
	var err error
	switch args.command {
	case SiFit:
		log.Println("running sifit...")
		err = runSiFit(args, &out)
	case Scite:
		log.Println("running scite...")
		err = runScite(args, &out)
	case GvToTree:
		log.Println("running gv2tree...")
		err = runGvToTree(args, &out)
	case Transpose:
		log.Println("running transpose...")
		err = runTranspose(args, &out)
	case Forbidden:
		log.Println("running forbidden...")
		err = runForbidden(args, &out)
	default:
		panic(fmt.Sprintf("invalid command (%d)", args.command))
	}
	if err != nil {
		log.Fatalf("%s %s\n", ErrMessage, err)
	}
	if _, err := os.Stdout.Write(out.Bytes()); err != nil {
		log.Fatalf("%s %s\n", ErrMessage, err)
	}
}

func runSiFit(args args, out *bytes.Buffer) error {
	n := parseCount(args.positional[2], "<#characters>")
	tre, edgeLabels, err := pr.ReadSiFitFile(args.positional[0])
	if err != nil {
		return err
	}
	truth, err := pr.ReadLeafStates(args.positional[1], n)
	if err != nil {
		return err
	}
	mt, states, err := convert.SiFit(tre, edgeLabels, truth, n)
	if err != nil {
		return err
	}
	if args.plotPrefix != "" {
		leaves := mt.Leaves()
		if err := pr.WriteMutationProfile(states.Prevalence(leaves), len(leaves), args.plotPrefix); err != nil {
			return err
		}
	}
	return pr.WriteVertexStates(out, mt, states)
}

func runScite(args args, out *bytes.Buffer) error {
	m := parseCount(args.positional[1], "<#taxa>")
	n := parseCount(args.positional[2], "<#characters>")
	st, err := readSciteFile(args.positional[0], n)
	if err != nil {
		return err
	}
	cm, err := convert.Scite(st, m)
	if err != nil {
		return err
	}
	if args.plotPrefix != "" {
		if err := pr.WriteMutationProfile(cm.ColumnSums(), cm.NTaxa(), args.plotPrefix); err != nil {
			return err
		}
	}
	return pr.WriteCharacterMatrix(out, cm)
}

func runGvToTree(args args, out *bytes.Buffer) error {
	st, err := readSciteFile(args.positional[0], -1)
	if err != nil {
		return err
	}
	if _, err := gr.NewMutationTree(st.Parent, nil); err != nil {
		return err
	}
	return pr.WriteEdgeList(out, st)
}

func runTranspose(args args, out *bytes.Buffer) error {
	cm, err := pr.ReadCharacterMatrix(args.positional[0])
	if err != nil {
		return err
	}
	return pr.WriteTransposed(out, cm)
}

func runForbidden(args args, out *bytes.Buffer) error {
	k := parseCount(args.positional[0], "<k>")
	conds, err := forbidden.Enumerate(k, args.nprocs)
	if err != nil {
		return err
	}
	return forbidden.Write(out, conds)
}

func readSciteFile(gvFile string, n int) (*pr.SciteTree, error) {
	file, err := os.Open(gvFile)
	if err != nil {
		return nil, fmt.Errorf("%w, error opening %s: %s", pr.ErrInvalidFile, gvFile, err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			panic(fmt.Sprintf("could not close file %s, %s", gvFile, err))
		}
	}()
	st, err := pr.ReadSciteGV(file, n)
	if err != nil {
		return nil, fmt.Errorf("%w in %s", err, gvFile)
	}
	return st, nil
}
