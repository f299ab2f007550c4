// Package enumerating the forbidden 3 x 2 submatrices of the k-Dollo model.
// Each submatrix is stored row by row as six states in [0, k+1].
package forbidden

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidK           = errors.New("invalid k")
	ErrDuplicateSubmatrix = errors.New("duplicate submatrix")
	ErrWriting            = errors.New("error writing submatrices")
)

type Submatrix [6]int

// Submatrices generated by one forbidding condition
type Condition struct {
	Number      int
	Submatrices []Submatrix
}

// generators for conditions 1 through 4, in order
var conditions = []func(k int) []Submatrix{condition1, condition2, condition3, condition4}

// Enumerates the submatrices of every condition for the given k, running at
// most nprocs conditions at once. Returns an error if k < 1 or if any two
// conditions produce the same submatrix.
func Enumerate(k, nprocs int) ([]Condition, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w, %d is less than 1", ErrInvalidK, k)
	}
	result := make([]Condition, len(conditions))
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(max(nprocs, 1))
	for i, gen := range conditions {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			result[i] = Condition{Number: i + 1, Submatrices: gen(k)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	seen := make(map[Submatrix]int)
	for _, cond := range result {
		for _, sm := range cond.Submatrices {
			if c, ok := seen[sm]; ok {
				return nil, fmt.Errorf("%w, %v from condition %d and %d", ErrDuplicateSubmatrix, sm, c, cond.Number)
			}
			seen[sm] = cond.Number
		}
	}
	return result, nil
}

// (i 0) (0 j) (i' j')
func condition1(k int) []Submatrix {
	result := make([]Submatrix, 0, (k+1)*(k+1)*(k+1)*(k+1))
	for i := 1; i <= k+1; i++ {
		for iPrime := 1; iPrime <= k+1; iPrime++ {
			for j := 1; j <= k+1; j++ {
				for jPrime := 1; jPrime <= k+1; jPrime++ {
					result = append(result, Submatrix{i, 0, 0, j, iPrime, jPrime})
				}
			}
		}
	}
	return result
}

// (i j') (0 j) (i' j) with j' != j
func condition2(k int) []Submatrix {
	result := make([]Submatrix, 0)
	for i := 1; i <= k+1; i++ {
		for iPrime := 1; iPrime <= k+1; iPrime++ {
			for j := 2; j <= k+1; j++ {
				for jPrime := 1; jPrime <= k+1; jPrime++ {
					if jPrime != j {
						result = append(result, Submatrix{i, jPrime, 0, j, iPrime, j})
					}
				}
			}
		}
	}
	return result
}

// (i 0) (i' j) (i j') with i' != i
func condition3(k int) []Submatrix {
	result := make([]Submatrix, 0)
	for i := 2; i <= k+1; i++ {
		for iPrime := 1; iPrime <= k+1; iPrime++ {
			if iPrime == i {
				continue
			}
			for j := 1; j <= k+1; j++ {
				for jPrime := 1; jPrime <= k+1; jPrime++ {
					result = append(result, Submatrix{i, 0, iPrime, j, i, jPrime})
				}
			}
		}
	}
	return result
}

// (i j') (i' j) (i j) with i' != i and j' != j
func condition4(k int) []Submatrix {
	result := make([]Submatrix, 0)
	for i := 2; i <= k+1; i++ {
		for iPrime := 1; iPrime <= k+1; iPrime++ {
			if iPrime == i {
				continue
			}
			for j := 2; j <= k+1; j++ {
				for jPrime := 1; jPrime <= k+1; jPrime++ {
					if jPrime != j {
						result = append(result, Submatrix{i, jPrime, iPrime, j, i, j})
					}
				}
			}
		}
	}
	return result
}

// Writes each condition under a "Condition <number>" heading, one submatrix
// row per line and a blank line after each submatrix, followed by the total
// count
func Write(w io.Writer, conds []Condition) error {
	bw := bufio.NewWriter(w)
	total := 0
	for _, cond := range conds {
		fmt.Fprintf(bw, "Condition %d\n", cond.Number)
		for _, sm := range cond.Submatrices {
			fmt.Fprintf(bw, "%d %d\n%d %d\n%d %d\n\n", sm[0], sm[1], sm[2], sm[3], sm[4], sm[5])
		}
		total += len(cond.Submatrices)
	}
	fmt.Fprintf(bw, "Number of forbidden submatrices: %d\n", total)
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w, %s", ErrWriting, err)
	}
	return nil
}
