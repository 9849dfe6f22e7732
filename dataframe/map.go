package dataframe

import (
	"runtime"

	"github.com/go-sif/liquid/internal/util"
	"golang.org/x/sync/errgroup"
)

// Map visits every row of df, in order, with a clone of r, and returns the
// clone. The scan stops early if Visit returns false. r itself is untouched,
// so Map(df, r) accumulates the same result as PMapN(df, r, 1).
func Map[R Rower[R]](df Accessible, r R) (R, error) {
	c, err := safeClone(r)
	if err != nil {
		return c, err
	}
	return scan(df, c, 0, df.NRows())
}

// PMap visits every row of df with clones of r, using one goroutine per
// available processor, and joins the results
func PMap[R Rower[R]](df Accessible, r R) (R, error) {
	return PMapN(df, r, runtime.GOMAXPROCS(0))
}

// PMapN splits the rows of df into (at most) threads contiguous blocks, visits
// each block with its own clone of r in its own goroutine, and then joins the
// per-block results in block order. A Visit returning false ends the scan of
// its own block only. If any Rower panics, no result is returned.
func PMapN[R Rower[R]](df Accessible, r R, threads int) (R, error) {
	var zero R
	nrows := df.NRows()
	if nrows == 0 {
		return safeClone(r)
	}
	if threads < 1 {
		threads = 1
	}
	if threads > nrows {
		threads = nrows
	}

	clones := make([]R, threads)
	for i := range clones {
		c, err := safeClone(r)
		if err != nil {
			return zero, err
		}
		clones[i] = c
	}

	results := make([]R, threads)
	blockSize, extra := nrows/threads, nrows%threads
	var g errgroup.Group
	start := 0
	for i := 0; i < threads; i++ {
		i, from := i, start
		to := from + blockSize
		if i < extra {
			to++
		}
		start = to
		g.Go(func() error {
			res, err := scan(df, clones[i], from, to)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return zero, err
	}

	acc := results[0]
	for _, res := range results[1:] {
		joined, err := safeJoin(acc, res)
		if err != nil {
			return zero, err
		}
		acc = joined
	}
	return acc, nil
}

// scan visits rows [from, to) of df with r, using a single scratch Row
func scan[R Rower[R]](df Accessible, r R, from int, to int) (res R, err error) {
	row := df.NewRow()
	defer func() {
		if p := recover(); p != nil {
			err = util.NewPanicError("Visit", p, row.String())
		}
	}()
	for i := from; i < to; i++ {
		if err = df.FillRow(i, row); err != nil {
			return
		}
		if !r.Visit(row) {
			break
		}
	}
	return r, nil
}

func safeClone[R Rower[R]](r R) (res R, err error) {
	err = util.SafeOperation("Clone", func() error {
		res = r.Clone()
		return nil
	})
	return res, err
}

func safeJoin[R Rower[R]](acc R, other R) (res R, err error) {
	err = util.SafeOperation("Join", func() error {
		res = acc.Join(other)
		return nil
	})
	return res, err
}
