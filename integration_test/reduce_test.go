package integration_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-sif/liquid/application"
	"github.com/go-sif/liquid/cluster"
	"github.com/go-sif/liquid/datasource/dsv"
	"github.com/go-sif/liquid/rowers"
	liquidtest "github.com/go-sif/liquid/testing"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, contents string) string {
	path := filepath.Join(t.TempDir(), name)
	require.Nil(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

// createSoRFile writes n rows of <i> <i is odd>
func createSoRFile(t *testing.T, n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "<%d> <%t>\n", i, i%2 == 1)
	}
	return writeFile(t, "data.sor", sb.String())
}

func TestClusterChainReduce(t *testing.T) {
	path := createSoRFile(t, 1000)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, numNodes := range []int{1, 2, 4} {
		var lock sync.Mutex
		var count, trues int64
		var termini int
		err := liquidtest.LocalRun(ctx, &cluster.NodeOptions{}, &application.Options{Threads: 2}, numNodes, func(ctx context.Context, app *application.Application) error {
			if err := app.FromFile(ctx, "data", path); err != nil {
				return err
			}
			c, isTerminus, err := application.PMap(ctx, app, "data", rowers.Counter(), nil)
			if err != nil {
				return err
			}
			tc, isTerminusAgain, err := application.PMap(ctx, app, "data", rowers.TrueCounter(1), nil)
			if err != nil {
				return err
			}
			if isTerminus != isTerminusAgain || isTerminus != (app.NodeID() == 1) {
				return fmt.Errorf("node %d disagrees about the terminus", app.NodeID())
			}
			if isTerminus {
				lock.Lock()
				count, trues = c.Count, tc.Count
				termini++
				lock.Unlock()
			}
			return nil
		})
		require.Nil(t, err)
		require.Equal(t, 1, termini, "nodes=%d", numNodes)
		require.EqualValues(t, 1000, count, "nodes=%d", numNodes)
		require.EqualValues(t, 500, trues, "nodes=%d", numNodes)
	}
}

func TestClusterStarReduce(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("id,value\n")
	expected := 0.0
	for i := 0; i < 300; i++ {
		fmt.Fprintf(&sb, "%d,%d.5\n", i, i)
		expected += float64(i) + 0.5
	}
	path := writeFile(t, "data.csv", sb.String())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	appOpts := &application.Options{
		Decoder:  dsv.CreateDecoder(&dsv.DecoderConf{HeaderLines: 1}),
		Topology: application.Star,
	}
	var total float64
	err := liquidtest.LocalRun(ctx, &cluster.NodeOptions{}, appOpts, 3, func(ctx context.Context, app *application.Application) error {
		if err := app.FromFile(ctx, "values", path); err != nil {
			return err
		}
		sum, isTerminus, err := application.PMap(ctx, app, "values", rowers.Adder(1), nil)
		if err != nil {
			return err
		}
		if isTerminus {
			total = sum.Sum
		}
		return nil
	})
	require.Nil(t, err)
	require.InDelta(t, expected, total, 1e-9)
}

func TestClusterShare(t *testing.T) {
	path := createSoRFile(t, 90)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var lock sync.Mutex
	shared := make(map[int]int64)
	err := liquidtest.LocalRun(ctx, &cluster.NodeOptions{}, nil, 3, func(ctx context.Context, app *application.Application) error {
		if err := app.FromFile(ctx, "data", path); err != nil {
			return err
		}
		res, isTerminus, err := application.PMap(ctx, app, "data", rowers.Counter(), nil)
		if err != nil {
			return err
		}
		res, err = application.Share(ctx, app, res, isTerminus, nil)
		if err != nil {
			return err
		}
		lock.Lock()
		shared[app.NodeID()] = res.Count
		lock.Unlock()
		return nil
	})
	require.Nil(t, err)
	require.Equal(t, map[int]int64{1: 90, 2: 90, 3: 90}, shared)
}
