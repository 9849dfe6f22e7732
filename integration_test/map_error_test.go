package integration_test

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/go-sif/liquid/application"
	"github.com/go-sif/liquid/cluster"
	"github.com/go-sif/liquid/dataframe"
	errors "github.com/go-sif/liquid/errors"
	"github.com/go-sif/liquid/internal/util"
	"github.com/go-sif/liquid/kv"
	liquidtest "github.com/go-sif/liquid/testing"
	"github.com/stretchr/testify/require"
)

// explodingRower panics when it visits the row with the given value
type explodingRower struct {
	At int64
}

func (r *explodingRower) Visit(row *dataframe.Row) bool {
	if v, err := row.GetInt(0); err == nil && v == r.At {
		panic("exploded")
	}
	return true
}

func (r *explodingRower) Join(other *explodingRower) *explodingRower {
	return r
}

func (r *explodingRower) Clone() *explodingRower {
	return &explodingRower{At: r.At}
}

func TestClusterVisitPanic(t *testing.T) {
	path := createSoRFile(t, 100)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := liquidtest.LocalRun(ctx, &cluster.NodeOptions{}, nil, 3, func(ctx context.Context, app *application.Application) error {
		if err := app.FromFile(ctx, "data", path); err != nil {
			return err
		}
		_, _, err := application.PMap(ctx, app, "data", &explodingRower{At: 98}, nil)
		return err
	})
	require.NotNil(t, err)
	var perr *util.PanicError
	require.True(t, stderrors.As(err, &perr))
	require.Equal(t, "Visit", perr.Op)
	require.Equal(t, "{98, false}", perr.Context)
}

func TestClusterMissingPartition(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := liquidtest.LocalRun(ctx, &cluster.NodeOptions{}, nil, 2, func(ctx context.Context, app *application.Application) error {
		if app.NodeID() != 2 {
			return nil
		}
		_, err := app.Store().Get(ctx, kv.Key{Namespace: "nothing", NodeID: 1})
		return err
	})
	require.Equal(t, errors.PartitionNotFoundError{Namespace: "nothing", NodeID: 1}, err)
}

func TestClusterNeighborTimeout(t *testing.T) {
	path := createSoRFile(t, 10)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	appOpts := &application.Options{RecvTimeout: 50 * time.Millisecond}
	err := liquidtest.LocalRun(ctx, &cluster.NodeOptions{}, appOpts, 2, func(ctx context.Context, app *application.Application) error {
		if app.NodeID() == 2 {
			// node 2 never takes part
			return nil
		}
		if err := app.FromFile(ctx, "data", path); err != nil {
			return err
		}
		_, _, err := application.PMap(ctx, app, "data", &explodingRower{At: -1}, nil)
		return err
	})
	require.Equal(t, errors.NeighborUnreachableError{NodeID: 2, Wait: 50 * time.Millisecond}, err)
}
