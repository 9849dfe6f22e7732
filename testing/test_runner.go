package testing

import (
	"context"
	"net"
	"time"

	"github.com/go-sif/liquid/application"
	"github.com/go-sif/liquid/cluster"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// LocalCluster is a Registrar and its Members, all running on localhost
type LocalCluster struct {
	Registrar *cluster.RegistrarNode
	Members   []*cluster.MemberNode // ordered by node id
}

// StartLocalCluster starts a Registrar and numNodes Members on localhost, on
// free ports, and waits for every Member to join
func StartLocalCluster(ctx context.Context, opts *cluster.NodeOptions, numNodes int) (*LocalCluster, error) {
	opts = cluster.CloneNodeOptions(opts)
	opts.Host = "127.0.0.1"
	opts.Port = 0
	opts.RegistrarHost = "127.0.0.1"
	opts.NumNodes = numNodes
	if opts.JoinTimeout == 0 {
		opts.JoinTimeout = 5 * time.Second
	}
	if opts.RPCTimeout == 0 {
		opts.RPCTimeout = 5 * time.Second
	}

	registrar, err := cluster.CreateRegistrar(opts)
	if err != nil {
		return nil, err
	}
	if err := registrar.Start(ctx); err != nil {
		return nil, err
	}
	lc := &LocalCluster{Registrar: registrar, Members: make([]*cluster.MemberNode, numNodes)}
	opts.RegistrarPort = registrar.Addr().(*net.TCPAddr).Port

	g, gctx := errgroup.WithContext(ctx)
	for i := range lc.Members {
		mopts := cluster.CloneNodeOptions(opts)
		mopts.NodeID = i + 1
		member, err := cluster.CreateMember(mopts)
		if err != nil {
			lc.Stop()
			return nil, err
		}
		lc.Members[i] = member
		g.Go(func() error {
			return member.Start(gctx)
		})
	}
	if err := g.Wait(); err != nil {
		lc.Stop()
		return nil, err
	}
	return lc, nil
}

// Stop shuts down every Member, and then the Registrar
func (lc *LocalCluster) Stop() error {
	var errs *multierror.Error
	for _, m := range lc.Members {
		if m == nil {
			continue
		}
		if err := m.Stop(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if err := lc.Registrar.Stop(); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs.ErrorOrNil()
}

// LocalRun runs fn concurrently on every Member of a localhost test cluster,
// each wrapped in an Application, and stops the cluster once every fn has
// returned. The first error returned by any fn cancels the others.
func LocalRun(ctx context.Context, opts *cluster.NodeOptions, appOpts *application.Options, numNodes int, fn func(ctx context.Context, app *application.Application) error) error {
	lc, err := StartLocalCluster(ctx, opts, numNodes)
	if err != nil {
		return err
	}
	defer lc.Stop()
	g, gctx := errgroup.WithContext(ctx)
	for _, m := range lc.Members {
		app, err := application.New(m, appOpts)
		if err != nil {
			return err
		}
		m.TrackStatistics(app.Stats())
		g.Go(func() error {
			return fn(gctx, app)
		})
	}
	return g.Wait()
}
