package application

import (
	"context"

	"github.com/go-kit/log/level"
	"github.com/go-sif/liquid/codec"
	"github.com/go-sif/liquid/dataframe"
	errors "github.com/go-sif/liquid/errors"
	"github.com/go-sif/liquid/internal/stats"
	"github.com/go-sif/liquid/internal/util"
	"golang.org/x/sync/errgroup"
)

// Map runs rower over this node's partition of namespace, without involving
// any other node
func Map[R dataframe.Rower[R]](ctx context.Context, a *Application, namespace string, rower R) (R, error) {
	var zero R
	round := a.stats.StartRound()
	local, err := mapLocal(ctx, a, namespace, rower, round)
	if err != nil {
		return zero, err
	}
	round.End()
	return local, nil
}

// PMap runs rower over every node's partition of namespace and joins the
// results. Node 1 returns the joined result and true; every other node
// returns false once it has passed its partial result on. A nil codec means
// codec.Default.
func PMap[R dataframe.Rower[R]](ctx context.Context, a *Application, namespace string, rower R, c codec.Codec[R]) (R, bool, error) {
	var zero R
	if c == nil {
		c = codec.Default[R]()
	}
	round := a.stats.StartRound()
	local, err := mapLocal(ctx, a, namespace, rower, round)
	if err != nil {
		return zero, false, err
	}
	var res R
	var isTerminus bool
	if a.opts.Topology == Star {
		res, isTerminus, err = reduceStar(ctx, a, local, c)
	} else {
		res, isTerminus, err = reduceChain(ctx, a, local, c)
	}
	if err != nil {
		return zero, false, err
	}
	round.End()
	level.Debug(a.logger).Log("msg", "finished round", "namespace", namespace, "topology", a.opts.Topology, "terminus", isTerminus)
	return res, isTerminus, nil
}

// mapLocal runs rower over this node's partition of namespace, leaving rower untouched
func mapLocal[R dataframe.Rower[R]](ctx context.Context, a *Application, namespace string, rower R, round *stats.Round) (R, error) {
	var zero R
	df, err := a.store.Get(ctx, a.key(namespace))
	if err != nil {
		return zero, err
	}
	var local R
	if a.opts.Threads > 0 {
		local, err = dataframe.PMapN(df, rower, a.opts.Threads)
	} else {
		local, err = dataframe.PMap(df, rower)
	}
	if err != nil {
		return zero, err
	}
	round.EndMap(df.NRows())
	return local, nil
}

// reduceChain joins the result of the next node onto local, and passes the
// combination to the previous node. Node N starts the chain and node 1 ends it.
func reduceChain[R dataframe.Rower[R]](ctx context.Context, a *Application, local R, c codec.Codec[R]) (R, bool, error) {
	var zero R
	if a.numNodes == 1 {
		return local, true, nil
	}
	joined := local
	if a.nodeID != a.numNodes {
		inbound, err := receive(ctx, a, a.nodeID+1, c)
		if err != nil {
			return zero, false, err
		}
		joined, err = join(local, inbound)
		if err != nil {
			return zero, false, err
		}
	}
	if a.nodeID == 1 {
		return joined, true, nil
	}
	if err := send(ctx, a, a.nodeID-1, joined, c); err != nil {
		return zero, false, err
	}
	return zero, false, nil
}

// reduceStar sends every partial result to node 1, which joins them in node order
func reduceStar[R dataframe.Rower[R]](ctx context.Context, a *Application, local R, c codec.Codec[R]) (R, bool, error) {
	var zero R
	if a.nodeID != 1 {
		if err := send(ctx, a, 1, local, c); err != nil {
			return zero, false, err
		}
		return zero, false, nil
	}
	joined := local
	for sender := 2; sender <= a.numNodes; sender++ {
		inbound, err := receive(ctx, a, sender, c)
		if err != nil {
			return zero, false, err
		}
		joined, err = join(joined, inbound)
		if err != nil {
			return zero, false, err
		}
	}
	return joined, true, nil
}

// join combines inbound into acc, reporting a panic in Join as a PanicError
func join[R dataframe.Rower[R]](acc R, inbound R) (res R, err error) {
	err = util.SafeOperation("Join", func() error {
		res = acc.Join(inbound)
		return nil
	})
	return res, err
}

// Share distributes the result of a round from the terminus (node 1) to every
// other node, so that all nodes can start the next round from the same
// state. The terminus passes its result, and returns it once every node has
// been sent a copy; other nodes ignore result and return the terminus's.
func Share[R any](ctx context.Context, a *Application, result R, isTerminus bool, c codec.Codec[R]) (R, error) {
	var zero R
	if c == nil {
		c = codec.Default[R]()
	}
	if !isTerminus {
		return receive(ctx, a, 1, c)
	}
	data, err := c.Encode(result)
	if err != nil {
		return zero, err
	}
	g, gctx := errgroup.WithContext(ctx)
	for target := 1; target <= a.numNodes; target++ {
		if target == a.nodeID {
			continue
		}
		target := target
		g.Go(func() error {
			return a.sendBlob(gctx, target, data)
		})
	}
	if err := g.Wait(); err != nil {
		return zero, err
	}
	return result, nil
}

func send[R any](ctx context.Context, a *Application, target int, v R, c codec.Codec[R]) error {
	data, err := c.Encode(v)
	if err != nil {
		return err
	}
	return a.sendBlob(ctx, target, data)
}

func (a *Application) sendBlob(ctx context.Context, target int, data []byte) error {
	if err := a.store.SendBlob(ctx, target, data); err != nil {
		return err
	}
	a.stats.BlobSent()
	level.Debug(a.logger).Log("msg", "sent blob", "target", target, "bytes", len(data))
	return nil
}

func receive[R any](ctx context.Context, a *Application, sender int, c codec.Codec[R]) (R, error) {
	var zero R
	blob, err := a.recv(ctx, sender)
	if err != nil {
		return zero, err
	}
	a.stats.BlobReceived()
	level.Debug(a.logger).Log("msg", "received blob", "sender", blob.Sender, "bytes", len(blob.Data))
	v, err := c.Decode(blob.Data)
	if err != nil {
		if _, ok := err.(errors.MalformedBlobError); ok {
			return zero, err
		}
		return zero, errors.MalformedBlobError{Reason: err.Error()}
	}
	return v, nil
}
