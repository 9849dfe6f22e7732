package main

import (
	"context"
	"time"

	"github.com/go-kit/log/level"
	"github.com/go-sif/liquid/cluster"
	"github.com/spf13/cobra"
)

func newRegistrarCommand(c *cli) *cobra.Command {
	var exitWhenJoined bool
	cmd := &cobra.Command{
		Use:   "registrar",
		Short: "Run the registrar, which assigns node ids and introduces members to one another",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.nodeOptions()
			if err != nil {
				return err
			}
			if opts.Port == 0 {
				opts.Port = opts.RegistrarPort
			}
			return runRegistrar(cmd.Context(), c, opts, exitWhenJoined)
		},
	}
	cmd.Flags().BoolVar(&exitWhenJoined, "exit-when-joined", false, "stop once every member has been introduced")
	return cmd
}

func runRegistrar(ctx context.Context, c *cli, opts *cluster.NodeOptions, exitWhenJoined bool) error {
	registrar, err := cluster.CreateRegistrar(opts)
	if err != nil {
		return err
	}
	if err := registrar.Start(ctx); err != nil {
		return err
	}
	joined := make(chan struct{})
	go func() {
		if err := registrar.WaitForMembers(ctx); err == nil {
			level.Info(c.logger).Log("msg", "every member has joined", "members", registrar.NumberOfMembers())
			close(joined)
		}
	}()

	select {
	case <-joined:
		if exitWhenJoined {
			return registrar.GracefulStop()
		}
		<-ctx.Done()
	case <-ctx.Done():
	}
	level.Info(c.logger).Log("msg", "stopping members")
	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := registrar.StopMembers(stopCtx); err != nil {
		level.Warn(c.logger).Log("msg", "failed to stop some members", "err", err)
	}
	return registrar.GracefulStop()
}
