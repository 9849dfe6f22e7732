package main

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-kit/log/level"
	"github.com/go-sif/liquid/application"
	"github.com/go-sif/liquid/cluster"
	"github.com/go-sif/liquid/dataframe"
	"github.com/go-sif/liquid/datasource/dsv"
	"github.com/go-sif/liquid/datasource/jsonl"
	"github.com/go-sif/liquid/datasource/sor"
	"github.com/go-sif/liquid/rowers"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// jobFlags configure how a member reads its input and combines results
type jobFlags struct {
	decoder     string
	headerLines int
	delimiter   string
	columns     []string
	topology    string
	recvTimeout time.Duration
	threads     int
}

func (f *jobFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&f.decoder, "decoder", "sor", "input format: sor, dsv or jsonl")
	flags.IntVar(&f.headerLines, "header-lines", 0, "dsv lines to skip, the first of which names the columns")
	flags.StringVar(&f.delimiter, "delimiter", ",", "dsv column delimiter")
	flags.StringSliceVar(&f.columns, "columns", nil, "jsonl paths to extract as columns")
	flags.StringVar(&f.topology, "topology", "chain", "how partial results are combined: chain or star")
	flags.DurationVar(&f.recvTimeout, "recv-timeout", 0, "give up on a neighbour after this long. 0 waits forever.")
	flags.IntVar(&f.threads, "threads", 0, "goroutines per local map. 0 uses one per processor.")
}

func (f *jobFlags) decoderFor() (dataframe.Decoder, error) {
	switch f.decoder {
	case "sor":
		return sor.NewDecoder(), nil
	case "dsv":
		delim, size := utf8.DecodeRuneInString(f.delimiter)
		if size == 0 || size != len(f.delimiter) {
			return nil, fmt.Errorf("delimiter must be a single character, not %q", f.delimiter)
		}
		return dsv.CreateDecoder(&dsv.DecoderConf{HeaderLines: f.headerLines, Delimiter: delim}), nil
	case "jsonl":
		return jsonl.CreateDecoder(&jsonl.DecoderConf{Columns: f.columns}), nil
	default:
		return nil, fmt.Errorf("unknown decoder %q", f.decoder)
	}
}

func (f *jobFlags) appOptions(c *cli) (*application.Options, error) {
	decoder, err := f.decoderFor()
	if err != nil {
		return nil, err
	}
	opts := &application.Options{
		Decoder:     decoder,
		Logger:      c.logger,
		RecvTimeout: f.recvTimeout,
		Threads:     f.threads,
	}
	switch strings.ToLower(f.topology) {
	case "chain":
		opts.Topology = application.Chain
	case "star":
		opts.Topology = application.Star
	default:
		return nil, fmt.Errorf("unknown topology %q", f.topology)
	}
	return opts, nil
}

// runMember joins the cluster as a member and runs job on it, leaving the
// cluster once job returns
func runMember(ctx context.Context, c *cli, appOpts *application.Options, job func(ctx context.Context, app *application.Application) error) error {
	opts, err := c.nodeOptions()
	if err != nil {
		return err
	}
	member, err := cluster.CreateMember(opts)
	if err != nil {
		return err
	}
	if err := member.Start(ctx); err != nil {
		return err
	}
	app, err := application.New(member, appOpts)
	if err != nil {
		member.Stop()
		return err
	}
	member.TrackStatistics(app.Stats())
	if err := job(ctx, app); err != nil {
		member.Stop()
		return err
	}
	st := app.Stats()
	sent, received := st.GetNumBlobs()
	level.Info(c.logger).Log(
		"msg", "job complete",
		"node", app.NodeID(),
		"rounds", st.GetNumRoundsCompleted(),
		"rows", st.GetNumRowsProcessed(),
		"blobs_sent", sent,
		"blobs_received", received,
		"runtime", st.GetRuntime(),
	)
	return member.GracefulStop()
}

func newCountCommand(c *cli) *cobra.Command {
	var jf jobFlags
	var trueCol, sumCol int
	cmd := &cobra.Command{
		Use:   "count <file>",
		Short: "Count the rows of a file, and optionally the true values or sum of a column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appOpts, err := jf.appOptions(c)
			if err != nil {
				return err
			}
			return runMember(cmd.Context(), c, appOpts, func(ctx context.Context, app *application.Application) error {
				if err := app.FromFile(ctx, "input", args[0]); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				count, isTerminus, err := application.PMap(ctx, app, "input", rowers.Counter(), nil)
				if err != nil {
					return err
				}
				if isTerminus {
					fmt.Fprintf(out, "rows: %d\n", count.Count)
				}
				if trueCol >= 0 {
					trues, isTerminus, err := application.PMap(ctx, app, "input", rowers.TrueCounter(trueCol), nil)
					if err != nil {
						return err
					}
					if isTerminus {
						fmt.Fprintf(out, "true in column %d: %d\n", trueCol, trues.Count)
					}
				}
				if sumCol >= 0 {
					sum, isTerminus, err := application.PMap(ctx, app, "input", rowers.Adder(sumCol), nil)
					if err != nil {
						return err
					}
					if isTerminus {
						fmt.Fprintf(out, "sum of column %d: %g\n", sumCol, sum.Sum)
					}
				}
				return nil
			})
		},
	}
	jf.register(cmd.Flags())
	cmd.Flags().IntVar(&trueCol, "true-col", -1, "also count the true values of this Bool column")
	cmd.Flags().IntVar(&sumCol, "sum-col", -1, "also sum this numeric column")
	return cmd
}

func newDegreesCommand(c *cli) *cobra.Command {
	var jf jobFlags
	var projectCol, userCol, degrees int
	var users []uint
	cmd := &cobra.Command{
		Use:   "degrees <file>",
		Short: "Find the users within some degrees of separation of a set of users, over a (project, user) edge list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appOpts, err := jf.appOptions(c)
			if err != nil {
				return err
			}
			return runMember(cmd.Context(), c, appOpts, func(ctx context.Context, app *application.Application) error {
				if err := app.FromFile(ctx, "edges", args[0]); err != nil {
					return err
				}
				found, err := Degrees(ctx, app, "edges", projectCol, userCol, users, degrees)
				if err != nil {
					return err
				}
				if app.NodeID() == 1 {
					fmt.Fprintf(cmd.OutOrStdout(), "users: %d\n", found.Count())
					for i, ok := found.NextSet(0); ok; i, ok = found.NextSet(i + 1) {
						fmt.Fprintln(cmd.OutOrStdout(), i)
					}
				}
				return nil
			})
		},
	}
	jf.register(cmd.Flags())
	cmd.Flags().IntVar(&projectCol, "project-col", 0, "column holding project ids")
	cmd.Flags().IntVar(&userCol, "user-col", 1, "column holding user ids")
	cmd.Flags().UintSliceVar(&users, "users", []uint{0}, "user ids to start from")
	cmd.Flags().IntVar(&degrees, "degrees", 1, "degrees of separation to expand by")
	return cmd
}
