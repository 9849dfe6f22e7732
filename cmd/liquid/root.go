package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-sif/liquid/cluster"
	"github.com/go-sif/liquid/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// cli holds the state shared by every subcommand
type cli struct {
	v             *viper.Viper
	configFile    string
	logLevel      string
	logFormat     string
	metricsAddr   string
	logger        log.Logger
	registry      *prometheus.Registry
	metricsServer *http.Server
}

func newCLI() *cli {
	return &cli{
		v:      viper.New(),
		logger: log.NewNopLogger(),
	}
}

func newRootCommand() *cobra.Command {
	c := newCLI()
	root := &cobra.Command{
		Use:           "liquid",
		Short:         "Run chain-reduce jobs over a cluster of Liquid nodes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.close()
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "read node options from this file (yaml, json or toml)")
	flags.StringVar(&c.logLevel, "log-level", "info", "one of trace, debug, info, warn, error or fatal")
	flags.StringVar(&c.logFormat, "log-format", "logfmt", "logfmt or json")
	flags.StringVar(&c.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address, e.g. :9100")
	addNodeFlags(flags)
	if err := c.bindNodeFlags(flags); err != nil {
		// flags are registered above, so a failed lookup is a programming error
		panic(err)
	}

	root.AddCommand(newRegistrarCommand(c))
	root.AddCommand(newCountCommand(c))
	root.AddCommand(newDegreesCommand(c))
	return root
}

// addNodeFlags registers a flag for every key cluster.LoadNodeOptions reads
func addNodeFlags(flags *pflag.FlagSet) {
	flags.String("host", "", "hostname to bind to (default 0.0.0.0)")
	flags.Int("port", 0, "port to bind to. Members pick a free port if unset, and the registrar uses --registrar-port.")
	flags.String("registrar-host", "", "hostname of the registrar")
	flags.Int("registrar-port", cluster.DefaultRegistrarPort, "port of the registrar")
	flags.Int("num-nodes", 0, "number of members in the cluster")
	flags.Int("node-id", 0, "node id to ask for when joining. 0 takes the lowest free id.")
	flags.Duration("join-timeout", 30*time.Second, "how long to wait for the rest of the cluster to join")
	flags.Int("join-retries", 5, "how many times to retry connecting to the registrar")
	flags.Duration("rpc-timeout", 5*time.Second, "timeout for unary RPCs")
	flags.Int("blob-buffer-size", 2, "undelivered blobs buffered per sender")
	flags.Int("max-connections", 256, "maximum simultaneous inbound connections")
	flags.Int("partition-cache-size", 16, "partitions fetched from other members which are kept for reuse")
}

// bindNodeFlags lets flags override the environment and config file for each node option
func (c *cli) bindNodeFlags(flags *pflag.FlagSet) error {
	for _, key := range cluster.NodeConfigKeys {
		name := strings.ReplaceAll(key, "_", "-")
		f := flags.Lookup(name)
		if f == nil {
			return fmt.Errorf("no flag for config key %s", key)
		}
		if err := c.v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func (c *cli) setup() error {
	lvl, err := logging.ParseLevel(c.logLevel)
	if err != nil {
		return err
	}
	c.logger = logging.NewLogger(os.Stderr, c.logFormat, lvl)
	if len(c.configFile) > 0 {
		c.v.SetConfigFile(c.configFile)
		if err := c.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}
	c.registry = prometheus.NewRegistry()
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if len(c.metricsAddr) > 0 {
		c.serveMetrics()
	}
	return nil
}

func (c *cli) serveMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry}))
	c.metricsServer = &http.Server{
		Addr:              c.metricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := c.metricsServer
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			level.Error(c.logger).Log("msg", "metrics server stopped", "err", err)
		}
	}()
	level.Info(c.logger).Log("msg", "serving metrics", "address", c.metricsAddr)
}

func (c *cli) close() error {
	if c.metricsServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.metricsServer.Shutdown(ctx)
}

// nodeOptions resolves NodeOptions from flags, environment and config file, in that order of precedence
func (c *cli) nodeOptions() (*cluster.NodeOptions, error) {
	opts, err := cluster.LoadNodeOptions(c.v)
	if err != nil {
		return nil, err
	}
	opts.Logger = c.logger
	if c.registry != nil {
		opts.Registerer = c.registry
	}
	return opts, nil
}
