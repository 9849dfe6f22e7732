package cluster

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables LoadNodeOptions reads, e.g. LIQUID_NUM_NODES
const EnvPrefix = "liquid"

type nodeConfig struct {
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	RegistrarHost      string        `mapstructure:"registrar_host"`
	RegistrarPort      int           `mapstructure:"registrar_port"`
	NumNodes           int           `mapstructure:"num_nodes"`
	NodeID             int           `mapstructure:"node_id"`
	JoinTimeout        time.Duration `mapstructure:"join_timeout"`
	JoinRetries        int           `mapstructure:"join_retries"`
	RPCTimeout         time.Duration `mapstructure:"rpc_timeout"`
	BlobBufferSize     int           `mapstructure:"blob_buffer_size"`
	MaxConnections     int           `mapstructure:"max_connections"`
	PartitionCacheSize int           `mapstructure:"partition_cache_size"`
}

// NodeConfigKeys lists the configuration keys LoadNodeOptions understands
var NodeConfigKeys = []string{
	"host",
	"port",
	"registrar_host",
	"registrar_port",
	"num_nodes",
	"node_id",
	"join_timeout",
	"join_retries",
	"rpc_timeout",
	"blob_buffer_size",
	"max_connections",
	"partition_cache_size",
}

// LoadNodeOptions reads NodeOptions from v. Every key may also be supplied as
// an environment variable, e.g. num_nodes as LIQUID_NUM_NODES. Logger and
// Registerer are left unset.
func LoadNodeOptions(v *viper.Viper) (*NodeOptions, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	for _, key := range NodeConfigKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	var cfg nodeConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &NodeOptions{
		Host:               cfg.Host,
		Port:               cfg.Port,
		RegistrarHost:      cfg.RegistrarHost,
		RegistrarPort:      cfg.RegistrarPort,
		NumNodes:           cfg.NumNodes,
		NodeID:             cfg.NodeID,
		JoinTimeout:        cfg.JoinTimeout,
		JoinRetries:        cfg.JoinRetries,
		RPCTimeout:         cfg.RPCTimeout,
		BlobBufferSize:     cfg.BlobBufferSize,
		MaxConnections:     cfg.MaxConnections,
		PartitionCacheSize: cfg.PartitionCacheSize,
	}, nil
}
