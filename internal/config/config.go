// Package config defines all configuration structures for the
// fragment-network-merges pipeline.  No I/O or parsing logic lives here —
// only plain data types and validation.
package config

import (
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// Neo4jConfig holds fragment-network (Neo4j) connection parameters.
type Neo4jConfig struct {
	URI                   string        `mapstructure:"uri"`
	User                  string        `mapstructure:"user"`
	Password              string        `mapstructure:"password"`
	Database              string        `mapstructure:"database"`
	MaxConnectionPoolSize int           `mapstructure:"max_connection_pool_size"`
	ConnectionTimeout     time.Duration `mapstructure:"connection_timeout"`
}

// DatabaseConfig holds PostgreSQL connection parameters for the filter-result
// store.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig holds Redis connection parameters for the expansion query cache.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds parameters for the placement-handoff producer.
type KafkaConfig struct {
	Brokers         []string      `mapstructure:"brokers"`
	PlacementTopic  string        `mapstructure:"placement_topic"`
	ProducerRetries int           `mapstructure:"producer_retries"`
	BatchTimeout    time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
}

// MinIOConfig holds MinIO / S3-compatible object-storage parameters for
// expansion and filter-result artifacts.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// PathsConfig holds filesystem locations for structure file inputs and local
// artifacts.  FragmentDataDir follows the Fragalysis layout:
// <dir>/<target>/aligned/<target>-<fragment>/... with .mol ligand and
// _apo.pdb receptor files.
type PathsConfig struct {
	FragmentDataDir string `mapstructure:"fragment_data_dir"`
	OutputDir       string `mapstructure:"output_dir"`
	WorkingDir      string `mapstructure:"working_dir"`
}

// WorkerConfig holds batch-execution parameters.
type WorkerConfig struct {
	// Concurrency bounds the number of candidates filtered in parallel.
	Concurrency int `mapstructure:"concurrency"`
	// HealthPort is the port for the /healthz and /metrics endpoints of the
	// long-running filter worker.
	HealthPort int `mapstructure:"health_port"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level            string   `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format           string   `mapstructure:"format"` // "json" | "console"
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// ─────────────────────────────────────────────────────────────────────────────
// MergeConfig — the immutable core parameter set
// ─────────────────────────────────────────────────────────────────────────────

// MergeConfig is the explicit, immutable parameter value passed to every core
// component at construction.  Each field replaces a dynamic lookup that used
// to happen against a mutable settings object.
type MergeConfig struct {
	// MaxHops bounds the neighbourhood expansion query.
	MaxHops int `mapstructure:"max_hops"`
	// MinHeavyAtoms is the minimum heavy-atom count for expansion candidates.
	MinHeavyAtoms int `mapstructure:"min_heavy_atoms"`
	// ClashDistance is the inter-atom distance (Å) below which two atoms from
	// different substructures are considered clashing.
	ClashDistance float64 `mapstructure:"clash_distance"`
	// EnergyRatioThreshold rejects a constrained embedding whose force-field
	// energy exceeds this multiple of the unconstrained baseline.
	EnergyRatioThreshold float64 `mapstructure:"energy_ratio_threshold"`
	// EmbeddingSeed fixes the pseudo-random stream used by the constrained
	// embedder so that repeated runs are reproducible.
	EmbeddingSeed int64 `mapstructure:"embedding_seed"`
	// BaselineConformers is the number of unconstrained conformations averaged
	// into the baseline energy.
	BaselineConformers int `mapstructure:"baseline_conformers"`
	// ProteinClashProportion is the fraction of candidate atoms allowed to
	// clash with receptor atoms before the overlap stage rejects the pose.
	ProteinClashProportion float64 `mapstructure:"protein_clash_proportion"`
	// Descriptor gate limits (Lipinski-style).
	MaxMolecularWeight float64 `mapstructure:"max_molecular_weight"`
	MaxRotatableBonds  int     `mapstructure:"max_rotatable_bonds"`
	MaxRingSize        int     `mapstructure:"max_ring_size"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure for the pipeline.  Every
// infrastructure component and application service reads its settings from
// the relevant sub-struct.
type Config struct {
	Neo4j    Neo4jConfig    `mapstructure:"neo4j"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Paths    PathsConfig    `mapstructure:"paths"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Log      LogConfig      `mapstructure:"log"`
	Merge    MergeConfig    `mapstructure:"merge"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered; callers should treat any error as
// fatal and refuse to start the application.
func (c *Config) Validate() error {
	// Neo4j
	if c.Neo4j.URI == "" {
		return fmt.Errorf("config: neo4j.uri is required")
	}

	// Worker
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("config: worker.concurrency must be ≥ 1, got %d", c.Worker.Concurrency)
	}

	// Merge
	if c.Merge.MaxHops < 1 {
		return fmt.Errorf("config: merge.max_hops must be ≥ 1, got %d", c.Merge.MaxHops)
	}
	if c.Merge.MinHeavyAtoms < 0 {
		return fmt.Errorf("config: merge.min_heavy_atoms must be ≥ 0, got %d", c.Merge.MinHeavyAtoms)
	}
	if c.Merge.ClashDistance <= 0 {
		return fmt.Errorf("config: merge.clash_distance must be > 0, got %g", c.Merge.ClashDistance)
	}
	if c.Merge.EnergyRatioThreshold <= 0 {
		return fmt.Errorf("config: merge.energy_ratio_threshold must be > 0, got %g", c.Merge.EnergyRatioThreshold)
	}
	if c.Merge.BaselineConformers < 1 {
		return fmt.Errorf("config: merge.baseline_conformers must be ≥ 1, got %d", c.Merge.BaselineConformers)
	}
	if c.Merge.ProteinClashProportion <= 0 || c.Merge.ProteinClashProportion > 1 {
		return fmt.Errorf("config: merge.protein_clash_proportion must be in (0, 1], got %g",
			c.Merge.ProteinClashProportion)
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}
