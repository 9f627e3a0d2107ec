package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Defaults
// ─────────────────────────────────────────────────────────────────────────────

// ApplyDefaults fills zero-valued fields with sensible defaults so that a
// minimal configuration file (or none at all) still produces a runnable
// pipeline against a local stack.
func (c *Config) ApplyDefaults() {
	// Neo4j
	if c.Neo4j.URI == "" {
		c.Neo4j.URI = "neo4j://localhost:7687"
	}
	if c.Neo4j.User == "" {
		c.Neo4j.User = "neo4j"
	}
	if c.Neo4j.Database == "" {
		c.Neo4j.Database = "neo4j"
	}
	if c.Neo4j.MaxConnectionPoolSize == 0 {
		c.Neo4j.MaxConnectionPoolSize = 50
	}
	if c.Neo4j.ConnectionTimeout == 0 {
		c.Neo4j.ConnectionTimeout = 30 * time.Second
	}

	// Database
	if c.Database.Host == "" {
		c.Database.Host = "localhost"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.User == "" {
		c.Database.User = "fnm"
	}
	if c.Database.DBName == "" {
		c.Database.DBName = "fnm"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = 10
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 30 * time.Minute
	}

	// Redis
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = 5 * time.Second
	}
	if c.Redis.ReadTimeout == 0 {
		c.Redis.ReadTimeout = 3 * time.Second
	}
	if c.Redis.WriteTimeout == 0 {
		c.Redis.WriteTimeout = 3 * time.Second
	}
	if c.Redis.DefaultTTL == 0 {
		c.Redis.DefaultTTL = 24 * time.Hour
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "fnm"
	}

	// Kafka
	if len(c.Kafka.Brokers) == 0 {
		c.Kafka.Brokers = []string{"localhost:9092"}
	}
	if c.Kafka.PlacementTopic == "" {
		c.Kafka.PlacementTopic = "fnm.placement.candidates"
	}
	if c.Kafka.ProducerRetries == 0 {
		c.Kafka.ProducerRetries = 3
	}
	if c.Kafka.BatchTimeout == 0 {
		c.Kafka.BatchTimeout = 100 * time.Millisecond
	}
	if c.Kafka.WriteTimeout == 0 {
		c.Kafka.WriteTimeout = 10 * time.Second
	}

	// MinIO
	if c.MinIO.Endpoint == "" {
		c.MinIO.Endpoint = "localhost:9000"
	}
	if c.MinIO.Bucket == "" {
		c.MinIO.Bucket = "fnm-artifacts"
	}

	// Paths
	if c.Paths.FragmentDataDir == "" {
		c.Paths.FragmentDataDir = "./data"
	}
	if c.Paths.OutputDir == "" {
		c.Paths.OutputDir = "./output"
	}
	if c.Paths.WorkingDir == "" {
		c.Paths.WorkingDir = "./work"
	}

	// Worker
	if c.Worker.Concurrency == 0 {
		c.Worker.Concurrency = 4
	}
	if c.Worker.HealthPort == 0 {
		c.Worker.HealthPort = 8091
	}

	// Log
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if len(c.Log.OutputPaths) == 0 {
		c.Log.OutputPaths = []string{"stdout"}
	}
	if len(c.Log.ErrorOutputPaths) == 0 {
		c.Log.ErrorOutputPaths = []string{"stderr"}
	}

	// Merge parameters.  These defaults reproduce the reference pipeline
	// behaviour exactly; change them only with benchmark evidence.
	if c.Merge.MaxHops == 0 {
		c.Merge.MaxHops = 2
	}
	if c.Merge.MinHeavyAtoms == 0 {
		c.Merge.MinHeavyAtoms = 15
	}
	if c.Merge.ClashDistance == 0 {
		c.Merge.ClashDistance = 0.5
	}
	if c.Merge.EnergyRatioThreshold == 0 {
		c.Merge.EnergyRatioThreshold = 10
	}
	if c.Merge.EmbeddingSeed == 0 {
		c.Merge.EmbeddingSeed = 42
	}
	if c.Merge.BaselineConformers == 0 {
		c.Merge.BaselineConformers = 10
	}
	if c.Merge.ProteinClashProportion == 0 {
		c.Merge.ProteinClashProportion = 0.15
	}
	if c.Merge.MaxMolecularWeight == 0 {
		c.Merge.MaxMolecularWeight = 600
	}
	if c.Merge.MaxRotatableBonds == 0 {
		c.Merge.MaxRotatableBonds = 12
	}
	if c.Merge.MaxRingSize == 0 {
		c.Merge.MaxRingSize = 8
	}
}

// DefaultMergeConfig returns the standalone merge parameter set used by tests
// and by library consumers that bypass file-based configuration.
func DefaultMergeConfig() MergeConfig {
	var c Config
	c.ApplyDefaults()
	return c.Merge
}
