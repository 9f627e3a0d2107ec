package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	var c Config
	c.ApplyDefaults()
	return &c
}

func TestApplyDefaults(t *testing.T) {
	var c Config
	c.ApplyDefaults()

	assert.Equal(t, "neo4j://localhost:7687", c.Neo4j.URI)
	assert.Equal(t, "neo4j", c.Neo4j.User)
	assert.Equal(t, 50, c.Neo4j.MaxConnectionPoolSize)
	assert.Equal(t, 5432, c.Database.Port)
	assert.Equal(t, "localhost:6379", c.Redis.Addr)
	assert.Equal(t, 24*time.Hour, c.Redis.DefaultTTL)
	assert.Equal(t, []string{"localhost:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "fnm.placement.candidates", c.Kafka.PlacementTopic)
	assert.Equal(t, "fnm-artifacts", c.MinIO.Bucket)
	assert.Equal(t, 4, c.Worker.Concurrency)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, "json", c.Log.Format)
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	c := Config{
		Neo4j:  Neo4jConfig{URI: "neo4j://graph.internal:7687"},
		Worker: WorkerConfig{Concurrency: 16},
		Merge:  MergeConfig{ClashDistance: 0.75},
	}
	c.ApplyDefaults()

	assert.Equal(t, "neo4j://graph.internal:7687", c.Neo4j.URI)
	assert.Equal(t, 16, c.Worker.Concurrency)
	assert.Equal(t, 0.75, c.Merge.ClashDistance)
	// Unset siblings still get defaults.
	assert.Equal(t, 2, c.Merge.MaxHops)
	assert.Equal(t, int64(42), c.Merge.EmbeddingSeed)
}

func TestDefaultMergeConfig(t *testing.T) {
	m := DefaultMergeConfig()

	assert.Equal(t, 2, m.MaxHops)
	assert.Equal(t, 15, m.MinHeavyAtoms)
	assert.Equal(t, 0.5, m.ClashDistance)
	assert.Equal(t, 10.0, m.EnergyRatioThreshold)
	assert.Equal(t, int64(42), m.EmbeddingSeed)
	assert.Equal(t, 10, m.BaselineConformers)
	assert.Equal(t, 0.15, m.ProteinClashProportion)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults pass",
			mutate: func(*Config) {},
		},
		{
			name:    "missing neo4j uri",
			mutate:  func(c *Config) { c.Neo4j.URI = "" },
			wantErr: "neo4j.uri",
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.Worker.Concurrency = 0 },
			wantErr: "worker.concurrency",
		},
		{
			name:    "negative clash distance",
			mutate:  func(c *Config) { c.Merge.ClashDistance = -1 },
			wantErr: "clash_distance",
		},
		{
			name:    "zero energy ratio",
			mutate:  func(c *Config) { c.Merge.EnergyRatioThreshold = 0 },
			wantErr: "energy_ratio_threshold",
		},
		{
			name:    "clash proportion above one",
			mutate:  func(c *Config) { c.Merge.ProteinClashProportion = 1.5 },
			wantErr: "protein_clash_proportion",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Log.Level = "verbose" },
			wantErr: "log.level",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: "log.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_FromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
neo4j:
  uri: neo4j://fragnet:7687
  user: reader
  password: secret
worker:
  concurrency: 8
merge:
  clash_distance: 0.6
  min_heavy_atoms: 18
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "neo4j://fragnet:7687", cfg.Neo4j.URI)
	assert.Equal(t, "reader", cfg.Neo4j.User)
	assert.Equal(t, 8, cfg.Worker.Concurrency)
	assert.Equal(t, 0.6, cfg.Merge.ClashDistance)
	assert.Equal(t, 18, cfg.Merge.MinHeavyAtoms)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults fill the rest.
	assert.Equal(t, 2, cfg.Merge.MaxHops)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FNM_NEO4J_URI", "neo4j://env-host:7687")
	t.Setenv("FNM_WORKER_CONCURRENCY", "12")
	t.Setenv("FNM_MERGE_MAX_HOPS", "3")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "neo4j://env-host:7687", cfg.Neo4j.URI)
	assert.Equal(t, 12, cfg.Worker.Concurrency)
	assert.Equal(t, 3, cfg.Merge.MaxHops)
}

func TestMustLoad_PanicsOnError(t *testing.T) {
	assert.Panics(t, func() {
		MustLoad(filepath.Join(t.TempDir(), "missing.yaml"))
	})
}
