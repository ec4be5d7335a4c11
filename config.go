package shardvault

import (
	"fmt"
	"time"
)

// BackendKind selects the blob backend implementation for one location.
type BackendKind string

const (
	// FileSystemBackend stores shards as files under a base folder, typically
	// one folder per physical drive.
	FileSystemBackend BackendKind = "fs"
	// S3Backend stores shards as objects in an S3 compatible bucket.
	S3Backend BackendKind = "s3"
)

// BackendLocation describes one logical storage location. The position in
// Config.BackendLocations is the shard index the location serves; the mapping
// is fixed at startup.
type BackendLocation struct {
	Kind BackendKind `json:"kind"`
	// BaseFolderPath is the drive folder for fs locations.
	BaseFolderPath string `json:"base_folder_path,omitempty"`
	// Bucket names the S3 bucket for s3 locations.
	Bucket string `json:"bucket,omitempty"`
	// HostEndpointUrl, e.g. "http://127.0.0.1:9000" for a minio server.
	HostEndpointUrl string `json:"host_endpoint_url,omitempty"`
	Region          string `json:"region,omitempty"`
	Username        string `json:"username,omitempty"`
	Password        string `json:"password,omitempty"`
}

// Config carries the Vault tunables. Zero fields assume the defaults below.
type Config struct {
	// DataShardsCount is the number of data shards, default 4.
	DataShardsCount int `json:"data_shards_count"`
	// ParityShardsCount is the number of parity shards, default 2.
	ParityShardsCount int `json:"parity_shards_count"`
	// BackendLocations lists exactly DataShardsCount+ParityShardsCount
	// locations; order defines the shard index to backend mapping.
	BackendLocations []BackendLocation `json:"backend_locations"`
	// WorkerPoolSize bounds the fan-out workers of one file operation,
	// default the total shard count.
	WorkerPoolSize int `json:"worker_pool_size"`
	// PerCallTimeout bounds each backend call, default 30s.
	PerCallTimeout time.Duration `json:"per_call_timeout"`
	// MaxInflightOperations globally bounds concurrent file operations,
	// default 64.
	MaxInflightOperations int64 `json:"max_inflight_operations"`
	// MetadataCacheDuration is the TTL of cached shard metadata lookups,
	// default 5m. Only used when a Cache is supplied.
	MetadataCacheDuration time.Duration `json:"metadata_cache_duration"`
}

const (
	defaultDataShardsCount   = 4
	defaultParityShardsCount = 2
	defaultPerCallTimeout    = 30 * time.Second
	defaultMaxInflightOps    = 64
	defaultMetadataCacheTTL  = 5 * time.Minute
)

// DefaultConfig returns a Config with the v1 defaults (4 data + 2 parity shards)
// and no backend locations assigned yet.
func DefaultConfig() Config {
	return Config{
		DataShardsCount:       defaultDataShardsCount,
		ParityShardsCount:     defaultParityShardsCount,
		WorkerPoolSize:        defaultDataShardsCount + defaultParityShardsCount,
		PerCallTimeout:        defaultPerCallTimeout,
		MaxInflightOperations: defaultMaxInflightOps,
		MetadataCacheDuration: defaultMetadataCacheTTL,
	}
}

func (c *Config) applyDefaults() {
	if c.DataShardsCount <= 0 {
		c.DataShardsCount = defaultDataShardsCount
	}
	if c.ParityShardsCount <= 0 {
		c.ParityShardsCount = defaultParityShardsCount
	}
	if c.WorkerPoolSize <= 0 {
		c.WorkerPoolSize = c.DataShardsCount + c.ParityShardsCount
	}
	if c.PerCallTimeout <= 0 {
		c.PerCallTimeout = defaultPerCallTimeout
	}
	if c.MaxInflightOperations <= 0 {
		c.MaxInflightOperations = defaultMaxInflightOps
	}
	if c.MetadataCacheDuration <= 0 {
		c.MetadataCacheDuration = defaultMetadataCacheTTL
	}
}

// TotalShardsCount is the sum of data and parity shard counts.
func (c Config) TotalShardsCount() int {
	return c.DataShardsCount + c.ParityShardsCount
}

func (c Config) validate() error {
	if c.DataShardsCount+c.ParityShardsCount > 256 {
		return fmt.Errorf("sum of data and parity shards cannot exceed 256")
	}
	return nil
}
