package shardvault

import (
	"context"
	"time"
)

// ShardRecord is one metadata row per stored shard. A live file always has
// exactly DataShards+ParityShards rows, one per shard index, sharing the same
// OriginalFileSize.
type ShardRecord struct {
	// OwnerID identifies the user the file belongs to.
	OwnerID int64 `json:"owner_id"`
	// OriginalFilename is the user visible name, unique per owner while the file exists.
	OriginalFilename string `json:"original_filename"`
	// ShardName is the globally unique blob key, minted by the Vault at upload time.
	ShardName string `json:"shard_name"`
	// ShardIndex is the logical location in [0, total shards).
	ShardIndex int `json:"shard_index"`
	// ShardSHA256 is the lowercase hex SHA-256 of the padded shard bytes as stored.
	ShardSHA256 string `json:"shard_sha256"`
	// ShardByteSize is the shard length; identical across siblings.
	ShardByteSize int `json:"shard_byte_size"`
	// OriginalFileSize is the pre-encoding file length; identical across siblings.
	OriginalFileSize int64 `json:"original_file_size"`
	// CreatedAt is set on insertion and immutable.
	CreatedAt time.Time `json:"created_at"`
}

// FileSummary is one listing entry per owned file.
type FileSummary struct {
	OriginalFilename string `json:"original_filename"`
	OriginalFileSize int64  `json:"original_file_size"`
	ShardsTotal      int    `json:"shards_total"`
	// ShardsRetrievable is the count of shard indices whose backend existence
	// probe succeeded. Informational; it reflects presence, not digest validity.
	ShardsRetrievable int `json:"shards_retrievable"`
}

// BlobBackend abstracts one logical storage location holding whole shards under
// flat, opaque names. All calls are blocking; the Vault supplies parallelism and
// per-call deadlines through ctx. Backends do no digest verification.
type BlobBackend interface {
	// Put creates or overwrites the blob; the blob is durable on success.
	Put(ctx context.Context, shardName string, ba []byte) error
	// Get returns the exact bytes last successfully written under shardName,
	// or an error wrapping ErrBlobNotFound.
	Get(ctx context.Context, shardName string) ([]byte, error)
	// Exists reports whether a blob is stored under shardName.
	Exists(ctx context.Context, shardName string) (bool, error)
	// Delete removes the blob; deleting a missing blob succeeds.
	Delete(ctx context.Context, shardName string) error
}

// MetadataStore persists ShardRecord rows. Each call is atomic; no transactions
// are exposed.
type MetadataStore interface {
	// InsertShard adds one row, failing on primary key conflict.
	InsertShard(ctx context.Context, record ShardRecord) error
	// FindShards returns all rows of one file sorted ascending by shard index,
	// or an empty slice when the file does not exist.
	FindShards(ctx context.Context, ownerID int64, originalFilename string) ([]ShardRecord, error)
	// ListOwnedFilenames returns one representative row per distinct filename
	// owned by ownerID.
	ListOwnedFilenames(ctx context.Context, ownerID int64) ([]ShardRecord, error)
	// DeleteFile removes all rows of one file. Idempotent.
	DeleteFile(ctx context.Context, ownerID int64, originalFilename string) error
	// DeleteShard removes a single row by its unique shard name. Idempotent.
	DeleteShard(ctx context.Context, ownerID int64, shardName string) error
}

// Cache is the subset of caching operations the Vault and auth layers use.
// The redis subpackage provides the clustered implementation, the mocks package
// an in-memory one.
type Cache interface {
	SetStruct(ctx context.Context, key string, value any, expiration time.Duration) error
	// GetStruct fetches into target, reporting found.
	GetStruct(ctx context.Context, key string, target any) (bool, error)
	Delete(ctx context.Context, keys []string) (bool, error)
	Ping(ctx context.Context) error
}

// TokenResolver turns a bearer token into the authenticated owner identity.
// Token format, signing and expiry are the resolver's concern.
type TokenResolver interface {
	Resolve(ctx context.Context, bearerToken string) (int64, error)
}
