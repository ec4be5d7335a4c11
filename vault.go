package shardvault

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	log "log/slog"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/sharedcode/shardvault/erasure"
)

// Vault drives sharded uploads and self-healing retrievals across the
// configured backend locations. Backend handles, the metadata store and the
// codec are immutable after construction; Vault methods are safe for
// concurrent use by different files. Concurrent operations on the same
// (owner, filename) follow the rules in the method comments.
type Vault struct {
	config   Config
	backends []BlobBackend
	meta     MetadataStore
	cache    Cache
	codec    *erasure.Codec
	// Global bound on concurrent in-flight file operations.
	inflight *semaphore.Weighted
}

// NewVault wires a Vault from its collaborators. backends must have exactly
// one entry per shard index, in logical location order. cache is optional;
// when nil, every metadata read goes to the store.
func NewVault(config Config, backends []BlobBackend, meta MetadataStore, cache Cache) (*Vault, error) {
	config.applyDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}
	if len(backends) != config.TotalShardsCount() {
		return nil, fmt.Errorf("backends count %d should match the sum of data & parity shards count %d",
			len(backends), config.TotalShardsCount())
	}
	if meta == nil {
		return nil, fmt.Errorf("meta parameter can't be nil")
	}
	codec, err := erasure.NewCodec(config.DataShardsCount, config.ParityShardsCount)
	if err != nil {
		return nil, err
	}
	return &Vault{
		config:   config,
		backends: backends,
		meta:     meta,
		cache:    cache,
		codec:    codec,
		inflight: semaphore.NewWeighted(config.MaxInflightOperations),
	}, nil
}

// Upload erasure encodes payload and stores one shard per backend location,
// inserting a metadata row per shard. On success all rows and blobs are
// durable. Any failure triggers best-effort compensating deletes of whatever
// this attempt created, then surfaces as UploadFailed. A live file under the
// same name fails with AlreadyExists; a concurrent duplicate upload loses on
// the metadata primary key and cleans up only its own rows and blobs.
func (v *Vault) Upload(ctx context.Context, ownerID int64, originalFilename string, payload []byte) error {
	if originalFilename == "" {
		return Error{Code: UploadFailed, Err: fmt.Errorf("filename can't be empty")}
	}
	if err := v.inflight.Acquire(ctx, 1); err != nil {
		return err
	}
	defer v.inflight.Release(1)

	existing, err := v.meta.FindShards(ctx, ownerID, originalFilename)
	if err != nil {
		return Error{Code: Internal, Err: err}
	}
	if len(existing) > 0 {
		return Error{Code: AlreadyExists, Err: fmt.Errorf("file %s already exists", originalFilename), UserData: originalFilename}
	}

	shards, err := v.codec.Encode(payload)
	if err != nil {
		return Error{Code: Internal, Err: err}
	}

	total := v.config.TotalShardsCount()
	records := make([]ShardRecord, total)
	for i := range records {
		records[i] = ShardRecord{
			OwnerID:          ownerID,
			OriginalFilename: originalFilename,
			ShardName:        v.mintShardName(originalFilename, i),
			ShardIndex:       i,
			ShardSHA256:      digestOf(shards[i]),
			ShardByteSize:    len(shards[i]),
			OriginalFileSize: int64(len(payload)),
		}
	}

	// Each task owns its index only, so the settled arrays need no lock.
	inserted := make([]bool, total)
	uploaded := make([]bool, total)
	tr := NewTaskRunner(ctx, v.config.WorkerPoolSize)
	for i := range records {
		shardIndex := i
		tr.Go(func() error {
			callCtx, cancel := context.WithTimeout(tr.GetContext(), v.config.PerCallTimeout)
			defer cancel()
			if err := v.meta.InsertShard(callCtx, records[shardIndex]); err != nil {
				return fmt.Errorf("inserting metadata for shard %d failed: %w", shardIndex, err)
			}
			inserted[shardIndex] = true
			if err := v.backends[shardIndex].Put(callCtx, records[shardIndex].ShardName, shards[shardIndex]); err != nil {
				return fmt.Errorf("uploading shard %d failed: %w", shardIndex, err)
			}
			uploaded[shardIndex] = true
			return nil
		})
	}
	if err := tr.Wait(); err != nil {
		v.compensateUpload(ownerID, records, inserted, uploaded)
		return Error{Code: UploadFailed, Err: err, UserData: originalFilename}
	}
	v.invalidateShardsCache(ctx, ownerID, originalFilename)
	return nil
}

// compensateUpload undoes the partial effects of a failed upload: rows and
// blobs this attempt created are removed so the file returns to absent.
// Runs on fresh contexts since the operation context may already be canceled;
// each delete gets its own deadline so a slow one cannot starve the rest.
func (v *Vault) compensateUpload(ownerID int64, records []ShardRecord, inserted []bool, uploaded []bool) {
	for i := range records {
		if inserted[i] {
			ctx, cancel := context.WithTimeout(context.Background(), v.config.PerCallTimeout)
			if err := v.meta.DeleteShard(ctx, ownerID, records[i].ShardName); err != nil {
				log.Warn(fmt.Sprintf("compensating metadata delete of shard %s failed, details: %v", records[i].ShardName, err))
			}
			cancel()
		}
		if uploaded[i] {
			ctx, cancel := context.WithTimeout(context.Background(), v.config.PerCallTimeout)
			if err := v.backends[i].Delete(ctx, records[i].ShardName); err != nil {
				log.Warn(fmt.Sprintf("compensating blob delete of shard %s failed, details: %v", records[i].ShardName, err))
			}
			cancel()
		}
	}
}

// Retrieve reconstructs the file from the surviving shards. Shards that are
// missing, unreadable or whose digest mismatches their metadata row are
// treated as absent; as long as enough remain, the read succeeds and the
// damaged shards are re-encoded, re-uploaded under fresh names and their
// metadata rows replaced. Self-heal failures never fail the read, they are
// logged and retried on the next access.
func (v *Vault) Retrieve(ctx context.Context, ownerID int64, originalFilename string) ([]byte, error) {
	if err := v.inflight.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer v.inflight.Release(1)

	records, err := v.findShards(ctx, ownerID, originalFilename)
	if err != nil {
		return nil, Error{Code: Internal, Err: err}
	}
	if len(records) == 0 {
		return nil, Error{Code: NotFound, Err: fmt.Errorf("file %s not found", originalFilename), UserData: originalFilename}
	}
	if len(records) != v.config.TotalShardsCount() {
		return nil, Error{Code: Internal,
			Err: fmt.Errorf("file %s has %d shard rows, want %d", originalFilename, len(records), v.config.TotalShardsCount())}
	}
	originalFileSize := records[0].OriginalFileSize

	// Fan out the downloads. A failed or digest-mismatched download leaves its
	// slot nil; if there are enough shards to reconstruct, the read still works.
	shards := make([][]byte, len(records))
	tr := NewTaskRunner(ctx, v.config.WorkerPoolSize)
	for i := range records {
		shardIndex := i
		tr.Go(func() error {
			callCtx, cancel := context.WithTimeout(tr.GetContext(), v.config.PerCallTimeout)
			defer cancel()
			ba, err := v.backends[shardIndex].Get(callCtx, records[shardIndex].ShardName)
			if err != nil {
				log.Warn(fmt.Sprintf("failed reading shard %s, details: %v", records[shardIndex].ShardName, err))
				return nil
			}
			if digestOf(ba) != records[shardIndex].ShardSHA256 {
				log.Warn(fmt.Sprintf("digest mismatch on shard %s, treating as absent", records[shardIndex].ShardName))
				return nil
			}
			if ba == nil {
				// A present zero length shard (empty file) must stay distinguishable from an absent slot.
				ba = []byte{}
			}
			shards[shardIndex] = ba
			return nil
		})
	}
	if err := tr.Wait(); err != nil {
		return nil, Error{Code: Internal, Err: err}
	}

	presentCount := 0
	for i := range shards {
		if shards[i] != nil {
			presentCount++
		}
	}
	if presentCount < v.config.DataShardsCount {
		return nil, Error{Code: Unrecoverable,
			Err:      fmt.Errorf("only %d of %d shards of file %s are readable", presentCount, len(shards), originalFilename),
			UserData: originalFilename}
	}

	dr, err := v.codec.Decode(shards, originalFileSize)
	if err != nil {
		if errors.Is(err, erasure.ErrInsufficientShards) {
			return nil, Error{Code: Unrecoverable, Err: err, UserData: originalFilename}
		}
		return nil, Error{Code: Internal, Err: err}
	}

	if len(dr.ReconstructedShardsIndices) > 0 {
		v.heal(ctx, records, dr.DecodedData, dr.ReconstructedShardsIndices)
	}
	return dr.DecodedData, nil
}

// heal rewrites the shards that were absent or corrupted during a retrieval.
// The canonical shards are re-derived from the reconstructed file; each damaged
// index gets a fresh shard name, a replacement metadata row and a blob rewrite.
// Damaged shards are typically few, residing on a location that failed, so
// sequential processing is fine here.
func (v *Vault) heal(ctx context.Context, records []ShardRecord, reconstructedFile []byte, damagedIndices []int) {
	shards, err := v.codec.Encode(reconstructedFile)
	if err != nil {
		log.Warn(fmt.Sprintf("re-encoding file %s for shard repair failed, details: %v", records[0].OriginalFilename, err))
		return
	}
	healed := false
	for _, i := range damagedIndices {
		old := records[i]
		replacement := ShardRecord{
			OwnerID:          old.OwnerID,
			OriginalFilename: old.OriginalFilename,
			ShardName:        v.mintShardName(old.OriginalFilename, i),
			ShardIndex:       i,
			ShardSHA256:      digestOf(shards[i]),
			ShardByteSize:    len(shards[i]),
			OriginalFileSize: old.OriginalFileSize,
		}
		callCtx, cancel := context.WithTimeout(ctx, v.config.PerCallTimeout)
		log.Debug(fmt.Sprintf("repairing shard %d of file %s", i, old.OriginalFilename))
		// Tolerates the old row being already gone, e.g. healed by a concurrent read.
		if err := v.meta.DeleteShard(callCtx, old.OwnerID, old.ShardName); err != nil {
			log.Warn(fmt.Sprintf("removing stale row of shard %s failed, details: %v", old.ShardName, err))
			cancel()
			continue
		}
		if err := v.meta.InsertShard(callCtx, replacement); err != nil {
			log.Warn(fmt.Sprintf("inserting replacement row of shard %s failed, details: %v", replacement.ShardName, err))
			cancel()
			continue
		}
		if err := v.backends[i].Put(callCtx, replacement.ShardName, shards[i]); err != nil {
			log.Warn(fmt.Sprintf("rewriting shard %s failed, details: %v", replacement.ShardName, err))
			cancel()
			continue
		}
		cancel()
		healed = true
	}
	if healed {
		v.invalidateShardsCache(ctx, records[0].OwnerID, records[0].OriginalFilename)
	}
}

// List returns one summary per owned file. ShardsRetrievable counts the shard
// indices whose backend existence probe succeeds; probes run in parallel across
// shards and files.
func (v *Vault) List(ctx context.Context, ownerID int64) ([]FileSummary, error) {
	if err := v.inflight.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer v.inflight.Release(1)

	representatives, err := v.meta.ListOwnedFilenames(ctx, ownerID)
	if err != nil {
		return nil, Error{Code: Internal, Err: err}
	}
	summaries := make([]FileSummary, len(representatives))
	retrievable := make([]int32, len(representatives))

	tr := NewTaskRunner(ctx, v.config.WorkerPoolSize)
	var findErr error
	for fi := range representatives {
		fileIndex := fi
		summaries[fileIndex] = FileSummary{
			OriginalFilename: representatives[fileIndex].OriginalFilename,
			OriginalFileSize: representatives[fileIndex].OriginalFileSize,
			ShardsTotal:      v.config.TotalShardsCount(),
		}
		records, err := v.findShards(ctx, ownerID, representatives[fileIndex].OriginalFilename)
		if err != nil {
			// Join the probes already in flight before surfacing the failure, so
			// none of them outlives the call or writes into retrievable after it.
			findErr = err
			break
		}
		for i := range records {
			record := records[i]
			tr.Go(func() error {
				callCtx, cancel := context.WithTimeout(tr.GetContext(), v.config.PerCallTimeout)
				defer cancel()
				found, err := v.backends[record.ShardIndex].Exists(callCtx, record.ShardName)
				if err != nil {
					log.Warn(fmt.Sprintf("existence probe of shard %s failed, details: %v", record.ShardName, err))
					return nil
				}
				if found {
					atomic.AddInt32(&retrievable[fileIndex], 1)
				}
				return nil
			})
		}
	}
	if err := tr.Wait(); err != nil {
		return nil, Error{Code: Internal, Err: err}
	}
	if findErr != nil {
		return nil, Error{Code: Internal, Err: findErr}
	}
	for i := range summaries {
		summaries[i].ShardsRetrievable = int(atomic.LoadInt32(&retrievable[i]))
	}
	sort.Slice(summaries, func(a, b int) bool {
		return summaries[a].OriginalFilename < summaries[b].OriginalFilename
	})
	return summaries, nil
}

// Delete removes the file. Metadata rows go first; once they are gone the file
// is absent from the user's perspective and a concurrent retrieval sees
// NotFound even while blobs linger. Blob removal is best effort; failures are
// logged for janitorial cleanup and never surfaced. Idempotent.
func (v *Vault) Delete(ctx context.Context, ownerID int64, originalFilename string) error {
	if err := v.inflight.Acquire(ctx, 1); err != nil {
		return err
	}
	defer v.inflight.Release(1)

	records, err := v.meta.FindShards(ctx, ownerID, originalFilename)
	if err != nil {
		return Error{Code: Internal, Err: err}
	}
	if err := v.meta.DeleteFile(ctx, ownerID, originalFilename); err != nil {
		return Error{Code: Internal, Err: err}
	}
	v.invalidateShardsCache(ctx, ownerID, originalFilename)

	tr := NewTaskRunner(ctx, v.config.WorkerPoolSize)
	for i := range records {
		record := records[i]
		tr.Go(func() error {
			callCtx, cancel := context.WithTimeout(tr.GetContext(), v.config.PerCallTimeout)
			defer cancel()
			if err := v.backends[record.ShardIndex].Delete(callCtx, record.ShardName); err != nil {
				log.Warn(fmt.Sprintf("deleting blob of shard %s failed, details: %v", record.ShardName, err))
			}
			return nil
		})
	}
	if err := tr.Wait(); err != nil {
		log.Warn(fmt.Sprintf("deleting blobs of file %s did not fully complete, details: %v", originalFilename, err))
	}
	return nil
}

// findShards reads the shard rows of one file, through the cache when one is
// configured. Healed rows invalidate the cached entry, so a stale hit at worst
// triggers a redundant heal on the next read.
func (v *Vault) findShards(ctx context.Context, ownerID int64, originalFilename string) ([]ShardRecord, error) {
	if v.cache == nil {
		return v.meta.FindShards(ctx, ownerID, originalFilename)
	}
	key := formatShardsCacheKey(ownerID, originalFilename)
	var cached []ShardRecord
	if found, err := v.cache.GetStruct(ctx, key, &cached); err == nil && found && len(cached) > 0 {
		return cached, nil
	}
	records, err := v.meta.FindShards(ctx, ownerID, originalFilename)
	if err != nil {
		return nil, err
	}
	if len(records) > 0 {
		if err := v.cache.SetStruct(ctx, key, records, v.config.MetadataCacheDuration); err != nil {
			log.Warn(fmt.Sprintf("caching shard rows for key %s failed, details: %v", key, err))
		}
	}
	return records, nil
}

func (v *Vault) invalidateShardsCache(ctx context.Context, ownerID int64, originalFilename string) {
	if v.cache == nil {
		return
	}
	key := formatShardsCacheKey(ownerID, originalFilename)
	if _, err := v.cache.Delete(ctx, []string{key}); err != nil {
		log.Warn(fmt.Sprintf("evicting cached shard rows for key %s failed, details: %v", key, err))
	}
}

func formatShardsCacheKey(ownerID int64, originalFilename string) string {
	return fmt.Sprintf("sv/shards/%d/%s", ownerID, originalFilename)
}

// mintShardName produces a fresh, globally unique blob key. Names are never
// taken from user input; uniqueness comes from the random suffix.
func (v *Vault) mintShardName(originalFilename string, shardIndex int) string {
	return fmt.Sprintf("%s.%d.%s", originalFilename, shardIndex, NewUUID().String()[:8])
}

func digestOf(ba []byte) string {
	sum := sha256.Sum256(ba)
	return hex.EncodeToString(sum[:])
}
