package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sharedcode/shardvault"
)

// MetadataStore is an in-memory shardvault.MetadataStore enforcing the same
// uniqueness rules as the Cassandra implementation. FailInsertAtIndex injects a
// failure for one shard index to exercise compensating cleanup paths.
type MetadataStore struct {
	mu   sync.Mutex
	rows map[string]shardvault.ShardRecord

	// FailInsertAtIndex makes InsertShard fail for this shard index; -1 disables.
	FailInsertAtIndex int
}

// NewMetadataStore instantiates a new (mocked) metadata store.
func NewMetadataStore() *MetadataStore {
	return &MetadataStore{
		rows:              make(map[string]shardvault.ShardRecord),
		FailInsertAtIndex: -1,
	}
}

func rowKey(ownerID int64, originalFilename string, shardIndex int) string {
	return fmt.Sprintf("%d|%s|%d", ownerID, originalFilename, shardIndex)
}

func (m *MetadataStore) InsertShard(ctx context.Context, record shardvault.ShardRecord) error {
	if m.FailInsertAtIndex == record.ShardIndex {
		return fmt.Errorf("injected insert failure at shard index %d", record.ShardIndex)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := rowKey(record.OwnerID, record.OriginalFilename, record.ShardIndex)
	if _, ok := m.rows[key]; ok {
		return fmt.Errorf("shard row %s already exists", key)
	}
	for _, row := range m.rows {
		if row.ShardName == record.ShardName {
			return fmt.Errorf("shard name %s already exists", record.ShardName)
		}
	}
	record.CreatedAt = time.Now()
	m.rows[key] = record
	return nil
}

func (m *MetadataStore) FindShards(ctx context.Context, ownerID int64, originalFilename string) ([]shardvault.ShardRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := make([]shardvault.ShardRecord, 0, 8)
	for _, row := range m.rows {
		if row.OwnerID == ownerID && row.OriginalFilename == originalFilename {
			r = append(r, row)
		}
	}
	sort.Slice(r, func(a, b int) bool {
		return r[a].ShardIndex < r[b].ShardIndex
	})
	return r, nil
}

func (m *MetadataStore) ListOwnedFilenames(ctx context.Context, ownerID int64) ([]shardvault.ShardRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]shardvault.ShardRecord)
	for _, row := range m.rows {
		if row.OwnerID != ownerID {
			continue
		}
		if current, ok := seen[row.OriginalFilename]; !ok || row.ShardIndex < current.ShardIndex {
			seen[row.OriginalFilename] = row
		}
	}
	r := make([]shardvault.ShardRecord, 0, len(seen))
	for _, row := range seen {
		r = append(r, row)
	}
	sort.Slice(r, func(a, b int) bool {
		return r[a].OriginalFilename < r[b].OriginalFilename
	})
	return r, nil
}

func (m *MetadataStore) DeleteFile(ctx context.Context, ownerID int64, originalFilename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, row := range m.rows {
		if row.OwnerID == ownerID && row.OriginalFilename == originalFilename {
			delete(m.rows, key)
		}
	}
	return nil
}

func (m *MetadataStore) DeleteShard(ctx context.Context, ownerID int64, shardName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, row := range m.rows {
		if row.OwnerID == ownerID && row.ShardName == shardName {
			delete(m.rows, key)
		}
	}
	return nil
}

// RowCount returns the number of stored rows.
func (m *MetadataStore) RowCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}
