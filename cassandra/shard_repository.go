package cassandra

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"github.com/sharedcode/shardvault"
)

type shardRepository struct{}

// NewShardRepository instantiates a MetadataStore backed by the file table.
func NewShardRepository() shardvault.MetadataStore {
	return &shardRepository{}
}

// InsertShard adds one shard row, failing if the (owner, filename, shard index)
// key is already taken. The lightweight transaction is what serialises
// concurrent duplicate uploads.
func (r *shardRepository) InsertShard(ctx context.Context, record shardvault.ShardRecord) error {
	if connection == nil {
		return fmt.Errorf("Cassandra connection is closed, 'call OpenConnection(config) to open it")
	}
	insertStatement := fmt.Sprintf("INSERT INTO %s.file (user_id, original_filename, shard_index, filename, filesha256, byte_size, original_file_size, created_at) VALUES(?,?,?,?,?,?,?,?) IF NOT EXISTS;",
		connection.Config.Keyspace)
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	qry := connection.Session.Query(insertStatement, record.OwnerID, record.OriginalFilename, record.ShardIndex,
		record.ShardName, record.ShardSHA256, record.ShardByteSize, record.OriginalFileSize, createdAt).WithContext(ctx)
	if connection.Config.ConsistencyBook.ShardAdd > gocql.Any {
		qry.Consistency(connection.Config.ConsistencyBook.ShardAdd)
	}
	applied, err := qry.MapScanCAS(map[string]interface{}{})
	if err != nil {
		return err
	}
	if !applied {
		return fmt.Errorf("shard row (%d, %s, %d) already exists", record.OwnerID, record.OriginalFilename, record.ShardIndex)
	}
	return nil
}

// FindShards returns all rows of one file, in ascending shard index order per
// the table's clustering.
func (r *shardRepository) FindShards(ctx context.Context, ownerID int64, originalFilename string) ([]shardvault.ShardRecord, error) {
	if connection == nil {
		return nil, fmt.Errorf("Cassandra connection is closed, 'call OpenConnection(config) to open it")
	}
	selectStatement := fmt.Sprintf("SELECT original_filename, shard_index, filename, filesha256, byte_size, original_file_size, created_at FROM %s.file WHERE user_id = ? AND original_filename = ?;",
		connection.Config.Keyspace)
	qry := connection.Session.Query(selectStatement, ownerID, originalFilename).WithContext(ctx)
	if connection.Config.ConsistencyBook.ShardGet > gocql.Any {
		qry.Consistency(connection.Config.ConsistencyBook.ShardGet)
	}
	iter := qry.Iter()
	records := make([]shardvault.ShardRecord, 0, 8)
	var record shardvault.ShardRecord
	record.OwnerID = ownerID
	for iter.Scan(&record.OriginalFilename, &record.ShardIndex, &record.ShardName, &record.ShardSHA256,
		&record.ShardByteSize, &record.OriginalFileSize, &record.CreatedAt) {
		records = append(records, record)
		record.OwnerID = ownerID
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return records, nil
}

// ListOwnedFilenames returns one representative row (the lowest shard index)
// per distinct filename owned by ownerID.
func (r *shardRepository) ListOwnedFilenames(ctx context.Context, ownerID int64) ([]shardvault.ShardRecord, error) {
	if connection == nil {
		return nil, fmt.Errorf("Cassandra connection is closed, 'call OpenConnection(config) to open it")
	}
	selectStatement := fmt.Sprintf("SELECT original_filename, shard_index, filename, filesha256, byte_size, original_file_size, created_at FROM %s.file WHERE user_id = ?;",
		connection.Config.Keyspace)
	qry := connection.Session.Query(selectStatement, ownerID).WithContext(ctx)
	if connection.Config.ConsistencyBook.ShardGet > gocql.Any {
		qry.Consistency(connection.Config.ConsistencyBook.ShardGet)
	}
	iter := qry.Iter()
	records := make([]shardvault.ShardRecord, 0, 8)
	var record shardvault.ShardRecord
	record.OwnerID = ownerID
	for iter.Scan(&record.OriginalFilename, &record.ShardIndex, &record.ShardName, &record.ShardSHA256,
		&record.ShardByteSize, &record.OriginalFileSize, &record.CreatedAt) {
		// Rows arrive clustered by filename then shard index, so the first row
		// seen of each filename is its representative.
		if len(records) == 0 || records[len(records)-1].OriginalFilename != record.OriginalFilename {
			records = append(records, record)
		}
		record.OwnerID = ownerID
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteFile removes all rows of one file. Deleting an absent file succeeds.
func (r *shardRepository) DeleteFile(ctx context.Context, ownerID int64, originalFilename string) error {
	if connection == nil {
		return fmt.Errorf("Cassandra connection is closed, 'call OpenConnection(config) to open it")
	}
	deleteStatement := fmt.Sprintf("DELETE FROM %s.file WHERE user_id = ? AND original_filename = ?;",
		connection.Config.Keyspace)
	qry := connection.Session.Query(deleteStatement, ownerID, originalFilename).WithContext(ctx)
	if connection.Config.ConsistencyBook.ShardRemove > gocql.Any {
		qry.Consistency(connection.Config.ConsistencyBook.ShardRemove)
	}
	return qry.Exec()
}

// DeleteShard removes a single row by its unique blob name. Deleting an absent
// row succeeds.
func (r *shardRepository) DeleteShard(ctx context.Context, ownerID int64, shardName string) error {
	if connection == nil {
		return fmt.Errorf("Cassandra connection is closed, 'call OpenConnection(config) to open it")
	}
	// Locate the clustering key through the filename index, then delete by full key.
	selectStatement := fmt.Sprintf("SELECT original_filename, shard_index FROM %s.file WHERE user_id = ? AND filename = ?;",
		connection.Config.Keyspace)
	qry := connection.Session.Query(selectStatement, ownerID, shardName).WithContext(ctx)
	if connection.Config.ConsistencyBook.ShardGet > gocql.Any {
		qry.Consistency(connection.Config.ConsistencyBook.ShardGet)
	}
	iter := qry.Iter()
	var originalFilename string
	var shardIndex int
	found := false
	for iter.Scan(&originalFilename, &shardIndex) {
		found = true
	}
	if err := iter.Close(); err != nil {
		return err
	}
	if !found {
		return nil
	}
	deleteStatement := fmt.Sprintf("DELETE FROM %s.file WHERE user_id = ? AND original_filename = ? AND shard_index = ?;",
		connection.Config.Keyspace)
	dqry := connection.Session.Query(deleteStatement, ownerID, originalFilename, shardIndex).WithContext(ctx)
	if connection.Config.ConsistencyBook.ShardRemove > gocql.Any {
		dqry.Consistency(connection.Config.ConsistencyBook.ShardRemove)
	}
	return dqry.Exec()
}
