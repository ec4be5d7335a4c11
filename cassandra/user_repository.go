package cassandra

import (
	"context"
	"fmt"

	"github.com/gocql/gocql"

	"github.com/sharedcode/shardvault"
)

// UserRepository maps authenticated token subjects to numeric owner ids.
type UserRepository interface {
	// GetOrCreateOwnerID returns the owner id of username, registering a fresh
	// id on first sight.
	GetOrCreateOwnerID(ctx context.Context, username string) (int64, error)
}

type userRepository struct{}

// NewUserRepository instantiates a UserRepository backed by the users table.
func NewUserRepository() UserRepository {
	return &userRepository{}
}

func (r *userRepository) GetOrCreateOwnerID(ctx context.Context, username string) (int64, error) {
	if connection == nil {
		return 0, fmt.Errorf("Cassandra connection is closed, 'call OpenConnection(config) to open it")
	}
	id, found, err := r.lookup(ctx, username)
	if err != nil {
		return 0, err
	}
	if found {
		return id, nil
	}

	// First sight of this subject; register it. The random id keeps the owner
	// identity opaque, the lightweight transaction handles racing registrations.
	high, _ := shardvault.NewUUID().Split()
	newID := int64(high >> 1) // keep it positive
	insertStatement := fmt.Sprintf("INSERT INTO %s.users (username, user_id) VALUES(?,?) IF NOT EXISTS;",
		connection.Config.Keyspace)
	qry := connection.Session.Query(insertStatement, username, newID).WithContext(ctx)
	if connection.Config.ConsistencyBook.UserAdd > gocql.Any {
		qry.Consistency(connection.Config.ConsistencyBook.UserAdd)
	}
	applied, err := qry.MapScanCAS(map[string]interface{}{})
	if err != nil {
		return 0, err
	}
	if applied {
		return newID, nil
	}
	// Lost the race; the winner's row is authoritative.
	id, found, err = r.lookup(ctx, username)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("user %s registration raced and no row landed", username)
	}
	return id, nil
}

func (r *userRepository) lookup(ctx context.Context, username string) (int64, bool, error) {
	selectStatement := fmt.Sprintf("SELECT user_id FROM %s.users WHERE username = ?;", connection.Config.Keyspace)
	qry := connection.Session.Query(selectStatement, username).WithContext(ctx)
	if connection.Config.ConsistencyBook.UserGet > gocql.Any {
		qry.Consistency(connection.Config.ConsistencyBook.UserGet)
	}
	iter := qry.Iter()
	var id int64
	found := false
	for iter.Scan(&id) {
		found = true
	}
	if err := iter.Close(); err != nil {
		return 0, false, err
	}
	return id, found, nil
}
