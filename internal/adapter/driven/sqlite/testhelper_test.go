package sqlite

import (
	"context"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/ericfisherdev/winsvcpanel/internal/domain/model"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates a named shared in-memory SQLite database for testing.
// Writer and reader connections share the same in-memory database via cache=shared.
// A unique name derived from t.Name() keeps parallel tests isolated.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	// WAL mode is not applicable to in-memory databases; omit journal_mode pragma.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&%s", url.PathEscape(t.Name()), commonPragmas)

	db, err := openDB(context.Background(), dsn, dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	if err := RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		t.Fatalf("run migrations: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })

	return db
}

var testTime = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

// seedOwner inserts an owner and returns it with its assigned ID.
func seedOwner(t *testing.T, db *DB, username string) model.Owner {
	t.Helper()

	owner, err := NewOwnerRepo(db).Add(context.Background(), model.Owner{
		Username:     username,
		Name:         "Test " + username,
		Email:        username + "@example.com",
		PasswordHash: "$2a$10$placeholderplaceholderplaceholderplaceholderpla",
		CreatedAt:    testTime,
	})
	require.NoError(t, err)
	return owner
}

// seedHost inserts a host owned by ownerID and returns it with its assigned ID.
func seedHost(t *testing.T, db *DB, ownerID int64, address string) model.Host {
	t.Helper()

	host, err := NewHostRepo(db).Add(context.Background(), model.Host{
		Address:         address,
		Username:        "Administrator",
		EncryptedSecret: "sealed",
		Description:     "test host",
		OwnerID:         ownerID,
		CreatedAt:       testTime,
	})
	require.NoError(t, err)
	return host
}
