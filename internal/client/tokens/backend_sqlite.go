package tokens

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/tokenkeeper/internal/dbx"
)

// metadataKey is the row the blob lives under in the metadata table.
const metadataKey = "session_tokens"

// SQLiteBackend keeps the blob in the metadata table of the client database.
// SQLite's transaction journal gives the same crash safety as the file
// backend's rename.
type SQLiteBackend struct {
	db *sql.DB
}

func NewSQLiteBackend(db *sql.DB) *SQLiteBackend {
	return &SQLiteBackend{db: db}
}

func (b *SQLiteBackend) Load(ctx context.Context) ([]byte, error) {
	return metadata.NewSQLiteRepository(b.db).Get(ctx, metadataKey)
}

func (b *SQLiteBackend) Save(ctx context.Context, data []byte) error {
	return dbx.WithTx(ctx, b.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return metadata.NewSQLiteRepository(tx).Set(ctx, metadataKey, data)
	})
}
