package storage

import (
	"context"
	"database/sql"
	"strings"
	"testing"
)

func openScratchConn(t *testing.T) *sql.Conn {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	db.SetMaxOpenConns(1)
	conn, err := db.Conn(context.Background())
	if err != nil {
		t.Fatalf("Failed to acquire connection: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
		_ = db.Close()
	})
	return conn
}

func TestMigrate_FreshDatabase(t *testing.T) {
	ctx := context.Background()
	conn := openScratchConn(t)

	if err := migrate(ctx, conn); err != nil {
		t.Fatalf("migrate() error = %v", err)
	}

	version, err := schemaVersion(ctx, conn)
	if err != nil {
		t.Fatalf("schemaVersion() error = %v", err)
	}
	if version != ExpectedSchemaVersion {
		t.Errorf("schema version = %d, want %d", version, ExpectedSchemaVersion)
	}

	var indexCount int
	err = conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='index' AND name IN ('idx_transactions_date', 'idx_transactions_type_date')
	`).Scan(&indexCount)
	if err != nil {
		t.Fatalf("Failed to check indexes: %v", err)
	}
	if indexCount != 2 {
		t.Errorf("found %d transaction indexes, want 2", indexCount)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()
	conn := openScratchConn(t)

	for i := 0; i < 2; i++ {
		if err := migrate(ctx, conn); err != nil {
			t.Fatalf("migrate() run %d error = %v", i+1, err)
		}
	}
}

func TestMigrate_RejectsNewerImage(t *testing.T) {
	ctx := context.Background()
	conn := openScratchConn(t)

	if _, err := conn.ExecContext(ctx, "PRAGMA user_version = 99"); err != nil {
		t.Fatalf("Failed to set version: %v", err)
	}
	err := migrate(ctx, conn)
	if err == nil || !strings.Contains(err.Error(), "newer than supported") {
		t.Errorf("migrate() error = %v, want newer-version error", err)
	}
}

func TestMigrate_SchemaConstraints(t *testing.T) {
	ctx := context.Background()
	conn := openScratchConn(t)
	if err := migrate(ctx, conn); err != nil {
		t.Fatalf("migrate() error = %v", err)
	}

	insert := `INSERT INTO transactions (id, type, category, amount, notes, date, created_at, updated_at)
		VALUES (?, ?, 'Lainnya', ?, '', '2024-01-01', '2024-01-01T00:00:00Z', '2024-01-01T00:00:00Z')`

	if _, err := conn.ExecContext(ctx, insert, "a", "transfer", 1); err == nil {
		t.Error("expected the type check to reject an unknown type")
	}
	if _, err := conn.ExecContext(ctx, insert, "b", "expense", -1); err == nil {
		t.Error("expected the amount check to reject a negative amount")
	}
	if _, err := conn.ExecContext(ctx, insert, "c", "expense", 1); err != nil {
		t.Errorf("valid row rejected: %v", err)
	}
}
