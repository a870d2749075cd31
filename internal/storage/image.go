package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

const mainSchema = "main"

// withRaw runs fn on the sqlite3 connection underneath conn.
func withRaw(conn *sql.Conn, fn func(*sqlite3.SQLiteConn) error) error {
	return conn.Raw(func(driverConn any) error {
		c, ok := driverConn.(*sqlite3.SQLiteConn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}
		return fn(c)
	})
}

func serializeImage(_ context.Context, conn *sql.Conn) ([]byte, error) {
	var image []byte
	err := withRaw(conn, func(c *sqlite3.SQLiteConn) error {
		b, err := c.Serialize(mainSchema)
		if err != nil {
			return fmt.Errorf("failed to serialize database: %w", err)
		}
		image = b
		return nil
	})
	return image, err
}

// restoreImage loads image into the database behind conn. A deserialized
// database cannot grow, so the image is opened on a scratch connection and
// its pages are copied into conn with the online backup API.
func restoreImage(ctx context.Context, conn *sql.Conn, image []byte) error {
	scratch, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return fmt.Errorf("failed to open scratch database: %w", err)
	}
	defer func() { _ = scratch.Close() }()
	scratch.SetMaxOpenConns(1)

	src, err := scratch.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire scratch connection: %w", err)
	}
	defer func() { _ = src.Close() }()

	return withRaw(src, func(srcConn *sqlite3.SQLiteConn) error {
		if err := srcConn.Deserialize(image, mainSchema); err != nil {
			return fmt.Errorf("failed to deserialize image: %w", err)
		}
		return withRaw(conn, func(dstConn *sqlite3.SQLiteConn) error {
			backup, err := dstConn.Backup(mainSchema, srcConn, mainSchema)
			if err != nil {
				return fmt.Errorf("failed to start image copy: %w", err)
			}
			if _, err := backup.Step(-1); err != nil {
				_ = backup.Finish()
				return fmt.Errorf("failed to copy image: %w", err)
			}
			if err := backup.Finish(); err != nil {
				return fmt.Errorf("failed to finish image copy: %w", err)
			}
			return nil
		})
	})
}

// checkIntegrity rejects images SQLite itself considers damaged.
func checkIntegrity(ctx context.Context, conn *sql.Conn) error {
	var result string
	if err := conn.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&result); err != nil {
		return fmt.Errorf("failed to check image integrity: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("image integrity check failed: %s", result)
	}
	return nil
}
