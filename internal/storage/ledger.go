// Package storage implements the ledger engine: an in-memory SQLite database that
// is the single source of truth for transactions and is written back to a
// kvstore.Store as one image after every mutation.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/dompet/internal/common"
	"github.com/Veraticus/dompet/internal/kvstore"
)

// DefaultImageKey is the Persistent Store slot holding the database image.
const DefaultImageKey = "sqlite_db"

// Ledger owns the transactions table. All methods are safe for concurrent use;
// calls are serialized in arrival order.
type Ledger struct {
	store    kvstore.Store
	db       *sql.DB
	conn     *sql.Conn
	now      func() time.Time
	newID    func() string
	imageKey string
	retry    common.RetryOptions
	mu       sync.Mutex
	ready    bool
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithImageKey overrides the key the image is stored under.
func WithImageKey(key string) Option {
	return func(l *Ledger) {
		if key != "" {
			l.imageKey = key
		}
	}
}

// WithClock replaces time.Now for timestamps and default dates.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithIDGenerator replaces the uuid generator.
func WithIDGenerator(gen func() string) Option {
	return func(l *Ledger) {
		if gen != nil {
			l.newID = gen
		}
	}
}

// WithRetry sets the backoff used for persistence writes.
func WithRetry(opts common.RetryOptions) Option {
	return func(l *Ledger) {
		l.retry = opts
	}
}

// NewLedger creates an uninitialized ledger over store.
func NewLedger(store kvstore.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:    store,
		now:      time.Now,
		newID:    uuid.NewString,
		imageKey: DefaultImageKey,
		retry:    common.DefaultRetryOptions(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Initialize loads the persisted image, or creates an empty schema when none
// exists. Calling it again after success is a no-op. Every failure wraps
// common.ErrStorageInit and leaves the ledger unusable.
func (l *Ledger) Initialize(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ready {
		return nil
	}

	if err := l.open(ctx); err != nil {
		l.closeLocked()
		return fmt.Errorf("%w: %w", common.ErrStorageInit, err)
	}

	l.ready = true
	return nil
}

func (l *Ledger) open(ctx context.Context) error {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	// An in-memory database lives and dies with its connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	l.db = db

	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	l.conn = conn

	image, found, err := l.store.Load(ctx, l.imageKey)
	if err != nil {
		return fmt.Errorf("failed to load image %q: %w", l.imageKey, err)
	}

	if found && len(image) > 0 {
		if err := restoreImage(ctx, conn, image); err != nil {
			return err
		}
		if err := checkIntegrity(ctx, conn); err != nil {
			return err
		}
		common.LogDebug("Loaded ledger image", common.Fields{"key": l.imageKey, "bytes": len(image)})
	}

	if err := migrate(ctx, conn); err != nil {
		return err
	}
	return verifySchema(ctx, conn)
}

// Shutdown writes a final image and releases the database. The ledger can be
// initialized again afterwards.
func (l *Ledger) Shutdown(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.ready {
		return nil
	}

	err := l.persist(ctx)
	l.closeLocked()
	return err
}

func (l *Ledger) closeLocked() {
	if l.conn != nil {
		_ = l.conn.Close()
		l.conn = nil
	}
	if l.db != nil {
		_ = l.db.Close()
		l.db = nil
	}
	l.ready = false
}

// Ready reports whether Initialize has completed.
func (l *Ledger) Ready() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ready
}

// ImageKey returns the store key the ledger writes to.
func (l *Ledger) ImageKey() string {
	return l.imageKey
}

// Image returns the current serialized database.
func (l *Ledger) Image(ctx context.Context) ([]byte, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.ready {
		return nil, common.ErrNotInitialized
	}
	return serializeImage(ctx, l.conn)
}

// persist serializes the whole database and overwrites the stored image.
// Callers hold l.mu.
func (l *Ledger) persist(ctx context.Context) error {
	image, err := serializeImage(ctx, l.conn)
	if err != nil {
		common.LogError(err, "Failed to serialize ledger image", common.Fields{"key": l.imageKey})
		return fmt.Errorf("%w: %w", common.ErrPersistenceWrite, err)
	}

	err = common.WithRetry(ctx, func() error {
		return l.store.Save(ctx, l.imageKey, image)
	}, l.retry)
	if err != nil {
		common.LogError(err, "Failed to persist ledger image", common.Fields{
			"key":   l.imageKey,
			"bytes": len(image),
		})
		return fmt.Errorf("%w: %w", common.ErrPersistenceWrite, err)
	}
	return nil
}

// Restore replaces the whole ledger with image and persists it. The image goes
// through the same checks as one loaded by Initialize.
func (l *Ledger) Restore(ctx context.Context, image []byte) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(image) == 0 {
		return fmt.Errorf("%w: image is empty", common.ErrValidation)
	}

	if err := ValidateImage(ctx, image); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.ready {
		return common.ErrNotInitialized
	}

	if err := restoreImage(ctx, l.conn, image); err != nil {
		return err
	}
	if err := checkIntegrity(ctx, l.conn); err != nil {
		return err
	}
	if err := migrate(ctx, l.conn); err != nil {
		return err
	}
	if err := verifySchema(ctx, l.conn); err != nil {
		return err
	}
	return l.persist(ctx)
}

// ValidateImage opens image in a throwaway ledger. The returned error wraps
// common.ErrStorageInit when the image is unusable.
func ValidateImage(ctx context.Context, image []byte) error {
	scratch := kvstore.NewMemoryStore()
	scratch.Put(DefaultImageKey, image)

	probe := NewLedger(scratch)
	if err := probe.Initialize(ctx); err != nil {
		return err
	}
	probe.mu.Lock()
	probe.closeLocked()
	probe.mu.Unlock()
	return nil
}
