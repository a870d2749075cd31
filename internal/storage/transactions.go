package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/dompet/internal/common"
	"github.com/Veraticus/dompet/internal/model"
)

// timestampLayout is fixed width so stored timestamps sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

const transactionColumns = `id, type, category, amount, notes, date, created_at, updated_at`

// Filter selects transactions for Query. Zero values match everything.
type Filter struct {
	Type     model.TransactionType
	Category string
	Range    model.DateRange
	Limit    int
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) (time.Time, error) {
	return time.Parse(timestampLayout, s)
}

// stamp returns the current time at storage precision.
func (l *Ledger) stamp() time.Time {
	t, _ := parseTimestamp(formatTimestamp(l.now()))
	return t
}

// Add validates draft, assigns id and timestamps, and stores it. If the
// in-memory insert succeeds but the image cannot be written, the new record is
// returned together with an error wrapping common.ErrPersistenceWrite.
func (l *Ledger) Add(ctx context.Context, draft model.Draft) (model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return model.Transaction{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.ready {
		return model.Transaction{}, common.ErrNotInitialized
	}

	now := l.stamp()
	date := draft.Date
	if date.IsZero() {
		date = l.now()
	}

	txn := model.Transaction{
		ID:        l.newID(),
		Type:      draft.Type,
		Category:  strings.TrimSpace(draft.Category),
		Amount:    draft.Amount,
		Notes:     draft.Notes,
		Date:      model.FormatDate(date),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := validateTransaction(&txn); err != nil {
		return model.Transaction{}, err
	}

	_, err := l.conn.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID, string(txn.Type), txn.Category, txn.Amount, txn.Notes, txn.Date,
		formatTimestamp(txn.CreatedAt), formatTimestamp(txn.UpdatedAt))
	if err != nil {
		return model.Transaction{}, fmt.Errorf("failed to insert transaction: %w", err)
	}

	return txn, l.persist(ctx)
}

// Update merges patch over the stored record and re-stamps updatedAt so it is
// strictly later than before.
func (l *Ledger) Update(ctx context.Context, id string, patch model.Patch) (model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return model.Transaction{}, err
	}
	if err := validateID(id); err != nil {
		return model.Transaction{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.ready {
		return model.Transaction{}, common.ErrNotInitialized
	}

	existing, err := l.getLocked(ctx, id)
	if err != nil {
		return model.Transaction{}, err
	}

	txn := patch.Apply(existing)
	txn.Category = strings.TrimSpace(txn.Category)
	if err := validateTransaction(&txn); err != nil {
		return model.Transaction{}, err
	}

	updated := l.stamp()
	if !updated.After(existing.UpdatedAt) {
		updated = existing.UpdatedAt.Add(time.Nanosecond)
	}
	txn.UpdatedAt = updated

	_, err = l.conn.ExecContext(ctx, `
		UPDATE transactions
		SET type = ?, category = ?, amount = ?, notes = ?, date = ?, updated_at = ?
		WHERE id = ?`,
		string(txn.Type), txn.Category, txn.Amount, txn.Notes, txn.Date, formatTimestamp(txn.UpdatedAt), id)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("failed to update transaction: %w", err)
	}

	return txn, l.persist(ctx)
}

// Delete removes the transaction with id. Deleting an unknown id is not an
// error; the image is written either way.
func (l *Ledger) Delete(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.ready {
		return common.ErrNotInitialized
	}

	result, err := l.conn.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		common.LogDebug("Delete of unknown transaction", common.Fields{"id": id})
	}

	return l.persist(ctx)
}

// Get returns one transaction or an error wrapping common.ErrNotFound.
func (l *Ledger) Get(ctx context.Context, id string) (model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return model.Transaction{}, err
	}
	if err := validateID(id); err != nil {
		return model.Transaction{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.ready {
		return model.Transaction{}, common.ErrNotInitialized
	}
	return l.getLocked(ctx, id)
}

func (l *Ledger) getLocked(ctx context.Context, id string) (model.Transaction, error) {
	row := l.conn.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Transaction{}, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return model.Transaction{}, fmt.Errorf("failed to get transaction: %w", err)
	}
	return txn, nil
}

// Query returns matching transactions ordered by date then creation time,
// newest first. No match yields an empty, non-nil slice.
func (l *Ledger) Query(ctx context.Context, filter Filter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.ready {
		return nil, common.ErrNotInitialized
	}

	where, args := filterClause(filter.Type, filter.Category, filter.Range)
	query := `SELECT ` + transactionColumns + ` FROM transactions` + where + ` ORDER BY date DESC, created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := l.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	transactions := []model.Transaction{}
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return transactions, nil
}

// Aggregate sums amount over transactions of typ inside rng. It returns 0 when
// nothing matches.
func (l *Ledger) Aggregate(ctx context.Context, typ model.TransactionType, rng model.DateRange) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateFilter(Filter{Type: typ, Range: rng}); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.ready {
		return 0, common.ErrNotInitialized
	}

	where, args := filterClause(typ, "", rng)
	var total int64
	err := l.conn.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount), 0) FROM transactions`+where, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate transactions: %w", err)
	}
	return total, nil
}

// Count returns the number of stored transactions.
func (l *Ledger) Count(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.ready {
		return 0, common.ErrNotInitialized
	}

	var count int
	if err := l.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

func filterClause(typ model.TransactionType, category string, rng model.DateRange) (string, []any) {
	var conds []string
	var args []any

	if typ != "" {
		conds = append(conds, "type = ?")
		args = append(args, string(typ))
	}
	if category != "" {
		conds = append(conds, "category = ?")
		args = append(args, category)
	}
	if rng.From != "" {
		conds = append(conds, "date >= ?")
		args = append(args, rng.From)
	}
	if rng.To != "" {
		conds = append(conds, "date <= ?")
		args = append(args, rng.To)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (model.Transaction, error) {
	var txn model.Transaction
	var typ, createdAt, updatedAt string

	if err := row.Scan(&txn.ID, &typ, &txn.Category, &txn.Amount, &txn.Notes, &txn.Date, &createdAt, &updatedAt); err != nil {
		return model.Transaction{}, err
	}
	txn.Type = model.TransactionType(typ)

	var err error
	if txn.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return model.Transaction{}, fmt.Errorf("bad created_at %q: %w", createdAt, err)
	}
	if txn.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return model.Transaction{}, fmt.Errorf("bad updated_at %q: %w", updatedAt, err)
	}
	return txn, nil
}
