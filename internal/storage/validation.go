package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/dompet/internal/common"
	"github.com/Veraticus/dompet/internal/model"
)

// ErrNilContext is returned when a nil context is passed to the ledger.
var ErrNilContext = errors.New("context cannot be nil")

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateID ensures an id parameter is not blank.
func validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: id cannot be empty", common.ErrValidation)
	}
	return nil
}

// validateTransaction checks a record about to be written.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction cannot be nil", common.ErrValidation)
	}
	if !txn.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", common.ErrValidation, txn.Type)
	}
	if txn.Amount <= 0 {
		return fmt.Errorf("%w: amount must be greater than zero, got %d", common.ErrValidation, txn.Amount)
	}
	if strings.TrimSpace(txn.Category) == "" {
		return fmt.Errorf("%w: category cannot be empty", common.ErrValidation)
	}
	if !model.ValidCategory(txn.Type, txn.Category) {
		return fmt.Errorf("%w: category %q is not valid for %s", common.ErrValidation, txn.Category, txn.Type)
	}
	if _, err := model.ParseDate(txn.Date); err != nil {
		return fmt.Errorf("%w: %w", common.ErrValidation, err)
	}
	return nil
}

// validateFilter checks query parameters.
func validateFilter(f Filter) error {
	if f.Type != "" && !f.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", common.ErrValidation, f.Type)
	}
	if f.Range.From != "" {
		if _, err := model.ParseDate(f.Range.From); err != nil {
			return fmt.Errorf("%w: %w", common.ErrValidation, err)
		}
	}
	if f.Range.To != "" {
		if _, err := model.ParseDate(f.Range.To); err != nil {
			return fmt.Errorf("%w: %w", common.ErrValidation, err)
		}
	}
	if f.Range.From != "" && f.Range.To != "" && f.Range.From > f.Range.To {
		return fmt.Errorf("%w: start date must not be after end date", common.ErrValidation)
	}
	if f.Limit < 0 {
		return fmt.Errorf("%w: limit cannot be negative", common.ErrValidation)
	}
	return nil
}
