// Package settings persists user preferences in the key/value store, apart
// from the ledger.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Veraticus/dompet/internal/common"
	"github.com/Veraticus/dompet/internal/kvstore"
	"github.com/Veraticus/dompet/internal/model"
)

// Storage keys.
const (
	KeySavingsTarget = "settings_savingsTarget"
	KeyIsDarkMode    = "settings_isDarkMode"
	KeyLanguage      = "settings_language"
)

// Service loads and saves AppSettings.
type Service struct {
	store kvstore.Store
}

// NewService creates a settings service over store.
func NewService(store kvstore.Store) *Service {
	return &Service{store: store}
}

// Load returns saved settings. Missing or unreadable values fall back to
// their defaults individually.
func (s *Service) Load(ctx context.Context) (model.AppSettings, error) {
	out := model.DefaultSettings()

	if raw, ok, err := s.store.Load(ctx, KeySavingsTarget); err != nil {
		return out, fmt.Errorf("failed to load savings target: %w", err)
	} else if ok {
		if v, perr := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64); perr == nil && v >= 0 {
			out.SavingsTarget = v
		} else {
			slog.Warn("Ignoring invalid saved savings target", "value", string(raw))
		}
	}

	if raw, ok, err := s.store.Load(ctx, KeyIsDarkMode); err != nil {
		return out, fmt.Errorf("failed to load dark mode: %w", err)
	} else if ok {
		var dark bool
		if jerr := json.Unmarshal(raw, &dark); jerr == nil {
			out.IsDarkMode = dark
		} else {
			slog.Warn("Ignoring invalid saved dark mode flag", "value", string(raw))
		}
	}

	if raw, ok, err := s.store.Load(ctx, KeyLanguage); err != nil {
		return out, fmt.Errorf("failed to load language: %w", err)
	} else if ok {
		if lang := model.Language(raw); lang.Valid() {
			out.Language = lang
		} else {
			slog.Warn("Ignoring invalid saved language", "value", string(raw))
		}
	}

	return out, nil
}

// Validate checks settings before they are saved.
func Validate(in model.AppSettings) error {
	if in.SavingsTarget < 0 {
		return fmt.Errorf("%w: savings target cannot be negative", common.ErrValidation)
	}
	if !in.Language.Valid() {
		return fmt.Errorf("%w: unsupported language %q (want id or en)", common.ErrValidation, in.Language)
	}
	return nil
}

// Save writes all three settings.
func (s *Service) Save(ctx context.Context, in model.AppSettings) error {
	if err := Validate(in); err != nil {
		return err
	}

	dark, err := json.Marshal(in.IsDarkMode)
	if err != nil {
		return fmt.Errorf("failed to encode dark mode: %w", err)
	}

	values := []struct {
		key   string
		value []byte
	}{
		{KeySavingsTarget, []byte(strconv.FormatInt(in.SavingsTarget, 10))},
		{KeyIsDarkMode, dark},
		{KeyLanguage, []byte(in.Language)},
	}
	for _, v := range values {
		if err := s.store.Save(ctx, v.key, v.value); err != nil {
			return fmt.Errorf("failed to save %s: %w", v.key, err)
		}
	}
	return nil
}

// Set updates one setting by its short name (savingsTarget, isDarkMode or
// language) and returns the resulting settings.
func (s *Service) Set(ctx context.Context, name, value string) (model.AppSettings, error) {
	current, err := s.Load(ctx)
	if err != nil {
		return current, err
	}

	switch name {
	case "savingsTarget", "savings-target":
		v, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return current, fmt.Errorf("%w: savings target must be a whole number", common.ErrValidation)
		}
		current.SavingsTarget = v
	case "isDarkMode", "dark-mode":
		v, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return current, fmt.Errorf("%w: dark mode must be true or false", common.ErrValidation)
		}
		current.IsDarkMode = v
	case "language":
		current.Language = model.Language(strings.TrimSpace(value))
	default:
		return current, fmt.Errorf("%w: unknown setting %q", common.ErrValidation, name)
	}

	if err := s.Save(ctx, current); err != nil {
		return current, err
	}
	return current, nil
}
