package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/dompet/internal/common"
	"github.com/Veraticus/dompet/internal/model"
)

func TestRunSetSetting(t *testing.T) {
	tests := []struct {
		name    string
		setting string
		value   string
		check   func(t *testing.T, s model.AppSettings)
		wantErr bool
	}{
		{
			name:    "savings target with separators",
			setting: "savingsTarget",
			value:   "10.000.000",
			check: func(t *testing.T, s model.AppSettings) {
				assert.Equal(t, int64(10_000_000), s.SavingsTarget)
			},
		},
		{
			name:    "dark mode alias",
			setting: "dark-mode",
			value:   "true",
			check: func(t *testing.T, s model.AppSettings) {
				assert.True(t, s.IsDarkMode)
			},
		},
		{
			name:    "language",
			setting: "language",
			value:   "en",
			check: func(t *testing.T, s model.AppSettings) {
				assert.Equal(t, model.LanguageEnglish, s.Language)
			},
		},
		{name: "unsupported language", setting: "language", value: "fr", wantErr: true},
		{name: "unknown setting", setting: "currency", value: "USD", wantErr: true},
		{name: "bad bool", setting: "isDarkMode", value: "maybe", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := newTestApp(t)
			ctx := context.Background()

			var out bytes.Buffer
			err := runSetSetting(ctx, ta.app, &out, tt.setting, tt.value)
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out.String(), "Saved "+tt.setting)

			saved, err := ta.settings.Load(ctx)
			require.NoError(t, err)
			tt.check(t, saved)
		})
	}
}

func TestPrintSettings(t *testing.T) {
	var out bytes.Buffer
	printSettings(&out, model.DefaultSettings())

	s := out.String()
	assert.Contains(t, s, "savingsTarget  Rp 5.000.000")
	assert.Contains(t, s, "isDarkMode     false")
	assert.Contains(t, s, "language       id")
}
