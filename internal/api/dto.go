package api

import (
	"strings"
	"time"

	"github.com/Veraticus/dompet/internal/model"
	"github.com/Veraticus/dompet/internal/stats"
)

// TransactionRequest is the body of POST /api/transactions. An empty date
// means today.
type TransactionRequest struct {
	Type     model.TransactionType `json:"type"`
	Category string                `json:"category"`
	Notes    string                `json:"notes"`
	Date     string                `json:"date"`
	Amount   int64                 `json:"amount"`
}

// Draft converts the request into a ledger draft.
func (req TransactionRequest) Draft() (model.Draft, error) {
	draft := model.Draft{
		Type:     req.Type,
		Category: strings.TrimSpace(req.Category),
		Notes:    req.Notes,
		Amount:   req.Amount,
	}
	if req.Date != "" {
		d, err := model.ParseDate(req.Date)
		if err != nil {
			return model.Draft{}, badRequest("%v", err)
		}
		draft.Date = d
	}
	return draft, nil
}

// PatchRequest is the body of PATCH /api/transactions/{id}.
type PatchRequest struct {
	Type     *model.TransactionType `json:"type,omitempty"`
	Category *string                `json:"category,omitempty"`
	Amount   *int64                 `json:"amount,omitempty"`
	Notes    *string                `json:"notes,omitempty"`
	Date     *string                `json:"date,omitempty"`
}

// Patch converts the request into a ledger patch.
func (req PatchRequest) Patch() (model.Patch, error) {
	patch := model.Patch{
		Type:     req.Type,
		Category: req.Category,
		Amount:   req.Amount,
		Notes:    req.Notes,
	}
	if req.Date != nil {
		d, err := model.ParseDate(*req.Date)
		if err != nil {
			return model.Patch{}, badRequest("%v", err)
		}
		patch.Date = &d
	}
	if patch.Empty() {
		return model.Patch{}, badRequest("patch changes nothing")
	}
	return patch, nil
}

// SettingsRequest is the body of PATCH /api/settings; omitted fields keep
// their saved value.
type SettingsRequest struct {
	SavingsTarget *int64  `json:"savingsTarget,omitempty"`
	IsDarkMode    *bool   `json:"isDarkMode,omitempty"`
	Language      *string `json:"language,omitempty"`
}

// Apply merges the request over current.
func (req SettingsRequest) Apply(current model.AppSettings) model.AppSettings {
	if req.SavingsTarget != nil {
		current.SavingsTarget = *req.SavingsTarget
	}
	if req.IsDarkMode != nil {
		current.IsDarkMode = *req.IsDarkMode
	}
	if req.Language != nil {
		current.Language = model.Language(*req.Language)
	}
	return current
}

// ReminderRequest is the body of PUT /api/notifications/reminder.
type ReminderRequest struct {
	Time string `json:"time"`
}

// MutationResponse is returned by every write: the affected record, if any,
// and the stats recomputed after the write.
type MutationResponse struct {
	Transaction *model.Transaction `json:"transaction,omitempty"`
	Stats       stats.Stats        `json:"stats"`
	Count       int                `json:"count"`
}

// NotificationResponse acknowledges a dispatched notification request.
type NotificationResponse struct {
	Queued    time.Time `json:"queued"`
	Kind      string    `json:"kind"`
	Reminder  string    `json:"reminder,omitempty"`
	Cancelled bool      `json:"cancelled,omitempty"`
}
