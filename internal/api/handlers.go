// Package api serves the ledger as a local JSON API for UI front-ends.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Veraticus/dompet/internal/budget"
	"github.com/Veraticus/dompet/internal/model"
	"github.com/Veraticus/dompet/internal/notify"
	"github.com/Veraticus/dompet/internal/settings"
	"github.com/Veraticus/dompet/internal/storage"
	"github.com/Veraticus/dompet/internal/tracker"
)

// Deps are the collaborators the handlers need.
type Deps struct {
	Tracker      *tracker.Tracker
	Settings     *settings.Service
	Dispatcher   notify.Dispatcher
	Log          *slog.Logger
	Now          func() time.Time
	ReminderTime string
}

type handlers struct {
	deps Deps
}

// NewRouter builds the HTTP handler: /health plus everything under /api.
func NewRouter(deps Deps) chi.Router {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	h := &handlers{deps: deps}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(requestLogger(deps.Log))
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", h.Health)
	r.Mount("/api", h.Routes())
	return r
}

// Routes returns the /api subrouter.
func (h *handlers) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/transactions", func(r chi.Router) {
		r.Get("/", h.ListTransactions)
		r.Post("/", h.AddTransaction)
		r.Get("/{id}", h.GetTransaction)
		r.Patch("/{id}", h.UpdateTransaction)
		r.Delete("/{id}", h.DeleteTransaction)
	})

	r.Get("/stats", h.GetStats)
	r.Get("/reports", h.GetReport)
	r.Get("/categories", h.GetCategories)

	r.Get("/budget", h.GetBudget)
	r.Post("/budget/check", h.CheckBudget)

	r.Get("/settings", h.GetSettings)
	r.Patch("/settings", h.UpdateSettings)

	r.Post("/notifications/test", h.SendTestNotification)
	r.Put("/notifications/reminder", h.ScheduleReminder)
	r.Delete("/notifications/reminder", h.CancelReminder)
	return r
}

// Health reports whether the ledger is ready.
func (h *handlers) Health(w http.ResponseWriter, r *http.Request) {
	if !h.deps.Tracker.Ledger().Ready() {
		writeError(w, r, http.StatusServiceUnavailable, CodeStorageUnavailable, "Storage is unavailable")
		return
	}
	writeSuccess(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

func parseFilter(r *http.Request) (storage.Filter, error) {
	q := r.URL.Query()
	var filter storage.Filter

	if v := q.Get("type"); v != "" {
		t, err := model.ParseType(v)
		if err != nil {
			return filter, badRequest("%v", err)
		}
		filter.Type = t
	}
	filter.Category = q.Get("category")

	for name, dst := range map[string]*string{"from": &filter.Range.From, "to": &filter.Range.To} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		if _, err := model.ParseDate(v); err != nil {
			return filter, badRequest("%s: %v", name, err)
		}
		*dst = v
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, badRequest("limit must be a non-negative integer")
		}
		filter.Limit = n
	}
	return filter, nil
}

func (h *handlers) ListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	txns, err := h.deps.Tracker.Ledger().Query(r.Context(), filter)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, txns)
}

func (h *handlers) AddTransaction(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if err := decode(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	draft, err := req.Draft()
	if err != nil {
		handleError(w, r, err)
		return
	}
	txn, snap, err := h.deps.Tracker.Add(r.Context(), draft)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusCreated, MutationResponse{Transaction: &txn, Stats: snap.Stats, Count: len(snap.Transactions)})
}

func (h *handlers) GetTransaction(w http.ResponseWriter, r *http.Request) {
	txn, err := h.deps.Tracker.Ledger().Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, txn)
}

func (h *handlers) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req PatchRequest
	if err := decode(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	patch, err := req.Patch()
	if err != nil {
		handleError(w, r, err)
		return
	}
	txn, snap, err := h.deps.Tracker.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, MutationResponse{Transaction: &txn, Stats: snap.Stats, Count: len(snap.Transactions)})
}

func (h *handlers) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	snap, err := h.deps.Tracker.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, MutationResponse{Stats: snap.Stats, Count: len(snap.Transactions)})
}

func (h *handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	snap, err := h.deps.Tracker.Snapshot(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, snap.Stats)
}

func (h *handlers) GetReport(w http.ResponseWriter, r *http.Request) {
	opts := tracker.DefaultReportOptions()
	for name, dst := range map[string]*int{"months": &opts.TrendMonths, "period": &opts.Period} {
		v := r.URL.Query().Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			handleError(w, r, badRequest("%s must be a positive integer", name))
			return
		}
		*dst = n
	}
	switch r.URL.Query().Get("categories") {
	case "", "month":
	case "all":
		opts.AllTimeCategories = true
	default:
		handleError(w, r, badRequest("categories must be month or all"))
		return
	}

	report, err := h.deps.Tracker.Report(r.Context(), opts)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, report)
}

// GetCategories returns the vocabulary for ?type=, or all three keyed by type.
func (h *handlers) GetCategories(w http.ResponseWriter, r *http.Request) {
	if v := r.URL.Query().Get("type"); v != "" {
		t, err := model.ParseType(v)
		if err != nil {
			handleError(w, r, badRequest("%v", err))
			return
		}
		writeSuccess(w, r, http.StatusOK, model.Categories(t))
		return
	}

	all := make(map[model.TransactionType][]string, 3)
	for _, t := range model.Types() {
		all[t] = model.Categories(t)
	}
	writeSuccess(w, r, http.StatusOK, all)
}

func (h *handlers) GetBudget(w http.ResponseWriter, r *http.Request) {
	monitor := h.deps.Tracker.Monitor()
	if monitor == nil {
		handleError(w, r, badRequest("budget monitoring is disabled"))
		return
	}
	status, err := monitor.Status(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, status)
}

// CheckBudget runs a threshold check now. A failed alert dispatch is
// reported in the status rather than as an HTTP error.
func (h *handlers) CheckBudget(w http.ResponseWriter, r *http.Request) {
	monitor := h.deps.Tracker.Monitor()
	if monitor == nil {
		handleError(w, r, badRequest("budget monitoring is disabled"))
		return
	}
	outcome, status, err := monitor.Check(r.Context())
	switch {
	case outcome == budget.OutcomeDispatchFailed:
		LoggerFrom(r.Context()).Warn("budget alert dispatch failed", "error", err)
		status.Outcome = outcome.String()
	case err != nil:
		handleError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, status)
}

func (h *handlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.deps.Settings.Load(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, prefs)
}

func (h *handlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if err := decode(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	current, err := h.deps.Settings.Load(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	updated := req.Apply(current)
	if err := h.deps.Settings.Save(r.Context(), updated); err != nil {
		handleError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, updated)
}

func (h *handlers) language(ctx context.Context) string {
	if h.deps.Settings == nil {
		return string(model.DefaultSettings().Language)
	}
	prefs, err := h.deps.Settings.Load(ctx)
	if err != nil {
		LoggerFrom(ctx).Warn("falling back to default language", "error", err)
		return string(model.DefaultSettings().Language)
	}
	return string(prefs.Language)
}

func (h *handlers) dispatch(w http.ResponseWriter, r *http.Request, msg notify.Message, resp NotificationResponse) {
	if err := h.deps.Dispatcher.Dispatch(r.Context(), msg); err != nil {
		handleError(w, r, err)
		return
	}
	resp.Kind = string(msg.Kind)
	resp.Queued = h.deps.Now()
	writeSuccess(w, r, http.StatusAccepted, resp)
}

func (h *handlers) SendTestNotification(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, notify.TestMessage(h.language(r.Context())), NotificationResponse{})
}

// ScheduleReminder turns on the daily reminder. An empty body uses the
// configured reminder time.
func (h *handlers) ScheduleReminder(w http.ResponseWriter, r *http.Request) {
	req := ReminderRequest{Time: h.deps.ReminderTime}
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			handleError(w, r, err)
			return
		}
	}
	if _, _, err := notify.ParseClock(req.Time); err != nil {
		handleError(w, r, badRequest("%v", err))
		return
	}
	h.dispatch(w, r, notify.ScheduleReminderMessage(h.language(r.Context()), req.Time), NotificationResponse{Reminder: req.Time})
}

func (h *handlers) CancelReminder(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, notify.CancelReminderMessage(), NotificationResponse{Cancelled: true})
}
