package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zapponejosh/calendar-api/internal/calendar"
	"github.com/zapponejosh/calendar-api/internal/config"
	"github.com/zapponejosh/calendar-api/internal/database"
	"github.com/zapponejosh/calendar-api/internal/ics"
)

// eventRequest is the body of POST and PUT /api/v1/events.
type eventRequest struct {
	Title           string  `json:"title"`
	Description     *string `json:"description,omitempty"`
	Date            string  `json:"date"`
	StartTime       *string `json:"start_time,omitempty"`
	DurationMinutes *int    `json:"duration_minutes,omitempty"`
}

func (req eventRequest) apply(e *database.Event) {
	e.Title = req.Title
	e.Description = req.Description
	e.Date = req.Date
	e.StartTime = req.StartTime
	e.DurationMinutes = req.DurationMinutes
}

// ListEvents handles GET /api/v1/events?year=&month= and GET /api/v1/events?date=
func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var (
		events []database.Event
		err    error
	)
	switch {
	case q.Get("date") != "":
		cd, day, perr := calendar.ParseDate(q.Get("date"))
		if perr != nil {
			WriteBadRequest(w, fmt.Sprintf("Invalid date format: %s. Use YYYY-MM-DD", q.Get("date")))
			return
		}
		if verr := h.validator.ValidateYear(cd.Year); verr != nil {
			WriteBadRequest(w, verr.Error())
			return
		}
		events, err = h.store.GetEventsForDay(ctx, calendar.FormatDate(cd.Year, cd.Month, day))
	case q.Get("year") != "" || q.Get("month") != "":
		cd, ok := h.queryMonth(w, r)
		if !ok {
			return
		}
		events, err = h.store.GetEventsForMonth(ctx, cd)
	default:
		WriteBadRequest(w, "Either date or year and month query parameters are required")
		return
	}
	if err != nil {
		h.log(r).Error("failed to list events", slog.Any("error", err))
		WriteInternalError(w, "Failed to retrieve events")
		return
	}

	WriteSuccess(w, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

// GetEvent handles GET /api/v1/events/{id}
func (h *Handlers) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	event, err := h.store.GetEvent(r.Context(), id)
	if err != nil {
		if database.IsNotFound(err) {
			WriteNotFound(w, "Event not found")
			return
		}
		h.log(r).Error("failed to get event", slog.Int64("id", id), slog.Any("error", err))
		WriteInternalError(w, "Failed to retrieve event")
		return
	}

	WriteSuccess(w, event)
}

// CreateEvent handles POST /api/v1/events
func (h *Handlers) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteBadRequest(w, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	var event database.Event
	req.apply(&event)
	if !h.checkEventYear(w, &event) {
		return
	}

	if err := h.store.AddEvent(r.Context(), &event); err != nil {
		h.writeStoreError(w, r, "create", err)
		return
	}

	WriteCreated(w, event)
}

// UpdateEvent handles PUT /api/v1/events/{id}. The external ID of an
// imported event is kept, so the next sync overwrites the edit.
func (h *Handlers) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteBadRequest(w, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	event, err := h.store.GetEvent(ctx, id)
	if err != nil {
		h.writeStoreError(w, r, "update", err)
		return
	}
	req.apply(event)
	if !h.checkEventYear(w, event) {
		return
	}

	if err := h.store.UpdateEvent(ctx, event); err != nil {
		h.writeStoreError(w, r, "update", err)
		return
	}

	WriteSuccess(w, event)
}

// DeleteEvent handles DELETE /api/v1/events/{id}
func (h *Handlers) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteEvent(r.Context(), id); err != nil {
		h.writeStoreError(w, r, "delete", err)
		return
	}

	WriteSuccess(w, map[string]string{"message": "Event deleted"})
}

// ExportEvents handles GET /api/v1/events.ics?year=&month=. Without
// parameters the current month is exported.
func (h *Handlers) ExportEvents(w http.ResponseWriter, r *http.Request) {
	var cd calendar.CalendarDate
	q := r.URL.Query()
	if q.Get("year") == "" && q.Get("month") == "" {
		cd, _ = calendar.Today(h.now().In(h.location))
	} else {
		var ok bool
		if cd, ok = h.queryMonth(w, r); !ok {
			return
		}
	}

	events, err := h.store.GetEventsForMonth(r.Context(), cd)
	if err != nil {
		h.log(r).Error("failed to export events", slog.String("month", cd.String()), slog.Any("error", err))
		WriteInternalError(w, "Failed to retrieve events")
		return
	}

	filename := fmt.Sprintf("events-%04d-%02d.ics", cd.Year, int(cd.Month)+1)
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, ics.Export(events, h.location))
}

// ImportFeed handles POST /api/v1/import/{feedID}. The body is an ICS
// document; from and to (YYYY-MM-DD) bound the expansion of recurring
// events and default to the sync window around today.
func (h *Handlers) ImportFeed(w http.ResponseWriter, r *http.Request) {
	feedID := chi.URLParam(r, "feedID")
	if !config.ValidFeedID(feedID) {
		WriteBadRequest(w, fmt.Sprintf("Invalid feed id: %s", feedID))
		return
	}

	from, to, err := h.importWindow(r)
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, ics.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, "Calendar body too large", "TOO_LARGE")
			return
		}
		WriteBadRequest(w, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	res, err := h.importer.Import(r.Context(), config.Feed{ID: feedID}, body, from, to)
	if err != nil {
		if errors.Is(err, ics.ErrInvalidFeed) {
			WriteBadRequest(w, err.Error())
			return
		}
		h.log(r).Error("feed import failed", slog.String("feed", feedID), slog.Any("error", err))
		WriteInternalError(w, "Failed to import calendar")
		return
	}
	if h.metrics != nil {
		h.metrics.ObserveImport(feedID, res.Created, res.Updated, res.Deleted)
	}

	WriteSuccess(w, res)
}

// PurgeImported handles DELETE /api/v1/import
func (h *Handlers) PurgeImported(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.DeleteAllExternalEvents(r.Context())
	if err != nil {
		h.log(r).Error("failed to purge imported events", slog.Any("error", err))
		WriteInternalError(w, "Failed to delete imported events")
		return
	}

	h.log(r).Info("imported events purged", slog.Int64("deleted", n))
	WriteSuccess(w, map[string]int64{"deleted": n})
}

func (h *Handlers) importWindow(r *http.Request) (from, to time.Time, err error) {
	now := h.now().In(h.location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.location)
	from = today.AddDate(0, 0, -h.cfg.SyncWindowDays)
	to = today.AddDate(0, 0, h.cfg.SyncWindowDays+1)

	q := r.URL.Query()
	if s := q.Get("from"); s != "" {
		if from, err = time.ParseInLocation("2006-01-02", s, h.location); err != nil {
			return from, to, fmt.Errorf("invalid from date: %s", s)
		}
	}
	if s := q.Get("to"); s != "" {
		if to, err = time.ParseInLocation("2006-01-02", s, h.location); err != nil {
			return from, to, fmt.Errorf("invalid to date: %s", s)
		}
		// Include the whole of the last day.
		to = to.AddDate(0, 0, 1)
	}
	if !from.Before(to) {
		return from, to, errors.New("from must not be after to")
	}
	return from, to, nil
}

// queryMonth reads year and 1-based month query parameters, writing a 400
// response on failure.
func (h *Handlers) queryMonth(w http.ResponseWriter, r *http.Request) (calendar.CalendarDate, bool) {
	q := r.URL.Query()
	year, yerr := strconv.Atoi(q.Get("year"))
	month, merr := strconv.Atoi(q.Get("month"))
	if yerr != nil || merr != nil {
		WriteBadRequest(w, "year and month must both be integers")
		return calendar.CalendarDate{}, false
	}
	cd, err := h.validator.CalendarDate(year, month)
	if err != nil {
		WriteBadRequest(w, err.Error())
		return calendar.CalendarDate{}, false
	}
	return cd, true
}

// checkEventYear rejects events dated outside the accepted years. Other
// field checks are left to Event.Validate in the store.
func (h *Handlers) checkEventYear(w http.ResponseWriter, e *database.Event) bool {
	cd, _, err := e.Day()
	if err != nil {
		// Reported by the store with the other validation errors.
		return true
	}
	if err := h.validator.ValidateYear(cd.Year); err != nil {
		WriteBadRequest(w, err.Error())
		return false
	}
	return true
}

func (h *Handlers) writeStoreError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case database.IsNotFound(err):
		WriteNotFound(w, "Event not found")
	case errors.Is(err, database.ErrInvalidEvent):
		WriteBadRequest(w, err.Error())
	case errors.Is(err, database.ErrDuplicate):
		WriteConflict(w, "Event already exists")
	default:
		h.log(r).Error("failed to "+op+" event", slog.Any("error", err))
		WriteInternalError(w, fmt.Sprintf("Failed to %s event", op))
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		WriteBadRequest(w, fmt.Sprintf("Invalid event ID: %s", raw))
		return 0, false
	}
	return id, true
}
