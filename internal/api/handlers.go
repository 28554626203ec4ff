package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zapponejosh/calendar-api/internal/calendar"
	"github.com/zapponejosh/calendar-api/internal/config"
	"github.com/zapponejosh/calendar-api/internal/database"
	"github.com/zapponejosh/calendar-api/internal/ics"
	"github.com/zapponejosh/calendar-api/internal/logger"
)

// Handlers contains all HTTP handlers and their dependencies.
type Handlers struct {
	store     database.Store
	validator calendar.Validator
	importer  *ics.Importer
	metrics   *Metrics
	cfg       *config.Config
	logger    *slog.Logger
	location  *time.Location
	now       func() time.Time
}

// NewHandlers creates a new Handlers instance. metrics may be nil.
func NewHandlers(store database.Store, cfg *config.Config, metrics *Metrics, logger *slog.Logger) *Handlers {
	return &Handlers{
		store:     store,
		validator: calendar.Validator{MinYear: cfg.MinYear, MaxYear: cfg.MaxYear},
		importer:  ics.NewImporter(store, time.Local, logger),
		metrics:   metrics,
		cfg:       cfg,
		logger:    logger,
		location:  time.Local,
		now:       time.Now,
	}
}

// log returns the handler logger tagged with the request ID.
func (h *Handlers) log(r *http.Request) *slog.Logger {
	return logger.FromContext(r.Context(), h.logger)
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Health(r.Context()); err != nil {
		h.log(r).Warn("health check failed", slog.Any("error", err))
		WriteError(w, http.StatusServiceUnavailable, "Database unhealthy", "HEALTH_CHECK_FAILED")
		return
	}

	WriteSuccess(w, map[string]string{
		"status": "healthy",
	})
}

// DayInfo describes a single day. Month is 1-based.
type DayInfo struct {
	Date      string           `json:"date"`
	Year      int              `json:"year"`
	Month     int              `json:"month"`
	MonthName string           `json:"month_name"`
	Day       int              `json:"day"`
	Weekday   calendar.Weekday `json:"weekday"`
	DayOfYear int              `json:"day_of_year"`
	EpochDays int64            `json:"epoch_days"`
	LeapYear  bool             `json:"leap_year"`
}

func newDayInfo(cd calendar.CalendarDate, day int) DayInfo {
	return DayInfo{
		Date:      calendar.FormatDate(cd.Year, cd.Month, day),
		Year:      cd.Year,
		Month:     int(cd.Month) + 1,
		MonthName: cd.Month.String(),
		Day:       day,
		Weekday:   cd.DayOfWeek(day),
		DayOfYear: int(cd.BaseDay()-calendar.YearBaseDay(cd.Year)) + day,
		EpochDays: calendar.EpochDays(cd.Year, cd.Month, day),
		LeapYear:  calendar.IsLeapYear(cd.Year),
	}
}

// MonthView is a month grid. Month is 1-based; Previous and Next are
// YYYY-MM and omitted when outside the accepted years.
type MonthView struct {
	Year         int                             `json:"year"`
	Month        int                             `json:"month"`
	Name         string                          `json:"name"`
	FirstWeekday calendar.Weekday                `json:"first_weekday"`
	Days         int                             `json:"days"`
	Weeks        [calendar.WeeksPerLayout][7]int `json:"weeks"`
	Previous     string                          `json:"previous,omitempty"`
	Next         string                          `json:"next,omitempty"`
	Events       map[int][]database.Event        `json:"events,omitempty"`
}

func (h *Handlers) newMonthView(l calendar.MonthLayout) MonthView {
	v := MonthView{
		Year:         l.Date.Year,
		Month:        int(l.Date.Month) + 1,
		Name:         l.Name,
		FirstWeekday: l.FirstWeekday,
		Days:         l.Days,
		Weeks:        l.Weeks,
	}
	if prev := l.Date.Prev(); h.validator.ValidateYear(prev.Year) == nil {
		v.Previous = fmt.Sprintf("%04d-%02d", prev.Year, int(prev.Month)+1)
	}
	if next := l.Date.Next(); h.validator.ValidateYear(next.Year) == nil {
		v.Next = fmt.Sprintf("%04d-%02d", next.Year, int(next.Month)+1)
	}
	return v
}

// YearView lists the twelve month grids of a year.
type YearView struct {
	Year     int         `json:"year"`
	LeapYear bool        `json:"leap_year"`
	Days     int         `json:"days"`
	Months   []MonthView `json:"months"`
}

// GetToday handles GET /api/v1/calendar/today
func (h *Handlers) GetToday(w http.ResponseWriter, r *http.Request) {
	cd, day := calendar.Today(h.now().In(h.location))
	WriteSuccess(w, newDayInfo(cd, day))
}

// GetLeapYear handles GET /api/v1/calendar/leap/{year}
func (h *Handlers) GetLeapYear(w http.ResponseWriter, r *http.Request) {
	year, ok := h.pathYear(w, r)
	if !ok {
		return
	}

	WriteSuccess(w, map[string]interface{}{
		"year":      year,
		"leap_year": calendar.IsLeapYear(year),
		"days":      calendar.DaysInYear(year),
	})
}

// GetWeekday handles GET /api/v1/calendar/weekday?year=&month=&day=
func (h *Handlers) GetWeekday(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("year") == "" || q.Get("month") == "" || q.Get("day") == "" {
		WriteBadRequest(w, "year, month and day query parameters are required")
		return
	}

	var nums [3]int
	for i, name := range []string{"year", "month", "day"} {
		n, err := strconv.Atoi(q.Get(name))
		if err != nil {
			WriteBadRequest(w, fmt.Sprintf("Invalid %s: %s", name, q.Get(name)))
			return
		}
		nums[i] = n
	}

	cd, err := h.validator.Date(nums[0], nums[1], nums[2])
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}

	WriteSuccess(w, newDayInfo(cd, nums[2]))
}

// GetEpochDay handles GET /api/v1/calendar/epoch/{days}
func (h *Handlers) GetEpochDay(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "days")
	days, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		WriteBadRequest(w, fmt.Sprintf("Invalid day count: %s", raw))
		return
	}

	lo, hi := h.validator.EpochRange()
	if days < lo || days > hi {
		WriteBadRequest(w, fmt.Sprintf("Day count must be between %d and %d", lo, hi))
		return
	}

	cd, day := calendar.ResolveEpochDay(days)
	WriteSuccess(w, newDayInfo(cd, day))
}

// GetYear handles GET /api/v1/calendar/{year}
func (h *Handlers) GetYear(w http.ResponseWriter, r *http.Request) {
	year, ok := h.pathYear(w, r)
	if !ok {
		return
	}

	view := YearView{
		Year:     year,
		LeapYear: calendar.IsLeapYear(year),
		Days:     calendar.DaysInYear(year),
		Months:   make([]MonthView, 0, 12),
	}
	for _, l := range calendar.YearLayout(year) {
		view.Months = append(view.Months, h.newMonthView(l))
	}

	WriteSuccess(w, view)
}

// GetMonth handles GET /api/v1/calendar/{year}/{month}. Stored events are
// grouped by day of month.
func (h *Handlers) GetMonth(w http.ResponseWriter, r *http.Request) {
	year, ok := h.pathYear(w, r)
	if !ok {
		return
	}
	rawMonth := chi.URLParam(r, "month")
	month, err := strconv.Atoi(rawMonth)
	if err != nil {
		WriteBadRequest(w, fmt.Sprintf("Invalid month: %s", rawMonth))
		return
	}
	cd, err := h.validator.CalendarDate(year, month)
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}

	events, err := h.store.GetEventsForMonth(r.Context(), cd)
	if err != nil {
		h.log(r).Error("failed to get events for month", slog.String("month", cd.String()), slog.Any("error", err))
		WriteInternalError(w, "Failed to retrieve events")
		return
	}

	view := h.newMonthView(calendar.Layout(cd))
	for _, e := range events {
		_, day, err := e.Day()
		if err != nil {
			continue
		}
		if view.Events == nil {
			view.Events = make(map[int][]database.Event)
		}
		view.Events[day] = append(view.Events[day], e)
	}

	WriteSuccess(w, view)
}

// pathYear reads and validates the {year} URL parameter, writing a 400
// response on failure.
func (h *Handlers) pathYear(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "year")
	year, err := strconv.Atoi(raw)
	if err != nil {
		WriteBadRequest(w, fmt.Sprintf("Invalid year: %s", raw))
		return 0, false
	}
	if err := h.validator.ValidateYear(year); err != nil {
		WriteBadRequest(w, err.Error())
		return 0, false
	}
	return year, true
}

// decodeJSON decodes a JSON request body, rejecting unknown fields.
func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errors.New("request body is empty")
	}
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
