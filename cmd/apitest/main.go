// Command apitest runs smoke tests against a running calendar API and
// cross-checks its date arithmetic against the time package.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// Response Types - Match the actual API response structure
// =============================================================================

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

type ErrorInfo struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// DayInfo is the response for /calendar/today, /calendar/weekday and
// /calendar/epoch/{days}
type DayInfo struct {
	Date      string `json:"date"`
	Year      int    `json:"year"`
	Month     int    `json:"month"`
	MonthName string `json:"month_name"`
	Day       int    `json:"day"`
	Weekday   string `json:"weekday"`
	DayOfYear int    `json:"day_of_year"`
	EpochDays int64  `json:"epoch_days"`
	LeapYear  bool   `json:"leap_year"`
}

type LeapYearResponse struct {
	Year     int  `json:"year"`
	LeapYear bool `json:"leap_year"`
	Days     int  `json:"days"`
}

// MonthResponse is the response for /calendar/{year}/{month}
type MonthResponse struct {
	Year         int      `json:"year"`
	Month        int      `json:"month"`
	Name         string   `json:"name"`
	FirstWeekday string   `json:"first_weekday"`
	Days         int      `json:"days"`
	Weeks        [][7]int `json:"weeks"`
	Previous     string   `json:"previous"`
	Next         string   `json:"next"`
}

type Event struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Date  string `json:"date"`
}

// HealthResponse is the response for /health
type HealthResponse struct {
	Status string `json:"status"`
}

// =============================================================================
// Test Runner
// =============================================================================

type TestRunner struct {
	baseURL      string
	apiKey       string
	client       *http.Client
	verbose      bool
	sweepYears   int
	successCount int
	errorCount   int
	errors       []string
}

func NewTestRunner(baseURL, apiKey string, verbose bool, sweepYears int) *TestRunner {
	return &TestRunner{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		verbose:    verbose,
		sweepYears: sweepYears,
	}
}

func (tr *TestRunner) Run() {
	fmt.Println("==============================================")
	fmt.Println("Calendar API Test Suite")
	fmt.Println("==============================================")
	fmt.Printf("Base URL: %s\n", tr.baseURL)
	fmt.Println()

	// Run test groups
	tr.testHealth()
	tr.testToday()
	tr.testKnownDates()
	tr.testLeapYears()
	tr.testMonthGrid()
	tr.testEdgeCases()
	if tr.apiKey != "" {
		tr.testEventLifecycle()
	}
	if tr.sweepYears > 0 {
		tr.testWeekdaySweep()
	}

	// Print summary
	tr.printSummary()
}

// =============================================================================
// Test Groups
// =============================================================================

func (tr *TestRunner) testHealth() {
	tr.printSection("Health Check")

	resp, err := tr.get("/health")
	if err != nil {
		tr.recordError("Health", err.Error())
		return
	}

	var health HealthResponse
	if err := tr.parseDataAs(resp, &health); err != nil {
		tr.recordError("Health", err.Error())
		return
	}

	if health.Status == "healthy" {
		tr.recordSuccess("Health check passed")
	} else {
		tr.recordError("Health", fmt.Sprintf("Unexpected status: %s", health.Status))
	}
}

func (tr *TestRunner) testToday() {
	tr.printSection("Today")

	resp, err := tr.get("/api/v1/calendar/today")
	if err != nil {
		tr.recordError("Today", err.Error())
		return
	}

	var day DayInfo
	if err := tr.parseDataAs(resp, &day); err != nil {
		tr.recordError("Today", err.Error())
		return
	}

	// The server may be in another time zone, so allow a day either way.
	now := time.Now().UTC()
	got, err := time.Parse("2006-01-02", day.Date)
	if err != nil {
		tr.recordError("Today", fmt.Sprintf("bad date %q", day.Date))
		return
	}
	if diff := got.Sub(now.Truncate(24 * time.Hour)); diff < -24*time.Hour || diff > 24*time.Hour {
		tr.recordError("Today", fmt.Sprintf("server date %s is far from %s", day.Date, now.Format("2006-01-02")))
		return
	}
	tr.recordSuccess(fmt.Sprintf("Today is %s, %s (day %d)", day.Weekday, day.Date, day.DayOfYear))
}

func (tr *TestRunner) testKnownDates() {
	tr.printSection("Known Dates")

	testCases := []struct {
		year, month, day int
		weekday          string
		epoch            int64
		description      string
	}{
		{1970, 1, 1, "Thursday", 0, "Unix epoch"},
		{1969, 12, 31, "Wednesday", -1, "Day before the epoch"},
		{2000, 2, 29, "Tuesday", 11016, "Leap day of a 400 year"},
		{2022, 7, 4, "Monday", 19177, "Independence Day 2022"},
		{1752, 9, 14, "Thursday", -79366, "Proleptic Gregorian, no British gap"},
		{2038, 1, 19, "Tuesday", 24855, "32-bit time_t rollover"},
		{9999, 12, 31, "Friday", 2932896, "Last supported day"},
	}

	for _, tc := range testCases {
		name := fmt.Sprintf("%04d-%02d-%02d", tc.year, tc.month, tc.day)
		resp, err := tr.get(fmt.Sprintf("/api/v1/calendar/weekday?year=%d&month=%d&day=%d", tc.year, tc.month, tc.day))
		if err != nil {
			tr.recordError(name, err.Error())
			continue
		}

		var day DayInfo
		if err := tr.parseDataAs(resp, &day); err != nil {
			tr.recordError(name, err.Error())
			continue
		}

		if day.Weekday != tc.weekday || day.EpochDays != tc.epoch {
			tr.recordError(name, fmt.Sprintf("Expected %s/%d, got %s/%d",
				tc.weekday, tc.epoch, day.Weekday, day.EpochDays))
			continue
		}

		// And back again.
		resp, err = tr.get(fmt.Sprintf("/api/v1/calendar/epoch/%d", tc.epoch))
		if err != nil {
			tr.recordError(name+" (epoch)", err.Error())
			continue
		}
		var back DayInfo
		if err := tr.parseDataAs(resp, &back); err != nil {
			tr.recordError(name+" (epoch)", err.Error())
			continue
		}
		if back.Date != name {
			tr.recordError(name+" (epoch)", fmt.Sprintf("epoch %d resolved to %s", tc.epoch, back.Date))
			continue
		}

		tr.recordSuccess(fmt.Sprintf("%s: %s, epoch %d (%s)", name, day.Weekday, day.EpochDays, tc.description))
	}
}

func (tr *TestRunner) testLeapYears() {
	tr.printSection("Leap Years")

	testCases := []struct {
		year int
		leap bool
	}{
		{1600, true},
		{1900, false},
		{2000, true},
		{2023, false},
		{2024, true},
		{2100, false},
	}

	for _, tc := range testCases {
		resp, err := tr.get(fmt.Sprintf("/api/v1/calendar/leap/%d", tc.year))
		if err != nil {
			tr.recordError(fmt.Sprint(tc.year), err.Error())
			continue
		}

		var data LeapYearResponse
		if err := tr.parseDataAs(resp, &data); err != nil {
			tr.recordError(fmt.Sprint(tc.year), err.Error())
			continue
		}

		wantDays := 365
		if tc.leap {
			wantDays = 366
		}
		if data.LeapYear == tc.leap && data.Days == wantDays {
			tr.recordSuccess(fmt.Sprintf("%d: leap=%t, %d days", tc.year, data.LeapYear, data.Days))
		} else {
			tr.recordError(fmt.Sprint(tc.year), fmt.Sprintf("Expected leap=%t, got leap=%t days=%d",
				tc.leap, data.LeapYear, data.Days))
		}
	}
}

func (tr *TestRunner) testMonthGrid() {
	tr.printSection("Month Grid")

	resp, err := tr.get("/api/v1/calendar/2022/7")
	if err != nil {
		tr.recordError("July 2022", err.Error())
		return
	}

	var month MonthResponse
	if err := tr.parseDataAs(resp, &month); err != nil {
		tr.recordError("July 2022", err.Error())
		return
	}

	switch {
	case month.Days != 31:
		tr.recordError("July 2022", fmt.Sprintf("Expected 31 days, got %d", month.Days))
	case month.FirstWeekday != "Friday":
		tr.recordError("July 2022", fmt.Sprintf("Expected Friday start, got %s", month.FirstWeekday))
	case len(month.Weeks) != 6 || month.Weeks[0][5] != 1 || month.Weeks[5][0] != 31:
		tr.recordError("July 2022", fmt.Sprintf("Unexpected grid %v", month.Weeks))
	case month.Previous != "2022-06" || month.Next != "2022-08":
		tr.recordError("July 2022", fmt.Sprintf("Unexpected neighbours %s / %s", month.Previous, month.Next))
	default:
		tr.recordSuccess("July 2022 grid starts Friday and ends on row 6")
	}

	if tr.verbose {
		for _, week := range month.Weeks {
			fmt.Printf("    %v\n", week)
		}
	}

	// December rolls into the next year.
	resp, err = tr.get("/api/v1/calendar/2024/12")
	if err != nil {
		tr.recordError("December 2024", err.Error())
		return
	}
	if err := tr.parseDataAs(resp, &month); err != nil {
		tr.recordError("December 2024", err.Error())
		return
	}
	if month.Next == "2025-01" {
		tr.recordSuccess("December 2024 is followed by 2025-01")
	} else {
		tr.recordError("December 2024", fmt.Sprintf("Expected next 2025-01, got %s", month.Next))
	}
}

func (tr *TestRunner) testEdgeCases() {
	tr.printSection("Edge Cases")

	cases := []struct {
		path   string
		status int
		desc   string
	}{
		{"/api/v1/calendar/2023/13", 400, "Month 13 rejected"},
		{"/api/v1/calendar/2023/0", 400, "Month 0 rejected"},
		{"/api/v1/calendar/1000", 400, "Year before the supported range rejected"},
		{"/api/v1/calendar/weekday?year=2023&month=2&day=29", 400, "February 29 in a common year rejected"},
		{"/api/v1/calendar/weekday?year=2023&month=2", 400, "Missing day parameter rejected"},
		{"/api/v1/calendar/epoch/abc", 400, "Non-numeric day count rejected"},
		{"/api/v1/calendar/epoch/99999999", 400, "Day count past the supported range rejected"},
		{"/api/v1/events/999999999", 404, "Unknown event returns 404"},
		{"/api/v1/nowhere", 404, "Unknown route returns 404"},
	}

	for _, tc := range cases {
		resp, err := tr.getRaw(tc.path)
		if err != nil {
			tr.recordError(tc.path, err.Error())
			continue
		}
		resp.Body.Close()

		if resp.StatusCode == tc.status {
			tr.recordSuccess(tc.desc)
		} else {
			tr.recordError(tc.path, fmt.Sprintf("Expected HTTP %d, got %d", tc.status, resp.StatusCode))
		}
	}
}

func (tr *TestRunner) testEventLifecycle() {
	tr.printSection("Event Lifecycle")

	// Without a key the write must be refused.
	resp, err := tr.send(http.MethodPost, "/api/v1/events", "", map[string]string{
		"title": "apitest", "date": "2024-02-29",
	})
	if err != nil {
		tr.recordError("Create (no key)", err.Error())
		return
	}
	resp.Body.Close()
	if resp.StatusCode == 401 {
		tr.recordSuccess("Create without API key rejected")
	} else {
		tr.recordError("Create (no key)", fmt.Sprintf("Expected HTTP 401, got %d", resp.StatusCode))
	}

	resp, err = tr.send(http.MethodPost, "/api/v1/events", tr.apiKey, map[string]string{
		"title": "apitest leap day", "date": "2024-02-29",
	})
	if err != nil {
		tr.recordError("Create", err.Error())
		return
	}
	var created Event
	if err := tr.decode(resp, http.StatusCreated, &created); err != nil {
		tr.recordError("Create", err.Error())
		return
	}
	tr.recordSuccess(fmt.Sprintf("Created event %d on %s", created.ID, created.Date))

	apiResp, err := tr.get("/api/v1/events?date=2024-02-29")
	if err != nil {
		tr.recordError("List", err.Error())
	} else {
		var list struct {
			Events []Event `json:"events"`
		}
		if err := tr.parseDataAs(apiResp, &list); err != nil {
			tr.recordError("List", err.Error())
		} else if !containsEvent(list.Events, created.ID) {
			tr.recordError("List", fmt.Sprintf("event %d missing from its day", created.ID))
		} else {
			tr.recordSuccess("Event listed on 2024-02-29")
		}
	}

	resp, err = tr.send(http.MethodDelete, fmt.Sprintf("/api/v1/events/%d", created.ID), tr.apiKey, nil)
	if err != nil {
		tr.recordError("Delete", err.Error())
		return
	}
	if err := tr.decode(resp, http.StatusOK, nil); err != nil {
		tr.recordError("Delete", err.Error())
		return
	}
	tr.recordSuccess(fmt.Sprintf("Deleted event %d", created.ID))
}

// testWeekdaySweep checks every day of the sweep years against the time
// package, which also uses the proleptic Gregorian calendar.
func (tr *TestRunner) testWeekdaySweep() {
	first := time.Now().UTC().Year() - tr.sweepYears/2
	last := first + tr.sweepYears - 1
	tr.printSection(fmt.Sprintf("Weekday Sweep %d-%d", first, last))

	start := time.Date(first, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(last+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	checked, failed := 0, 0

	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		epoch := d.Unix() / 86400
		resp, err := tr.get(fmt.Sprintf("/api/v1/calendar/epoch/%d", epoch))
		checked++
		if err != nil {
			failed++
			tr.recordError(d.Format("2006-01-02"), err.Error())
			continue
		}

		var day DayInfo
		if err := tr.parseDataAs(resp, &day); err != nil {
			failed++
			tr.recordError(d.Format("2006-01-02"), err.Error())
			continue
		}
		if day.Date != d.Format("2006-01-02") || day.Weekday != d.Weekday().String() || day.DayOfYear != d.YearDay() {
			failed++
			tr.recordError(d.Format("2006-01-02"), fmt.Sprintf("got %s %s day %d", day.Date, day.Weekday, day.DayOfYear))
		}
	}

	if failed == 0 {
		tr.recordSuccess(fmt.Sprintf("%d days match the time package", checked))
	}
}

// =============================================================================
// Helper Methods
// =============================================================================

func (tr *TestRunner) get(path string) (*APIResponse, error) {
	resp, err := tr.getRaw(path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read error: %w", err)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	if !apiResp.Success {
		errMsg := "unknown error"
		if apiResp.Error != nil {
			errMsg = apiResp.Error.Message
		}
		return nil, fmt.Errorf("API error: %s", errMsg)
	}

	return &apiResp, nil
}

// getRaw waits out rate limiting, which the sweep is bound to hit.
func (tr *TestRunner) getRaw(path string) (*http.Response, error) {
	url := tr.baseURL + path
	for attempt := 0; ; attempt++ {
		resp, err := tr.client.Get(url)
		if err != nil || resp.StatusCode != http.StatusTooManyRequests || attempt == 5 {
			return resp, err
		}
		resp.Body.Close()

		wait := time.Second
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			wait = time.Duration(secs) * time.Second
		}
		time.Sleep(wait)
	}
}

// send issues a request with an optional JSON body and API key.
func (tr *TestRunner) send(method, path, apiKey string, body interface{}) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, tr.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	return tr.client.Do(req)
}

// decode checks the status of resp and unmarshals its data into target,
// which may be nil.
func (tr *TestRunner) decode(resp *http.Response, status int, target interface{}) error {
	defer resp.Body.Close()

	var apiResp APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return fmt.Errorf("parse error: %w", err)
	}
	if resp.StatusCode != status {
		msg := ""
		if apiResp.Error != nil {
			msg = apiResp.Error.Message
		}
		return fmt.Errorf("expected HTTP %d, got %d: %s", status, resp.StatusCode, msg)
	}
	if target == nil {
		return nil
	}
	return tr.parseDataAs(&apiResp, target)
}

func (tr *TestRunner) parseDataAs(resp *APIResponse, target interface{}) error {
	// Re-marshal and unmarshal to convert map to struct
	dataBytes, err := json.Marshal(resp.Data)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}
	return json.Unmarshal(dataBytes, target)
}

func containsEvent(events []Event, id int64) bool {
	for _, e := range events {
		if e.ID == id {
			return true
		}
	}
	return false
}

func (tr *TestRunner) printSection(name string) {
	fmt.Println()
	fmt.Printf("--- %s ---\n", name)
	fmt.Println()
}

func (tr *TestRunner) recordSuccess(msg string) {
	tr.successCount++
	fmt.Printf("  ✓ %s\n", msg)
}

func (tr *TestRunner) recordError(context, msg string) {
	tr.errorCount++
	errStr := fmt.Sprintf("%s: %s", context, msg)
	tr.errors = append(tr.errors, errStr)
	fmt.Printf("  ✗ %s\n", errStr)
}

func (tr *TestRunner) printSummary() {
	fmt.Println()
	fmt.Println("==============================================")
	fmt.Println("Summary")
	fmt.Println("==============================================")
	fmt.Printf("  Passed: %d\n", tr.successCount)
	fmt.Printf("  Failed: %d\n", tr.errorCount)
	fmt.Println()

	if tr.errorCount > 0 {
		fmt.Println("Failures:")
		for _, err := range tr.errors {
			fmt.Printf("  • %s\n", err)
		}
		fmt.Println()
	}

	if tr.errorCount == 0 {
		fmt.Println("All tests passed! ✓")
	} else {
		fmt.Printf("Tests completed with %d failure(s)\n", tr.errorCount)
	}
}

// =============================================================================
// Main
// =============================================================================

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Base URL of the API")
	apiKey := flag.String("key", os.Getenv("API_KEY"), "API key for the event write tests (skipped when empty)")
	sweep := flag.Int("sweep", 0, "Check every day of this many years around today against the time package")
	verbose := flag.Bool("v", false, "Verbose output (show month grids)")
	flag.Parse()

	// Check if server is reachable
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(*baseURL + "/health")
	if err != nil {
		fmt.Printf("Error: Cannot connect to %s\n", *baseURL)
		fmt.Println("Make sure the API server is running.")
		os.Exit(1)
	}
	resp.Body.Close()

	runner := NewTestRunner(*baseURL, *apiKey, *verbose, *sweep)
	runner.Run()

	// Exit with error code if tests failed
	if runner.errorCount > 0 {
		os.Exit(1)
	}
}
