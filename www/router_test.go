package www

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"floorwatch/config"
	"floorwatch/diagnostics"
	"floorwatch/engine"
	"floorwatch/fleet"
	"floorwatch/store"
)

func testRouter(t *testing.T) (http.Handler, *engine.Engine) {
	t.Helper()
	db, err := store.Open(store.MemoryPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.Defaults()
	cfg.Diagnostics.StepInterval = time.Millisecond
	eng := engine.New(engine.Config{AppConfig: cfg, DB: db})
	eng.Start()
	t.Cleanup(eng.Stop)

	h, stop := NewRouter(eng)
	t.Cleanup(stop)
	return h, eng
}

func do(t *testing.T, h http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

// --- Machines ---

func TestListAndGetMachines(t *testing.T) {
	h, _ := testRouter(t)

	rec := do(t, h, "GET", "/api/machines", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if list := decode[[]fleet.Machine](t, rec); len(list) != 6 {
		t.Errorf("len = %d, want 6", len(list))
	}

	rec = do(t, h, "GET", "/api/machines/2", "")
	if m := decode[fleet.Machine](t, rec); m.Name != "3D Printer #2" {
		t.Errorf("machine 2 = %+v", m)
	}

	if rec := do(t, h, "GET", "/api/machines/99", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown id status = %d", rec.Code)
	}
	if rec := do(t, h, "GET", "/api/machines/abc", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d", rec.Code)
	}
}

func TestControlMachine(t *testing.T) {
	h, _ := testRouter(t)

	tests := []struct {
		action   string
		wantCode int
		status   fleet.Status
		perf     float64
	}{
		{"stop", http.StatusOK, fleet.StatusIdle, 0},
		{"start", http.StatusOK, fleet.StatusRunning, 85},
		{"restart", http.StatusOK, fleet.StatusRunning, 90},
		{"explode", http.StatusOK, fleet.StatusRunning, 90},
	}
	for _, tt := range tests {
		rec := do(t, h, "POST", "/api/machines/1/control", `{"action":"`+tt.action+`"}`)
		if rec.Code != tt.wantCode {
			t.Fatalf("%s: status = %d", tt.action, rec.Code)
		}
		m := decode[fleet.Machine](t, rec)
		if m.Status != tt.status || m.Performance != tt.perf {
			t.Errorf("%s: got (%s, %v), want (%s, %v)", tt.action, m.Status, m.Performance, tt.status, tt.perf)
		}
	}

	if rec := do(t, h, "POST", "/api/machines/1/control", `not json`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad body status = %d", rec.Code)
	}
	if rec := do(t, h, "POST", "/api/machines/42/control", `{"action":"start"}`); rec.Code != http.StatusNotFound {
		t.Errorf("unknown machine status = %d", rec.Code)
	}
}

func TestUpdateMachine(t *testing.T) {
	h, eng := testRouter(t)
	before := eng.Fleet().List()

	m := before[3]
	m.Name = "Assembly Robot #4 (line B)"
	m.Performance = 150 // not validated
	body, _ := json.Marshal(m)

	rec := do(t, h, "PUT", "/api/machines/4", string(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	got := decode[fleet.Machine](t, rec)
	if got.Name != m.Name || got.Performance != 150 {
		t.Errorf("updated = %+v", got)
	}

	after := eng.Fleet().List()
	for i := range after {
		if after[i].ID == 4 {
			continue
		}
		if after[i].Name != before[i].Name || after[i].Status != before[i].Status {
			t.Errorf("machine %d changed", after[i].ID)
		}
	}

	if rec := do(t, h, "PUT", "/api/machines/5", string(body)); rec.Code != http.StatusBadRequest {
		t.Errorf("mismatched id status = %d", rec.Code)
	}
}

func TestUpdateMachineWithoutErrorsField(t *testing.T) {
	h, _ := testRouter(t)

	rec := do(t, h, "PUT", "/api/machines/1", `{"id":1,"name":"CNC Machine #1","status":"running","performance":85}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, "GET", "/api/machines/1", "")
	if !strings.Contains(rec.Body.String(), `"errors":[]`) {
		t.Errorf("body = %s, want empty errors list", rec.Body.String())
	}
}

func TestStats(t *testing.T) {
	h, _ := testRouter(t)
	s := decode[map[string]float64](t, do(t, h, "GET", "/api/stats", ""))
	if s["total"] != 6 || s["running"] != 3 || s["idle"] != 2 || s["maintenance"] != 1 {
		t.Errorf("counts = %v", s)
	}
	if s["roundedAverage"] != 58 {
		t.Errorf("roundedAverage = %v, want 58", s["roundedAverage"])
	}
}

// --- Diagnostics ---

func TestDiagnosticsLifecycle(t *testing.T) {
	h, _ := testRouter(t)

	rec := do(t, h, "POST", "/api/machines/3/diagnostics", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("start status = %d", rec.Code)
	}
	run := decode[diagnosticsResponse](t, rec)
	if run.ID == "" || run.Done {
		t.Fatalf("run = %+v", run)
	}

	var done diagnosticsResponse
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		done = decode[diagnosticsResponse](t, do(t, h, "GET", "/api/diagnostics/"+run.ID, ""))
		if done.Done {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !done.Done || done.Progress != 100 || len(done.Results) != 5 {
		t.Fatalf("finished run = %+v", done)
	}
	if len(done.Recommendations) != len(diagnostics.Recommendations) {
		t.Errorf("recommendations = %d", len(done.Recommendations))
	}

	if rec := do(t, h, "DELETE", "/api/diagnostics/"+run.ID, ""); rec.Code != http.StatusOK {
		t.Errorf("clear status = %d", rec.Code)
	}
	if rec := do(t, h, "GET", "/api/diagnostics/"+run.ID, ""); rec.Code != http.StatusNotFound {
		t.Errorf("get after clear status = %d", rec.Code)
	}
	if rec := do(t, h, "POST", "/api/machines/77/diagnostics", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown machine status = %d", rec.Code)
	}
}

// --- Activity and notifications ---

func TestActivityFilter(t *testing.T) {
	h, _ := testRouter(t)
	do(t, h, "POST", "/api/machines/1/control", `{"action":"stop"}`)
	do(t, h, "POST", "/api/machines/2/control", `{"action":"start"}`)

	all := decode[[]store.Activity](t, do(t, h, "GET", "/api/activity", ""))
	if len(all) != 2 {
		t.Fatalf("all = %d, want 2", len(all))
	}
	one := decode[[]store.Activity](t, do(t, h, "GET", "/api/activity?machine=1", ""))
	if len(one) != 1 || one[0].MachineID != 1 {
		t.Errorf("machine 1 = %+v", one)
	}
	limited := decode[[]store.Activity](t, do(t, h, "GET", "/api/activity?limit=1", ""))
	if len(limited) != 1 {
		t.Errorf("limited = %d", len(limited))
	}
	if rec := do(t, h, "GET", "/api/activity?limit=-3", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", rec.Code)
	}
}

func TestNotifications(t *testing.T) {
	h, _ := testRouter(t)

	list := decode[[]store.Notification](t, do(t, h, "GET", "/api/notifications", ""))
	if len(list) != 4 {
		t.Fatalf("len = %d, want 4", len(list))
	}

	var unreadID int64
	for _, n := range list {
		if !n.Read {
			unreadID = n.ID
			break
		}
	}
	res := decode[map[string]int](t, do(t, h, "POST", "/api/notifications/"+itoa(unreadID)+"/read", ""))
	if res["unread"] != 1 {
		t.Errorf("unread after one = %d", res["unread"])
	}
	if rec := do(t, h, "POST", "/api/notifications/9999/read", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing status = %d", rec.Code)
	}
	res = decode[map[string]int](t, do(t, h, "POST", "/api/notifications/read-all", ""))
	if res["unread"] != 0 {
		t.Errorf("unread after all = %d", res["unread"])
	}
}

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

// --- Preferences ---

func TestPreferencesRoundTrip(t *testing.T) {
	h, _ := testRouter(t)

	prefs := decode[Preferences](t, do(t, h, "GET", "/api/preferences", ""))
	if prefs != DefaultPreferences() {
		t.Errorf("defaults = %+v", prefs)
	}

	rec := do(t, h, "PUT", "/api/preferences", `{"temperatureUnit":"F","emailAlerts":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d body=%s", rec.Code, rec.Body.String())
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("no session cookie set")
	}

	got := decode[Preferences](t, do(t, h, "GET", "/api/preferences", "", cookies...))
	if got.TemperatureUnit != "F" || got.EmailAlerts || got.DisplayName != "Admin User" {
		t.Errorf("stored = %+v", got)
	}

	page := do(t, h, "GET", "/monitoring", "", cookies...)
	if !strings.Contains(page.Body.String(), "°F") {
		t.Error("monitoring page ignores temperature unit")
	}

	if rec := do(t, h, "PUT", "/api/preferences", `{"temperatureUnit":"K"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid unit status = %d", rec.Code)
	}
}

// --- Pages ---

func TestPages(t *testing.T) {
	h, _ := testRouter(t)

	tests := []struct {
		path string
		want string
	}{
		{"/", "Total Machines"},
		{"/machines", "Total: 6 machines"},
		{"/machines/1", "Remote Diagnostics"},
		{"/monitoring", "Temperature"},
		{"/notifications", "Performance Alert"},
		{"/settings", "Maintenance Reminders"},
	}
	for _, tt := range tests {
		rec := do(t, h, "GET", tt.path, "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d body=%s", tt.path, rec.Code, rec.Body.String())
			continue
		}
		if !strings.Contains(rec.Body.String(), tt.want) {
			t.Errorf("%s: missing %q", tt.path, tt.want)
		}
	}

	if rec := do(t, h, "GET", "/machines/99", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown machine page status = %d", rec.Code)
	}
}

func TestMachinesPageButtons(t *testing.T) {
	h, _ := testRouter(t)
	body := do(t, h, "GET", "/machines", "").Body.String()

	if !strings.Contains(body, `<button class="btn" disabled title="Machines are managed outside the dashboard">Add Machine</button>`) {
		t.Error("Add Machine should be rendered disabled")
	}
	// Machine 1 is running: start disabled, stop enabled.
	if !strings.Contains(body, `data-action="start" data-id="1" disabled`) {
		t.Error("start should be disabled for a running machine")
	}
	if strings.Contains(body, `data-action="stop" data-id="1" disabled`) {
		t.Error("stop should be enabled for a running machine")
	}
	// Machine 2 is idle: stop disabled.
	if !strings.Contains(body, `data-action="stop" data-id="2" disabled`) {
		t.Error("stop should be disabled for an idle machine")
	}
}

// --- Operations endpoints ---

func TestHealthAndMetrics(t *testing.T) {
	h, _ := testRouter(t)

	if rec := do(t, h, "GET", "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rec.Code)
	}

	do(t, h, "POST", "/api/machines/1/control", `{"action":"stop"}`)
	body := do(t, h, "GET", "/metrics", "").Body.String()
	for _, want := range []string{
		`floorwatch_control_actions_total{action="stop"} 1`,
		`floorwatch_machines{status="running"} 2`,
		`floorwatch_notifications_total{kind="warning"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestSSEStreamsMachineUpdates(t *testing.T) {
	h, eng := testRouter(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, "GET", srv.URL+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	if err != nil || !strings.HasPrefix(line, "event: connected") {
		t.Fatalf("first line = %q err=%v", line, err)
	}

	eng.Fleet().Control(2, fleet.ActionStart)

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if strings.HasPrefix(line, "event: machine-update") {
			data, _ := reader.ReadString('\n')
			if !strings.Contains(data, `"status":"running"`) {
				t.Errorf("data = %q", data)
			}
			return
		}
	}
}
