package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/smazurov/lcrnode/internal/api/models"
	"github.com/smazurov/lcrnode/internal/device"
	"github.com/smazurov/lcrnode/internal/events"
	"github.com/smazurov/lcrnode/internal/led"
	"github.com/smazurov/lcrnode/internal/logging"
	"github.com/smazurov/lcrnode/internal/program"
	"github.com/smazurov/lcrnode/internal/sequencer"
)

const (
	testUser = "test"
	testPass = "test"
)

var authHeader = "Authorization: Basic " + base64.StdEncoding.EncodeToString([]byte(testUser+":"+testPass))

type testEnv struct {
	server *Server
	api    humatest.TestAPI
	sim    *device.Simulator
	bus    *events.Bus
	leds   *led.Manager
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	sim := device.NewSimulator()
	session := device.NewSession(sim, nil)
	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	bus := events.New()
	ctrl := sequencer.New(session, sequencer.Options{EventBus: bus})
	leds := led.NewManager(led.New(session, nil), bus, logging.GetLogger("led"), led.ManagerOptions{})

	opts.AuthUsername = testUser
	opts.AuthPassword = testPass
	opts.Driver = device.DriverSimulator
	opts.Controller = ctrl
	opts.LEDs = leds
	opts.EventBus = bus
	opts.Applier = &program.Applier{Controller: ctrl, LEDs: leds, EventBus: bus}

	server := NewServer(&opts)
	return &testEnv{
		server: server,
		api:    humatest.Wrap(t, server.GetAPI()),
		sim:    sim,
		bus:    bus,
		leds:   leds,
	}
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("decode %T: %v (body %s)", v, err, body)
	}
	return v
}

func expectStatus(t *testing.T, name string, got, want int, body []byte) {
	t.Helper()
	if got != want {
		t.Fatalf("%s status = %d, want %d (body %s)", name, got, want, body)
	}
}

// stageSequence stages and sends a two-entry one-bit sequence over the API.
func (e *testEnv) stageSequence(t *testing.T) {
	t.Helper()
	steps := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"display mode", http.MethodPut, "/api/sequencer/display-mode", map[string]any{"mode": "pattern"}, http.StatusOK},
		{"entry 0", http.MethodPost, "/api/table/entries", map[string]any{"pattern_index": 0, "bit_depth": 1, "leds": "red", "buffer_swap": true}, http.StatusCreated},
		{"entry 1", http.MethodPost, "/api/table/entries", map[string]any{"pattern_index": 1, "bit_depth": 1, "leds": "red"}, http.StatusCreated},
		{"config", http.MethodPut, "/api/sequencer/config", map[string]any{"num_entries": 2, "repeat": true, "num_patterns_for_trig_out2": 1}, http.StatusOK},
		{"timing", http.MethodPut, "/api/sequencer/timing", map[string]any{"exposure_us": 10000, "frame_us": 10000}, http.StatusOK},
		{"trigger", http.MethodPut, "/api/sequencer/trigger", map[string]any{"mode": "vsync"}, http.StatusOK},
		{"send", http.MethodPost, "/api/table/send", nil, http.StatusOK},
	}
	for _, s := range steps {
		args := []any{authHeader}
		if s.body != nil {
			args = append(args, s.body)
		}
		resp := e.api.Do(s.method, s.path, args...)
		expectStatus(t, s.name, resp.Code, s.want, resp.Body.Bytes())
	}
}

func TestHealthAndVersionNeedNoAuth(t *testing.T) {
	env := newTestEnv(t, Options{})

	resp := env.api.Get("/api/health")
	expectStatus(t, "health", resp.Code, http.StatusOK, resp.Body.Bytes())
	health := decode[models.HealthData](t, resp.Body.Bytes())
	if health.Status != "ok" || !health.Connected {
		t.Errorf("health = %+v, want ok and connected", health)
	}

	resp = env.api.Get("/api/version")
	expectStatus(t, "version", resp.Code, http.StatusOK, resp.Body.Bytes())
	if v := decode[models.VersionData](t, resp.Body.Bytes()); v.GoVersion == "" {
		t.Error("version response has no Go version")
	}
}

func TestProtectedRoutesNeedAuth(t *testing.T) {
	env := newTestEnv(t, Options{})

	if resp := env.api.Get("/api/sequencer"); resp.Code != http.StatusUnauthorized {
		t.Errorf("without auth status = %d, want 401", resp.Code)
	}
	bad := "Authorization: Basic " + base64.StdEncoding.EncodeToString([]byte("test:wrong"))
	if resp := env.api.Get("/api/sequencer", bad); resp.Code != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d, want 401", resp.Code)
	}
	if resp := env.api.Get("/api/sequencer", "Authorization: Bearer abc"); resp.Code != http.StatusUnauthorized {
		t.Errorf("bearer status = %d, want 401", resp.Code)
	}
	if resp := env.api.Get("/api/sequencer", authHeader); resp.Code != http.StatusOK {
		t.Errorf("with auth status = %d, want 200", resp.Code)
	}
}

func TestSequencerLifecycle(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.stageSequence(t)

	resp := env.api.Post("/api/sequencer/start", authHeader)
	expectStatus(t, "start before validate", resp.Code, http.StatusConflict, resp.Body.Bytes())

	resp = env.api.Post("/api/sequencer/validate", authHeader)
	expectStatus(t, "validate", resp.Code, http.StatusOK, resp.Body.Bytes())
	v := decode[models.ValidationData](t, resp.Body.Bytes())
	if !v.OK || v.Diagnostic != "success" {
		t.Fatalf("validation = %+v, want success", v)
	}

	resp = env.api.Post("/api/sequencer/start", authHeader)
	expectStatus(t, "start", resp.Code, http.StatusOK, resp.Body.Bytes())
	if snap := decode[models.SequencerData](t, resp.Body.Bytes()); snap.State != "running" {
		t.Errorf("state after start = %q, want running", snap.State)
	}

	resp = env.api.Put("/api/sequencer/timing", authHeader, map[string]any{"exposure_us": 5000, "frame_us": 5000})
	expectStatus(t, "timing while running", resp.Code, http.StatusConflict, resp.Body.Bytes())

	resp = env.api.Post("/api/sequencer/pause", authHeader)
	expectStatus(t, "pause", resp.Code, http.StatusOK, resp.Body.Bytes())

	resp = env.api.Post("/api/sequencer/stop", authHeader)
	expectStatus(t, "stop", resp.Code, http.StatusOK, resp.Body.Bytes())
	if snap := decode[models.SequencerData](t, resp.Body.Bytes()); snap.State != "stopped" {
		t.Errorf("state after stop = %q, want stopped", snap.State)
	}

	resp = env.api.Get("/api/sequencer/device", authHeader)
	expectStatus(t, "read back", resp.Code, http.StatusOK, resp.Body.Bytes())
	settings := decode[models.DeviceSettingsData](t, resp.Body.Bytes())
	if settings.DisplayMode != "pattern" || settings.Config.NumEntries != 2 || settings.Running {
		t.Errorf("device settings = %+v", settings)
	}
}

func TestSequenceConfigDefaults(t *testing.T) {
	env := newTestEnv(t, Options{})
	for i := range 3 {
		resp := env.api.Post("/api/table/entries", authHeader, map[string]any{"pattern_index": i, "bit_depth": 1})
		expectStatus(t, "add entry", resp.Code, http.StatusCreated, resp.Body.Bytes())
	}

	tests := []struct {
		name string
		body map[string]any
		want models.SequenceConfigData
	}{
		{
			name: "only entry count",
			body: map[string]any{"num_entries": 2},
			want: models.SequenceConfigData{NumEntries: 2, NumPatternsForTrigOut2: 1},
		},
		{
			name: "empty body plays the staged table",
			body: map[string]any{},
			want: models.SequenceConfigData{NumEntries: 3, NumPatternsForTrigOut2: 1},
		},
		{
			name: "repeat only",
			body: map[string]any{"repeat": true},
			want: models.SequenceConfigData{NumEntries: 3, Repeat: true, NumPatternsForTrigOut2: 1},
		},
		{
			name: "explicit values kept",
			body: map[string]any{"num_entries": 1, "repeat": true, "num_patterns_for_trig_out2": 4},
			want: models.SequenceConfigData{NumEntries: 1, Repeat: true, NumPatternsForTrigOut2: 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.api.Put("/api/sequencer/config", authHeader, tt.body)
			expectStatus(t, "config", resp.Code, http.StatusOK, resp.Body.Bytes())
			if got := decode[models.SequencerData](t, resp.Body.Bytes()).Config; got != tt.want {
				t.Errorf("config = %+v, want %+v", got, tt.want)
			}
		})
	}

	resp := env.api.Put("/api/sequencer/config", authHeader, map[string]any{"num_entries": 129})
	expectStatus(t, "entry count above capacity", resp.Code, http.StatusUnprocessableEntity, resp.Body.Bytes())
}

func TestValidateReportsDiagnostics(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.stageSequence(t)
	env.sim.ForceValidation(0x08)

	resp := env.api.Post("/api/sequencer/validate", authHeader)
	expectStatus(t, "validate", resp.Code, http.StatusOK, resp.Body.Bytes())
	v := decode[models.ValidationData](t, resp.Body.Bytes())
	if v.OK || v.Diagnostic != "post_vector_missing" || !v.Advisory || v.Status != 0x08 {
		t.Errorf("validation = %+v, want advisory post_vector_missing", v)
	}

	resp = env.api.Post("/api/sequencer/start", authHeader)
	expectStatus(t, "start after warning", resp.Code, http.StatusConflict, resp.Body.Bytes())
}

func TestValidateUnsentTable(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.stageSequence(t)

	resp := env.api.Post("/api/table/entries", authHeader, map[string]any{"pattern_index": 2, "bit_depth": 1})
	expectStatus(t, "add", resp.Code, http.StatusCreated, resp.Body.Bytes())

	resp = env.api.Post("/api/sequencer/validate", authHeader)
	expectStatus(t, "validate unsent", resp.Code, http.StatusConflict, resp.Body.Bytes())
}

func TestTableRoutes(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.stageSequence(t)

	resp := env.api.Get("/api/table", authHeader)
	expectStatus(t, "table", resp.Code, http.StatusOK, resp.Body.Bytes())
	table := decode[models.TableData](t, resp.Body.Bytes())
	if table.Count != 2 || !table.Sent || table.Capacity != 128 {
		t.Errorf("table = %+v", table)
	}
	if table.Entries[0].LEDs != "red" || table.Entries[0].TriggerType != "internal" || !table.Entries[0].BufferSwap {
		t.Errorf("entry 0 = %+v", table.Entries[0])
	}

	resp = env.api.Get("/api/table/entries/1", authHeader)
	expectStatus(t, "entry 1", resp.Code, http.StatusOK, resp.Body.Bytes())
	if e := decode[models.EntryData](t, resp.Body.Bytes()); e.Index != 1 || e.PatternIndex != 1 {
		t.Errorf("entry 1 = %+v", e)
	}

	resp = env.api.Get("/api/table/entries/9", authHeader)
	expectStatus(t, "entry 9", resp.Code, http.StatusNotFound, resp.Body.Bytes())

	resp = env.api.Post("/api/table/entries", authHeader, map[string]any{"pattern_index": 3, "bit_depth": 8})
	expectStatus(t, "invalid entry", resp.Code, http.StatusUnprocessableEntity, resp.Body.Bytes())

	resp = env.api.Get("/api/table/device", authHeader)
	expectStatus(t, "device table", resp.Code, http.StatusOK, resp.Body.Bytes())
	if dev := decode[models.TableData](t, resp.Body.Bytes()); dev.Count != 2 || dev.Entries[1].PatternIndex != 1 {
		t.Errorf("device table = %+v", dev)
	}

	resp = env.api.Delete("/api/table", authHeader)
	expectStatus(t, "clear", resp.Code, http.StatusOK, resp.Body.Bytes())
	if cleared := decode[models.TableData](t, resp.Body.Bytes()); cleared.Count != 0 || cleared.Sent {
		t.Errorf("cleared table = %+v", cleared)
	}

	resp = env.api.Post("/api/table/send", authHeader)
	expectStatus(t, "send empty", resp.Code, http.StatusUnprocessableEntity, resp.Body.Bytes())
}

func TestDeviceRoutes(t *testing.T) {
	env := newTestEnv(t, Options{})

	resp := env.api.Get("/api/device", authHeader)
	expectStatus(t, "device", resp.Code, http.StatusOK, resp.Body.Bytes())
	dev := decode[models.DeviceData](t, resp.Body.Bytes())
	if !dev.Connected || dev.Driver != "sim" || dev.Firmware.Application != "2.0.0" || dev.Standby {
		t.Errorf("device = %+v", dev)
	}

	resp = env.api.Put("/api/device/orientation", authHeader, map[string]any{"long_axis_flip": true, "short_axis_flip": false})
	expectStatus(t, "orientation", resp.Code, http.StatusOK, resp.Body.Bytes())
	if o := decode[models.ImageOrientationData](t, resp.Body.Bytes()); !o.LongAxisFlip || o.ShortAxisFlip {
		t.Errorf("orientation = %+v", o)
	}

	resp = env.api.Put("/api/device/input", authHeader, map[string]any{"source": "parallel", "port_width": 16})
	expectStatus(t, "input", resp.Code, http.StatusOK, resp.Body.Bytes())
	if in := decode[models.InputSourceData](t, resp.Body.Bytes()); in.Source != "parallel" || in.PortWidth != 16 {
		t.Errorf("input = %+v", in)
	}

	resp = env.api.Put("/api/device/input", authHeader, map[string]any{"source": "test_pattern"})
	expectStatus(t, "input test pattern", resp.Code, http.StatusOK, resp.Body.Bytes())
	if in := decode[models.InputSourceData](t, resp.Body.Bytes()); in.Source != "test_pattern" || in.PortWidth != 0 {
		t.Errorf("input = %+v", in)
	}

	resp = env.api.Put("/api/device/test-pattern", authHeader, map[string]any{"pattern": "checkerboard"})
	expectStatus(t, "test pattern", resp.Code, http.StatusOK, resp.Body.Bytes())
	resp = env.api.Get("/api/device/test-pattern", authHeader)
	if tp := decode[models.TestPatternData](t, resp.Body.Bytes()); tp.Pattern != "checkerboard" {
		t.Errorf("test pattern = %+v", tp)
	}
	resp = env.api.Put("/api/device/test-pattern", authHeader, map[string]any{"pattern": "plaid"})
	expectStatus(t, "unknown test pattern", resp.Code, http.StatusUnprocessableEntity, resp.Body.Bytes())

	resp = env.api.Put("/api/device/standby", authHeader, map[string]any{"standby": true})
	expectStatus(t, "standby", resp.Code, http.StatusNoContent, resp.Body.Bytes())
}

func TestDeviceReset(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.stageSequence(t)

	resp := env.api.Post("/api/device/reset", authHeader)
	expectStatus(t, "reset", resp.Code, http.StatusOK, resp.Body.Bytes())
	snap := decode[models.SequencerData](t, resp.Body.Bytes())
	if snap.DisplayMode != "video" || snap.TableSent || snap.Entries != 2 {
		t.Errorf("snapshot after reset = %+v", snap)
	}
}

func TestDeviceUnavailable(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.sim.Unplug()

	resp := env.api.Get("/api/sequencer/device", authHeader)
	expectStatus(t, "read back unplugged", resp.Code, http.StatusServiceUnavailable, resp.Body.Bytes())

	resp = env.api.Get("/api/health")
	expectStatus(t, "health unplugged", resp.Code, http.StatusOK, resp.Body.Bytes())
}

func TestDeviceRejected(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.sim.Reject(device.CmdTestPattern)

	resp := env.api.Put("/api/device/test-pattern", authHeader, map[string]any{"pattern": "grid"})
	expectStatus(t, "rejected", resp.Code, http.StatusBadGateway, resp.Body.Bytes())
}

func TestLEDRoutes(t *testing.T) {
	env := newTestEnv(t, Options{})

	resp := env.api.Put("/api/leds/currents", authHeader, map[string]any{"red": 0.5, "green": 0.25, "blue": 0.25})
	expectStatus(t, "currents", resp.Code, http.StatusOK, resp.Body.Bytes())

	resp = env.api.Put("/api/leds/enables", authHeader, map[string]any{"sequencer_controlled": false, "red": true, "green": false, "blue": true})
	expectStatus(t, "enables", resp.Code, http.StatusOK, resp.Body.Bytes())

	resp = env.api.Get("/api/leds", authHeader)
	expectStatus(t, "leds", resp.Code, http.StatusOK, resp.Body.Bytes())
	data := decode[models.LEDData](t, resp.Body.Bytes())
	if data.Currents.Red != 0.5 || data.Currents.Green != 0.25 {
		t.Errorf("currents = %+v, want red 0.5 green 0.25", data.Currents)
	}
	if !data.Enables.Red || data.Enables.Green || !data.Enables.Blue {
		t.Errorf("enables = %+v", data.Enables)
	}
	if len(data.Available) != 3 {
		t.Errorf("available = %v, want three colors", data.Available)
	}

	resp = env.api.Put("/api/leds/currents", authHeader, map[string]any{"red": 1.5, "green": 0, "blue": 0})
	expectStatus(t, "out of range", resp.Code, http.StatusUnprocessableEntity, resp.Body.Bytes())
}

func redPlanesProgram() map[string]any {
	entries := make([]map[string]any, 0, 24)
	for i := range 24 {
		entries = append(entries, map[string]any{
			"trigger":     "internal",
			"pattern":     i,
			"bit_depth":   1,
			"leds":        "red",
			"buffer_swap": i == 0,
		})
	}
	return map[string]any{
		"name":           "red-planes",
		"display_mode":   "pattern",
		"pattern_source": "video_port",
		"trigger_mode":   "vsync",
		"start":          true,
		"config":         map[string]any{"repeat": true},
		"timing":         map[string]any{"exposure_us": 10000, "frame_us": 10000},
		"entries":        entries,
	}
}

func TestProgramRoutes(t *testing.T) {
	env := newTestEnv(t, Options{})

	resp := env.api.Post("/api/program", authHeader, redPlanesProgram())
	expectStatus(t, "apply", resp.Code, http.StatusOK, resp.Body.Bytes())
	res := decode[program.Result](t, resp.Body.Bytes())
	if res.Name != "red-planes" || res.Entries != 24 || !res.Started || res.Diagnostic != "success" {
		t.Errorf("result = %+v", res)
	}

	resp = env.api.Get("/api/program", authHeader)
	expectStatus(t, "get program", resp.Code, http.StatusOK, resp.Body.Bytes())
	p := decode[program.Program](t, resp.Body.Bytes())
	if len(p.Entries) != 24 || p.DisplayMode != "pattern" || p.Timing.ExposureMicros != 10000 {
		t.Errorf("program = %+v", p)
	}

	bad := redPlanesProgram()
	bad["entries"] = []map[string]any{}
	resp = env.api.Post("/api/program", authHeader, bad)
	expectStatus(t, "apply empty", resp.Code, http.StatusUnprocessableEntity, resp.Body.Bytes())
}

func TestProgramReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "program.toml")
	env := newTestEnv(t, Options{ProgramPath: path})

	resp := env.api.Post("/api/program/reload", authHeader)
	expectStatus(t, "reload missing", resp.Code, http.StatusNotFound, resp.Body.Bytes())

	doc := "name = \"single\"\n[timing]\nexposure_us = 10000\nframe_us = 10000\n[[entries]]\nbit_depth = 1\nleds = \"green\"\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	resp = env.api.Post("/api/program/reload", authHeader)
	expectStatus(t, "reload", resp.Code, http.StatusOK, resp.Body.Bytes())
	if res := decode[program.Result](t, resp.Body.Bytes()); res.Name != "single" || res.Entries != 1 || res.Started {
		t.Errorf("result = %+v", res)
	}

	if err := os.WriteFile(path, []byte("name = "), 0o644); err != nil {
		t.Fatal(err)
	}
	resp = env.api.Post("/api/program/reload", authHeader)
	expectStatus(t, "reload broken", resp.Code, http.StatusUnprocessableEntity, resp.Body.Bytes())
}

func TestLoggingRoutes(t *testing.T) {
	env := newTestEnv(t, Options{})

	resp := env.api.Put("/api/logging/sequencer", authHeader, map[string]any{"level": "debug"})
	expectStatus(t, "set level", resp.Code, http.StatusOK, resp.Body.Bytes())
	levels := decode[models.LogLevelsData](t, resp.Body.Bytes())
	if levels.Levels["sequencer"] != "debug" {
		t.Errorf("levels = %v, want sequencer=debug", levels.Levels)
	}

	resp = env.api.Put("/api/logging/sequencer", authHeader, map[string]any{"level": "loud"})
	expectStatus(t, "bad level", resp.Code, http.StatusUnprocessableEntity, resp.Body.Bytes())

	if err := logging.SetModuleLevel("sequencer", "info"); err != nil {
		t.Fatal(err)
	}
}
