package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type testProgram struct {
	Name       string `toml:"name"`
	ExposureUS int    `toml:"exposure_us"`
}

func loadTestProgram(path string) (testProgram, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return testProgram{}, err
	}
	var p testProgram
	err = toml.Unmarshal(data, &p)
	return p, err
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeProgram(t *testing.T, path string, name string, exposure int) {
	t.Helper()
	body := fmt.Sprintf("name = %q\nexposure_us = %d\n", name, exposure)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func startWatcher(t *testing.T, w *Watcher[testProgram]) {
	t.Helper()
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := w.Stop(); err != nil {
			t.Errorf("Stop() error = %v", err)
		}
	})
	// Let the watch loop settle
	time.Sleep(50 * time.Millisecond)
}

func TestWatcher_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "program.toml")
	writeProgram(t, path, "initial", 1000)

	received := make(chan testProgram, 1)
	w := NewFileWatcher(path, loadTestProgram, newTestLogger(), WithDebounce[testProgram](50*time.Millisecond))
	w.OnReload(func(p testProgram) { received <- p })
	startWatcher(t, w)

	writeProgram(t, path, "updated", 10000)

	select {
	case p := <-received:
		if p.Name != "updated" || p.ExposureUS != 10000 {
			t.Errorf("got %+v, want name=updated exposure_us=10000", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
}

func TestWatcher_AtomicRename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "program.toml")
	writeProgram(t, path, "initial", 1000)

	received := make(chan testProgram, 4)
	w := NewFileWatcher(path, loadTestProgram, newTestLogger(), WithDebounce[testProgram](50*time.Millisecond))
	w.OnReload(func(p testProgram) { received <- p })
	startWatcher(t, w)

	tmp := filepath.Join(dir, ".program.toml.swp")
	writeProgram(t, tmp, "renamed", 2000)
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	select {
	case p := <-received:
		if p.Name != "renamed" {
			t.Errorf("got %+v, want name=renamed", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload after rename")
	}
}

func TestWatcher_IgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "program.toml")
	writeProgram(t, path, "initial", 1000)

	var count atomic.Int32
	w := NewFileWatcher(path, loadTestProgram, newTestLogger(), WithDebounce[testProgram](20*time.Millisecond))
	w.OnReload(func(testProgram) { count.Add(1) })
	startWatcher(t, w)

	writeProgram(t, filepath.Join(dir, "other.toml"), "other", 1)
	time.Sleep(200 * time.Millisecond)

	if got := count.Load(); got != 0 {
		t.Errorf("handler called %d times for a sibling file", got)
	}
}

func TestWatcher_MultipleHandlersSameValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "program.toml")
	writeProgram(t, path, "test", 1)

	var mu sync.Mutex
	var got []testProgram
	w := NewFileWatcher(path, loadTestProgram, newTestLogger(), WithDebounce[testProgram](50*time.Millisecond))
	for range 3 {
		w.OnReload(func(p testProgram) {
			mu.Lock()
			got = append(got, p)
			mu.Unlock()
		})
	}
	startWatcher(t, w)

	writeProgram(t, path, "new", 2)
	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 3 {
		t.Fatalf("handlers called %d times, want 3", len(got))
	}
	for i, p := range got {
		if p.Name != "new" || p.ExposureUS != 2 {
			t.Errorf("handler %d got %+v", i, p)
		}
	}
}

func TestWatcher_Unsubscribe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "program.toml")
	writeProgram(t, path, "a", 1)

	var count1, count2 atomic.Int32
	w := NewFileWatcher(path, loadTestProgram, newTestLogger(), WithDebounce[testProgram](50*time.Millisecond))
	w.OnReload(func(testProgram) { count1.Add(1) })
	unsub := w.OnReload(func(testProgram) { count2.Add(1) })
	startWatcher(t, w)

	writeProgram(t, path, "b", 10)
	time.Sleep(250 * time.Millisecond)

	unsub()
	unsub() // idempotent

	writeProgram(t, path, "c", 20)
	time.Sleep(250 * time.Millisecond)

	if got := count1.Load(); got != 2 {
		t.Errorf("handler1 calls = %d, want 2", got)
	}
	if got := count2.Load(); got != 1 {
		t.Errorf("handler2 calls = %d, want 1", got)
	}
}

func TestWatcher_ErrorHandler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "program.toml")
	writeProgram(t, path, "valid", 1)

	errs := make(chan error, 1)
	values := make(chan testProgram, 1)
	w := NewFileWatcher(path, loadTestProgram, newTestLogger(),
		WithDebounce[testProgram](50*time.Millisecond),
		WithErrorHandler[testProgram](func(err error) { errs <- err }),
	)
	w.OnReload(func(p testProgram) { values <- p })
	startWatcher(t, w)

	if err := os.WriteFile(path, []byte("invalid toml [[["), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-errs:
	case <-values:
		t.Fatal("handler should not be called on a load error")
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error handler")
	}
}

func TestWatcher_Debounce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "program.toml")
	writeProgram(t, path, "p", 0)

	var count, last atomic.Int32
	w := NewFileWatcher(path, loadTestProgram, newTestLogger(), WithDebounce[testProgram](200*time.Millisecond))
	w.OnReload(func(p testProgram) {
		count.Add(1)
		last.Store(int32(p.ExposureUS))
	})
	startWatcher(t, w)

	for i := 1; i <= 5; i++ {
		writeProgram(t, path, "p", i)
		time.Sleep(40 * time.Millisecond)
	}
	time.Sleep(500 * time.Millisecond)

	if got := count.Load(); got != 1 {
		t.Errorf("handler calls = %d, want 1 debounced call", got)
	}
	if got := last.Load(); got != 5 {
		t.Errorf("last exposure = %d, want 5", got)
	}
}

func TestWatcher_ConcurrentSubscribe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "program.toml")
	writeProgram(t, path, "p", 0)

	w := NewFileWatcher(path, loadTestProgram, newTestLogger(), WithDebounce[testProgram](10*time.Millisecond))
	startWatcher(t, w)

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsub := w.OnReload(func(testProgram) {})
			time.Sleep(time.Millisecond)
			unsub()
		}()
	}
	for i := range 10 {
		writeProgram(t, path, "p", i)
		time.Sleep(20 * time.Millisecond)
	}
	wg.Wait()
}

func TestWatcher_Stop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "program.toml")
	writeProgram(t, path, "p", 1)

	var count atomic.Int32
	w := NewFileWatcher(path, loadTestProgram, newTestLogger(), WithDebounce[testProgram](50*time.Millisecond))
	w.OnReload(func(testProgram) { count.Add(1) })
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)

	if err := w.Stop(); err != nil {
		t.Fatal(err)
	}

	writeProgram(t, path, "p", 99)
	time.Sleep(200 * time.Millisecond)

	if got := count.Load(); got != 0 {
		t.Errorf("handler calls after Stop = %d, want 0", got)
	}
	if w.Path() != path {
		t.Errorf("Path() = %q, want %q", w.Path(), path)
	}
}
