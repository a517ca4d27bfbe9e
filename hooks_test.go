package archivable_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/zoobzio/archivable"
	"github.com/zoobzio/archivable/msgpack"
	"github.com/zoobzio/archivable/snapshot"
)

type hookedModel struct {
	Rate    float64
	Cache   map[string]int
	Handle  func() string
	Scratch *string
}

// Hooks are registered per type, so each test works on its own copy of
// hookedModel.
type (
	dumpFailedModel    hookedModel
	abortModel         hookedModel
	restoreFailedModel hookedModel
	unusedHookModel    hookedModel
	usedHookModel      hookedModel
)

func newHookedArchiver[T any](t *testing.T) *archivable.Archiver[T] {
	t.Helper()
	a, err := archivable.New[T](msgpack.New(), archivable.Declaration{
		Exclude: archivable.Lists{Add: []string{"cache", "handle"}},
		Config:  archivable.Lists{Add: []string{"rate"}},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return a
}

func TestHooks_DumpFailedIsRecorded(t *testing.T) {
	a := newHookedArchiver[dumpFailedModel](t).
		SetHook("cache", archivable.Hook[dumpFailedModel]{
			Dump: func(context.Context, *dumpFailedModel, string) error {
				return fmt.Errorf("disk quota: %w", archivable.ErrDumpFailed)
			},
		}).
		SetHook("handle", archivable.Hook[dumpFailedModel]{
			Dump: func(_ context.Context, m *dumpFailedModel, dir string) error {
				return os.WriteFile(filepath.Join(dir, "handle.txt"), []byte(m.Handle()), 0o644)
			},
		})

	m := &dumpFailedModel{Rate: 0.5, Handle: func() string { return "h1" }}
	dir := t.TempDir()
	if err := a.Save(context.Background(), m, dir); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	failures := a.Failures()
	if got := failures.Attributes(); !reflect.DeepEqual(got, []string{"cache"}) {
		t.Fatalf("Failures() = %v, want [cache]", got)
	}

	var hookErr *archivable.HookError
	if !errors.As(failures["cache"], &hookErr) {
		t.Fatalf("failure type = %T, want *HookError", failures["cache"])
	}
	if hookErr.Operation != "dump" || hookErr.Attribute != "cache" {
		t.Errorf("HookError = %+v", hookErr)
	}
	if !errors.Is(failures.Err(), archivable.ErrDumpFailed) {
		t.Error("Failures().Err() should wrap ErrDumpFailed")
	}

	data, err := os.ReadFile(filepath.Join(dir, "handle.txt"))
	if err != nil || string(data) != "h1" {
		t.Errorf("handle.txt = %q, %v", data, err)
	}
}

func TestHooks_UnexpectedErrorAborts(t *testing.T) {
	boom := errors.New("boom")
	a := newHookedArchiver[abortModel](t).SetHook("cache", archivable.Hook[abortModel]{
		Dump:    func(context.Context, *abortModel, string) error { return boom },
		Restore: func(context.Context, *abortModel, string) error { return boom },
	})

	dir := t.TempDir()
	err := a.Save(context.Background(), &abortModel{}, dir)
	if !errors.Is(err, boom) {
		t.Fatalf("Save() error = %v, want boom", err)
	}

	// The payload was written before the hooks ran
	if _, err := a.Load(context.Background(), dir); !errors.Is(err, boom) {
		t.Errorf("Load() error = %v, want boom", err)
	}
}

func TestHooks_RestoreFailedIsRecorded(t *testing.T) {
	a := newHookedArchiver[restoreFailedModel](t).SetHook("cache", archivable.Hook[restoreFailedModel]{
		Restore: func(context.Context, *restoreFailedModel, string) error {
			return archivable.ErrRestoreFailed
		},
	}).SetHook("handle", archivable.Hook[restoreFailedModel]{
		Restore: func(_ context.Context, m *restoreFailedModel, dir string) error {
			data, err := os.ReadFile(filepath.Join(dir, "handle.txt"))
			if err != nil {
				return fmt.Errorf("%w: %w", archivable.ErrRestoreFailed, err)
			}
			m.Handle = func() string { return string(data) }
			return nil
		},
	})

	dir := t.TempDir()
	if err := a.Save(context.Background(), &restoreFailedModel{Rate: 2}, dir); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "handle.txt"), []byte("h2"), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := a.Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if m.Rate != 2 {
		t.Errorf("Rate = %v, want 2", m.Rate)
	}
	if m.Handle == nil || m.Handle() != "h2" {
		t.Error("Handle should be restored by its hook")
	}
	if m.Cache != nil {
		t.Error("Cache should stay unset after a failed restore")
	}
	if !errors.Is(a.Failures()["cache"], archivable.ErrRestoreFailed) {
		t.Errorf("Failures() = %v", a.Failures())
	}
}

func TestValidate_UnusedHook(t *testing.T) {
	a := newHookedArchiver[unusedHookModel](t).
		SetHook("cache", archivable.Hook[unusedHookModel]{}).
		SetHook("rate", archivable.Hook[unusedHookModel]{})

	err := a.Validate()
	if !errors.Is(err, archivable.ErrUnusedHook) {
		t.Fatalf("Validate() error = %v, want ErrUnusedHook", err)
	}
	var cfgErr *archivable.ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Attribute != "rate" {
		t.Errorf("Validate() error = %v, want ConfigError for rate", err)
	}

	if err := newHookedArchiver[usedHookModel](t).SetHook("cache", archivable.Hook[usedHookModel]{}).Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

type lifecycleModel struct {
	Step  int
	calls *[]string
}

var beforeLoadPaths []string

func (m *lifecycleModel) BeforeSave(context.Context) error {
	*m.calls = append(*m.calls, "before_save")
	m.Step++
	return nil
}

func (m *lifecycleModel) AfterSave(context.Context) error {
	*m.calls = append(*m.calls, "after_save")
	return nil
}

func (m *lifecycleModel) BeforeLoad(_ context.Context, path string) error {
	if m.Step != 0 || m.calls != nil {
		return errors.New("before load should see the zero value")
	}
	beforeLoadPaths = append(beforeLoadPaths, path)
	return nil
}

func (m *lifecycleModel) AfterLoad(context.Context) error {
	m.Step *= 10
	return nil
}

func TestExtensionPoints(t *testing.T) {
	a, err := archivable.New[lifecycleModel](msgpack.New(), archivable.Declaration{})
	if err != nil {
		t.Fatal(err)
	}

	var calls []string
	m := &lifecycleModel{Step: 1, calls: &calls}
	dir := t.TempDir()
	if err := a.Save(context.Background(), m, dir); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if want := []string{"before_save", "after_save"}; !reflect.DeepEqual(calls, want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}

	beforeLoadPaths = nil
	loaded, err := a.Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	// BeforeSave bumped Step to 2 before the payload was written
	if loaded.Step != 20 {
		t.Errorf("Step = %d, want 20", loaded.Step)
	}
	if want := []string{filepath.Join(dir, "lifecyclemodel.bin")}; !reflect.DeepEqual(beforeLoadPaths, want) {
		t.Errorf("BeforeLoad paths = %v, want %v", beforeLoadPaths, want)
	}
}

type vetoModel struct {
	Value int
}

func (vetoModel) BeforeSave(context.Context) error { return errors.New("read-only") }

func TestExtensionPoints_AbortSave(t *testing.T) {
	a, err := archivable.New[vetoModel](msgpack.New(), archivable.Declaration{})
	if err != nil {
		t.Fatal(err)
	}

	dir := filepath.Join(t.TempDir(), "never")
	if err := a.Save(context.Background(), &vetoModel{}, dir); err == nil {
		t.Fatal("Save() should fail when BeforeSave fails")
	}
	if _, err := os.Stat(dir); !errors.Is(err, os.ErrNotExist) {
		t.Error("nothing should be written when BeforeSave fails")
	}
}

type configModel struct {
	Name     string
	Weights  snapshot.Array[float64]
	Tags     map[string]struct{}
	Phase    complex128
	Optional *int
	Skipped  int
}

func TestConfigSnapshot(t *testing.T) {
	a, err := archivable.New[configModel](msgpack.New(), archivable.Declaration{
		Exclude: archivable.Lists{Add: []string{"weights", "tags", "phase"}},
		Config:  archivable.Lists{Add: []string{"name", "weights", "tags", "phase", "optional"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	weights, err := snapshot.NewArray([]float64{1, 2, 3, 4}, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	m := &configModel{
		Name:    "grid",
		Weights: weights,
		Tags:    map[string]struct{}{"b": {}, "a": {}},
		Phase:   complex(1, -1),
		Skipped: 7,
	}

	got := a.Configurations(m)
	if _, ok := got["optional"]; ok {
		t.Error("Configurations() should skip nil attributes")
	}
	if _, ok := got["skipped"]; ok {
		t.Error("Configurations() should only report configuration attributes")
	}

	dir := t.TempDir()
	if err := a.Save(context.Background(), m, dir); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, archivable.DefaultConfigFile))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "\n  \"name\"") {
		t.Errorf("config should be indented by two spaces:\n%s", data)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("config is not JSON: %v", err)
	}
	want := map[string]any{
		"name":    "grid",
		"weights": []any{[]any{1.0, 2.0}, []any{3.0, 4.0}},
		"tags":    []any{"a", "b"},
		"phase":   []any{1.0, -1.0},
	}
	if !reflect.DeepEqual(decoded, want) {
		t.Errorf("config = %v, want %v", decoded, want)
	}
}

type funcConfigModel struct {
	Scorer func(int) int
}

func TestConfigSnapshot_UnencodableValue(t *testing.T) {
	a, err := archivable.New[funcConfigModel](msgpack.New(), archivable.Declaration{
		Exclude: archivable.Lists{Add: []string{"scorer"}},
		Config:  archivable.Lists{Add: []string{"scorer"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	err = a.SaveConfig(context.Background(), &funcConfigModel{Scorer: func(x int) int { return x }}, t.TempDir())
	if !errors.Is(err, archivable.ErrMarshal) {
		t.Errorf("SaveConfig() error = %v, want ErrMarshal", err)
	}
	var codecErr *archivable.CodecError
	if !errors.As(err, &codecErr) || codecErr.File != archivable.DefaultConfigFile {
		t.Errorf("SaveConfig() error = %v, want CodecError for %s", err, archivable.DefaultConfigFile)
	}
}

type settingsModel struct {
	Level int
}

func TestSetSettings(t *testing.T) {
	a, err := archivable.New[settingsModel](msgpack.New(), archivable.Declaration{
		Config: archivable.Lists{Add: []string{"level"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	a.SetSettings(archivable.Settings{DirMode: 0o700, FileMode: 0o600, ConfigIndent: 0})

	dir := filepath.Join(t.TempDir(), "nested", "out")
	if err := a.Save(context.Background(), &settingsModel{Level: 3}, dir); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, "settingsmodel.bin"))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("payload mode = %o, want 600", perm)
	}

	data, err := os.ReadFile(filepath.Join(dir, archivable.DefaultConfigFile))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"level":3}` {
		t.Errorf("config = %s, want compact JSON", data)
	}
}
