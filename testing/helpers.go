// Package testing provides fixtures and assertions for archivable tests.
package testing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/zoobzio/archivable"
)

// TB is the subset of testing.TB the helpers need.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
	Errorf(format string, args ...any)
	TempDir() string
}

// Scaler is a fixture with a codec-friendly state and a closure that cannot
// be encoded. The closure is excluded and rebuilt by ScalerHook.
type Scaler struct {
	Factor   float64        `archive:"factor"`
	Offset   float64        `archive:"offset"`
	Labels   []string       `archive:"labels"`
	Counts   map[string]int `archive:"counts"`
	Apply    func(float64) float64
	Snapshot *string `archive:"snapshot"`
}

// NewScaler returns a Scaler with Apply bound to its factor and offset.
func NewScaler(factor, offset float64) *Scaler {
	s := &Scaler{
		Factor: factor,
		Offset: offset,
		Labels: []string{"x", "y"},
		Counts: map[string]int{"fit": 1},
	}
	bindApply(s)
	return s
}

func bindApply(s *Scaler) {
	s.Apply = func(x float64) float64 { return x*s.Factor + s.Offset }
}

// ScalerDeclaration excludes the closure and the snapshot and reports the
// numeric parameters in the configuration file.
func ScalerDeclaration() archivable.Declaration {
	return archivable.Declaration{
		Exclude: archivable.Lists{Add: []string{"apply", "snapshot"}},
		Config:  archivable.Lists{Add: []string{"factor", "offset", "labels"}},
	}
}

// ScalerHook rebuilds Apply from the restored parameters. Apply is derived
// state, so dumping writes nothing.
func ScalerHook() archivable.Hook[Scaler] {
	return archivable.Hook[Scaler]{
		Dump:    func(context.Context, *Scaler, string) error { return nil },
		Restore: func(_ context.Context, s *Scaler, _ string) error {
			bindApply(s)
			return nil
		},
	}
}

// SnapshotHook writes the snapshot attribute to a side file and reads it back.
func SnapshotHook() archivable.Hook[Scaler] {
	return archivable.Hook[Scaler]{
		Dump: func(_ context.Context, s *Scaler, dir string) error {
			if s.Snapshot == nil {
				return fmt.Errorf("%w: snapshot is unset", archivable.ErrDumpFailed)
			}
			return os.WriteFile(filepath.Join(dir, "snapshot.txt"), []byte(*s.Snapshot), 0o644)
		},
		Restore: func(_ context.Context, s *Scaler, dir string) error {
			data, err := os.ReadFile(filepath.Join(dir, "snapshot.txt"))
			if err != nil {
				return fmt.Errorf("%w: %w", archivable.ErrRestoreFailed, err)
			}
			snap := string(data)
			s.Snapshot = &snap
			return nil
		},
	}
}

// ScalerArchiver returns an archiver for Scaler with both hooks registered.
func ScalerArchiver(t TB, codec archivable.Codec) *archivable.Archiver[Scaler] {
	t.Helper()
	a, err := archivable.New[Scaler](codec, ScalerDeclaration())
	if err != nil {
		t.Fatalf("New[Scaler]() error: %v", err)
	}
	return a.SetHook("apply", ScalerHook()).SetHook("snapshot", SnapshotHook())
}

// AssertFiles fails unless dir holds exactly the named files.
func AssertFiles(t TB, dir string, names ...string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read %s: %v", dir, err)
	}

	got := make([]string, 0, len(entries))
	for _, e := range entries {
		got = append(got, e.Name())
	}
	want := slices.Clone(names)
	slices.Sort(want)

	if !slices.Equal(got, want) {
		t.Errorf("files in %s = %v, want %v", dir, got, want)
	}
}
