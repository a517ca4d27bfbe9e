package archivable

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/zoobzio/archivable/dir"
	"github.com/zoobzio/archivable/snapshot"
)

// Archiver saves and loads values of type T.
//
// Attributes in the policy's exclusion list never reach the object codec and
// are persisted through hooks instead. Attributes in the configuration list
// are additionally written to a human-readable snapshot.
//
// Hooks live in a per-type registry: every archiver of T shares them, so a
// MessagePack and a JSON archiver of the same type dump and restore alike.
// Policy and hooks follow T, while codecs, fallback and settings belong to
// the archiver.
//
// Configuration methods (SetHook, SetConfigCodec, SetFallback, SetSettings)
// are safe for concurrent use. Save and Load provide no locking of their own:
// callers must not save or load the same object concurrently.
type Archiver[T any] struct {
	codec  Codec
	policy *Policy

	// Immutable after construction
	plan    *attributePlan
	payload *payloadPlan
	hooks   *hookSet[T]

	// Mutable configuration protected by mu
	mu           sync.RWMutex
	configCodec  snapshot.Marshaler
	customConfig bool
	fallback     snapshot.Fallback
	settings     Settings
	lastFailures Failures
}

// New creates an Archiver for T, defining T's policy from decl on first use.
//
// codec encodes the object payload. The configuration snapshot defaults to
// indented JSON with the snapshot.Default fallback.
func New[T any](codec Codec, decl Declaration) (*Archiver[T], error) {
	plan, err := buildAttributePlan[T]()
	if err != nil {
		return nil, err
	}

	policy, err := Define[T](decl)
	if err != nil {
		return nil, err
	}

	settings := DefaultSettings()
	a := &Archiver[T]{
		codec:       codec,
		policy:      policy,
		plan:        plan,
		payload:     buildPayloadPlan(plan, policy),
		hooks:       hooksFor[T](),
		configCodec: snapshot.JSON(settings.ConfigIndent),
		fallback:    snapshot.Default(),
		settings:    settings,
	}

	emitArchiverCreated(context.Background(), codec.ContentType(), plan.typeName)
	return a, nil
}

// Must panics if err is non-nil. Intended for package-level archivers.
func Must[T any](a *Archiver[T], err error) *Archiver[T] {
	if err != nil {
		panic(err)
	}
	return a
}

// Policy returns the policy shared by every archiver of T.
func (a *Archiver[T]) Policy() *Policy {
	return a.policy
}

// SetHook registers the dump and restore functions for an excluded attribute
// in T's hook registry, replacing any earlier hook for it. Every archiver of
// T sees the change. Returns the archiver for chaining. Safe for concurrent use.
func (a *Archiver[T]) SetHook(attribute string, h Hook[T]) *Archiver[T] {
	a.hooks.set(attribute, h)
	return a
}

// SetConfigCodec replaces the structured codec of the configuration snapshot.
// Returns the archiver for chaining. Safe for concurrent use.
func (a *Archiver[T]) SetConfigCodec(m snapshot.Marshaler) *Archiver[T] {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.configCodec = m
	a.customConfig = true
	return a
}

// SetFallback replaces the fallback applied to configuration values.
// A nil fallback passes values to the codec unchanged.
// Returns the archiver for chaining. Safe for concurrent use.
func (a *Archiver[T]) SetFallback(fb snapshot.Fallback) *Archiver[T] {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fallback = fb
	return a
}

// SetSettings replaces the write settings. The default JSON snapshot codec
// follows the new indentation unless a custom codec was set.
// Returns the archiver for chaining. Safe for concurrent use.
func (a *Archiver[T]) SetSettings(s Settings) *Archiver[T] {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.settings = s
	if !a.customConfig {
		a.configCodec = snapshot.JSON(s.ConfigIndent)
	}
	return a
}

// Validate checks that every registered hook belongs to an excluded attribute.
// Hooks for other attributes would never run.
func (a *Archiver[T]) Validate() error {
	var errs []error
	for name := range a.hooks.snapshot() {
		if !a.policy.Excludes(name) {
			errs = append(errs, newConfigError(ErrUnusedHook, a.plan.typeName, name, ""))
		}
	}
	return errors.Join(errs...)
}

// Failures returns the non-fatal failures recorded by the most recent Save or Load.
func (a *Archiver[T]) Failures() Failures {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(Failures, len(a.lastFailures))
	for k, v := range a.lastFailures {
		out[k] = v
	}
	return out
}

func (a *Archiver[T]) setFailures(f Failures) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastFailures = f
}

func (a *Archiver[T]) currentSettings() Settings {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.settings
}

// Save writes obj to the directory path: the object payload, the
// configuration snapshot and whatever the dump hooks of excluded attributes
// produce. Hook failures are recorded, not returned; see Failures.
func (a *Archiver[T]) Save(ctx context.Context, obj *T, path string) error {
	if obj == nil {
		return ErrNilObject
	}

	start := time.Now()
	emitSaveStart(ctx, a.plan.typeName, path)

	var retErr error
	var failures Failures
	defer func() {
		emitSaveComplete(ctx, a.plan.typeName, path, time.Since(start), len(failures), retErr)
	}()

	if h, ok := any(obj).(BeforeSaver); ok {
		if err := h.BeforeSave(ctx); err != nil {
			retErr = fmt.Errorf("before save: %w", err)
			return retErr
		}
	}

	if _, err := a.ensureDir(path); err != nil {
		retErr = err
		return retErr
	}

	if err := a.SaveInstance(ctx, obj, path); err != nil {
		retErr = err
		return retErr
	}

	if err := a.SaveConfig(ctx, obj, path); err != nil {
		retErr = err
		return retErr
	}

	failures, retErr = a.SaveExcluded(ctx, obj, path)
	a.setFailures(failures)
	if retErr != nil {
		return retErr
	}

	if h, ok := any(obj).(AfterSaver); ok {
		if err := h.AfterSave(ctx); err != nil {
			retErr = fmt.Errorf("after save: %w", err)
			return retErr
		}
	}

	return nil
}

// SaveInstance writes the object payload to path. Excluded attributes are
// left out of the encoded value entirely. Nothing is written when the
// policy suppresses the object file.
func (a *Archiver[T]) SaveInstance(_ context.Context, obj *T, path string) error {
	if obj == nil {
		return ErrNilObject
	}
	name, ok := a.policy.ObjectFile()
	if !ok {
		return nil
	}

	if _, err := a.ensureDir(path); err != nil {
		return err
	}

	payload := a.payload.capture(reflect.ValueOf(obj).Elem())
	data, err := a.codec.Marshal(payload.Interface())
	if err != nil {
		return newCodecError(ErrMarshal, name, err)
	}

	return a.writeFile(filepath.Join(path, name), data)
}

// SaveConfig writes the configuration snapshot to path. Nothing is written
// when the policy suppresses the configuration file.
func (a *Archiver[T]) SaveConfig(_ context.Context, obj *T, path string) error {
	if obj == nil {
		return ErrNilObject
	}
	name, ok := a.policy.ConfigFile()
	if !ok {
		return nil
	}

	if _, err := a.ensureDir(path); err != nil {
		return err
	}

	a.mu.RLock()
	m, fb := a.configCodec, a.fallback
	a.mu.RUnlock()

	data, err := snapshot.Encode(m, a.Configurations(obj), fb)
	if err != nil {
		return newCodecError(ErrMarshal, name, err)
	}

	return a.writeFile(filepath.Join(path, name), data)
}

// SaveExcluded runs the dump hook of every excluded attribute and returns
// the recorded failures. A hook error not wrapping ErrDumpFailed is returned
// as the error and stops the remaining hooks.
func (a *Archiver[T]) SaveExcluded(ctx context.Context, obj *T, path string) (Failures, error) {
	if obj == nil {
		return nil, ErrNilObject
	}
	if _, err := a.ensureDir(path); err != nil {
		return nil, err
	}
	return a.runHooks(ctx, obj, path, opDump)
}

// Load reconstructs a T from target, which is either the payload file itself
// or a directory holding it under the policy's object file name. The
// directory is handed to the restore hooks. Hook failures are recorded, not
// returned; see Failures.
func (a *Archiver[T]) Load(ctx context.Context, target string) (*T, error) {
	start := time.Now()
	emitLoadStart(ctx, a.plan.typeName, target)

	var retErr error
	var failures Failures
	defer func() {
		emitLoadComplete(ctx, a.plan.typeName, target, time.Since(start), len(failures), retErr)
	}()

	payloadPath, folder, err := a.resolve(target)
	if err != nil {
		retErr = err
		return nil, retErr
	}

	var zero T
	if h, ok := any(&zero).(BeforeLoader); ok {
		if err := h.BeforeLoad(ctx, payloadPath); err != nil {
			retErr = fmt.Errorf("before load: %w", err)
			return nil, retErr
		}
	}

	obj, err := a.LoadInstance(ctx, payloadPath)
	if err != nil {
		retErr = err
		return nil, retErr
	}

	failures, retErr = a.RestoreExcluded(ctx, obj, folder)
	a.setFailures(failures)
	if retErr != nil {
		return nil, retErr
	}

	if h, ok := any(obj).(AfterLoader); ok {
		if err := h.AfterLoad(ctx); err != nil {
			retErr = fmt.Errorf("after load: %w", err)
			return nil, retErr
		}
	}

	return obj, nil
}

// resolve returns the payload file and its containing directory for target.
func (a *Archiver[T]) resolve(target string) (string, string, error) {
	info, err := os.Stat(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", "", fmt.Errorf("%w: %s", ErrNotFound, target)
		}
		return "", "", err
	}

	if !info.IsDir() {
		return target, filepath.Dir(target), nil
	}

	name, ok := a.policy.ObjectFile()
	if !ok {
		return "", "", fmt.Errorf("%w: object file of %s is suppressed, load the payload file directly", ErrNotFound, a.plan.typeName)
	}
	return filepath.Join(target, name), target, nil
}

// LoadInstance decodes the payload file at path into a new T. No constructor
// runs: the fields are set directly from the decoded state, and excluded
// attributes keep their zero value. Embedded struct pointers are allocated.
func (a *Archiver[T]) LoadInstance(_ context.Context, path string) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}

	payload := reflect.New(a.payload.typ)
	if err := a.codec.Unmarshal(data, payload.Interface()); err != nil {
		return nil, newCodecError(ErrUnmarshal, filepath.Base(path), err)
	}

	obj := new(T)
	rv := reflect.ValueOf(obj).Elem()
	a.plan.allocate(rv)
	a.payload.restore(payload, rv)
	return obj, nil
}

// RestoreExcluded runs the restore hook of every excluded attribute with the
// directory the object was loaded from, and returns the recorded failures.
// A hook error not wrapping ErrRestoreFailed is returned as the error and
// stops the remaining hooks.
func (a *Archiver[T]) RestoreExcluded(ctx context.Context, obj *T, path string) (Failures, error) {
	if obj == nil {
		return nil, ErrNilObject
	}
	return a.runHooks(ctx, obj, path, opRestore)
}

// Configurations returns the current value of every configuration attribute
// present on obj. Names that are unknown or unset are skipped.
func (a *Archiver[T]) Configurations(obj *T) map[string]any {
	out := make(map[string]any)
	if obj == nil {
		return out
	}

	rv := reflect.ValueOf(obj).Elem()
	for _, name := range a.policy.config {
		attr, ok := a.plan.lookup(name)
		if !ok {
			continue
		}
		v, ok := attr.value(rv)
		if !ok || !present(v) {
			continue
		}
		out[name] = v.Interface()
	}
	return out
}

// Get returns the value of a present attribute. Unknown, transient and nil
// attributes fail with an *AttributeError wrapping ErrMissingAttribute.
func (a *Archiver[T]) Get(obj *T, name string) (any, error) {
	attr, ok := a.plan.lookup(name)
	if !ok || obj == nil {
		return nil, &AttributeError{Type: a.plan.typeName, Attribute: name}
	}
	v, ok := attr.value(reflect.ValueOf(obj).Elem())
	if !ok || !present(v) {
		return nil, &AttributeError{Type: a.plan.typeName, Attribute: name}
	}
	return v.Interface(), nil
}

func (a *Archiver[T]) ensureDir(path string) (string, error) {
	return dir.Ensure(path, dir.Mode(a.currentSettings().DirMode))
}

func (a *Archiver[T]) writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, a.currentSettings().FileMode); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
