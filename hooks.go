package archivable

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// Hook persists and rebuilds one excluded attribute of T.
//
// Dump writes the attribute somewhere under dir; Restore rebuilds it on a
// freshly loaded object from the same dir. Either may be nil. A hook that
// cannot do its job but should not abort the whole operation returns an
// error wrapping ErrDumpFailed or ErrRestoreFailed; any other error aborts
// the enclosing Save or Load.
type Hook[T any] struct {
	Dump    func(ctx context.Context, obj *T, dir string) error
	Restore func(ctx context.Context, obj *T, dir string) error
}

// Failures maps excluded attribute names to the non-fatal error recorded for them.
type Failures map[string]error

// Attributes returns the failed attribute names in sorted order.
func (f Failures) Attributes() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Err joins all failures in attribute order, or returns nil when there are none.
func (f Failures) Err() error {
	if len(f) == 0 {
		return nil
	}
	errs := make([]error, 0, len(f))
	for _, name := range f.Attributes() {
		errs = append(errs, f[name])
	}
	return errors.Join(errs...)
}

const (
	opDump    = "dump"
	opRestore = "restore"
)

// runHooks invokes the op hook of every excluded attribute in policy order.
// Missing hooks and hooks reporting the op's sentinel are recorded as
// failures; any other hook error stops the loop and is returned.
func (a *Archiver[T]) runHooks(ctx context.Context, obj *T, dir, op string) (Failures, error) {
	sentinelErr := ErrDumpFailed
	if op == opRestore {
		sentinelErr = ErrRestoreFailed
	}

	hooks := a.hooks.snapshot()

	failures := Failures{}
	for _, name := range a.policy.exclude {
		h := hooks[name]
		fn := h.Dump
		if op == opRestore {
			fn = h.Restore
		}

		if fn == nil {
			emitHookMissing(ctx, a.plan.typeName, op, name)
			failures[name] = newHookError(ErrNoHook, op, name, nil)
			continue
		}

		if err := fn(ctx, obj, dir); err != nil {
			if !errors.Is(err, sentinelErr) {
				return failures, fmt.Errorf("%s attribute %s: %w", op, name, err)
			}
			emitHookFailed(ctx, a.plan.typeName, op, name, err)
			failures[name] = newHookError(sentinelErr, op, name, err)
		}
	}

	return failures, nil
}
