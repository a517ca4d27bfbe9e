package archivable

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals for archive events.
var (
	SignalArchiverCreated = capitan.NewSignal("archive.archiver.created", "Archiver instantiated")
	SignalSaveStart       = capitan.NewSignal("archive.save.start", "Save operation beginning")
	SignalSaveComplete    = capitan.NewSignal("archive.save.complete", "Save operation finished")
	SignalLoadStart       = capitan.NewSignal("archive.load.start", "Load operation beginning")
	SignalLoadComplete    = capitan.NewSignal("archive.load.complete", "Load operation finished")
	SignalHookMissing     = capitan.NewSignal("archive.hook.missing", "No hook registered for excluded attribute")
	SignalHookFailed      = capitan.NewSignal("archive.hook.failed", "Hook reported a recoverable failure")
)

// Keys for typed event data.
var (
	KeyTypeName     = capitan.NewStringKey("type_name")
	KeyPath         = capitan.NewStringKey("path")
	KeyAttribute    = capitan.NewStringKey("attribute")
	KeyOperation    = capitan.NewStringKey("operation")
	KeyContentType  = capitan.NewStringKey("content_type")
	KeyDuration     = capitan.NewDurationKey("duration")
	KeyFailureCount = capitan.NewIntKey("failure_count")
	KeyError        = capitan.NewErrorKey("error")
)

// emitArchiverCreated emits an event when an archiver is created.
func emitArchiverCreated(ctx context.Context, contentType, typeName string) {
	capitan.Emit(ctx, SignalArchiverCreated,
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
	)
}

// emitSaveStart emits an event when save begins.
func emitSaveStart(ctx context.Context, typeName, path string) {
	capitan.Emit(ctx, SignalSaveStart,
		KeyTypeName.Field(typeName),
		KeyPath.Field(path),
	)
}

// emitSaveComplete emits an event when save finishes.
func emitSaveComplete(ctx context.Context, typeName, path string, duration time.Duration, failures int, err error) {
	fields := []capitan.Field{
		KeyTypeName.Field(typeName),
		KeyPath.Field(path),
		KeyDuration.Field(duration),
		KeyFailureCount.Field(failures),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalSaveComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalSaveComplete, fields...)
	}
}

// emitLoadStart emits an event when load begins.
func emitLoadStart(ctx context.Context, typeName, path string) {
	capitan.Emit(ctx, SignalLoadStart,
		KeyTypeName.Field(typeName),
		KeyPath.Field(path),
	)
}

// emitLoadComplete emits an event when load finishes.
func emitLoadComplete(ctx context.Context, typeName, path string, duration time.Duration, failures int, err error) {
	fields := []capitan.Field{
		KeyTypeName.Field(typeName),
		KeyPath.Field(path),
		KeyDuration.Field(duration),
		KeyFailureCount.Field(failures),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalLoadComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalLoadComplete, fields...)
	}
}

// emitHookMissing emits an event when an excluded attribute has no hook.
func emitHookMissing(ctx context.Context, typeName, operation, attribute string) {
	capitan.Emit(ctx, SignalHookMissing,
		KeyTypeName.Field(typeName),
		KeyOperation.Field(operation),
		KeyAttribute.Field(attribute),
	)
}

// emitHookFailed emits an event when a hook reports a recoverable failure.
func emitHookFailed(ctx context.Context, typeName, operation, attribute string, err error) {
	capitan.Error(ctx, SignalHookFailed,
		KeyTypeName.Field(typeName),
		KeyOperation.Field(operation),
		KeyAttribute.Field(attribute),
		KeyError.Field(err),
	)
}
