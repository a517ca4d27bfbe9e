// Package archivable persists stateful objects whose state is only partly
// serializable.
//
// Each archivable type carries an immutable Policy with two attribute lists:
//
//   - exclusion list: attributes the object codec never sees (open handles,
//     closures, anything the codec cannot represent). They are saved and
//     restored through per-attribute hooks.
//   - configuration list: attributes exported to a human-readable snapshot.
//
// # Declarations
//
// Policies compose. A type lists its parents' policies and adds or removes
// names instead of repeating the whole list:
//
//	var models = archivable.Must(archivable.New[Model](msgpack.New(), archivable.Declaration{
//	    Exclude: archivable.Lists{Names: []string{"scorer", "cache"}, Replace: true},
//	    Config:  archivable.Lists{Add: []string{"threshold"}},
//	}))
//
//	var tuned = archivable.Must(archivable.New[Tuned](msgpack.New(), archivable.Declaration{
//	    Parents: []*archivable.Policy{models.Policy()},
//	    Exclude: archivable.Lists{Add: []string{"weights"}, Remove: []string{"cache"}},
//	}))
//
// Merged lists are deduplicated and sorted, so equivalent declarations
// always persist identically. The policy of a type is computed once and
// shared by every archiver of that type.
//
// # Attributes
//
// Attributes are the exported fields of the struct, including fields
// promoted from embedded structs. The name is the snake_case form of the
// field name unless overridden with a tag:
//
//	type Model struct {
//	    Threshold float64                   // "threshold"
//	    Scorer    func(float64) float64     // "scorer"
//	    Labels    []string `archive:"tags"` // "tags"
//	    Scratch   []byte   `archive:"-"`    // never persisted
//	}
//
// # Layout
//
// Save writes three kinds of artifacts into a directory:
//
//   - the object payload (default: lower-cased type name + ".bin")
//   - the configuration snapshot (default: "config.json")
//   - whatever the dump hooks write
//
// Either file can be renamed with Named or disabled with Suppressed.
//
// # Hooks
//
// Hooks are registered per attribute:
//
//	models.SetHook("scorer", archivable.Hook[Model]{
//	    Restore: func(_ context.Context, m *Model, _ string) error {
//	        m.Scorer = newScorer(m.Threshold)
//	        return nil
//	    },
//	})
//
// A missing hook, or a hook returning an error that wraps ErrDumpFailed or
// ErrRestoreFailed, is recorded in Failures and does not stop the operation.
// Any other hook error aborts it.
//
// # Extension points
//
// Types may implement BeforeSaver, AfterSaver, BeforeLoader and AfterLoader.
//
// # Codec Providers
//
// The following codec implementations are available as subpackages:
//
//   - msgpack - MessagePack encoding (application/msgpack)
//   - json - JSON encoding (application/json)
//   - yaml - YAML encoding (application/yaml)
//   - bson - BSON encoding (application/bson)
//
// Configuration snapshots are encoded by package snapshot, which rewrites
// numeric arrays, sets and complex numbers before encoding.
package archivable
