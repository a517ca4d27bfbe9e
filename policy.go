package archivable

import (
	"slices"
	"strings"
)

const (
	// DefaultObjectExt is appended to the lower-cased type name to form the
	// default object payload file name.
	DefaultObjectExt = ".bin"

	// DefaultConfigFile is the default configuration snapshot file name.
	DefaultConfigFile = "config.json"
)

// Lists declares one attribute list family (exclusion or configuration) for a type.
//
// When Replace is set, Names is the complete list: parent lists, Add and Remove
// are ignored. Otherwise the list is the union of the parents' lists plus Add,
// minus Remove.
type Lists struct {
	Replace bool
	Names   []string
	Add     []string
	Remove  []string
}

type fileNameKind uint8

const (
	fileDefault fileNameKind = iota
	fileNamed
	fileSuppressed
)

// FileName selects the file an artifact is written to.
// The zero value derives a default from the declaring type.
type FileName struct {
	kind fileNameKind
	name string
}

// Named uses an explicit file name.
func Named(name string) FileName {
	return FileName{kind: fileNamed, name: name}
}

// Suppressed disables the artifact entirely; nothing is written for it.
func Suppressed() FileName {
	return FileName{kind: fileSuppressed}
}

// Declaration is the per-type input to BuildPolicy.
type Declaration struct {
	// Parents whose lists are inherited. Nil entries are ignored.
	Parents []*Policy

	// Exclude lists attributes skipped by the object codec and handled by hooks.
	Exclude Lists

	// Config lists attributes exported to the configuration snapshot.
	Config Lists

	ObjectFile FileName
	ConfigFile FileName
}

// Policy is the immutable serialization policy of one type.
// Every archiver of the type shares the same Policy.
type Policy struct {
	name       string
	exclude    []string
	config     []string
	objectFile string
	configFile string
}

// BuildPolicy merges a declaration into a Policy for the named type.
//
// Both lists are deduplicated and sorted, so two declarations with the same
// logical membership always produce the same policy.
func BuildPolicy(typeName string, decl Declaration) (*Policy, error) {
	if typeName == "" {
		return nil, newConfigError(ErrInvalidDeclaration, "", "", "type has no name")
	}

	objectFile, err := resolveFileName(typeName, decl.ObjectFile, strings.ToLower(typeName)+DefaultObjectExt)
	if err != nil {
		return nil, err
	}
	configFile, err := resolveFileName(typeName, decl.ConfigFile, DefaultConfigFile)
	if err != nil {
		return nil, err
	}

	return &Policy{
		name:       typeName,
		exclude:    mergeLists(decl.Parents, (*Policy).excludeList, decl.Exclude),
		config:     mergeLists(decl.Parents, (*Policy).configList, decl.Config),
		objectFile: objectFile,
		configFile: configFile,
	}, nil
}

// mergeLists computes one list family from the parents and the local declaration.
func mergeLists(parents []*Policy, pick func(*Policy) []string, l Lists) []string {
	names := make(map[string]struct{})

	if l.Replace {
		for _, n := range l.Names {
			names[n] = struct{}{}
		}
	} else {
		for _, p := range parents {
			if p == nil {
				continue
			}
			for _, n := range pick(p) {
				names[n] = struct{}{}
			}
		}
		for _, n := range l.Add {
			names[n] = struct{}{}
		}
		for _, n := range l.Remove {
			delete(names, n)
		}
	}

	out := make([]string, 0, len(names))
	for n := range names {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// resolveFileName returns the effective file name, or "" when suppressed.
func resolveFileName(typeName string, fn FileName, fallback string) (string, error) {
	switch fn.kind {
	case fileSuppressed:
		return "", nil
	case fileNamed:
		if fn.name == "" {
			return "", newConfigError(ErrInvalidDeclaration, typeName, "", "empty file name, use Suppressed() to disable the artifact")
		}
		if strings.ContainsAny(fn.name, `/\`) {
			return "", newConfigError(ErrInvalidDeclaration, typeName, fn.name, "file name must not contain a path separator")
		}
		return fn.name, nil
	default:
		return fallback, nil
	}
}

func (p *Policy) excludeList() []string { return p.exclude }
func (p *Policy) configList() []string  { return p.config }

// Name returns the name of the type the policy was built for.
func (p *Policy) Name() string { return p.name }

// Exclude returns a copy of the sorted exclusion list.
func (p *Policy) Exclude() []string { return slices.Clone(p.exclude) }

// Config returns a copy of the sorted configuration list.
func (p *Policy) Config() []string { return slices.Clone(p.config) }

// Excludes reports whether the attribute is skipped by the object codec.
func (p *Policy) Excludes(name string) bool {
	_, ok := slices.BinarySearch(p.exclude, name)
	return ok
}

// Configures reports whether the attribute belongs to the configuration snapshot.
func (p *Policy) Configures(name string) bool {
	_, ok := slices.BinarySearch(p.config, name)
	return ok
}

// ObjectFile returns the object payload file name. The boolean is false when
// the artifact is suppressed.
func (p *Policy) ObjectFile() (string, bool) {
	return p.objectFile, p.objectFile != ""
}

// ConfigFile returns the configuration snapshot file name. The boolean is
// false when the artifact is suppressed.
func (p *Policy) ConfigFile() (string, bool) {
	return p.configFile, p.configFile != ""
}
