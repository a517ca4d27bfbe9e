package archivable

import (
	"errors"
	"slices"
	"testing"
)

func mustPolicy(t *testing.T, name string, decl Declaration) *Policy {
	t.Helper()
	p, err := BuildPolicy(name, decl)
	if err != nil {
		t.Fatalf("BuildPolicy(%s) error: %v", name, err)
	}
	return p
}

func TestBuildPolicy_Replace(t *testing.T) {
	parent := mustPolicy(t, "Parent", Declaration{
		Exclude: Lists{Replace: true, Names: []string{"handle"}},
	})

	p := mustPolicy(t, "Child", Declaration{
		Parents: []*Policy{parent},
		Exclude: Lists{
			Replace: true,
			Names:   []string{"wont_recover", "unpicklable", "unpicklable"},
			Add:     []string{"ignored"},
		},
	})

	want := []string{"unpicklable", "wont_recover"}
	if got := p.Exclude(); !slices.Equal(got, want) {
		t.Errorf("Exclude() = %v, want %v", got, want)
	}
}

func TestBuildPolicy_ReplaceWithEmptyClears(t *testing.T) {
	parent := mustPolicy(t, "Parent", Declaration{
		Config: Lists{Add: []string{"param1"}},
	})

	p := mustPolicy(t, "Child", Declaration{
		Parents: []*Policy{parent},
		Config:  Lists{Replace: true},
	})

	if got := p.Config(); len(got) != 0 {
		t.Errorf("Config() = %v, want empty", got)
	}
}

func TestBuildPolicy_Inherit(t *testing.T) {
	a := mustPolicy(t, "A", Declaration{
		Exclude: Lists{Replace: true, Names: []string{"unpicklable", "wont_recover"}},
		Config:  Lists{Add: []string{"param1"}},
	})

	b := mustPolicy(t, "B", Declaration{
		Parents: []*Policy{a},
		Exclude: Lists{Add: []string{"param3"}, Remove: []string{"wont_recover"}},
	})

	if got, want := b.Exclude(), []string{"param3", "unpicklable"}; !slices.Equal(got, want) {
		t.Errorf("Exclude() = %v, want %v", got, want)
	}
	if got, want := b.Config(), []string{"param1"}; !slices.Equal(got, want) {
		t.Errorf("Config() = %v, want %v", got, want)
	}
}

func TestBuildPolicy_MultipleParents(t *testing.T) {
	left := mustPolicy(t, "Left", Declaration{Exclude: Lists{Add: []string{"x", "shared"}}})
	right := mustPolicy(t, "Right", Declaration{Exclude: Lists{Add: []string{"y", "shared"}}})

	p := mustPolicy(t, "Both", Declaration{
		Parents: []*Policy{left, nil, right},
		Exclude: Lists{Remove: []string{"y", "not-there"}},
	})

	if got, want := p.Exclude(), []string{"shared", "x"}; !slices.Equal(got, want) {
		t.Errorf("Exclude() = %v, want %v", got, want)
	}
}

func TestBuildPolicy_SupersetOfParent(t *testing.T) {
	parent := mustPolicy(t, "P", Declaration{Exclude: Lists{Add: []string{"a", "b", "c", "d"}}})
	remove := []string{"b"}
	add := []string{"e", "c"}

	child := mustPolicy(t, "C", Declaration{
		Parents: []*Policy{parent},
		Exclude: Lists{Add: add, Remove: remove},
	})

	for _, name := range parent.Exclude() {
		if slices.Contains(remove, name) {
			continue
		}
		if !child.Excludes(name) {
			t.Errorf("child should inherit %q", name)
		}
	}
	for _, name := range add {
		if !child.Excludes(name) {
			t.Errorf("child should add %q", name)
		}
	}
}

func TestBuildPolicy_AddAndRemoveSameName(t *testing.T) {
	p := mustPolicy(t, "T", Declaration{
		Exclude: Lists{Add: []string{"x"}, Remove: []string{"x"}},
	})
	if p.Excludes("x") {
		t.Error("Remove should win over Add")
	}
}

func TestBuildPolicy_Deterministic(t *testing.T) {
	first := mustPolicy(t, "T", Declaration{Config: Lists{Add: []string{"c", "a", "b"}}})
	second := mustPolicy(t, "T", Declaration{Config: Lists{Add: []string{"b", "c", "a", "a"}}})

	if !slices.Equal(first.Config(), second.Config()) {
		t.Errorf("Config() differs: %v vs %v", first.Config(), second.Config())
	}
	if !slices.IsSorted(first.Config()) {
		t.Errorf("Config() not sorted: %v", first.Config())
	}
}

func TestBuildPolicy_FileNames(t *testing.T) {
	parent := mustPolicy(t, "CustomArchivableA", Declaration{ConfigFile: Named("a.json")})
	child := mustPolicy(t, "CustomArchivableB", Declaration{Parents: []*Policy{parent}})

	tests := []struct {
		name       string
		policy     *Policy
		wantObject string
		wantConfig string
	}{
		{"parent", parent, "customarchivablea.bin", "a.json"},
		{"child derives its own defaults", child, "customarchivableb.bin", DefaultConfigFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, ok := tt.policy.ObjectFile(); !ok || got != tt.wantObject {
				t.Errorf("ObjectFile() = %q, %v; want %q", got, ok, tt.wantObject)
			}
			if got, ok := tt.policy.ConfigFile(); !ok || got != tt.wantConfig {
				t.Errorf("ConfigFile() = %q, %v; want %q", got, ok, tt.wantConfig)
			}
		})
	}
}

func TestBuildPolicy_Suppressed(t *testing.T) {
	p := mustPolicy(t, "Quiet", Declaration{
		ObjectFile: Suppressed(),
		ConfigFile: Suppressed(),
	})

	if _, ok := p.ObjectFile(); ok {
		t.Error("ObjectFile() should report suppression")
	}
	if _, ok := p.ConfigFile(); ok {
		t.Error("ConfigFile() should report suppression")
	}
}

func TestBuildPolicy_InvalidFileName(t *testing.T) {
	tests := []struct {
		name string
		decl Declaration
	}{
		{"empty object file", Declaration{ObjectFile: Named("")}},
		{"empty config file", Declaration{ConfigFile: Named("")}},
		{"separator", Declaration{ObjectFile: Named("sub/obj.bin")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildPolicy("T", tt.decl)
			if !errors.Is(err, ErrInvalidDeclaration) {
				t.Errorf("BuildPolicy() error = %v, want ErrInvalidDeclaration", err)
			}
		})
	}
}

func TestBuildPolicy_EmptyTypeName(t *testing.T) {
	if _, err := BuildPolicy("", Declaration{}); !errors.Is(err, ErrInvalidDeclaration) {
		t.Errorf("BuildPolicy(\"\") error = %v, want ErrInvalidDeclaration", err)
	}
}

func TestPolicy_AccessorsReturnCopies(t *testing.T) {
	p := mustPolicy(t, "T", Declaration{Exclude: Lists{Add: []string{"a"}}})

	got := p.Exclude()
	got[0] = "mutated"

	if !p.Excludes("a") || p.Excludes("mutated") {
		t.Error("mutating Exclude() result should not affect the policy")
	}
}
