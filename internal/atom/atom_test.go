package atom

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genCategory generates valid Gentoo category names (e.g., "app-misc", "sys-apps")
func genCategory() gopter.Gen {
	categories := []interface{}{
		"app-misc", "app-util", "dev-libs", "dev-util",
		"sys-apps", "sys-libs", "net-misc", "net-client",
		"www-client", "www-server", "media-libs", "x11-libs",
	}
	return gen.OneConstOf(categories...)
}

// genPackageName generates valid package names
func genPackageName() gopter.Gen {
	packages := []interface{}{
		"hello", "world", "test", "foo", "bar",
		"firefox", "chrome", "vim", "emacs",
		"firefox-bin", "chrome-bin", "gtk+",
	}
	return gen.OneConstOf(packages...)
}

// genOperator generates the version-constraint operators
func genOperator() gopter.Gen {
	return gen.OneConstOf("=", ">=", ">", "<=", "<", "~")
}

// genAtom generates valid versioned and unversioned atoms
func genAtom() gopter.Gen {
	versioned := gopter.CombineGens(
		genOperator(),
		genCategory(),
		genPackageName(),
		genVersion(),
	).Map(func(values []interface{}) *Atom {
		return &Atom{
			Operator: values[0].(string),
			Category: values[1].(string),
			Package:  values[2].(string),
			Version:  values[3].(string),
		}
	})
	unversioned := gopter.CombineGens(
		genCategory(),
		genPackageName(),
	).Map(func(values []interface{}) *Atom {
		return &Atom{
			Category: values[0].(string),
			Package:  values[1].(string),
		}
	})
	return gen.OneGenOf(versioned, unversioned)
}

// TestPropertyAtomRoundTrip checks that serializing an atom and parsing it
// back yields an equivalent atom.
func TestPropertyAtomRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("String() then Parse() returns equivalent Atom", prop.ForAll(
		func(original *Atom) bool {
			token := original.String()

			parsed, err := Parse(token)
			if err != nil {
				t.Logf("Parse failed for %q: %v", token, err)
				return false
			}

			return parsed.Operator == original.Operator &&
				parsed.Category == original.Category &&
				parsed.Package == original.Package &&
				parsed.Version == original.Version &&
				parsed.Wildcard == original.Wildcard &&
				parsed.Slot == original.Slot
		},
		genAtom(),
	))

	properties.TestingRun(t)
}

// TestPropertyEqualsOperatorMatchesOwnVersion checks that "=cat/pkg-V"
// always matches version V.
func TestPropertyEqualsOperatorMatchesOwnVersion(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("=atom matches its own version", prop.ForAll(
		func(cat, pkg, ver string) bool {
			a, err := Parse("=" + cat + "/" + pkg + "-" + ver)
			if err != nil {
				return false
			}
			return a.Matches(ver, "0")
		},
		genCategory(),
		genPackageName(),
		genVersion(),
	))

	properties.TestingRun(t)
}

func TestParse_ValidAtoms(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		expected *Atom
	}{
		{
			name:     "bare atom",
			token:    "app-misc/hello",
			expected: &Atom{Category: "app-misc", Package: "hello"},
		},
		{
			name:     "exact version",
			token:    "=app-misc/hello-1.0",
			expected: &Atom{Operator: "=", Category: "app-misc", Package: "hello", Version: "1.0"},
		},
		{
			name:     "greater or equal",
			token:    ">=dev-libs/openssl-3.0.1-r1",
			expected: &Atom{Operator: ">=", Category: "dev-libs", Package: "openssl", Version: "3.0.1-r1"},
		},
		{
			name:     "strictly less",
			token:    "<www-client/firefox-120.0",
			expected: &Atom{Operator: "<", Category: "www-client", Package: "firefox", Version: "120.0"},
		},
		{
			name:     "tilde revision-agnostic",
			token:    "~sys-apps/portage-3.0.30",
			expected: &Atom{Operator: "~", Category: "sys-apps", Package: "portage", Version: "3.0.30"},
		},
		{
			name:     "wildcard version",
			token:    "=dev-lang/python-3.11*",
			expected: &Atom{Operator: "=", Category: "dev-lang", Package: "python", Version: "3.11", Wildcard: true},
		},
		{
			name:     "slotted",
			token:    "dev-lang/python:3.11",
			expected: &Atom{Category: "dev-lang", Package: "python", Slot: "3.11"},
		},
		{
			name:     "versioned and slotted",
			token:    ">=dev-lang/python-3.11:3.11",
			expected: &Atom{Operator: ">=", Category: "dev-lang", Package: "python", Version: "3.11", Slot: "3.11"},
		},
		{
			name:     "repo qualifier",
			token:    "app-misc/hello::gentoo",
			expected: &Atom{Category: "app-misc", Package: "hello", Repo: "gentoo"},
		},
		{
			name:     "package name with hyphen",
			token:    "=www-client/firefox-bin-120.0",
			expected: &Atom{Operator: "=", Category: "www-client", Package: "firefox-bin", Version: "120.0"},
		},
		{
			name:     "package name with plus",
			token:    "x11-libs/gtk+",
			expected: &Atom{Category: "x11-libs", Package: "gtk+"},
		},
		{
			name:     "package name ending in digit",
			token:    "=media-libs/libmpeg2-0.5.1",
			expected: &Atom{Operator: "=", Category: "media-libs", Package: "libmpeg2", Version: "0.5.1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Parse(tt.token)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.token, err)
			}
			if result.Operator != tt.expected.Operator {
				t.Errorf("Operator = %q, want %q", result.Operator, tt.expected.Operator)
			}
			if result.Category != tt.expected.Category {
				t.Errorf("Category = %q, want %q", result.Category, tt.expected.Category)
			}
			if result.Package != tt.expected.Package {
				t.Errorf("Package = %q, want %q", result.Package, tt.expected.Package)
			}
			if result.Version != tt.expected.Version {
				t.Errorf("Version = %q, want %q", result.Version, tt.expected.Version)
			}
			if result.Wildcard != tt.expected.Wildcard {
				t.Errorf("Wildcard = %v, want %v", result.Wildcard, tt.expected.Wildcard)
			}
			if result.Slot != tt.expected.Slot {
				t.Errorf("Slot = %q, want %q", result.Slot, tt.expected.Slot)
			}
			if result.Repo != tt.expected.Repo {
				t.Errorf("Repo = %q, want %q", result.Repo, tt.expected.Repo)
			}
		})
	}
}

func TestParse_InvalidAtoms(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"no category", "hello"},
		{"operator without version", ">=app-misc/hello"},
		{"version without operator", "app-misc/hello-1.0"},
		{"bad category characters", "app~misc/hello"},
		{"bad package characters", "app-misc/hel lo"},
		{"empty slot", "app-misc/hello:"},
		{"glob with relational operator", ">=app-misc/hello-1.0*"},
		{"malformed version", "=app-misc/hello-1..0"},
		{"bare operator", ">="},
		{"missing package", "=app-misc/-1.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.token)
			if err == nil {
				t.Fatalf("Parse(%q) should return error", tt.token)
			}
			if !errors.Is(err, ErrInvalidAtom) {
				t.Errorf("Parse(%q) error = %v, want ErrInvalidAtom", tt.token, err)
			}
		})
	}
}

func TestAtom_Matches(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		version string
		slot    string
		want    bool
	}{
		{"bare atom matches any version", "app-misc/hello", "1.0", "0", true},
		{"exact match", "=app-misc/hello-1.0", "1.0", "0", true},
		{"exact mismatch", "=app-misc/hello-1.0", "1.1", "0", false},
		{"exact matches equivalent form", "=app-misc/hello-1.0", "1.0.0", "0", true},
		{"ge matches equal", ">=app-misc/hello-1.0", "1.0", "0", true},
		{"ge matches greater", ">=app-misc/hello-1.0", "1.2", "0", true},
		{"ge rejects lesser", ">=app-misc/hello-1.0", "0.9", "0", false},
		{"gt rejects equal", ">app-misc/hello-1.0", "1.0", "0", false},
		{"lt matches lesser", "<app-misc/hello-2.0", "1.9", "0", true},
		{"le matches equal", "<=app-misc/hello-2.0", "2.0", "0", true},
		{"tilde ignores revision", "~app-misc/hello-1.0", "1.0-r5", "0", true},
		{"tilde rejects other base", "~app-misc/hello-1.0", "1.0.1", "0", false},
		{"wildcard matches prefix", "=dev-lang/python-3.11*", "3.11.4", "0", true},
		{"wildcard matches exact", "=dev-lang/python-3.11*", "3.11", "0", true},
		{"wildcard matches revision", "=dev-lang/python-3.11*", "3.11-r1", "0", true},
		{"wildcard respects boundary", "=dev-lang/python-3.1*", "3.11", "0", false},
		{"slot match", "dev-lang/python:3.11", "3.11.4", "3.11", true},
		{"slot mismatch", "dev-lang/python:3.11", "3.12.0", "3.12", false},
		{"slot with subslot", "dev-libs/openssl:0", "3.0.1", "0/3", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Parse(tt.token)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.token, err)
			}
			if got := a.Matches(tt.version, tt.slot); got != tt.want {
				t.Errorf("Matches(%q, %q) = %v, want %v", tt.version, tt.slot, got, tt.want)
			}
		})
	}
}

func TestSplitNameVersion(t *testing.T) {
	tests := []struct {
		in      string
		name    string
		version string
		ok      bool
	}{
		{"hello-1.0", "hello", "1.0", true},
		{"firefox-bin-120.0", "firefox-bin", "120.0", true},
		{"libmpeg2-0.5.1", "libmpeg2", "0.5.1", true},
		{"openssl-3.0.1-r1", "openssl", "3.0.1-r1", true},
		{"gtk+-3.24.41", "gtk+", "3.24.41", true},
		{"hello", "", "", false},
		{"-1.0", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			name, version, ok := SplitNameVersion(tt.in)
			if ok != tt.ok || name != tt.name || version != tt.version {
				t.Errorf("SplitNameVersion(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.in, name, version, ok, tt.name, tt.version, tt.ok)
			}
		})
	}
}

func TestAtom_Key(t *testing.T) {
	a, err := Parse(">=dev-libs/openssl-3.0.1")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if got := a.Key(); got != "dev-libs/openssl" {
		t.Errorf("Key() = %q, want %q", got, "dev-libs/openssl")
	}
}

func TestAtom_String(t *testing.T) {
	tests := []struct {
		token string
	}{
		{"app-misc/hello"},
		{"=app-misc/hello-1.0"},
		{">=dev-libs/openssl-3.0.1-r1"},
		{"=dev-lang/python-3.11*"},
		{"dev-lang/python:3.11"},
		{"app-misc/hello::gentoo"},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			a, err := Parse(tt.token)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.token, err)
			}
			if got := a.String(); got != tt.token {
				t.Errorf("String() = %q, want %q", got, tt.token)
			}
		})
	}
}
