package vdb

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/obentoo/portcheck/internal/atom"
)

// writePackage creates a <cat>/<pkg>-<ver> database entry with the given
// metadata files
func writePackage(t *testing.T, root, category, pkgVer string, files map[string]string) {
	t.Helper()
	dir := filepath.Join(root, category, pkgVer)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create %s: %v", dir, err)
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
}

func TestDatabase_Installed(t *testing.T) {
	root := t.TempDir()
	writePackage(t, root, "app-misc", "hello-1.0", map[string]string{
		"SLOT":     "0\n",
		"USE":      "doc nls\n",
		"KEYWORDS": "~amd64 ~x86\n",
	})
	writePackage(t, root, "dev-libs", "openssl-3.0.1-r1", map[string]string{
		"SLOT":     "0/3\n",
		"USE":      "asm\n",
		"KEYWORDS": "amd64 x86\n",
	})

	db := NewDatabase(root)
	packages, err := db.Installed()
	if err != nil {
		t.Fatalf("Installed returned error: %v", err)
	}

	if len(packages) != 2 {
		t.Fatalf("got %d packages, want 2", len(packages))
	}

	byName := map[string]Installed{}
	for _, p := range packages {
		byName[p.String()] = p
	}

	hello, ok := byName["app-misc/hello-1.0"]
	if !ok {
		t.Fatalf("app-misc/hello-1.0 missing from snapshot: %v", byName)
	}
	if hello.Slot != "0" || hello.SubSlot != "" {
		t.Errorf("hello slot = %q/%q, want 0 with no subslot", hello.Slot, hello.SubSlot)
	}
	if !reflect.DeepEqual(hello.UseFlags, []string{"doc", "nls"}) {
		t.Errorf("hello UseFlags = %v, want [doc nls]", hello.UseFlags)
	}
	if !reflect.DeepEqual(hello.Keywords, []string{"~amd64", "~x86"}) {
		t.Errorf("hello Keywords = %v, want [~amd64 ~x86]", hello.Keywords)
	}

	openssl, ok := byName["dev-libs/openssl-3.0.1-r1"]
	if !ok {
		t.Fatalf("dev-libs/openssl-3.0.1-r1 missing from snapshot: %v", byName)
	}
	if openssl.Slot != "0" || openssl.SubSlot != "3" {
		t.Errorf("openssl slot = %q/%q, want 0/3", openssl.Slot, openssl.SubSlot)
	}
	if openssl.Package != "openssl" || openssl.Version != "3.0.1-r1" {
		t.Errorf("openssl split = %q %q, want openssl 3.0.1-r1", openssl.Package, openssl.Version)
	}
}

func TestDatabase_SkipsNonPackages(t *testing.T) {
	root := t.TempDir()
	writePackage(t, root, "app-misc", "hello-1.0", map[string]string{
		"SLOT": "0\n",
	})

	// Interrupted merges, hidden entries, and stray files are not packages
	writePackage(t, root, "app-misc", "-MERGING-doomed-2.0", map[string]string{
		"SLOT": "0\n",
	})
	if err := os.MkdirAll(filepath.Join(root, ".cache"), 0755); err != nil {
		t.Fatalf("failed to create .cache: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "app-misc", "stray"), []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write stray file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "lockfile"), []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write lockfile: %v", err)
	}

	db := NewDatabase(root)
	packages, err := db.Installed()
	if err != nil {
		t.Fatalf("Installed returned error: %v", err)
	}
	if len(packages) != 1 || packages[0].String() != "app-misc/hello-1.0" {
		t.Errorf("snapshot = %v, want only app-misc/hello-1.0", packages)
	}
}

func TestDatabase_MalformedEntryIsFatal(t *testing.T) {
	root := t.TempDir()
	writePackage(t, root, "app-misc", "noversion", map[string]string{
		"SLOT": "0\n",
	})

	db := NewDatabase(root)
	_, err := db.Installed()
	if err == nil {
		t.Fatal("Installed should fail on an unversioned package directory")
	}
	if !errors.Is(err, ErrDatabase) {
		t.Errorf("error = %v, want ErrDatabase", err)
	}

	var qerr *QueryError
	if !errors.As(err, &qerr) {
		t.Fatalf("error = %T, want *QueryError", err)
	}
	if qerr.Path == "" {
		t.Error("QueryError.Path should name the offending entry")
	}
}

func TestDatabase_MissingSlotIsFatal(t *testing.T) {
	root := t.TempDir()
	writePackage(t, root, "app-misc", "hello-1.0", map[string]string{
		"USE": "doc\n",
	})

	db := NewDatabase(root)
	_, err := db.Installed()
	if err == nil {
		t.Fatal("Installed should fail on a package entry without SLOT")
	}
	if !errors.Is(err, ErrDatabase) {
		t.Errorf("error = %v, want ErrDatabase", err)
	}
}

func TestDatabase_MissingRoot(t *testing.T) {
	db := NewDatabase(filepath.Join(t.TempDir(), "nope"))
	_, err := db.Installed()
	if err == nil {
		t.Fatal("Installed should fail on a missing database root")
	}
	if !errors.Is(err, ErrDatabase) {
		t.Errorf("error = %v, want ErrDatabase", err)
	}
}

func TestInstalled_ActiveKeyword(t *testing.T) {
	tests := []struct {
		name     string
		keywords []string
		arch     string
		want     string
	}{
		{"stable", []string{"amd64", "~x86"}, "amd64", "amd64"},
		{"testing", []string{"~amd64", "x86"}, "amd64", "~amd64"},
		{"unkeyworded", []string{"x86"}, "amd64", ""},
		{"stable wins over testing", []string{"~amd64", "amd64"}, "amd64", "amd64"},
		{"empty keywords", nil, "amd64", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Installed{Keywords: tt.keywords}
			if got := p.ActiveKeyword(tt.arch); got != tt.want {
				t.Errorf("ActiveKeyword(%q) = %q, want %q", tt.arch, got, tt.want)
			}
		})
	}
}

func snapshotFixture() []Installed {
	return []Installed{
		{Category: "dev-lang", Package: "python", Version: "3.12.1", Slot: "3.12", Keywords: []string{"amd64"}},
		{Category: "dev-lang", Package: "python", Version: "3.11.7", Slot: "3.11", Keywords: []string{"amd64"}},
		{Category: "app-misc", Package: "hello", Version: "1.0", Slot: "0", Keywords: []string{"~amd64"}},
	}
}

func TestBuildIndex(t *testing.T) {
	mock := &MockQuerier{
		InstalledFunc: func() ([]Installed, error) {
			return snapshotFixture(), nil
		},
	}

	idx, err := BuildIndex(mock)
	if err != nil {
		t.Fatalf("BuildIndex returned error: %v", err)
	}

	if idx.Size() != 3 {
		t.Errorf("Size() = %d, want 3", idx.Size())
	}

	pythons := idx.Lookup("dev-lang/python")
	if len(pythons) != 2 {
		t.Fatalf("Lookup(dev-lang/python) returned %d versions, want 2", len(pythons))
	}
	if pythons[0].Version != "3.11.7" || pythons[1].Version != "3.12.1" {
		t.Errorf("versions not sorted ascending: %s, %s", pythons[0].Version, pythons[1].Version)
	}

	if got := idx.Lookup("app-misc/absent"); got != nil {
		t.Errorf("Lookup of uninstalled package = %v, want nil", got)
	}
}

func TestBuildIndex_QueryFailure(t *testing.T) {
	mock := &MockQuerier{
		InstalledFunc: func() ([]Installed, error) {
			return nil, &QueryError{Path: "/var/db/pkg", Err: errors.New("permission denied")}
		},
	}

	_, err := BuildIndex(mock)
	if err == nil {
		t.Fatal("BuildIndex should propagate query errors")
	}
	if !errors.Is(err, ErrDatabase) {
		t.Errorf("error = %v, want ErrDatabase", err)
	}
}

func TestIndex_Match(t *testing.T) {
	mock := &MockQuerier{InstalledFunc: func() ([]Installed, error) {
		return snapshotFixture(), nil
	}}
	idx, err := BuildIndex(mock)
	if err != nil {
		t.Fatalf("BuildIndex returned error: %v", err)
	}

	tests := []struct {
		token string
		want  []string
	}{
		{"dev-lang/python", []string{"3.11.7", "3.12.1"}},
		{">=dev-lang/python-3.12", []string{"3.12.1"}},
		{"dev-lang/python:3.11", []string{"3.11.7"}},
		{"=dev-lang/python-3.11*", []string{"3.11.7"}},
		{"<dev-lang/python-3", nil},
		{"app-misc/hello", []string{"1.0"}},
		{"app-misc/absent", nil},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			a, err := atom.Parse(tt.token)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.token, err)
			}

			var versions []string
			for _, p := range idx.Match(a) {
				versions = append(versions, p.Version)
			}
			if !reflect.DeepEqual(versions, tt.want) {
				t.Errorf("Match(%q) versions = %v, want %v", tt.token, versions, tt.want)
			}
		})
	}
}
