package metadata

// MockSource implements Source for testing.
// The method can be configured with a custom function to control behavior.
type MockSource struct {
	LookupFunc func(category, pkg, version string) (*PackageMeta, error)
}

// Lookup returns the metadata for an exact category/pkg/version
func (m *MockSource) Lookup(category, pkg, version string) (*PackageMeta, error) {
	if m.LookupFunc != nil {
		return m.LookupFunc(category, pkg, version)
	}
	return nil, ErrNotFound
}

// Ensure MockSource implements Source interface
var _ Source = (*MockSource)(nil)

// FixedSource builds a Source that serves metadata from a map keyed by
// "category/pkg-version". Convenient for table-driven tests.
func FixedSource(entries map[string]*PackageMeta) *MockSource {
	return &MockSource{
		LookupFunc: func(category, pkg, version string) (*PackageMeta, error) {
			if meta, ok := entries[category+"/"+pkg+"-"+version]; ok {
				return meta, nil
			}
			return nil, ErrNotFound
		},
	}
}
