package vdb

// MockQuerier implements Querier for testing.
// The method can be configured with a custom function to control behavior.
type MockQuerier struct {
	InstalledFunc func() ([]Installed, error)
}

// Installed returns a snapshot of every installed package version
func (m *MockQuerier) Installed() ([]Installed, error) {
	if m.InstalledFunc != nil {
		return m.InstalledFunc()
	}
	return nil, nil
}

// Ensure MockQuerier implements Querier interface
var _ Querier = (*MockQuerier)(nil)
