package maintain

// MockRunner implements Runner for testing.
// The run function can be configured to control per-step behavior.
type MockRunner struct {
	RunFunc func(step Step) error

	// Ran records the steps in execution order
	Ran []Step
}

// Run records the step and delegates to RunFunc when set
func (m *MockRunner) Run(step Step) error {
	m.Ran = append(m.Ran, step)
	if m.RunFunc != nil {
		return m.RunFunc(step)
	}
	return nil
}

var _ Runner = (*MockRunner)(nil)
var _ Runner = (*ExecRunner)(nil)
