package sequence

import (
	"context"
)

// MockStore is a test implementation of Store.
// Unset funcs behave like an empty store.
type MockStore struct {
	IncrementAndGetFunc func(ctx context.Context, name string) (int64, error)
	SetValueFunc        func(ctx context.Context, name string, value int64) error
	RaiseValueFunc      func(ctx context.Context, name string, floor int64) (int64, error)
	GetValueFunc        func(ctx context.Context, name string) (int64, error)
	GetFunc             func(ctx context.Context, name string) (*Counter, error)
	ListFunc            func(ctx context.Context) ([]Counter, error)
}

// IncrementAndGet implements Store.
func (m *MockStore) IncrementAndGet(ctx context.Context, name string) (int64, error) {
	if m.IncrementAndGetFunc != nil {
		return m.IncrementAndGetFunc(ctx, name)
	}
	return 1, nil
}

// SetValue implements Store.
func (m *MockStore) SetValue(ctx context.Context, name string, value int64) error {
	if m.SetValueFunc != nil {
		return m.SetValueFunc(ctx, name, value)
	}
	return nil
}

// RaiseValue implements Store.
func (m *MockStore) RaiseValue(ctx context.Context, name string, floor int64) (int64, error) {
	if m.RaiseValueFunc != nil {
		return m.RaiseValueFunc(ctx, name, floor)
	}
	return floor, nil
}

// GetValue implements Store.
func (m *MockStore) GetValue(ctx context.Context, name string) (int64, error) {
	if m.GetValueFunc != nil {
		return m.GetValueFunc(ctx, name)
	}
	return 0, nil
}

// Get implements Store.
func (m *MockStore) Get(ctx context.Context, name string) (*Counter, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, name)
	}
	return nil, ErrCounterNotFound
}

// List implements Store.
func (m *MockStore) List(ctx context.Context) ([]Counter, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

// MockScanner is a test implementation of Scanner.
type MockScanner struct {
	ScanFunc func(ctx context.Context, target Target) (int64, error)
}

// Scan implements Scanner.
func (m *MockScanner) Scan(ctx context.Context, target Target) (int64, error) {
	if m.ScanFunc != nil {
		return m.ScanFunc(ctx, target)
	}
	return 0, nil
}

// Ensure compile-time interface compliance.
var (
	_ Store   = (*MockStore)(nil)
	_ Scanner = (*MockScanner)(nil)
)
