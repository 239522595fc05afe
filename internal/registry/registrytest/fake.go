// Package registrytest provides QueryHandler doubles for tests of packages
// that consume the registry.
package registrytest

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/connected-registry/connected-registry/internal/registry"
)

// FixtureFirst and FixtureSecond name the only pair FakeQueryHandler knows.
const (
	FixtureFirst  = "dev1"
	FixtureSecond = "dev2"
)

// FixtureEntries returns the three-entry history served for the fixture pair.
func FixtureEntries() []registry.Entry {
	return []registry.Entry{
		{RegisteredAt: time.Date(2022, 5, 30, 0, 0, 0, 0, time.UTC), Connected: false, Organizations: []string{}},
		{RegisteredAt: time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC), Connected: true, Organizations: []string{"org1", "org3"}},
		{RegisteredAt: time.Date(2022, 6, 2, 0, 0, 0, 0, time.UTC), Connected: true, Organizations: []string{"org1", "org2", "org3"}},
	}
}

// FakeQueryHandler serves FixtureEntries for dev1/dev2 and an empty history
// for every other pair. It counts invocations.
type FakeQueryHandler struct {
	calls atomic.Int64
}

// Handle implements registry.QueryHandler.
func (f *FakeQueryHandler) Handle(_ context.Context, q registry.ConnectedRegistryQuery) (registry.RegisterFor, error) {
	f.calls.Add(1)
	if q.First() != FixtureFirst || q.Second() != FixtureSecond {
		return registry.EmptyRegister(q), nil
	}
	return registry.RegisterFor{
		First:   registry.NewHandle(q.First()),
		Second:  registry.NewHandle(q.Second()),
		Entries: FixtureEntries(),
	}, nil
}

// Calls returns how many times Handle has run.
func (f *FakeQueryHandler) Calls() int64 {
	return f.calls.Load()
}

// FailingQueryHandler fails every query with Err.
type FailingQueryHandler struct {
	Err error
}

// Handle implements registry.QueryHandler.
func (f FailingQueryHandler) Handle(context.Context, registry.ConnectedRegistryQuery) (registry.RegisterFor, error) {
	return registry.RegisterFor{}, f.Err
}
