// Package migrate runs versioned schema migrations and seeds against a
// client.Connection and records what ran in a migrations table.
package migrate

import (
	"context"
	"fmt"
	"sort"

	"github.com/dbkit-go/dbkit/runtime/client"
)

// Migration is one reversible schema change.
type Migration interface {
	Up(ctx context.Context, conn *client.Connection) error
	Down(ctx context.Context, conn *client.Connection) error
}

// Seed fills tables with data.
type Seed interface {
	Sow(ctx context.Context, conn *client.Connection) error
}

// Func adapts a pair of functions to Migration. A nil down does nothing.
type Func struct {
	UpFunc   func(ctx context.Context, conn *client.Connection) error
	DownFunc func(ctx context.Context, conn *client.Connection) error
}

func (f Func) Up(ctx context.Context, conn *client.Connection) error {
	return f.UpFunc(ctx, conn)
}

func (f Func) Down(ctx context.Context, conn *client.Connection) error {
	if f.DownFunc == nil {
		return nil
	}
	return f.DownFunc(ctx, conn)
}

// SeedFunc adapts a function to Seed.
type SeedFunc func(ctx context.Context, conn *client.Connection) error

func (f SeedFunc) Sow(ctx context.Context, conn *client.Connection) error { return f(ctx, conn) }

// Unit is a named migration or seed.
type Unit[T any] struct {
	Name string
	Unit T
}

// Source provides migrations and seeds sorted by name.
type Source interface {
	Migrations() ([]Unit[Migration], error)
	Seeds() ([]Unit[Seed], error)
}

// Set is a Source of units registered in Go code.
type Set struct {
	migrations map[string]Migration
	seeds      map[string]Seed
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{migrations: make(map[string]Migration), seeds: make(map[string]Seed)}
}

// Register adds a migration. It panics if name is registered twice.
func (s *Set) Register(name string, m Migration) *Set {
	if _, dup := s.migrations[name]; dup {
		panic(fmt.Sprintf("migrate: migration %q registered twice", name))
	}
	s.migrations[name] = m
	return s
}

// RegisterSeed adds a seed. It panics if name is registered twice.
func (s *Set) RegisterSeed(name string, seed Seed) *Set {
	if _, dup := s.seeds[name]; dup {
		panic(fmt.Sprintf("migrate: seed %q registered twice", name))
	}
	s.seeds[name] = seed
	return s
}

func (s *Set) Migrations() ([]Unit[Migration], error) { return sorted(s.migrations), nil }

func (s *Set) Seeds() ([]Unit[Seed], error) { return sorted(s.seeds), nil }

func sorted[T any](m map[string]T) []Unit[T] {
	units := make([]Unit[T], 0, len(m))
	for name, u := range m {
		units = append(units, Unit[T]{Name: name, Unit: u})
	}
	sort.Slice(units, func(i, j int) bool { return units[i].Name < units[j].Name })
	return units
}
