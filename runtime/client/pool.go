package client

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
)

// DefaultName is the connection name used when none is given.
const DefaultName = "default"

// ErrNoConnection is returned for names that are not registered.
var ErrNoConnection = errors.New("client: no such connection")

// Pool is a registry of named connections with a default name. It does no
// locking; register connections before sharing the pool.
type Pool struct {
	conns       map[string]*Connection
	defaultName string
}

// NewPool creates an empty pool whose default name is DefaultName.
func NewPool() *Pool {
	return &Pool{conns: make(map[string]*Connection), defaultName: DefaultName}
}

// OpenPool opens every configured connection. On failure the connections
// opened so far are closed.
func OpenPool(configs map[string]Config, defaultName string, opts ...Option) (*Pool, error) {
	p := NewPool()
	if defaultName != "" {
		p.defaultName = defaultName
	}
	for name, cfg := range configs {
		conn, err := Open(cfg, opts...)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("connection %q: %w", name, err), p.Close())
		}
		p.Set(name, conn)
	}
	return p, nil
}

// Get returns the named connection, or the default one for an empty name.
func (p *Pool) Get(name string) (*Connection, error) {
	if name == "" {
		name = p.defaultName
	}
	c, ok := p.conns[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoConnection, name)
	}
	return c, nil
}

// Set registers conn under name, replacing any previous one.
func (p *Pool) Set(name string, conn *Connection) {
	p.conns[name] = conn
}

// SetDefault changes the default connection name.
func (p *Pool) SetDefault(name string) {
	p.defaultName = name
}

// DefaultName returns the default connection name.
func (p *Pool) DefaultName() string { return p.defaultName }

// Default returns the default connection.
func (p *Pool) Default() (*Connection, error) {
	return p.Get(p.defaultName)
}

// Names returns the registered names in order.
func (p *Pool) Names() []string {
	names := make([]string, 0, len(p.conns))
	for name := range p.conns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Ping pings every connection concurrently and returns the first failure.
func (p *Pool) Ping(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for name, c := range p.conns {
		name, c := name, c
		g.Go(func() error {
			if err := c.Ping(ctx); err != nil {
				return fmt.Errorf("connection %q: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Close closes and forgets every connection.
func (p *Pool) Close() error {
	var errs []error
	for name, c := range p.conns {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("connection %q: %w", name, err))
		}
		delete(p.conns, name)
	}
	return errors.Join(errs...)
}
