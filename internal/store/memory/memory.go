// Package memory provides a store.Driver backed by in-process maps. It is
// the default driver for interactive use and tests; nothing survives a
// process restart.
package memory

import (
	"context"

	"github.com/jensholdgaard/auction-house/internal/clock"
	"github.com/jensholdgaard/auction-house/internal/config"
	"github.com/jensholdgaard/auction-house/internal/store"
)

func init() {
	store.Register("memory", openMemory)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func openMemory(_ context.Context, _ config.DatabaseConfig, clk clock.Clock) (*store.Repositories, error) {
	return &store.Repositories{
		Accounts: NewAccountRepo(clk),
		Events:   NewEventStore(clk),
		Closer:   nopCloser{},
		Ping:     func(context.Context) error { return nil },
	}, nil
}
