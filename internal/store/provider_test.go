package store_test

import (
	"context"
	"strings"
	"testing"

	"github.com/jensholdgaard/auction-house/internal/clock"
	"github.com/jensholdgaard/auction-house/internal/config"
	"github.com/jensholdgaard/auction-house/internal/store"

	// Import drivers so their init() functions register them.
	_ "github.com/jensholdgaard/auction-house/internal/store/memory"
	_ "github.com/jensholdgaard/auction-house/internal/store/postgres"
)

// fakeDriver is a store.Driver that always succeeds without connecting to a DB.
func fakeDriver(_ context.Context, _ config.DatabaseConfig, _ clock.Clock) (*store.Repositories, error) {
	return &store.Repositories{}, nil
}

func TestOpen(t *testing.T) {
	// Register a test driver.
	store.Register("test-driver", fakeDriver)

	tests := []struct {
		name    string
		driver  string
		wantErr bool
	}{
		{
			name:    "registered driver succeeds",
			driver:  "test-driver",
			wantErr: false,
		},
		{
			name:    "memory driver succeeds",
			driver:  "memory",
			wantErr: false,
		},
		{
			name:    "unknown driver fails",
			driver:  "nonexistent",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DatabaseConfig{Driver: tt.driver}
			_, err := store.Open(context.Background(), cfg, clock.Real{})
			if (err != nil) != tt.wantErr {
				t.Errorf("Open(driver=%q) error = %v, wantErr %v", tt.driver, err, tt.wantErr)
			}
		})
	}
}

func TestRegister_Postgres(t *testing.T) {
	// The postgres driver registers itself via the init() import above. It
	// will fail to connect here (no DB running), so only check that the
	// failure is a connection error and not a registration gap: neither an
	// unregistered store driver nor a missing database/sql driver, which
	// would mean the package no longer imports lib/pq for its side effect.
	cfg := config.DatabaseConfig{Driver: "postgres", Host: "localhost", Port: 5432}
	_, err := store.Open(context.Background(), cfg, clock.Real{})
	if err == nil {
		t.Fatal("expected error (no DB running), got nil")
	}
	if strings.Contains(err.Error(), "unknown store driver") {
		t.Errorf("expected connection error, got unknown driver error: %v", err)
	}
	if strings.Contains(err.Error(), "unknown driver") || strings.Contains(err.Error(), "forgotten import") {
		t.Errorf("sql driver %q is not registered: %v", "postgres", err)
	}
}
