package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jensholdgaard/auction-house/internal/config"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
		check   func(t *testing.T, cfg *config.Config)
	}{
		{
			name: "valid full config",
			yaml: `
database:
  host: "db.example.com"
  port: 5433
  user: "auctionhouse"
  password: "secret"
  dbname: "auctions"
  sslmode: "require"
  driver: "postgres"
server:
  port: 9090
telemetry:
  service_name: "my-auction-house"
  otlp_endpoint: "localhost:4318"
auction:
  default_duration_minutes: 30
  opening_balance: 500
`,
			wantErr: false,
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				if cfg.Database.Port != 5433 {
					t.Errorf("got db port %d, want %d", cfg.Database.Port, 5433)
				}
				if cfg.Server.Port != 9090 {
					t.Errorf("got server port %d, want %d", cfg.Server.Port, 9090)
				}
				if cfg.Telemetry.ServiceName != "my-auction-house" {
					t.Errorf("got service name %q, want %q", cfg.Telemetry.ServiceName, "my-auction-house")
				}
				if cfg.Auction.DefaultDuration() != 30*time.Minute {
					t.Errorf("got default duration %s, want 30m", cfg.Auction.DefaultDuration())
				}
				if cfg.Auction.OpeningBalance != 500 {
					t.Errorf("got opening balance %.2f, want 500", cfg.Auction.OpeningBalance)
				}
			},
		},
		{
			name:    "defaults applied",
			yaml:    `{}`,
			wantErr: false,
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				if cfg.Database.Host != "localhost" {
					t.Errorf("got db host %q, want %q", cfg.Database.Host, "localhost")
				}
				if cfg.Database.Driver != "memory" {
					t.Errorf("got driver %q, want %q", cfg.Database.Driver, "memory")
				}
				if cfg.Server.Port != 8080 {
					t.Errorf("got server port %d, want %d", cfg.Server.Port, 8080)
				}
				if cfg.Telemetry.ServiceName != "auction-house" {
					t.Errorf("got service name %q, want %q", cfg.Telemetry.ServiceName, "auction-house")
				}
				if cfg.Auction.DefaultDuration() != 60*time.Minute {
					t.Errorf("got default duration %s, want 1h", cfg.Auction.DefaultDuration())
				}
				if cfg.Auction.OpeningBalance != 1000 {
					t.Errorf("got opening balance %.2f, want 1000", cfg.Auction.OpeningBalance)
				}
			},
		},
		{
			name:    "invalid yaml",
			yaml:    `{{{invalid`,
			wantErr: true,
		},
		{
			name: "postgres driver accepted",
			yaml: `
database:
  driver: "postgres"
`,
			wantErr: false,
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				if cfg.Database.Driver != "postgres" {
					t.Errorf("got driver %q, want %q", cfg.Database.Driver, "postgres")
				}
			},
		},
		{
			name: "invalid driver rejected",
			yaml: `
database:
  driver: "mongodb"
`,
			wantErr: true,
		},
		{
			name: "zero default duration rejected",
			yaml: `
auction:
  default_duration_minutes: 0
`,
			wantErr: true,
		},
		{
			name: "negative opening balance rejected",
			yaml: `
auction:
  opening_balance: -5
`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "config.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o644); err != nil {
				t.Fatal(err)
			}

			cfg, err := config.Load(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil && cfg != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestDSN(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "db.local",
		Port:     5433,
		User:     "u",
		Password: "p",
		DBName:   "auctions",
		SSLMode:  "disable",
	}
	want := "host=db.local port=5433 user=u password=p dbname=auctions sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
