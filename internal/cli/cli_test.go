package cli_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace/noop"

	"github.com/jensholdgaard/auction-house/internal/account"
	"github.com/jensholdgaard/auction-house/internal/auction"
	"github.com/jensholdgaard/auction-house/internal/cli"
	"github.com/jensholdgaard/auction-house/internal/clock"
	"github.com/jensholdgaard/auction-house/internal/ids"
	"github.com/jensholdgaard/auction-house/internal/store/memory"
)

// newTestCLI wires a console against in-memory stores. Auction ids come from
// the sequence generator, so the first auction is always ID1000.
func newTestCLI(t *testing.T, input string) (*cli.CLI, *bytes.Buffer) {
	t.Helper()

	clk := clock.NewMock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	accountsRepo := memory.NewAccountRepo(clk)
	events := memory.NewEventStore(clk)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tp := noop.NewTracerProvider()

	accounts := account.NewManager(accountsRepo, events, ids.UUID{}, logger, tp)
	auctions := auction.NewManager(events, accountsRepo, accounts, ids.NewSequence(), logger, tp, clk)

	var out bytes.Buffer
	c := cli.New(accounts, auctions, strings.NewReader(input), &out, logger, 1000, time.Hour)
	return c, &out
}

func TestCLI_FullSession(t *testing.T) {
	// Seller lists a painting at 10 with reserve 50. Alice bids 20, her 15
	// is rejected, she raises to 60 and ends the auction. She wins at 60.
	input := strings.Join([]string{
		"1", "seller", "seller@example.com",
		"4", "Painting", "Oil on canvas", "10", "50", "",
		"3",
		"1", "alice", "",
		"6",
		"5", "ID1000", "20",
		"5", "ID1000", "15",
		"5", "ID1000", "60",
		"7", "ID1000",
		"8", "ID1000",
		"9",
		"0",
	}, "\n") + "\n"

	c, out := newTestCLI(t, input)
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"Registered seller with balance 1000.00",
		"Auction ID1000 created for \"Painting\"",
		"1 active auction(s):",
		"Bid of 20.00 accepted on ID1000.",
		"Rejected:",
		"Bid of 60.00 accepted on ID1000.",
		"Current price:  60.00",
		"closed: sold to",
		"for 60.00",
		"Balance:     940.00",
		"Bids placed: 2",
		"Items owned: 1",
		"Goodbye.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q\n---\n%s", want, got)
		}
	}
}

func TestCLI_RequiresLogin(t *testing.T) {
	input := strings.Join([]string{"4", "5", "8", "9", "10", "0"}, "\n") + "\n"

	c, out := newTestCLI(t, input)
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := strings.Count(out.String(), "login first"); got != 5 {
		t.Errorf("login-first errors = %d, want 5\n---\n%s", got, out.String())
	}
}

func TestCLI_DuplicateUsername(t *testing.T) {
	input := strings.Join([]string{
		"1", "alice", "",
		"3",
		"1", "alice", "",
		"0",
	}, "\n") + "\n"

	c, out := newTestCLI(t, input)
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "Rejected:") || !strings.Contains(got, "username already exists") {
		t.Errorf("expected duplicate-username rejection\n---\n%s", got)
	}
}

func TestCLI_UnknownChoice(t *testing.T) {
	c, out := newTestCLI(t, "banana\n0\n")
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), `Unknown choice "banana"`) {
		t.Errorf("expected unknown-choice message\n---\n%s", out.String())
	}
}

func TestCLI_EOFEndsSession(t *testing.T) {
	c, _ := newTestCLI(t, "")
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run() on empty input error = %v", err)
	}
}

func TestCLI_AddFunds(t *testing.T) {
	input := strings.Join([]string{
		"1", "alice", "",
		"10", "250",
		"0",
	}, "\n") + "\n"

	c, out := newTestCLI(t, input)
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "Added 250.00; new balance 1250.00.") {
		t.Errorf("expected funds added confirmation\n---\n%s", out.String())
	}
}
