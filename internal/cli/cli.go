// Package cli implements the interactive marketplace console. It reads menu
// choices from an input stream and drives the account and auction managers,
// keeping the logged-in identity in the session and passing it explicitly on
// every call.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jensholdgaard/auction-house/internal/account"
	"github.com/jensholdgaard/auction-house/internal/auction"
	"github.com/jensholdgaard/auction-house/internal/store"
)

// errQuit signals a clean exit chosen from the menu.
var errQuit = errors.New("quit")

// CLI is the interactive console session. It is single-user and not safe for
// concurrent use; the managers behind it are.
type CLI struct {
	accounts *account.Manager
	auctions *auction.Manager
	in       *bufio.Scanner
	out      io.Writer
	logger   *slog.Logger

	openingBalance  float64
	defaultDuration time.Duration

	current *store.Account
}

// New returns a console bound to the given streams. openingBalance funds new
// registrations and defaultDuration is used when the seller does not give one.
func New(accounts *account.Manager, auctions *auction.Manager, in io.Reader, out io.Writer, logger *slog.Logger, openingBalance float64, defaultDuration time.Duration) *CLI {
	return &CLI{
		accounts:        accounts,
		auctions:        auctions,
		in:              bufio.NewScanner(in),
		out:             out,
		logger:          logger,
		openingBalance:  openingBalance,
		defaultDuration: defaultDuration,
	}
}

// Run loops over the menu until the input ends, the context is cancelled or
// the user picks exit.
func (c *CLI) Run(ctx context.Context) error {
	fmt.Fprintln(c.out, "Welcome to the auction house.")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		c.printMenu()
		choice, ok := c.prompt("> ")
		if !ok {
			return c.in.Err()
		}

		if err := c.dispatch(ctx, choice); err != nil {
			if errors.Is(err, errQuit) {
				fmt.Fprintln(c.out, "Goodbye.")
				return nil
			}
			if auction.IsRejection(err) || errors.Is(err, store.ErrAccountNotFound) || errors.Is(err, store.ErrUsernameTaken) {
				fmt.Fprintf(c.out, "Rejected: %v\n", err)
				continue
			}
			c.logger.ErrorContext(ctx, "command failed",
				slog.String("choice", choice),
				slog.Any("error", err),
			)
			fmt.Fprintf(c.out, "Error: %v\n", err)
		}
	}
}

func (c *CLI) printMenu() {
	fmt.Fprintln(c.out)
	if c.current != nil {
		fmt.Fprintf(c.out, "Logged in as %s (balance %.2f)\n", c.current.Username, c.current.Balance)
	}
	fmt.Fprintln(c.out, "1) Register")
	fmt.Fprintln(c.out, "2) Login")
	fmt.Fprintln(c.out, "3) Logout")
	fmt.Fprintln(c.out, "4) Create auction")
	fmt.Fprintln(c.out, "5) Place bid")
	fmt.Fprintln(c.out, "6) View active auctions")
	fmt.Fprintln(c.out, "7) View auction details")
	fmt.Fprintln(c.out, "8) End auction")
	fmt.Fprintln(c.out, "9) My profile")
	fmt.Fprintln(c.out, "10) Add funds")
	fmt.Fprintln(c.out, "0) Exit")
}

func (c *CLI) dispatch(ctx context.Context, choice string) error {
	switch choice {
	case "1":
		return c.register(ctx)
	case "2":
		return c.login(ctx)
	case "3":
		return c.logout()
	case "4":
		return c.createAuction(ctx)
	case "5":
		return c.placeBid(ctx)
	case "6":
		return c.viewActive(ctx)
	case "7":
		return c.viewDetails(ctx)
	case "8":
		return c.endAuction(ctx)
	case "9":
		return c.profile(ctx)
	case "10":
		return c.addFunds(ctx)
	case "0", "exit", "quit":
		return errQuit
	default:
		fmt.Fprintf(c.out, "Unknown choice %q\n", choice)
		return nil
	}
}

func (c *CLI) register(ctx context.Context) error {
	username, ok := c.prompt("Username: ")
	if !ok || username == "" {
		return fmt.Errorf("username is required")
	}
	email, _ := c.prompt("Email (optional): ")

	a, err := c.accounts.Register(ctx, username, email, c.openingBalance)
	if err != nil {
		return err
	}
	c.current = a
	fmt.Fprintf(c.out, "Registered %s with balance %.2f. You are now logged in.\n", a.Username, a.Balance)
	return nil
}

func (c *CLI) login(ctx context.Context) error {
	username, ok := c.prompt("Username: ")
	if !ok || username == "" {
		return fmt.Errorf("username is required")
	}

	a, err := c.accounts.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	c.current = a
	fmt.Fprintf(c.out, "Welcome back, %s.\n", a.Username)
	return nil
}

func (c *CLI) logout() error {
	if c.current == nil {
		fmt.Fprintln(c.out, "Not logged in.")
		return nil
	}
	fmt.Fprintf(c.out, "Logged out %s.\n", c.current.Username)
	c.current = nil
	return nil
}

func (c *CLI) createAuction(ctx context.Context) error {
	if c.current == nil {
		return fmt.Errorf("login first")
	}

	name, ok := c.prompt("Item name: ")
	if !ok || name == "" {
		return fmt.Errorf("item name is required")
	}
	description, _ := c.prompt("Description (optional): ")

	startingPrice, err := c.promptFloat("Starting price: ")
	if err != nil {
		return err
	}
	reservePrice, err := c.promptFloat("Reserve price (0 for none): ")
	if err != nil {
		return err
	}

	duration := c.defaultDuration
	if raw, ok := c.prompt(fmt.Sprintf("Duration in minutes (blank for %d): ", int(c.defaultDuration.Minutes()))); ok && raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("parsing duration: %w", err)
		}
		duration = time.Duration(minutes) * time.Minute
	}

	a, err := c.auctions.CreateAuction(ctx, c.current.ID, name, description, startingPrice, reservePrice, duration)
	if err != nil {
		return err
	}
	item := a.Item()
	fmt.Fprintf(c.out, "Auction %s created for %q, starting at %.2f, ends in %d seconds.\n",
		item.ID, item.Name, item.StartingPrice, a.RemainingSeconds())
	return nil
}

func (c *CLI) placeBid(ctx context.Context) error {
	if c.current == nil {
		return fmt.Errorf("login first")
	}

	itemID, ok := c.prompt("Auction id: ")
	if !ok || itemID == "" {
		return fmt.Errorf("auction id is required")
	}
	amount, err := c.promptFloat("Amount: ")
	if err != nil {
		return err
	}

	if err := c.auctions.PlaceBid(ctx, itemID, c.current.ID, amount); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Bid of %.2f accepted on %s.\n", amount, itemID)
	return c.refreshSession(ctx)
}

func (c *CLI) viewActive(ctx context.Context) error {
	active := c.auctions.Active(ctx)
	if len(active) == 0 {
		fmt.Fprintln(c.out, "No active auctions.")
		return nil
	}

	fmt.Fprintf(c.out, "%d active auction(s):\n", len(active))
	for _, a := range active {
		item := a.Item()
		fmt.Fprintf(c.out, "  %s  %-20s  current %.2f  %ds left\n",
			item.ID, item.Name, a.CurrentPrice(), a.RemainingSeconds())
	}
	return nil
}

func (c *CLI) viewDetails(ctx context.Context) error {
	itemID, ok := c.prompt("Auction id: ")
	if !ok || itemID == "" {
		return fmt.Errorf("auction id is required")
	}

	a, err := c.auctions.Get(ctx, itemID)
	if err != nil {
		return err
	}

	item := a.Item()
	fmt.Fprintf(c.out, "Auction %s: %s\n", item.ID, item.Name)
	if item.Description != "" {
		fmt.Fprintf(c.out, "  %s\n", item.Description)
	}
	fmt.Fprintf(c.out, "  Seller:         %s\n", item.SellerID)
	fmt.Fprintf(c.out, "  Starting price: %.2f\n", item.StartingPrice)
	fmt.Fprintf(c.out, "  Current price:  %.2f\n", a.CurrentPrice())
	if item.ReservePrice > 0 {
		met := "not met"
		if a.ReserveMet() {
			met = "met"
		}
		fmt.Fprintf(c.out, "  Reserve:        %s\n", met)
	}

	if out, closed := a.Outcome(); closed {
		switch out.Status {
		case auction.StatusSold:
			fmt.Fprintf(c.out, "  Closed: sold to %s for %.2f\n", out.WinnerID, out.Price)
		default:
			fmt.Fprintf(c.out, "  Closed: %s\n", out.Status)
		}
	} else if a.IsActive() {
		fmt.Fprintf(c.out, "  Time left:      %ds\n", a.RemainingSeconds())
	} else {
		fmt.Fprintln(c.out, "  Expired, awaiting close")
	}

	history := a.History()
	fmt.Fprintf(c.out, "  Bids (%d):\n", len(history))
	for _, b := range history {
		fmt.Fprintf(c.out, "    %s  %.2f  %s\n", b.BidderID, b.Amount, b.Time.Format(time.RFC3339))
	}
	return nil
}

func (c *CLI) endAuction(ctx context.Context) error {
	if c.current == nil {
		return fmt.Errorf("login first")
	}

	itemID, ok := c.prompt("Auction id: ")
	if !ok || itemID == "" {
		return fmt.Errorf("auction id is required")
	}

	out, err := c.auctions.EndAuction(ctx, itemID)
	if err != nil {
		return err
	}

	switch out.Status {
	case auction.StatusSold:
		fmt.Fprintf(c.out, "Auction %s closed: sold to %s for %.2f.\n", itemID, out.WinnerID, out.Price)
	case auction.StatusUnsoldNoBids:
		fmt.Fprintf(c.out, "Auction %s closed: no bids, unsold.\n", itemID)
	case auction.StatusUnsoldReserveNotMet:
		fmt.Fprintf(c.out, "Auction %s closed: reserve not met, unsold.\n", itemID)
	}
	return c.refreshSession(ctx)
}

func (c *CLI) profile(ctx context.Context) error {
	if c.current == nil {
		return fmt.Errorf("login first")
	}

	p, err := c.accounts.GetProfile(ctx, c.current.ID)
	if err != nil {
		return err
	}
	c.current = &p.Account

	fmt.Fprintf(c.out, "Profile for %s\n", p.Account.Username)
	fmt.Fprintf(c.out, "  Balance:     %.2f\n", p.Account.Balance)
	fmt.Fprintf(c.out, "  Bids placed: %d\n", p.BidsPlaced)
	fmt.Fprintf(c.out, "  Items owned: %d\n", p.ItemsOwned)
	fmt.Fprintf(c.out, "  Items sold:  %d\n", p.ItemsSold)
	return nil
}

func (c *CLI) addFunds(ctx context.Context) error {
	if c.current == nil {
		return fmt.Errorf("login first")
	}

	amount, err := c.promptFloat("Amount: ")
	if err != nil {
		return err
	}
	if err := c.accounts.Credit(ctx, c.current.ID, amount, "funds added"); err != nil {
		return err
	}
	if err := c.refreshSession(ctx); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Added %.2f; new balance %.2f.\n", amount, c.current.Balance)
	return nil
}

// refreshSession re-reads the logged-in account so the header shows the
// balance after settlements and credits.
func (c *CLI) refreshSession(ctx context.Context) error {
	if c.current == nil {
		return nil
	}
	a, err := c.accounts.Get(ctx, c.current.ID)
	if err != nil {
		return fmt.Errorf("refreshing session: %w", err)
	}
	c.current = a
	return nil
}

func (c *CLI) prompt(label string) (string, bool) {
	fmt.Fprint(c.out, label)
	if !c.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.in.Text()), true
}

func (c *CLI) promptFloat(label string) (float64, error) {
	raw, ok := c.prompt(label)
	if !ok || raw == "" {
		return 0, fmt.Errorf("a number is required")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %q: %w", raw, err)
	}
	return v, nil
}
