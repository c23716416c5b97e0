// Command loadgen drives a running ledger with concurrent transfers and
// checks that no money was created or lost.
//
// It opens a set of accounts, transfers a random amount over every ordered
// pair of them from several workers at once, then compares each balance
// against the total of the transfers the server accepted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/amirasaad/ledger/pkg/money"
	"github.com/fatih/color"
	"golang.org/x/term"
)

var errBalanceMismatch = errors.New("balance mismatch")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "loadgen: %v\n", err) //nolint:errcheck
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("loadgen", flag.ContinueOnError)
	fs.SetOutput(out)
	var (
		baseURL  = fs.String("url", "http://localhost:3000", "base URL of the ledger")
		accounts = fs.Int("accounts", 50, "number of accounts to open")
		workers  = fs.Int("workers", 10, "concurrent clients")
		balance  = fs.String("balance", "1000000.00", "opening balance of every account")
		currency = fs.String("currency", "USD", "currency of accounts and transfers")
		minAmt   = fs.Int("min", 10, "smallest transfer amount")
		maxAmt   = fs.Int("max", 30, "largest transfer amount")
		timeout  = fs.Duration("timeout", 10*time.Second, "per request timeout")
		seed     = fs.Uint64("seed", 0, "random seed, 0 picks one")
		verbose  = fs.Bool("v", false, "print every created and checked account")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	code := money.Code(strings.ToUpper(*currency))
	if !code.IsSupported() {
		return fmt.Errorf("unsupported currency %q, want one of %v", *currency, money.Supported())
	}
	opening, err := money.Parse(*balance, code)
	if err != nil {
		return fmt.Errorf("invalid -balance %q: %w", *balance, err)
	}
	switch {
	case *accounts < 2:
		return fmt.Errorf("-accounts must be at least 2, got %d", *accounts)
	case *workers < 1:
		return fmt.Errorf("-workers must be positive, got %d", *workers)
	case *minAmt < 1 || *maxAmt < *minAmt:
		return fmt.Errorf("invalid amount range [%d, %d]", *minAmt, *maxAmt)
	}
	if *seed == 0 {
		*seed = rand.Uint64()
	}

	p := newPrinter(out)
	p.title("Ledger load test against %s (seed %d)", *baseURL, *seed)

	s := &scenario{
		client: &client{
			baseURL: strings.TrimRight(*baseURL, "/"),
			timeout: *timeout,
		},
		accounts:  *accounts,
		workers:   *workers,
		balance:   opening,
		minAmount: *minAmt,
		maxAmount: *maxAmt,
		seed:      *seed,
		progress:  func(string, ...any) {},
	}
	if *verbose {
		s.progress = p.info
	}

	r, err := s.run(ctx)
	if err != nil {
		return err
	}
	p.summary(r)
	if len(r.Mismatches) > 0 {
		return fmt.Errorf("%w: %d of %d accounts", errBalanceMismatch, len(r.Mismatches), r.Accounts)
	}
	return nil
}

// printer writes colored lines when out is a terminal and plain text
// otherwise.
type printer struct {
	mu    sync.Mutex
	out   io.Writer
	width int
	bold  *color.Color
	ok    *color.Color
	warn  *color.Color
	fail  *color.Color
	faint *color.Color
}

func newPrinter(out io.Writer) *printer {
	p := &printer{
		out:   out,
		width: 60,
		bold:  color.New(color.Bold),
		ok:    color.New(color.FgGreen, color.Bold),
		warn:  color.New(color.FgYellow),
		fail:  color.New(color.FgRed, color.Bold),
		faint: color.New(color.Faint),
	}
	tty := false
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		tty = true
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			p.width = min(w, 100)
		}
	}
	if !tty {
		for _, c := range []*color.Color{p.bold, p.ok, p.warn, p.fail, p.faint} {
			c.DisableColor()
		}
	}
	return p
}

func (p *printer) line(c *color.Color, format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c.Fprintf(p.out, format+"\n", args...) //nolint:errcheck
}

func (p *printer) title(format string, args ...any) {
	p.line(p.bold, format, args...)
	p.line(p.faint, "%s", strings.Repeat("─", p.width))
}

func (p *printer) info(format string, args ...any) {
	p.line(p.faint, format, args...)
}

func (p *printer) summary(r *report) {
	p.line(p.faint, "%s", strings.Repeat("─", p.width))
	p.line(p.bold, "Accounts:   %d", r.Accounts)
	p.line(p.bold, "Transfers:  %d", r.Transfers)
	p.line(p.ok, "Succeeded:  %d", r.Succeeded)
	busy := p.bold
	if r.Busy > 0 {
		busy = p.warn
	}
	p.line(busy, "Total fails: %d", r.Busy)
	p.line(p.bold, "Elapsed:    %s", r.Elapsed.Round(time.Millisecond))
	if r.Elapsed > 0 {
		p.line(p.bold, "Throughput: %.1f transfers/s", float64(r.Transfers)/r.Elapsed.Seconds())
	}
	for _, m := range r.Mismatches {
		p.line(p.fail, "Incorrect balance: %s", m)
	}
	if len(r.Mismatches) == 0 {
		p.line(p.ok, "All balances match")
	}
}
