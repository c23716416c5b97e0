package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/amirasaad/ledger/pkg/money"
	"golang.org/x/sync/errgroup"
)

type pair struct{ src, dst string }

// report is the outcome of one scenario run.
type report struct {
	Accounts   int
	Transfers  int
	Succeeded  int
	Busy       int
	Mismatches []string
	Elapsed    time.Duration
}

type scenario struct {
	client    *client
	accounts  int
	workers   int
	balance   money.Money
	minAmount int
	maxAmount int
	seed      uint64
	progress  func(format string, args ...any)
}

func (s *scenario) run(ctx context.Context) (*report, error) {
	started := time.Now()
	uids, err := s.createAccounts(ctx)
	if err != nil {
		return nil, err
	}

	pairs := orderedPairs(uids)
	rand.New(rand.NewPCG(s.seed, 0)).Shuffle(len(pairs), func(i, j int) {
		pairs[i], pairs[j] = pairs[j], pairs[i]
	})

	deltas, succeeded, busy, err := s.transferAll(ctx, pairs)
	if err != nil {
		return nil, err
	}

	mismatches, err := s.checkBalances(ctx, uids, deltas)
	if err != nil {
		return nil, err
	}
	return &report{
		Accounts:   len(uids),
		Transfers:  len(pairs),
		Succeeded:  succeeded,
		Busy:       busy,
		Mismatches: mismatches,
		Elapsed:    time.Since(started),
	}, nil
}

func (s *scenario) createAccounts(ctx context.Context) ([]string, error) {
	uids := make([]string, s.accounts)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range s.accounts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			uid, err := s.client.CreateAccount(s.balance)
			if err != nil {
				return err
			}
			uids[i] = uid
			s.progress("[%d] Account was created: %s", i, uid)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return uids, nil
}

func orderedPairs(uids []string) []pair {
	pairs := make([]pair, 0, len(uids)*(len(uids)-1))
	for _, src := range uids {
		for _, dst := range uids {
			if src != dst {
				pairs = append(pairs, pair{src, dst})
			}
		}
	}
	return pairs
}

// transferAll splits pairs across the workers and returns the balance
// change of every account that took part in a successful transfer.
func (s *scenario) transferAll(ctx context.Context, pairs []pair) (map[string]money.Money, int, int, error) {
	var (
		mu        sync.Mutex
		deltas    = make(map[string]money.Money)
		succeeded int
		busy      int
	)
	g, gctx := errgroup.WithContext(ctx)
	for w := range s.workers {
		g.Go(func() error {
			rnd := rand.New(rand.NewPCG(s.seed, uint64(w)+1))
			local := make(map[string]money.Money)
			var ok, refused int
			for i := w; i < len(pairs); i += s.workers {
				if err := gctx.Err(); err != nil {
					return err
				}
				p := pairs[i]
				units := s.minAmount + rnd.IntN(s.maxAmount-s.minAmount+1)
				amount, err := money.FromCents(int64(units)*100, s.balance.Currency())
				if err != nil {
					return err
				}
				err = s.client.Transfer(p.src, p.dst, amount)
				switch {
				case errors.Is(err, errBusy):
					refused++
					continue
				case err != nil:
					return err
				}
				ok++
				if err := s.record(local, p.src, p.dst, amount); err != nil {
					return err
				}
			}

			mu.Lock()
			defer mu.Unlock()
			for uid, d := range local {
				sum, err := s.delta(deltas, uid).Add(d)
				if err != nil {
					return err
				}
				deltas[uid] = sum
			}
			succeeded += ok
			busy += refused
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, 0, err
	}
	return deltas, succeeded, busy, nil
}

func (s *scenario) delta(deltas map[string]money.Money, uid string) money.Money {
	if d, ok := deltas[uid]; ok {
		return d
	}
	return money.Zero(s.balance.Currency())
}

// record books amount as leaving src and arriving at dst.
func (s *scenario) record(deltas map[string]money.Money, src, dst string, amount money.Money) error {
	out, err := s.delta(deltas, src).Subtract(amount)
	if err != nil {
		return err
	}
	in, err := s.delta(deltas, dst).Add(amount)
	if err != nil {
		return err
	}
	deltas[src], deltas[dst] = out, in
	return nil
}

func (s *scenario) checkBalances(ctx context.Context, uids []string, deltas map[string]money.Money) ([]string, error) {
	var mismatches []string
	for _, uid := range uids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		actual, err := s.client.Balance(uid)
		if err != nil {
			return nil, err
		}
		expected, err := s.balance.Add(s.delta(deltas, uid))
		if err != nil {
			return nil, err
		}
		if c, err := actual.Cmp(expected); err != nil || c != 0 {
			mismatches = append(mismatches, fmt.Sprintf("account=%s expected=%s actual=%s", uid, expected, actual))
			continue
		}
		s.progress("Account was checked successfully: %s", uid)
	}
	return mismatches, nil
}
