package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/amirasaad/ledger/pkg/money"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var (
	// errBusy reports a transfer refused with RetryAfter.
	errBusy = errors.New("account busy")

	// errRateLimited reports a request rejected by the server's rate limiter.
	errRateLimited = errors.New("rate limited by the server; raise or unset RATE_LIMIT_MAX_REQUESTS on the ledger")
)

type problem struct {
	Title  string `json:"title"`
	Errors *struct {
		Application *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"application"`
	} `json:"errors"`
}

func (p problem) code() string {
	if p.Errors == nil || p.Errors.Application == nil {
		return ""
	}
	return p.Errors.Application.Code
}

// client talks to a running ledger over its HTTP API.
type client struct {
	baseURL string
	timeout time.Duration
}

func (c *client) do(agent *fiber.Agent, out any) error {
	code, body, errs := agent.Timeout(c.timeout).Bytes()
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	switch code {
	case fiber.StatusOK:
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	case fiber.StatusTooManyRequests:
		return fmt.Errorf("%w (status %d)", errRateLimited, code)
	}
	var p problem
	_ = json.Unmarshal(body, &p)
	if p.code() == "RetryAfter" {
		return errBusy
	}
	return fmt.Errorf("status %d: %s", code, body)
}

// CreateAccount opens an account holding balance and returns its uid.
func (c *client) CreateAccount(balance money.Money) (string, error) {
	var res struct {
		Account string `json:"account"`
	}
	agent := fiber.Post(c.baseURL + "/api/account/create").JSON(map[string]any{
		"balance": balance,
	})
	if err := c.do(agent, &res); err != nil {
		return "", fmt.Errorf("create account: %w", err)
	}
	if res.Account == "" {
		return "", errors.New("create account: empty uid in response")
	}
	return res.Account, nil
}

// Transfer moves amount from src to dst. It returns errBusy when the
// server asks to retry later; the request itself is never retried.
func (c *client) Transfer(src, dst string, amount money.Money) error {
	var res struct {
		Status string `json:"status"`
	}
	agent := fiber.Post(c.baseURL+"/api/transfer").
		Set("Idempotency-Key", uuid.NewString()).
		JSON(map[string]any{
			"source":      src,
			"destination": dst,
			"amount":      amount,
		})
	if err := c.do(agent, &res); err != nil {
		if errors.Is(err, errBusy) {
			return err
		}
		return fmt.Errorf("transfer %s -> %s (%s): %w", src, dst, amount, err)
	}
	if res.Status != "Success" {
		return fmt.Errorf("transfer %s -> %s (%s): unexpected status %q", src, dst, amount, res.Status)
	}
	return nil
}

// Balance reads the current balance of uid.
func (c *client) Balance(uid string) (money.Money, error) {
	var res struct {
		Balance money.Money `json:"balance"`
	}
	if err := c.do(fiber.Get(c.baseURL+"/api/account/"+uid+"/balance"), &res); err != nil {
		return money.Money{}, fmt.Errorf("balance of %s: %w", uid, err)
	}
	return res.Balance, nil
}
