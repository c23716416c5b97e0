package account

import (
	"context"

	"github.com/amirasaad/ledger/pkg/domain/account"
	"github.com/amirasaad/ledger/pkg/money"
	accountsvc "github.com/amirasaad/ledger/pkg/service/account"
	"github.com/amirasaad/ledger/pkg/worker"
	"github.com/amirasaad/ledger/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// Routes registers HTTP routes for account operations.
//
// Routes:
//   - POST /api/account/create        : Open an account with an initial balance.
//   - GET  /api/account/:uid/balance  : Retrieve the balance of an account.
func Routes(app *fiber.App, accountSvc *accountsvc.Service, pool *worker.Pool) {
	app.Post("/api/account/create", CreateAccount(accountSvc, pool))
	app.Get("/api/account/:uid/balance", GetBalance(accountSvc, pool))
}

// CreateAccount returns a Fiber handler opening an account with the
// requested balance. The balance must lie within the configured bounds.
// @Summary Create a new account
// @Tags accounts
// @Accept json
// @Produce json
// @Param request body CreateAccountRequest true "Initial balance"
// @Success 200 {object} CreateAccountResponse
// @Failure 400 {object} common.ProblemDetails "Invalid request"
// @Failure 422 {object} common.ProblemDetails "Balance out of bounds"
// @Router /api/account/create [post]
func CreateAccount(accountSvc *accountsvc.Service, pool *worker.Pool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[CreateAccountRequest](c)
		if input == nil {
			return err // error response already written
		}
		balance, err := money.Parse(input.Balance.Amount.String(), money.Code(input.Balance.Currency))
		if err != nil {
			return common.ValidationProblemJSON(c, common.Invalid("balance", ""))
		}
		acct, err := worker.Run(c.UserContext(), pool, func(ctx context.Context) (account.Account, error) {
			return accountSvc.CreateAccount(ctx, balance)
		})
		if err != nil {
			log.Errorf("Failed to create account: %v", err)
			return common.ProblemDetailsJSON(c, "Failed to create account", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, CreateAccountResponse{Account: acct.UID.String()})
	}
}

// GetBalance returns a Fiber handler reporting an account's balance.
// @Summary Get account balance
// @Tags accounts
// @Produce json
// @Param uid path string true "Account uid"
// @Success 200 {object} BalanceResponse
// @Failure 400 {object} common.ProblemDetails "Invalid uid"
// @Failure 422 {object} common.ProblemDetails "Account not found"
// @Router /api/account/{uid}/balance [get]
func GetBalance(accountSvc *accountsvc.Service, pool *worker.Pool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid, err := account.ParseUID(c.Params("uid"))
		if err != nil {
			return common.ValidationProblemJSON(c, common.Invalid("uid", ""))
		}
		acct, err := worker.Run(c.UserContext(), pool, func(ctx context.Context) (account.Account, error) {
			return accountSvc.GetAccount(ctx, uid)
		})
		if err != nil {
			log.Debugf("Balance lookup for %s failed: %v", uid, err)
			return common.ProblemDetailsJSON(c, "Failed to get balance", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, BalanceResponse{Balance: acct.Balance})
	}
}
