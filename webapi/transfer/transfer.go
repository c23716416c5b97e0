// Package transfer serves the money transfer endpoint.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/amirasaad/ledger/pkg/domain/account"
	"github.com/amirasaad/ledger/pkg/money"
	transfersvc "github.com/amirasaad/ledger/pkg/service/transfer"
	"github.com/amirasaad/ledger/pkg/worker"
	"github.com/amirasaad/ledger/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// Handler serves POST /api/transfer.
type Handler struct {
	svc        *transfersvc.Service
	pool       *worker.Pool
	idem       *common.IdempotencyTracker
	retryAfter time.Duration
}

// NewHandler creates the transfer handler. retryAfter is advertised to
// clients whose transfer hit busy accounts.
func NewHandler(
	svc *transfersvc.Service,
	pool *worker.Pool,
	idem *common.IdempotencyTracker,
	retryAfter time.Duration,
) *Handler {
	return &Handler{svc: svc, pool: pool, idem: idem, retryAfter: retryAfter}
}

// Routes registers HTTP routes for transfers.
//
// Routes:
//   - POST /api/transfer : Move money between two accounts.
func Routes(app *fiber.App, h *Handler) {
	app.Post("/api/transfer", h.Transfer)
}

// Transfer moves money between two accounts of the same currency.
// A request carrying an Idempotency-Key header runs at most once per key;
// concurrent duplicates wait for and share the first execution. Reusing a
// key for a different transfer is refused with 422.
// @Summary Transfer money
// @Tags transfers
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Idempotency key"
// @Param request body TransferRequest true "Transfer details"
// @Success 200 {object} TransferResponse
// @Failure 400 {object} common.ProblemDetails "Invalid request"
// @Failure 422 {object} common.ProblemDetails "Transfer refused or idempotency key reused"
// @Failure 503 {object} common.ProblemDetails "Accounts busy, retry later"
// @Router /api/transfer [post]
func (h *Handler) Transfer(c *fiber.Ctx) error {
	input, err := common.BindAndValidate[TransferRequest](c)
	if input == nil {
		return err // error response already written
	}
	source, err := account.ParseUID(input.Source.String())
	if err != nil {
		return common.ValidationProblemJSON(c, common.Invalid("source", ""))
	}
	destination, err := account.ParseUID(input.Destination.String())
	if err != nil {
		return common.ValidationProblemJSON(c, common.Invalid("destination", ""))
	}
	amount, err := money.Parse(input.Amount.Amount.String(), money.Code(input.Amount.Currency))
	if err != nil {
		return common.ValidationProblemJSON(c, common.Invalid("amount", ""))
	}

	ctx := c.UserContext()
	fingerprint := fmt.Sprintf("%s>%s:%s", source, destination, amount)
	_, replayed, err := h.idem.Do(c.Get(common.IdempotencyHeader), fingerprint, func() (any, error) {
		return worker.Run(ctx, h.pool, func(ctx context.Context) (*transfersvc.Receipt, error) {
			return h.svc.TransferMoney(ctx, source, destination, amount)
		})
	})
	switch {
	case err == nil:
		if replayed {
			log.Debugf("Transfer %s -> %s replayed from idempotency key", source, destination)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK,
			TransferResponse{Status: transfersvc.OutcomeSuccess.String()})
	case errors.Is(err, common.ErrIdempotencyKeyReused):
		return common.ProblemDetailsJSON(c, "Idempotency key reused", err)
	case transfersvc.IsRetriable(err) || errors.Is(err, worker.ErrPoolClosed):
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfterSeconds(h.retryAfter)))
		return common.ProblemDetailsJSON(c, "Service Unavailable", err)
	case transfersvc.OutcomeOf(err) == transfersvc.OutcomeInternalError:
		log.Errorf("Transfer %s -> %s failed: %v", source, destination, err)
		return common.ProblemDetailsJSON(c, "Internal Server Error", err)
	default:
		return common.ProblemDetailsJSON(c, "Transfer refused", err)
	}
}

// retryAfterSeconds rounds d up to whole seconds, at least one.
func retryAfterSeconds(d time.Duration) int {
	return max(1, int(math.Ceil(d.Seconds())))
}
