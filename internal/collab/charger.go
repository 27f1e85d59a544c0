package collab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrChargeInvalid is returned for requests the processor would reject outright.
	ErrChargeInvalid = errors.New("invalid charge request")
	// ErrChargeDeclined is returned when the payment source is declined.
	ErrChargeDeclined = errors.New("charge declined")
)

// DeclinedSource is a test payment source that is always declined.
const DeclinedSource = "tok_chargeDeclined"

// ReceiptHistory is how many recent receipts a LocalCharger keeps.
const ReceiptHistory = 100

// ChargeRequest describes one charge. Amount is in major currency units.
type ChargeRequest struct {
	Amount      float64
	Currency    string
	Source      string
	Email       string
	Description []string
}

// Receipt is the processor's record of a successful charge.
type Receipt struct {
	ID          string    `json:"id"`
	AmountCents int64     `json:"amount"`
	Currency    string    `json:"currency"`
	Email       string    `json:"receipt_email"`
	Description string    `json:"description"`
	Created     time.Time `json:"created"`
}

// Charger submits charges to a payment processor.
type Charger interface {
	Charge(ctx context.Context, req ChargeRequest) (Receipt, error)
}

// LocalCharger accepts every valid charge except DeclinedSource and keeps
// the last ReceiptHistory receipts in memory. It stands in when no processor
// is configured.
type LocalCharger struct {
	logger *slog.Logger

	mu       sync.Mutex
	receipts []Receipt
}

// NewLocalCharger creates a LocalCharger.
func NewLocalCharger(logger *slog.Logger) *LocalCharger {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalCharger{logger: logger.With("component", "charger")}
}

// Charge implements Charger.
func (c *LocalCharger) Charge(ctx context.Context, req ChargeRequest) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	if err := req.validate(); err != nil {
		return Receipt{}, err
	}
	if strings.TrimSpace(req.Source) == DeclinedSource {
		c.logger.Warn("charge declined", "email", req.Email)
		return Receipt{}, ErrChargeDeclined
	}

	desc, err := json.Marshal(req.Description)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrChargeInvalid, err)
	}

	receipt := Receipt{
		ID:          "ch_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		AmountCents: int64(math.Round(req.Amount * 100)),
		Currency:    strings.ToLower(strings.TrimSpace(req.Currency)),
		Email:       strings.TrimSpace(req.Email),
		Description: string(desc),
		Created:     time.Now().UTC(),
	}

	c.mu.Lock()
	c.receipts = append(c.receipts, receipt)
	if over := len(c.receipts) - ReceiptHistory; over > 0 {
		c.receipts = append(c.receipts[:0:0], c.receipts[over:]...)
	}
	c.mu.Unlock()

	c.logger.Info("charge accepted", "id", receipt.ID, "amount", receipt.AmountCents, "currency", receipt.Currency)
	return receipt, nil
}

// Receipts returns a copy of the most recent accepted charges, oldest first.
func (c *LocalCharger) Receipts() []Receipt {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Receipt(nil), c.receipts...)
}

func (r ChargeRequest) validate() error {
	switch {
	case r.Amount <= 0 || math.IsNaN(r.Amount) || math.IsInf(r.Amount, 0):
		return fmt.Errorf("%w: amount must be positive", ErrChargeInvalid)
	case strings.TrimSpace(r.Currency) == "":
		return fmt.Errorf("%w: currency is required", ErrChargeInvalid)
	case strings.TrimSpace(r.Source) == "":
		return fmt.Errorf("%w: source is required", ErrChargeInvalid)
	case len(strings.TrimSpace(r.Email)) <= 5:
		return fmt.Errorf("%w: receipt email is required", ErrChargeInvalid)
	case r.Description == nil:
		return fmt.Errorf("%w: description is required", ErrChargeInvalid)
	}
	return nil
}
