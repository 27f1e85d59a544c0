package handlers

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/hearth/internal/collab"
	"github.com/aretw0/hearth/pkg/core"
	"github.com/aretw0/hearth/pkg/server"
)

var (
	errCartEmpty    = errors.New("cart is empty")
	errChargeFailed = errors.New("charge failed")
)

type checkoutRequest struct {
	Phone   string `json:"phone" validate:"len=10,number"`
	Source  string `json:"source" validate:"required"`
	ToEmail string `json:"toEmail" validate:"required,email"`
}

type checkoutResult struct {
	Items []string `json:"items"`
	Total float64  `json:"total"`
	ID    string   `json:"id"`
	Order string   `json:"order"`
}

// checkout handles POST api/checkout: it charges the cart, empties it,
// records the order and mails a receipt.
//
// The charge runs inside the user's read-modify-write, so a cart change
// racing with checkout is either charged or kept, never lost.
func (a *API) checkout(req *server.Request) server.Response {
	var in checkoutRequest
	if !a.binder.payload(req.Payload, &in) {
		return errMissingField
	}
	if !a.authorized(req, in.Phone) {
		return errForbidden
	}

	var (
		user    User
		result  checkoutResult
		receipt collab.Receipt
	)
	err := a.users.Mutate(req.Context(), in.Phone, func(u *User) error {
		if len(u.Cart) == 0 {
			return errCartEmpty
		}

		items := make([]string, 0, len(u.Cart))
		total := 0.0
		for _, item := range u.Cart {
			items = append(items, item.Name)
			total += item.Price
		}
		total = math.Round(total*100) / 100

		var err error
		receipt, err = a.charger.Charge(req.Context(), collab.ChargeRequest{
			Amount:      total,
			Currency:    a.currency,
			Source:      in.Source,
			Email:       u.Email,
			Description: items,
		})
		if err != nil {
			return fmt.Errorf("%w: %w", errChargeFailed, err)
		}

		result = checkoutResult{Items: items, Total: total, ID: receipt.ID}
		u.Cart = []MenuItem{}
		user = *u
		return nil
	})
	switch {
	case errors.Is(err, errCartEmpty):
		return server.Error(http.StatusBadRequest, "The cart is empty")
	case errors.Is(err, errChargeFailed):
		a.logger.WarnContext(req.Context(), "checkout charge failed", "phone", in.Phone, "error", err)
		return server.Error(http.StatusBadRequest, "Something went wrong with the transaction")
	case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrInvalidKey):
		return server.Error(http.StatusBadRequest, "Could not find the specified user")
	case err != nil:
		return a.internalError(req, "Could not complete the checkout", err)
	}

	order := Order{
		ID:       in.Phone + "-" + uuid.NewString(),
		Phone:    in.Phone,
		Items:    result.Items,
		Total:    result.Total,
		Currency: a.currency,
		ChargeID: receipt.ID,
		Created:  time.Now().UnixMilli(),
	}
	if err := a.orders.Create(req.Context(), order.ID, order); err != nil {
		// The customer has been charged; the order record is best effort.
		a.logger.ErrorContext(req.Context(), "failed to record order", "charge", receipt.ID, "error", err)
	} else {
		result.Order = order.ID
	}

	if a.mailer != nil {
		collab.SendAsync(req.Context(), a.mailer, receiptMessage(a.mailFrom, in.ToEmail, user, result), a.logger)
	}

	return server.JSON(http.StatusOK, result)
}

func receiptMessage(from, to string, u User, r checkoutResult) collab.Message {
	items := strings.Join(r.Items, ", ")
	text := fmt.Sprintf(`Hello %s %s,

This email is to confirm that order# %s was successfully processed.

Your order items:
  %s

Your total:
  %.2f

If there were any questions you have please call (555) 555-5555.

Thank you for ordering pizza from us.`, u.FirstName, u.LastName, r.ID, items, r.Total)

	return collab.Message{
		From:    from,
		To:      to,
		Subject: "Your order for " + items,
		Text:    text,
	}
}
