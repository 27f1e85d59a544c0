package handlers

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/aretw0/hearth/pkg/core"
	"github.com/aretw0/hearth/pkg/server"
)

// listOrders handles GET api/orders?phone=, newest first.
func (a *API) listOrders(req *server.Request) server.Response {
	var in phoneQuery
	if !a.binder.query(req.Query, &in) {
		return errMissingField
	}
	if !a.authorized(req, in.Phone) {
		return errForbidden
	}

	keys, err := a.orders.Keys(req.Context())
	if err != nil {
		return a.internalError(req, "Could not list the orders", err)
	}

	// Order keys are "<phone>-<uuid>"; the phone is matched literally.
	prefix := in.Phone + "-"
	orders := make([]Order, 0)
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		order, err := a.orders.Get(req.Context(), key)
		if errors.Is(err, core.ErrNotFound) {
			continue // deleted since listing
		}
		if err != nil {
			return a.internalError(req, "Could not read the orders", err)
		}
		orders = append(orders, order)
	}

	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].Created > orders[j].Created
	})
	return server.JSON(http.StatusOK, orders)
}
