package handlers

import (
	"errors"
	"net/http"
	"slices"

	"github.com/aretw0/hearth/pkg/core"
	"github.com/aretw0/hearth/pkg/server"
)

var (
	errItemInCart    = errors.New("item already in cart")
	errItemNotInCart = errors.New("item not in cart")
)

type cartItemRequest struct {
	Phone string `json:"phone" validate:"len=10,number"`
	ID    string `json:"id" validate:"required"`
}

// menuItem looks up a menu item by id. The bool is false when either the
// menu or the item is missing.
func (a *API) menuItem(req *server.Request, id string) (MenuItem, bool, error) {
	menu, err := a.menu.Get(req.Context(), MenuKey)
	if errors.Is(err, core.ErrNotFound) {
		return MenuItem{}, false, nil
	}
	if err != nil {
		return MenuItem{}, false, err
	}
	item, ok := menu[id]
	return item, ok, nil
}

// addToCart handles POST api/cart with {"phone", "id"}. An item can be in
// the cart only once.
func (a *API) addToCart(req *server.Request) server.Response {
	var in cartItemRequest
	if !a.binder.payload(req.Payload, &in) {
		return errMissingField
	}
	if !a.authorized(req, in.Phone) {
		return errForbidden
	}

	item, ok, err := a.menuItem(req, in.ID)
	if err != nil {
		return a.internalError(req, "Could not read the menu", err)
	}
	if !ok {
		return server.Error(http.StatusBadRequest, "That item does not exist on the menu")
	}

	var cart []MenuItem
	err = a.users.Mutate(req.Context(), in.Phone, func(u *User) error {
		if slices.ContainsFunc(u.Cart, func(x MenuItem) bool { return x.Name == item.Name }) {
			return errItemInCart
		}
		u.Cart = append(cartOf(*u), item)
		cart = u.Cart
		return nil
	})
	switch {
	case errors.Is(err, errItemInCart):
		return server.Error(http.StatusBadRequest, "That item already exists in the cart")
	case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrInvalidKey):
		return server.Error(http.StatusBadRequest, "Could not find the specified user")
	case err != nil:
		return a.internalError(req, "Could not update the cart", err)
	}
	return server.JSON(http.StatusOK, cart)
}

// getCart handles GET api/cart?phone=.
func (a *API) getCart(req *server.Request) server.Response {
	var in phoneQuery
	if !a.binder.query(req.Query, &in) {
		return errMissingField
	}
	if !a.authorized(req, in.Phone) {
		return errForbidden
	}

	user, err := a.users.Get(req.Context(), in.Phone)
	switch {
	case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrInvalidKey):
		return server.Error(http.StatusBadRequest, "Could not find the specified user")
	case err != nil:
		return a.internalError(req, "Could not get the users cart data", err)
	}
	return server.JSON(http.StatusOK, cartOf(user))
}

// removeFromCart handles DELETE api/cart?phone=&id=.
func (a *API) removeFromCart(req *server.Request) server.Response {
	var in cartItemRequest
	if !a.binder.query(req.Query, &in) {
		return errMissingField
	}
	if !a.authorized(req, in.Phone) {
		return errForbidden
	}

	item, ok, err := a.menuItem(req, in.ID)
	if err != nil {
		return a.internalError(req, "Could not read the menu", err)
	}
	if !ok {
		return server.Error(http.StatusBadRequest, "That item does not exist on the menu")
	}

	var cart []MenuItem
	err = a.users.Mutate(req.Context(), in.Phone, func(u *User) error {
		i := slices.IndexFunc(u.Cart, func(x MenuItem) bool { return x.Name == item.Name })
		if i < 0 {
			return errItemNotInCart
		}
		u.Cart = slices.Delete(u.Cart, i, i+1)
		cart = cartOf(*u)
		return nil
	})
	switch {
	case errors.Is(err, errItemNotInCart):
		return server.Error(http.StatusBadRequest, "That item is not in the cart")
	case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrInvalidKey):
		return server.Error(http.StatusBadRequest, "Could not find the specified user")
	case err != nil:
		return a.internalError(req, "Could not delete the item from the cart", err)
	}
	return server.JSON(http.StatusOK, cart)
}
