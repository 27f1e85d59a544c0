package handlers

import (
	"errors"
	"net/http"

	"github.com/aretw0/hearth/pkg/core"
	"github.com/aretw0/hearth/pkg/server"
)

// getMenu handles GET api/menu?phone=.
func (a *API) getMenu(req *server.Request) server.Response {
	var in phoneQuery
	if !a.binder.query(req.Query, &in) {
		return errMissingField
	}
	if !a.authorized(req, in.Phone) {
		return errForbidden
	}

	menu, err := a.menu.Get(req.Context(), MenuKey)
	switch {
	case errors.Is(err, core.ErrNotFound):
		return server.Empty(http.StatusNotFound)
	case err != nil:
		return a.internalError(req, "Could not read the menu", err)
	}
	return server.JSON(http.StatusOK, menu)
}
