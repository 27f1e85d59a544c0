package handlers

import (
	"errors"
	"net/http"

	"github.com/aretw0/hearth/internal/collab"
	"github.com/aretw0/hearth/pkg/core"
	"github.com/aretw0/hearth/pkg/server"
)

type createTokenRequest struct {
	Phone    string `json:"phone" validate:"len=10,number"`
	Password string `json:"password" validate:"required"`
}

type tokenQuery struct {
	ID string `json:"id" validate:"len=20"`
}

type extendTokenRequest struct {
	ID     string `json:"id" validate:"len=20"`
	Extend bool   `json:"extend" validate:"required"`
}

// createToken handles POST api/tokens: a login.
func (a *API) createToken(req *server.Request) server.Response {
	var in createTokenRequest
	if !a.binder.payload(req.Payload, &in) {
		return errMissingFields
	}

	user, err := a.users.Get(req.Context(), in.Phone)
	switch {
	case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrInvalidKey):
		return server.Error(http.StatusBadRequest, "Could not find the specified user")
	case err != nil:
		return a.internalError(req, "Could not read the user", err)
	}

	if !collab.Matches(a.hasher, in.Password, user.HashedPassword) {
		return server.Error(http.StatusBadRequest, "Password did not match the specified users stored password")
	}

	tok, err := a.tokens.Issue(req.Context(), in.Phone)
	if err != nil {
		return a.internalError(req, "Could not create the new token", err)
	}
	return server.JSON(http.StatusOK, tok)
}

// getToken handles GET api/tokens?id=.
func (a *API) getToken(req *server.Request) server.Response {
	var in tokenQuery
	if !a.binder.query(req.Query, &in) {
		return errMissingFields
	}

	tok, err := a.tokens.Lookup(req.Context(), in.ID)
	switch {
	case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrInvalidKey):
		return server.Empty(http.StatusNotFound)
	case err != nil:
		return a.internalError(req, "Could not read the token", err)
	}
	return server.JSON(http.StatusOK, tok)
}

// extendToken handles PUT api/tokens with {"id", "extend": true}.
func (a *API) extendToken(req *server.Request) server.Response {
	var in extendTokenRequest
	if !a.binder.payload(req.Payload, &in) {
		return server.Error(http.StatusBadRequest, "Missing required field(s) or field(s) are invalid")
	}

	tok, err := a.tokens.Extend(req.Context(), in.ID)
	switch {
	case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrInvalidKey):
		return server.Error(http.StatusBadRequest, "Specified token does not exist")
	case errors.Is(err, core.ErrExpired):
		return server.Error(http.StatusBadRequest, "The token has already expired and cannot be extended")
	case err != nil:
		return a.internalError(req, "Could not update the token's expiration", err)
	}
	return server.JSON(http.StatusOK, tok)
}

// deleteToken handles DELETE api/tokens?id=: a logout.
func (a *API) deleteToken(req *server.Request) server.Response {
	var in tokenQuery
	if !a.binder.query(req.Query, &in) {
		return errMissingField
	}

	err := a.tokens.Revoke(req.Context(), in.ID)
	switch {
	case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrInvalidKey):
		return server.Error(http.StatusBadRequest, "Could not find the specified token")
	case err != nil:
		return a.internalError(req, "Could not delete the specified token", err)
	}
	return server.OK()
}
