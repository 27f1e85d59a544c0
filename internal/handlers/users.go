package handlers

import (
	"errors"
	"net/http"

	"github.com/aretw0/hearth/pkg/core"
	"github.com/aretw0/hearth/pkg/server"
)

type createUserRequest struct {
	FirstName    string `json:"firstName" validate:"required"`
	LastName     string `json:"lastName" validate:"required"`
	Phone        string `json:"phone" validate:"len=10,number"`
	Email        string `json:"email" validate:"required,email"`
	Address      string `json:"address" validate:"min=6"`
	Password     string `json:"password" validate:"min=4"`
	TOSAgreement bool   `json:"tosAgreement" validate:"required"`
}

type phoneQuery struct {
	Phone string `json:"phone" validate:"len=10,number"`
}

type updateUserRequest struct {
	Phone     string `json:"phone" validate:"len=10,number"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email" validate:"omitempty,email"`
	Address   string `json:"address" validate:"omitempty,min=6"`
	Password  string `json:"password" validate:"omitempty,min=4"`
}

func (r updateUserRequest) empty() bool {
	return r.FirstName == "" && r.LastName == "" && r.Email == "" && r.Address == "" && r.Password == ""
}

// createUser handles POST api/users.
func (a *API) createUser(req *server.Request) server.Response {
	var in createUserRequest
	if !a.binder.payload(req.Payload, &in) {
		return errMissingFields
	}

	user := User{
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Phone:          in.Phone,
		Email:          in.Email,
		Address:        in.Address,
		Cart:           []MenuItem{},
		HashedPassword: a.hasher.Hash(in.Password),
		TOSAgreement:   true,
	}

	err := a.users.Create(req.Context(), in.Phone, user)
	switch {
	case errors.Is(err, core.ErrAlreadyExists):
		return server.Error(http.StatusBadRequest, "A user with that phone number already exists")
	case errors.Is(err, core.ErrInvalidKey):
		return errMissingFields
	case err != nil:
		return a.internalError(req, "There were errors creating the user", err)
	}
	return server.JSON(http.StatusOK, map[string]string{"Success": "User has been created!"})
}

// getUser handles GET api/users?phone=. The password hash is never returned.
func (a *API) getUser(req *server.Request) server.Response {
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
		return server.Empty(http.StatusNotFound)
	case err != nil:
		return a.internalError(req, "Could not read the user", err)
	}

	user.HashedPassword = ""
	user.Cart = cartOf(user)
	return server.JSON(http.StatusOK, user)
}

// updateUser handles PUT api/users. Only the fields present are changed.
func (a *API) updateUser(req *server.Request) server.Response {
	var in updateUserRequest
	if !a.binder.payload(req.Payload, &in) {
		return errMissingField
	}
	if in.empty() {
		return server.Error(http.StatusBadRequest, "Missing fields to update")
	}
	if !a.authorized(req, in.Phone) {
		return errForbidden
	}

	err := a.users.Mutate(req.Context(), in.Phone, func(u *User) error {
		if in.FirstName != "" {
			u.FirstName = in.FirstName
		}
		if in.LastName != "" {
			u.LastName = in.LastName
		}
		if in.Email != "" {
			u.Email = in.Email
		}
		if in.Address != "" {
			u.Address = in.Address
		}
		if in.Password != "" {
			u.HashedPassword = a.hasher.Hash(in.Password)
		}
		return nil
	})
	switch {
	case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrInvalidKey):
		return server.Error(http.StatusBadRequest, "The specified user may not exist")
	case err != nil:
		return a.internalError(req, "Something went wrong updating the user", err)
	}
	return server.JSON(http.StatusOK, map[string]string{"Success": "The user has been updated"})
}

// deleteUser handles DELETE api/users?phone=.
func (a *API) deleteUser(req *server.Request) server.Response {
	var in phoneQuery
	if !a.binder.query(req.Query, &in) {
		return errMissingField
	}
	if !a.authorized(req, in.Phone) {
		return errForbidden
	}

	err := a.users.Delete(req.Context(), in.Phone)
	switch {
	case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrInvalidKey):
		return server.Error(http.StatusBadRequest, "Could not find the specified user")
	case err != nil:
		return a.internalError(req, "Could not delete the specified user", err)
	}
	return server.JSON(http.StatusOK, map[string]string{"Success": "User has been deleted"})
}
