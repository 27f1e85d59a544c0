// Package handlers implements the pizza-ordering API served by hearth:
// users, tokens, menu, cart, checkout and orders.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/aretw0/hearth/internal/collab"
	"github.com/aretw0/hearth/pkg/server"
	"github.com/aretw0/hearth/pkg/token"
	"github.com/aretw0/hearth/pkg/typed"
)

const (
	usersCollection  = "users"
	menuCollection   = "menu"
	ordersCollection = "orders"

	// MenuKey is the single record of the menu collection.
	MenuKey = "menu"
)

// Store is the record store the handlers need.
type Store = typed.Store

// Deps are the collaborators of the API.
type Deps struct {
	Store    Store
	Tokens   *token.Authority
	Hasher   collab.Hasher
	Charger  collab.Charger
	Mailer   collab.Mailer
	Logger   *slog.Logger
	Currency string
	MailFrom string
	Version  string
}

// API holds the route handlers.
type API struct {
	users   *typed.Collection[User]
	menu    *typed.Collection[Menu]
	orders  *typed.Collection[Order]
	tokens  *token.Authority
	hasher  collab.Hasher
	charger collab.Charger
	mailer  collab.Mailer
	logger  *slog.Logger
	binder  *binder

	currency string
	mailFrom string
	version  string
}

// New creates the API.
func New(deps Deps) *API {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	currency := deps.Currency
	if currency == "" {
		currency = "usd"
	}

	return &API{
		users:    typed.NewCollection[User](deps.Store, usersCollection),
		menu:     typed.NewCollection[Menu](deps.Store, menuCollection),
		orders:   typed.NewCollection[Order](deps.Store, ordersCollection),
		tokens:   deps.Tokens,
		hasher:   deps.Hasher,
		charger:  deps.Charger,
		mailer:   deps.Mailer,
		logger:   logger.With("component", "handlers"),
		binder:   newBinder(),
		currency: currency,
		mailFrom: deps.MailFrom,
		version:  deps.Version,
	}
}

// Routes returns the route table. It is built once and handed to server.NewRouter.
func (a *API) Routes() map[string]server.Handler {
	return map[string]server.Handler{
		"":     server.Methods{"get": server.HandlerFunc(a.index)},
		"ping": server.HandlerFunc(a.ping),
		"api/users": server.Methods{
			"post":   server.HandlerFunc(a.createUser),
			"get":    server.HandlerFunc(a.getUser),
			"put":    server.HandlerFunc(a.updateUser),
			"delete": server.HandlerFunc(a.deleteUser),
		},
		"api/tokens": server.Methods{
			"post":   server.HandlerFunc(a.createToken),
			"get":    server.HandlerFunc(a.getToken),
			"put":    server.HandlerFunc(a.extendToken),
			"delete": server.HandlerFunc(a.deleteToken),
		},
		"api/menu": server.Methods{
			"get": server.HandlerFunc(a.getMenu),
		},
		"api/cart": server.Methods{
			"post":   server.HandlerFunc(a.addToCart),
			"get":    server.HandlerFunc(a.getCart),
			"delete": server.HandlerFunc(a.removeFromCart),
		},
		"api/checkout": server.Methods{
			"post": server.HandlerFunc(a.checkout),
		},
		"api/orders": server.Methods{
			"get": server.HandlerFunc(a.listOrders),
		},
	}
}

func (a *API) ping(*server.Request) server.Response {
	return server.OK()
}

// authorized reports whether the token header is a live token for phone.
func (a *API) authorized(req *server.Request, phone string) bool {
	return a.tokens.Verify(req.Context(), req.Header("token"), phone)
}

var (
	errForbidden     = server.Error(http.StatusForbidden, "Missing required token in header, or token is invalid")
	errMissingField  = server.Error(http.StatusBadRequest, "Missing required field")
	errMissingFields = server.Error(http.StatusBadRequest, "Missing required fields")
)

// internalError logs err and hides it from the client.
func (a *API) internalError(req *server.Request, msg string, err error) server.Response {
	a.logger.ErrorContext(req.Context(), msg, "path", req.Path, "method", req.Method, "error", err)
	return server.Error(http.StatusInternalServerError, msg)
}
