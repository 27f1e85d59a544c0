package handlers_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/hearth/internal/collab"
	"github.com/aretw0/hearth/internal/handlers"
	"github.com/aretw0/hearth/pkg/adapters/fs"
	"github.com/aretw0/hearth/pkg/core"
	"github.com/aretw0/hearth/pkg/server"
	"github.com/aretw0/hearth/pkg/token"
)

const (
	phone    = "1234567890"
	password = "secret1"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingMailer struct {
	sent chan collab.Message
}

func (m *recordingMailer) Send(_ context.Context, msg collab.Message) error {
	m.sent <- msg
	return nil
}

type env struct {
	t       *testing.T
	handler http.Handler
	svc     *core.Service
	clock   *clock
	charger *collab.LocalCharger
	mailer  *recordingMailer
}

func setup(t *testing.T) *env {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	repo := fs.NewRepository(fs.Config{Path: t.TempDir(), KeyLocks: true, Logger: logger})
	require.NoError(t, repo.Initialize(context.Background()))
	svc := core.NewService(repo)

	c := &clock{now: time.Now()}
	e := &env{
		t:       t,
		svc:     svc,
		clock:   c,
		charger: collab.NewLocalCharger(logger),
		mailer:  &recordingMailer{sent: make(chan collab.Message, 10)},
	}

	api := handlers.New(handlers.Deps{
		Store:    svc,
		Tokens:   token.NewAuthority(svc, token.WithClock(c.Now), token.WithLogger(logger)),
		Hasher:   collab.NewArgon2Hasher("test-secret"),
		Charger:  e.charger,
		Mailer:   e.mailer,
		Logger:   logger,
		MailFrom: "orders@example.com",
		Version:  "test",
	})
	e.handler = server.NewDispatcher(server.NewRouter(api.Routes(), nil), server.WithLogger(logger))

	require.NoError(t, svc.Create(context.Background(), "menu", handlers.MenuKey, core.Record{
		"1": map[string]any{"name": "Margherita", "price": 9.5},
		"2": map[string]any{"name": "Pepperoni", "price": 11.25},
	}))
	return e
}

// call performs a request and decodes the JSON response into a generic value.
func (e *env) call(method, path string, query url.Values, body any, tok string) (int, any) {
	e.t.Helper()

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.t, err)
		rd = strings.NewReader(string(data))
	}
	target := path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req := httptest.NewRequest(method, target, rd)
	if tok != "" {
		req.Header.Set("token", tok)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var out any
	require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return rec.Code, out
}

func (e *env) register() {
	e.t.Helper()
	status, body := e.call(http.MethodPost, "/api/users", nil, map[string]any{
		"firstName":    "Ada",
		"lastName":     "Lovelace",
		"phone":        phone,
		"email":        "ada@example.com",
		"address":      "12 Analytical St",
		"password":     password,
		"tosAgreement": true,
	}, "")
	require.Equal(e.t, http.StatusOK, status, "register: %v", body)
}

func (e *env) login() string {
	e.t.Helper()
	status, body := e.call(http.MethodPost, "/api/tokens", nil, map[string]any{"phone": phone, "password": password}, "")
	require.Equal(e.t, http.StatusOK, status, "login: %v", body)
	return body.(map[string]any)["id"].(string)
}

func errorOf(body any) string {
	m, _ := body.(map[string]any)
	s, _ := m["Error"].(string)
	return s
}

func TestTokens_Login(t *testing.T) {
	e := setup(t)
	e.register()

	status, body := e.call(http.MethodPost, "/api/tokens", nil, map[string]any{"phone": phone, "password": password}, "")
	require.Equal(t, http.StatusOK, status)

	tok := body.(map[string]any)
	assert.Equal(t, phone, tok["phone"])
	assert.Regexp(t, `^[a-z0-9]{20}$`, tok["id"])
	assert.Greater(t, tok["expires"].(float64), float64(e.clock.Now().UnixMilli()))

	status, body = e.call(http.MethodPost, "/api/tokens", nil, map[string]any{"phone": phone, "password": "wrong"}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.True(t, strings.HasPrefix(errorOf(body), "Password did not match"))

	status, body = e.call(http.MethodPost, "/api/tokens", nil, map[string]any{"phone": "0000000000", "password": password}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Could not find the specified user", errorOf(body))

	status, body = e.call(http.MethodPost, "/api/tokens", nil, map[string]any{"phone": 1234567890, "password": password}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Missing required fields", errorOf(body))
}

func TestTokens_Lifecycle(t *testing.T) {
	e := setup(t)
	e.register()
	id := e.login()

	status, body := e.call(http.MethodGet, "/api/tokens", url.Values{"id": {id}}, nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, id, body.(map[string]any)["id"])

	status, _ = e.call(http.MethodGet, "/api/tokens", url.Values{"id": {"aaaaaaaaaaaaaaaaaaaa"}}, nil, "")
	assert.Equal(t, http.StatusNotFound, status)

	e.clock.Advance(50 * time.Minute)
	status, _ = e.call(http.MethodPut, "/api/tokens", nil, map[string]any{"id": id, "extend": true}, "")
	require.Equal(t, http.StatusOK, status)

	// Still alive 50 minutes later thanks to the extension
	e.clock.Advance(50 * time.Minute)
	status, _ = e.call(http.MethodGet, "/api/users", url.Values{"phone": {phone}}, nil, id)
	assert.Equal(t, http.StatusOK, status)

	e.clock.Advance(time.Hour)
	status, body = e.call(http.MethodPut, "/api/tokens", nil, map[string]any{"id": id, "extend": true}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "The token has already expired and cannot be extended", errorOf(body))

	status, body = e.call(http.MethodPut, "/api/tokens", nil, map[string]any{"id": id, "extend": false}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Missing required field(s) or field(s) are invalid", errorOf(body))

	status, _ = e.call(http.MethodDelete, "/api/tokens", url.Values{"id": {id}}, nil, "")
	assert.Equal(t, http.StatusOK, status)
	status, body = e.call(http.MethodDelete, "/api/tokens", url.Values{"id": {id}}, nil, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Could not find the specified token", errorOf(body))
}

func TestUsers(t *testing.T) {
	e := setup(t)
	e.register()

	status, body := e.call(http.MethodPost, "/api/users", nil, map[string]any{
		"firstName": "Ada", "lastName": "L", "phone": phone, "email": "ada@example.com",
		"address": "12 Analytical St", "password": "other", "tosAgreement": true,
	}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "A user with that phone number already exists", errorOf(body))

	status, body = e.call(http.MethodPost, "/api/users", nil, map[string]any{
		"firstName": "Bob", "phone": "5555555555", "tosAgreement": false,
	}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Missing required fields", errorOf(body))

	id := e.login()

	status, body = e.call(http.MethodGet, "/api/users", url.Values{"phone": {phone}}, nil, "")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Missing required token in header, or token is invalid", errorOf(body))

	status, body = e.call(http.MethodGet, "/api/users", url.Values{"phone": {phone}}, nil, id)
	require.Equal(t, http.StatusOK, status)
	user := body.(map[string]any)
	assert.Equal(t, "Ada", user["firstName"])
	assert.Equal(t, []any{}, user["cart"])
	assert.NotContains(t, user, "hashedPassword")

	status, body = e.call(http.MethodPut, "/api/users", nil, map[string]any{"phone": phone}, id)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Missing fields to update", errorOf(body))

	status, _ = e.call(http.MethodPut, "/api/users", nil, map[string]any{"phone": phone, "lastName": "Byron", "password": "newpass"}, id)
	require.Equal(t, http.StatusOK, status)

	_, body = e.call(http.MethodGet, "/api/users", url.Values{"phone": {phone}}, nil, id)
	assert.Equal(t, "Byron", body.(map[string]any)["lastName"])

	status, _ = e.call(http.MethodPost, "/api/tokens", nil, map[string]any{"phone": phone, "password": "newpass"}, "")
	assert.Equal(t, http.StatusOK, status)

	status, _ = e.call(http.MethodDelete, "/api/users", url.Values{"phone": {phone}}, nil, id)
	require.Equal(t, http.StatusOK, status)

	_, err := e.svc.Read(context.Background(), "users", phone)
	assert.ErrorIs(t, err, core.ErrNotFound)

	status, body = e.call(http.MethodPatch, "/api/users", nil, nil, id)
	assert.Equal(t, http.StatusMethodNotAllowed, status)
	assert.Equal(t, "Method not allowed", errorOf(body))
}

func TestMenuAndCart(t *testing.T) {
	e := setup(t)
	e.register()
	id := e.login()

	status, body := e.call(http.MethodGet, "/api/menu", url.Values{"phone": {phone}}, nil, id)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Margherita", body.(map[string]any)["1"].(map[string]any)["name"])

	status, body = e.call(http.MethodPost, "/api/cart", nil, map[string]any{"phone": phone, "id": "1"}, id)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body, 1)

	status, body = e.call(http.MethodPost, "/api/cart", nil, map[string]any{"phone": phone, "id": "1"}, id)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "That item already exists in the cart", errorOf(body))

	status, body = e.call(http.MethodPost, "/api/cart", nil, map[string]any{"phone": phone, "id": "99"}, id)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "That item does not exist on the menu", errorOf(body))

	status, _ = e.call(http.MethodPost, "/api/cart", nil, map[string]any{"phone": phone, "id": "2"}, id)
	require.Equal(t, http.StatusOK, status)

	status, body = e.call(http.MethodGet, "/api/cart", url.Values{"phone": {phone}}, nil, id)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{
		map[string]any{"name": "Margherita", "price": 9.5},
		map[string]any{"name": "Pepperoni", "price": 11.25},
	}, body)

	status, body = e.call(http.MethodDelete, "/api/cart", url.Values{"phone": {phone}, "id": {"1"}}, nil, id)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{map[string]any{"name": "Pepperoni", "price": 11.25}}, body)

	status, body = e.call(http.MethodDelete, "/api/cart", url.Values{"phone": {phone}, "id": {"1"}}, nil, id)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "That item is not in the cart", errorOf(body))

	status, _ = e.call(http.MethodGet, "/api/cart", url.Values{"phone": {phone}}, nil, "")
	assert.Equal(t, http.StatusForbidden, status)
}

func TestConcurrentCartAdds(t *testing.T) {
	e := setup(t)
	e.register()
	id := e.login()

	var wg sync.WaitGroup
	for _, item := range []string{"1", "2"} {
		wg.Add(1)
		go func(item string) {
			defer wg.Done()
			status, _ := e.call(http.MethodPost, "/api/cart", nil, map[string]any{"phone": phone, "id": item}, id)
			assert.Equal(t, http.StatusOK, status)
		}(item)
	}
	wg.Wait()

	_, body := e.call(http.MethodGet, "/api/cart", url.Values{"phone": {phone}}, nil, id)
	assert.Len(t, body, 2, "no cart update may be lost")
}

func TestCheckout(t *testing.T) {
	e := setup(t)
	e.register()
	id := e.login()

	checkout := map[string]any{"phone": phone, "source": "tok_visa", "toEmail": "ada@example.com"}

	status, body := e.call(http.MethodPost, "/api/checkout", nil, checkout, id)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "The cart is empty", errorOf(body))

	e.call(http.MethodPost, "/api/cart", nil, map[string]any{"phone": phone, "id": "1"}, id)
	e.call(http.MethodPost, "/api/cart", nil, map[string]any{"phone": phone, "id": "2"}, id)

	declined := map[string]any{"phone": phone, "source": collab.DeclinedSource, "toEmail": "ada@example.com"}
	status, body = e.call(http.MethodPost, "/api/checkout", nil, declined, id)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Something went wrong with the transaction", errorOf(body))

	_, cart := e.call(http.MethodGet, "/api/cart", url.Values{"phone": {phone}}, nil, id)
	assert.Len(t, cart, 2, "a declined charge keeps the cart")

	status, body = e.call(http.MethodPost, "/api/checkout", nil, checkout, id)
	require.Equal(t, http.StatusOK, status, "%v", body)
	result := body.(map[string]any)
	assert.Equal(t, []any{"Margherita", "Pepperoni"}, result["items"])
	assert.Equal(t, 20.75, result["total"])
	assert.Equal(t, e.charger.Receipts()[0].ID, result["id"])
	assert.True(t, strings.HasPrefix(result["order"].(string), phone+"-"))

	_, cart = e.call(http.MethodGet, "/api/cart", url.Values{"phone": {phone}}, nil, id)
	assert.Equal(t, []any{}, cart)

	select {
	case msg := <-e.mailer.sent:
		assert.Equal(t, "ada@example.com", msg.To)
		assert.Equal(t, "Your order for Margherita, Pepperoni", msg.Subject)
		assert.Contains(t, msg.Text, "Hello Ada Lovelace")
		assert.Contains(t, msg.Text, "20.75")
	case <-time.After(2 * time.Second):
		t.Fatal("receipt was not mailed")
	}

	status, body = e.call(http.MethodGet, "/api/orders", url.Values{"phone": {phone}}, nil, id)
	require.Equal(t, http.StatusOK, status)
	orders := body.([]any)
	require.Len(t, orders, 1)
	order := orders[0].(map[string]any)
	assert.Equal(t, result["order"], order["id"])
	assert.Equal(t, 20.75, order["total"])
	assert.Equal(t, "usd", order["currency"])
}

func TestPingAndNotFound(t *testing.T) {
	e := setup(t)

	status, body := e.call(http.MethodGet, "/ping", nil, nil, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{}, body)

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut} {
		status, body = e.call(method, "/nope", nil, map[string]any{"x": 1}, "anything")
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, map[string]any{"notFound": "Path was not found"}, body)
	}
}
