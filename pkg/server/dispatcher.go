package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// DefaultMaxBodyBytes bounds the request body read by the Dispatcher.
const DefaultMaxBodyBytes = 1 << 20

const chunkSize = 4 << 10

var errBodyTooLarge = errors.New("request body too large")

// Recorder receives per-request measurements.
type Recorder interface {
	RequestStarted() (done func())
	ObserveRequest(method, route string, status int, d time.Duration)
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the logger. Requests are logged at Info when they succeed
// with 200 and at Warn otherwise.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithMaxBodyBytes bounds the body size; larger bodies get a 413.
func WithMaxBodyBytes(n int64) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxBody = n
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(rec Recorder) DispatcherOption {
	return func(d *Dispatcher) {
		d.recorder = rec
	}
}

// Dispatcher is the http.Handler that feeds requests to a Router.
type Dispatcher struct {
	router   *Router
	logger   *slog.Logger
	maxBody  int64
	recorder Recorder
}

// NewDispatcher creates a Dispatcher over router.
func NewDispatcher(router *Router, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		router:  router,
		logger:  slog.Default(),
		maxBody: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Router returns the router the dispatcher resolves against.
func (d *Dispatcher) Router() *Router {
	return d.router
}

// ServeHTTP implements http.Handler.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if d.recorder != nil {
		done := d.recorder.RequestStarted()
		defer done()
	}

	method := strings.ToLower(r.Method)
	route, h := d.router.Resolve(r.URL.Path)

	var resp Response
	body, err := d.readBody(r.Body)
	switch {
	case errors.Is(err, errBodyTooLarge):
		resp = Error(http.StatusRequestEntityTooLarge, "Request body too large")
	case err != nil:
		resp = Error(http.StatusBadRequest, "Could not read request body")
	default:
		req := &Request{
			Path:    TrimPath(r.URL.Path),
			Query:   flattenQuery(r),
			Method:  method,
			Headers: flattenHeaders(r),
			Payload: decodePayload(body),
			ctx:     r.Context(),
		}
		resp = d.invoke(h, req, r)
	}

	resp = normalize(resp)
	d.write(w, r, resp)

	elapsed := time.Since(start)
	if d.recorder != nil {
		d.recorder.ObserveRequest(method, route, resp.Status, elapsed)
	}

	level := slog.LevelInfo
	if resp.Status != http.StatusOK {
		level = slog.LevelWarn
	}
	d.logger.LogAttrs(r.Context(), level, "request",
		slog.String("method", strings.ToUpper(method)),
		slog.String("path", TrimPath(r.URL.Path)),
		slog.String("route", route),
		slog.Int("status", resp.Status),
		slog.Duration("duration", elapsed),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// readBody accumulates the body chunk by chunk, stopping past maxBody.
func (d *Dispatcher) readBody(body io.Reader) ([]byte, error) {
	if body == nil {
		return nil, nil
	}

	var buf bytes.Buffer
	chunk := make([]byte, chunkSize)
	for {
		n, err := body.Read(chunk)
		if n > 0 {
			if int64(buf.Len()+n) > d.maxBody {
				return nil, errBodyTooLarge
			}
			buf.Write(chunk[:n])
		}
		if err == io.EOF {
			return buf.Bytes(), nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// invoke runs the handler, converting a panic into a 500.
func (d *Dispatcher) invoke(h Handler, req *Request, r *http.Request) (resp Response) {
	defer func() {
		if recovered := recover(); recovered != nil {
			attrs := []slog.Attr{
				slog.String("path", req.Path),
				slog.String("error", fmt.Sprint(recovered)),
			}
			if d.logger.Enabled(r.Context(), slog.LevelDebug) {
				attrs = append(attrs, slog.String("stack", string(debug.Stack())))
			}
			d.logger.LogAttrs(r.Context(), slog.LevelError, "handler panic", attrs...)
			resp = Error(http.StatusInternalServerError, "Internal server error")
		}
	}()
	return h.Serve(req)
}

func (d *Dispatcher) write(w http.ResponseWriter, r *http.Request, resp Response) {
	switch body := resp.Body.(type) {
	case TextBody:
		if body.ContentType == "" || strings.HasPrefix(body.ContentType, "text/html") {
			render.Status(r, resp.Status)
			render.HTML(w, r, body.Text)
			return
		}
		w.Header().Set("Content-Type", body.ContentType)
		w.WriteHeader(resp.Status)
		_, _ = io.WriteString(w, body.Text)

	case JSONBody:
		payload, err := json.Marshal(body.Value)
		if err != nil {
			d.logger.Warn("response payload is not serializable", "error", err)
		}
		// Only objects and arrays go on the wire; null and scalars become {}.
		if err != nil || len(payload) == 0 || (payload[0] != '{' && payload[0] != '[') {
			payload = []byte("{}")
		}
		render.Status(r, resp.Status)
		render.JSON(w, r, json.RawMessage(payload))
	}
}

// normalize applies the defaults: status 200 and a {} JSON body.
func normalize(resp Response) Response {
	if resp.Status < 100 || resp.Status > 599 {
		resp.Status = http.StatusOK
	}
	if resp.Body == nil {
		resp.Body = JSONBody{}
	}
	return resp
}

// decodePayload never fails: anything but a JSON object becomes an empty map.
func decodePayload(body []byte) map[string]any {
	var payload map[string]any
	if len(bytes.TrimSpace(body)) == 0 || json.Unmarshal(body, &payload) != nil || payload == nil {
		return map[string]any{}
	}
	return payload
}

func flattenQuery(r *http.Request) map[string]string {
	values := r.URL.Query()
	out := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

func flattenHeaders(r *http.Request) map[string]string {
	out := make(map[string]string, len(r.Header))
	for k, v := range r.Header {
		out[strings.ToLower(k)] = strings.Join(v, ", ")
	}
	return out
}
