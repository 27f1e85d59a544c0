package handlers

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// binder turns the untyped payload or query into a validated request struct.
// String values are trimmed first.
type binder struct {
	validate *validator.Validate
}

func newBinder() *binder {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &binder{validate: v}
}

// payload binds a JSON body. A field of the wrong JSON type fails the bind.
func (b *binder) payload(src map[string]any, dst any) bool {
	trimmed := make(map[string]any, len(src))
	for k, v := range src {
		if s, ok := v.(string); ok {
			v = strings.TrimSpace(s)
		}
		trimmed[k] = v
	}
	return b.bind(trimmed, dst)
}

// query binds query parameters.
func (b *binder) query(src map[string]string, dst any) bool {
	values := make(map[string]any, len(src))
	for k, v := range src {
		values[k] = strings.TrimSpace(v)
	}
	return b.bind(values, dst)
}

func (b *binder) bind(src map[string]any, dst any) bool {
	data, err := json.Marshal(src)
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false
	}
	return b.validate.Struct(dst) == nil
}
