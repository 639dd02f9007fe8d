// extract.go implements total classification and extraction over arbitrary values.

package fault

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"reflect"
	"strings"
	"syscall"
)

// FallbackMessage is returned when nothing better can be extracted.
const FallbackMessage = "An unexpected error occurred"

// StatusCoder is implemented by API-shaped errors.
type StatusCoder interface {
	HTTPStatus() int
}

// FieldErrorer is implemented by validation-shaped errors.
type FieldErrorer interface {
	ValidationErrors() map[string][]string
}

// As finds the first error in v's chain assignable to T. T must be an
// interface type or implement error, as with errors.As. It reports false when
// v is not an error or the match is a nil pointer.
func As[T any](v any) (T, bool) {
	var zero T
	err, ok := v.(error)
	if !ok || isNil(err) {
		return zero, false
	}
	var target T
	if errors.As(err, &target) && !isNil(target) {
		return target, true
	}
	return zero, false
}

func IsFault(v any) bool           { _, ok := As[Fault](v); return ok }
func IsAPIFault(v any) bool        { _, ok := As[*APIFault](v); return ok }
func IsValidationFault(v any) bool { _, ok := As[*ValidationFault](v); return ok }
func IsNetworkFault(v any) bool    { _, ok := As[*NetworkFault](v); return ok }
func IsAuthFault(v any) bool       { _, ok := As[*AuthFault](v); return ok }
func IsPermissionFault(v any) bool { _, ok := As[*PermissionFault](v); return ok }
func IsNotFoundFault(v any) bool   { _, ok := As[*NotFoundFault](v); return ok }
func IsRateLimitFault(v any) bool  { _, ok := As[*RateLimitFault](v); return ok }

// KindOf returns the variant tag of the first fault in v's chain, or
// KindUnknown when v holds no fault.
func KindOf(v any) Kind {
	if f, ok := As[Fault](v); ok {
		return safeKind(f)
	}
	return KindUnknown
}

func safeKind(f Fault) (k Kind) {
	defer func() {
		if recover() != nil {
			k = KindUnknown
		}
	}()
	return f.Kind()
}

// IsNetworkError reports whether v looks like a transport failure: a
// NetworkFault, a net.Error, a *url.Error, a refused or reset connection, or
// an unexpected EOF.
func IsNetworkError(v any) bool {
	err, ok := v.(error)
	if !ok || isNil(err) {
		return false
	}
	if IsNetworkFault(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

// ExtractMessage returns a human-readable message for any value. It never
// panics and never returns an empty string.
//
// Precedence: error text, the string itself, a Stringer, a "message" map key
// or Message struct field, a JSON rendering, a %v rendering, FallbackMessage.
func ExtractMessage(v any) (msg string) {
	defer func() {
		if recover() != nil || strings.TrimSpace(msg) == "" {
			msg = FallbackMessage
		}
	}()

	if v == nil || isNil(v) {
		return FallbackMessage
	}

	switch x := v.(type) {
	case error:
		return x.Error()
	case string:
		return x
	case []byte:
		return string(x)
	case fmt.Stringer:
		return x.String()
	}

	if m, ok := messageField(v); ok {
		return m
	}
	return stringify(v)
}

// messageField looks for a non-empty "message"/"Message" entry in a map or struct.
func messageField(v any) (string, bool) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return "", false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return "", false
		}
		for _, key := range []string{"message", "Message", "msg"} {
			val := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
			if s, ok := stringValue(val); ok {
				return s, true
			}
		}
	case reflect.Struct:
		if s, ok := stringValue(rv.FieldByName("Message")); ok {
			return s, true
		}
	}
	return "", false
}

func stringValue(v reflect.Value) (string, bool) {
	if !v.IsValid() {
		return "", false
	}
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return "", false
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.String || !v.CanInterface() {
		return "", false
	}
	s := v.String()
	return s, s != ""
}

func stringify(v any) string {
	if data, err := json.Marshal(v); err == nil {
		s := string(data)
		if s != "null" && s != "{}" && s != `""` {
			return s
		}
	}
	return fmt.Sprintf("%v", v)
}

// Details is the normalized description of an arbitrary failure value.
type Details struct {
	Message    string
	Name       string
	Stack      string
	Code       string
	StatusCode int
	Kind       Kind
	Context    map[string]any
}

// ExtractDetails describes any value. It never panics and always sets Message.
func ExtractDetails(v any) (d Details) {
	d = Details{Message: ExtractMessage(v), Kind: KindUnknown, Name: typeName(v)}
	defer func() {
		if recover() != nil {
			d = Details{Message: d.Message, Name: d.Name, Kind: KindUnknown}
		}
	}()

	if f, ok := As[Fault](v); ok {
		env := f.Envelope()
		d.Kind = safeKind(f)
		d.Code = env.Code
		d.StatusCode = env.StatusCode
		d.Context = copyMap(env.Context)
		d.Stack = env.StackTrace()
		d.Name = typeName(f)
		return d
	}

	if err, ok := v.(error); ok {
		var st interface{ StackTrace() string }
		if errors.As(err, &st) && !isNil(st) {
			d.Stack = st.StackTrace()
		}
		var sc StatusCoder
		if errors.As(err, &sc) && !isNil(sc) {
			d.StatusCode = sc.HTTPStatus()
		}
		return d
	}

	if m, ok := v.(map[string]any); ok {
		d.Code, _ = m["code"].(string)
		d.Stack, _ = m["stack"].(string)
		switch sc := m["statusCode"].(type) {
		case int:
			d.StatusCode = sc
		case float64:
			d.StatusCode = int(sc)
		}
		if ctx, ok := m["context"].(map[string]any); ok {
			d.Context = copyMap(ctx)
		}
	}
	return d
}

// Normalize returns the first fault in v's chain, or wraps v in an Unknown
// fault (status 500, not user-facing) holding the raw value.
func Normalize(v any) Fault {
	if f, ok := As[Fault](v); ok {
		return f
	}
	u := &Unknown{
		Base: newBase("UNKNOWN", ExtractMessage(v), 500, false),
		Raw:  v,
	}
	if err, ok := v.(error); ok && !isNil(err) {
		u.Cause = err
	}
	return u
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	name := fmt.Sprintf("%T", v)
	return strings.TrimPrefix(name, "*")
}

func copyMap(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// isNil reports whether v is nil or a typed nil pointer, map, slice, func or chan.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
