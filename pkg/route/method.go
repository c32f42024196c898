package route

import "strings"

// Method is one of the HTTP methods a script may register a handler for.
type Method uint8

const (
	MethodGet Method = iota + 1
	MethodPost
	MethodPut
	MethodDelete
	MethodOptions
	MethodHead
)

var methodNames = [...]string{
	MethodGet:     "GET",
	MethodPost:    "POST",
	MethodPut:     "PUT",
	MethodDelete:  "DELETE",
	MethodOptions: "OPTIONS",
	MethodHead:    "HEAD",
}

func (m Method) String() string {
	if m.Valid() {
		return methodNames[m]
	}
	return "UNKNOWN"
}

func (m Method) Valid() bool { return m >= MethodGet && m <= MethodHead }

// ParseMethod maps an HTTP method token to a Method. Matching is case-insensitive.
func ParseMethod(s string) (Method, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for m := MethodGet; m <= MethodHead; m++ {
		if methodNames[m] == s {
			return m, true
		}
	}
	return 0, false
}

// MethodFromCode maps the numeric method codes scripts use (HTTP_METHOD_GET = 1 ... HTTP_METHOD_HEAD = 6).
func MethodFromCode(code int) (Method, bool) {
	m := Method(code)
	if code < 0 || code > int(MethodHead) || !m.Valid() {
		return 0, false
	}
	return m, true
}
