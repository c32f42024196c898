package server

import (
	"net"
	"net/url"
	"time"

	"github.com/joeydtaylor/luarest/pkg/app"
	"github.com/joeydtaylor/luarest/pkg/httpparser"
	"github.com/joeydtaylor/luarest/pkg/route"
)

// request holds everything accumulated for the message in flight. It is
// created on message begin and dropped exactly once, after the response is
// written or when the connection is closed.
type request struct {
	url     []byte
	path    string
	query   url.Values
	urlErr  error
	rawMeth httpparser.Method
	method  route.Method

	headers        []rawHeader
	fields, values int

	body []byte

	keepAliveRequested bool
	shouldKeepAlive    bool
	complete           bool
	major, minor       int
}

type rawHeader struct {
	name, value []byte
}

func (r *request) appRequest(rest string) *app.Request {
	hs := make([]app.Header, len(r.headers))
	for i, h := range r.headers {
		hs[i] = app.Header{Name: string(h.name), Value: string(h.value)}
	}
	return &app.Request{
		Method: r.method,
		Path:   rest,
		Query:  r.query,
		Header: hs,
		Body:   r.body,
	}
}

func (r *request) proto() string {
	if r.minor == 0 && r.major == 1 {
		return "HTTP/1.0"
	}
	return "HTTP/1.1"
}

// Conn is one accepted socket. All fields are owned by the reactor goroutine.
type Conn struct {
	id           uint64
	nc           net.Conn
	parser       *httpparser.Parser
	state        State
	req          *request
	lastActivity time.Time
	out          []byte
}

func newConn(id uint64, nc net.Conn, limit int, now time.Time) *Conn {
	c := &Conn{id: id, nc: nc, state: StateAccepted, lastActivity: now}
	c.parser = httpparser.New((*parserEvents)(c), limit)
	return c
}

func (c *Conn) ID() uint64 { return c.id }

func (c *Conn) State() State { return c.state }

// Idle is the time since the last successful read or completed write.
func (c *Conn) Idle(now time.Time) time.Duration { return now.Sub(c.lastActivity) }

// touch records activity at now. Activity never moves backwards.
func (c *Conn) touch(now time.Time) {
	if now.After(c.lastActivity) {
		c.lastActivity = now
	}
}

// release drops the per-request state.
func (c *Conn) release() { c.req = nil }

// parserEvents receives the parser callbacks for a Conn.
type parserEvents Conn

func (e *parserEvents) OnMessageBegin() {
	e.req = &request{}
	e.state = StateReading
}

func (e *parserEvents) OnURL(b []byte) {
	e.req.url = append(e.req.url, b...)
}

// A field event starts a new pair only once the previous pair has a value,
// so a field split across chunks extends the current name.
func (e *parserEvents) OnHeaderField(b []byte) {
	r := e.req
	if r.fields == r.values {
		r.headers = append(r.headers, rawHeader{})
		r.fields++
	}
	h := &r.headers[len(r.headers)-1]
	h.name = append(h.name, b...)
}

func (e *parserEvents) OnHeaderValue(b []byte) {
	r := e.req
	if r.fields == 0 {
		return
	}
	if r.values < r.fields {
		r.values++
	}
	h := &r.headers[len(r.headers)-1]
	h.value = append(h.value, b...)
}

func (e *parserEvents) OnHeadersComplete(m httpparser.Method, f httpparser.Flags) {
	r := e.req
	r.rawMeth = m
	r.method = methodFromParser(m)
	r.keepAliveRequested = f&httpparser.FlagConnectionKeepAlive != 0
	r.major, r.minor = e.parser.Version()

	u, err := url.ParseRequestURI(string(r.url))
	if err != nil {
		r.urlErr = err
	} else {
		r.path = u.Path
		r.query = u.Query()
	}
	e.state = StateHeadersComplete
}

func (e *parserEvents) OnBody(b []byte) {
	e.req.body = append(e.req.body, b...)
}

func (e *parserEvents) OnMessageComplete() {
	e.req.shouldKeepAlive = e.parser.ShouldKeepAlive()
	e.req.complete = true
}

func methodFromParser(m httpparser.Method) route.Method {
	switch m {
	case httpparser.MethodGet:
		return route.MethodGet
	case httpparser.MethodPost:
		return route.MethodPost
	case httpparser.MethodPut:
		return route.MethodPut
	case httpparser.MethodDelete:
		return route.MethodDelete
	case httpparser.MethodOptions:
		return route.MethodOptions
	case httpparser.MethodHead:
		return route.MethodHead
	}
	return 0
}
