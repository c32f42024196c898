// Package httpparser is an incremental HTTP/1.x request parser. Bytes are fed
// in arbitrary chunks and the parser reports what it recognised through a
// Handler, in arrival order. Token callbacks (URL, header field, header value)
// may fire several times for one token when it straddles chunk boundaries.
package httpparser

import (
	"bytes"
	"strconv"
)

// Handler receives parser events for one connection.
type Handler interface {
	OnMessageBegin()
	OnURL(b []byte)
	OnHeaderField(b []byte)
	OnHeaderValue(b []byte)
	OnHeadersComplete(m Method, f Flags)
	OnBody(b []byte)
	OnMessageComplete()
}

// Flags carry what the parser learned from the request headers.
type Flags uint8

const (
	FlagConnectionKeepAlive Flags = 1 << iota
	FlagConnectionClose
	FlagContentLength
)

type state uint8

const (
	sStart state = iota
	sMethod
	sURLStart
	sURL
	sProto
	sRequestLineLF
	sFieldStart
	sField
	sValueStart
	sValue
	sValueLF
	sHeadersLF
	sBody
)

type headerKind uint8

const (
	hOther headerKind = iota
	hConnection
	hContentLength
	hTransferEncoding
)

const (
	maxMethodLen    = 8
	maxProtoLen     = 8
	maxTrackedField = 32
	maxTrackedValue = 256
)

// Parser holds the cursor state for one connection. It is not safe for
// concurrent use.
type Parser struct {
	h     Handler
	limit int

	state state
	err   error
	read  int

	method    [maxMethodLen]byte
	methodLen int
	code      Method

	proto        [maxProtoLen]byte
	protoLen     int
	major, minor int

	flags     Flags
	remaining int64

	field         [maxTrackedField]byte
	fieldLen      int
	fieldOverflow bool
	kind          headerKind
	value         []byte
}

// New returns a Parser that reports to h. A positive limit caps the number of
// bytes a single message (head and body) may occupy.
func New(h Handler, limit int) *Parser {
	return &Parser{h: h, limit: limit, value: make([]byte, 0, maxTrackedValue)}
}

// Execute consumes data and returns how many bytes were used. It stops right
// after a message completes so the caller can respond before the next message
// begins; the unconsumed tail must be passed to the next call. Any error is
// permanent for this parser.
func (p *Parser) Execute(data []byte) (int, error) {
	if p.err != nil {
		return 0, p.err
	}

	mark := -1
	switch p.state {
	case sURL, sField, sValue:
		mark = 0
	}

	for i := 0; i < len(data); i++ {
		c := data[i]

		if p.state != sStart && p.state != sBody {
			p.read++
			if p.limit > 0 && p.read > p.limit {
				return i, p.fail(ErrTooLarge)
			}
		}

		switch p.state {
		case sStart:
			if c == '\r' || c == '\n' {
				continue
			}
			if c < 'A' || c > 'Z' {
				return i, p.fail(ErrInvalidMethod)
			}
			p.begin()
			p.read = 1
			p.h.OnMessageBegin()
			p.method[0] = c
			p.methodLen = 1
			p.state = sMethod

		case sMethod:
			if c == ' ' {
				if p.code = lookupMethod(p.method[:p.methodLen]); p.code == 0 {
					return i, p.fail(ErrInvalidMethod)
				}
				p.state = sURLStart
				continue
			}
			if c < 'A' || c > 'Z' || p.methodLen == maxMethodLen {
				return i, p.fail(ErrInvalidMethod)
			}
			p.method[p.methodLen] = c
			p.methodLen++

		case sURLStart:
			if !isURLChar(c) {
				return i, p.fail(ErrInvalidURL)
			}
			mark = i
			p.state = sURL

		case sURL:
			if c == ' ' {
				p.h.OnURL(data[mark:i])
				mark = -1
				p.state = sProto
				continue
			}
			if !isURLChar(c) {
				return i, p.fail(ErrInvalidURL)
			}

		case sProto:
			if c == '\r' {
				if err := p.parseVersion(); err != nil {
					return i, p.fail(err)
				}
				p.state = sRequestLineLF
				continue
			}
			if p.protoLen == maxProtoLen {
				return i, p.fail(ErrInvalidVersion)
			}
			p.proto[p.protoLen] = c
			p.protoLen++

		case sRequestLineLF, sValueLF:
			if c != '\n' {
				return i, p.fail(ErrLineEnding)
			}
			p.state = sFieldStart

		case sFieldStart:
			if c == '\r' {
				p.state = sHeadersLF
				continue
			}
			if !isTokenChar(c) {
				return i, p.fail(ErrInvalidHeader)
			}
			mark = i
			p.fieldLen = 0
			p.fieldOverflow = false
			p.trackField(c)
			p.state = sField

		case sField:
			if c == ':' {
				p.h.OnHeaderField(data[mark:i])
				mark = -1
				p.kind = p.classify()
				p.value = p.value[:0]
				p.state = sValueStart
				continue
			}
			if !isTokenChar(c) {
				return i, p.fail(ErrInvalidHeader)
			}
			p.trackField(c)

		case sValueStart:
			if c == ' ' || c == '\t' {
				continue
			}
			if c == '\r' {
				p.h.OnHeaderValue(data[i:i])
				if err := p.endValue(); err != nil {
					return i, p.fail(err)
				}
				p.state = sValueLF
				continue
			}
			if !isValueChar(c) {
				return i, p.fail(ErrInvalidHeader)
			}
			mark = i
			p.trackValue(c)
			p.state = sValue

		case sValue:
			if c == '\r' {
				p.h.OnHeaderValue(data[mark:i])
				mark = -1
				if err := p.endValue(); err != nil {
					return i, p.fail(err)
				}
				p.state = sValueLF
				continue
			}
			if !isValueChar(c) {
				return i, p.fail(ErrInvalidHeader)
			}
			p.trackValue(c)

		case sHeadersLF:
			if c != '\n' {
				return i, p.fail(ErrLineEnding)
			}
			p.h.OnHeadersComplete(p.code, p.flags)
			if p.remaining > 0 {
				p.state = sBody
				continue
			}
			p.complete()
			return i + 1, nil

		case sBody:
			n := len(data) - i
			if int64(n) > p.remaining {
				n = int(p.remaining)
			}
			p.read += n
			if p.limit > 0 && p.read > p.limit {
				return i, p.fail(ErrTooLarge)
			}
			p.h.OnBody(data[i : i+n])
			p.remaining -= int64(n)
			i += n - 1
			if p.remaining == 0 {
				p.complete()
				return i + 1, nil
			}
		}
	}

	if mark >= 0 {
		switch p.state {
		case sURL:
			p.h.OnURL(data[mark:])
		case sField:
			p.h.OnHeaderField(data[mark:])
		case sValue:
			p.h.OnHeaderValue(data[mark:])
		}
	}
	return len(data), nil
}

// ShouldKeepAlive reports whether the connection may carry another request
// after the current one: HTTP/1.1 unless "Connection: close", HTTP/1.0 only
// with "Connection: Keep-Alive".
func (p *Parser) ShouldKeepAlive() bool {
	if p.major > 0 && p.minor > 0 {
		return p.flags&FlagConnectionClose == 0
	}
	return p.flags&FlagConnectionKeepAlive != 0
}

// Version returns the protocol version of the current message.
func (p *Parser) Version() (major, minor int) { return p.major, p.minor }

// Err returns the error that stopped the parser, if any.
func (p *Parser) Err() error { return p.err }

func (p *Parser) fail(err error) error {
	p.err = err
	return err
}

func (p *Parser) begin() {
	p.methodLen = 0
	p.code = 0
	p.protoLen = 0
	p.major, p.minor = 0, 0
	p.flags = 0
	p.remaining = 0
}

func (p *Parser) complete() {
	p.state = sStart
	p.read = 0
	p.h.OnMessageComplete()
}

func (p *Parser) parseVersion() error {
	v := p.proto[:p.protoLen]
	if len(v) != 8 || !bytes.HasPrefix(v, []byte("HTTP/")) || v[6] != '.' {
		return ErrInvalidVersion
	}
	if v[5] != '1' || v[7] < '0' || v[7] > '9' {
		return ErrInvalidVersion
	}
	p.major = 1
	p.minor = int(v[7] - '0')
	return nil
}

func (p *Parser) trackField(c byte) {
	if p.fieldLen == maxTrackedField {
		p.fieldOverflow = true
		return
	}
	p.field[p.fieldLen] = lower(c)
	p.fieldLen++
}

func (p *Parser) trackValue(c byte) {
	if p.kind == hOther {
		return
	}
	if len(p.value) < maxTrackedValue {
		p.value = append(p.value, c)
	}
}

func (p *Parser) classify() headerKind {
	if p.fieldOverflow {
		return hOther
	}
	switch string(p.field[:p.fieldLen]) {
	case "connection":
		return hConnection
	case "content-length":
		return hContentLength
	case "transfer-encoding":
		return hTransferEncoding
	}
	return hOther
}

func (p *Parser) endValue() error {
	v := bytes.TrimRight(p.value, " \t")
	switch p.kind {
	case hConnection:
		for _, tok := range bytes.Split(v, []byte(",")) {
			tok = bytes.TrimSpace(tok)
			switch {
			case bytes.EqualFold(tok, []byte("keep-alive")):
				p.flags |= FlagConnectionKeepAlive
			case bytes.EqualFold(tok, []byte("close")):
				p.flags |= FlagConnectionClose
			}
		}
	case hContentLength:
		n, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil || n < 0 {
			return ErrInvalidContentLength
		}
		if p.flags&FlagContentLength != 0 && n != p.remaining {
			return ErrInvalidContentLength
		}
		p.flags |= FlagContentLength
		p.remaining = n
	case hTransferEncoding:
		if len(v) > 0 && !bytes.EqualFold(v, []byte("identity")) {
			return ErrUnsupportedTransferEncoding
		}
	}
	return nil
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

func isURLChar(c byte) bool { return c > 0x20 && c != 0x7f }

func isValueChar(c byte) bool { return c == '\t' || (c >= 0x20 && c != 0x7f) }

func isTokenChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '!', '#', '$', '%', '&', '\'', '*', '+', '-', '.', '^', '_', '`', '|', '~':
		return true
	}
	return false
}
