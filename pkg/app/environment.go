package app

import (
	"context"
	"net/url"

	"github.com/joeydtaylor/luarest/pkg/manifest"
	"github.com/joeydtaylor/luarest/pkg/route"
)

// EntryPoint is the script every application directory must contain.
const EntryPoint = "main.lua"

// Request is the read-only view of a request handed to a handler.
type Request struct {
	Method route.Method
	Path   string // path after the application segment
	Query  url.Values
	Header []Header // arrival order, repeats kept
	Body   []byte
}

type Header struct {
	Name, Value string
}

// Result is what a handler returned, before the codes are checked against
// the protocol enumerations.
type Result struct {
	StatusCode      int
	ContentTypeCode int
	Body            []byte
}

// Environment is the scripting environment of one application. It resolves
// the HandlerRefs it issued during Load.
type Environment interface {
	Invoke(ctx context.Context, ref route.HandlerRef, req *Request) (Result, error)
	Close() error
}

// Bundle is one discovered application directory.
type Bundle struct {
	Name       string
	Dir        string
	EntryPoint string
	Manifest   manifest.App
}

// Loader initialises a bundle's scripting environment. The script registers
// its handlers into table while Load runs.
type Loader interface {
	Load(b Bundle, table *route.Table) (Environment, error)
}
