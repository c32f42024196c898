package server

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/joeydtaylor/luarest/pkg/app"
	"github.com/joeydtaylor/luarest/pkg/middleware/metrics"
	"github.com/joeydtaylor/luarest/pkg/protocol"
	"go.uber.org/zap"
)

// PendingResponse is one assembled response waiting to be written.
type PendingResponse struct {
	Status      protocol.Status
	ContentType protocol.ContentType
	KeepAlive   bool
	Body        []byte
}

// AppendTo appends the wire form of r to dst, growing dst at most once.
func (r PendingResponse) AppendTo(dst []byte) []byte {
	dst = slices.Grow(dst, protocol.ResponseSize(r.Status, r.ContentType, r.KeepAlive, r.Body))
	return protocol.AppendResponse(dst, r.Status, r.ContentType, r.KeepAlive, r.Body)
}

// Dispatcher resolves a completed request to a handler and produces exactly
// one response for it.
type Dispatcher struct {
	apps *app.Registry
	log  *zap.Logger
}

func NewDispatcher(apps *app.Registry, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{apps: apps, log: log}
}

// Dispatch never fails to produce a response: lookup misses map to 404 and
// handler failures to 500. The returned error says why a policy response was
// used, and name is the resolved application, if any.
func (d *Dispatcher) Dispatch(ctx context.Context, req *request) (resp PendingResponse, name string, err error) {
	defer func() {
		metrics.RequestAnswered(name, resp.Status.Code())
	}()

	if req.urlErr != nil {
		return d.notFound(req, fmt.Errorf("%w: %v", ErrMalformedURL, req.urlErr))
	}
	appName, rest, err := splitAppPath(req.path)
	if err != nil {
		return d.notFound(req, err)
	}
	a, err := d.apps.Resolve(appName)
	if err != nil {
		return d.notFound(req, err)
	}
	name = a.Name
	if !req.method.Valid() {
		resp, _, err = d.notFound(req, fmt.Errorf("%w: %s", ErrMethodNotSupported, req.rawMeth))
		return resp, name, err
	}
	ref, err := a.Routes.Lookup(req.method, rest)
	if err != nil {
		resp, _, err = d.notFound(req, fmt.Errorf("%w: %s %s", ErrRouteNotFound, req.method, rest))
		return resp, name, err
	}

	start := time.Now()
	res, err := a.Env.Invoke(ctx, ref, req.appRequest(rest))
	metrics.ObserveInvoke(name, time.Since(start))
	if err == nil {
		resp, err = mapResult(res, req.keepAliveRequested)
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrInvocation, err)
		metrics.InvocationFailed(name)
		d.log.Error("handler invocation failed",
			zap.String("app", name),
			zap.String("method", req.method.String()),
			zap.String("path", rest),
			zap.Error(err),
		)
		return policy(protocol.StatusInternalServerError, req), name, err
	}
	return resp, name, nil
}

func (d *Dispatcher) notFound(req *request, err error) (PendingResponse, string, error) {
	d.log.Debug("no handler for request", zap.String("path", req.path), zap.Error(err))
	return policy(protocol.StatusNotFound, req), "", err
}

func policy(st protocol.Status, req *request) PendingResponse {
	return PendingResponse{Status: st, ContentType: protocol.ContentTypePlain, KeepAlive: req.keepAliveRequested}
}

func mapResult(res app.Result, keepAlive bool) (PendingResponse, error) {
	st, ok := protocol.StatusFromCode(res.StatusCode)
	if !ok {
		return PendingResponse{}, fmt.Errorf("status code %d out of range", res.StatusCode)
	}
	ct, ok := protocol.ContentTypeFromCode(res.ContentTypeCode)
	if !ok {
		return PendingResponse{}, fmt.Errorf("content type code %d out of range", res.ContentTypeCode)
	}
	return PendingResponse{Status: st, ContentType: ct, KeepAlive: keepAlive, Body: res.Body}, nil
}

// splitAppPath splits "/billing/invoices" into "billing" and "/invoices".
// A path without a "/" after the application name is malformed.
func splitAppPath(p string) (name, rest string, err error) {
	if !strings.HasPrefix(p, "/") {
		return "", "", ErrMalformedURL
	}
	i := strings.IndexByte(p[1:], '/')
	if i <= 0 {
		return "", "", ErrMalformedURL
	}
	return p[1 : i+1], p[i+1:], nil
}
