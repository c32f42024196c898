package logger

import (
	"time"

	"go.uber.org/zap"
)

// AccessLogger receives one entry per dispatched request. It is a distinct
// type so fx can tell it apart from the system logger.
type AccessLogger struct {
	*zap.Logger
}

// Access describes one answered request.
type Access struct {
	Conn       uint64
	RemoteAddr string
	Proto      string
	Method     string
	App        string
	URI        string
	Status     int
	Size       int
	Start      time.Time
	Latency    time.Duration
	KeepAlive  bool
	Err        error
}

func NewAccessLogger(l *zap.Logger) AccessLogger {
	if l == nil {
		l = zap.NewNop()
	}
	return AccessLogger{Logger: l}
}

func (a AccessLogger) Log(e Access) {
	if a.Logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("dateTime", e.Start.UTC().Format(time.RFC1123)),
		zap.Uint64("conn", e.Conn),
		zap.String("remoteAddr", e.RemoteAddr),
		zap.String("httpProto", e.Proto),
		zap.String("httpMethod", e.Method),
		zap.String("app", e.App),
		zap.String("uri", e.URI),
		zap.Duration("lat", e.Latency),
		zap.Int("responseSize", e.Size),
		zap.Int("status", e.Status),
		zap.Bool("keepAlive", e.KeepAlive),
	}
	if e.Err != nil {
		fields = append(fields, zap.NamedError("dispatchError", e.Err))
	}
	a.Info("request", fields...)
}
