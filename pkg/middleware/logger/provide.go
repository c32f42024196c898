package logger

import "go.uber.org/zap"

func ProvideLoggerMiddleware(a AccessLogger) *Middleware { return &Middleware{access: a} }
func ProvideLogger() *zap.Logger                         { return NewLog("system.log") }
func ProvideAccessLogger() AccessLogger                  { return NewAccessLogger(NewLog("http-access.log")) }
