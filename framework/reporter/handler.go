package reporter

import (
	"log/slog"
	"sync"
)

// Handler receives non-fatal errors written by the framework.
type Handler interface {
	Handle(err *Error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(err *Error)

func (f HandlerFunc) Handle(err *Error) { f(err) }

// LogHandler writes every reported error as a structured warning.
// A nil Logger falls back to slog.Default().
type LogHandler struct {
	Logger *slog.Logger
}

func (h *LogHandler) Handle(err *Error) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn(err.Message,
		"op", err.Op,
		"code", err.Code,
		"kind", err.Kind.String(),
	)
}

var (
	defaultHandler Handler = &LogHandler{}
	handlerMu      sync.RWMutex
)

// SetHandler configures the global handler.
// Pass nil to restore the default LogHandler.
func SetHandler(h Handler) {
	handlerMu.Lock()
	defer handlerMu.Unlock()
	if h == nil {
		defaultHandler = &LogHandler{}
	} else {
		defaultHandler = h
	}
}

func getHandler() Handler {
	handlerMu.RLock()
	defer handlerMu.RUnlock()
	return defaultHandler
}

// Report sends err to the global handler.
func Report(err *Error) {
	if err == nil {
		return
	}
	if h := getHandler(); h != nil {
		h.Handle(err)
	}
}

// Write builds an Error for code and reports it without returning it.
//
//	reporter.Write(reporter.CodeBehaviorAlreadyApplied, "ast.BindingBehavior.Bind", name)
func Write(code int, op string, args ...any) {
	Report(New(code, op, args...))
}
