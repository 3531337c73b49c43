// Package ui implements the host-side UI surface: toast notifications and
// blocking option dialogs. The terminal implementations render through
// stderr and huh so an embedding application can swap in its own sinks.
package ui

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/smarttavern/tavern-host-sdk/abi"
)

// ToastSink receives fire-and-forget notifications.
type ToastSink interface {
	Show(toast abi.Toast)
}

// ToastFunc adapts a function to the ToastSink interface.
type ToastFunc func(toast abi.Toast)

// Show implements ToastSink.
func (f ToastFunc) Show(toast abi.Toast) { f(toast) }

// Notifier normalizes toasts and fans them out to a sink. A nil sink falls
// back to structured logging so notifications are never lost silently.
type Notifier struct {
	sink   ToastSink
	logger *slog.Logger
}

// NotifierOption configures a Notifier.
type NotifierOption func(*Notifier)

// WithNotifierLogger sets the fallback logger.
func WithNotifierLogger(l *slog.Logger) NotifierOption {
	return func(n *Notifier) { n.logger = l }
}

// NewNotifier creates a notifier over sink, which may be nil.
func NewNotifier(sink ToastSink, opts ...NotifierOption) *Notifier {
	n := &Notifier{sink: sink, logger: slog.Default()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify delivers a toast. Unknown levels are coerced to info.
func (n *Notifier) Notify(toast abi.Toast) {
	switch toast.Level {
	case abi.ToastSuccess, abi.ToastError, abi.ToastWarning, abi.ToastInfo:
	default:
		toast.Level = abi.ToastInfo
	}
	if n.sink == nil {
		n.logger.Info("toast", "level", toast.Level, "title", toast.Title, "message", toast.Message)
		return
	}
	n.sink.Show(toast)
}

// TerminalToasts renders toasts as colored lines on a writer, stderr by
// default.
type TerminalToasts struct {
	Out io.Writer
}

// Show implements ToastSink.
func (t *TerminalToasts) Show(toast abi.Toast) {
	out := t.Out
	if out == nil {
		out = os.Stderr
	}
	color := "\033[0m"
	switch toast.Level {
	case abi.ToastSuccess:
		color = "\033[1;32m"
	case abi.ToastError:
		color = "\033[1;31m"
	case abi.ToastWarning:
		color = "\033[1;33m"
	case abi.ToastInfo:
		color = "\033[1;36m"
	}
	if toast.Title != "" {
		fmt.Fprintf(out, "%s%s\033[0m %s\n", color, toast.Title, toast.Message)
		return
	}
	fmt.Fprintf(out, "%s%s\033[0m %s\n", color, toast.Level, toast.Message)
}
