package ui

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarttavern/tavern-host-sdk/abi"
)

func Test_Notifier_Notify(t *testing.T) {
	t.Run("delivers to the sink", func(t *testing.T) {
		var got abi.Toast
		n := NewNotifier(ToastFunc(func(toast abi.Toast) { got = toast }))

		n.Notify(abi.Toast{Message: "saved", Level: abi.ToastSuccess})

		assert.Equal(t, "saved", got.Message)
		assert.Equal(t, abi.ToastSuccess, got.Level)
	})

	t.Run("coerces unknown levels to info", func(t *testing.T) {
		var got abi.Toast
		n := NewNotifier(ToastFunc(func(toast abi.Toast) { got = toast }))

		n.Notify(abi.Toast{Message: "hm", Level: "shouting"})

		assert.Equal(t, abi.ToastInfo, got.Level)
	})

	t.Run("nil sink logs instead of panicking", func(t *testing.T) {
		n := NewNotifier(nil)

		assert.NotPanics(t, func() {
			n.Notify(abi.Toast{Message: "nowhere to go"})
		})
	})
}

func Test_TerminalToasts_Show(t *testing.T) {
	t.Run("renders title and message", func(t *testing.T) {
		var buf bytes.Buffer
		sink := &TerminalToasts{Out: &buf}

		sink.Show(abi.Toast{Title: "Export", Message: "done", Level: abi.ToastSuccess})

		out := buf.String()
		assert.Contains(t, out, "Export")
		assert.Contains(t, out, "done")
	})

	t.Run("falls back to the level label without a title", func(t *testing.T) {
		var buf bytes.Buffer
		sink := &TerminalToasts{Out: &buf}

		sink.Show(abi.Toast{Message: "watch out", Level: abi.ToastWarning})

		assert.Contains(t, buf.String(), abi.ToastWarning)
	})
}

func Test_TerminalOptions_Show(t *testing.T) {
	t.Run("rejects an empty option list outside any mode", func(t *testing.T) {
		p := NewTerminalOptions()

		_, err := p.Show(context.Background(), abi.OptionsConfig{Mode: abi.OptionsSingle})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "no options")
	})
}
