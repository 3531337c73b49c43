package eventbus_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/smarttavern/tavern-host-sdk/eventbus"
)

func Test_Emit_SubscriptionOrder(t *testing.T) {
	bus := eventbus.New()

	var order []string
	bus.On("chat:updated", func(payload any) {
		order = append(order, "first")
	})
	bus.On("chat:updated", func(payload any) {
		order = append(order, "second")
	})

	bus.Emit("chat:updated", nil)

	assert.Equal(t, []string{"first", "second"}, order)
}

func Test_Emit_PayloadDelivered(t *testing.T) {
	bus := eventbus.New()

	var got any
	bus.On("plugin:loaded", func(payload any) { got = payload })

	bus.Emit("plugin:loaded", "plg:plugins_foo")

	assert.Equal(t, "plg:plugins_foo", got)
}

func Test_Emit_PanickingHandlerDoesNotBlockOthers(t *testing.T) {
	bus := eventbus.New()

	var reached bool
	bus.On("boom", func(payload any) { panic("broken handler") })
	bus.On("boom", func(payload any) { reached = true })

	assert.NotPanics(t, func() {
		bus.Emit("boom", 42)
	})
	assert.True(t, reached, "second handler should still run")
}

func Test_Emit_NoSubscribers(t *testing.T) {
	bus := eventbus.New()

	assert.NotPanics(t, func() {
		bus.Emit("nobody:listens", "payload")
	})
}

func Test_Unsubscribe_Idempotent(t *testing.T) {
	bus := eventbus.New()

	calls := 0
	off := bus.On("tick", func(payload any) { calls++ })

	bus.Emit("tick", nil)
	off()
	off() // second call must be a no-op
	bus.Emit("tick", nil)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, bus.SubscriberCount("tick"))
}

func Test_Unsubscribe_OnlyRemovesOwnHandler(t *testing.T) {
	bus := eventbus.New()

	var order []string
	offA := bus.On("e", func(payload any) { order = append(order, "a") })
	bus.On("e", func(payload any) { order = append(order, "b") })

	offA()
	bus.Emit("e", nil)

	assert.Equal(t, []string{"b"}, order)
	assert.Equal(t, 1, bus.SubscriberCount("e"))
}

func Test_Emit_DifferentNamesIndependent(t *testing.T) {
	bus := eventbus.New()

	var a, b int
	bus.On("a", func(payload any) { a++ })
	bus.On("b", func(payload any) { b++ })

	bus.Emit("a", nil)
	bus.Emit("a", nil)
	bus.Emit("b", nil)

	assert.Equal(t, 2, a)
	assert.Equal(t, 1, b)
}
