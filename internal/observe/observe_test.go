package observe_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"shiftlog/internal/observe"
)

func TestNotifierOrderAndCancel(t *testing.T) {
	var n observe.Notifier[int]
	var got []string

	cancelA := n.Subscribe(func(v int) { got = append(got, "a") })
	n.Subscribe(func(v int) { got = append(got, "b") })

	n.Publish(1)
	assert.Equal(t, []string{"a", "b"}, got)

	cancelA()
	cancelA()
	got = nil
	n.Publish(2)
	assert.Equal(t, []string{"b"}, got)
	assert.Equal(t, 1, n.Len())
}

func TestNotifierListenerMayUnsubscribe(t *testing.T) {
	var n observe.Notifier[string]
	calls := 0

	var cancel func()
	cancel = n.Subscribe(func(string) {
		calls++
		cancel()
	})

	n.Publish("x")
	n.Publish("y")
	assert.Equal(t, 1, calls)
}
