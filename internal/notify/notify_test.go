package notify

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListenersEmitInSubscriptionOrder(t *testing.T) {
	var l Listeners[int]
	var got []string

	l.Add(func(v int) { got = append(got, "a") })
	l.Add(func(v int) { got = append(got, "b") })
	l.Emit(1)

	require.Equal(t, []string{"a", "b"}, got)
}

func TestListenersUnsubscribe(t *testing.T) {
	var l Listeners[string]
	calls := 0
	remove := l.Add(func(string) { calls++ })

	l.Emit("x")
	remove()
	remove()
	l.Emit("y")

	require.Equal(t, 1, calls)
	require.Equal(t, 0, l.Len())
}

func TestListenersHandlerMaySubscribe(t *testing.T) {
	var l Listeners[int]
	l.Add(func(int) { l.Add(func(int) {}) })
	l.Emit(0)
	require.Equal(t, 2, l.Len())
}
