package event

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_AddReportsChange(t *testing.T) {
	r := NewRegistry()
	l := &recorder{}

	require.True(t, r.Add(kindGame, l, Persistent))
	require.False(t, r.Add(kindGame, l, Persistent))
	require.True(t, r.Add(kindGame, l, Once), "mode switch is a change")
	require.Equal(t, 1, r.Len())
}

func TestRegistry_SnapshotOrderAndIsolation(t *testing.T) {
	r := NewRegistry()
	a, b, c := &recorder{name: "a"}, &recorder{name: "b"}, &recorder{name: "c"}
	r.Add(kindGame, a, Persistent)
	r.Add(kindGame, b, Once)
	r.Add(kindGame, c, Persistent)

	persistent, once := r.Snapshot(kindGame)
	require.Equal(t, []Listener{a, c}, persistent)
	require.Equal(t, []Listener{b}, once)

	r.Remove(kindGame, a)
	require.Equal(t, []Listener{a, c}, persistent, "snapshot is a copy")

	persistent, _ = r.Snapshot(kindGame)
	require.Equal(t, []Listener{c}, persistent)
}

func TestRegistry_RemovePrunesEmptyKinds(t *testing.T) {
	r := NewRegistry()
	l := &recorder{}
	r.Add(kindGame, l, Once)

	require.True(t, r.Remove(kindGame, l))
	require.False(t, r.Remove(kindGame, l))
	require.NotContains(t, r.sets, kindGame)
	require.Zero(t, r.Len())
	require.Zero(t, r.KindLen(kindGame))
}

func TestRegistry_RemoveModeOnlyMatchesMode(t *testing.T) {
	r := NewRegistry()
	l := &recorder{}
	r.Add(kindGame, l, Persistent)

	require.False(t, r.removeMode(kindGame, l, Once))
	require.True(t, r.hasMode(kindGame, l, Persistent))
	require.True(t, r.removeMode(kindGame, l, Persistent))
	require.False(t, r.Has(kindGame, l))
}

func TestRegistry_FuncListenerIdentity(t *testing.T) {
	r := NewRegistry()
	fn := func(Event) {}
	a, b := ListenerFunc(fn), ListenerFunc(fn)

	r.Add(kindGame, a, Persistent)

	require.True(t, r.Has(kindGame, a))
	require.False(t, r.Has(kindGame, b), "each wrapper is its own listener")
}

func TestRegistry_Clear(t *testing.T) {
	r := NewRegistry()
	r.Add(kindGame, &recorder{}, Persistent)
	r.Add(kindWave, &recorder{}, Once)

	r.Clear()

	require.Zero(t, r.Len())
	require.Empty(t, r.sets)
}

func TestMode_String(t *testing.T) {
	require.Equal(t, "persistent", Persistent.String())
	require.Equal(t, "once", Once.String())
	require.Equal(t, "unknown", Mode(9).String())
}
