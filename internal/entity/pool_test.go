package entity

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/hubdriver-core/internal/protocol"
)

func newTestEntity(t *testing.T, id string) *Entity {
	t.Helper()
	e, err := New(Definition{
		ID:         id,
		Type:       TypeLight,
		Name:       protocol.LanguageText{"en": id},
		Features:   []string{"on_off"},
		Attributes: map[string]any{"state": "OFF"},
	})
	require.NoError(t, err)
	return e
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Definition{ID: "", Type: TypeLight})
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = New(Definition{ID: "x", Type: "toaster"})
	assert.True(t, errors.Is(err, ErrInvalidType))
}

func TestPool_AddGet(t *testing.T) {
	pool := NewPool("available")
	e := newTestEntity(t, "light.kitchen")

	assert.True(t, pool.Add(e))
	got, ok := pool.Get("light.kitchen")
	require.True(t, ok)
	assert.Same(t, e, got)
	assert.Equal(t, 1, pool.Count())
}

func TestPool_AddDuplicateKeepsFirst(t *testing.T) {
	pool := NewPool("available")
	first := newTestEntity(t, "light.kitchen")
	second := newTestEntity(t, "light.kitchen")

	require.True(t, pool.Add(first))
	assert.False(t, pool.Add(second))

	got, _ := pool.Get("light.kitchen")
	assert.Same(t, first, got)
}

func TestPool_Remove(t *testing.T) {
	pool := NewPool("available")
	pool.Add(newTestEntity(t, "a"))

	assert.True(t, pool.Remove("a"))
	assert.False(t, pool.Remove("a"))
	assert.False(t, pool.Contains("a"))
}

func TestPool_UpdateAttributesMerges(t *testing.T) {
	pool := NewPool("configured")
	pool.Add(newTestEntity(t, "light.kitchen"))

	require.True(t, pool.UpdateAttributes("light.kitchen", map[string]any{"a": 1}))
	require.True(t, pool.UpdateAttributes("light.kitchen", map[string]any{"b": 2}))

	e, _ := pool.Get("light.kitchen")
	assert.Equal(t, map[string]any{"state": "OFF", "a": 1, "b": 2}, e.Attributes())
}

func TestPool_UpdateAttributesLastWriteWins(t *testing.T) {
	pool := NewPool("configured")
	pool.Add(newTestEntity(t, "light.kitchen"))

	pool.UpdateAttributes("light.kitchen", map[string]any{"state": "ON"})
	pool.UpdateAttributes("light.kitchen", map[string]any{"state": "OFF"})

	e, _ := pool.Get("light.kitchen")
	v, ok := e.Attribute("state")
	require.True(t, ok)
	assert.Equal(t, "OFF", v)
}

func TestPool_UpdateAttributesNotifiesDelta(t *testing.T) {
	pool := NewPool("configured")
	pool.Add(newTestEntity(t, "light.kitchen"))

	var changes []Change
	pool.OnChange(func(c Change) { changes = append(changes, c) })

	pool.UpdateAttributes("light.kitchen", map[string]any{"brightness": 128})

	require.Len(t, changes, 1)
	assert.Equal(t, "light.kitchen", changes[0].EntityID)
	assert.Equal(t, TypeLight, changes[0].EntityType)
	assert.Equal(t, map[string]any{"brightness": 128}, changes[0].Attributes)
}

func TestPool_UpdateAttributesUnknownEntity(t *testing.T) {
	pool := NewPool("configured")

	notified := false
	pool.OnChange(func(Change) { notified = true })

	assert.False(t, pool.UpdateAttributes("missing", map[string]any{"a": 1}))
	assert.False(t, notified)
}

func TestPool_AttributesAreCopied(t *testing.T) {
	pool := NewPool("configured")
	pool.Add(newTestEntity(t, "light.kitchen"))

	nested := map[string]any{"r": 1}
	pool.UpdateAttributes("light.kitchen", map[string]any{"color": nested})
	nested["r"] = 99

	e, _ := pool.Get("light.kitchen")
	attrs := e.Attributes()
	assert.Equal(t, 1, attrs["color"].(map[string]any)["r"])

	attrs["state"] = "mutated"
	v, _ := e.Attribute("state")
	assert.Equal(t, "OFF", v)
}

func TestPool_ListOrderedByID(t *testing.T) {
	pool := NewPool("available")
	for _, id := range []string{"c", "a", "b"} {
		pool.Add(newTestEntity(t, id))
	}

	var ids []string
	for _, d := range pool.Descriptors() {
		ids = append(ids, d.EntityID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	states := pool.States()
	require.Len(t, states, 3)
	assert.Equal(t, "OFF", states[0].Attributes["state"])
}

func TestPool_Clear(t *testing.T) {
	pool := NewPool("configured")
	pool.Add(newTestEntity(t, "a"))
	pool.Add(newTestEntity(t, "b"))

	pool.Clear()
	assert.Equal(t, 0, pool.Count())
}

func TestSubscribe_SharesReference(t *testing.T) {
	available := NewPool("available")
	configured := NewPool("configured")
	x := newTestEntity(t, "x")
	available.Add(x)

	missing := Subscribe(available, configured, []string{"x", "y"})

	assert.Equal(t, []string{"y"}, missing)
	got, ok := configured.Get("x")
	require.True(t, ok)
	assert.Same(t, x, got)
	assert.False(t, configured.Contains("y"))

	// Updates through configured are visible through available.
	configured.UpdateAttributes("x", map[string]any{"state": "ON"})
	v, _ := x.Attribute("state")
	assert.Equal(t, "ON", v)
}

func TestSubscribe_Idempotent(t *testing.T) {
	available := NewPool("available")
	configured := NewPool("configured")
	available.Add(newTestEntity(t, "x"))

	Subscribe(available, configured, []string{"x"})
	missing := Subscribe(available, configured, []string{"x"})

	assert.Empty(t, missing)
	assert.Equal(t, 1, configured.Count())
}

func TestUnsubscribe_PartialSuccess(t *testing.T) {
	configured := NewPool("configured")
	configured.Add(newTestEntity(t, "a"))
	configured.Add(newTestEntity(t, "c"))

	res := configured.Unsubscribe([]string{"a", "b", "c"})

	assert.False(t, res.OK())
	assert.Equal(t, []string{"a", "c"}, res.Removed)
	assert.Equal(t, []string{"b"}, res.Missing)
	assert.Equal(t, 0, configured.Count())
}

func TestUnsubscribe_AllPresent(t *testing.T) {
	configured := NewPool("configured")
	configured.Add(newTestEntity(t, "a"))

	assert.True(t, configured.Unsubscribe([]string{"a"}).OK())
}

func TestEntity_CommandHandler(t *testing.T) {
	e := newTestEntity(t, "light.kitchen")

	_, ok := e.Command(context.Background(), "on", nil)
	assert.False(t, ok)

	var gotCmd string
	e.SetCommandHandler(CommandFunc(func(_ context.Context, target *Entity, cmdID string, _ map[string]any) int {
		gotCmd = cmdID
		assert.Same(t, e, target)
		return protocol.StatusConflict
	}))

	code, ok := e.Command(context.Background(), "toggle", nil)
	require.True(t, ok)
	assert.Equal(t, protocol.StatusConflict, code)
	assert.Equal(t, "toggle", gotCmd)
}

func TestPool_ConcurrentUpdates(t *testing.T) {
	pool := NewPool("configured")
	pool.Add(newTestEntity(t, "light.kitchen"))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			pool.UpdateAttributes("light.kitchen", map[string]any{"level": n})
			_ = pool.States()
		}(i)
	}
	wg.Wait()

	e, _ := pool.Get("light.kitchen")
	_, ok := e.Attribute("level")
	assert.True(t, ok)
}
