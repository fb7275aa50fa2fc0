package component

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwnerHierarchy(t *testing.T) {
	root := NewOwner(nil)
	child := NewOwner(root)

	assert.Equal(t, root, child.Parent())
	assert.NotEqual(t, root.ID(), child.ID())
}

func TestOwnerDisposeOrder(t *testing.T) {
	root := NewOwner(nil)
	a := NewOwner(root)
	b := NewOwner(root)

	var order []string
	root.OnCleanup(func() { order = append(order, "root-1") })
	root.OnCleanup(func() { order = append(order, "root-2") })
	a.OnCleanup(func() { order = append(order, "a") })
	b.OnCleanup(func() { order = append(order, "b") })

	root.Dispose()

	assert.Equal(t, []string{"b", "a", "root-2", "root-1"}, order)
	assert.True(t, a.IsDisposed())
	assert.True(t, b.IsDisposed())

	// Second dispose is a no-op.
	root.Dispose()
	assert.Len(t, order, 4)
}

func TestOnCleanupAfterDisposeRunsImmediately(t *testing.T) {
	o := NewOwner(nil)
	o.Dispose()

	ran := false
	o.OnCleanup(func() { ran = true })
	assert.True(t, ran)
}

func TestContextValuesInherit(t *testing.T) {
	type ctxKey struct{}

	root := NewOwner(nil)
	mid := NewOwner(root)
	leaf := NewOwner(mid)
	sibling := NewOwner(root)

	root.SetValue(ctxKey{}, "root")
	mid.SetValue(ctxKey{}, "mid")

	assert.Equal(t, "mid", leaf.GetValue(ctxKey{}))
	assert.Equal(t, "root", sibling.GetValue(ctxKey{}))

	_, ok := NewOwner(nil).LookupValue(ctxKey{})
	assert.False(t, ok)
}

func TestHookSlotsStableAcrossRenders(t *testing.T) {
	o := NewOwner(nil)

	var first, second *int
	o.SetRender(func() {
		var a, b *int
		if slot := o.UseHookSlot(); slot != nil {
			a = slot.(*int)
		} else {
			a = new(int)
			o.SetHookSlot(a)
		}
		if slot := o.UseHookSlot(); slot != nil {
			b = slot.(*int)
		} else {
			b = new(int)
			o.SetHookSlot(b)
		}
		if first == nil {
			first, second = a, b
			return
		}
		require.Same(t, first, a)
		require.Same(t, second, b)
	})

	o.Render()
	o.Render()
	o.Render()

	assert.NotSame(t, first, second)
	assert.Equal(t, int64(3), o.RenderCount())
}

func TestMarkDirtyWithoutRuntimeRendersImmediately(t *testing.T) {
	o := NewOwner(nil)
	o.SetRender(func() {})

	o.MarkDirty()
	assert.Equal(t, int64(1), o.RenderCount())

	o.Dispose()
	o.MarkDirty()
	assert.Equal(t, int64(1), o.RenderCount())
}
