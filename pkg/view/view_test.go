package view

import (
	"io"
	"reflect"
	"testing"
)

type hookView struct {
	mounts, unmounts, activations, deactivations int
}

func (v *hookView) Render(w io.Writer) error { return nil }
func (v *hookView) Mount()                   { v.mounts++ }
func (v *hookView) Unmount()                 { v.unmounts++ }
func (v *hookView) Activate()                { v.activations++ }
func (v *hookView) Deactivate()              { v.deactivations++ }

func hookFactory() Factory {
	return FactoryFunc(func() View { return &hookView{} })
}

func TestInstanceLifecycle(t *testing.T) {
	inst := NewInstance("Upload", hookFactory())
	v := inst.View.(*hookView)

	inst.Activate()
	inst.Activate()
	inst.Deactivate()
	inst.Activate()
	inst.Destroy()
	inst.Destroy()

	if v.mounts != 1 {
		t.Errorf("mounts = %d, want 1", v.mounts)
	}
	if v.activations != 2 {
		t.Errorf("activations = %d, want 2", v.activations)
	}
	if v.deactivations != 2 {
		t.Errorf("deactivations = %d, want 2", v.deactivations)
	}
	if v.unmounts != 1 {
		t.Errorf("unmounts = %d, want 1", v.unmounts)
	}
	if inst.Active() {
		t.Error("destroyed instance should not be active")
	}
}

func TestNewInstanceUniqueIDs(t *testing.T) {
	a := NewInstance("Home", hookFactory())
	b := NewInstance("Home", hookFactory())
	if a.ID == b.ID {
		t.Error("instances should have distinct IDs")
	}
	if a.View == b.View {
		t.Error("factory should produce a fresh view per instance")
	}
}

func TestCacheGetPut(t *testing.T) {
	c := NewCache(0)
	if c.Capacity() != DefaultCapacity {
		t.Errorf("Capacity() = %d, want %d", c.Capacity(), DefaultCapacity)
	}

	inst := NewInstance("Upload", hookFactory())
	c.Put(inst)

	got, ok := c.Get("Upload")
	if !ok || got != inst {
		t.Fatal("expected retained instance for Upload")
	}
	if _, ok := c.Get("Generator"); ok {
		t.Error("unexpected instance for Generator")
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	var evicted []string
	c := NewCache(2, WithEvictHook(func(i *Instance) { evicted = append(evicted, i.Route) }))

	home := NewInstance("Home", hookFactory())
	upload := NewInstance("Upload", hookFactory())
	gen := NewInstance("Generator", hookFactory())
	home.Activate()

	c.Put(home)
	c.Put(upload)
	c.Get("Home") // Upload becomes LRU
	c.Put(gen)

	if !reflect.DeepEqual(evicted, []string{"Upload"}) {
		t.Fatalf("evicted = %v, want [Upload]", evicted)
	}
	if want := []string{"Generator", "Home"}; !reflect.DeepEqual(c.Routes(), want) {
		t.Errorf("Routes() = %v, want %v", c.Routes(), want)
	}

	c.Purge()
	if c.Len() != 0 {
		t.Errorf("Len() = %d after Purge, want 0", c.Len())
	}
	if v := home.View.(*hookView); v.unmounts != 1 {
		t.Errorf("home unmounts = %d, want 1", v.unmounts)
	}
}

func TestCacheUnbounded(t *testing.T) {
	c := NewCache(-1)
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		c.Put(NewInstance(name, hookFactory()))
	}
	if c.Len() != 10 {
		t.Errorf("Len() = %d, want 10", c.Len())
	}
}

func TestCachePutReplacesInstance(t *testing.T) {
	c := NewCache(4)
	first := NewInstance("Upload", hookFactory())
	first.Activate()
	second := NewInstance("Upload", hookFactory())

	c.Put(first)
	c.Put(second)

	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}
	if v := first.View.(*hookView); v.unmounts != 1 {
		t.Errorf("replaced instance unmounts = %d, want 1", v.unmounts)
	}
	if got, _ := c.Remove("Upload"); got != second {
		t.Error("Remove should return the replacing instance")
	}
}
