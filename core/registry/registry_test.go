package registry

import "testing"

func TestRegistry_SetGet(t *testing.T) {
	r := New()
	if _, ok := r.GetGlobal("missing"); ok {
		t.Fatal("GetGlobal missing: want false")
	}
	r.SetGlobal("k", []string{"a"})
	v, ok := r.GetGlobal("k")
	if !ok {
		t.Fatal("GetGlobal: want true")
	}
	if got := v.([]string); len(got) != 1 || got[0] != "a" {
		t.Errorf("GetGlobal = %v, want [a]", got)
	}
}

func TestRegistry_LockUnlock(t *testing.T) {
	r := New()
	if r.IsLocked(KeyRegistryAPI) {
		t.Fatal("new registry should not be locked")
	}
	r.Lock(KeyRegistryAPI)
	if !r.IsLocked(KeyRegistryAPI) {
		t.Error("Lock: want locked")
	}
	if r.IsLocked(KeyRegistryCron) {
		t.Error("Lock must only affect its own key")
	}
	r.UnlockForTesting(KeyRegistryAPI)
	if r.IsLocked(KeyRegistryAPI) {
		t.Error("UnlockForTesting: want unlocked")
	}
}
