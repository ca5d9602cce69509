package engine

import "testing"

func TestTracker_BindUnbind(t *testing.T) {
	tr := NewTracker()
	tr.Bind("c1", "AAAAAA")
	tr.Bind("c1", "BBBBBB")

	if code, ok := tr.Lookup("c1"); !ok || code != "BBBBBB" {
		t.Fatalf("Lookup() = %q, %v; want BBBBBB", code, ok)
	}

	tr.Unbind("c1", "AAAAAA")
	if _, ok := tr.Lookup("c1"); !ok {
		t.Fatal("unbinding a stale code dropped the current binding")
	}

	tr.Unbind("c1", "BBBBBB")
	if _, ok := tr.Lookup("c1"); ok {
		t.Fatal("binding survived Unbind")
	}
	if tr.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", tr.Len())
	}
}
