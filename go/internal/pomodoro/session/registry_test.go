package session

import (
	"errors"
	"testing"
)

func sequence(codes ...string) CodeSource {
	i := 0
	return func() (string, error) {
		code := codes[i%len(codes)]
		i++
		return code, nil
	}
}

func TestRegistry_CreateDefaults(t *testing.T) {
	r := NewRegistry(WithCodeSource(sequence("K7N4PX")))

	s, err := r.Create(DefaultDurations())
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if s.Code() != "K7N4PX" {
		t.Fatalf("code = %q, want K7N4PX", s.Code())
	}
	snap := s.Snapshot()
	if snap.Mode != ModeWork || snap.Remaining != 1500 || snap.Running || snap.UserCount != 0 {
		t.Fatalf("unexpected initial snapshot: %+v", snap)
	}
	if snap.Durations.Work != 1500 || snap.Durations.Break != 300 {
		t.Fatalf("unexpected durations: %+v", snap.Durations)
	}
	if r.Get("K7N4PX") != s {
		t.Fatal("Get() did not return the created session")
	}
}

func TestRegistry_CreateRetriesOnCollision(t *testing.T) {
	r := NewRegistry(WithCodeSource(sequence("AAAAAA", "AAAAAA", "AAAAAA", "BBBBBB")))

	first, err := r.Create(DefaultDurations())
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	second, err := r.Create(DefaultDurations())
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if first.Code() != "AAAAAA" || second.Code() != "BBBBBB" {
		t.Fatalf("codes = %q, %q; want AAAAAA, BBBBBB", first.Code(), second.Code())
	}
	if r.Get("AAAAAA") != first {
		t.Fatal("collision overwrote the existing session")
	}
	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", r.Len())
	}
}

func TestRegistry_CreateGivesUpOnExhaustedSource(t *testing.T) {
	r := NewRegistry(WithCodeSource(sequence("AAAAAA")))
	if _, err := r.Create(DefaultDurations()); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, err := r.Create(DefaultDurations()); err == nil {
		t.Fatal("expected error when every draw collides")
	}
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
}

func TestRegistry_CreateRejectsInvalidDurations(t *testing.T) {
	r := NewRegistry()
	_, err := r.Create(Durations{Work: 0, Break: 60})
	if !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("err = %v, want ErrInvalidDuration", err)
	}
	if r.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", r.Len())
	}
}

func TestRegistry_RandomCodesNeverRepeatLiveCodes(t *testing.T) {
	r := NewRegistry()
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		s, err := r.Create(DefaultDurations())
		if err != nil {
			t.Fatalf("Create() error: %v", err)
		}
		if seen[s.Code()] {
			t.Fatalf("code %q handed out twice", s.Code())
		}
		seen[s.Code()] = true
	}
}

func TestRegistry_Remove(t *testing.T) {
	r := NewRegistry(WithCodeSource(sequence("K7N4PX")))
	if _, err := r.Create(DefaultDurations()); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	r.Remove("K7N4PX")
	if r.Get("K7N4PX") != nil {
		t.Fatal("session still present after Remove")
	}
	r.Remove("K7N4PX")
	if r.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", r.Len())
	}
	if len(r.All()) != 0 {
		t.Fatal("All() not empty after Remove")
	}
}
