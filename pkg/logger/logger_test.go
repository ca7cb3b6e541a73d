package logger

import "testing"

func TestNew(t *testing.T) {
	l, err := New("debug")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !l.Core().Enabled(-1) {
		t.Error("debug level should be enabled")
	}

	if _, err := New("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNamedNil(t *testing.T) {
	if Named(nil, "x") == nil {
		t.Fatal("Named(nil) returned nil")
	}
}
