package typeid

import (
	"strings"
	"testing"
)

func TestNewAndValidate(t *testing.T) {
	id := NewSessionID()
	if !strings.HasPrefix(id, PrefixSession+"_") {
		t.Fatalf("id %q missing %q prefix", id, PrefixSession)
	}
	if err := Validate(id, PrefixSession); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := Validate(id, PrefixScene); err == nil {
		t.Fatal("expected prefix mismatch error")
	}
	if err := Validate("not-a-typeid", PrefixScene); err == nil {
		t.Fatal("expected parse error")
	}
}
