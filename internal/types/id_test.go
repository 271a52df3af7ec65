package types

import (
	"testing"
	"time"
)

func TestTempIDGenerator(t *testing.T) {
	g := &TempIDGenerator{now: func() time.Time { return time.UnixMilli(1700000000000) }}
	a, b := g.Next(), g.Next()
	if !a.IsTemp() || !b.IsTemp() {
		t.Fatalf("generated IDs must be temporary")
	}
	if a == b {
		t.Fatalf("IDs minted in the same millisecond collide: %v", a)
	}
	if a.String() != "temp-1700000000000-1" {
		t.Errorf("unexpected format %q", a)
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in       string
		wantTemp bool
		wantZero bool
	}{
		{"42", false, false},
		{"temp-1-1", true, false},
		{"", false, true},
		{"  7 ", false, false},
	}
	for _, tt := range tests {
		id := ParseID(tt.in)
		if id.IsTemp() != tt.wantTemp || id.IsZero() != tt.wantZero {
			t.Errorf("ParseID(%q) = %#v", tt.in, id)
		}
	}
	if ParseID("temp-1-1") != ParseID("temp-1-1") {
		t.Errorf("parsed IDs not comparable")
	}
	if RemoteID("42") != ParseID("42") {
		t.Errorf("RemoteID and ParseID disagree")
	}
}

func TestIDTextRoundTrip(t *testing.T) {
	var id ID
	if err := id.UnmarshalText([]byte("temp-5-2")); err != nil {
		t.Fatal(err)
	}
	if !id.IsTemp() {
		t.Errorf("temporary prefix not recognised")
	}
	b, _ := id.MarshalText()
	if string(b) != "temp-5-2" {
		t.Errorf("MarshalText = %q", b)
	}
}
