package utils

import "testing"

func TestNormalizeText(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Hello World", "hello world"},
		{"  hello   world  ", "hello world"},
		{"hello\n\tworld", "hello world"},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeText(c.in); got != c.want {
			t.Errorf("NormalizeText(%q): got %q want %q", c.in, got, c.want)
		}
	}
}

func TestContentHashNormalizes(t *testing.T) {
	a := ContentHash("The Widget weighs 2kg")
	b := ContentHash("  the widget   WEIGHS 2kg ")
	if a != b {
		t.Error("equivalent texts hash differently")
	}
	if c := ContentHash("the widget weighs 3kg"); c == a {
		t.Error("different texts hash identically")
	}
	if len(a) != 64 {
		t.Errorf("hash length: got %d want 64", len(a))
	}
}

func TestFingerprintSensitivity(t *testing.T) {
	base := Fingerprint("hello", []string{"user:hi", "assistant:hey"})

	if got := Fingerprint("hello", []string{"user:hi", "assistant:hey"}); got != base {
		t.Error("fingerprint not deterministic")
	}
	if got := Fingerprint("hello", nil); got == base {
		t.Error("history ignored in fingerprint")
	}
	if got := Fingerprint("goodbye", []string{"user:hi", "assistant:hey"}); got == base {
		t.Error("message ignored in fingerprint")
	}
	// Boundary shifts between history entries must change the key
	if got := Fingerprint("hello", []string{"user:hi assistant:hey"}); got == base {
		t.Error("history entry boundaries not separated")
	}
}
