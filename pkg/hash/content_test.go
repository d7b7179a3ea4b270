package hash

import "testing"

func TestHasherDeterministic(t *testing.T) {
	inputs := []string{"", "Hello", "Hello world", "ünïcødé ✓", "line1\nline2\n"}

	for _, algo := range []string{AlgorithmFNV, AlgorithmBlake2b} {
		h, err := New(algo)
		if err != nil {
			t.Fatalf("New(%q) error = %v", algo, err)
		}

		for _, in := range inputs {
			first := h.Sum(in)
			second := h.Sum(in)
			if first != second {
				t.Errorf("%s: Sum(%q) not stable: %s != %s", algo, in, first, second)
			}
		}
	}
}

func TestHasherDetectsChange(t *testing.T) {
	tests := []struct {
		name string
		h    Hasher
		len  int
	}{
		{name: "fnv", h: FNVHasher{}, len: 16},
		{name: "blake2b", h: Blake2bHasher{}, len: 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := tt.h.Sum("Hello")
			b := tt.h.Sum("Hello world")

			if a == b {
				t.Error("expected different fingerprints for different content")
			}
			if len(a) != tt.len {
				t.Errorf("fingerprint length = %d, want %d", len(a), tt.len)
			}
		})
	}
}

func TestKnownFNVValue(t *testing.T) {
	h, err := New("")
	if err != nil {
		t.Fatalf("New(\"\") error = %v", err)
	}
	// FNV-1a 64 offset basis.
	if got := h.Sum(""); got != "cbf29ce484222325" {
		t.Errorf("Sum(\"\") = %s", got)
	}
}

func TestNewUnknownAlgorithm(t *testing.T) {
	if _, err := New("md5"); err == nil {
		t.Error("expected error for unknown algorithm")
	}

	h, err := New("")
	if err != nil {
		t.Fatalf("New(\"\") error = %v", err)
	}
	if _, ok := h.(FNVHasher); !ok {
		t.Errorf("expected FNVHasher default, got %T", h)
	}
}
