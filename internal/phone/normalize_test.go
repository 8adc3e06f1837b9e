package phone

import (
	"reflect"
	"strings"
	"testing"
)

func TestNormalize_MixedInput(t *testing.T) {
	n := NewNormalizer("+60")
	got := n.Normalize([]string{"0123456789", "+60123456789", "abc"})

	want := []string{"+60123456789", "+60123456789"}
	if !reflect.DeepEqual(got.Valid, want) {
		t.Fatalf("valid: got %v want %v", got.Valid, want)
	}
	if !reflect.DeepEqual(got.Invalid, []string{"abc"}) {
		t.Fatalf("invalid: got %v", got.Invalid)
	}
}

func TestNormalize_Policy(t *testing.T) {
	n := NewNormalizer("60")
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"+60 12-345 6789", "+60123456789", true},
		{"60123456789", "+60123456789", true},
		{"012-345 6789", "+60123456789", true},
		{"123456789", "+60123456789", true},
		{"(012) 345-6789", "+60123456789", true},
		{"   ", "", false},
		{"+", "", false},
		{"12345", "", false},
		{"+6012345678901234", "", false},
	}
	for _, tc := range cases {
		got, ok := n.One(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("One(%q) = %q,%v want %q,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	n := NewNormalizer("60")
	for _, in := range []string{"0123456789", "+447911123456", "60198765432", "19876543210"} {
		first, ok := n.One(in)
		if !ok {
			continue
		}
		second, ok := n.One(first)
		if !ok || second != first {
			t.Fatalf("normalize not idempotent for %q: %q then %q", in, first, second)
		}
	}
}

func TestNormalize_OutputShape(t *testing.T) {
	n := NewNormalizer("60")
	inputs := []string{
		"0", "01", "0123", "+1 (555) 010-9999", "60-1-2-3", "9999999999999999",
		"+60 (12) 345 6789", "0 1 2 3 4 5 6 7 8 9", "7", "+441234", "012345678901234",
	}
	for _, in := range inputs {
		out, ok := n.One(in)
		if !ok {
			continue
		}
		if !strings.HasPrefix(out, "+") {
			t.Fatalf("%q produced unprefixed %q", in, out)
		}
		if len(out) < MinLength || len(out) > MaxLength {
			t.Fatalf("%q produced out-of-range %q", in, out)
		}
		if strings.Count(out, "+") != 1 {
			t.Fatalf("%q produced embedded plus %q", in, out)
		}
	}
}

func TestNormalize_EmptyList(t *testing.T) {
	got := NewNormalizer("60").Normalize(nil)
	if len(got.Valid) != 0 || len(got.Invalid) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
}
