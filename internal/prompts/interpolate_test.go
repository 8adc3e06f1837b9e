package prompts

import (
	"reflect"
	"testing"
)

func TestInterpolate_ReplacesEveryOccurrence(t *testing.T) {
	tpl := "Call {{CUSTOMER_PHONE_NUMBER}}. Confirm {{CUSTOMER_PHONE_NUMBER}} before closing."
	got := Interpolate(tpl, map[string]string{PlaceholderCustomerPhone: "+60123456789"})
	want := "Call +60123456789. Confirm +60123456789 before closing."
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestInterpolate_MissingKeyIsNoop(t *testing.T) {
	tpl := "Hello {{CUSTOMER_NAME}} at {{CUSTOMER_PHONE_NUMBER}}"
	got := Interpolate(tpl, map[string]string{PlaceholderCustomerPhone: "+60123456789"})
	if got != "Hello {{CUSTOMER_NAME}} at +60123456789" {
		t.Fatalf("unexpected %q", got)
	}
	if missing := MissingPlaceholders(got); !reflect.DeepEqual(missing, []string{"CUSTOMER_NAME"}) {
		t.Fatalf("unexpected missing %v", missing)
	}
}

func TestInterpolate_NoVars(t *testing.T) {
	if got := Interpolate("{{X}}", nil); got != "{{X}}" {
		t.Fatalf("unexpected %q", got)
	}
	if MissingPlaceholders("plain text") != nil {
		t.Fatalf("expected no placeholders")
	}
}

func TestPrompt_ForCall(t *testing.T) {
	p := Prompt{SystemPrompt: "Nombor pelanggan: {{CUSTOMER_PHONE_NUMBER}}"}
	if got := p.ForCall("+60111"); got != "Nombor pelanggan: +60111" {
		t.Fatalf("unexpected %q", got)
	}
}
