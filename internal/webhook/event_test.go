package webhook

import (
	"testing"
	"time"
)

func TestParseEnvelope_RejectsMissingType(t *testing.T) {
	for _, body := range []string{`{}`, `{"message":null}`, `{"message":{}}`, `not json`, `{"message":{"type":""}}`} {
		if _, _, ok := ParseEnvelope([]byte(body)); ok {
			t.Fatalf("expected %q to be rejected", body)
		}
	}
	if _, raw, ok := ParseEnvelope([]byte(`{"message":{"type":"status-update"}}`)); !ok || string(raw) != `{"type":"status-update"}` {
		t.Fatalf("expected valid envelope, got ok=%v raw=%s", ok, raw)
	}
}

func TestMessage_CustomerPhonePriority(t *testing.T) {
	body := `{"message":{"type":"end-of-call-report",
		"call":{"customer":{"number":"+601"},"metadata":{"customer_phone":"+603"}},
		"customer":{"number":"+602"},
		"metadata":{"customer_phone":"+604"}}}`
	msg, _, ok := ParseEnvelope([]byte(body))
	if !ok {
		t.Fatalf("parse failed")
	}
	if got := msg.CustomerPhone(); got != "+601" {
		t.Fatalf("expected call.customer.number, got %q", got)
	}

	msg.Call.Customer = nil
	if got := msg.CustomerPhone(); got != "+602" {
		t.Fatalf("expected customer.number, got %q", got)
	}
	msg.Customer = nil
	if got := msg.CustomerPhone(); got != "+603" {
		t.Fatalf("expected call.metadata.customer_phone, got %q", got)
	}
	msg.Call.Metadata = nil
	if got := msg.CustomerPhone(); got != "+604" {
		t.Fatalf("expected metadata.customer_phone, got %q", got)
	}
	msg.Metadata = nil
	if got := msg.CustomerPhone(); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestMessage_CampaignAndCallIDFallbacks(t *testing.T) {
	msg, _, _ := ParseEnvelope([]byte(`{"message":{"type":"x","id":"msg-1","metadata":{"campaign_id":"c-2"}}}`))
	if msg.CampaignID() != "c-2" || msg.ProviderCallID() != "msg-1" {
		t.Fatalf("unexpected fallbacks: %q %q", msg.CampaignID(), msg.ProviderCallID())
	}

	msg, _, _ = ParseEnvelope([]byte(`{"message":{"type":"x","id":"msg-1","call":{"id":"call-1","metadata":{"campaign_id":"c-1"}},"metadata":{"campaign_id":"c-2"}}}`))
	if msg.CampaignID() != "c-1" || msg.ProviderCallID() != "call-1" {
		t.Fatalf("call fields must win: %q %q", msg.CampaignID(), msg.ProviderCallID())
	}
}

func TestMessage_DurationAndStartTime(t *testing.T) {
	msg, _, _ := ParseEnvelope([]byte(`{"message":{"type":"x","durationSeconds":"42.6","cost":0.31,"call":{"createdAt":"2024-05-01T10:00:00.000Z"}}}`))
	if msg.Duration() != 43 {
		t.Fatalf("expected 43, got %d", msg.Duration())
	}
	if float64(msg.Cost) != 0.31 {
		t.Fatalf("unexpected cost %v", msg.Cost)
	}
	want := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	if got := msg.StartTime(time.Time{}); !got.Equal(want) {
		t.Fatalf("unexpected start %v", got)
	}

	fallback := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	msg, _, _ = ParseEnvelope([]byte(`{"message":{"type":"x","durationSeconds":12.4}}`))
	if msg.Duration() != 12 || !msg.StartTime(fallback).Equal(fallback) {
		t.Fatalf("unexpected duration/start: %d %v", msg.Duration(), msg.StartTime(fallback))
	}
}

func TestMessage_ToolCallSources(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"camel", `{"message":{"type":"tool-calls","toolCalls":[{"function":{"name":"a"}}],"tool_calls":[{"name":"b"}]}}`, "a"},
		{"snake", `{"message":{"type":"tool-calls","tool_calls":[{"name":"b"}]}}`, "b"},
		{"legacy", `{"message":{"type":"function-call","functionCall":{"name":"c","arguments":{}}}}`, "c"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, _, ok := ParseEnvelope([]byte(tc.body))
			if !ok {
				t.Fatalf("parse failed")
			}
			calls := msg.Calls()
			if len(calls) != 1 || calls[0].ToolName() != tc.want {
				t.Fatalf("expected %q, got %+v", tc.want, calls)
			}
		})
	}
}

func TestToolCall_ArgsAcceptObjectOrString(t *testing.T) {
	msg, _, _ := ParseEnvelope([]byte(`{"message":{"type":"tool-calls","toolCalls":[
		{"function":{"name":"a","arguments":"{\"phoneNumber\":\"+601\"}"}},
		{"name":"b","arguments":{"phoneNumber":"+602"}},
		{"name":"c","arguments":"garbage"}
	]}}`))
	calls := msg.Calls()
	if calls[0].Args()["phoneNumber"] != "+601" {
		t.Fatalf("string arguments not decoded: %v", calls[0].Args())
	}
	if calls[1].Args()["phoneNumber"] != "+602" {
		t.Fatalf("object arguments not decoded: %v", calls[1].Args())
	}
	if len(calls[2].Args()) != 0 {
		t.Fatalf("garbage must decode to empty args")
	}
}
