package webhook

import (
	"context"
	"testing"
)

func TestToolHandler_ResultsPerInvocation(t *testing.T) {
	msg, _, ok := ParseEnvelope([]byte(`{"message":{"type":"tool-calls","toolCalls":[
		{"function":{"name":"send_whatsapp_tool","arguments":{"phoneNumber":"+60123456789"}}},
		{"function":{"name":"send_whatsapp_tool","arguments":{}}},
		{"function":{"name":"end_call_tool","arguments":{}}},
		{"function":{"name":"lookup_weather","arguments":{}}}
	]}}`))
	if !ok {
		t.Fatalf("parse failed")
	}

	resp := NewToolHandler().Handle(context.Background(), msg.Calls())
	if resp.Status != "success" || resp.ProcessedCalls != 4 || len(resp.Results) != 4 {
		t.Fatalf("unexpected response %+v", resp)
	}

	wa := resp.Results[0].Result
	if wa["success"] != true || wa["phone_number"] != "+60123456789" || wa["message_type"] != "testimonial_package" {
		t.Fatalf("unexpected whatsapp result %v", wa)
	}
	if r := resp.Results[1].Result; r["success"] != false || r["error"] != "Phone number is required" {
		t.Fatalf("missing phone must fail, got %v", r)
	}
	if r := resp.Results[2]; r.Tool != ToolEndCall || r.Result["message"] != "Call ended" {
		t.Fatalf("unexpected end call result %+v", r)
	}
	if r := resp.Results[3]; r.Tool != "lookup_weather" || r.Result["error"] != "Unknown function" {
		t.Fatalf("unexpected unknown tool result %+v", r)
	}
}

func TestToolHandler_EmptyBatch(t *testing.T) {
	resp := NewToolHandler().Handle(context.Background(), nil)
	if resp.ProcessedCalls != 0 || resp.Results == nil {
		t.Fatalf("expected empty non-nil results, got %+v", resp)
	}
}
