// Package webhook receives voice platform events: tool invocations during a
// call and the end-of-call report that closes a call log.
package webhook

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Event types the router dispatches on.
const (
	TypeToolCalls       = "tool-calls"
	TypeFunctionCall    = "function-call"
	TypeEndOfCallReport = "end-of-call-report"
)

// Envelope is the outer webhook body; everything of interest lives under message.
type Envelope struct {
	Message json.RawMessage `json:"message"`
}

// Message is the subset of a platform message the service reads.
// Fields are optional; the platform has used several shapes over time.
type Message struct {
	Type string `json:"type"`
	ID   string `json:"id"`

	Call     *CallInfo      `json:"call"`
	Customer *Customer      `json:"customer"`
	Metadata map[string]any `json:"metadata"`

	ToolCalls      []ToolCall `json:"toolCalls"`
	ToolCallsSnake []ToolCall `json:"tool_calls"`
	FunctionCall   *ToolCall  `json:"functionCall"`

	Analysis        *Analysis `json:"analysis"`
	DurationSeconds flexFloat `json:"durationSeconds"`
	Cost            flexFloat `json:"cost"`
	RecordingURL    string    `json:"recordingUrl"`
	Transcript      string    `json:"transcript"`
	Summary         string    `json:"summary"`
	EndedReason     string    `json:"endedReason"`
}

type CallInfo struct {
	ID          string         `json:"id"`
	AssistantID string         `json:"assistantId"`
	CreatedAt   string         `json:"createdAt"`
	Customer    *Customer      `json:"customer"`
	Metadata    map[string]any `json:"metadata"`
}

type Customer struct {
	Number string `json:"number"`
}

type Analysis struct {
	StructuredData map[string]any `json:"structuredData"`
	Summary        string         `json:"summary"`
}

// ToolCall is one tool invocation. The name and arguments appear either at
// the top level or nested under function.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
	Function  *struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

// ParseEnvelope decodes body and returns the message with its raw bytes.
// ok is false when the body is not JSON or has no message type.
func ParseEnvelope(body []byte) (Message, json.RawMessage, bool) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Message{}, nil, false
	}
	raw := bytes.TrimSpace(env.Message)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Message{}, nil, false
	}
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, nil, false
	}
	if strings.TrimSpace(msg.Type) == "" {
		return Message{}, nil, false
	}
	return msg, json.RawMessage(raw), true
}

// Calls returns the tool invocations in priority order:
// toolCalls, then tool_calls, then the single legacy functionCall.
func (m Message) Calls() []ToolCall {
	switch {
	case len(m.ToolCalls) > 0:
		return m.ToolCalls
	case len(m.ToolCallsSnake) > 0:
		return m.ToolCallsSnake
	case m.FunctionCall != nil:
		return []ToolCall{*m.FunctionCall}
	default:
		return nil
	}
}

// CustomerPhone walks the known locations of the destination number.
func (m Message) CustomerPhone() string {
	if m.Call != nil && m.Call.Customer != nil && m.Call.Customer.Number != "" {
		return m.Call.Customer.Number
	}
	if m.Customer != nil && m.Customer.Number != "" {
		return m.Customer.Number
	}
	if m.Call != nil {
		if v := stringField(m.Call.Metadata, "customer_phone"); v != "" {
			return v
		}
	}
	return stringField(m.Metadata, "customer_phone")
}

// CampaignID reads campaign_id from call metadata, then message metadata.
func (m Message) CampaignID() string {
	if m.Call != nil {
		if v := stringField(m.Call.Metadata, "campaign_id"); v != "" {
			return v
		}
	}
	return stringField(m.Metadata, "campaign_id")
}

// ProviderCallID is call.id, falling back to the message id.
func (m Message) ProviderCallID() string {
	if m.Call != nil && m.Call.ID != "" {
		return m.Call.ID
	}
	return m.ID
}

func (m Message) AssistantID() string {
	if m.Call != nil {
		return m.Call.AssistantID
	}
	return ""
}

// StartTime is call.createdAt, or fallback when absent or unparsable.
func (m Message) StartTime(fallback time.Time) time.Time {
	if m.Call == nil || m.Call.CreatedAt == "" {
		return fallback
	}
	t, err := time.Parse(time.RFC3339Nano, m.Call.CreatedAt)
	if err != nil {
		return fallback
	}
	return t.UTC()
}

// Duration rounds durationSeconds to whole seconds.
func (m Message) Duration() int {
	return int(math.Round(float64(m.DurationSeconds)))
}

func (m Message) StructuredData() map[string]any {
	if m.Analysis == nil || m.Analysis.StructuredData == nil {
		return map[string]any{}
	}
	return m.Analysis.StructuredData
}

// ToolName returns function.name, falling back to name.
func (tc ToolCall) ToolName() string {
	if tc.Function != nil && tc.Function.Name != "" {
		return tc.Function.Name
	}
	return tc.Name
}

// Args decodes the arguments object. Arguments may arrive as an object or as
// a JSON-encoded string; anything undecodable yields an empty map.
func (tc ToolCall) Args() map[string]any {
	raw := tc.Arguments
	if tc.Function != nil && len(bytes.TrimSpace(tc.Function.Arguments)) > 0 {
		raw = tc.Function.Arguments
	}
	raw = bytes.TrimSpace(raw)
	out := map[string]any{}
	if len(raw) == 0 {
		return out
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return out
		}
		raw = []byte(s)
	}
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return map[string]any{}
	}
	return out
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// flexFloat accepts a JSON number or a numeric string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}
