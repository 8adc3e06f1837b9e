package vapi

import (
	"time"
)

// CreateCallRequest is the body of POST /call.
type CreateCallRequest struct {
	Assistant     AssistantConfig `json:"assistant"`
	PhoneNumber   *TrunkPhone     `json:"phoneNumber,omitempty"`
	PhoneNumberID string          `json:"phoneNumberId,omitempty"`
	Customer      Customer        `json:"customer"`
	Metadata      CallMetadata    `json:"metadata"`
}

// TrunkPhone is the bring-your-own-carrier block used to originate the call.
type TrunkPhone struct {
	TwilioPhoneNumber string `json:"twilioPhoneNumber"`
	TwilioAccountSID  string `json:"twilioAccountSid"`
	TwilioAuthToken   string `json:"twilioAuthToken"`
}

type Customer struct {
	Number string `json:"number"`
}

// CallMetadata is echoed back by the provider on every webhook for the call.
type CallMetadata struct {
	CallType      string `json:"call_type"`
	CustomerPhone string `json:"customer_phone"`
	Product       string `json:"product"`
	Timestamp     string `json:"timestamp"`
	CampaignID    string `json:"campaign_id"`
	BatchID       string `json:"batch_id"`
	PromptVersion string `json:"prompt_version"`
}

// CallInput is everything that varies per destination.
type CallInput struct {
	PhoneNumber  string
	SystemPrompt string
	FirstMessage string
	CampaignID   string
	PromptID     string

	// Exactly one of Trunk or PhoneNumberID should be set.
	Trunk         *TrunkPhone
	PhoneNumberID string
}

// PayloadBuilder turns a Profile plus per-call input into a CreateCallRequest.
type PayloadBuilder struct {
	profile Profile
	clock   func() time.Time
}

func NewPayloadBuilder(profile Profile) *PayloadBuilder {
	return &PayloadBuilder{profile: profile, clock: time.Now}
}

func (b *PayloadBuilder) Profile() Profile { return b.profile }

// Build returns a self-contained request. The profile is never mutated.
func (b *PayloadBuilder) Build(in CallInput) CreateCallRequest {
	assistant := b.profile.Assistant
	assistant.FirstMessage = in.FirstMessage

	assistant.Model.SystemPrompt = in.SystemPrompt
	assistant.Model.Tools = append([]Tool(nil), b.profile.Tools...)

	analysis := b.profile.Analysis
	assistant.AnalysisPlan = &analysis

	req := CreateCallRequest{
		Assistant: assistant,
		Customer:  Customer{Number: in.PhoneNumber},
		Metadata: CallMetadata{
			CallType:      b.profile.Call.CallType,
			CustomerPhone: in.PhoneNumber,
			Product:       b.profile.Call.Product,
			Timestamp:     b.clock().UTC().Format(time.RFC3339Nano),
			CampaignID:    in.CampaignID,
			BatchID:       in.CampaignID,
			PromptVersion: in.PromptID,
		},
	}
	if in.Trunk != nil {
		t := *in.Trunk
		req.PhoneNumber = &t
	} else {
		req.PhoneNumberID = in.PhoneNumberID
	}
	return req
}
