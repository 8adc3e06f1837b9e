package vapi

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed profile.yaml
var defaultProfileYAML []byte

// Profile is the versioned call configuration applied to every outbound call:
// assistant behaviour, tool declarations and the post-call analysis contract.
type Profile struct {
	Version   string          `yaml:"version"`
	Call      CallDefaults    `yaml:"call"`
	Assistant AssistantConfig `yaml:"assistant"`
	Tools     []Tool          `yaml:"tools"`
	Analysis  AnalysisPlan    `yaml:"analysis_plan"`
}

// CallDefaults are copied into every call's metadata.
type CallDefaults struct {
	CallType string `yaml:"call_type"`
	Product  string `yaml:"product"`
}

type AssistantConfig struct {
	Name                         string             `yaml:"name" json:"name"`
	Model                        ModelConfig        `yaml:"model" json:"model"`
	Voice                        VoiceConfig        `yaml:"voice" json:"voice"`
	FirstMessage                 string             `yaml:"-" json:"firstMessage"`
	FirstMessageMode             string             `yaml:"first_message_mode" json:"firstMessageMode"`
	EndCallMessage               string             `yaml:"end_call_message" json:"endCallMessage"`
	VoicemailMessage             string             `yaml:"voicemail_message" json:"voicemailMessage"`
	HipaaEnabled                 bool               `yaml:"hipaa_enabled" json:"hipaaEnabled"`
	ClientMessages               []string           `yaml:"client_messages" json:"clientMessages"`
	ServerMessages               []string           `yaml:"server_messages" json:"serverMessages"`
	Server                       ServerConfig       `yaml:"server" json:"server"`
	Transcriber                  TranscriberConfig  `yaml:"transcriber" json:"transcriber"`
	StartSpeakingPlan            StartSpeakingPlan  `yaml:"start_speaking_plan" json:"startSpeakingPlan"`
	VoicemailDetection           VoicemailDetection `yaml:"voicemail_detection" json:"voicemailDetection"`
	ArtifactPlan                 ArtifactPlan       `yaml:"artifact_plan" json:"artifactPlan"`
	BackgroundSound              string             `yaml:"background_sound" json:"backgroundSound"`
	BackgroundDenoisingEnabled   bool               `yaml:"background_denoising_enabled" json:"backgroundDenoisingEnabled"`
	SilenceTimeoutSeconds        int                `yaml:"silence_timeout_seconds" json:"silenceTimeoutSeconds"`
	ResponseDelaySeconds         float64            `yaml:"response_delay_seconds" json:"responseDelaySeconds"`
	InterruptionsEnabled         bool               `yaml:"interruptions_enabled" json:"interruptionsEnabled"`
	LLMRequestDelaySeconds       float64            `yaml:"llm_request_delay_seconds" json:"llmRequestDelaySeconds"`
	NumWordsToInterruptAssistant int                `yaml:"num_words_to_interrupt_assistant" json:"numWordsToInterruptAssistant"`
	MaxDurationSeconds           int                `yaml:"max_duration_seconds" json:"maxDurationSeconds"`
	BackchannelingEnabled        bool               `yaml:"backchanneling_enabled" json:"backchannelingEnabled"`
	ModelOutputInMessagesEnabled bool               `yaml:"model_output_in_messages_enabled" json:"modelOutputInMessagesEnabled"`
	TransportConfigurations      []TransportConfig  `yaml:"transport_configurations" json:"transportConfigurations"`

	// Set per call by the builder.
	AnalysisPlan *AnalysisPlan `yaml:"-" json:"analysisPlan,omitempty"`
}

type ModelConfig struct {
	Provider    string  `yaml:"provider" json:"provider"`
	Model       string  `yaml:"model" json:"model"`
	Temperature float64 `yaml:"temperature" json:"temperature"`

	SystemPrompt string `yaml:"-" json:"systemPrompt,omitempty"`
	Tools        []Tool `yaml:"-" json:"tools,omitempty"`
}

type VoiceConfig struct {
	Provider                   string   `yaml:"provider" json:"provider"`
	VoiceID                    string   `yaml:"voice_id" json:"voiceId"`
	Model                      string   `yaml:"model" json:"model"`
	Stability                  float64  `yaml:"stability" json:"stability"`
	SimilarityBoost            float64  `yaml:"similarity_boost" json:"similarityBoost"`
	Style                      float64  `yaml:"style" json:"style"`
	UseSpeakerBoost            bool     `yaml:"use_speaker_boost" json:"useSpeakerBoost"`
	Speed                      float64  `yaml:"speed" json:"speed"`
	OptimizeStreamingLatency   int      `yaml:"optimize_streaming_latency" json:"optimizeStreamingLatency"`
	AutoMode                   bool     `yaml:"auto_mode" json:"autoMode"`
	InputPunctuationBoundaries []string `yaml:"input_punctuation_boundaries" json:"inputPunctuationBoundaries"`
}

type ServerConfig struct {
	URL            string `yaml:"url" json:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeoutSeconds"`
}

type TranscriberConfig struct {
	Provider                     string `yaml:"provider" json:"provider"`
	Language                     string `yaml:"language" json:"language"`
	SegmentationStrategy         string `yaml:"segmentation_strategy" json:"segmentationStrategy"`
	SegmentationMaximumTimeMs    int    `yaml:"segmentation_maximum_time_ms" json:"segmentationMaximumTimeMs"`
	SegmentationSilenceTimeoutMs int    `yaml:"segmentation_silence_timeout_ms" json:"segmentationSilenceTimeoutMs"`
}

type StartSpeakingPlan struct {
	SmartEndpointingPlan struct {
		Provider string `yaml:"provider" json:"provider"`
	} `yaml:"smart_endpointing_plan" json:"smartEndpointingPlan"`
}

type VoicemailDetection struct {
	Provider    string `yaml:"provider" json:"provider"`
	BackoffPlan struct {
		MaxRetries       int `yaml:"max_retries" json:"maxRetries"`
		StartAtSeconds   int `yaml:"start_at_seconds" json:"startAtSeconds"`
		FrequencySeconds int `yaml:"frequency_seconds" json:"frequencySeconds"`
	} `yaml:"backoff_plan" json:"backoffPlan"`
	BeepMaxAwaitSeconds int `yaml:"beep_max_await_seconds" json:"beepMaxAwaitSeconds"`
}

type ArtifactPlan struct {
	RecordingFormat string `yaml:"recording_format" json:"recordingFormat"`
}

type TransportConfig struct {
	Provider          string `yaml:"provider" json:"provider"`
	Timeout           int    `yaml:"timeout" json:"timeout"`
	Record            bool   `yaml:"record" json:"record"`
	RecordingChannels string `yaml:"recording_channels" json:"recordingChannels"`
}

// Tool is a function the assistant may invoke mid-call.
type Tool struct {
	Type     string       `yaml:"type" json:"type"`
	Function ToolFunction `yaml:"function" json:"function"`
}

type ToolFunction struct {
	Name        string     `yaml:"name" json:"name"`
	Description string     `yaml:"description" json:"description"`
	Parameters  JSONSchema `yaml:"parameters" json:"parameters"`
}

// JSONSchema is the subset of JSON Schema used by tool parameters and the
// structured-data contract.
type JSONSchema struct {
	Type        string                `yaml:"type"`
	Description string                `yaml:"description"`
	Enum        []string              `yaml:"enum"`
	Properties  map[string]JSONSchema `yaml:"properties"`
	Required    []string              `yaml:"required"`
}

// MarshalJSON always emits "properties" for objects so an empty parameter
// list serializes as {} rather than being dropped.
func (s JSONSchema) MarshalJSON() ([]byte, error) {
	out := map[string]any{"type": s.Type}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		out["enum"] = s.Enum
	}
	if s.Type == "object" {
		props := s.Properties
		if props == nil {
			props = map[string]JSONSchema{}
		}
		out["properties"] = props
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	return json.Marshal(out)
}

type AnalysisPlan struct {
	SuccessEvaluationPrompt string             `yaml:"success_evaluation_prompt" json:"successEvaluationPrompt"`
	SuccessEvaluationRubric string             `yaml:"success_evaluation_rubric" json:"successEvaluationRubric"`
	StructuredDataPlan      StructuredDataPlan `yaml:"structured_data_plan" json:"structuredDataPlan"`
}

type StructuredDataPlan struct {
	Enabled  bool              `yaml:"enabled" json:"enabled"`
	Messages []AnalysisMessage `yaml:"messages" json:"messages"`
	Schema   JSONSchema        `yaml:"schema" json:"schema"`
}

type AnalysisMessage struct {
	Role    string `yaml:"role" json:"role"`
	Content string `yaml:"content" json:"content"`
}

// DefaultProfile decodes the embedded profile.
func DefaultProfile() (Profile, error) {
	return parseProfile(defaultProfileYAML)
}

// LoadProfile reads a profile from path, or the embedded default when path is empty.
func LoadProfile(path string) (Profile, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultProfile()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}
	return parseProfile(b)
}

// WithServerURL returns a copy whose assistant reports call events to u.
// An empty u leaves the profile unchanged.
func (p Profile) WithServerURL(u string) Profile {
	if u = strings.TrimSpace(u); u != "" {
		p.Assistant.Server.URL = u
	}
	return p
}

func parseProfile(b []byte) (Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(b, &p); err != nil {
		return Profile{}, fmt.Errorf("parse profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Validate checks the fields the provider rejects calls without, plus the
// analysis fields the webhook path depends on.
func (p Profile) Validate() error {
	var errs []string
	if p.Assistant.Name == "" {
		errs = append(errs, "assistant.name is required")
	}
	if p.Assistant.Model.Provider == "" || p.Assistant.Model.Model == "" {
		errs = append(errs, "assistant.model provider and model are required")
	}
	if p.Assistant.Voice.Provider == "" || p.Assistant.Voice.VoiceID == "" {
		errs = append(errs, "assistant.voice provider and voice_id are required")
	}
	seen := map[string]bool{}
	for _, t := range p.Tools {
		if t.Function.Name == "" {
			errs = append(errs, "tools[].function.name is required")
			continue
		}
		if seen[t.Function.Name] {
			errs = append(errs, fmt.Sprintf("duplicate tool %q", t.Function.Name))
		}
		seen[t.Function.Name] = true
	}
	schema := p.Analysis.StructuredDataPlan.Schema
	if p.Analysis.StructuredDataPlan.Enabled {
		if schema.Type != "object" {
			errs = append(errs, "analysis_plan.structured_data_plan.schema must be an object")
		}
		if _, ok := schema.Properties[FieldIsClosed]; !ok {
			errs = append(errs, "analysis_plan.structured_data_plan.schema must declare "+FieldIsClosed)
		}
	}
	if len(errs) > 0 {
		return errors.New("invalid profile: " + strings.Join(errs, "; "))
	}
	return nil
}

// Structured-data field names shared with the webhook path.
const (
	FieldCallOutcome      = "call_outcome"
	FieldStageReached     = "stage_reached"
	FieldIsClosed         = "is_closed"
	FieldReasonNotClosed  = "reason_not_closed"
	FieldCustomerName     = "customer_name"
	FieldCustomerAddress  = "customer_address"
	FieldPackageDiscussed = "package_discussed"
)
