package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"voicecall-platform/internal/audit"
	"voicecall-platform/internal/calls"
	"voicecall-platform/internal/campaigns"
	"voicecall-platform/internal/phone"
	"voicecall-platform/internal/prompts"
	"voicecall-platform/internal/telephony"
	"voicecall-platform/internal/vapi"
	"voicecall-platform/pkg/logger"
)

var (
	ErrInvalidArgument     = errors.New("missing required parameters: campaignName, promptId, phoneNumbers")
	ErrCredentialsMissing  = errors.New("vapi api key not found, configure your api keys first")
	ErrPhoneServiceMissing = errors.New("phone service credentials not found, configure your phone settings first")
	ErrPromptNotFound      = errors.New("prompt not found")
	ErrNoValidNumbers      = errors.New("no valid phone numbers provided")
	ErrLimitOutOfRange     = errors.New("concurrentLimit out of range")
	ErrTooManyDispatches   = errors.New("too many batch calls running, try again later")
	ErrDispatchUnavailable = errors.New("dispatch capacity check failed")
	ErrBatchTooLarge       = errors.New("too many phone numbers for one batch at this concurrentLimit")
)

const completedMessage = "Batch call campaign completed successfully"

// BatchRequest is the body of a batch-call request.
type BatchRequest struct {
	CampaignName    string   `json:"campaignName" validate:"required,max=200"`
	PromptID        string   `json:"promptId" validate:"required"`
	PhoneNumbers    []string `json:"phoneNumbers" validate:"required,min=1,max=10000"`
	ConcurrentLimit int      `json:"concurrentLimit" validate:"omitempty,min=1,max=50"`
}

type Summary struct {
	TotalProvided       int `json:"total_provided"`
	ValidNumbers        int `json:"valid_numbers"`
	InvalidNumbers      int `json:"invalid_numbers"`
	SuccessfulCalls     int `json:"successful_calls"`
	FailedCalls         int `json:"failed_calls"`
	ChunksProcessed     int `json:"chunks_processed"`
	ConcurrentLimitUsed int `json:"concurrent_limit_used"`
}

type BatchResult struct {
	Message        string   `json:"message"`
	CampaignID     string   `json:"campaign_id"`
	Summary        Summary  `json:"summary"`
	InvalidNumbers []string `json:"invalid_numbers"`
}

// Collaborators are narrowed to what BatchCall needs.

type PromptSource interface {
	Get(ctx context.Context, userID, id string) (prompts.Prompt, error)
}

type CredentialSource interface {
	ForUser(ctx context.Context, userID string) (vapi.Credential, error)
}

type TrunkSource interface {
	TrunkForUser(ctx context.Context, userID string) (telephony.Trunk, error)
}

type CampaignLedger interface {
	Create(ctx context.Context, in campaigns.CreateInput) (campaigns.Campaign, error)
	Finalize(ctx context.Context, id string, successful, failed int) error
	MarkFailed(ctx context.Context, id string, successful, failed int) error
}

type OutcomeRecorder interface {
	Record(ctx context.Context, a calls.Attempt) calls.Entry
}

// ActiveLimiter caps concurrently running dispatches per user across instances.
type ActiveLimiter interface {
	Acquire(ctx context.Context, key string, limit int) (bool, error)
	Release(ctx context.Context, key string) error
}

type AuditSink interface {
	Append(ctx context.Context, e audit.Event) error
}

type Options struct {
	DefaultLimit     int
	MaxLimit         int
	MaxActivePerUser int

	// MaxRun caps the estimated duration of one batch; 0 disables the check.
	// The estimate is WaveBudget per wave plus Cooldown between waves.
	MaxRun     time.Duration
	Cooldown   time.Duration
	WaveBudget time.Duration
}

type Service struct {
	prompts     PromptSource
	credentials CredentialSource
	trunks      TrunkSource
	campaigns   CampaignLedger
	recorder    OutcomeRecorder
	caller      vapi.Caller
	builder     *vapi.PayloadBuilder
	normalizer  phone.Normalizer
	dispatcher  *Dispatcher

	limiter  ActiveLimiter
	audit    AuditSink
	shutdown context.Context
	opts     Options
}

type Deps struct {
	Prompts     PromptSource
	Credentials CredentialSource
	Trunks      TrunkSource
	Campaigns   CampaignLedger
	Recorder    OutcomeRecorder
	Caller      vapi.Caller
	Builder     *vapi.PayloadBuilder
	Normalizer  phone.Normalizer
	Dispatcher  *Dispatcher

	// Optional.
	Limiter ActiveLimiter
	Audit   AuditSink

	// Shutdown, when done, stops scheduling further attempts. Client
	// disconnects never do.
	Shutdown context.Context
}

func NewService(d Deps, opts Options) *Service {
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = 50
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 10
	}
	if opts.DefaultLimit > opts.MaxLimit {
		opts.DefaultLimit = opts.MaxLimit
	}
	if opts.WaveBudget <= 0 {
		opts.WaveBudget = time.Second
	}
	if d.Dispatcher == nil {
		d.Dispatcher = NewDispatcher(nil)
	}
	return &Service{
		prompts:     d.Prompts,
		credentials: d.Credentials,
		trunks:      d.Trunks,
		campaigns:   d.Campaigns,
		recorder:    d.Recorder,
		caller:      d.Caller,
		builder:     d.Builder,
		normalizer:  d.Normalizer,
		dispatcher:  d.Dispatcher,
		limiter:     d.Limiter,
		audit:       d.Audit,
		shutdown:    d.Shutdown,
		opts:        opts,
	}
}

// BatchCall validates the request, creates the campaign, places every call
// under the concurrency policy and finalizes the campaign once.
// The returned summary reports partial success; only pre-dispatch failures
// are returned as errors.
func (s *Service) BatchCall(ctx context.Context, userID string, req BatchRequest) (BatchResult, error) {
	log := logger.From(ctx).With("user_id", userID)

	if userID == "" || strings.TrimSpace(req.CampaignName) == "" || req.PromptID == "" || req.PhoneNumbers == nil {
		return BatchResult{}, ErrInvalidArgument
	}
	limit := req.ConcurrentLimit
	if limit == 0 {
		limit = s.opts.DefaultLimit
	}
	if limit < 1 || limit > s.opts.MaxLimit {
		return BatchResult{}, fmt.Errorf("%w: must be between 1 and %d", ErrLimitOutOfRange, s.opts.MaxLimit)
	}

	log.Info("starting batch call campaign", "campaign_name", req.CampaignName, "numbers", len(req.PhoneNumbers))

	cred, err := s.credentials.ForUser(ctx, userID)
	if err != nil {
		if errors.Is(err, vapi.ErrCredentialNotFound) {
			return BatchResult{}, ErrCredentialsMissing
		}
		return BatchResult{}, fmt.Errorf("load credentials: %w", err)
	}
	if !cred.Usable() {
		return BatchResult{}, ErrCredentialsMissing
	}

	prompt, err := s.prompts.Get(ctx, userID, req.PromptID)
	if err != nil {
		if errors.Is(err, prompts.ErrNotFound) {
			return BatchResult{}, ErrPromptNotFound
		}
		return BatchResult{}, fmt.Errorf("load prompt: %w", err)
	}

	trunk, err := s.originator(ctx, userID, cred)
	if err != nil {
		return BatchResult{}, err
	}

	normalized := s.normalizer.Normalize(req.PhoneNumbers)
	if len(normalized.Valid) == 0 {
		return BatchResult{}, ErrNoValidNumbers
	}
	if est := s.estimateRun(len(normalized.Valid), limit); s.opts.MaxRun > 0 && est > s.opts.MaxRun {
		return BatchResult{}, fmt.Errorf("%w: %d numbers at %d per wave would run %s, max %s",
			ErrBatchTooLarge, len(normalized.Valid), limit, est.Round(time.Second), s.opts.MaxRun)
	}

	release, err := s.acquireSlot(ctx, userID)
	if err != nil {
		return BatchResult{}, err
	}
	defer release()

	campaign, err := s.campaigns.Create(ctx, campaigns.CreateInput{
		UserID:       userID,
		Name:         req.CampaignName,
		PromptID:     req.PromptID,
		TotalNumbers: len(normalized.Valid),
	})
	if err != nil {
		return BatchResult{}, err
	}
	log = log.With("campaign_id", campaign.ID)
	log.Info("campaign created", "valid_numbers", len(normalized.Valid), "invalid_numbers", len(normalized.Invalid))

	s.appendAudit(ctx, audit.Event{
		UserID:     userID,
		Type:       audit.EventCampaignDispatched,
		CampaignID: campaign.ID,
		Message:    fmt.Sprintf("valid=%d invalid=%d limit=%d", len(normalized.Valid), len(normalized.Invalid), limit),
	})

	s.warnUnresolved(log, prompt, normalized.Valid[0])

	// The campaign runs every wave even if the client goes away; only server
	// shutdown stops scheduling.
	runCtx, stopRun := context.WithCancel(logger.With(context.WithoutCancel(ctx), log))
	defer stopRun()
	if s.shutdown != nil {
		stopAfter := context.AfterFunc(s.shutdown, stopRun)
		defer stopAfter()
	}

	attempt := s.attemptFunc(userID, campaign.ID, prompt, cred, trunk)
	tally, err := s.dispatcher.Run(runCtx, normalized.Valid, limit, attempt)
	finalCtx := context.WithoutCancel(runCtx)
	if err != nil {
		_ = s.campaigns.MarkFailed(finalCtx, campaign.ID, 0, 0)
		return BatchResult{}, err
	}

	// Numbers never attempted still get their failed log row.
	skipped := 0
	for _, o := range tally.Outcomes {
		if o.Skipped {
			skipped++
			s.recorder.Record(finalCtx, calls.Attempt{UserID: userID, CampaignID: campaign.ID, PhoneNumber: o.PhoneNumber, Err: o.Err})
		}
	}

	if skipped > 0 {
		log.Warn("dispatch stopped by shutdown", "skipped", skipped)
		err = s.campaigns.MarkFailed(finalCtx, campaign.ID, tally.Success, tally.Failure)
	} else {
		err = s.campaigns.Finalize(finalCtx, campaign.ID, tally.Success, tally.Failure)
	}
	if err != nil {
		log.Error("campaign finalize failed", "err", err)
	}

	log.Info("batch call completed", "success", tally.Success, "failed", tally.Failure, "waves", tally.Waves)
	s.appendAudit(finalCtx, audit.Event{
		UserID:     userID,
		Type:       audit.EventCampaignFinalized,
		CampaignID: campaign.ID,
		Message:    fmt.Sprintf("success=%d failed=%d waves=%d", tally.Success, tally.Failure, tally.Waves),
	})

	return BatchResult{
		Message:    completedMessage,
		CampaignID: campaign.ID,
		Summary: Summary{
			TotalProvided:       len(req.PhoneNumbers),
			ValidNumbers:        len(normalized.Valid),
			InvalidNumbers:      len(normalized.Invalid),
			SuccessfulCalls:     tally.Success,
			FailedCalls:         tally.Failure,
			ChunksProcessed:     tally.Waves,
			ConcurrentLimitUsed: limit,
		},
		InvalidNumbers: normalized.Invalid,
	}, nil
}

// estimateRun is the expected wall time of n numbers dispatched limit at a time.
func (s *Service) estimateRun(n, limit int) time.Duration {
	waves := (n + limit - 1) / limit
	if waves == 0 {
		return 0
	}
	return time.Duration(waves)*s.opts.WaveBudget + time.Duration(waves-1)*s.opts.Cooldown
}

// warnUnresolved logs placeholders the per-call variables do not cover, for
// both the system prompt and the first message.
func (s *Service) warnUnresolved(log *slog.Logger, p prompts.Prompt, sample string) {
	vars := map[string]string{prompts.PlaceholderCustomerPhone: sample}
	fields := []struct{ name, text string }{
		{"system_prompt", p.SystemPrompt},
		{"first_message", p.FirstMessage},
	}
	for _, f := range fields {
		if missing := prompts.MissingPlaceholders(prompts.Interpolate(f.text, vars)); len(missing) > 0 {
			log.Warn("prompt has unresolved placeholders", "field", f.name, "placeholders", missing)
		}
	}
}

func (s *Service) attemptFunc(userID, campaignID string, prompt prompts.Prompt, cred vapi.Credential, trunk *vapi.TrunkPhone) AttemptFunc {
	vars := func(number string) map[string]string {
		return map[string]string{prompts.PlaceholderCustomerPhone: number}
	}
	return func(ctx context.Context, number string) Outcome {
		req := s.builder.Build(vapi.CallInput{
			PhoneNumber:   number,
			SystemPrompt:  prompts.Interpolate(prompt.SystemPrompt, vars(number)),
			FirstMessage:  prompts.Interpolate(prompt.FirstMessage, vars(number)),
			CampaignID:    campaignID,
			PromptID:      prompt.ID,
			Trunk:         trunk,
			PhoneNumberID: cred.PhoneNumberID,
		})

		resp, err := s.caller.CreateCall(ctx, cred.APIKey, req)
		if err != nil {
			logger.From(ctx).Warn("call failed", slog.String("phone_number", number), slog.Any("err", err))
			s.recorder.Record(ctx, calls.Attempt{UserID: userID, CampaignID: campaignID, PhoneNumber: number, Err: err})
			return Outcome{PhoneNumber: number, Err: err}
		}
		logger.From(ctx).Debug("call initiated", slog.String("phone_number", number), slog.String("vapi_call_id", resp.ID))
		s.recorder.Record(ctx, calls.Attempt{UserID: userID, CampaignID: campaignID, PhoneNumber: number, Response: &resp})
		return Outcome{PhoneNumber: number, Success: true, CallID: resp.ID}
	}
}

// originator picks the carrier block: the user's trunk when configured,
// otherwise the platform phone number id from the api credential.
func (s *Service) originator(ctx context.Context, userID string, cred vapi.Credential) (*vapi.TrunkPhone, error) {
	if s.trunks != nil {
		t, err := s.trunks.TrunkForUser(ctx, userID)
		switch {
		case err == nil && t.Complete():
			return &vapi.TrunkPhone{
				TwilioPhoneNumber: t.PhoneNumber,
				TwilioAccountSID:  t.AccountSID,
				TwilioAuthToken:   t.AuthToken,
			}, nil
		case err != nil && !errors.Is(err, telephony.ErrTrunkNotConfigured):
			return nil, fmt.Errorf("load phone config: %w", err)
		}
	}
	if cred.PhoneNumberID != "" {
		return nil, nil
	}
	return nil, ErrPhoneServiceMissing
}

func (s *Service) acquireSlot(ctx context.Context, userID string) (func(), error) {
	noop := func() {}
	if s.limiter == nil || s.opts.MaxActivePerUser <= 0 {
		return noop, nil
	}
	key := "dispatch:active:" + userID
	ok, err := s.limiter.Acquire(ctx, key, s.opts.MaxActivePerUser)
	if err != nil {
		logger.From(ctx).Error("dispatch slot acquire failed", "err", err)
		return noop, ErrDispatchUnavailable
	}
	if !ok {
		return noop, ErrTooManyDispatches
	}
	return func() {
		if err := s.limiter.Release(context.WithoutCancel(ctx), key); err != nil {
			logger.From(ctx).Warn("dispatch slot release failed", "err", err)
		}
	}, nil
}

func (s *Service) appendAudit(ctx context.Context, e audit.Event) {
	if s.audit == nil {
		return
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if err := s.audit.Append(ctx, e); err != nil {
		logger.From(ctx).Warn("audit append failed", "type", e.Type, "err", err)
	}
}
