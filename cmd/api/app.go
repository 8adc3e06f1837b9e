package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"voicecall-platform/internal/audit"
	"voicecall-platform/internal/auth"
	"voicecall-platform/internal/calls"
	"voicecall-platform/internal/campaigns"
	"voicecall-platform/internal/config"
	"voicecall-platform/internal/dispatch"
	"voicecall-platform/internal/httpapi"
	"voicecall-platform/internal/phone"
	"voicecall-platform/internal/prompts"
	"voicecall-platform/internal/reporting"
	"voicecall-platform/internal/telephony"
	"voicecall-platform/internal/vapi"
	"voicecall-platform/internal/webhook"
	"voicecall-platform/pkg/utils"
)

const webhookDedupTTL = 24 * time.Hour

// app holds the wired services the routes need.
type app struct {
	handlers httpapi.Handlers
	sessions *auth.Service
	webhook  *webhook.Handler
}

// buildApp wires services. shutdown stops running batch dispatches.
func buildApp(shutdown context.Context, cfg config.Config, db *sql.DB, rdb *redis.Client) (*app, error) {
	profile, err := vapi.LoadProfile(cfg.Vapi.ProfilePath)
	if err != nil {
		return nil, fmt.Errorf("vapi profile: %w", err)
	}
	if cfg.Vapi.ServerURL != "" {
		profile = profile.WithServerURL(cfg.Vapi.ServerURL)
	}

	tokens, err := auth.NewManager(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}

	// Storage.
	promptRepo := prompts.NewPostgresRepo(db)
	callRepo := calls.NewPostgresRepo(db)
	campaignAgg := campaigns.NewAggregator(campaigns.NewPostgresRepo(db))
	numbers := telephony.NewPostgresStore(db)
	credentials := vapi.NewPostgresCredentialStore(db)
	auditSvc := audit.NewService(audit.NewPostgresRepo(db))

	// Batch dispatch.
	var policy dispatch.Policy = dispatch.WavePolicy{Cooldown: cfg.Dispatch.WaveCooldown}
	if cfg.Dispatch.Policy == "pool" {
		policy = dispatch.PoolPolicy{Cooldown: cfg.Dispatch.WaveCooldown}
	}
	batch := dispatch.NewService(dispatch.Deps{
		Prompts:     promptRepo,
		Credentials: credentials,
		Trunks:      numbers,
		Campaigns:   campaignAgg,
		Recorder:    calls.NewRecorder(callRepo),
		Caller:      vapi.NewClient(cfg.Vapi.BaseURL, cfg.Vapi.RequestTimeout),
		Builder:     vapi.NewPayloadBuilder(profile),
		Normalizer:  phone.NewNormalizer(cfg.Dispatch.DefaultCountryCode),
		Dispatcher:  dispatch.NewDispatcher(policy),
		Limiter:     utils.NewSlotLimiter(rdb, cfg.ActiveSlotTTL()),
		Audit:       auditSvc,
		Shutdown:    shutdown,
	}, dispatch.Options{
		DefaultLimit:     cfg.Dispatch.DefaultConcurrentLimit,
		MaxLimit:         cfg.Dispatch.MaxConcurrentLimit,
		MaxActivePerUser: cfg.Dispatch.MaxActivePerUser,
		MaxRun:           cfg.Dispatch.MaxRun,
		Cooldown:         cfg.Dispatch.WaveCooldown,
	})

	// Sessions.
	sessions := auth.NewService(
		auth.NewPostgresUserStore(db),
		auth.NewCachedSessionStore(auth.NewPostgresSessionStore(db), rdb, cfg.Auth.SessionTTL),
		tokens,
	)

	// Provider webhook.
	processor := webhook.NewEndOfCallProcessor(webhook.ProcessorDeps{
		Logs:     callRepo,
		Counter:  campaignAgg,
		Resolver: webhook.NewOwnerResolver(campaignAgg, numbers, credentials),
		Dedup:    utils.NewOnceClaimer(rdb, "webhook:eoc:", webhookDedupTTL),
		Audit:    auditSvc,
	})
	hook := webhook.NewHandler(
		webhook.NewRouter(webhook.NewToolHandler(), processor),
		webhook.NewVerifier(cfg.Webhook.Secret),
		auditSvc,
	)

	return &app{
		handlers: httpapi.Handlers{
			Batch:     batch,
			Campaigns: campaignAgg,
			CallLogs:  callRepo,
			Prompts:   prompts.NewService(promptRepo),
			Stats:     reporting.NewService(campaignAgg, callRepo),
			Auth:      sessions,
			Health: func(ctx context.Context) error {
				if err := utils.HealthCheck(ctx, db, 2*time.Second); err != nil {
					return err
				}
				return rdb.Ping(ctx).Err()
			},
		},
		sessions: sessions,
		webhook:  hook,
	}, nil
}
