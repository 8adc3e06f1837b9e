package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"voicecall-platform/internal/auth"
	"voicecall-platform/internal/calls"
	"voicecall-platform/internal/campaigns"
	"voicecall-platform/internal/config"
	"voicecall-platform/internal/dispatch"
	"voicecall-platform/internal/prompts"
	"voicecall-platform/internal/reporting"
)

type stubBatch struct {
	got dispatch.BatchRequest
	res dispatch.BatchResult
	err error
}

func (s *stubBatch) BatchCall(ctx context.Context, userID string, req dispatch.BatchRequest) (dispatch.BatchResult, error) {
	s.got = req
	return s.res, s.err
}

type env struct {
	r         *gin.Engine
	batch     *stubBatch
	campaigns *campaigns.MemoryRepo
	logs      *calls.MemoryRepo
}

// withUser stands in for auth.RequireSession.
func withUser(uid string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if uid != "" {
			c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), auth.Principal{UserID: uid}))
		}
		c.Next()
	}
}

func newEnv(t *testing.T, uid string) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	e := &env{
		batch:     &stubBatch{},
		campaigns: campaigns.NewMemoryRepo(),
		logs:      calls.NewMemoryRepo(),
	}
	agg := campaigns.NewAggregator(e.campaigns)
	h := Handlers{
		Batch:     e.batch,
		Campaigns: agg,
		CallLogs:  e.logs,
		Prompts:   prompts.NewService(prompts.NewMemoryRepo()),
		Stats:     reporting.NewService(agg, e.logs),
	}

	e.r = gin.New()
	e.r.GET("/healthz", h.Healthz)
	v1 := e.r.Group("/v1", withUser(uid))
	v1.POST("/batch-call", h.BatchCall)
	v1.GET("/campaigns", h.ListCampaigns)
	v1.GET("/campaigns/:id", h.GetCampaign)
	v1.GET("/call-logs", h.ListCallLogs)
	v1.GET("/prompts", h.ListPrompts)
	v1.POST("/prompts", h.CreatePrompt)
	v1.GET("/dashboard/stats", h.DashboardStats)
	return e
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var buf *bytes.Buffer
	if body != "" {
		buf = bytes.NewBufferString(body)
	} else {
		buf = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBatchCall_Validation(t *testing.T) {
	e := newEnv(t, "u1")

	cases := []struct {
		name string
		body string
		code int
		want string
	}{
		{"bad json", `{`, http.StatusBadRequest, "invalid json"},
		{"missing name", `{"promptId":"p1","phoneNumbers":["+60123456789"]}`, http.StatusBadRequest, "campaignName is required"},
		{"empty numbers", `{"campaignName":"x","promptId":"p1","phoneNumbers":[]}`, http.StatusBadRequest, "phoneNumbers"},
		{"limit too high", `{"campaignName":"x","promptId":"p1","phoneNumbers":["1"],"concurrentLimit":51}`, http.StatusBadRequest, "concurrentLimit"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(e.r, http.MethodPost, "/v1/batch-call", tc.body)
			if w.Code != tc.code || !strings.Contains(w.Body.String(), tc.want) {
				t.Fatalf("expected %d containing %q, got %d %s", tc.code, tc.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestBatchCall_ErrorMapping(t *testing.T) {
	body := `{"campaignName":"x","promptId":"p1","phoneNumbers":["+60123456789"]}`
	cases := []struct {
		err  error
		code int
	}{
		{dispatch.ErrCredentialsMissing, http.StatusInternalServerError},
		{dispatch.ErrPromptNotFound, http.StatusInternalServerError},
		{dispatch.ErrNoValidNumbers, http.StatusInternalServerError},
		{dispatch.ErrTooManyDispatches, http.StatusTooManyRequests},
		{dispatch.ErrLimitOutOfRange, http.StatusBadRequest},
		{dispatch.ErrBatchTooLarge, http.StatusBadRequest},
		{dispatch.ErrDispatchUnavailable, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		e := newEnv(t, "u1")
		e.batch.err = tc.err
		w := do(e.r, http.MethodPost, "/v1/batch-call", body)
		if w.Code != tc.code {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.code, w.Code)
		}
		var out map[string]string
		_ = json.Unmarshal(w.Body.Bytes(), &out)
		if out["error"] != tc.err.Error() {
			t.Fatalf("expected error text %q, got %q", tc.err.Error(), out["error"])
		}
	}
}

func TestBatchCall_Success(t *testing.T) {
	e := newEnv(t, "u1")
	e.batch.res = dispatch.BatchResult{Message: "Batch call campaign completed successfully", CampaignID: "c1",
		Summary: dispatch.Summary{TotalProvided: 1, ValidNumbers: 1, SuccessfulCalls: 1, ChunksProcessed: 1, ConcurrentLimitUsed: 10}}

	w := do(e.r, http.MethodPost, "/v1/batch-call", `{"campaignName":"x","promptId":"p1","phoneNumbers":["+60123456789"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", w.Code, w.Body.String())
	}
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	summary := out["summary"].(map[string]any)
	if out["campaign_id"] != "c1" || summary["concurrent_limit_used"] != float64(10) {
		t.Fatalf("unexpected body %v", out)
	}
	if e.batch.got.CampaignName != "x" {
		t.Fatalf("request not forwarded: %+v", e.batch.got)
	}
}

func TestProtectedRoutesRequirePrincipal(t *testing.T) {
	e := newEnv(t, "")
	for _, p := range []string{"/v1/campaigns", "/v1/call-logs", "/v1/prompts", "/v1/dashboard/stats"} {
		if w := do(e.r, http.MethodGet, p, ""); w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", p, w.Code)
		}
	}
}

func TestCampaignDetailIncludesCallLogs(t *testing.T) {
	e := newEnv(t, "u1")
	now := time.Now().UTC()
	_ = e.campaigns.Create(context.Background(), campaigns.Campaign{ID: "c1", UserID: "u1", Name: "A", Status: campaigns.StatusCompleted, TotalNumbers: 2, SuccessfulCalls: 1, CreatedAt: now})
	_ = e.campaigns.Create(context.Background(), campaigns.Campaign{ID: "c2", UserID: "u2", Name: "B", CreatedAt: now})
	_ = e.logs.Insert(context.Background(), calls.Entry{ID: "l1", UserID: "u1", CampaignID: "c1", Status: calls.StatusQueued, CreatedAt: now})
	_ = e.logs.Insert(context.Background(), calls.Entry{ID: "l2", UserID: "u1", CampaignID: "other", Status: calls.StatusQueued, CreatedAt: now})

	w := do(e.r, http.MethodGet, "/v1/campaigns/c1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var out struct {
		Campaign struct {
			ID          string  `json:"id"`
			SuccessRate float64 `json:"success_rate"`
		} `json:"campaign"`
		CallLogs []calls.Entry `json:"call_logs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Campaign.ID != "c1" || out.Campaign.SuccessRate != 50 || len(out.CallLogs) != 1 {
		t.Fatalf("unexpected detail %+v", out)
	}

	if w := do(e.r, http.MethodGet, "/v1/campaigns/c2", ""); w.Code != http.StatusNotFound {
		t.Fatalf("other user's campaign must be 404, got %d", w.Code)
	}
}

func TestCallLogsLimit(t *testing.T) {
	e := newEnv(t, "u1")
	if w := do(e.r, http.MethodGet, "/v1/call-logs?limit=0", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if w := do(e.r, http.MethodGet, "/v1/call-logs?limit=5&status=failed", ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w := do(e.r, http.MethodGet, "/v1/call-logs?limit=1001", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 above the cap, got %d", w.Code)
	}
}

func TestCallLogsLimitAboveDefaultIsHonoured(t *testing.T) {
	e := newEnv(t, "u1")
	now := time.Now().UTC()
	for i := 0; i < 900; i++ {
		_ = e.logs.Insert(context.Background(), calls.Entry{ID: fmt.Sprint(i), UserID: "u1", CampaignID: "c1", Status: calls.StatusCompleted, CreatedAt: now.Add(time.Duration(i) * time.Second)})
	}
	_ = e.campaigns.Create(context.Background(), campaigns.Campaign{ID: "c1", UserID: "u1", Name: "big", Status: campaigns.StatusCompleted, TotalNumbers: 900, CreatedAt: now})

	count := func(path string) int {
		t.Helper()
		w := do(e.r, http.MethodGet, path, "")
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, w.Code)
		}
		var out struct {
			CallLogs []calls.Entry `json:"call_logs"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return len(out.CallLogs)
	}
	if n := count("/v1/call-logs?limit=800"); n != 800 {
		t.Fatalf("expected 800 logs, got %d", n)
	}
	if n := count("/v1/call-logs"); n != defaultListLimit {
		t.Fatalf("expected default %d logs, got %d", defaultListLimit, n)
	}
	if n := count("/v1/campaigns/c1"); n != 900 {
		t.Fatalf("campaign detail must list every log, got %d", n)
	}
}

func TestPromptsCreateAndList(t *testing.T) {
	e := newEnv(t, "u1")
	w := do(e.r, http.MethodPost, "/v1/prompts", `{"prompt_name":"VTEC","first_message":"Hi","system_prompt":"Call {{CUSTOMER_PHONE_NUMBER}}"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", w.Code, w.Body.String())
	}
	if w := do(e.r, http.MethodPost, "/v1/prompts", `{"prompt_name":"x"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	w = do(e.r, http.MethodGet, "/v1/prompts", "")
	var out struct {
		Prompts []prompts.Prompt `json:"prompts"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil || len(out.Prompts) != 1 || out.Prompts[0].Name != "VTEC" {
		t.Fatalf("unexpected list %s", w.Body.String())
	}
}

func TestDashboardStatsRange(t *testing.T) {
	e := newEnv(t, "u1")
	if w := do(e.r, http.MethodGet, "/v1/dashboard/stats", ""); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "totalCampaigns") {
		t.Fatalf("unexpected response %d %s", w.Code, w.Body.String())
	}
	if w := do(e.r, http.MethodGet, "/v1/dashboard/stats?from=yesterday", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if w := do(e.r, http.MethodGet, "/v1/dashboard/stats?from=2025-01-02T00:00:00Z&to=2025-01-01T00:00:00Z", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for inverted range, got %d", w.Code)
	}
}

func TestHealthz(t *testing.T) {
	e := newEnv(t, "")
	if w := do(e.r, http.MethodGet, "/healthz", ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	h := Handlers{Health: func(ctx context.Context) error { return errors.New("db down") }}
	r := gin.New()
	r.GET("/healthz", h.Healthz)
	if w := do(r, http.MethodGet, "/healthz", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hash, err := auth.HashPassword("pw")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	m, _ := auth.NewManager(config.AuthConfig{JWTSecret: "s"})
	svc := auth.NewService(auth.NewMemoryUserStore(auth.User{ID: "u1", Username: "ali", PasswordHash: hash}), auth.NewMemorySessionStore(), m)

	r := gin.New()
	h := Handlers{Auth: svc}
	r.POST("/v1/auth/login", h.Login)

	if w := do(r, http.MethodPost, "/v1/auth/login", `{"username":"ali","password":"bad"}`); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/v1/auth/login", `{"username":"ali"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	w := do(r, http.MethodPost, "/v1/auth/login", `{"username":"ali","password":"pw"}`)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"token"`) {
		t.Fatalf("expected token, got %d %s", w.Code, w.Body.String())
	}
}
