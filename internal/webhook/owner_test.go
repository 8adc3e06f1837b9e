package webhook

import (
	"context"
	"errors"
	"testing"

	"voicecall-platform/internal/telephony"
	"voicecall-platform/internal/vapi"
)

type stubOwners struct {
	owner string
	err   error
	calls int
}

func (s *stubOwners) Owner(ctx context.Context, id string) (string, error) {
	s.calls++
	return s.owner, s.err
}

func TestOwnerResolver_Priority(t *testing.T) {
	numbers := telephony.NewMemoryStore()
	numbers.PutNumber(telephony.ProvisionedNumber{UserID: "by-number", PhoneNumber: "+601"})
	creds := vapi.NewMemoryCredentialStore(vapi.Credential{UserID: "by-assistant", AssistantID: "asst-1"})

	camp := &stubOwners{owner: "by-campaign"}
	r := NewOwnerResolver(camp, numbers, creds)

	a, err := r.Resolve(context.Background(), "c1", "+601", "asst-1")
	if err != nil || a.UserID != "by-campaign" || a.Via != ViaCampaign || !a.CampaignKnown {
		t.Fatalf("campaign must win, got %+v, %v", a, err)
	}

	a, _ = r.Resolve(context.Background(), "", "+601", "asst-1")
	if a.UserID != "by-number" || a.Via != ViaNumber || a.CampaignKnown {
		t.Fatalf("number must be second, got %+v", a)
	}

	a, _ = r.Resolve(context.Background(), "", "+609", "asst-1")
	if a.UserID != "by-assistant" || a.Via != ViaAssistant {
		t.Fatalf("assistant must be last, got %+v", a)
	}
}

func TestOwnerResolver_LookupErrorContinuesChain(t *testing.T) {
	numbers := telephony.NewMemoryStore()
	numbers.PutNumber(telephony.ProvisionedNumber{UserID: "by-number", PhoneNumber: "+601"})
	camp := &stubOwners{err: errors.New("connection reset")}

	a, err := NewOwnerResolver(camp, numbers, vapi.NewMemoryCredentialStore()).Resolve(context.Background(), "c1", "+601", "")
	if err != nil || a.UserID != "by-number" {
		t.Fatalf("expected fallback to number, got %+v, %v", a, err)
	}
	if camp.calls != 1 {
		t.Fatalf("campaign lookup must be attempted once")
	}
}

func TestOwnerResolver_NoneResolves(t *testing.T) {
	r := NewOwnerResolver(&stubOwners{}, telephony.NewMemoryStore(), vapi.NewMemoryCredentialStore())
	if _, err := r.Resolve(context.Background(), "c1", "+601", "asst-1"); !errors.Is(err, ErrUnattributed) {
		t.Fatalf("expected ErrUnattributed, got %v", err)
	}
}
