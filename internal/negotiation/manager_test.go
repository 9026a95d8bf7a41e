package negotiation

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jairodriguez/autonomica/pkg/models"
	"github.com/jairodriguez/autonomica/pkg/protocol"
)

func TestStartWorkerResourceResolvesTimeSharing(t *testing.T) {
	m := NewManager(Config{}, nil)

	state := m.Start("worker-3-slot", "w1", []string{"w2"})

	if state.Status != models.NegotiationResolved {
		t.Fatalf("status = %q, want resolved", state.Status)
	}
	if !strings.Contains(state.Resolution, "time-sharing") {
		t.Errorf("resolution = %q, want time-sharing", state.Resolution)
	}
	if len(state.Parties) != 2 {
		t.Errorf("parties = %v, want initiator plus one", state.Parties)
	}
}

func TestStartWorkerResourceManyPartiesStaysOpen(t *testing.T) {
	m := NewManager(Config{}, nil)

	state := m.Start("worker-3-slot", "w1", []string{"w2", "w3"})

	if state.Status != models.NegotiationOpen {
		t.Errorf("status = %q, want open (three parties exceed time-sharing)", state.Status)
	}
}

func TestStartTokenBudgetResolvesPriority(t *testing.T) {
	m := NewManager(Config{}, nil)

	state := m.Start("token-budget", "w2", []string{"w1", "w3"})

	if state.Status != models.NegotiationResolved {
		t.Fatalf("status = %q, want resolved", state.Status)
	}
	if !strings.Contains(state.Resolution, "priority") || !strings.Contains(state.Resolution, "w2") {
		t.Errorf("resolution = %q, want priority allocation favoring initiator", state.Resolution)
	}
}

func TestStartMemoryResolvesLoadBalancing(t *testing.T) {
	m := NewManager(Config{}, nil)

	state := m.Start("memory-pool", "w1", []string{"w2", "w3"})

	if state.Status != models.NegotiationResolved {
		t.Fatalf("status = %q, want resolved", state.Status)
	}
	if !strings.Contains(state.Resolution, "load balancing") {
		t.Errorf("resolution = %q, want load balancing", state.Resolution)
	}
}

func TestStartUnknownResourceStaysOpen(t *testing.T) {
	m := NewManager(Config{}, nil)

	state := m.Start("mystery-pool", "w1", []string{"w2", "w3"})

	if state.Status != models.NegotiationOpen {
		t.Errorf("status = %q, want open", state.Status)
	}
}

func TestStartUsesInjectedKindLookup(t *testing.T) {
	// The ID alone suggests nothing, but the ledger knows it is a worker pool.
	kindOf := func(resourceID string) models.ResourceKind {
		if resourceID == "pool-7" {
			return models.ResourceWorker
		}
		return ""
	}
	m := NewManager(Config{}, kindOf)

	state := m.Start("pool-7", "w1", []string{"w2"})

	if state.Status != models.NegotiationResolved {
		t.Fatalf("status = %q, want resolved via injected kind", state.Status)
	}
	if !strings.Contains(state.Resolution, "time-sharing") {
		t.Errorf("resolution = %q, want time-sharing", state.Resolution)
	}
}

func TestAddMessageAcceptResolves(t *testing.T) {
	m := NewManager(Config{}, nil)
	state := m.Start("mystery-pool", "w1", []string{"w2"})

	if err := m.AddMessage(state.ID, protocol.New("w1", "w2", &protocol.NegotiationRequest{
		NegotiationID: state.ID,
		ResourceID:    "mystery-pool",
		Proposal:      "alternate hourly",
	})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Get(state.ID).Status != models.NegotiationOpen {
		t.Fatal("proposal alone should not resolve")
	}

	if err := m.AddMessage(state.ID, protocol.New("w2", "w1", &protocol.NegotiationResponse{
		NegotiationID: state.ID,
		Accepted:      true,
	})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := m.Get(state.ID)
	if got.Status != models.NegotiationResolved {
		t.Fatalf("status = %q, want resolved after acceptance", got.Status)
	}
	if !strings.Contains(got.Resolution, "accepted by w2") {
		t.Errorf("resolution = %q, want acceptance naming w2", got.Resolution)
	}
	if len(got.History) != 2 {
		t.Errorf("history length = %d, want 2", len(got.History))
	}
}

func TestAddMessageRejectionStaysOpen(t *testing.T) {
	m := NewManager(Config{}, nil)
	state := m.Start("mystery-pool", "w1", []string{"w2"})

	if err := m.AddMessage(state.ID, protocol.New("w2", "w1", &protocol.NegotiationResponse{
		NegotiationID:   state.ID,
		Accepted:        false,
		CounterProposal: "I go first",
	})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if m.Get(state.ID).Status != models.NegotiationOpen {
		t.Error("rejection should leave negotiation open")
	}
}

func TestAddMessageUnknownNegotiation(t *testing.T) {
	m := NewManager(Config{}, nil)

	err := m.AddMessage("ghost", protocol.New("w1", "w2", &protocol.DataRequest{Key: "x"}))
	if !errors.Is(err, ErrUnknownNegotiation) {
		t.Errorf("expected ErrUnknownNegotiation, got %v", err)
	}
}

func TestResolveAndFailAreIdempotentTerminals(t *testing.T) {
	m := NewManager(Config{}, nil)
	state := m.Start("mystery-pool", "w1", []string{"w2", "w3"})

	if err := m.Resolve(state.ID, "split evenly"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Terminal transitions never reverse.
	if err := m.Fail(state.ID, "too late"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := m.Get(state.ID)
	if got.Status != models.NegotiationResolved {
		t.Errorf("status = %q, want resolved to stick", got.Status)
	}
	if got.Resolution != "split evenly" {
		t.Errorf("resolution = %q, want original kept", got.Resolution)
	}
	if got.FailureReason != "" {
		t.Errorf("failure reason = %q, want empty", got.FailureReason)
	}

	if err := m.Resolve(state.ID, "split differently"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Get(state.ID).Resolution != "split evenly" {
		t.Error("second resolve must not overwrite the first")
	}
}

func TestSweepTimesOutStaleOpenNegotiations(t *testing.T) {
	m := NewManager(Config{}, nil)
	state := m.Start("mystery-pool", "w1", []string{"w2", "w3"})

	if state.Status != models.NegotiationOpen {
		t.Fatalf("precondition: status = %q, want open", state.Status)
	}

	// Even with zero incoming messages, the dispute must terminate.
	m.Sweep(time.Now().Add(DefaultResolveTimeout + time.Minute))

	got := m.Get(state.ID)
	if got.Status != models.NegotiationResolved {
		t.Fatalf("status = %q, want resolved by timeout", got.Status)
	}
	if !strings.Contains(got.Resolution, "timeout default") {
		t.Errorf("resolution = %q, want timeout default marked distinctly", got.Resolution)
	}
	if !strings.Contains(got.Resolution, "w1") {
		t.Errorf("resolution = %q, want initiator favored", got.Resolution)
	}
}

func TestSweepRemovesExpiredTerminals(t *testing.T) {
	m := NewManager(Config{}, nil)
	state := m.Start("token-budget", "w1", []string{"w2"})

	if !state.Status.Terminal() {
		t.Fatalf("precondition: token budget dispute should auto-resolve")
	}

	m.Sweep(time.Now().Add(DefaultRetention + time.Minute))

	if m.Get(state.ID) != nil {
		t.Error("terminal negotiation past retention should be removed")
	}
	if got := m.Metrics().Total; got != 0 {
		t.Errorf("Metrics().Total = %d, want 0 after sweep", got)
	}
}

func TestSweepKeepsFreshEntries(t *testing.T) {
	m := NewManager(Config{}, nil)
	open := m.Start("mystery-pool", "w1", []string{"w2", "w3"})
	settled := m.Start("token-budget", "w1", []string{"w2"})

	m.Sweep(time.Now())

	if m.Get(open.ID) == nil || m.Get(settled.ID) == nil {
		t.Error("fresh negotiations must survive the sweep")
	}
	if m.Get(open.ID).Status != models.NegotiationOpen {
		t.Error("fresh open negotiation must not be timed out")
	}
}

func TestGetActiveFiltersByResource(t *testing.T) {
	m := NewManager(Config{}, nil)
	first := m.Start("mystery-pool", "w1", []string{"w2", "w3"})
	m.Start("other-pool", "w1", []string{"w2", "w3"})
	m.Start("token-budget", "w1", nil) // auto-resolves

	active := m.GetActive("mystery-pool")
	if len(active) != 1 || active[0].ID != first.ID {
		t.Errorf("GetActive(mystery-pool) = %d entries, want just the first", len(active))
	}

	all := m.GetActive("")
	if len(all) != 2 {
		t.Errorf("GetActive(\"\") = %d entries, want 2 open", len(all))
	}
}

func TestForceResolveAll(t *testing.T) {
	m := NewManager(Config{}, nil)
	a := m.Start("mystery-pool", "w1", []string{"w2", "w3"})
	b := m.Start("mystery-pool", "w2", []string{"w1", "w3"})
	other := m.Start("other-pool", "w1", []string{"w2", "w3"})

	closed := m.ForceResolveAll("mystery-pool", "w3")
	if closed != 2 {
		t.Fatalf("ForceResolveAll closed %d, want 2", closed)
	}

	for _, id := range []string{a.ID, b.ID} {
		got := m.Get(id)
		if got.Status != models.NegotiationResolved {
			t.Errorf("negotiation %s status = %q, want resolved", id, got.Status)
		}
		if !strings.Contains(got.Resolution, "w3") {
			t.Errorf("resolution = %q, want winner named", got.Resolution)
		}
	}
	if m.Get(other.ID).Status != models.NegotiationOpen {
		t.Error("other resource's negotiation must stay open")
	}
}

func TestMetrics(t *testing.T) {
	m := NewManager(Config{}, nil)
	m.Start("token-budget", "w1", nil)                    // resolved
	m.Start("memory-pool", "w1", []string{"w2"})          // resolved
	open := m.Start("mystery-pool", "w1", []string{"w2", "w3"}) // open
	if err := m.Fail(open.ID, "no agreement"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.Start("other-pool", "w2", []string{"w1", "w3"}) // open

	got := m.Metrics()
	if got.Total != 4 {
		t.Errorf("Total = %d, want 4", got.Total)
	}
	if got.Active != 1 {
		t.Errorf("Active = %d, want 1", got.Active)
	}
	if got.Resolved != 2 {
		t.Errorf("Resolved = %d, want 2", got.Resolved)
	}
	if got.Failed != 1 {
		t.Errorf("Failed = %d, want 1", got.Failed)
	}
	if got.SuccessRate != 0.5 {
		t.Errorf("SuccessRate = %v, want 0.5", got.SuccessRate)
	}
}

func TestOnTerminalCallback(t *testing.T) {
	m := NewManager(Config{}, nil)

	var seen []string
	m.SetOnTerminal(func(state *models.NegotiationState) {
		seen = append(seen, state.ID)
	})

	auto := m.Start("token-budget", "w1", nil)
	open := m.Start("mystery-pool", "w1", []string{"w2", "w3"})
	m.Sweep(time.Now().Add(DefaultResolveTimeout + time.Minute))

	if len(seen) != 2 {
		t.Fatalf("callback fired %d times, want 2", len(seen))
	}
	if seen[0] != auto.ID || seen[1] != open.ID {
		t.Errorf("callback order = %v, want [%s %s]", seen, auto.ID, open.ID)
	}
}

func TestPartiesIncludeInitiatorOnce(t *testing.T) {
	m := NewManager(Config{}, nil)

	state := m.Start("mystery-pool", "w1", []string{"w1", "w2", "w2", "w3"})

	if len(state.Parties) != 3 {
		t.Fatalf("parties = %v, want 3 unique", state.Parties)
	}
	if state.Parties[0] != "w1" {
		t.Errorf("parties[0] = %q, want initiator first", state.Parties[0])
	}
}
