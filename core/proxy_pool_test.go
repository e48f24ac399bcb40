package core

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Cristobalca/shield-browser-app/database"
)

func newTestManager(t *testing.T) *ProxyManager {
	t.Helper()
	dir := t.TempDir()
	cfg, err := NewConfig(dir, "")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	db, err := database.NewDatabase(filepath.Join(dir, "data.db"))
	if err != nil {
		t.Fatalf("database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewProxyManager(db, cfg)
}

func seedNodes(t *testing.T, pm *ProxyManager, region string, count int) []int {
	t.Helper()
	ids := []int{}
	for i := 0; i < count; i++ {
		n, err := pm.db.UpsertProxy("10.0.0.1", 10000+i, "user", "secret", region)
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		ids = append(ids, n.Id)
	}
	return ids
}

func TestRegionFromLocationTag(t *testing.T) {
	tests := []struct {
		tag  string
		want string
	}{
		{"Miami-FL", "FL"},
		{"New-York-NY", "NY"},
		{"Washington-DC", "DC"},
		{"miami-fl", "FL"},
		{"Miami", ""},
		{"FL", ""},
		{"", ""},
		{"Miami-FLA", ""},
	}
	for _, tt := range tests {
		if got := RegionFromLocationTag(tt.tag); got != tt.want {
			t.Errorf("RegionFromLocationTag(%q) = %q, want %q", tt.tag, got, tt.want)
		}
	}
}

func TestAllocateNewestFirst(t *testing.T) {
	pm := newTestManager(t)
	ids := seedNodes(t, pm, "NY", 3)

	result, err := pm.Allocate("New-York-NY")
	if err != nil {
		t.Fatal(err)
	}
	if result.Reason != AllocOk {
		t.Fatalf("reason = %s", result.Reason)
	}
	if result.Node.Id != ids[len(ids)-1] {
		t.Errorf("allocated node %d, want newest id %d", result.Node.Id, ids[len(ids)-1])
	}
	if result.Total != 3 || result.Available != 3 {
		t.Errorf("counts = %d/%d, want 3/3", result.Available, result.Total)
	}
}

func TestAllocateRegionUnknown(t *testing.T) {
	pm := newTestManager(t)

	result, err := pm.Allocate("Miami")
	if err != nil {
		t.Fatal(err)
	}
	if result.Reason != AllocRegionUnknown {
		t.Errorf("reason = %s, want %s", result.Reason, AllocRegionUnknown)
	}
}

func TestAllocateRegionExhausted(t *testing.T) {
	pm := newTestManager(t)
	ids := seedNodes(t, pm, "FL", 1)

	// Burn the only node.
	for i := 0; i < 3; i++ {
		if _, err := pm.CreditSession(ids[0]); err != nil {
			t.Fatal(err)
		}
	}

	result, err := pm.Allocate("Miami-FL")
	if err != nil {
		t.Fatal(err)
	}
	if result.Reason != AllocRegionExhausted {
		t.Fatalf("reason = %s, want %s", result.Reason, AllocRegionExhausted)
	}
	if result.Total != 1 || result.Available != 0 {
		t.Errorf("counts = %d/%d, want 0/1", result.Available, result.Total)
	}
}

func TestAllocateExclusive(t *testing.T) {
	pm := newTestManager(t)
	seedNodes(t, pm, "NY", 2)

	// Three concurrent callers over two nodes: exactly two distinct nodes
	// handed out, one caller told the region is exhausted.
	var wg sync.WaitGroup
	results := make([]*AllocationResult, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := pm.Allocate("New-York-NY")
			if err != nil {
				t.Error(err)
				return
			}
			results[i] = r
		}(i)
	}
	wg.Wait()

	seen := map[int]bool{}
	exhausted := 0
	for _, r := range results {
		if r == nil {
			t.Fatal("missing allocation result")
		}
		switch r.Reason {
		case AllocOk:
			if seen[r.Node.Id] {
				t.Errorf("node %d handed out twice", r.Node.Id)
			}
			seen[r.Node.Id] = true
		case AllocRegionExhausted:
			exhausted++
		default:
			t.Errorf("unexpected reason %s", r.Reason)
		}
	}
	if len(seen) != 2 || exhausted != 1 {
		t.Errorf("got %d allocations and %d exhaustions, want 2 and 1", len(seen), exhausted)
	}
}

func TestReleaseReturnsNode(t *testing.T) {
	pm := newTestManager(t)
	seedNodes(t, pm, "NY", 1)

	first, err := pm.Allocate("New-York-NY")
	if err != nil || first.Reason != AllocOk {
		t.Fatalf("first allocate: %v %v", err, first)
	}
	if r, _ := pm.Allocate("New-York-NY"); r.Reason != AllocRegionExhausted {
		t.Fatalf("leased node should not be handed out again, got %s", r.Reason)
	}

	pm.Release(first.Node.Id)

	again, err := pm.Allocate("New-York-NY")
	if err != nil || again.Reason != AllocOk {
		t.Fatalf("allocate after release: %v %v", err, again)
	}
	if again.Node.SessionsCompleted != 0 {
		t.Error("release must not credit a session")
	}
}

func TestCreditSessionBurnsAtThreshold(t *testing.T) {
	pm := newTestManager(t)
	ids := seedNodes(t, pm, "NY", 1)

	for i := 1; i <= 2; i++ {
		node, err := pm.CreditSession(ids[0])
		if err != nil {
			t.Fatal(err)
		}
		if node.SessionsCompleted != i {
			t.Errorf("sessions = %d, want %d", node.SessionsCompleted, i)
		}
		if node.State != database.ProxyStateAvailable {
			t.Errorf("node burned early at %d sessions", i)
		}
	}

	node, err := pm.CreditSession(ids[0])
	if err != nil {
		t.Fatal(err)
	}
	if node.State != database.ProxyStateBurned {
		t.Errorf("state = %s, want %s after third session", node.State, database.ProxyStateBurned)
	}

	// Burned is terminal; further credits keep counting but never revive.
	node, err = pm.CreditSession(ids[0])
	if err != nil {
		t.Fatal(err)
	}
	if node.State != database.ProxyStateBurned || node.SessionsCompleted != 4 {
		t.Errorf("state = %s sessions = %d after fourth credit", node.State, node.SessionsCompleted)
	}
}

func TestCreditSessionEndsLease(t *testing.T) {
	pm := newTestManager(t)
	seedNodes(t, pm, "NY", 1)

	first, _ := pm.Allocate("New-York-NY")
	if _, err := pm.CreditSession(first.Node.Id); err != nil {
		t.Fatal(err)
	}

	again, err := pm.Allocate("New-York-NY")
	if err != nil || again.Reason != AllocOk {
		t.Fatalf("node with one session should be allocatable again: %v %v", err, again)
	}
}

func TestCreditSessionNotFound(t *testing.T) {
	pm := newTestManager(t)

	if _, err := pm.CreditSession(42); err == nil {
		t.Error("expected error for unknown node id")
	}
}

func TestCreditPolicies(t *testing.T) {
	pm := newTestManager(t)
	ids := seedNodes(t, pm, "NY", 1)

	if _, err := pm.CreditPolicies(ids[0], 0); err == nil {
		t.Error("zero count should be rejected")
	}
	if _, err := pm.CreditPolicies(ids[0], -2); err == nil {
		t.Error("negative count should be rejected")
	}

	node, err := pm.CreditPolicies(ids[0], 2)
	if err != nil {
		t.Fatal(err)
	}
	if node.PolicyCredits != 2 {
		t.Errorf("credits = %d, want 2", node.PolicyCredits)
	}
	node, err = pm.CreditPolicies(ids[0], 3)
	if err != nil {
		t.Fatal(err)
	}
	if node.PolicyCredits != 5 {
		t.Errorf("credits = %d, want 5", node.PolicyCredits)
	}
	if node.PolicyCreditedAt == 0 {
		t.Error("credit timestamp not stamped")
	}
}

func TestToggleDisabled(t *testing.T) {
	pm := newTestManager(t)
	ids := seedNodes(t, pm, "NY", 1)

	node, err := pm.ToggleDisabled(ids[0])
	if err != nil {
		t.Fatal(err)
	}
	if !node.Disabled {
		t.Fatal("node should be disabled after first toggle")
	}

	if r, _ := pm.Allocate("New-York-NY"); r.Reason != AllocRegionExhausted {
		t.Errorf("disabled node handed out: %s", r.Reason)
	}

	node, err = pm.ToggleDisabled(ids[0])
	if err != nil {
		t.Fatal(err)
	}
	if node.Disabled {
		t.Fatal("node should be enabled after second toggle")
	}
	if r, _ := pm.Allocate("New-York-NY"); r.Reason != AllocOk {
		t.Errorf("re-enabled node not allocatable: %s", r.Reason)
	}
}

func TestSummaryByRegion(t *testing.T) {
	pm := newTestManager(t)
	nyIds := seedNodes(t, pm, "NY", 2)
	seedNodes(t, pm, "FL", 1)

	if _, err := pm.ToggleDisabled(nyIds[0]); err != nil {
		t.Fatal(err)
	}

	summaries, err := pm.SummaryByRegion()
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 2 {
		t.Fatalf("regions = %d, want 2", len(summaries))
	}
	// Sorted by region code: FL first.
	if summaries[0].Region != "FL" || summaries[0].Total != 1 || summaries[0].Available != 1 {
		t.Errorf("FL summary = %+v", summaries[0])
	}
	if summaries[1].Region != "NY" || summaries[1].Total != 2 || summaries[1].Available != 1 {
		t.Errorf("NY summary = %+v", summaries[1])
	}

	fl, err := pm.CountByRegion("fl")
	if err != nil {
		t.Fatal(err)
	}
	if fl.Total != 1 || fl.Available != 1 {
		t.Errorf("CountByRegion(fl) = %+v", fl)
	}
}

func TestListByRegionOrdering(t *testing.T) {
	pm := newTestManager(t)
	nyIds := seedNodes(t, pm, "NY", 2)
	seedNodes(t, pm, "FL", 1)

	if _, err := pm.ToggleDisabled(nyIds[1]); err != nil {
		t.Fatal(err)
	}

	nodes, err := pm.ListByRegion("")
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 3 {
		t.Fatalf("nodes = %d, want 3", len(nodes))
	}
	if nodes[len(nodes)-1].Id != nyIds[1] {
		t.Error("disabled node should sort last")
	}
	if nodes[0].RegionCode != "FL" {
		t.Errorf("first enabled node region = %s, want FL", nodes[0].RegionCode)
	}

	if _, err := pm.ListByRegion("TOOLONG"); err == nil {
		t.Error("invalid region code should be rejected")
	}
}

func TestGetBrowserProxy(t *testing.T) {
	pm := newTestManager(t)
	ids := seedNodes(t, pm, "NY", 1)

	node, err := pm.GetNode(ids[0])
	if err != nil {
		t.Fatal(err)
	}
	bp := pm.GetBrowserProxy(node)
	if bp.Server != "http://10.0.0.1:10000" {
		t.Errorf("server = %s", bp.Server)
	}
	if bp.Username != "user" || bp.Secret != "secret" {
		t.Errorf("credentials = %s/%s", bp.Username, bp.Secret)
	}
	if pm.GetBrowserProxy(nil) != nil {
		t.Error("nil node should map to nil proxy")
	}
}

func TestEvaluateAbuse(t *testing.T) {
	pm := newTestManager(t)

	t.Run("recent burst alerts", func(t *testing.T) {
		ids := seedNodes(t, pm, "NY", 1)
		if _, err := pm.CreditPolicies(ids[0], 3); err != nil {
			t.Fatal(err)
		}
		alert, err := pm.EvaluateAbuse(ids[0])
		if err != nil {
			t.Fatal(err)
		}
		if !alert.Alert {
			t.Error("3 recent credits should alert")
		}
		if alert.Message == "" || alert.PolicyCredits != 3 {
			t.Errorf("alert payload = %+v", alert)
		}
	})

	t.Run("below threshold stays quiet", func(t *testing.T) {
		ids := seedNodes(t, pm, "FL", 1)
		if _, err := pm.CreditPolicies(ids[0], 2); err != nil {
			t.Fatal(err)
		}
		alert, err := pm.EvaluateAbuse(ids[0])
		if err != nil {
			t.Fatal(err)
		}
		if alert.Alert {
			t.Error("2 credits should not alert")
		}
	})

	t.Run("old credits age out", func(t *testing.T) {
		ids := seedNodes(t, pm, "MA", 1)
		eightDaysAgo := time.Now().UTC().Add(-8 * 24 * time.Hour).Unix()
		if _, err := pm.db.CreditProxyPolicies(ids[0], 3, eightDaysAgo); err != nil {
			t.Fatal(err)
		}
		alert, err := pm.EvaluateAbuse(ids[0])
		if err != nil {
			t.Fatal(err)
		}
		if alert.Alert {
			t.Error("credits older than the window should not alert")
		}
	})

	t.Run("never credited stays quiet", func(t *testing.T) {
		ids := seedNodes(t, pm, "CT", 1)
		alert, err := pm.EvaluateAbuse(ids[0])
		if err != nil {
			t.Fatal(err)
		}
		if alert.Alert {
			t.Error("node with zero credits should not alert")
		}
	})
}
