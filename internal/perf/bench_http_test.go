package perf

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/odyssey-erp/campus/internal/navigation"
	"github.com/odyssey-erp/campus/internal/rbac"
	"github.com/odyssey-erp/campus/internal/session"
)

func TestGuardLatencyTargets(t *testing.T) {
	guard := navigation.NewGuard(navigation.GuardConfig{})
	faculty := &rbac.Principal{ID: "fac-7", Role: rbac.RoleFaculty}
	nav := navigation.Scoped(rbac.ModuleLMS, map[string]any{"courseId": "CS101"}, "/modules/lms")

	samples := make([]time.Duration, 0, 500)
	for i := 0; i < 500; i++ {
		module := rbac.Modules()[i%len(rbac.Modules())]
		start := time.Now()
		guard.Evaluate(navigation.Attempt{Principal: faculty, RequiredModule: module, Nav: nav, Location: "/modules/" + string(module)})
		samples = append(samples, time.Since(start))
	}
	if p95 := percentile95(samples); p95 > 5*time.Millisecond {
		t.Fatalf("guard latency regression: p95=%s", p95)
	}
}

func BenchmarkEvaluateScopedNavigation(b *testing.B) {
	evaluator := rbac.NewEvaluator(rbac.DefaultMatrix())
	p := &rbac.Principal{ID: "hod-1", Role: rbac.RoleHOD}
	scope := rbac.Scope{ScopedToModule: true, SelectedModule: string(rbac.ModuleLMS)}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		evaluator.EvaluateScopedNavigation(p, rbac.ModuleExamination, scope)
	}
}

func BenchmarkGuardedRequest(b *testing.B) {
	guard := navigation.NewGuard(navigation.GuardConfig{})
	p := &rbac.Principal{ID: "stu-1", Role: rbac.RoleStudent}
	handler := guard.Require(rbac.ModuleLibrary)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/library", nil)
	req = req.WithContext(rbac.ContextWithPrincipal(req.Context(), p))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusNoContent {
			b.Fatalf("unexpected status %d", rr.Code)
		}
	}
}

func BenchmarkSessionUpdateActivity(b *testing.B) {
	manager := session.NewManager(session.ManagerConfig{})
	store := manager.Store("bench")
	ctx := context.Background()
	if _, err := store.StoreSession(ctx, rbac.Principal{ID: "u-1", Name: "Bench", Role: rbac.RoleStaff}); err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := store.UpdateActivity(ctx); err != nil {
			b.Fatal(err)
		}
	}
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := int(float64(len(sorted)-1) * 0.95)
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
