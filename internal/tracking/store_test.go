package tracking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "runs.db"), logger)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func saveTestRun(t *testing.T, s *Store, spec RunSpec) Run {
	t.Helper()
	run, err := s.SaveRun(context.Background(), spec)
	if err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	return run
}

var v1 = Version{Major: 1, Minor: 2, Micro: 0}

func TestSaveAndGetRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	saved := saveTestRun(t, s, RunSpec{
		Experiment: "churn",
		Version:    v1,
		Params:     map[string]string{"region": "eu"},
		Metrics:    map[string]float64{"auc_proxy": 0.8},
		Cutoffs:    map[string]float64{"churned": 0.42},
	})

	if saved.Status != New || saved.TestFraction != 0 {
		t.Errorf("new run should be New with fraction 0, got %v %v", saved.Status, saved.TestFraction)
	}
	if saved.Submodel != "churn" {
		t.Errorf("submodel should default to experiment, got %q", saved.Submodel)
	}

	got, err := s.GetRun(ctx, saved.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Version != v1 {
		t.Errorf("Version = %v, want %v", got.Version, v1)
	}
	if got.Params["region"] != "eu" || got.Metrics["auc_proxy"] != 0.8 || got.Cutoffs["churned"] != 0.42 {
		t.Errorf("attributes did not round-trip: %+v", got)
	}

	_, err = s.GetRun(ctx, "missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestSaveRun_RequiresExperiment(t *testing.T) {
	s := openTestStore(t)
	_, err := s.SaveRun(context.Background(), RunSpec{Version: v1})
	if !errors.Is(err, ErrNoExperiment) {
		t.Errorf("expected ErrNoExperiment, got %v", err)
	}
}

func TestSaveRun_CopiesInputMaps(t *testing.T) {
	s := openTestStore(t)
	params := map[string]string{"a": "1"}
	run := saveTestRun(t, s, RunSpec{Experiment: "x", Params: params})

	params["a"] = "changed"
	if run.Params["a"] != "1" {
		t.Error("saved run aliases the caller's map")
	}
}

func TestListRuns_Filters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := saveTestRun(t, s, RunSpec{Experiment: "churn", Version: v1, Params: map[string]string{"region": "eu"}})
	b := saveTestRun(t, s, RunSpec{Experiment: "churn", Version: v1, Submodel: "mobile", Metrics: map[string]float64{"budget": 2}})
	saveTestRun(t, s, RunSpec{Experiment: "churn", Version: Version{Major: 2}})
	saveTestRun(t, s, RunSpec{Experiment: "fraud", Version: v1})

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{name: "version", filter: Filter{Experiment: "churn", Version: v1}, want: []string{b.ID, a.ID}},
		{name: "submodel", filter: Filter{Experiment: "churn", Version: v1, Submodel: "mobile"}, want: []string{b.ID}},
		{name: "params", filter: Filter{Experiment: "churn", Version: v1, Params: map[string]string{"region": "eu"}}, want: []string{a.ID}},
		{name: "metrics", filter: Filter{Experiment: "churn", Version: v1, Metrics: map[string]float64{"budget": 2}}, want: []string{b.ID}},
		{name: "status", filter: Filter{Experiment: "churn", Version: v1}.WithStatus(Active), want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := s.ListRuns(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListRuns failed: %v", err)
			}
			if len(runs) != len(tt.want) {
				t.Fatalf("got %d runs, want %d", len(runs), len(tt.want))
			}
			for i, id := range tt.want {
				if runs[i].ID != id {
					t.Errorf("runs[%d] = %s, want %s", i, runs[i].ID, id)
				}
			}
		})
	}

	if _, err := s.ListRuns(ctx, Filter{}); !errors.Is(err, ErrNoExperiment) {
		t.Errorf("expected ErrNoExperiment, got %v", err)
	}
}

func TestStatusTransitions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	run := saveTestRun(t, s, RunSpec{Experiment: "churn", Version: v1})

	steps := []struct {
		name         string
		apply        func(context.Context, string) error
		wantStatus   Status
		wantFraction float64
	}{
		{name: "enable", apply: s.Enable, wantStatus: Active, wantFraction: 1},
		{name: "canary", apply: s.Canary, wantStatus: Canary, wantFraction: 0},
		{name: "disable", apply: s.Disable, wantStatus: Disabled, wantFraction: 0},
	}

	for _, step := range steps {
		if err := step.apply(ctx, run.ID); err != nil {
			t.Fatalf("%s failed: %v", step.name, err)
		}
		got, err := s.GetRun(ctx, run.ID)
		if err != nil {
			t.Fatalf("GetRun failed: %v", err)
		}
		if got.Status != step.wantStatus || got.TestFraction != step.wantFraction {
			t.Errorf("%s: got %v/%v, want %v/%v", step.name, got.Status, got.TestFraction, step.wantStatus, step.wantFraction)
		}
	}

	if err := s.Enable(ctx, "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestUpdateActiveRuns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := Filter{Experiment: "churn", Version: v1}

	oldActive := saveTestRun(t, s, RunSpec{Experiment: "churn", Version: v1})
	oldCanary := saveTestRun(t, s, RunSpec{Experiment: "churn", Version: v1})
	fresh := saveTestRun(t, s, RunSpec{Experiment: "churn", Version: v1})
	kept := saveTestRun(t, s, RunSpec{Experiment: "churn", Version: v1})
	if err := s.Enable(ctx, oldActive.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.Canary(ctx, oldCanary.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.Enable(ctx, kept.ID); err != nil {
		t.Fatal(err)
	}

	err := s.UpdateActiveRuns(ctx, map[string]float64{fresh.ID: 3, kept.ID: 1}, base)
	if err != nil {
		t.Fatalf("UpdateActiveRuns failed: %v", err)
	}

	want := map[string]struct {
		status   Status
		fraction float64
	}{
		oldActive.ID: {Disabled, 0},
		oldCanary.ID: {Disabled, 0},
		fresh.ID:     {Active, 0.75},
		kept.ID:      {Active, 0.25},
	}
	for id, w := range want {
		got, err := s.GetRun(ctx, id)
		if err != nil {
			t.Fatalf("GetRun failed: %v", err)
		}
		if got.Status != w.status || math.Abs(got.TestFraction-w.fraction) > 1e-12 {
			t.Errorf("run %s: got %v/%v, want %v/%v", id, got.Status, got.TestFraction, w.status, w.fraction)
		}
	}
}

func TestUpdateActiveRuns_UnknownRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	run := saveTestRun(t, s, RunSpec{Experiment: "churn", Version: v1})

	err := s.UpdateActiveRuns(ctx, map[string]float64{run.ID: 1, "ghost": 1}, Filter{Experiment: "churn", Version: v1})
	if !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}

	// Nothing changed.
	got, err := s.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != New {
		t.Errorf("run modified despite error: %v", got.Status)
	}
}

func TestChangeTestFractions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	f := Filter{Experiment: "churn", Version: v1}

	a := saveTestRun(t, s, RunSpec{Experiment: "churn", Version: v1})
	b := saveTestRun(t, s, RunSpec{Experiment: "churn", Version: v1})
	c := saveTestRun(t, s, RunSpec{Experiment: "churn", Version: v1})
	if err := s.Canary(ctx, b.ID); err != nil {
		t.Fatal(err)
	}

	if err := s.ChangeTestFractions(ctx, map[string]float64{a.ID: 1, b.ID: 1}, f); err != nil {
		t.Fatalf("ChangeTestFractions failed: %v", err)
	}

	gotA, _ := s.GetRun(ctx, a.ID)
	gotB, _ := s.GetRun(ctx, b.ID)
	gotC, _ := s.GetRun(ctx, c.ID)
	if gotA.Status != New || gotA.TestFraction != 0.5 {
		t.Errorf("run a: got %v/%v", gotA.Status, gotA.TestFraction)
	}
	if gotB.Status != Canary || gotB.TestFraction != 0.5 {
		t.Errorf("run b: got %v/%v", gotB.Status, gotB.TestFraction)
	}
	if gotC.Status != Disabled {
		t.Errorf("run c should be disabled, got %v", gotC.Status)
	}

	err := s.ChangeTestFractions(ctx, map[string]float64{"ghost": 1}, f)
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}
