package achievements

import (
	"context"
	"reflect"
	"testing"
)

type fakeAwardStore struct {
	earned map[string]bool

	// denied IDs simulate a lost race: the condition held but the store
	// refused the grant (cap filled or concurrent duplicate).
	denied map[string]bool

	awardCalls []string
}

func newFakeAwardStore(earned ...string) *fakeAwardStore {
	s := &fakeAwardStore{
		earned: make(map[string]bool),
		denied: make(map[string]bool),
	}
	for _, id := range earned {
		s.earned[id] = true
	}
	return s
}

func (s *fakeAwardStore) EarnedIDs(_ context.Context, _ string) (map[string]bool, error) {
	out := make(map[string]bool, len(s.earned))
	for id := range s.earned {
		out[id] = true
	}
	return out, nil
}

func (s *fakeAwardStore) Award(_ context.Context, _ string, achievementID string, _ int) (bool, error) {
	s.awardCalls = append(s.awardCalls, achievementID)
	if s.denied[achievementID] || s.earned[achievementID] {
		return false, nil
	}
	s.earned[achievementID] = true
	return true, nil
}

func awardedIDs(templates []Template) []string {
	ids := make([]string, 0, len(templates))
	for _, t := range templates {
		ids = append(ids, t.ID)
	}
	return ids
}

func alwaysContext() EvalContext {
	return EvalContext{
		XP:    1000000,
		Level: 100,
		EventTotal: func(string) (int64, error) {
			return 1000000, nil
		},
		CounterValue: func(string, string, string) (int64, error) {
			return 1000000, nil
		},
	}
}

func TestEvaluateUserAwards(t *testing.T) {
	store := newFakeAwardStore()
	engine := NewEngine(store)

	templates := map[string]Template{
		"xp":     {ID: "xp", Trigger: TriggerXPMilestone, Config: MilestoneConfig{Value: 500}},
		"unmet":  {ID: "unmet", Trigger: TriggerXPMilestone, Config: MilestoneConfig{Value: 2000000}},
		"manual": {ID: "manual", Trigger: TriggerManual, Config: manualConfig{}},
	}

	got, err := engine.EvaluateUser(context.Background(), "u1", templates, alwaysContext())
	if err != nil {
		t.Fatalf("EvaluateUser() error = %v", err)
	}
	want := []string{"xp"}
	if !reflect.DeepEqual(awardedIDs(got), want) {
		t.Errorf("EvaluateUser() awarded = %v, want %v", awardedIDs(got), want)
	}
}

func TestEvaluateUserSkipsEarned(t *testing.T) {
	store := newFakeAwardStore("xp")
	engine := NewEngine(store)

	templates := map[string]Template{
		"xp": {ID: "xp", Trigger: TriggerXPMilestone, Config: MilestoneConfig{Value: 500}},
	}

	got, err := engine.EvaluateUser(context.Background(), "u1", templates, alwaysContext())
	if err != nil {
		t.Fatalf("EvaluateUser() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("EvaluateUser() awarded = %v, want none", awardedIDs(got))
	}
	if len(store.awardCalls) != 0 {
		t.Errorf("Award called for already-earned template: %v", store.awardCalls)
	}
}

func TestEvaluateUserSeries(t *testing.T) {
	series := func(id string, order int) Template {
		return Template{
			ID:          id,
			Trigger:     TriggerXPMilestone,
			Config:      MilestoneConfig{Value: 500},
			SeriesID:    "chatter",
			SeriesOrder: order,
		}
	}
	templates := map[string]Template{
		"t1": series("t1", 1),
		"t2": series("t2", 2),
		"t3": series("t3", 3),
	}

	// All three conditions hold, and one pass unlocks the whole series in
	// order because each grant feeds the next gate check.
	store := newFakeAwardStore()
	engine := NewEngine(store)
	got, err := engine.EvaluateUser(context.Background(), "u1", templates, alwaysContext())
	if err != nil {
		t.Fatalf("EvaluateUser() error = %v", err)
	}
	want := []string{"t1", "t2", "t3"}
	if !reflect.DeepEqual(awardedIDs(got), want) {
		t.Errorf("EvaluateUser() awarded = %v, want %v", awardedIDs(got), want)
	}
}

func TestOrderedTemplateIDs(t *testing.T) {
	// IDs deliberately run against series order, and two series interleave:
	// the ordering must be the total order (series, tier, ID), never the
	// map's iteration order or a bare ID sort.
	templates := map[string]Template{
		"zeta":  {ID: "zeta", SeriesID: "a", SeriesOrder: 1},
		"alpha": {ID: "alpha", SeriesID: "a", SeriesOrder: 2},
		"mid":   {ID: "mid", SeriesID: "b", SeriesOrder: 1},
		"loner": {ID: "loner"},
		"other": {ID: "other"},
	}

	want := []string{"loner", "other", "zeta", "alpha", "mid"}
	for i := 0; i < 20; i++ {
		if got := orderedTemplateIDs(templates); !reflect.DeepEqual(got, want) {
			t.Fatalf("orderedTemplateIDs() = %v, want %v", got, want)
		}
	}
}

func TestEvaluateUserSeriesMissingPredecessor(t *testing.T) {
	templates := map[string]Template{
		"t2": {
			ID:          "t2",
			Trigger:     TriggerXPMilestone,
			Config:      MilestoneConfig{Value: 500},
			SeriesID:    "chatter",
			SeriesOrder: 2,
		},
	}

	store := newFakeAwardStore()
	engine := NewEngine(store)
	got, err := engine.EvaluateUser(context.Background(), "u1", templates, alwaysContext())
	if err != nil {
		t.Fatalf("EvaluateUser() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("EvaluateUser() awarded = %v, want none with missing predecessor", awardedIDs(got))
	}
}

func TestEvaluateUserLostRace(t *testing.T) {
	store := newFakeAwardStore()
	store.denied["limited"] = true
	engine := NewEngine(store)

	templates := map[string]Template{
		"limited": {
			ID:         "limited",
			Trigger:    TriggerXPMilestone,
			Config:     MilestoneConfig{Value: 500},
			MaxEarners: 100,
		},
	}

	got, err := engine.EvaluateUser(context.Background(), "u1", templates, alwaysContext())
	if err != nil {
		t.Fatalf("EvaluateUser() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("EvaluateUser() awarded = %v, want none when the store denies", awardedIDs(got))
	}
}

func TestEvaluateUserEvaluationErrorSkips(t *testing.T) {
	store := newFakeAwardStore()
	engine := NewEngine(store)

	ectx := alwaysContext()
	ectx.EventTotal = func(string) (int64, error) {
		return 0, context.DeadlineExceeded
	}

	templates := map[string]Template{
		"count": {ID: "count", Trigger: TriggerEventCount, Config: EventCountConfig{EventType: "message", Value: 1}},
		"xp":    {ID: "xp", Trigger: TriggerXPMilestone, Config: MilestoneConfig{Value: 500}},
	}

	got, err := engine.EvaluateUser(context.Background(), "u1", templates, ectx)
	if err != nil {
		t.Fatalf("EvaluateUser() error = %v", err)
	}
	want := []string{"xp"}
	if !reflect.DeepEqual(awardedIDs(got), want) {
		t.Errorf("EvaluateUser() awarded = %v, want %v", awardedIDs(got), want)
	}
}
