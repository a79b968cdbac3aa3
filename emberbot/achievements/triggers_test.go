package achievements

import (
	"encoding/json"
	"testing"

	"github.com/emberworks/emberbot/emberbot/database/models"
)

func templateRow(id, triggerType, config string) *models.AchievementTemplate {
	return &models.AchievementTemplate{
		ID:            id,
		Name:          id,
		TriggerType:   triggerType,
		TriggerConfig: json.RawMessage(config),
	}
}

func TestParseTemplate(t *testing.T) {
	tests := []struct {
		name    string
		row     *models.AchievementTemplate
		wantErr bool
	}{
		{
			name: "StatThreshold",
			row:  templateRow("a", "stat_threshold", `{"event_type":"message","value":100}`),
		},
		{
			name: "StatThresholdWithPeriod",
			row:  templateRow("a", "stat_threshold", `{"event_type":"message","channel_group":"forum","period":"daily","value":10}`),
		},
		{
			name:    "StatThresholdBadPeriod",
			row:     templateRow("a", "stat_threshold", `{"event_type":"message","period":"weekly","value":10}`),
			wantErr: true,
		},
		{
			// A bucketed period without a group would query a counter row
			// that can never exist; it must be rejected up front.
			name:    "StatThresholdBucketedPeriodNeedsGroup",
			row:     templateRow("a", "stat_threshold", `{"event_type":"message","period":"seasonal","value":10}`),
			wantErr: true,
		},
		{
			name:    "StatThresholdMissingEventType",
			row:     templateRow("a", "stat_threshold", `{"value":100}`),
			wantErr: true,
		},
		{
			name: "XPMilestone",
			row:  templateRow("a", "xp_milestone", `{"value":50000}`),
		},
		{
			name:    "MilestoneZeroValue",
			row:     templateRow("a", "xp_milestone", `{"value":0}`),
			wantErr: true,
		},
		{
			name: "LevelReached",
			row:  templateRow("a", "level_reached", `{"level":10}`),
		},
		{
			name: "LevelInterval",
			row:  templateRow("a", "level_interval", `{"interval":25}`),
		},
		{
			name:    "LevelIntervalNegative",
			row:     templateRow("a", "level_interval", `{"interval":-5}`),
			wantErr: true,
		},
		{
			name: "FirstEventDefaultsValue",
			row:  templateRow("a", "first_event", `{"event_type":"thread_create"}`),
		},
		{
			name: "Manual",
			row:  templateRow("a", "manual", `{}`),
		},
		{
			name: "ManualEmptyConfig",
			row:  templateRow("a", "manual", ``),
		},
		{
			name:    "UnknownTrigger",
			row:     templateRow("a", "on_full_moon", `{}`),
			wantErr: true,
		},
		{
			name:    "MalformedJSON",
			row:     templateRow("a", "event_count", `{"event_type":`),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTemplate(tt.row)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTemplate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got.Config == nil {
				t.Errorf("ParseTemplate() returned nil config")
			}
		})
	}
}

func TestParseTemplateFirstEventValue(t *testing.T) {
	got, err := ParseTemplate(templateRow("a", "first_event", `{"event_type":"message"}`))
	if err != nil {
		t.Fatalf("ParseTemplate() error = %v", err)
	}
	if cfg := got.Config.(EventCountConfig); cfg.Value != 1 {
		t.Errorf("first_event Value = %d, want 1", cfg.Value)
	}
}

func TestEvaluate(t *testing.T) {
	ectx := EvalContext{
		XP:            50000,
		Level:         25,
		LifetimeStars: 3,
		CounterValue: func(eventType, channelGroup, period string) (int64, error) {
			return 7, nil
		},
		EventTotal: func(eventType string) (int64, error) {
			if eventType == "message" {
				return 150, nil
			}
			return 0, nil
		},
	}

	tests := []struct {
		name     string
		template Template
		want     bool
	}{
		{
			name:     "XPMilestoneMet",
			template: Template{Trigger: TriggerXPMilestone, Config: MilestoneConfig{Value: 50000}},
			want:     true,
		},
		{
			name:     "XPMilestoneUnmet",
			template: Template{Trigger: TriggerXPMilestone, Config: MilestoneConfig{Value: 50001}},
			want:     false,
		},
		{
			name:     "StarMilestone",
			template: Template{Trigger: TriggerStarMilestone, Config: MilestoneConfig{Value: 3}},
			want:     true,
		},
		{
			name:     "LevelReachedExact",
			template: Template{Trigger: TriggerLevelReached, Config: LevelReachedConfig{Level: 25}},
			want:     true,
		},
		{
			name:     "LevelReachedPassed",
			template: Template{Trigger: TriggerLevelReached, Config: LevelReachedConfig{Level: 20}},
			want:     false,
		},
		{
			name:     "LevelIntervalMultiple",
			template: Template{Trigger: TriggerLevelInterval, Config: LevelIntervalConfig{Interval: 5}},
			want:     true,
		},
		{
			name:     "LevelIntervalNonMultiple",
			template: Template{Trigger: TriggerLevelInterval, Config: LevelIntervalConfig{Interval: 4}},
			want:     false,
		},
		{
			name:     "EventCountMet",
			template: Template{Trigger: TriggerEventCount, Config: EventCountConfig{EventType: "message", Value: 100}},
			want:     true,
		},
		{
			name:     "FirstEventUnmet",
			template: Template{Trigger: TriggerFirstEvent, Config: EventCountConfig{EventType: "voice_tick", Value: 1}},
			want:     false,
		},
		{
			name:     "StatThresholdUsesCounter",
			template: Template{Trigger: TriggerStatThreshold, Config: StatThresholdConfig{EventType: "message", ChannelGroup: "forum", Value: 5}},
			want:     true,
		},
		{
			name:     "ManualNeverAuto",
			template: Template{Trigger: TriggerManual, Config: manualConfig{}},
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(ectx, tt.template)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}
