package configcache

import (
	"testing"
	"time"

	"github.com/emberworks/emberbot/emberbot/database/models"
)

func TestResolveMultiplier(t *testing.T) {
	snap := &Snapshot{
		Multipliers: map[MultiplierKey]MultiplierPair{
			{Scope: models.MultiplierScopeChannel, Target: "c1", EventType: "message"}:                       {XP: 3, Gold: 3},
			{Scope: models.MultiplierScopeChannel, Target: "c1", EventType: models.WildcardEventType}:        {XP: 2.5, Gold: 2.5},
			{Scope: models.MultiplierScopeChannelType, Target: "forum", EventType: "message"}:                {XP: 2, Gold: 2},
			{Scope: models.MultiplierScopeChannelType, Target: "forum", EventType: models.WildcardEventType}: {XP: 1.5, Gold: 1.5},
		},
	}

	tests := []struct {
		name        string
		channelID   string
		channelType string
		eventType   string
		want        float64
	}{
		{
			name:      "ChannelAndEventTypeWins",
			channelID: "c1", channelType: "forum", eventType: "message",
			want: 3,
		},
		{
			name:      "ChannelWildcardBeatsTypeRules",
			channelID: "c1", channelType: "forum", eventType: "thread_create",
			want: 2.5,
		},
		{
			name:      "ChannelTypeExactEvent",
			channelID: "c2", channelType: "forum", eventType: "message",
			want: 2,
		},
		{
			name:      "ChannelTypeWildcard",
			channelID: "c2", channelType: "forum", eventType: "thread_create",
			want: 1.5,
		},
		{
			name:      "SystemDefault",
			channelID: "c2", channelType: "text", eventType: "message",
			want: 1,
		},
		{
			name:      "EmptyChannelTypeFallsThrough",
			channelID: "c2", channelType: "", eventType: "message",
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := snap.ResolveMultiplier(tt.channelID, tt.channelType, tt.eventType)
			if got.XP != tt.want {
				t.Errorf("ResolveMultiplier() XP = %v, want %v", got.XP, tt.want)
			}
		})
	}
}

func TestSettingHelpers(t *testing.T) {
	snap := &Snapshot{Settings: map[string]string{
		"str":     "hello",
		"num":     "42",
		"float":   "2.5",
		"seconds": "90",
		"garbage": "not-a-number",
	}}

	if got := snap.Setting("str", "x"); got != "hello" {
		t.Errorf("Setting() = %q, want %q", got, "hello")
	}
	if got := snap.Setting("missing", "x"); got != "x" {
		t.Errorf("Setting() = %q, want default", got)
	}
	if got := snap.SettingInt64("num", 0); got != 42 {
		t.Errorf("SettingInt64() = %d, want 42", got)
	}
	if got := snap.SettingInt64("garbage", 7); got != 7 {
		t.Errorf("SettingInt64() = %d, want default on parse failure", got)
	}
	if got := snap.SettingFloat("float", 0); got != 2.5 {
		t.Errorf("SettingFloat() = %v, want 2.5", got)
	}
	if got := snap.SettingDuration("seconds", time.Second); got != 90*time.Second {
		t.Errorf("SettingDuration() = %v, want 90s", got)
	}
	if got := snap.SettingDuration("missing", time.Second); got != time.Second {
		t.Errorf("SettingDuration() = %v, want default", got)
	}
}
