package handlers

import (
	"testing"

	"github.com/disgoorg/disgo/discord"
)

func TestExtractMessageMetadata(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		attachments int
		wantLength  int
		wantCode    bool
		wantLink    bool
		wantAttach  bool
		wantEmojis  int
	}{
		{
			name:       "Plain",
			content:    "hello world",
			wantLength: 11,
		},
		{
			name:       "CodeBlock",
			content:    "look:\n```go\nfmt.Println()\n```",
			wantLength: 29,
			wantCode:   true,
		},
		{
			name:     "Link",
			content:  "see https://example.com",
			wantLink: true, wantLength: 23,
		},
		{
			name:        "Attachment",
			content:     "",
			attachments: 2,
			wantAttach:  true,
		},
		{
			name:       "CustomEmojis",
			content:    "<:pog:123456> <a:dance:789>",
			wantLength: 27,
			wantEmojis: 2,
		},
		{
			name:       "UnicodeEmoji",
			content:    "nice 🎉🎉",
			wantLength: 7,
			wantEmojis: 2,
		},
		{
			name:       "MultibyteLengthIsRunes",
			content:    "héllo",
			wantLength: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractMessageMetadata(tt.content, tt.attachments)
			if got.ContentLength != tt.wantLength {
				t.Errorf("ContentLength = %d, want %d", got.ContentLength, tt.wantLength)
			}
			if got.HasCodeBlock != tt.wantCode {
				t.Errorf("HasCodeBlock = %v, want %v", got.HasCodeBlock, tt.wantCode)
			}
			if got.HasLink != tt.wantLink {
				t.Errorf("HasLink = %v, want %v", got.HasLink, tt.wantLink)
			}
			if got.HasAttachment != tt.wantAttach {
				t.Errorf("HasAttachment = %v, want %v", got.HasAttachment, tt.wantAttach)
			}
			if got.EmojiCount != tt.wantEmojis {
				t.Errorf("EmojiCount = %d, want %d", got.EmojiCount, tt.wantEmojis)
			}
		})
	}
}

func TestChannelTypeLabel(t *testing.T) {
	tests := []struct {
		in   discord.ChannelType
		want string
	}{
		{discord.ChannelTypeGuildText, "text"},
		{discord.ChannelTypeGuildVoice, "voice"},
		{discord.ChannelTypeGuildForum, "forum"},
		{discord.ChannelTypeGuildPublicThread, "thread"},
		{discord.ChannelTypeDM, ""},
	}
	for _, tt := range tests {
		if got := channelTypeLabel(tt.in); got != tt.want {
			t.Errorf("channelTypeLabel(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestVoiceTracker(t *testing.T) {
	vt := NewVoiceTracker()

	vt.Join("u1", "alice", "voice-1")
	vt.Join("u2", "bob", "voice-1")
	if vt.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", vt.Count())
	}

	// Moving channels replaces the entry, not duplicates it.
	vt.Join("u1", "alice", "voice-2")
	if vt.Count() != 2 {
		t.Errorf("Count() = %d after move, want 2", vt.Count())
	}

	vt.Leave("u2")
	present := vt.Present()
	if len(present) != 1 || present[0].UserID != "u1" || present[0].ChannelID != "voice-2" {
		t.Errorf("Present() = %+v, want only u1 in voice-2", present)
	}

	vt.Leave("missing")
	if vt.Count() != 1 {
		t.Errorf("Count() = %d, want 1", vt.Count())
	}
}
