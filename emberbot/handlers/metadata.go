package handlers

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/disgoorg/disgo/discord"

	"github.com/emberworks/emberbot/emberbot/rewards"
)

var customEmojiPattern = regexp.MustCompile(`<a?:\w+:\d+>`)

// extractMessageMetadata reduces message content to scoring attributes.
// The content itself is dropped here; only these attributes travel further.
func extractMessageMetadata(content string, attachmentCount int) rewards.EventMetadata {
	return rewards.EventMetadata{
		ContentLength: len([]rune(content)),
		HasCodeBlock:  strings.Contains(content, "```"),
		HasLink:       strings.Contains(content, "http://") || strings.Contains(content, "https://"),
		HasAttachment: attachmentCount > 0,
		EmojiCount:    countEmojis(content),
	}
}

func countEmojis(content string) int {
	count := len(customEmojiPattern.FindAllString(content, -1))
	for _, r := range content {
		if unicode.Is(unicode.So, r) || (r >= 0x1F000 && r <= 0x1FAFF) {
			count++
		}
	}
	return count
}

// channelTypeLabel maps a Discord channel type to the label multiplier rules
// target. Unknown types return "" so counters fall back to the channel ID.
func channelTypeLabel(t discord.ChannelType) string {
	switch t {
	case discord.ChannelTypeGuildText:
		return "text"
	case discord.ChannelTypeGuildVoice:
		return "voice"
	case discord.ChannelTypeGuildStageVoice:
		return "stage"
	case discord.ChannelTypeGuildNews:
		return "news"
	case discord.ChannelTypeGuildForum:
		return "forum"
	case discord.ChannelTypeGuildPublicThread, discord.ChannelTypeGuildPrivateThread, discord.ChannelTypeGuildNewsThread:
		return "thread"
	default:
		return ""
	}
}
