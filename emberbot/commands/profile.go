package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/emberworks/emberbot/emberbot"
	"github.com/emberworks/emberbot/emberbot/database/repositories"
	"github.com/emberworks/emberbot/emberbot/rewards"
)

// ProfileHandler shows a member's XP, level, economy balances and earned
// achievements.
func ProfileHandler(b *emberbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		data := e.SlashCommandInteractionData()
		target, ok := data.OptUser("user")
		if !ok {
			target = e.User()
		}

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		user, err := b.UserRepo.GetByDiscordID(ctx, target.ID.String())
		if err != nil {
			if repositories.IsNotFound(err) {
				return e.CreateMessage(discord.NewMessageCreateBuilder().
					SetContentf("<@%s> has no activity yet.", target.ID).
					SetEphemeral(true).
					Build())
			}
			return e.CreateMessage(discord.NewMessageCreateBuilder().
				SetContentf("Lookup failed: %s", err).
				SetEphemeral(true).
				Build())
		}

		earned, err := b.AchievementRepo.EarnedIDs(ctx, target.ID.String())
		if err != nil {
			return e.CreateMessage(discord.NewMessageCreateBuilder().
				SetContentf("Lookup failed: %s", err).
				SetEphemeral(true).
				Build())
		}

		next := rewards.NextLevelXP(user.Level)
		embed := discord.NewEmbedBuilder().
			SetTitlef("%s's Profile", target.Username).
			AddField("Level", fmt.Sprintf("%d (%d / %d XP)", user.Level, user.XP, next), true).
			AddField("Gold", fmt.Sprintf("%d", user.Gold), true).
			AddField("Stars", fmt.Sprintf("%d this season, %d lifetime", user.SeasonStars, user.LifetimeStars), true).
			AddField("Achievements", fmt.Sprintf("%d earned", len(earned)), true).
			SetTimestamp(time.Now()).
			Build()

		return e.CreateMessage(discord.NewMessageCreateBuilder().
			SetEmbeds(embed).
			Build())
	}
}
