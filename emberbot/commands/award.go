package commands

import (
	"context"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/emberworks/emberbot/emberbot"
	"github.com/emberworks/emberbot/emberbot/rewards"
)

const commandTimeout = 10 * time.Second

// AwardXPHandler grants a one-off XP award. The grant flows through the
// normal pipeline as a manual_award event so it lands in the event lake and
// still trips milestone achievements, but skips quality and anti-gaming
// scoring.
func AwardXPHandler(b *emberbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		data := e.SlashCommandInteractionData()
		target, ok := data.OptUser("user")
		if !ok {
			return e.CreateMessage(discord.NewMessageCreateBuilder().
				SetContent("No user given.").
				SetEphemeral(true).
				Build())
		}
		amount := int64(data.Int("amount"))
		if amount <= 0 {
			return e.CreateMessage(discord.NewMessageCreateBuilder().
				SetContent("Amount must be positive.").
				SetEphemeral(true).
				Build())
		}

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		result, err := b.Pipeline.Process(ctx, rewards.Event{
			Type:      rewards.EventManualAward,
			ActorID:   target.ID.String(),
			ActorName: target.Username,
			TargetID:  e.User().ID.String(),
			Timestamp: time.Now(),
			SourceEventID: rewards.SourceEventID(rewards.EventManualAward,
				e.ID().String()),
			Metadata: rewards.EventMetadata{Amount: amount},
		})
		if err != nil {
			return e.CreateMessage(discord.NewMessageCreateBuilder().
				SetContentf("Award failed: %s", err).
				SetEphemeral(true).
				Build())
		}

		msg := discord.NewMessageCreateBuilder().
			SetContentf("Granted %d XP to <@%s>.", result.PrimaryDelta, target.ID)
		if reason := data.String("reason"); reason != "" {
			msg.SetContentf("Granted %d XP to <@%s>: %s", result.PrimaryDelta, target.ID, reason)
		}
		return e.CreateMessage(msg.Build())
	}
}

// AwardAchievementHandler grants a manual-trigger achievement. The store
// enforces uniqueness and the earner cap, so repeating the command is safe.
func AwardAchievementHandler(b *emberbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		data := e.SlashCommandInteractionData()
		target, ok := data.OptUser("user")
		if !ok {
			return e.CreateMessage(discord.NewMessageCreateBuilder().
				SetContent("No user given.").
				SetEphemeral(true).
				Build())
		}
		achievementID := data.String("achievement")

		snap := b.Cache.Snapshot()
		tpl, found := snap.Achievements[achievementID]
		if !found {
			return e.CreateMessage(discord.NewMessageCreateBuilder().
				SetContentf("Unknown achievement `%s`.", achievementID).
				SetEphemeral(true).
				Build())
		}

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		awarded, err := b.AchievementRepo.Award(ctx, target.ID.String(), tpl.ID, tpl.MaxEarners)
		if err != nil {
			return e.CreateMessage(discord.NewMessageCreateBuilder().
				SetContentf("Award failed: %s", err).
				SetEphemeral(true).
				Build())
		}
		if !awarded {
			return e.CreateMessage(discord.NewMessageCreateBuilder().
				SetContentf("<@%s> already has **%s**, or its earner cap is reached.", target.ID, tpl.Name).
				SetEphemeral(true).
				Build())
		}

		if tpl.RewardXP > 0 || tpl.RewardGold > 0 {
			if _, err := b.UserRepo.ApplyReward(ctx, target.ID.String(), target.Username, tpl.RewardXP, tpl.RewardGold); err != nil {
				return e.CreateMessage(discord.NewMessageCreateBuilder().
					SetContentf("Achievement granted but reward payout failed: %s", err).
					SetEphemeral(true).
					Build())
			}
		}
		if tpl.RewardStars > 0 {
			if err := b.UserRepo.ApplyStars(ctx, target.ID.String(), tpl.RewardStars); err != nil {
				return e.CreateMessage(discord.NewMessageCreateBuilder().
					SetContentf("Achievement granted but star payout failed: %s", err).
					SetEphemeral(true).
					Build())
			}
		}

		return e.CreateMessage(discord.NewMessageCreateBuilder().
			SetContentf("Awarded **%s** to <@%s>.", tpl.Name, target.ID).
			Build())
	}
}
