package commands

import (
	"github.com/disgoorg/disgo/discord"
)

var Commands = []discord.ApplicationCommandCreate{
	discord.SlashCommandCreate{
		Name:        "award",
		Description: "Moderator tools for manual rewards",
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionSubCommand{
				Name:        "xp",
				Description: "Grant a user a one-off XP award",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionUser{
						Name:        "user",
						Description: "Recipient",
						Required:    true,
					},
					discord.ApplicationCommandOptionInt{
						Name:        "amount",
						Description: "XP to grant",
						Required:    true,
					},
					discord.ApplicationCommandOptionString{
						Name:        "reason",
						Description: "Why this award is being granted",
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "achievement",
				Description: "Grant a manual achievement",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionUser{
						Name:        "user",
						Description: "Recipient",
						Required:    true,
					},
					discord.ApplicationCommandOptionString{
						Name:        "achievement",
						Description: "Achievement ID",
						Required:    true,
					},
				},
			},
		},
	},
	discord.SlashCommandCreate{
		Name:        "profile",
		Description: "Show a member's activity profile",
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionUser{
				Name:        "user",
				Description: "Member to look up, defaults to you",
			},
		},
	},
}
