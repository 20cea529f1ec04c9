package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/collaby/collaby-bot/internal/commands"
	"github.com/collaby/collaby-bot/internal/helpers"
	"github.com/collaby/collaby-bot/internal/router"
	"github.com/pkg/errors"
)

// Embed limits enforced by Discord.
const (
	titleLimit       = 256
	descriptionLimit = 4096
	fieldNameLimit   = 256
	fieldValueLimit  = 1024
)

// Notify posts a notification embed to a channel.
func (s *Session) Notify(ctx context.Context, channelID string, n router.Notification) error {
	embed := &discordgo.MessageEmbed{
		Title:       helpers.Truncate(n.Title, titleLimit),
		Description: helpers.Truncate(n.Body, descriptionLimit),
		URL:         n.URL,
		Color:       n.Color,
	}
	if _, err := s.api.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx)); err != nil {
		return errors.Wrapf(err, "failed to notify channel %s", channelID)
	}
	return nil
}

// DirectMessage opens a private channel with the user and posts an informational embed there.
func (s *Session) DirectMessage(ctx context.Context, userID, title, body string) error {
	ch, err := s.api.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return errors.Wrapf(err, "failed to open direct channel with %s", userID)
	}
	embed := &discordgo.MessageEmbed{
		Title:       helpers.Truncate(title, titleLimit),
		Description: helpers.Truncate(body, descriptionLimit),
		Color:       commands.Info.Color(),
	}
	if _, err = s.api.ChannelMessageSendEmbed(ch.ID, embed, discordgo.WithContext(ctx)); err != nil {
		return errors.Wrapf(err, "failed to message %s", userID)
	}
	return nil
}

// Embed renders a command reply.
func Embed(r commands.Reply) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       helpers.Truncate(r.Title, titleLimit),
		Description: helpers.Truncate(r.Description, descriptionLimit),
		Color:       r.Severity.Color(),
	}
	for _, f := range r.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   helpers.Truncate(helpers.Coalesce(f.Name, "\u200b"), fieldNameLimit),
			Value:  helpers.Truncate(helpers.Coalesce(f.Value, "\u200b"), fieldValueLimit),
			Inline: f.Inline,
		})
	}
	return embed
}
