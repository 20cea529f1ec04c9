package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// GuildMembers returns the ids of the cached members of a guild.
func GuildMembers(g *discordgo.Guild) []string {
	if g == nil {
		return nil
	}
	ids := make([]string, 0, len(g.Members))
	for _, m := range g.Members {
		if m.User != nil {
			ids = append(ids, m.User.ID)
		}
	}
	return ids
}

func (s *Session) onGuildDelete(_ *discordgo.Session, e *discordgo.GuildDelete) {
	// An unavailable guild is an outage, not a removal.
	if e.Guild == nil || e.Unavailable {
		return
	}
	ctx, h := s.state()
	if h == nil {
		return
	}
	h.ServerRemoved(ctx, e.ID, GuildMembers(e.BeforeDelete))
}

func (s *Session) onGuildMemberRemove(_ *discordgo.Session, e *discordgo.GuildMemberRemove) {
	if e.Member == nil || e.User == nil {
		return
	}
	ctx, h := s.state()
	if h == nil {
		return
	}
	h.MemberRemoved(ctx, e.GuildID, e.User.ID)
}

// routeLogs sends the discordgo library logs to logger.
func routeLogs(logger *slog.Logger) {
	discordgo.Logger = func(msgL, _ int, format string, a ...any) {
		logger.Log(context.Background(), logLevel(msgL), fmt.Sprintf(format, a...))
	}
}

func logLevel(msgL int) slog.Level {
	switch msgL {
	case discordgo.LogError:
		return slog.LevelError
	case discordgo.LogWarning:
		return slog.LevelWarn
	case discordgo.LogInformational:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
