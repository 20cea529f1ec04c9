package discord

import (
	"log/slog"

	"github.com/collaby/collaby-bot/internal/commands"
)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithGuild registers the slash commands on one guild instead of globally.
func WithGuild(guildID string) Option {
	return func(s *Session) {
		s.guildID = guildID
	}
}

// WithRemoveCommands deletes the registered slash commands when Run returns.
func WithRemoveCommands(remove bool) Option {
	return func(s *Session) {
		s.removeCommands = remove
	}
}

// WithAPI replaces the REST client. A session built this way has no gateway.
func WithAPI(api API) Option {
	return func(s *Session) {
		s.api = api
	}
}

// WithHandlers sets the command handlers used outside of Run.
func WithHandlers(h *commands.Handlers) Option {
	return func(s *Session) {
		s.handlers = h
	}
}
