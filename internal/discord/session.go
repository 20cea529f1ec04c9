// Package discord connects the bot to the Discord gateway: it delivers notifications and direct messages,
// registers the slash commands and dispatches interactions to the command handlers.
package discord

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/collaby/collaby-bot/internal/commands"
	"github.com/collaby/collaby-bot/internal/helpers"
	"github.com/pkg/errors"
)

// Intents needed for commands, confirmations and the guild lifecycle hooks.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsMessageContent

// API is the part of the Discord REST client used to send messages and answer interactions.
type API interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Session is the bot connection. It implements router.Notifier and the direct messaging used by the OAuth callbacks.
type Session struct {
	mu             sync.RWMutex
	raw            *discordgo.Session
	api            API
	logger         *slog.Logger
	ctx            context.Context
	guildID        string
	removeCommands bool
	handlers       *commands.Handlers
	confirmer      *Confirmer
}

type Option func(*Session)

// New builds a session for a bot token. The gateway is only opened by Run.
func New(token string, opts ...Option) (*Session, error) {
	_inst := &Session{ctx: context.Background()}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	_inst.logger = _inst.logger.With("component", "discord")

	if _inst.api == nil {
		if token == "" {
			return nil, errors.New("discord token is required")
		}
		raw, err := discordgo.New("Bot " + token)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create discord session")
		}
		raw.Identify.Intents = Intents
		raw.LogLevel = discordgo.LogWarning
		routeLogs(_inst.logger)
		_inst.raw = raw
		_inst.api = raw
	}
	_inst.confirmer = NewConfirmer(_inst.api)
	return _inst, nil
}

// Confirmer returns the message based confirmer bound to this session.
func (s *Session) Confirmer() *Confirmer {
	return s.confirmer
}

// Run opens the gateway, registers the slash commands and serves interactions with h until ctx is done.
func (s *Session) Run(ctx context.Context, h *commands.Handlers) error {
	if s.raw == nil {
		return errors.New("discord session has no gateway")
	}
	s.mu.Lock()
	s.handlers = h
	s.ctx = ctx
	s.mu.Unlock()

	removers := []func(){
		s.raw.AddHandler(s.onInteraction),
		s.raw.AddHandler(s.onMessage),
		s.raw.AddHandler(s.onGuildDelete),
		s.raw.AddHandler(s.onGuildMemberRemove),
	}
	defer func() {
		for _, remove := range removers {
			remove()
		}
	}()

	if err := s.raw.Open(); err != nil {
		return errors.Wrap(err, "failed to open discord gateway")
	}
	defer func() {
		if err := s.raw.Close(); err != nil {
			s.logger.Warn("failed to close discord gateway", slog.Any("error", err))
		}
	}()

	appID := s.raw.State.User.ID
	registered, err := s.raw.ApplicationCommandBulkOverwrite(appID, s.guildID, Commands())
	if err != nil {
		return errors.Wrap(err, "failed to register slash commands")
	}
	s.logger.Info("discord gateway ready", slog.String("application", appID), slog.Int("commands", len(registered)))

	<-ctx.Done()

	if s.removeCommands {
		for _, cmd := range registered {
			if err = s.raw.ApplicationCommandDelete(appID, s.guildID, cmd.ID); err != nil {
				s.logger.Warn("failed to remove slash command", slog.String("command", cmd.Name), slog.Any("error", err))
			}
		}
	}
	return nil
}

func (s *Session) state() (context.Context, *commands.Handlers) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctx, s.handlers
}
