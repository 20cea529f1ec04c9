package discord

import (
	"context"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/collaby/collaby-bot/internal/commands"
	"github.com/pkg/errors"
)

// ErrConfirmationPending is returned when the user already has an unanswered question in the channel.
var ErrConfirmationPending = errors.New("confirmation already pending")

type messageSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type waiterKey struct {
	channel string
	user    string
}

// Confirmer asks yes/no questions in the invoking channel and takes the next message of the same user as the answer.
type Confirmer struct {
	mu      sync.Mutex
	sender  messageSender
	waiters map[waiterKey]chan string
}

func NewConfirmer(sender messageSender) *Confirmer {
	return &Confirmer{sender: sender, waiters: make(map[waiterKey]chan string)}
}

// Confirm posts prompt and waits for the answer until ctx is done.
func (c *Confirmer) Confirm(ctx context.Context, scope commands.Scope, prompt string) (bool, error) {
	key := waiterKey{channel: scope.Channel, user: scope.User}
	answer := make(chan string, 1)

	c.mu.Lock()
	if _, busy := c.waiters[key]; busy {
		c.mu.Unlock()
		return false, ErrConfirmationPending
	}
	c.waiters[key] = answer
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.waiters, key)
		c.mu.Unlock()
	}()

	mention := "<@" + scope.User + "> " + prompt
	if _, err := c.sender.ChannelMessageSend(scope.Channel, mention, discordgo.WithContext(ctx)); err != nil {
		return false, errors.Wrap(err, "failed to send confirmation prompt")
	}

	select {
	case text := <-answer:
		return isYes(text), nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Deliver hands a message to the question pending for its channel and author. It reports whether the message
// was consumed as an answer.
func (c *Confirmer) Deliver(channelID, userID, content string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.waiters[waiterKey{channel: channelID, user: userID}]
	if !ok {
		return false
	}
	select {
	case ch <- content:
		return true
	default:
		return false
	}
}

func (s *Session) onMessage(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	s.confirmer.Deliver(m.ChannelID, m.Author.ID, m.Content)
}

func isYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
