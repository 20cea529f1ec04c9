package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/collaby/collaby-bot/internal/commands"
)

// Invocation is a parsed slash command: its path ("gh add", "jira issue get") and string options.
type Invocation struct {
	Path    string
	Options map[string]string
}

// ParseInvocation flattens sub-command groups and sub-commands into a path.
func ParseInvocation(data discordgo.ApplicationCommandInteractionData) Invocation {
	inv := Invocation{Path: data.Name, Options: map[string]string{}}
	opts := data.Options
	for len(opts) > 0 {
		first := opts[0]
		if first.Type != discordgo.ApplicationCommandOptionSubCommand && first.Type != discordgo.ApplicationCommandOptionSubCommandGroup {
			break
		}
		inv.Path += " " + first.Name
		opts = first.Options
	}
	for _, o := range opts {
		if o.Value != nil {
			inv.Options[o.Name] = fmt.Sprint(o.Value)
		}
	}
	return inv
}

// personalPaths may be used outside of a guild and answer with an ephemeral response.
var personalPaths = map[string]bool{
	"gh auth":   true,
	"gh help":   true,
	"jira auth": true,
}

// Dispatch runs the handler matching inv.
func Dispatch(ctx context.Context, h *commands.Handlers, scope commands.Scope, inv Invocation) commands.Reply {
	if scope.Server == "" && !personalPaths[inv.Path] {
		return commands.Reply{Title: "Server Only", Description: "This command can only be used in a server.", Severity: commands.Info}
	}
	o := inv.Options
	switch inv.Path {
	case "gh add":
		return h.RepoAdd(ctx, scope, o[optRepository])
	case "gh remove":
		return h.RepoRemove(ctx, scope, o[optRepository])
	case "gh subscribe":
		return h.Subscribe(ctx, scope, o[optRepository], o[optKind], o[optBranch])
	case "gh unsubscribe":
		return h.Unsubscribe(ctx, scope, o[optRepository], o[optKind], o[optBranch])
	case "gh list":
		return h.ListRepositories(ctx, scope)
	case "gh open-pull-requests":
		return h.OpenPullRequests(ctx, scope, o[optRepository])
	case "gh auth":
		return h.GitHubAuth(ctx, scope)
	case "gh help":
		return h.Help(ctx, scope)
	case "jira auth":
		return h.JiraAuth(ctx, scope)
	case "jira instance set":
		return h.InstanceSet(ctx, scope, o[optName])
	case "jira instance get":
		return h.InstanceGet(ctx, scope)
	case "jira instance remove":
		return h.InstanceRemove(ctx, scope)
	case "jira issue get":
		return h.IssueGet(ctx, scope, o[optIssue])
	case "jira issue assign":
		return h.IssueAssign(ctx, scope, o[optIssue], o[optUser])
	case "jira issue unassign":
		return h.IssueUnassign(ctx, scope, o[optIssue])
	case "jira sprint":
		return h.Sprint(ctx, scope, o[optProject])
	default:
		return commands.Reply{Title: "Unknown Command", Description: "Use /gh help to list the commands.", Severity: commands.Info}
	}
}

// ScopeOf extracts where and by whom an interaction was invoked.
func ScopeOf(i *discordgo.Interaction) commands.Scope {
	scope := commands.Scope{Server: i.GuildID, Channel: i.ChannelID}
	user := i.User
	if i.Member != nil && i.Member.User != nil {
		user = i.Member.User
	}
	if user != nil {
		scope.User = user.ID
		scope.UserName = user.Username
	}
	return scope
}

func (s *Session) onInteraction(_ *discordgo.Session, ic *discordgo.InteractionCreate) {
	if ic.Type != discordgo.InteractionApplicationCommand {
		return
	}
	ctx, h := s.state()
	if h == nil {
		return
	}
	inv := ParseInvocation(ic.ApplicationCommandData())
	scope := ScopeOf(ic.Interaction)
	logger := s.logger.With(slog.String("command", inv.Path), slog.String("server", scope.Server), slog.String("user", scope.User))

	deferred := &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredChannelMessageWithSource}
	if personalPaths[inv.Path] {
		deferred.Data = &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral}
	}
	if err := s.api.InteractionRespond(ic.Interaction, deferred); err != nil {
		logger.Error("failed to acknowledge interaction", slog.Any("error", err))
		return
	}

	reply := Dispatch(ctx, h, scope, inv)
	logger.Debug("command handled", slog.String("title", reply.Title))

	embeds := []*discordgo.MessageEmbed{Embed(reply)}
	if _, err := s.api.InteractionResponseEdit(ic.Interaction, &discordgo.WebhookEdit{Embeds: &embeds}); err != nil {
		logger.Error("failed to answer interaction", slog.Any("error", err))
	}
}
