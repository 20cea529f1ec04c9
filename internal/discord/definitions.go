package discord

import "github.com/bwmarrin/discordgo"

var kindChoices = []*discordgo.ApplicationCommandOptionChoice{
	{Name: "pull-requests", Value: "pull-requests"},
	{Name: "issues", Value: "issues"},
	{Name: "commits", Value: "commits"},
}

func subCommand(name, description string, options ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        name,
		Description: description,
		Options:     options,
	}
}

func group(name, description string, subs ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
		Name:        name,
		Description: description,
		Options:     subs,
	}
}

func text(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        name,
		Description: description,
		Required:    required,
	}
}

func repository() *discordgo.ApplicationCommandOption {
	return text(optRepository, "Repository as owner/name", true)
}

func kind() *discordgo.ApplicationCommandOption {
	o := text(optKind, "Events to receive", true)
	o.Choices = kindChoices
	return o
}

// Option names shared by the definitions and the dispatcher.
const (
	optRepository = "repository"
	optKind       = "events"
	optBranch     = "branch"
	optName       = "name"
	optIssue      = "issue"
	optUser       = "user"
	optProject    = "project"
)

// Commands returns the slash command definitions.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "gh",
			Description: "GitHub notifications",
			Options: []*discordgo.ApplicationCommandOption{
				subCommand("add", "Track a repository", repository()),
				subCommand("remove", "Stop tracking a repository", repository()),
				subCommand("subscribe", "Post repository events to this channel",
					repository(), kind(), text(optBranch, "Branch for commit events, every branch when omitted", false)),
				subCommand("unsubscribe", "Stop posting repository events to this channel",
					repository(), kind(), text(optBranch, "Branch for commit events, every branch when omitted", false)),
				subCommand("list", "List tracked repositories"),
				subCommand("open-pull-requests", "List open pull requests", repository()),
				subCommand("auth", "Authorize CollabyBot on GitHub"),
				subCommand("help", "Show the available commands"),
			},
		},
		{
			Name:        "jira",
			Description: "Jira helpers",
			Options: []*discordgo.ApplicationCommandOption{
				subCommand("auth", "Authorize CollabyBot on Jira"),
				group("instance", "Jira instance linked to this server",
					subCommand("set", "Link a Jira instance", text(optName, "Instance name", true)),
					subCommand("get", "Show the linked Jira instance"),
					subCommand("remove", "Unlink the Jira instance"),
				),
				group("issue", "Jira issues",
					subCommand("get", "Show an issue", text(optIssue, "Issue key", true)),
					subCommand("assign", "Assign an issue",
						text(optIssue, "Issue key", true), text(optUser, "Account id or display name, lists users when omitted", false)),
					subCommand("unassign", "Unassign an issue", text(optIssue, "Issue key", true)),
				),
				subCommand("sprint", "Summarize the active sprint", text(optProject, "Project key, lists projects when omitted", false)),
			},
		},
	}
}
