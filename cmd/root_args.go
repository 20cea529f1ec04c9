package cmd

import (
	"time"

	"github.com/collaby/collaby-bot/internal/config"
	"github.com/collaby/collaby-bot/internal/helpers"
)

var envMapString = map[*string]boundEnvVar[string]{
	&config.Global.Mode: {
		Name:        "mode",
		Description: "The application runtime mode. Possible values are 'service', 'lambda-http' and 'lambda-event'",
		Short:       helpers.Ptr("m"),
	},
	&config.Global.PublicURL: {
		Name:        "public-url",
		Description: "The externally reachable base URL used to build webhook and OAuth redirect URLs",
	},
	&config.Global.SecretsMode: {
		Name:        "secrets-mode",
		Description: "Where secrets are read from. Supported values are 'env' and 'ssm'",
		Short:       helpers.Ptr("A"),
	},
	&config.Global.SSMKey: {
		Name:        "secrets-ssm-key",
		Description: "The SSM parameter holding the JSON secrets document",
	},
	&config.Global.S3.Upload.BucketName: {
		Name:        "webhook-archive-s3-bucket",
		Description: "The S3 bucket to use when archiving webhook deliveries",
		Env:         helpers.Ptr("WEBHOOK_ARCHIVE_S3_BUCKET"),
	},
	&config.Discord.Token: {
		Name:        "discord-token",
		Description: "The bot token used to connect to Discord",
		Env:         helpers.Ptr("DISCORD_TOKEN"),
	},
	&config.Discord.GuildID: {
		Name:        "discord-guild-id",
		Description: "Register slash commands on this guild only. If not specified, commands are registered globally",
	},
	&config.GitHub.ClientID: {
		Name:        "github-client-id",
		Description: "The OAuth client id of the GitHub app",
	},
	&config.GitHub.ClientSecret: {
		Name:        "github-client-secret",
		Description: "The OAuth client secret of the GitHub app",
	},
	&config.GitHub.WebhookSecret: {
		Name:        "github-webhook-secret",
		Description: "The secret to use when validating incoming GitHub webhook payloads. If not specified, no validation is performed",
	},
	&config.GitHub.CallbackPath: {
		Name:        "github-callback-path",
		Description: "The path of the GitHub OAuth callback",
	},
	&config.Jira.ClientID: {
		Name:        "jira-client-id",
		Description: "The OAuth client id of the Atlassian app",
	},
	&config.Jira.ClientSecret: {
		Name:        "jira-client-secret",
		Description: "The OAuth client secret of the Atlassian app",
	},
	&config.Jira.CallbackPath: {
		Name:        "jira-callback-path",
		Description: "The path of the Jira OAuth callback",
	},
	&config.Jira.StoryPointsField: {
		Name:        "jira-story-points-field",
		Description: "The custom field holding issue story points",
	},
	&config.Jira.SprintField: {
		Name:        "jira-sprint-field",
		Description: "The custom field holding issue sprints",
	},
	&config.Store.Backend: {
		Name:        "store-backend",
		Description: "The state persistence backend. Supported values are 'memory', 's3', 'redis' and 'bolt'",
	},
	&config.Store.FlushSchedule: {
		Name:        "store-flush-schedule",
		Description: "The cron schedule of periodic state saves. Empty disables periodic saves",
	},
	&config.Store.SweepSchedule: {
		Name:        "store-sweep-schedule",
		Description: "The cron schedule of expired credential sweeps. Empty disables sweeps",
	},
	&config.Store.S3.Bucket: {
		Name:        "store-s3-bucket",
		Description: "The S3 bucket holding the state snapshot",
	},
	&config.Store.S3.Key: {
		Name:        "store-s3-key",
		Description: "The S3 object key of the state snapshot",
	},
	&config.Store.Redis.Addr: {
		Name:        "store-redis-addr",
		Description: "The address of the Redis server holding the state snapshot",
	},
	&config.Store.Redis.Username: {
		Name:        "store-redis-username",
		Description: "The Redis username",
	},
	&config.Store.Redis.Password: {
		Name:        "store-redis-password",
		Description: "The Redis password",
	},
	&config.Store.Redis.Key: {
		Name:        "store-redis-key",
		Description: "The Redis key of the state snapshot",
	},
	&config.Store.Bolt.Path: {
		Name:        "store-bolt-path",
		Description: "The path of the bbolt database file",
	},
}

var envMapBool = map[*bool]boundEnvVar[bool]{
	&config.Global.Logging.CallerTrace: {
		Name:        "verbosity-caller-trace",
		Description: "Enable caller trace in logs",
		Short:       helpers.Ptr("V"),
	},
	&config.Global.S3.Upload.Enabled: {
		Name:        "webhook-archive-s3-upload",
		Description: "Enable S3 archiving of webhook deliveries",
		Env:         helpers.Ptr("WEBHOOK_ARCHIVE_S3_UPLOAD"),
	},
	&config.Discord.RemoveCommands: {
		Name:        "discord-remove-commands",
		Description: "Delete the registered slash commands on shutdown",
	},
}

var envMapInt = map[*int]boundEnvVar[int]{
	&config.Global.Logging.Verbosity: {
		Name:        "verbosity",
		Description: "Increase logger verbosity (default WarnLevel)",
		Short:       helpers.Ptr("v"),
		Count:       true,
	},
	&config.Auth.Capacity: {
		Name:        "auth-capacity",
		Description: "How many users may wait on one authorization handshake at a time",
	},
	&config.Webhook.RateLimitPerMinute: {
		Name:        "webhook-rate-limit",
		Description: "Deliveries accepted per source address and minute. Zero disables the limit",
	},
	&config.Store.Redis.DB: {
		Name:        "store-redis-db",
		Description: "The Redis database number",
	},
}

var envMapDuration = map[*time.Duration]boundEnvVar[time.Duration]{
	&config.GitHub.ClientTTL: {
		Name:        "github-client-ttl",
		Description: "How long a per-user GitHub client is cached",
	},
	&config.Auth.HoldTimeout: {
		Name:        "auth-hold-timeout",
		Description: "Release an unanswered authorization after this long. Zero waits forever",
	},
	&config.Commands.ConfirmTimeout: {
		Name:        "commands-confirm-timeout",
		Description: "How long a yes/no confirmation is awaited",
	},
	&config.Commands.Timeout: {
		Name:        "commands-timeout",
		Description: "The timeout of a single command against external APIs",
	},
	&config.Webhook.NotifyTimeout: {
		Name:        "webhook-notify-timeout",
		Description: "The timeout of the notification fan-out of one delivery",
	},
}

var envMapStringSlice = map[*[]string]boundEnvVar[[]string]{
	&config.GitHub.Scopes: {
		Name:        "github-scopes",
		Description: "The OAuth scopes requested from GitHub",
	},
	&config.GitHub.Events: {
		Name:        "github-events",
		Description: "The webhook events registered when a repository is added",
	},
	&config.Jira.Scopes: {
		Name:        "jira-scopes",
		Description: "The OAuth scopes requested from Atlassian",
	},
}
