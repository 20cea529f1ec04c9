// Package config provides a centralized entrypoint for the application parameters.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/creasty/defaults"
	"go.yaml.in/yaml/v3"
)

const (
	// ModeService runs the HTTP receivers, the chat gateway and the scheduler in one process.
	ModeService = "service"
	// ModeLambdaHTTP runs the webhook receiver behind API Gateway or a function URL.
	ModeLambdaHTTP = "lambda-http"
	// ModeLambdaEvent runs the webhook receiver on EventBridge-forwarded deliveries.
	ModeLambdaEvent = "lambda-event"

	// SecretsModeEnv reads secrets from flags and the environment.
	SecretsModeEnv = "env"
	// SecretsModeSSM reads secrets from a JSON SSM parameter.
	SecretsModeSSM = "ssm"
)

var (
	// Global is a struct that contains the global configuration.
	Global global
	// Discord is a struct that contains the configuration for the chat gateway.
	Discord discord
	// GitHub is a struct that contains the configuration for GitHub.
	GitHub github
	// Jira is a struct that contains the configuration for the Jira tracker.
	Jira jira
	// Auth is a struct that contains the configuration for the authorization handshakes.
	Auth auth
	// Commands is a struct that contains the configuration for the command handlers.
	Commands commands
	// Webhook is a struct that contains the configuration for the webhook receiver.
	Webhook webhook
	// Store is a struct that contains the configuration for state persistence.
	Store store
	// Service is a struct that contains the configuration for the service mode.
	Service service
	// Lambda is a struct that contains the configuration for the lambda mode.
	Lambda lambda
)

type global struct {
	// Mode is the runtime mode of the application.
	Mode string `yaml:"mode,omitempty" default:"service"`
	// PublicURL is the externally reachable base URL used for webhooks and OAuth redirects.
	PublicURL string `yaml:"publicURL,omitempty" default:"http://localhost:8080"`
	// SecretsMode selects where secrets are read from. Supported values are 'env' and 'ssm'.
	SecretsMode string `yaml:"secretsMode,omitempty" default:"env"`
	// SSMKey is the SSM parameter holding the JSON secrets document.
	SSMKey string `yaml:"ssmKey,omitempty"`
	// Logging is a struct that contains the logging configuration.
	Logging struct {
		// Verbosity is the verbosity level of the application. It represents slog levels.
		Verbosity int `yaml:"verbosity,omitempty"`
		// CallerTrace is a flag that enables the caller trace in the logger.
		CallerTrace bool `yaml:"callerTrace,omitempty"`
	} `yaml:"logging,omitempty"`
	// S3 is a struct that contains the configuration for the webhook archive.
	S3 struct {
		Upload struct {
			BucketName string `yaml:"bucketName,omitempty"`
			Enabled    bool   `yaml:"enabled,omitempty"`
		} `yaml:"upload,omitempty"`
	} `yaml:"s3,omitempty"`
}

type discord struct {
	Token string `yaml:"token,omitempty"`
	// GuildID restricts slash command registration to one guild. Empty registers globally.
	GuildID string `yaml:"guildID,omitempty"`
	// RemoveCommands deletes the registered slash commands on shutdown.
	RemoveCommands bool `yaml:"removeCommands,omitempty"`
}

type github struct {
	ClientID      string `yaml:"clientID,omitempty"`
	ClientSecret  string `yaml:"clientSecret,omitempty"`
	WebhookSecret string `yaml:"webhookSecret,omitempty"`
	// CallbackPath is appended to the public URL to build the OAuth redirect.
	CallbackPath string   `yaml:"callbackPath,omitempty" default:"/auth/github/callback"`
	Scopes       []string `yaml:"scopes,omitempty" default:"[\"repo\"]"`
	// Events is the list of webhook events registered on 'repo add'.
	Events []string `yaml:"events,omitempty" default:"[\"push\", \"issues\", \"pull_request\", \"pull_request_review\", \"create\", \"delete\"]"`
	// ClientTTL bounds how long a per-user API client is cached.
	ClientTTL time.Duration `yaml:"clientTTL,omitempty" default:"30m"`
}

type jira struct {
	ClientID     string   `yaml:"clientID,omitempty"`
	ClientSecret string   `yaml:"clientSecret,omitempty"`
	CallbackPath string   `yaml:"callbackPath,omitempty" default:"/auth/jira/callback"`
	Scopes       []string `yaml:"scopes,omitempty" default:"[\"read:jira-work\", \"write:jira-work\", \"read:jira-user\", \"offline_access\"]"`
	// APIURL is the gateway base; the site id is appended to reach a site's REST API.
	APIURL string `yaml:"apiURL,omitempty" default:"https://api.atlassian.com/ex/jira/"`
	// ResourcesURL lists the sites a token can access.
	ResourcesURL string `yaml:"resourcesURL,omitempty" default:"https://api.atlassian.com/oauth/token/accessible-resources"`
	// StoryPointsField is the custom field holding story points.
	StoryPointsField string `yaml:"storyPointsField,omitempty" default:"customfield_10026"`
	// SprintField is the custom field holding the sprints an issue belongs to.
	SprintField string `yaml:"sprintField,omitempty" default:"customfield_10020"`
}

type auth struct {
	// Capacity bounds how many users may wait on one handshake at a time.
	Capacity int `yaml:"capacity,omitempty" default:"5"`
	// HoldTimeout releases an unanswered authorization so the next user can proceed. Zero waits forever.
	HoldTimeout time.Duration `yaml:"holdTimeout,omitempty" default:"10m"`
}

type commands struct {
	// ConfirmTimeout bounds how long a yes/no confirmation is awaited.
	ConfirmTimeout time.Duration `yaml:"confirmTimeout,omitempty" default:"20s"`
	// Timeout bounds a single command invocation against external APIs.
	Timeout time.Duration `yaml:"timeout,omitempty" default:"30s"`
}

type webhook struct {
	// RateLimitPerMinute caps deliveries per source address. Zero disables the limit.
	RateLimitPerMinute int `yaml:"rateLimitPerMinute,omitempty" default:"600"`
	// NotifyTimeout bounds the fan-out of one event.
	NotifyTimeout time.Duration `yaml:"notifyTimeout,omitempty" default:"10s"`
}

type store struct {
	// Backend is one of 'memory', 's3', 'redis' and 'bolt'.
	Backend string `yaml:"backend,omitempty" default:"memory"`
	// FlushSchedule is a cron expression for periodic snapshot saves.
	FlushSchedule string `yaml:"flushSchedule,omitempty" default:"@every 5m"`
	// SweepSchedule is a cron expression for dropping expired credentials.
	SweepSchedule string `yaml:"sweepSchedule,omitempty" default:"@every 1h"`

	S3 struct {
		Bucket string `yaml:"bucket,omitempty"`
		Key    string `yaml:"key,omitempty" default:"collaby/snapshot.json"`
	} `yaml:"s3,omitempty"`
	Redis struct {
		Addr     string `yaml:"addr,omitempty" default:"localhost:6379"`
		Username string `yaml:"username,omitempty"`
		Password string `yaml:"password,omitempty"`
		DB       int    `yaml:"db,omitempty"`
		Key      string `yaml:"key,omitempty" default:"collaby:snapshot"`
	} `yaml:"redis,omitempty"`
	Bolt struct {
		Path string `yaml:"path,omitempty" default:"collaby.db"`
	} `yaml:"bolt,omitempty"`
}

type service struct {
	Path    string        `yaml:"path,omitempty" default:"/webhook"`
	Addr    string        `yaml:"addr,omitempty"`
	Port    string        `yaml:"port,omitempty" default:"8080"`
	Timeout time.Duration `yaml:"timeout,omitempty" default:"5s"`
}

type lambda struct {
	PayloadType string `yaml:"payloadType,omitempty" default:"api-gateway-v2"`
}

// SetDefaults sets the default values for the configuration.
func SetDefaults() error {
	return errors.Join(
		defaults.Set(&Global),
		defaults.Set(&Discord),
		defaults.Set(&GitHub),
		defaults.Set(&Jira),
		defaults.Set(&Auth),
		defaults.Set(&Commands),
		defaults.Set(&Webhook),
		defaults.Set(&Store),
		defaults.Set(&Service),
		defaults.Set(&Lambda),
	)
}

// LoadFromFile loads the configuration from a file.
func LoadFromFile(path string) error {
	if len(path) == 0 {
		return nil
	}
	fstat, err := os.Stat(path)
	if err != nil {
		return nil //nolint:nilerr // If the file does not exist, we ignore it.
	}
	if fstat.IsDir() {
		return fmt.Errorf("configuration file %s is a directory", path)
	}
	if !fstat.Mode().IsRegular() {
		return fmt.Errorf("configuration file %s is not a regular file", path)
	}

	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to read configuration file %s: %w", path, err)
	}
	type all struct {
		Global   global   `yaml:"global,omitempty"`
		Discord  discord  `yaml:"discord,omitempty"`
		GitHub   github   `yaml:"github,omitempty"`
		Jira     jira     `yaml:"jira,omitempty"`
		Auth     auth     `yaml:"auth,omitempty"`
		Commands commands `yaml:"commands,omitempty"`
		Webhook  webhook  `yaml:"webhook,omitempty"`
		Store    store    `yaml:"store,omitempty"`
		Service  service  `yaml:"service,omitempty"`
		Lambda   lambda   `yaml:"lambda,omitempty"`
	}
	var a all
	if err = yaml.Unmarshal(content, &a); err != nil {
		return fmt.Errorf("failed to unmarshal configuration file %s: %w", path, err)
	}
	Global = a.Global
	Discord = a.Discord
	GitHub = a.GitHub
	Jira = a.Jira
	Auth = a.Auth
	Commands = a.Commands
	Webhook = a.Webhook
	Store = a.Store
	Service = a.Service
	Lambda = a.Lambda

	return nil
}

// Secrets is the JSON document stored in SSM when SecretsModeSSM is selected.
type Secrets struct {
	DiscordToken       string `json:"discord_token,omitempty"`
	GitHubClientSecret string `json:"github_client_secret,omitempty"`
	GitHubWebhook      string `json:"github_webhook_secret,omitempty"`
	JiraClientSecret   string `json:"jira_client_secret,omitempty"`
	RedisPassword      string `json:"redis_password,omitempty"`
}

// Apply overlays the non-empty secrets onto the loaded configuration.
func (s Secrets) Apply() {
	if s.DiscordToken != "" {
		Discord.Token = s.DiscordToken
	}
	if s.GitHubClientSecret != "" {
		GitHub.ClientSecret = s.GitHubClientSecret
	}
	if s.GitHubWebhook != "" {
		GitHub.WebhookSecret = s.GitHubWebhook
	}
	if s.JiraClientSecret != "" {
		Jira.ClientSecret = s.JiraClientSecret
	}
	if s.RedisPassword != "" {
		Store.Redis.Password = s.RedisPassword
	}
}
