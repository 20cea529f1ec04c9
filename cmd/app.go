package cmd

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/collaby/collaby-bot/internal/auth"
	"github.com/collaby/collaby-bot/internal/binding"
	"github.com/collaby/collaby-bot/internal/commands"
	"github.com/collaby/collaby-bot/internal/config"
	awsctl "github.com/collaby/collaby-bot/internal/controllers/aws"
	ghctl "github.com/collaby/collaby-bot/internal/controllers/github"
	jiractl "github.com/collaby/collaby-bot/internal/controllers/jira"
	"github.com/collaby/collaby-bot/internal/credentials"
	"github.com/collaby/collaby-bot/internal/discord"
	"github.com/collaby/collaby-bot/internal/handler"
	"github.com/collaby/collaby-bot/internal/handler/processor"
	"github.com/collaby/collaby-bot/internal/oauth"
	"github.com/collaby/collaby-bot/internal/registry"
	"github.com/collaby/collaby-bot/internal/router"
	"github.com/collaby/collaby-bot/internal/runtime"
	"github.com/collaby/collaby-bot/internal/store"
	"github.com/pkg/errors"
)

// app is the wired object graph shared by every mode.
type app struct {
	logger *slog.Logger

	aws      *awsctl.Controller
	store    store.Store
	state    *store.State
	registry *registry.Registry
	bindings *binding.Store

	githubCreds *credentials.Store
	jiraCreds   *credentials.Store

	github *ghctl.Controller
	jira   *jiractl.Controller

	githubAuth *auth.Handshake
	jiraAuth   *auth.Handshake

	session  *discord.Session
	commands *commands.Handlers
	runtime  *runtime.Runtime

	githubCallback *oauth.Callback
	jiraCallback   *oauth.Callback
}

type appOptions struct {
	// notifier replaces the Discord session for notifications.
	notifier router.Notifier
	// skipSignature disables signature checks; event mode deliveries carry none.
	skipSignature bool
	// persistBranches flushes the state after each branch change. Lambda invocations do not outlive the request.
	persistBranches bool
}

func newApp(ctx context.Context, logger *slog.Logger, opts appOptions) (*app, error) {
	a := &app{logger: logger}

	if needsAWS() {
		ctl, err := awsctl.NewController(awsctl.WithContext(ctx), awsctl.WithLogger(logger))
		if err != nil {
			return nil, errors.Wrap(err, "failed to create AWS controller")
		}
		a.aws = ctl
	}
	if err := loadSecrets(ctx, a.aws); err != nil {
		return nil, err
	}

	var err error
	a.store, err = store.New(ctx, storeConfig(a.aws), logger)
	if err != nil {
		return nil, err
	}

	a.registry = registry.New(registry.WithLogger(logger))
	a.bindings = binding.New(binding.WithLogger(logger))
	a.githubCreds = credentials.New(credentials.GitHub, credentials.WithLogger(logger))
	a.jiraCreds = credentials.New(credentials.Jira, credentials.WithLogger(logger))
	a.state = store.NewState(a.store, logger, a.registry, a.githubCreds, a.jiraCreds, a.bindings)

	if a.github, err = ghctl.NewController(
		ghctl.WithContext(ctx),
		ghctl.WithLogger(logger),
		ghctl.WithClientTTL(config.GitHub.ClientTTL),
	); err != nil {
		return nil, errors.Wrap(err, "failed to create GitHub controller")
	}
	a.jira = jiractl.NewController(
		jiractl.WithLogger(logger),
		jiractl.WithEndpoints(config.Jira.APIURL, config.Jira.ResourcesURL),
		jiractl.WithFields(config.Jira.StoryPointsField, config.Jira.SprintField),
	)

	githubProvider := oauth.NewGitHub(config.GitHub.ClientID, config.GitHub.ClientSecret,
		oauth.RedirectURL(config.Global.PublicURL, config.GitHub.CallbackPath), config.GitHub.Scopes)
	jiraProvider := oauth.NewAtlassian(config.Jira.ClientID, config.Jira.ClientSecret,
		oauth.RedirectURL(config.Global.PublicURL, config.Jira.CallbackPath), config.Jira.Scopes)
	handshakeOpts := []auth.Option{
		auth.WithLogger(logger),
		auth.WithCapacity(config.Auth.Capacity),
		auth.WithHoldTimeout(config.Auth.HoldTimeout),
	}
	a.githubAuth = auth.New(githubProvider, a.githubCreds, handshakeOpts...)
	a.jiraAuth = auth.New(jiraProvider, a.jiraCreds, handshakeOpts...)

	notifier := opts.notifier
	if notifier == nil {
		a.session, err = discord.New(config.Discord.Token,
			discord.WithLogger(logger),
			discord.WithGuild(config.Discord.GuildID),
			discord.WithRemoveCommands(config.Discord.RemoveCommands))
		if err != nil {
			return nil, err
		}
		notifier = a.session
	}

	handlerOpts := []commands.Option{
		commands.WithLogger(logger),
		commands.WithCodeHost(a.github),
		commands.WithTracker(a.jira),
		commands.WithGitHubAuth(a.githubCreds, a.githubAuth),
		commands.WithJiraAuth(a.jiraCreds, a.jiraAuth),
		commands.WithBindings(a.bindings),
		commands.WithConfirmTimeout(config.Commands.ConfirmTimeout),
		commands.WithTimeout(config.Commands.Timeout),
		commands.WithWebhook(oauth.RedirectURL(config.Global.PublicURL, config.Service.Path), config.GitHub.WebhookSecret, config.GitHub.Events),
	}
	callbackOpts := []oauth.Option{oauth.WithLogger(logger), oauth.WithTimeout(config.Commands.Timeout)}
	if a.session != nil {
		handlerOpts = append(handlerOpts, commands.WithConfirmer(a.session.Confirmer()), commands.WithMessenger(a.session))
		callbackOpts = append(callbackOpts, oauth.WithMessenger(a.session))
	}
	a.commands = commands.New(a.registry, handlerOpts...)
	a.githubCallback = oauth.NewCallback(githubProvider, a.githubAuth, callbackOpts...)
	a.jiraCallback = oauth.NewCallback(jiraProvider, a.jiraAuth, callbackOpts...)

	secret := config.GitHub.WebhookSecret
	if opts.skipSignature {
		secret = ""
	}
	hookOpts := []handler.Option{
		handler.WithContext(ctx),
		handler.WithLogger(logger),
		handler.WithLambdaPayloadType(config.Lambda.PayloadType),
		handler.WithWebhookSecret(secret),
		handler.WithRateLimit(config.Webhook.RateLimitPerMinute),
		handler.WithNotifyTimeout(config.Webhook.NotifyTimeout),
	}
	if config.Global.S3.Upload.Enabled && a.aws != nil {
		hookOpts = append(hookOpts, handler.WithArchive(a.aws, config.Global.S3.Upload.BucketName))
	}
	var branches processor.BranchSyncer = a.registry
	if opts.persistBranches {
		branches = &persistingSyncer{BranchSyncer: a.registry, state: a.state, logger: logger}
	}
	rt := router.New(a.registry, notifier, router.WithLogger(logger))
	hdl, err := handler.NewHandler(branches, rt, hookOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create webhook handler")
	}
	a.runtime = runtime.NewRuntime(hdl, runtime.WithLogger(logger))
	return a, nil
}

// mux routes the webhook receiver, the OAuth callbacks and the health check.
func (a *app) mux() *http.ServeMux {
	m := http.NewServeMux()
	m.Handle(config.Service.Path, a.runtime)
	m.Handle(config.GitHub.CallbackPath, a.githubCallback)
	m.Handle(config.Jira.CallbackPath, a.jiraCallback)
	m.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	return m
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close store", slog.Any("error", err))
	}
}

// persistingSyncer saves the state whenever a branch change touched a tracked repository.
type persistingSyncer struct {
	processor.BranchSyncer
	state  *store.State
	logger *slog.Logger
}

func (p *persistingSyncer) AddBranch(fullName, branch string) int {
	return p.flush(p.BranchSyncer.AddBranch(fullName, branch))
}

func (p *persistingSyncer) RemoveBranch(fullName, branch string) int {
	return p.flush(p.BranchSyncer.RemoveBranch(fullName, branch))
}

func (p *persistingSyncer) flush(changed int) int {
	if changed == 0 {
		return 0
	}
	if err := p.state.Flush(context.Background()); err != nil {
		p.logger.Error("failed to persist branch change", slog.Any("error", err))
	}
	return changed
}

func needsAWS() bool {
	return config.Global.SecretsMode == config.SecretsModeSSM ||
		config.Store.Backend == store.BackendS3 ||
		config.Global.S3.Upload.Enabled
}

func storeConfig(objects *awsctl.Controller) store.Config {
	cfg := store.Config{
		Backend:       config.Store.Backend,
		Bucket:        config.Store.S3.Bucket,
		S3Key:         config.Store.S3.Key,
		NotFound:      awsctl.ErrObjectNotFound,
		RedisAddr:     config.Store.Redis.Addr,
		RedisUsername: config.Store.Redis.Username,
		RedisPassword: config.Store.Redis.Password,
		RedisDB:       config.Store.Redis.DB,
		RedisKey:      config.Store.Redis.Key,
		BoltPath:      config.Store.Bolt.Path,
	}
	if objects != nil {
		cfg.Objects = objects
	}
	return cfg
}

// loadSecrets overlays the SSM secrets document onto the configuration when SSM mode is selected.
func loadSecrets(ctx context.Context, ctl *awsctl.Controller) error {
	if config.Global.SecretsMode != config.SecretsModeSSM {
		return nil
	}
	if config.Global.SSMKey == "" {
		return errors.New("ssm secrets mode requires an SSM key")
	}
	raw, err := ctl.GetSecret(ctx, config.Global.SSMKey, true)
	if err != nil {
		return errors.Wrap(err, "failed to fetch secrets")
	}
	var secrets config.Secrets
	if err = json.Unmarshal([]byte(raw), &secrets); err != nil {
		return errors.Wrap(err, "failed to decode secrets")
	}
	secrets.Apply()
	return nil
}
