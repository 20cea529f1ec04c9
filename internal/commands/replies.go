package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/collaby/collaby-bot/internal/auth"
	"github.com/collaby/collaby-bot/internal/binding"
	ghctl "github.com/collaby/collaby-bot/internal/controllers/github"
	"github.com/collaby/collaby-bot/internal/credentials"
	"github.com/collaby/collaby-bot/internal/registry"
	"github.com/collaby/collaby-bot/internal/upstream"
	"github.com/pkg/errors"
)

var errNotConfigured = errors.New("integration not configured")

func usage(syntax string) Reply {
	return Reply{Title: "Usage", Description: syntax, Severity: Info}
}

func success(format string, args ...any) Reply {
	return Reply{Title: "Success", Description: fmt.Sprintf(format, args...), Severity: Success}
}

func info(title, format string, args ...any) Reply {
	return Reply{Title: title, Description: fmt.Sprintf(format, args...), Severity: Info}
}

func failure(title, format string, args ...any) Reply {
	return Reply{Title: title, Description: fmt.Sprintf(format, args...), Severity: Failure}
}

// authCommand names the command that fills the credential store of a system.
func authCommand(system string) string {
	switch system {
	case credentials.Jira:
		return "/jira auth"
	default:
		return "/gh auth"
	}
}

// reply maps an error to the reply shown to the user. Nothing from the error text itself is exposed except
// names the user supplied.
func (h *Handlers) reply(scope Scope, system string, err error) Reply {
	var notFound *registry.NotFoundError
	var up *upstream.Error

	switch {
	case errors.As(err, &notFound) && notFound.Entity == "repository":
		return info("Repository Not Found",
			"Repository %s hasn't been added to CollabyBot yet. Use /gh add %s to add it.", notFound.Name, notFound.Name)
	case errors.As(err, &notFound):
		return info("Not Found", "%s %s not found. Check the name and try again.", notFound.Entity, notFound.Name)
	case errors.Is(err, registry.ErrAlreadyExists):
		return info("Already Added", "This repository has already been added.")
	case errors.Is(err, credentials.ErrNotAuthenticated):
		return failure("Authentication Error",
			"%s has not been authenticated. Use %s to authenticate before using these commands.", scope.UserLabel(), authCommand(system))
	case errors.Is(err, credentials.ErrExpiredCredential):
		return failure("Authentication Error: Expired Token",
			"It looks like %s's OAuth token has expired. Use %s to authenticate again.", scope.UserLabel(), authCommand(system))
	case errors.Is(err, auth.ErrAlreadyAuthenticated):
		return info("User Already Authenticated", "%s is already authenticated.", scope.UserLabel())
	case errors.Is(err, auth.ErrAlreadyPending):
		return info("Authorization In Progress", "%s already has an authorization in progress. Follow the link sent earlier.", scope.UserLabel())
	case errors.Is(err, auth.ErrBusy):
		return failure("Authorization Busy", "Too many authorizations are in progress. Try again in a few minutes.")
	case errors.Is(err, binding.ErrNotBound):
		return info("Instance Not Set",
			"No Jira instance has been associated with this server yet. Use /jira instance set to set one up.")
	case errors.Is(err, ghctl.ErrInvalidRepository):
		return usage("/gh add <REPO_OWNER>/<REPO_NAME>")
	case errors.Is(err, errNotConfigured):
		return failure("Unavailable", "This command is not available on this bot.")
	case errors.As(err, &up):
		return upstreamReply(up)
	case errors.Is(err, context.DeadlineExceeded):
		return failure("Timed Out", "The request took too long. Try again later.")
	default:
		h.logger.Error("command failed", slog.String("server", scope.Server), slog.String("user", scope.User), slog.Any("error", err))
		return failure("Unexpected Error", "Something went wrong while running this command.")
	}
}

func upstreamReply(e *upstream.Error) Reply {
	svc := "GitHub"
	if e.Service == credentials.Jira {
		svc = "Jira"
	}
	switch e.Kind {
	case upstream.RateLimited:
		return failure("Rate Limited", "%s is rate limiting requests. Try again later.", svc)
	case upstream.PermissionDenied:
		return failure("Access Denied Error", "You do not have permission to perform this action on %s.", svc)
	case upstream.NotFound:
		return failure("Not Found Error", "%s could not find the requested resource.", svc)
	case upstream.AlreadyExists:
		return info("Already Exists", "The resource already exists on %s.", svc)
	case upstream.Unauthorized:
		return failure("Authentication Error", "%s rejected your token. Authenticate again and retry.", svc)
	case upstream.Invalid:
		return failure("Invalid Request", "%s rejected the request as invalid.", svc)
	default:
		return failure("Service Unavailable", "%s is not reachable right now. Try again later.", svc)
	}
}

// limitFields caps fields to what an embed can carry and notes the overflow in the description.
func limitFields(r Reply) Reply {
	if len(r.Fields) <= maxFields {
		return r
	}
	hidden := len(r.Fields) - maxFields
	r.Fields = r.Fields[:maxFields]
	r.Description += fmt.Sprintf("\n(%d more not shown)", hidden)
	return r
}
