package processor

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/collaby/collaby-bot/internal/event"
	"github.com/collaby/collaby-bot/internal/models"
)

// BranchSyncer applies branch changes to every server tracking a repository.
type BranchSyncer interface {
	AddBranch(fullName, branch string) int
	RemoveBranch(fullName, branch string) int
}

type branchesProcessor struct {
	registry BranchSyncer
}

// NewBranchesProcessor keeps the known branches in sync with create and delete deliveries.
func NewBranchesProcessor(registry BranchSyncer, opts ...Option) Processor {
	_inst := &branchesProcessor{registry: registry}
	applyOpts(_inst, opts...)
	return _inst
}

func (p *branchesProcessor) Process(logger *slog.Logger, req any) (*Bus, error) {
	logger = logger.WithGroup("processor:branches")
	bus, err := asBus(req)
	if err != nil {
		return nil, err
	}
	if bus.EventType != "create" && bus.EventType != "delete" {
		return bus, nil
	}
	bus.Done = true

	change, err := event.NormalizeRefChange(bus.EventType, bus.Body)
	if err != nil {
		logger.Warn("dropping malformed ref change", slog.Any("error", err))
		bus.Response = models.Response{Body: err.Error(), StatusCode: http.StatusAccepted}
		return bus, nil
	}
	if change == nil {
		bus.Response = models.Response{Body: "ignoring non-branch ref", StatusCode: http.StatusAccepted}
		return bus, nil
	}
	bus.RefChange = change

	var servers int
	if change.Deleted {
		servers = p.registry.RemoveBranch(change.Repository, change.Branch)
	} else {
		servers = p.registry.AddBranch(change.Repository, change.Branch)
	}
	logger.Info("branches synced",
		slog.String("repository", change.Repository),
		slog.String("branch", change.Branch),
		slog.Bool("deleted", change.Deleted),
		slog.Int("servers", servers))
	bus.Response = models.Response{
		Body:       fmt.Sprintf("branch %s synced on %d server(s)", change.Branch, servers),
		StatusCode: http.StatusOK,
	}
	return bus, nil
}
