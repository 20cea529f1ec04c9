package router_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/collaby/collaby-bot/internal/event"
	"github.com/collaby/collaby-bot/internal/registry"
	"github.com/collaby/collaby-bot/internal/router"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type delivery struct {
	Channel      string
	Notification router.Notification
}

type recorder struct {
	mu         sync.Mutex
	deliveries []delivery
	failing    map[string]bool
}

func (r *recorder) Notify(_ context.Context, channelID string, n router.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, delivery{Channel: channelID, Notification: n})
	if r.failing[channelID] {
		return errors.New("channel unavailable")
	}
	return nil
}

func pushEvent(branch string) *event.Event {
	return &event.Event{
		Kind:       event.Commit,
		Repository: "acme/widgets",
		Branch:     branch,
		Actor:      "alice",
		Timestamp:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		URL:        "https://x/1",
		Commit:     &event.CommitDetails{Message: "fix bug"},
	}
}

func TestRouteEndToEnd(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.AddRepository("S1", "acme/widgets", []string{"main"}))
	_, err := reg.Subscribe("S1", "acme/widgets", event.Commit, "C1", "main")
	require.NoError(t, err)

	rec := &recorder{}
	_inst := router.New(reg, rec)

	report := _inst.Route(context.Background(), pushEvent("main"))
	assert.Equal(t, 1, report.Attempted)
	assert.Equal(t, 0, report.Failed)
	assert.NoError(t, report.Err)

	require.Len(t, rec.deliveries, 1)
	d := rec.deliveries[0]
	assert.Equal(t, "C1", d.Channel)
	assert.Contains(t, d.Notification.Body, "fix bug")
	assert.Contains(t, d.Notification.Body, "alice")
	assert.Contains(t, d.Notification.Body, "https://x/1")
	assert.Equal(t, "https://x/1", d.Notification.URL)
	assert.Equal(t, event.Commit, d.Notification.Kind)
}

func TestRouteWithoutSubscribers(t *testing.T) {
	testCases := []struct {
		Name   string
		Repo   string
		Branch string
	}{
		{
			Name:   "unknown_repository",
			Repo:   "acme/nope",
			Branch: "main",
		},
		{
			Name:   "unsubscribed_branch",
			Repo:   "acme/widgets",
			Branch: "dev",
		},
	}

	reg := registry.New()
	require.NoError(t, reg.AddRepository("S1", "acme/widgets", []string{"main", "dev"}))
	_, err := reg.Subscribe("S1", "acme/widgets", event.Commit, "C1", "main")
	require.NoError(t, err)

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			rec := &recorder{}
			e := pushEvent(tc.Branch)
			e.Repository = tc.Repo

			report := router.New(reg, rec).Route(context.Background(), e)
			assert.Equal(t, 0, report.Attempted)
			assert.Equal(t, tc.Repo, report.Repository)
			assert.Empty(t, rec.deliveries)
		})
	}
}

func TestRoutePartialFailure(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.AddRepository("S1", "acme/widgets", []string{"main"}))
	for _, c := range []string{"C1", "C2", "C3"} {
		_, err := reg.Subscribe("S1", "acme/widgets", event.Commit, c, "main")
		require.NoError(t, err)
	}

	rec := &recorder{failing: map[string]bool{"C2": true}}
	report := router.New(reg, rec).Route(context.Background(), pushEvent("main"))

	assert.Equal(t, 3, report.Attempted)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 2, report.Delivered())
	assert.Equal(t, []string{"C2"}, report.FailedChannels)

	var order []string
	for _, d := range rec.deliveries {
		order = append(order, d.Channel)
	}
	assert.Equal(t, []string{"C1", "C2", "C3"}, order)
}

func TestRouteInvalidEvent(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.AddRepository("S1", "acme/widgets", []string{"main"}))
	_, err := reg.Subscribe("S1", "acme/widgets", event.Commit, "C1", "main")
	require.NoError(t, err)

	e := pushEvent("main")
	e.Commit = nil
	rec := &recorder{}
	report := router.New(reg, rec).Route(context.Background(), e)
	assert.Error(t, report.Err)
	assert.Equal(t, 0, report.Attempted)
	assert.Empty(t, rec.deliveries)
}
