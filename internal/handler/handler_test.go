package handler_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"testing"

	"github.com/collaby/collaby-bot/internal/event"
	"github.com/collaby/collaby-bot/internal/handler"
	"github.com/collaby/collaby-bot/internal/registry"
	"github.com/collaby/collaby-bot/internal/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	webhookSecret = "key"
	pushPayload   = `{
  "ref": "refs/heads/main",
  "repository": {"name": "widgets", "full_name": "acme/widgets"},
  "commits": [{"message": "fix bug", "timestamp": "2024-01-01T00:00:00Z", "url": "https://x/1", "author": {"name": "alice"}}]
}`
	createPayload = `{"ref": "feature/login", "ref_type": "branch", "repository": {"full_name": "acme/widgets"}}`
	deletePayload = `{"ref": "dev", "ref_type": "branch", "repository": {"full_name": "acme/widgets"}}`
	tagPayload    = `{"ref": "v1.0.0", "ref_type": "tag", "repository": {"full_name": "acme/widgets"}}`
	pingPayload   = `{"zen": "Keep it logically awesome.", "hook_id": 42}`
)

type notifier struct {
	mu       sync.Mutex
	channels []string
}

func (n *notifier) Notify(_ context.Context, channelID string, _ router.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.channels = append(n.channels, channelID)
	return nil
}

type archive struct {
	mu     sync.Mutex
	events []string
}

func (a *archive) PutS3Object(_ context.Context, eventType, deliveryID, bucket string, _ []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, bucket+"/"+eventType+"/"+deliveryID)
	return nil
}

func sign(body string) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func headers(eventType, body string) map[string]string {
	return map[string]string{
		"x-github-event":      eventType,
		"x-github-delivery":   "d-1",
		"content-type":        "application/json",
		"x-hub-signature-256": sign(body),
		"x-forwarded-for":     "10.0.0.1, 10.0.0.2",
	}
}

func setup(t *testing.T, opts ...handler.Option) (*handler.Handler, *registry.Registry, *notifier) {
	t.Helper()
	reg := registry.New()
	require.NoError(t, reg.AddRepository("S1", "acme/widgets", []string{"main", "dev"}))
	_, err := reg.Subscribe("S1", "acme/widgets", event.Commit, "C1", "main")
	require.NoError(t, err)
	n := &notifier{}
	_inst, err := handler.NewHandler(reg, router.New(reg, n), append([]handler.Option{handler.WithWebhookSecret(webhookSecret)}, opts...)...)
	require.NoError(t, err)
	return _inst, reg, n
}

func TestProcess(t *testing.T) {
	testCases := []struct {
		Name          string
		EventType     string
		Body          string
		Headers       map[string]string
		ExpectedError bool
		Expected      int
	}{
		{Name: "push", EventType: "push", Body: pushPayload, Expected: http.StatusAccepted},
		{Name: "ping", EventType: "ping", Body: pingPayload, Expected: http.StatusOK},
		{Name: "unhandled", EventType: "star", Body: `{"action": "created"}`, Expected: http.StatusAccepted},
		{Name: "malformed", EventType: "issues", Body: `{"action": "opened"}`, Expected: http.StatusAccepted},
		{Name: "tag create", EventType: "create", Body: tagPayload, Expected: http.StatusAccepted},
		{
			Name:          "missing_event_type",
			Body:          pushPayload,
			Headers:       map[string]string{"x-github-delivery": "d-1"},
			ExpectedError: true,
			Expected:      http.StatusUnprocessableEntity,
		},
		{
			Name:          "missing_delivery",
			Body:          pushPayload,
			Headers:       map[string]string{"x-github-event": "push"},
			ExpectedError: true,
			Expected:      http.StatusUnprocessableEntity,
		},
		{
			Name:      "bad_signature",
			EventType: "push",
			Body:      pushPayload,
			Headers: map[string]string{
				"x-github-event":      "push",
				"x-github-delivery":   "d-1",
				"content-type":        "application/json",
				"x-hub-signature-256": sign("other"),
			},
			ExpectedError: true,
			Expected:      http.StatusForbidden,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			_inst, _, _ := setup(t)
			h := tc.Headers
			if h == nil {
				h = headers(tc.EventType, tc.Body)
			}
			bus, err := _inst.Process([]byte(tc.Body), h)
			if tc.ExpectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			require.NotNil(t, bus)
			assert.Equal(t, tc.Expected, bus.Response.StatusCode)
		})
	}
}

func TestProcessDispatches(t *testing.T) {
	a := &archive{}
	_inst, _, n := setup(t, handler.WithArchive(a, "deliveries"))

	bus, err := _inst.Process([]byte(pushPayload), headers("push", pushPayload))
	require.NoError(t, err)
	require.NotNil(t, bus.Report)
	assert.Equal(t, 1, bus.Report.Attempted)
	assert.Equal(t, 0, bus.Report.Failed)
	assert.Equal(t, []string{"C1"}, n.channels)
	assert.Equal(t, []string{"deliveries/push/d-1"}, a.events)
}

func TestProcessSyncsBranches(t *testing.T) {
	_inst, reg, _ := setup(t)

	bus, err := _inst.Process([]byte(createPayload), headers("create", createPayload))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, bus.Response.StatusCode)
	require.NotNil(t, bus.RefChange)
	assert.Equal(t, "feature/login", bus.RefChange.Branch)

	_, err = _inst.Process([]byte(deletePayload), headers("delete", deletePayload))
	require.NoError(t, err)

	branches, err := reg.Branches("S1", "acme/widgets")
	require.NoError(t, err)
	assert.Equal(t, []string{"main", "feature/login"}, branches)
}

func TestProcessRateLimit(t *testing.T) {
	_inst, _, _ := setup(t, handler.WithRateLimit(1))

	bus, err := _inst.Process([]byte(pingPayload), headers("ping", pingPayload))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, bus.Response.StatusCode)

	bus, err = _inst.Process([]byte(pingPayload), headers("ping", pingPayload))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, bus.Response.StatusCode)
}

type logSink struct {
	mu    sync.Mutex
	lines [][]byte
}

func (s *logSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, bytes.Clone(p))
	return len(p), nil
}

// deliveries returns the deliveryID of every record logged with msg.
func (s *logSink) deliveries(t *testing.T, msg string) []string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, line := range s.lines {
		var rec struct {
			Msg        string `json:"msg"`
			DeliveryID string `json:"deliveryID"`
		}
		require.NoError(t, json.Unmarshal(line, &rec))
		if rec.Msg == msg {
			ids = append(ids, rec.DeliveryID)
		}
	}
	return ids
}

func TestProcessConcurrentDeliveries(t *testing.T) {
	const deliveries = 32
	sink := &logSink{}
	logger := slog.New(slog.NewJSONHandler(sink, &slog.HandlerOptions{Level: slog.LevelDebug}))
	_inst, _, n := setup(t, handler.WithLogger(logger))

	var (
		wg            sync.WaitGroup
		pings, pushes []string
		statuses      = make([]int, deliveries)
	)
	for i := range deliveries {
		eventType, body := "ping", pingPayload
		if i%2 == 1 {
			eventType, body = "push", pushPayload
		}
		id := fmt.Sprintf("d-%d", i)
		if eventType == "ping" {
			pings = append(pings, id)
		} else {
			pushes = append(pushes, id)
		}
		h := headers(eventType, body)
		h["x-github-delivery"] = id

		wg.Add(1)
		go func() {
			defer wg.Done()
			bus, err := _inst.Process([]byte(body), h)
			assert.NoError(t, err)
			statuses[i] = bus.Response.StatusCode
		}()
	}
	wg.Wait()

	for i, status := range statuses {
		if i%2 == 0 {
			assert.Equal(t, http.StatusOK, status, "delivery %d", i)
		} else {
			assert.Equal(t, http.StatusAccepted, status, "delivery %d", i)
		}
	}
	assert.Len(t, n.channels, deliveries/2)
	assert.ElementsMatch(t, pings, sink.deliveries(t, "webhook ping received"))
	assert.ElementsMatch(t, pushes, sink.deliveries(t, "dispatched"))
}

func TestSource(t *testing.T) {
	testCases := []struct {
		Name     string
		Headers  map[string]string
		Expected string
	}{
		{Name: "forwarded", Headers: map[string]string{"x-forwarded-for": "10.0.0.1, 10.0.0.2"}, Expected: "10.0.0.1"},
		{Name: "real ip", Headers: map[string]string{"x-real-ip": "10.0.0.3"}, Expected: "10.0.0.3"},
		{Name: "unknown", Headers: map[string]string{}, Expected: "unknown"},
	}
	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			assert.Equal(t, tc.Expected, handler.Source(tc.Headers))
		})
	}
	assert.Equal(t, "192.0.2.1", handler.RemoteHost("192.0.2.1:1234"))
}
