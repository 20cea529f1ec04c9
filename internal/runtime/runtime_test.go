package runtime_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/collaby/collaby-bot/internal/event"
	"github.com/collaby/collaby-bot/internal/handler"
	"github.com/collaby/collaby-bot/internal/models"
	"github.com/collaby/collaby-bot/internal/registry"
	"github.com/collaby/collaby-bot/internal/router"
	"github.com/collaby/collaby-bot/internal/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pushPayload = `{
  "ref": "refs/heads/main",
  "repository": {"full_name": "acme/widgets"},
  "commits": [{"message": "fix bug", "timestamp": "2024-01-01T00:00:00Z", "url": "https://x/1", "author": {"name": "alice"}}]
}`

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

func setupRuntime(t *testing.T, payloadType string) (*runtime.Runtime, *notifier) {
	t.Helper()
	reg := registry.New()
	require.NoError(t, reg.AddRepository("S1", "acme/widgets", []string{"main"}))
	_, err := reg.Subscribe("S1", "acme/widgets", event.Commit, "C1", "")
	require.NoError(t, err)
	n := &notifier{}
	hdl, err := handler.NewHandler(reg, router.New(reg, n), handler.WithLambdaPayloadType(payloadType))
	require.NoError(t, err)
	return runtime.NewRuntime(hdl), n
}

func TestServeHTTP(t *testing.T) {
	testCases := []struct {
		Name     string
		Method   string
		Headers  map[string]string
		Expected int
	}{
		{
			Name:     "push",
			Method:   http.MethodPost,
			Headers:  map[string]string{"X-GitHub-Event": "push", "X-GitHub-Delivery": "d-1", "Content-Type": "application/json"},
			Expected: http.StatusAccepted,
		},
		{
			Name:     "missing_event_type",
			Method:   http.MethodPost,
			Headers:  map[string]string{"X-GitHub-Delivery": "d-1"},
			Expected: http.StatusUnprocessableEntity,
		},
		{
			Name:     "method",
			Method:   http.MethodGet,
			Expected: http.StatusMethodNotAllowed,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			_inst, _ := setupRuntime(t, runtime.PayloadAPIGatewayV2)
			req := httptest.NewRequest(tc.Method, "/webhook", strings.NewReader(pushPayload))
			for k, v := range tc.Headers {
				req.Header.Set(k, v)
			}
			rr := httptest.NewRecorder()
			_inst.ServeHTTP(rr, req)
			assert.Equal(t, tc.Expected, rr.Code)
		})
	}
}

func TestServeHTTPReportsDispatch(t *testing.T) {
	_inst, n := setupRuntime(t, runtime.PayloadAPIGatewayV2)
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(pushPayload))
	req.Header.Set("X-GitHub-Event", "push")
	req.Header.Set("X-GitHub-Delivery", "d-1")
	rr := httptest.NewRecorder()
	_inst.ServeHTTP(rr, req)

	var body struct {
		Message string `json:"message"`
		Report  struct {
			Attempted int `json:"attempted"`
			Failed    int `json:"failed"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "dispatched", body.Message)
	assert.Equal(t, 1, body.Report.Attempted)
	assert.Equal(t, []string{"C1"}, n.channels)
}

func TestLambda(t *testing.T) {
	headers := map[string]string{"X-GitHub-Event": "push", "X-GitHub-Delivery": "d-1"}
	testCases := []struct {
		Name        string
		PayloadType string
		Payload     any
		Expected    any
	}{
		{
			Name:        "api-gateway-v1",
			PayloadType: runtime.PayloadAPIGatewayV1,
			Payload:     events.APIGatewayProxyRequest{Body: pushPayload, Headers: headers},
			Expected:    events.APIGatewayProxyResponse{},
		},
		{
			Name:        "api-gateway-v2",
			PayloadType: runtime.PayloadAPIGatewayV2,
			Payload: events.APIGatewayV2HTTPRequest{
				Body:            base64.StdEncoding.EncodeToString([]byte(pushPayload)),
				IsBase64Encoded: true,
				Headers:         headers,
			},
			Expected: events.APIGatewayV2HTTPResponse{},
		},
		{
			Name:        "lambda-url",
			PayloadType: runtime.PayloadLambdaURL,
			Payload:     events.LambdaFunctionURLRequest{Body: pushPayload, Headers: headers},
			Expected:    events.LambdaFunctionURLResponse{},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			_inst, n := setupRuntime(t, tc.PayloadType)
			raw, err := json.Marshal(tc.Payload)
			require.NoError(t, err)

			resp, err := _inst.Lambda(context.Background(), raw)
			require.NoError(t, err)
			assert.IsType(t, tc.Expected, resp)
			switch r := resp.(type) {
			case events.APIGatewayProxyResponse:
				assert.Equal(t, http.StatusAccepted, r.StatusCode)
			case events.APIGatewayV2HTTPResponse:
				assert.Equal(t, http.StatusAccepted, r.StatusCode)
			case events.LambdaFunctionURLResponse:
				assert.Equal(t, http.StatusAccepted, r.StatusCode)
			}
			assert.Equal(t, []string{"C1"}, n.channels)
		})
	}
}

func TestLambdaUnsupportedPayload(t *testing.T) {
	_inst, _ := setupRuntime(t, "sqs")
	_, err := _inst.Lambda(context.Background(), []byte(`{}`))
	assert.Error(t, err)
}

func TestLambdaForEvent(t *testing.T) {
	_inst, n := setupRuntime(t, runtime.PayloadAPIGatewayV2)
	resp, err := _inst.LambdaForEvent(context.Background(), models.Event{
		ID:         "d-1",
		DetailType: "push",
		Source:     "github.com",
		Detail:     json.RawMessage(pushPayload),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, []string{"C1"}, n.channels)
}
