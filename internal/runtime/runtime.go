// Package runtime adapts the webhook handler to net/http and to the AWS Lambda payload types.
package runtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/collaby/collaby-bot/internal/handler"
	"github.com/collaby/collaby-bot/internal/handler/processor"
	"github.com/collaby/collaby-bot/internal/helpers"
	"github.com/collaby/collaby-bot/internal/models"
	"github.com/pkg/errors"
)

const (
	PayloadAPIGatewayV1 = "api-gateway-v1"
	PayloadAPIGatewayV2 = "api-gateway-v2"
	PayloadLambdaURL    = "lambda-url"
)

// maxBodyBytes matches the GitHub webhook payload cap.
const maxBodyBytes = 25 << 20

type Option func(*Runtime)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		r.logger = logger
	}
}

type Runtime struct {
	*handler.Handler
	logger *slog.Logger
}

// NewRuntime creates a new runtime instance
func NewRuntime(handler *handler.Handler, opts ...Option) *Runtime {
	_inst := &Runtime{Handler: handler}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	return _inst
}

// HandleEvent processes a request already decoded from a lambda payload and shapes the answer for payloadType.
func (r *Runtime) HandleEvent(req models.Request, payloadType string) (response any, err error) {
	r.logger.Info("received lambda request", slog.String("payloadType", payloadType))

	// Lower-case incoming headers for compatibility purposes
	lch := make(map[string]string, len(req.Headers))
	for k, v := range req.Headers {
		lch[strings.ToLower(k)] = v
	}

	bus, err := r.Handler.Process([]byte(req.Body), lch)
	body := responseBody(bus.Response, err)

	switch payloadType {
	case PayloadAPIGatewayV1:
		return events.APIGatewayProxyResponse{Body: body, StatusCode: statusOf(bus.Response)}, nil
	case PayloadAPIGatewayV2:
		return events.APIGatewayV2HTTPResponse{Body: body, StatusCode: statusOf(bus.Response)}, nil
	case PayloadLambdaURL:
		return events.LambdaFunctionURLResponse{Body: body, StatusCode: statusOf(bus.Response)}, nil
	default:
		return nil, fmt.Errorf("unsupported lambda payload type: %s", payloadType)
	}
}

// Lambda is the function-URL and API Gateway entrypoint. The payload shape follows the configured payload type.
func (r *Runtime) Lambda(_ context.Context, payload json.RawMessage) (any, error) {
	payloadType := r.Handler.GetLambdaPayloadType()
	req, err := DecodeRequest(payloadType, payload)
	if err != nil {
		r.logger.Error("failed to decode lambda payload", slog.Any("error", err))
		return nil, err
	}
	return r.HandleEvent(req, payloadType)
}

// LambdaForEvent processes a delivery forwarded through EventBridge. The detail type carries the event type.
func (r *Runtime) LambdaForEvent(_ context.Context, evt models.Event) (models.Response, error) {
	r.logger.Info("received EventBridge event", slog.String("id", evt.ID), slog.String("detailType", evt.DetailType))
	headers := map[string]string{
		"x-github-event":    evt.DetailType,
		"x-github-delivery": evt.ID,
		"content-type":      "application/json",
		"x-forwarded-for":   evt.Source,
	}
	bus, err := r.Handler.Process(evt.Detail, headers)
	return bus.Response, err
}

// DecodeRequest extracts body and headers from a lambda payload. Base64 bodies are decoded.
func DecodeRequest(payloadType string, payload []byte) (models.Request, error) {
	var (
		body     string
		encoded  bool
		headers  map[string]string
		sourceIP string
	)
	switch payloadType {
	case PayloadAPIGatewayV1:
		var req events.APIGatewayProxyRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return models.Request{}, errors.Wrap(err, "invalid api gateway v1 payload")
		}
		body, encoded, headers, sourceIP = req.Body, req.IsBase64Encoded, req.Headers, req.RequestContext.Identity.SourceIP
	case PayloadAPIGatewayV2:
		var req events.APIGatewayV2HTTPRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return models.Request{}, errors.Wrap(err, "invalid api gateway v2 payload")
		}
		body, encoded, headers, sourceIP = req.Body, req.IsBase64Encoded, req.Headers, req.RequestContext.HTTP.SourceIP
	case PayloadLambdaURL:
		var req events.LambdaFunctionURLRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return models.Request{}, errors.Wrap(err, "invalid function url payload")
		}
		body, encoded, headers, sourceIP = req.Body, req.IsBase64Encoded, req.Headers, req.RequestContext.HTTP.SourceIP
	default:
		return models.Request{}, fmt.Errorf("unsupported lambda payload type: %s", payloadType)
	}

	if encoded {
		raw, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return models.Request{}, errors.Wrap(err, "invalid base64 body")
		}
		body = string(raw)
	}
	out := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		out[strings.ToLower(k)] = v
	}
	if _, ok := out["x-forwarded-for"]; !ok && sourceIP != "" {
		out["x-forwarded-for"] = sourceIP
	}
	return models.Request{Body: body, Headers: out}, nil
}

// ServeHTTP is the HTTP handler for the runtime
func (r *Runtime) ServeHTTP(resp http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodPost:
		break
	default:
		r.logger.Debug("rejecting HTTP request...", slog.Any("requestor", req.RemoteAddr), "reason", "method not allowed", slog.Any("method", req.Method))
		helpers.RespondHTTP(models.Response{StatusCode: http.StatusMethodNotAllowed}, nil, resp)
		return
	}

	r.logger.Debug("received HTTP request...", slog.Any("requestor", req.RemoteAddr), slog.Any("method", req.Method), slog.Any("path", req.URL.Path))
	headers := make(map[string]string)
	for k, v := range req.Header {
		headers[strings.ToLower(k)] = v[0]
	}
	if _, ok := headers["x-forwarded-for"]; !ok {
		headers["x-forwarded-for"] = handler.RemoteHost(req.RemoteAddr)
	}

	body, err := io.ReadAll(http.MaxBytesReader(resp, req.Body, maxBodyBytes))
	if err != nil {
		r.logger.Error("failed to read request body", slog.Any("error", err))
		helpers.RespondHTTP(models.Response{StatusCode: http.StatusRequestEntityTooLarge}, err, resp)
		return
	}
	bus, err := r.Handler.Process(body, headers)
	helpers.RespondHTTP(bus.Response, publicError(err), resp)
}

// publicError hides pipeline internals from the sender.
func publicError(err error) error {
	var internal *processor.InternalError
	if errors.As(err, &internal) {
		return internal.Cause
	}
	return err
}

func statusOf(resp models.Response) int {
	if resp.StatusCode == 0 {
		return http.StatusOK
	}
	return resp.StatusCode
}

func responseBody(resp models.Response, err error) string {
	out := struct {
		Message string `json:"message"`
		Report  any    `json:"report,omitempty"`
		Error   string `json:"error,omitempty"`
	}{Message: resp.Body, Report: resp.Report}
	if err != nil {
		out.Error = publicError(err).Error()
	}
	b, _ := json.Marshal(out)
	return string(b)
}
