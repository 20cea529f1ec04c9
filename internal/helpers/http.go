package helpers

import (
	"encoding/json"
	"net/http"

	"github.com/collaby/collaby-bot/internal/models"
)

type httpResponse struct {
	Message string `json:"message"`
	Report  any    `json:"report,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RespondHTTP writes a models.Response as a JSON document, attaching err when present.
func RespondHTTP(response models.Response, err error, rw http.ResponseWriter) {
	hR := httpResponse{
		Message: response.Body,
		Report:  response.Report,
	}
	if err != nil {
		hR.Error = err.Error()
	}

	respBody, _ := json.Marshal(hR)
	statusCode := response.StatusCode
	if statusCode == 0 {
		statusCode = http.StatusOK
	}
	for k, v := range response.Headers {
		rw.Header().Set(k, v)
	}
	rw.WriteHeader(statusCode)
	_, _ = rw.Write(respBody)
}
