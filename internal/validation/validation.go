// Package validation verifies that webhook deliveries were signed with the shared secret.
package validation

import (
	"mime"
	"strings"

	"github.com/google/go-github/v84/github"
	"github.com/pkg/errors"
)

var (
	ErrMissingSecret    = errors.New("missing webhook secret")
	ErrMissingSignature = errors.New("missing HMAC-SHA256 signature")
)

// WebhookSecret is the secret shared with GitHub when a hook is registered.
type WebhookSecret string

// NewWebhookSecret returns nil for an empty secret so that callers can skip validation.
func NewWebhookSecret(secret string) *WebhookSecret {
	if secret == "" {
		return nil
	}
	s := WebhookSecret(secret)
	return &s
}

// ValidateSignature checks the HMAC-SHA256 signature of body. Header keys are expected in lower case.
func (s *WebhookSecret) ValidateSignature(body []byte, headers map[string]string) error {
	if s == nil {
		return ErrMissingSecret
	}
	signature, found := headers[strings.ToLower(github.SHA256SignatureHeader)]
	if !found {
		return ErrMissingSignature
	}

	mediaType, _, err := mime.ParseMediaType(headers["content-type"])
	if err != nil || mediaType != "application/json" {
		return errors.Errorf("unsupported content type: %s", headers["content-type"])
	}

	return errors.Wrap(github.ValidateSignature(signature, body, []byte(*s)), "signature mismatch")
}
