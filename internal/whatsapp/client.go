package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/smallbiznis/blastwave/internal/config"
	"go.uber.org/zap"
)

// Credentials select the tenant channel used for an outbound call.
type Credentials struct {
	PhoneNumberID string
	AccessToken   string
}

// TemplateMessage is one outbound template send.
type TemplateMessage struct {
	To           string
	TemplateName string
	Language     string
	Variables    []string
}

// Client is the outbound boundary to the WhatsApp Cloud API.
type Client interface {
	// SendTemplate pushes one template message and returns the provider
	// message id on success.
	SendTemplate(ctx context.Context, creds Credentials, msg TemplateMessage) (string, error)
	// VerifyCredentials checks that the channel token is still valid.
	VerifyCredentials(ctx context.Context, creds Credentials) error
}

type graphClient struct {
	baseURL string
	version string
	http    *http.Client
	log     *zap.Logger
}

// NewClient builds the Graph API client. The request timeout lives here;
// callers see a timeout as an ordinary send failure.
func NewClient(cfg config.Config, log *zap.Logger) Client {
	timeout := time.Duration(cfg.WhatsApp.SendTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &graphClient{
		baseURL: strings.TrimRight(cfg.WhatsApp.GraphBaseURL, "/"),
		version: strings.Trim(cfg.WhatsApp.GraphVersion, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log.Named("whatsapp.client"),
	}
}

func (c *graphClient) SendTemplate(ctx context.Context, creds Credentials, msg TemplateMessage) (string, error) {
	if strings.TrimSpace(creds.PhoneNumberID) == "" || strings.TrimSpace(creds.AccessToken) == "" {
		return "", ErrChannelNotConfigured
	}
	to := strings.TrimSpace(msg.To)
	if to == "" {
		return "", ErrEmptyRecipient
	}

	language := strings.TrimSpace(msg.Language)
	if language == "" {
		language = "en"
	}

	payload := SendTemplateRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "template",
		Template: &Template{
			Name:     msg.TemplateName,
			Language: Language{Code: language},
		},
	}
	if len(msg.Variables) > 0 {
		parameters := make([]Parameter, 0, len(msg.Variables))
		for _, value := range msg.Variables {
			parameters = append(parameters, Parameter{Type: "text", Text: value})
		}
		payload.Template.Components = []Component{{Type: "body", Parameters: parameters}}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/%s/%s/messages", c.baseURL, c.version, creds.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", decodeSendError(resp.StatusCode, raw)
	}

	var parsed SendResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode send response: %w", err)
	}
	if len(parsed.Messages) == 0 || strings.TrimSpace(parsed.Messages[0].ID) == "" {
		return "", fmt.Errorf("send response missing message id")
	}
	return parsed.Messages[0].ID, nil
}

func (c *graphClient) VerifyCredentials(ctx context.Context, creds Credentials) error {
	if strings.TrimSpace(creds.PhoneNumberID) == "" || strings.TrimSpace(creds.AccessToken) == "" {
		return ErrChannelNotConfigured
	}

	url := fmt.Sprintf("%s/%s/%s", c.baseURL, c.version, creds.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return decodeSendError(resp.StatusCode, raw)
	}
	return nil
}

func decodeSendError(status int, raw []byte) error {
	var parsed ErrorResponse
	if err := json.Unmarshal(raw, &parsed); err != nil || parsed.Error.Code == 0 {
		return &SendError{
			Code:    status,
			Message: strings.TrimSpace(string(raw)),
			Status:  status,
		}
	}
	return &SendError{
		Code:    parsed.Error.Code,
		Subcode: parsed.Error.Subcode,
		Message: parsed.Error.Message,
		Status:  status,
	}
}
