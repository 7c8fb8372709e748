package chatplatform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/botbridge/gateway/internal/gateway/domain"
)

const defaultWhatsAppBaseURL = "https://graph.facebook.com/v19.0"

// WhatsAppAdapter speaks the WhatsApp Business Cloud API.
type WhatsAppAdapter struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewWhatsAppAdapter builds the adapter. baseURL overrides the Graph API
// host for tests; pass "" in production.
func NewWhatsAppAdapter(logger *slog.Logger, baseURL string, httpClient *http.Client) *WhatsAppAdapter {
	if baseURL == "" {
		baseURL = defaultWhatsAppBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &WhatsAppAdapter{
		httpClient: httpClient,
		baseURL:    baseURL,
		logger:     logger.With("adapter", "whatsapp"),
	}
}

func (a *WhatsAppAdapter) Kind() domain.Platform { return domain.PlatformWhatsApp }

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

type whatsAppPhoneNumber struct {
	ID                 string `json:"id"`
	DisplayPhoneNumber string `json:"display_phone_number"`
	VerifiedName       string `json:"verified_name"`
}

// whatsAppWebhookPayload is the Cloud API notification envelope. One payload
// can batch several entries, each carrying several message changes.
type whatsAppWebhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				Contacts []struct {
					WaID    string `json:"wa_id"`
					Profile struct {
						Name string `json:"name"`
					} `json:"profile"`
				} `json:"contacts"`
				Messages []struct {
					From      string `json:"from"`
					ID        string `json:"id"`
					Timestamp string `json:"timestamp"`
					Type      string `json:"type"`
					Text      struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

func (a *WhatsAppAdapter) ValidateCredentials(ctx context.Context, creds domain.Credentials) (*ValidationResult, error) {
	if creds.PhoneNumberID == "" || creds.AccessToken == "" {
		return &ValidationResult{Valid: false, Reason: "phone number id and access token are required"}, nil
	}

	url := fmt.Sprintf("%s/%s?fields=display_phone_number,verified_name", a.baseURL, creds.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building phone number lookup request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling whatsapp phone number lookup: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading phone number lookup response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var ge graphError
		_ = json.Unmarshal(body, &ge)
		a.logger.InfoContext(ctx, "whatsapp rejected credentials", "status_code", resp.StatusCode, "message", ge.Error.Message)
		return &ValidationResult{Valid: false, Reason: ge.Error.Message}, nil
	}

	var pn whatsAppPhoneNumber
	if err := json.Unmarshal(body, &pn); err != nil {
		return nil, fmt.Errorf("decoding phone number lookup response: %w", err)
	}
	return &ValidationResult{
		Valid:       true,
		Identity:    creds.PhoneNumberID,
		DisplayName: pn.VerifiedName,
	}, nil
}

func (a *WhatsAppAdapter) DecodeUpdates(raw []byte) ([]domain.InboundUpdate, error) {
	var payload whatsAppWebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decoding whatsapp webhook payload: %w", err)
	}

	var updates []domain.InboundUpdate
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}

			names := make(map[string]string, len(change.Value.Contacts))
			for _, c := range change.Value.Contacts {
				names[c.WaID] = c.Profile.Name
			}

			for _, m := range change.Value.Messages {
				u := domain.InboundUpdate{
					Kind:              domain.UpdateKindUnknown,
					ChatID:            m.From,
					UserID:            m.From,
					Username:          names[m.From],
					PlatformMessageID: m.ID,
				}
				if m.Type == "text" {
					u.Kind = domain.UpdateKindMessage
					u.Text = m.Text.Body
				}
				updates = append(updates, u)
			}
		}
	}
	return updates, nil
}

func (a *WhatsAppAdapter) Send(ctx context.Context, creds domain.Credentials, chatID, text string) (string, error) {
	reqBody, err := json.Marshal(map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                chatID,
		"type":              "text",
		"text":              map[string]string{"body": text},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling whatsapp send request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", a.baseURL, creds.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("building whatsapp send request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling whatsapp send: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading whatsapp send response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var ge graphError
		_ = json.Unmarshal(body, &ge)
		return "", &domain.DeliveryError{
			Platform:   domain.PlatformWhatsApp,
			ChatID:     chatID,
			StatusCode: resp.StatusCode,
			Reason:     ge.Error.Message,
		}
	}

	var sent struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(body, &sent); err != nil {
		return "", fmt.Errorf("decoding whatsapp send response: %w", err)
	}
	if len(sent.Messages) == 0 {
		return "", fmt.Errorf("whatsapp send response carried no message id")
	}
	return sent.Messages[0].ID, nil
}

// Teardown is a no-op: Cloud API webhook subscriptions live on the Meta app,
// not on individual phone numbers, so there is nothing to deregister per
// integration.
func (a *WhatsAppAdapter) Teardown(ctx context.Context, creds domain.Credentials) error {
	a.logger.InfoContext(ctx, "whatsapp teardown: nothing to deregister", "phone_number_id", creds.PhoneNumberID)
	return nil
}
