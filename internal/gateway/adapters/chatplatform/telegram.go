package chatplatform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/botbridge/gateway/internal/gateway/domain"
)

const defaultTelegramBaseURL = "https://api.telegram.org"

// TelegramAdapter speaks the Telegram Bot API.
type TelegramAdapter struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewTelegramAdapter builds the adapter. baseURL overrides the Bot API host
// for tests; pass "" in production.
func NewTelegramAdapter(logger *slog.Logger, baseURL string, httpClient *http.Client) *TelegramAdapter {
	if baseURL == "" {
		baseURL = defaultTelegramBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &TelegramAdapter{
		httpClient: httpClient,
		baseURL:    baseURL,
		logger:     logger.With("adapter", "telegram"),
	}
}

func (a *TelegramAdapter) Kind() domain.Platform { return domain.PlatformTelegram }

// telegramResponse is the Bot API's uniform envelope.
type telegramResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

type telegramUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

type telegramChat struct {
	ID int64 `json:"id"`
}

type telegramMessage struct {
	MessageID int64         `json:"message_id"`
	From      *telegramUser `json:"from"`
	Chat      telegramChat  `json:"chat"`
	Text      string        `json:"text"`
}

type telegramUpdate struct {
	UpdateID      int64            `json:"update_id"`
	Message       *telegramMessage `json:"message"`
	EditedMessage *telegramMessage `json:"edited_message"`
	CallbackQuery *struct {
		ID      string           `json:"id"`
		From    *telegramUser    `json:"from"`
		Message *telegramMessage `json:"message"`
		Data    string           `json:"data"`
	} `json:"callback_query"`
}

// call posts a Bot API method and decodes the envelope. A non-ok envelope is
// returned alongside a nil error so callers can map it to their own error
// type.
func (a *TelegramAdapter) call(ctx context.Context, token, method string, payload any) (*telegramResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s request: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", a.baseURL, token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading telegram %s response: %w", method, err)
	}

	var tr telegramResponse
	if err := json.Unmarshal(respBody, &tr); err != nil {
		return nil, fmt.Errorf("decoding telegram %s response (status %d): %w", method, resp.StatusCode, err)
	}
	return &tr, nil
}

func (a *TelegramAdapter) ValidateCredentials(ctx context.Context, creds domain.Credentials) (*ValidationResult, error) {
	if creds.BotToken == "" {
		return &ValidationResult{Valid: false, Reason: "bot token is required"}, nil
	}

	resp, err := a.call(ctx, creds.BotToken, "getMe", struct{}{})
	if err != nil {
		return nil, err
	}
	if !resp.OK {
		a.logger.InfoContext(ctx, "telegram rejected credentials", "error_code", resp.ErrorCode, "description", resp.Description)
		return &ValidationResult{Valid: false, Reason: resp.Description}, nil
	}

	var me telegramUser
	if err := json.Unmarshal(resp.Result, &me); err != nil {
		return nil, fmt.Errorf("decoding getMe result: %w", err)
	}
	return &ValidationResult{
		Valid:       true,
		Identity:    strconv.FormatInt(me.ID, 10),
		DisplayName: me.Username,
	}, nil
}

func (a *TelegramAdapter) DecodeUpdates(raw []byte) ([]domain.InboundUpdate, error) {
	var upd telegramUpdate
	if err := json.Unmarshal(raw, &upd); err != nil {
		return nil, fmt.Errorf("decoding telegram update: %w", err)
	}

	switch {
	case upd.Message != nil:
		return []domain.InboundUpdate{fromTelegramMessage(domain.UpdateKindMessage, upd.Message)}, nil
	case upd.EditedMessage != nil:
		return []domain.InboundUpdate{fromTelegramMessage(domain.UpdateKindEdited, upd.EditedMessage)}, nil
	case upd.CallbackQuery != nil:
		u := domain.InboundUpdate{Kind: domain.UpdateKindCallback, Text: upd.CallbackQuery.Data}
		if upd.CallbackQuery.From != nil {
			u.UserID = strconv.FormatInt(upd.CallbackQuery.From.ID, 10)
			u.Username = upd.CallbackQuery.From.Username
		}
		if upd.CallbackQuery.Message != nil {
			u.ChatID = strconv.FormatInt(upd.CallbackQuery.Message.Chat.ID, 10)
		}
		return []domain.InboundUpdate{u}, nil
	default:
		return []domain.InboundUpdate{{Kind: domain.UpdateKindUnknown}}, nil
	}
}

func fromTelegramMessage(kind domain.UpdateKind, m *telegramMessage) domain.InboundUpdate {
	u := domain.InboundUpdate{
		Kind:              kind,
		ChatID:            strconv.FormatInt(m.Chat.ID, 10),
		Text:              m.Text,
		PlatformMessageID: strconv.FormatInt(m.MessageID, 10),
	}
	if m.From != nil {
		u.UserID = strconv.FormatInt(m.From.ID, 10)
		u.Username = m.From.Username
		if u.Username == "" {
			u.Username = m.From.FirstName
		}
	}
	return u
}

func (a *TelegramAdapter) Send(ctx context.Context, creds domain.Credentials, chatID, text string) (string, error) {
	resp, err := a.call(ctx, creds.BotToken, "sendMessage", map[string]string{
		"chat_id": chatID,
		"text":    text,
	})
	if err != nil {
		return "", err
	}
	if !resp.OK {
		return "", &domain.DeliveryError{
			Platform:   domain.PlatformTelegram,
			ChatID:     chatID,
			StatusCode: resp.ErrorCode,
			Reason:     resp.Description,
		}
	}

	var sent telegramMessage
	if err := json.Unmarshal(resp.Result, &sent); err != nil {
		return "", fmt.Errorf("decoding sendMessage result: %w", err)
	}
	return strconv.FormatInt(sent.MessageID, 10), nil
}

// RegisterWebhook points the bot's webhook at url with a secret token the
// receiver later compares on every delivery.
func (a *TelegramAdapter) RegisterWebhook(ctx context.Context, creds domain.Credentials, url, secret string) error {
	resp, err := a.call(ctx, creds.BotToken, "setWebhook", map[string]string{
		"url":          url,
		"secret_token": secret,
	})
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("telegram setWebhook failed: %s", resp.Description)
	}
	return nil
}

func (a *TelegramAdapter) Teardown(ctx context.Context, creds domain.Credentials) error {
	resp, err := a.call(ctx, creds.BotToken, "deleteWebhook", struct{}{})
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("telegram deleteWebhook failed: %s", resp.Description)
	}
	return nil
}
