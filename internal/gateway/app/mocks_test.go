package app

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/botbridge/gateway/internal/gateway/adapters/chatplatform"
	"github.com/botbridge/gateway/internal/gateway/adapters/modelprovider"
	"github.com/botbridge/gateway/internal/gateway/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- repository mocks ---

type MockIntegrationRepository struct {
	mock.Mock
}

func (m *MockIntegrationRepository) Create(ctx context.Context, integ *domain.Integration) error {
	args := m.Called(ctx, integ)
	return args.Error(0)
}

func (m *MockIntegrationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Integration, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Integration), args.Error(1)
}

func (m *MockIntegrationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.IntegrationStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockIntegrationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepository) RecentByChat(ctx context.Context, integrationID uuid.UUID, chatID string, excludeID uuid.UUID, limit int) ([]*domain.Message, error) {
	args := m.Called(ctx, integrationID, chatID, excludeID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

type MockBotRepository struct {
	mock.Mock
}

func (m *MockBotRepository) MostRecentActive(ctx context.Context, accountID uuid.UUID) (*domain.Bot, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Bot), args.Error(1)
}

type MockExecutionRepository struct {
	mock.Mock
}

func (m *MockExecutionRepository) Create(ctx context.Context, exec *domain.Execution) error {
	args := m.Called(ctx, exec)
	return args.Error(0)
}

// --- provider mocks ---

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) Complete(ctx context.Context, req modelprovider.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, accountID uuid.UUID, provider string) (modelprovider.Provider, error) {
	args := m.Called(ctx, accountID, provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(modelprovider.Provider), args.Error(1)
}

// --- pipeline mocks ---

type MockAdapter struct {
	mock.Mock
	kind domain.Platform
}

func (m *MockAdapter) Kind() domain.Platform { return m.kind }

func (m *MockAdapter) ValidateCredentials(ctx context.Context, creds domain.Credentials) (*chatplatform.ValidationResult, error) {
	args := m.Called(ctx, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chatplatform.ValidationResult), args.Error(1)
}

func (m *MockAdapter) DecodeUpdates(raw []byte) ([]domain.InboundUpdate, error) {
	args := m.Called(raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.InboundUpdate), args.Error(1)
}

func (m *MockAdapter) Send(ctx context.Context, creds domain.Credentials, chatID, text string) (string, error) {
	args := m.Called(ctx, creds, chatID, text)
	return args.String(0), args.Error(1)
}

func (m *MockAdapter) Teardown(ctx context.Context, creds domain.Credentials) error {
	args := m.Called(ctx, creds)
	return args.Error(0)
}

type MockReplier struct {
	mock.Mock
}

func (m *MockReplier) Reply(ctx context.Context, integ *domain.Integration, incoming *domain.Message) (string, error) {
	args := m.Called(ctx, integ, incoming)
	return args.String(0), args.Error(1)
}

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, integ *domain.Integration, chatID, text string) error {
	args := m.Called(ctx, integ, chatID, text)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

// --- fixtures ---

func testIntegration(t *testing.T, platform domain.Platform) *domain.Integration {
	t.Helper()
	now := time.Now().UTC()
	return &domain.Integration{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		Platform:  platform,
		Status:    domain.IntegrationStatusConnected,
		Credentials: domain.Credentials{
			BotToken:      "bot-token",
			WebhookSecret: "hook-secret",
		},
		ExternalID: "12345",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func testBot(accountID uuid.UUID) *domain.Bot {
	now := time.Now().UTC()
	return &domain.Bot{
		ID:           uuid.New(),
		AccountID:    accountID,
		Status:       domain.BotStatusActive,
		Provider:     "openai",
		Model:        "gpt-4o-mini",
		Temperature:  0.7,
		SystemPrompt: "You are a helpful support assistant.",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
