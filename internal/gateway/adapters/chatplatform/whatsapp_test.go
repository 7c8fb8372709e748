package chatplatform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botbridge/gateway/internal/gateway/domain"
)

const whatsAppBatchPayload = `{
	"object": "whatsapp_business_account",
	"entry": [{
		"id": "waba-1",
		"changes": [{
			"field": "messages",
			"value": {
				"contacts": [
					{"wa_id": "15551230001", "profile": {"name": "Alice"}},
					{"wa_id": "15551230002", "profile": {"name": "Bob"}}
				],
				"messages": [
					{"from": "15551230001", "id": "wamid.1", "timestamp": "1700000000", "type": "text", "text": {"body": "hello"}},
					{"from": "15551230002", "id": "wamid.2", "timestamp": "1700000001", "type": "image"},
					{"from": "15551230001", "id": "wamid.3", "timestamp": "1700000002", "type": "text", "text": {"body": "anyone there?"}}
				]
			}
		}]
	}]
}`

func TestWhatsAppAdapter_DecodeUpdates_Batch(t *testing.T) {
	a := NewWhatsAppAdapter(discardLogger(), "", nil)

	updates, err := a.DecodeUpdates([]byte(whatsAppBatchPayload))
	require.NoError(t, err)
	require.Len(t, updates, 3)

	assert.Equal(t, domain.UpdateKindMessage, updates[0].Kind)
	assert.Equal(t, "15551230001", updates[0].ChatID)
	assert.Equal(t, "Alice", updates[0].Username)
	assert.Equal(t, "hello", updates[0].Text)
	assert.Equal(t, "wamid.1", updates[0].PlatformMessageID)
	assert.True(t, updates[0].IsActionable())

	// Non-text media updates decode but never produce a reply.
	assert.Equal(t, domain.UpdateKindUnknown, updates[1].Kind)
	assert.False(t, updates[1].IsActionable())

	assert.Equal(t, "anyone there?", updates[2].Text)
	assert.True(t, updates[2].IsActionable())
}

func TestWhatsAppAdapter_DecodeUpdates_IsPure(t *testing.T) {
	a := NewWhatsAppAdapter(discardLogger(), "", nil)

	first, err := a.DecodeUpdates([]byte(whatsAppBatchPayload))
	require.NoError(t, err)
	second, err := a.DecodeUpdates([]byte(whatsAppBatchPayload))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestWhatsAppAdapter_DecodeUpdates_IgnoresNonMessageChanges(t *testing.T) {
	a := NewWhatsAppAdapter(discardLogger(), "", nil)
	raw := []byte(`{"object":"whatsapp_business_account","entry":[{"changes":[{"field":"statuses","value":{}}]}]}`)

	updates, err := a.DecodeUpdates(raw)
	require.NoError(t, err)
	assert.Empty(t, updates)
}

func TestWhatsAppAdapter_Send_Success(t *testing.T) {
	var gotAuth, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.out.1"}]}`))
	}))
	defer server.Close()

	a := NewWhatsAppAdapter(discardLogger(), server.URL, server.Client())
	creds := domain.Credentials{PhoneNumberID: "phone-1", AccessToken: "token-1"}

	id, err := a.Send(context.Background(), creds, "15551230001", "hi there")
	require.NoError(t, err)
	assert.Equal(t, "wamid.out.1", id)
	assert.Equal(t, "Bearer token-1", gotAuth)
	assert.Equal(t, "/phone-1/messages", gotPath)
}

func TestWhatsAppAdapter_Send_PlatformRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token","type":"OAuthException","code":190}}`))
	}))
	defer server.Close()

	a := NewWhatsAppAdapter(discardLogger(), server.URL, server.Client())
	_, err := a.Send(context.Background(), domain.Credentials{PhoneNumberID: "p", AccessToken: "t"}, "15551230001", "hi")

	require.Error(t, err)
	assert.True(t, domain.IsDeliveryError(err))
	assert.Contains(t, err.Error(), "Invalid OAuth access token")
}

func TestWhatsAppAdapter_ValidateCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer good" {
			_, _ = w.Write([]byte(`{"id":"phone-1","display_phone_number":"+1 555 123 0000","verified_name":"Acme Support"}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token","code":190}}`))
	}))
	defer server.Close()

	a := NewWhatsAppAdapter(discardLogger(), server.URL, server.Client())

	res, err := a.ValidateCredentials(context.Background(), domain.Credentials{PhoneNumberID: "phone-1", AccessToken: "good"})
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, "phone-1", res.Identity)
	assert.Equal(t, "Acme Support", res.DisplayName)

	res, err = a.ValidateCredentials(context.Background(), domain.Credentials{PhoneNumberID: "phone-1", AccessToken: "bad"})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "Invalid OAuth access token", res.Reason)

	res, err = a.ValidateCredentials(context.Background(), domain.Credentials{})
	require.NoError(t, err)
	assert.False(t, res.Valid)
}

func TestWhatsAppAdapter_Teardown_IsNoOp(t *testing.T) {
	a := NewWhatsAppAdapter(discardLogger(), "", nil)
	assert.NoError(t, a.Teardown(context.Background(), domain.Credentials{PhoneNumberID: "p"}))
}

func TestRegistry_For(t *testing.T) {
	tg := NewTelegramAdapter(discardLogger(), "", nil)
	wa := NewWhatsAppAdapter(discardLogger(), "", nil)
	registry := NewRegistry(tg, wa)

	a, err := registry.For(domain.PlatformTelegram)
	require.NoError(t, err)
	assert.Same(t, tg, a)

	a, err = registry.For(domain.PlatformWhatsApp)
	require.NoError(t, err)
	assert.Same(t, wa, a)

	_, err = registry.For(domain.Platform("carrier-pigeon"))
	assert.Error(t, err)
}
