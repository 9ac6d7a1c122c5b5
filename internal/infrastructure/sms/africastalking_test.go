package sms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/infrastructure/config"
)

func TestAfricasTalkingSender_Send(t *testing.T) {
	t.Run("successful delivery returns message ID", func(t *testing.T) {
		var gotForm map[string]string
		var gotAPIKey string

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/version1/messaging", r.URL.Path)
			require.NoError(t, r.ParseForm())
			gotAPIKey = r.Header.Get("apiKey")
			gotForm = map[string]string{
				"username": r.PostFormValue("username"),
				"to":       r.PostFormValue("to"),
				"message":  r.PostFormValue("message"),
				"from":     r.PostFormValue("from"),
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{
				"SMSMessageData": {
					"Message": "Sent to 1/1",
					"Recipients": [
						{"number": "+254700000001", "status": "Success", "statusCode": 101, "messageId": "ATXid_abc123", "cost": "KES 0.80"}
					]
				}
			}`))
		}))
		defer server.Close()

		sender := newTestSender(t, server.URL)

		messageID, err := sender.Send(context.Background(), "+254700000001", "Your order ORD-1 is confirmed")
		require.NoError(t, err)
		assert.Equal(t, "ATXid_abc123", messageID)
		assert.Equal(t, "test-key", gotAPIKey)
		assert.Equal(t, "sandbox", gotForm["username"])
		assert.Equal(t, "+254700000001", gotForm["to"])
		assert.Equal(t, "Your order ORD-1 is confirmed", gotForm["message"])
		assert.Equal(t, "STOREFRONT", gotForm["from"])
	})

	t.Run("rejected recipient returns error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"SMSMessageData": {
					"Message": "Sent to 0/1",
					"Recipients": [
						{"number": "+254700000002", "status": "InvalidPhoneNumber", "statusCode": 403}
					]
				}
			}`))
		}))
		defer server.Close()

		sender := newTestSender(t, server.URL)

		_, err := sender.Send(context.Background(), "+254700000002", "hello")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "InvalidPhoneNumber")
	})

	t.Run("gateway error status returns error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
		}))
		defer server.Close()

		sender := newTestSender(t, server.URL)

		_, err := sender.Send(context.Background(), "+254700000001", "hello")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 401")
	})

	t.Run("no recipients returns error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"SMSMessageData": {"Message": "InvalidSenderId", "Recipients": []}}`))
		}))
		defer server.Close()

		sender := newTestSender(t, server.URL)

		_, err := sender.Send(context.Background(), "+254700000001", "hello")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "InvalidSenderId")
	})

	t.Run("disabled gateway returns ErrSMSDisabled", func(t *testing.T) {
		sender, err := NewAfricasTalkingSender(&config.SMSConfig{Enabled: false}, zap.NewNop())
		require.NoError(t, err)
		assert.False(t, sender.Enabled())

		_, err = sender.Send(context.Background(), "+254700000001", "hello")
		assert.ErrorIs(t, err, ErrSMSDisabled)
	})

	t.Run("enabled without credentials fails construction", func(t *testing.T) {
		_, err := NewAfricasTalkingSender(&config.SMSConfig{
			Enabled: true,
			BaseURL: "https://example.com",
		}, zap.NewNop())
		require.Error(t, err)
	})
}

func newTestSender(t *testing.T, baseURL string) *AfricasTalkingSender {
	t.Helper()
	sender, err := NewAfricasTalkingSender(&config.SMSConfig{
		Enabled:  true,
		BaseURL:  baseURL,
		APIKey:   "test-key",
		Username: "sandbox",
		SenderID: "STOREFRONT",
		Timeout:  5 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err)
	return sender
}
