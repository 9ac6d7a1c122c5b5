package notification

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNotification(t *testing.T) {
	t.Run("creates pending notification", func(t *testing.T) {
		n, err := NewNotification(ChannelSMS, TypeOrderCreated, "+254700000001", "", "Your order is in")
		require.NoError(t, err)

		assert.Equal(t, StatusPending, n.Status)
		assert.Equal(t, 0, n.Attempts)
		assert.False(t, n.NextAttempt.After(time.Now()))
	})

	t.Run("rejects unknown channel", func(t *testing.T) {
		_, err := NewNotification("pigeon", TypeOrderCreated, "x", "", "body")
		require.Error(t, err)
	})

	t.Run("rejects empty recipient", func(t *testing.T) {
		_, err := NewNotification(ChannelEmail, TypeWelcome, "", "Hi", "body")
		require.Error(t, err)
	})
}

func TestNotificationLifecycle(t *testing.T) {
	t.Run("mark sent", func(t *testing.T) {
		n, err := NewNotification(ChannelSMS, TypeOrderCreated, "+254700000001", "", "body")
		require.NoError(t, err)

		n.MarkSent("ATXid_123")

		assert.Equal(t, StatusSent, n.Status)
		assert.Equal(t, "ATXid_123", n.ExternalID)
		assert.NotNil(t, n.SentAt)
	})

	t.Run("failures retry with backoff until the limit", func(t *testing.T) {
		n, err := NewNotification(ChannelSMS, TypeOrderCreated, "+254700000001", "", "body")
		require.NoError(t, err)

		n.MarkFailed("gateway timeout")
		assert.Equal(t, StatusPending, n.Status)
		assert.Equal(t, 1, n.Attempts)
		assert.True(t, n.NextAttempt.After(time.Now()))

		n.MarkFailed("gateway timeout")
		assert.Equal(t, StatusPending, n.Status)

		n.MarkFailed("gateway timeout")
		assert.Equal(t, StatusFailed, n.Status)
		assert.Equal(t, MaxAttempts, n.Attempts)
	})

	t.Run("error message is truncated", func(t *testing.T) {
		n, err := NewNotification(ChannelSMS, TypeOrderCreated, "+254700000001", "", "body")
		require.NoError(t, err)

		n.MarkFailed(strings.Repeat("x", 600))
		assert.Len(t, n.ErrorMessage, 500)
	})

	t.Run("requeue resets a failed notification", func(t *testing.T) {
		n, err := NewNotification(ChannelSMS, TypeOrderCreated, "+254700000001", "", "body")
		require.NoError(t, err)

		assert.Error(t, n.Requeue())

		for i := 0; i < MaxAttempts; i++ {
			n.MarkFailed("boom")
		}
		require.NoError(t, n.Requeue())
		assert.Equal(t, StatusPending, n.Status)
		assert.Equal(t, 0, n.Attempts)
	})
}

func TestTemplateRender(t *testing.T) {
	t.Run("renders placeholders", func(t *testing.T) {
		tmpl, err := NewTemplate(TypeOrderCreated, ChannelEmail,
			"Order {{.OrderNumber}} received",
			"Hi {{.Name}}, your order {{.OrderNumber}} totals {{.Total}}.")
		require.NoError(t, err)

		subject, body, err := tmpl.Render(map[string]any{
			"OrderNumber": "ORD-A1B2C3D4",
			"Name":        "Jane",
			"Total":       "KES 1,999.00",
		})
		require.NoError(t, err)
		assert.Equal(t, "Order ORD-A1B2C3D4 received", subject)
		assert.Contains(t, body, "Hi Jane")
		assert.Contains(t, body, "ORD-A1B2C3D4")
	})

	t.Run("rejects unparsable body", func(t *testing.T) {
		_, err := NewTemplate(TypeWelcome, ChannelEmail, "", "Hello {{.Name")
		require.Error(t, err)
	})

	t.Run("update validates before replacing", func(t *testing.T) {
		tmpl, err := NewTemplate(TypeWelcome, ChannelSMS, "", "Welcome {{.Name}}")
		require.NoError(t, err)

		require.Error(t, tmpl.UpdateContent("", "broken {{.Name"))
		assert.Equal(t, "Welcome {{.Name}}", tmpl.Body)

		require.NoError(t, tmpl.UpdateContent("", "Karibu {{.Name}}"))
		assert.Equal(t, "Karibu {{.Name}}", tmpl.Body)
	})
}
