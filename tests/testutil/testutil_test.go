package testutil

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMockDB(t *testing.T) {
	db := NewMockDB(t)
	defer db.Close()

	require.NotNil(t, db.DB)
	require.NotNil(t, db.Mock)
}

func TestNewTestUUID(t *testing.T) {
	a := NewTestUUID("widget-1")
	b := NewTestUUID("widget-1")
	c := NewTestUUID("widget-2")

	assert.Equal(t, a, b, "same seed should produce same UUID")
	assert.NotEqual(t, a, c, "different seeds should produce different UUIDs")
}

func TestDoJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.POST("/echo", func(c *gin.Context) {
		var body map[string]any
		require.NoError(t, c.ShouldBindJSON(&body))
		c.JSON(http.StatusOK, gin.H{"success": true, "data": body})
	})

	w := DoJSON(t, engine, http.MethodPost, "/echo", map[string]any{"name": "widget"}, nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := AssertSuccessResponse(t, w)
	data, ok := resp["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "widget", data["name"])
}

func TestMockEventHandler(t *testing.T) {
	handler := NewMockEventHandler("test.created")

	assert.Equal(t, []string{"test.created"}, handler.EventTypes())
	assert.Equal(t, 0, handler.HandledCount())

	event := NewTestEvent("test.created")
	require.NoError(t, handler.Handle(t.Context(), event))
	assert.Equal(t, 1, handler.HandledCount())
	assert.Equal(t, event.EventID(), handler.Handled()[0].EventID())

	handler.SetError(errors.New("boom"))
	assert.Error(t, handler.Handle(t.Context(), event))

	handler.Reset()
	assert.Equal(t, 0, handler.HandledCount())
	assert.NoError(t, handler.Handle(t.Context(), event))
}

func TestWaitForEventCount(t *testing.T) {
	handler := NewMockEventHandler("test.created")

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = handler.Handle(t.Context(), NewTestEvent("test.created"))
	}()

	assert.True(t, WaitForEventCount(t, handler, 1, time.Second))
	assert.False(t, WaitForEventCount(t, handler, 2, 50*time.Millisecond))
}
