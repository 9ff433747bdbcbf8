package telegram_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mael-bomane/earn-bot/internal/integrations/telegram"
)

func TestClient_SendMessage(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	}))
	defer srv.Close()

	c := telegram.NewClient("TOKEN", telegram.WithBaseURL(srv.URL+"/"))
	require.NoError(t, c.SendMessage(context.Background(), 12345, "<b>hi</b>"))

	assert.Equal(t, float64(12345), got["chat_id"])
	assert.Equal(t, "<b>hi</b>", got["text"])
	assert.Equal(t, "HTML", got["parse_mode"])
	assert.Equal(t, true, got["disable_web_page_preview"])
}

func TestClient_SendMessageAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`))
	}))
	defer srv.Close()

	c := telegram.NewClient("TOKEN", telegram.WithBaseURL(srv.URL))
	err := c.SendMessage(context.Background(), 1, "hello")
	require.Error(t, err)

	var apiErr *telegram.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.Code)
	assert.Equal(t, "sendMessage", apiErr.Method)
	assert.Contains(t, apiErr.Error(), "blocked")
}

func TestClient_SendMessageBadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	}))
	defer srv.Close()

	c := telegram.NewClient("TOKEN", telegram.WithBaseURL(srv.URL))
	err := c.SendMessage(context.Background(), 1, "hello")
	assert.ErrorContains(t, err, "HTTP 502")
}

func TestClient_GetMe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/getMe", r.URL.Path)
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":99,"is_bot":true,"first_name":"Earn","username":"earn_alerts_bot"}}`))
	}))
	defer srv.Close()

	c := telegram.NewClient("TOKEN", telegram.WithBaseURL(srv.URL))
	name, err := c.GetMe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "earn_alerts_bot", name)
}
