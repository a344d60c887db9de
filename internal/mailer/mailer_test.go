package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSend(t *testing.T) {
	var got map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/emails", r.URL.Path)
		require.Equal(t, "Bearer resend-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	m := New("resend-key", "shop@example.com")
	m.BaseURL = ts.URL

	require.NoError(t, m.Send(context.Background(), "writer@example.com", "Payment received", "<p>hi</p>"))
	require.Equal(t, "shop@example.com", got["from"])
	require.Equal(t, []any{"writer@example.com"}, got["to"])
	require.Equal(t, "Payment received", got["subject"])
}

func TestSendWithoutAPIKeyIsNoOp(t *testing.T) {
	m := New("", "shop@example.com")
	require.NoError(t, m.Send(context.Background(), "writer@example.com", "subject", "body"))
}
