package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPush_SendsAuthorizedRequest(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer channel-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewLineClient("channel-token").WithEndpoint(srv.URL)
	err := c.Push(context.Background(), "U12345", []Message{{Type: "text", Text: "hello"}})
	require.NoError(t, err)

	assert.Equal(t, "U12345", captured["to"])
	messages := captured["messages"].([]any)
	require.Len(t, messages, 1)
	assert.Equal(t, "text", messages[0].(map[string]any)["type"])
}

func TestPush_NonSuccessStatusFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewLineClient("bad-token").WithEndpoint(srv.URL)
	err := c.Push(context.Background(), "U12345", []Message{{Type: "text", Text: "hello"}})
	require.ErrorIs(t, err, ErrPushFailed)
}

func TestPush_EmptyMessagesIsNoOp(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := NewLineClient("token").WithEndpoint(srv.URL)
	require.NoError(t, c.Push(context.Background(), "U12345", nil))
	assert.False(t, called)
}

func TestRecommendationReadyMessages_LinksResultPage(t *testing.T) {
	name := "Aiko"
	occasion := "birthday"
	messages := RecommendationReadyMessages("https://app.example.com/", "gift-123", &name, &occasion)

	require.Len(t, messages, 2)
	assert.Equal(t, "text", messages[0].Type)
	assert.Equal(t, "flex", messages[1].Type)

	raw, err := json.Marshal(messages[1].Contents)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "https://app.example.com/gift/result/gift-123")
	assert.Contains(t, string(raw), "Aiko")
	assert.Contains(t, string(raw), "birthday")
}

func TestRecommendationReadyMessages_DefaultsWithoutRecipient(t *testing.T) {
	messages := RecommendationReadyMessages("https://app.example.com", "gift-123", nil, nil)
	raw, err := json.Marshal(messages[1].Contents)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "your recipient")
}
