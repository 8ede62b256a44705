package redactor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aman-churiwal/redaction-gateway/internal/config"
)

func testClientConfig(baseURL string) config.RedactorConfig {
	return config.RedactorConfig{
		Enabled:         true,
		BaseURL:         baseURL,
		APIKey:          "test-key",
		Model:           "test-model",
		TimeoutSeconds:  5,
		MaxOutputTokens: 256,
	}
}

func TestRedactDisabledWithoutCredential(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	cfg := testClientConfig(server.URL)
	cfg.APIKey = ""
	client := NewClient(cfg)

	require.False(t, client.Enabled())

	_, err := client.Redact(context.Background(), "body", "text/plain")
	require.ErrorIs(t, err, ErrDisabled)
	require.ErrorIs(t, err, ErrRedactionFailed)
	require.Equal(t, int32(0), atomic.LoadInt32(&calls), "disabled client must not touch the network")
}

func TestRedactPrimaryChatShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "test-model", payload["model"])
		messages := payload["messages"].([]interface{})
		require.Len(t, messages, 2)
		require.Equal(t, "system", messages[0].(map[string]interface{})["role"])
		require.Equal(t, `{"ssn":"123-45-6789"}`, messages[1].(map[string]interface{})["content"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"ssn\":\"********\"}"}}]}`))
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL))

	redacted, err := client.Redact(context.Background(), `{"ssn":"123-45-6789"}`, "application/json")
	require.NoError(t, err)
	require.Equal(t, `{"ssn":"********"}`, redacted)
}

func TestRedactFallsBackToResponsesShapeOn404(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/chat/completions":
			w.WriteHeader(http.StatusNotFound)
		case "/responses":
			var payload map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			require.NotNil(t, payload["input"])
			require.NotNil(t, payload["max_output_tokens"])

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"output_text":"redacted text"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL))

	redacted, err := client.Redact(context.Background(), "body", "text/plain")
	require.NoError(t, err)
	require.Equal(t, "redacted text", redacted)
}

func TestRedactParsesOutputPartsShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"output":[{"content":[{"text":"redact"},{"text":"ed"}]}]}`))
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL))

	redacted, err := client.Redact(context.Background(), "body", "text/plain")
	require.NoError(t, err)
	require.Equal(t, "redacted", redacted)
}

func TestRedactRejectsNonJSONResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>gateway error</html>"))
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL))

	_, err := client.Redact(context.Background(), "body", "text/plain")
	require.ErrorIs(t, err, ErrRedactionFailed)
}

func TestRedactRejectsEmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"  "}}]}`))
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL))

	_, err := client.Redact(context.Background(), "body", "text/plain")
	require.ErrorIs(t, err, ErrRedactionFailed)
}

func TestRedactTimeoutFailsClosed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"output_text":"too late"}`))
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL))
	client.timeout = 20 * time.Millisecond

	_, err := client.Redact(context.Background(), "body", "text/plain")
	require.ErrorIs(t, err, ErrRedactionFailed)
}

func TestRedactBreakerOpensAfterRepeatedFailures(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL))

	for i := 0; i < 5; i++ {
		_, err := client.Redact(context.Background(), "body", "text/plain")
		require.ErrorIs(t, err, ErrRedactionFailed)
	}

	seen := atomic.LoadInt32(&calls)
	_, err := client.Redact(context.Background(), "body", "text/plain")
	require.ErrorIs(t, err, ErrRedactionFailed, "open breaker is still a redaction failure")
	require.Equal(t, seen, atomic.LoadInt32(&calls), "open breaker must not hit the network")
}

func TestSystemPromptServesDefault(t *testing.T) {
	client := NewClient(testClientConfig("http://unused"))
	require.NotEmpty(t, client.SystemPrompt())
	require.Contains(t, client.SystemPrompt(), "redaction filter")
}
