package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/uxray-ai/uxray/internal/core"
)

func chatReply(content string) string {
	reply := map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"content": content}},
		},
	}
	data, _ := json.Marshal(reply)
	return string(data)
}

func TestHTTPProvider_Invoke(t *testing.T) {
	var gotAuth string
	var gotBody chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatReply(`{"summary":"a form"}`)))
	}))
	defer server.Close()

	p := New("gpt", server.URL, "sk-test", "gpt-4o", true)
	payload, err := p.Invoke(context.Background(), core.InvokeRequest{
		Stage:        core.StageVision,
		SystemPrompt: "you are a vision model",
		Prompt:       "describe the screenshot",
		Image:        []byte("png bytes"),
		ImageType:    "image/png",
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if payload.Vision == nil || payload.Vision.Summary != "a form" {
		t.Errorf("payload = %+v", payload)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if gotBody.Model != "gpt-4o" {
		t.Errorf("model = %q, want gpt-4o", gotBody.Model)
	}
	if len(gotBody.Messages) != 2 || gotBody.Messages[0].Role != "system" {
		t.Fatalf("messages = %+v", gotBody.Messages)
	}
}

func TestHTTPProvider_ImageTravelsAsDataURL(t *testing.T) {
	var raw []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(chatReply(`{"summary":"ok"}`)))
	}))
	defer server.Close()

	p := New("gpt", server.URL, "", "gpt-4o", true)
	_, err := p.Invoke(context.Background(), core.InvokeRequest{
		Stage:     core.StageVision,
		Prompt:    "look",
		Image:     []byte{0x89, 0x50, 0x4e, 0x47},
		ImageType: "image/png",
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if !strings.Contains(string(raw), "data:image/png;base64,") {
		t.Error("request body missing the base64 data URL")
	}
}

func TestHTTPProvider_VisionGuard(t *testing.T) {
	p := New("text-only", "http://unused.invalid", "", "m", false)

	_, err := p.Invoke(context.Background(), core.InvokeRequest{
		Stage: core.StageVision,
		Image: []byte("png"),
	})
	if err == nil {
		t.Fatal("Invoke() error = nil for image input to a non-vision provider")
	}
	if !core.IsCategory(err, core.ErrCatConfig) {
		t.Errorf("category = %s, want config", core.GetCategory(err))
	}
}

func TestHTTPProvider_StatusClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		category  core.ErrorCategory
		retryable bool
	}{
		{"unauthorized", http.StatusUnauthorized, core.ErrCatAuth, false},
		{"forbidden", http.StatusForbidden, core.ErrCatAuth, false},
		{"rate limited", http.StatusTooManyRequests, core.ErrCatProvider, true},
		{"server error", http.StatusInternalServerError, core.ErrCatProvider, true},
		{"unexpected", http.StatusTeapot, core.ErrCatProvider, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			p := New("gpt", server.URL, "key", "m", true)
			_, err := p.Invoke(context.Background(), core.InvokeRequest{
				Stage:  core.StageAnalysis,
				Prompt: "analyze",
			})
			if err == nil {
				t.Fatalf("Invoke() error = nil for status %d", tt.status)
			}
			if !core.IsCategory(err, tt.category) {
				t.Errorf("category = %s, want %s", core.GetCategory(err), tt.category)
			}
			if core.IsRetryable(err) != tt.retryable {
				t.Errorf("retryable = %v, want %v", core.IsRetryable(err), tt.retryable)
			}
		})
	}
}

func TestHTTPProvider_APIErrorField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"message":"model is overloaded","type":"overloaded_error"}}`))
	}))
	defer server.Close()

	p := New("gpt", server.URL, "key", "m", true)
	_, err := p.Invoke(context.Background(), core.InvokeRequest{Stage: core.StageAnalysis, Prompt: "analyze"})
	if err == nil {
		t.Fatal("Invoke() error = nil for an API error body")
	}
	if !strings.Contains(err.Error(), "model is overloaded") {
		t.Errorf("error = %v, want the API error message", err)
	}
}

func TestHTTPProvider_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	p := New("gpt", server.URL, "key", "m", true)
	_, err := p.Invoke(context.Background(), core.InvokeRequest{Stage: core.StageAnalysis, Prompt: "analyze"})
	if err == nil {
		t.Fatal("Invoke() error = nil for an empty choices array")
	}
	if !core.IsRetryable(err) {
		t.Error("empty choices should settle as a retryable provider failure")
	}
}

func TestHTTPProvider_Ping(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		if err := New("gpt", server.URL, "key", "m", true).Ping(context.Background()); err != nil {
			t.Errorf("Ping() error = %v", err)
		}
	})

	t.Run("bad credentials", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		err := New("gpt", server.URL, "bad", "m", true).Ping(context.Background())
		if !core.IsCategory(err, core.ErrCatAuth) {
			t.Errorf("Ping() category = %s, want auth", core.GetCategory(err))
		}
	})
}
