package analyzer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAnalyzeRejectsMissingKey(t *testing.T) {
	g := NewGemini("")
	_, err := g.Analyze(context.Background(), Request{Data: []byte{1}, MIME: "audio/wav"})
	var aerr *Error
	if !errors.As(err, &aerr) || aerr.Kind != KindMissingKey {
		t.Fatalf("err = %v, want KindMissingKey", err)
	}
}

func TestAnalyzeRejectsNonAudioMIME(t *testing.T) {
	hit := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
	}))
	defer srv.Close()

	g := NewGemini("")
	g.apiURL = srv.URL

	_, err := g.Analyze(context.Background(), Request{
		Data: []byte{1}, MIME: "image/png", APIKey: "AIzaTestKey",
	})
	var aerr *Error
	if !errors.As(err, &aerr) || aerr.Kind != KindInvalidInput {
		t.Fatalf("err = %v, want KindInvalidInput", err)
	}
	if hit {
		t.Fatal("non-audio input must fail before any network call")
	}
}

func TestAnalyzeSuccess(t *testing.T) {
	const description = "Calm, low-pitched voice with measured pacing."
	audio := []byte{0x01, 0x02, 0x03, 0x04}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-goog-api-key"); got != "AIzaTestKey" {
			t.Errorf("api key header = %q", got)
		}
		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("request decode: %v", err)
		}
		parts := req.Contents[0].Parts
		if parts[0].InlineData == nil {
			t.Fatal("missing inline_data part")
		}
		if parts[0].InlineData.MIMEType != "audio/mpeg" {
			t.Errorf("mime = %q", parts[0].InlineData.MIMEType)
		}
		want := base64.StdEncoding.EncodeToString(audio)
		if parts[0].InlineData.Data != want {
			t.Errorf("audio payload not base64 of input")
		}
		if parts[1].Text == "" {
			t.Error("missing instruction part")
		}

		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]string{{"text": description}},
				},
			}},
		})
	}))
	defer srv.Close()

	g := NewGemini("")
	g.apiURL = srv.URL

	res, err := g.Analyze(context.Background(), Request{
		Data: audio, MIME: "audio/mpeg", APIKey: "AIzaTestKey",
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Description != description {
		t.Errorf("Description = %q", res.Description)
	}
	if res.Metrics == nil {
		t.Error("expected network metrics")
	}
}

func TestClassify(t *testing.T) {
	apiErr := func(status int, code int, apiStatus, msg string) error {
		body, _ := json.Marshal(map[string]any{
			"error": map[string]any{"code": code, "status": apiStatus, "message": msg},
		})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			w.Write(body)
		}))
		defer srv.Close()

		g := NewGemini("")
		g.apiURL = srv.URL
		_, err := g.Analyze(context.Background(), Request{
			Data: []byte{1}, MIME: "audio/wav", APIKey: "AIzaTestKey",
		})
		return err
	}

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"invalid key", apiErr(400, 400, "INVALID_ARGUMENT", "API key not valid. Please pass a valid API key."), KindInvalidKey},
		{"quota", apiErr(429, 429, "RESOURCE_EXHAUSTED", "Quota exceeded for requests"), KindQuota},
		{"bad request", apiErr(400, 400, "INVALID_ARGUMENT", "Unable to process input audio"), KindBadRequest},
		{"server error", apiErr(500, 500, "INTERNAL", "Internal error"), KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var aerr *Error
			if !errors.As(tt.err, &aerr) {
				t.Fatalf("err = %v, want *Error", tt.err)
			}
			if aerr.Kind != tt.want {
				t.Errorf("Kind = %d, want %d", aerr.Kind, tt.want)
			}
			if aerr.Error() != userMessages[tt.want] {
				t.Errorf("message = %q, want fixed sentence", aerr.Error())
			}
			if errors.Unwrap(aerr) == nil {
				t.Error("technical cause must stay wrapped for the log")
			}
		})
	}
}

func TestDetailKeepsTechnicalCause(t *testing.T) {
	const apiMsg = "Quota exceeded for quota metric 'Generate Content API requests per minute'"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(429)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 429, "status": "RESOURCE_EXHAUSTED", "message": apiMsg},
		})
	}))
	defer srv.Close()

	g := NewGemini("")
	g.apiURL = srv.URL
	_, err := g.Analyze(context.Background(), Request{
		Data: []byte{1}, MIME: "audio/wav", APIKey: "AIzaTestKey",
	})
	if err == nil {
		t.Fatal("expected error")
	}

	if strings.Contains(err.Error(), apiMsg) {
		t.Errorf("Error() = %q, must show only the fixed sentence", err.Error())
	}
	detail := Detail(err)
	for _, want := range []string{"429", "RESOURCE_EXHAUSTED", apiMsg} {
		if !strings.Contains(detail, want) {
			t.Errorf("Detail() = %q, missing %q", detail, want)
		}
	}
	if !strings.Contains(detail, userMessages[KindQuota]) {
		t.Errorf("Detail() = %q, missing the user sentence", detail)
	}
}

func TestEmptyCandidateIsUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	g := NewGemini("")
	g.apiURL = srv.URL
	_, err := g.Analyze(context.Background(), Request{
		Data: []byte{1}, MIME: "audio/wav", APIKey: "AIzaTestKey",
	})
	var aerr *Error
	if !errors.As(err, &aerr) || aerr.Kind != KindUnknown {
		t.Fatalf("err = %v, want KindUnknown", err)
	}
}
