package analyzer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const DefaultModel = "gemini-2.5-flash"

// instruction is the prompt sent alongside the clip. The response is
// meant to be pasted straight into a TTS style field.
const instruction = "Listen to this voice recording and describe the " +
	"speaker's vocal tone: pitch, pacing, energy, warmth, accent and " +
	"delivery style. Answer with one compact paragraph phrased as a " +
	"style instruction for a text-to-speech voice (for example: " +
	"\"Warm, unhurried voice with a slight rasp, falling intonation " +
	"and long pauses between phrases\"). Do not transcribe the words."

type Gemini struct {
	model  string
	apiURL string
	client *TracedClient
}

func NewGemini(model string) *Gemini {
	if model == "" {
		model = DefaultModel
	}
	return &Gemini{
		model: model,
		apiURL: fmt.Sprintf(
			"https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent", model),
		client: NewTracedClient(),
	}
}

func (g *Gemini) Name() string { return "gemini/" + g.model }

// Warm opens the TLS connection ahead of the first analysis.
func (g *Gemini) Warm() { g.client.Warm(g.apiURL) }

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
	Text       string            `json:"text,omitempty"`
}

type geminiInlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (g *Gemini) Analyze(ctx context.Context, req Request) (*Result, error) {
	if req.APIKey == "" {
		return nil, newError(KindMissingKey, nil)
	}
	if !strings.HasPrefix(req.MIME, "audio/") {
		return nil, newError(KindInvalidInput, fmt.Errorf("mime type %q", req.MIME))
	}

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{
				{InlineData: &geminiInlineData{
					MIMEType: req.MIME,
					Data:     base64.StdEncoding.EncodeToString(req.Data),
				}},
				{Text: instruction},
			},
		}},
	})
	if err != nil {
		return nil, newError(KindUnknown, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", g.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, newError(KindUnknown, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", req.APIKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, newError(KindUnknown, err)
	}

	var gResp geminiResponse
	if err := json.Unmarshal(resp.Body, &gResp); err != nil && resp.StatusCode == 200 {
		return nil, newError(KindUnknown, fmt.Errorf("response parse error: %w", err))
	}

	if resp.StatusCode != 200 {
		return nil, classify(resp.StatusCode, &gResp, resp.Body)
	}
	if gResp.Error != nil {
		return nil, classify(gResp.Error.Code, &gResp, resp.Body)
	}

	var text strings.Builder
	if len(gResp.Candidates) > 0 {
		for _, p := range gResp.Candidates[0].Content.Parts {
			text.WriteString(p.Text)
		}
	}
	description := strings.TrimSpace(text.String())
	if description == "" {
		return nil, newError(KindUnknown, fmt.Errorf("empty candidate in response"))
	}

	return &Result{
		Description: description,
		Metrics:     resp.Metrics,
		Lines:       formatMetrics(len(req.Data), resp.Metrics),
	}, nil
}

// classify maps a failed call onto the error taxonomy by status code and
// known substrings of the API's error payload.
func classify(status int, gResp *geminiResponse, raw []byte) *Error {
	msg := string(raw)
	apiStatus := ""
	if gResp != nil && gResp.Error != nil {
		msg = gResp.Error.Message
		apiStatus = gResp.Error.Status
	}
	cause := fmt.Errorf("gemini API error %d %s: %s", status, apiStatus, msg)

	switch {
	case strings.Contains(msg, "API key not valid"),
		strings.Contains(msg, "API_KEY_INVALID"),
		apiStatus == "PERMISSION_DENIED",
		status == 401, status == 403:
		return newError(KindInvalidKey, cause)
	case apiStatus == "RESOURCE_EXHAUSTED",
		strings.Contains(strings.ToLower(msg), "quota"),
		status == 429:
		return newError(KindQuota, cause)
	case apiStatus == "INVALID_ARGUMENT", status == 400:
		return newError(KindBadRequest, cause)
	default:
		return newError(KindUnknown, cause)
	}
}

func formatMetrics(payloadBytes int, m *NetworkMetrics) []string {
	if m == nil {
		return nil
	}
	connStatus := ""
	if m.ConnReused {
		connStatus = " (reused)"
	}
	return []string{
		fmt.Sprintf("payload:  %.1f KB", float64(payloadBytes)/1024),
		fmt.Sprintf("conn:     %dms%s", m.ConnWait.Milliseconds(), connStatus),
		fmt.Sprintf("dns:      %dms", m.DNS.Milliseconds()),
		fmt.Sprintf("tls:      %dms", m.TLS.Milliseconds()),
		fmt.Sprintf("ttfb:     %dms", m.TTFB.Milliseconds()),
		fmt.Sprintf("total:    %dms", m.Total.Milliseconds()),
	}
}
