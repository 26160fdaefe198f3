package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Client calls the Gemini generateContent API. Without an API key it returns
// canned answers so the rest of the application keeps working offline.
type Client struct {
	config Config
	client *http.Client
}

// New creates a new Gemini client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Answer asks for a markdown answer to an exam question plus a video search query.
func (c *Client) Answer(ctx context.Context, question string) Result {
	if !c.config.Enabled() {
		return mockAnswer(question)
	}

	text, res := c.callGemini(ctx, buildAnswerPrompt(question), true)
	if !res.OK() {
		return res
	}

	var payload struct {
		Answer      string `json:"answer"`
		SearchQuery string `json:"searchQuery"`
	}
	if err := json.Unmarshal([]byte(extractJSON(text)), &payload); err != nil {
		return failure(ReasonMalformed, fmt.Sprintf("failed to decode answer: %v", err))
	}
	if strings.TrimSpace(payload.Answer) == "" {
		return failure(ReasonMalformed, "empty answer")
	}

	return Result{Kind: KindOK, Answer: payload.Answer, SearchQuery: payload.SearchQuery}
}

// Complete sends a free-text prompt and returns the reply text in Answer.
func (c *Client) Complete(ctx context.Context, prompt string) Result {
	if !c.config.Enabled() {
		return mockComplete()
	}

	text, res := c.callGemini(ctx, prompt, false)
	if !res.OK() {
		return res
	}
	return Result{Kind: KindOK, Answer: strings.TrimSpace(text)}
}

// callGemini makes a request to the Gemini API and returns the first candidate's text.
func (c *Client) callGemini(ctx context.Context, prompt string, jsonMode bool) (string, Result) {
	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]string{
					{"text": prompt},
				},
			},
		},
	}
	if jsonMode {
		reqBody["generationConfig"] = map[string]interface{}{
			"responseMimeType": "application/json",
		}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", failure(ReasonMalformed, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.endpoint(), bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", failure(ReasonUnavailable, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", failure(ReasonUnavailable, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", failure(ReasonUnavailable, err.Error())
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp.StatusCode, body)
	}

	// Parse Gemini response structure
	var geminiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", failure(ReasonMalformed, fmt.Sprintf("failed to decode response: %v", err))
	}

	if len(geminiResp.Candidates) > 0 && len(geminiResp.Candidates[0].Content.Parts) > 0 {
		return geminiResp.Candidates[0].Content.Parts[0].Text, Result{Kind: KindOK}
	}
	return "", failure(ReasonMalformed, "empty response from Gemini")
}

// classifyStatus maps a non-200 reply to a failure. Quota exhaustion is
// reported either as 429 or as a RESOURCE_EXHAUSTED error status.
func classifyStatus(code int, body []byte) Result {
	var apiErr struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	_ = json.Unmarshal(body, &apiErr)

	detail := fmt.Sprintf("gemini returned %d", code)
	if apiErr.Error.Message != "" {
		detail += ": " + apiErr.Error.Message
	}

	if code == http.StatusTooManyRequests || apiErr.Error.Status == "RESOURCE_EXHAUSTED" {
		return failure(ReasonRateLimited, detail)
	}
	return failure(ReasonUnavailable, detail)
}

// extractJSON removes markdown code fences the model sometimes wraps JSON in.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		start := 3
		// Skip the language identifier line, e.g. ```json
		if newlineIdx := strings.Index(content[start:], "\n"); newlineIdx != -1 {
			start += newlineIdx + 1
		}
		if endIdx := strings.Index(content[start:], "```"); endIdx != -1 {
			content = content[start : start+endIdx]
		} else {
			content = content[start:]
		}
	}

	return strings.TrimSpace(content)
}

func buildAnswerPrompt(question string) string {
	return fmt.Sprintf(`You are helping a university student revise for an exam. Return ONLY valid JSON matching this schema:
{
  "answer": "a clear, exam-ready answer in markdown",
  "searchQuery": "a short YouTube search query for a video explaining the topic"
}

Keep the answer focused on what an examiner would expect. Use headings, lists and code blocks where they help.

Question: %s`, question)
}
