package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Answerer is the boundary to the FAQ answering pipeline. The pipeline
// itself (search, ranking, generation) lives in another service; this
// subsystem only needs a request/response contract with a bounded timeout.
type Answerer interface {
	Answer(ctx context.Context, chatbotID, question string) (string, error)
}

// AnswerClient is a thin REST client for the answering service.
type AnswerClient struct {
	baseURL string
	client  *http.Client
}

// NewAnswerClient creates an answering-service client. An empty baseURL
// yields a client that reports the pipeline as unavailable, so the widget
// degrades to 503s instead of the gateway failing to boot.
func NewAnswerClient(baseURL string) *AnswerClient {
	return &AnswerClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type answerRequest struct {
	ChatbotID string `json:"chatbot_id"`
	Question  string `json:"question"`
}

type answerResponse struct {
	Answer string `json:"answer"`
}

// Answer forwards the question to the answering service and returns its
// answer text.
func (c *AnswerClient) Answer(ctx context.Context, chatbotID, question string) (string, error) {
	if c.baseURL == "" {
		return "", ErrAnswerUnavailable
	}

	payload, err := json.Marshal(answerRequest{ChatbotID: chatbotID, Question: question})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/answer", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAnswerUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrAnswerUnavailable, resp.StatusCode)
	}

	var body answerResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: %v", ErrAnswerUnavailable, err)
	}
	return body.Answer, nil
}
