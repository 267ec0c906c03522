package models

// GenAIMessage is a single message in a chat completion request.
type GenAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenAIChatRequest is the request body for the external AI service's
// OpenAI-compatible chat completions endpoint.
type GenAIChatRequest struct {
	Model       string         `json:"model"`
	Messages    []GenAIMessage `json:"messages"`
	Stream      bool           `json:"stream"`
	Temperature float64        `json:"temperature,omitempty"`
}

// GenAIChatResponse is a non-streaming chat completion response.
type GenAIChatResponse struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []GenAIChoice `json:"choices"`
	Error   *APIError     `json:"error,omitempty"`
}

type GenAIChoice struct {
	Message      GenAIMessage `json:"message"`
	Index        int          `json:"index"`
	FinishReason string       `json:"finish_reason,omitempty"`
}

type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}
