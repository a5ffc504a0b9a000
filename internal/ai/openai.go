package ai

import (
    "context"
    "errors"
    "net/http"

    "github.com/sashabaranov/go-openai"
)

// GroqBaseURL is Groq's OpenAI-compatible endpoint.
const GroqBaseURL = "https://api.groq.com/openai/v1"

// OpenAIClient talks to any OpenAI-compatible chat completions API.
type OpenAIClient struct {
    name   string
    apiKey string
    client *openai.Client
}

// NewOpenAIClient builds a client; baseURL may be empty for api.openai.com.
func NewOpenAIClient(name, apiKey, baseURL string, httpClient *http.Client) *OpenAIClient {
    cfg := openai.DefaultConfig(apiKey)
    if baseURL != "" { cfg.BaseURL = baseURL }
    if httpClient != nil { cfg.HTTPClient = httpClient }
    return &OpenAIClient{name: name, apiKey: apiKey, client: openai.NewClientWithConfig(cfg)}
}

// NewGroqClient points the OpenAI wire format at Groq.
func NewGroqClient(apiKey, baseURL string) *OpenAIClient {
    if baseURL == "" { baseURL = GroqBaseURL }
    return NewOpenAIClient("groq", apiKey, baseURL, nil)
}

func (c *OpenAIClient) Name() string { return c.name }

func (c *OpenAIClient) Do(ctx context.Context, req Request) (Response, error) {
    if c.apiKey == "" {
        return Response{}, ErrMissingKey
    }
    if req.Timeout > 0 {
        var cancel context.CancelFunc
        ctx, cancel = context.WithTimeout(ctx, req.Timeout)
        defer cancel()
    }

    resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
        Model:     req.Model,
        MaxTokens: req.MaxTokens,
        Messages: []openai.ChatCompletionMessage{
            {Role: openai.ChatMessageRoleUser, Content: req.Prompt},
        },
    })
    if err != nil {
        return Response{}, c.mapError(err)
    }
    if len(resp.Choices) == 0 {
        return Response{}, ErrEmptyResponse
    }
    choice := resp.Choices[0]
    if choice.FinishReason == openai.FinishReasonContentFilter {
        return Response{}, ErrContentRefused
    }
    return Response{
        Text:      choice.Message.Content,
        TokensIn:  resp.Usage.PromptTokens,
        TokensOut: resp.Usage.CompletionTokens,
    }, nil
}

func (c *OpenAIClient) mapError(err error) error {
    var apiErr *openai.APIError
    if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
        return &StatusError{Provider: c.name, StatusCode: apiErr.HTTPStatusCode, Body: truncateBody(apiErr.Message)}
    }
    var reqErr *openai.RequestError
    if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
        body := ""
        if reqErr.Err != nil { body = truncateBody(reqErr.Err.Error()) }
        return &StatusError{Provider: c.name, StatusCode: reqErr.HTTPStatusCode, Body: body}
    }
    return err
}
