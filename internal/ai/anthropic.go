package ai

import (
    "context"
    "errors"
    "net/http"
    "strings"

    "github.com/anthropics/anthropic-sdk-go"
    "github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient talks to the Messages API.
type AnthropicClient struct {
    apiKey string
    client anthropic.Client
}

// NewAnthropicClient builds a client; baseURL may be empty for
// api.anthropic.com. Retries are left to the dispatcher.
func NewAnthropicClient(apiKey, baseURL string, httpClient *http.Client) *AnthropicClient {
    opts := []option.RequestOption{
        option.WithAPIKey(apiKey),
        option.WithMaxRetries(0),
    }
    if baseURL != "" { opts = append(opts, option.WithBaseURL(baseURL)) }
    if httpClient != nil { opts = append(opts, option.WithHTTPClient(httpClient)) }
    return &AnthropicClient{apiKey: apiKey, client: anthropic.NewClient(opts...)}
}

func (c *AnthropicClient) Name() string { return "anthropic" }

func (c *AnthropicClient) Do(ctx context.Context, req Request) (Response, error) {
    if c.apiKey == "" { return Response{}, ErrMissingKey }
    if req.Timeout > 0 {
        var cancel context.CancelFunc
        ctx, cancel = context.WithTimeout(ctx, req.Timeout)
        defer cancel()
    }
    maxTokens := req.MaxTokens
    if maxTokens <= 0 { maxTokens = 1024 }

    msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
        Model:     anthropic.Model(req.Model),
        MaxTokens: int64(maxTokens),
        Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt))},
    })
    if err != nil { return Response{}, c.mapError(err) }
    if string(msg.StopReason) == "refusal" { return Response{}, ErrContentRefused }

    var sb strings.Builder
    for _, block := range msg.Content {
        if block.Type == "text" { sb.WriteString(block.Text) }
    }
    if sb.Len() == 0 { return Response{}, ErrEmptyResponse }
    return Response{
        Text:      sb.String(),
        TokensIn:  int(msg.Usage.InputTokens),
        TokensOut: int(msg.Usage.OutputTokens),
    }, nil
}

func (c *AnthropicClient) mapError(err error) error {
    var apiErr *anthropic.Error
    if errors.As(err, &apiErr) && apiErr.StatusCode > 0 {
        return &StatusError{Provider: c.Name(), StatusCode: apiErr.StatusCode, Body: truncateBody(strings.TrimSpace(apiErr.RawJSON()))}
    }
    return err
}
