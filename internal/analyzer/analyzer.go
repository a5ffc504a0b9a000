// Package analyzer turns extracted document text into a plain-language
// analysis, using a remote model when one is configured and a templated
// fallback otherwise.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/local/vitanote/internal/domain"
	"github.com/local/vitanote/internal/logger"
	"github.com/local/vitanote/internal/metrics"
)

// Completer sends one prompt to a language model.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ModelAccess is either Remote or Unconfigured. The zero value is
// Unconfigured.
type ModelAccess struct {
	completer Completer
}

func Unconfigured() ModelAccess { return ModelAccess{} }

func Remote(c Completer) ModelAccess { return ModelAccess{completer: c} }

func (m ModelAccess) Configured() bool { return m.completer != nil }

var errNotConfigured = errors.New("no model provider configured")

type Analyzer struct {
	access ModelAccess
	log    zerolog.Logger
}

func New(access ModelAccess) *Analyzer {
	return &Analyzer{access: access, log: logger.WithComponent("analyzer")}
}

// Analyze never fails: any model error produces a degraded, templated result.
func (a *Analyzer) Analyze(ctx context.Context, doc domain.ExtractedDocument) domain.AnalysisResult {
	docType := domain.Classify(doc.Text)

	text, err := a.remote(ctx, doc.Text)
	if err == nil {
		metrics.IncAnalysis("model", docType.String())
		return domain.AnalysisResult{Text: text, DocType: docType}
	}

	if !errors.Is(err, errNotConfigured) {
		a.log.Warn().Err(err).Str("source", doc.Source.String()).Msg("model call failed - using template")
	}
	res := Fallback(doc)
	res.Degradation = domain.Degradation{Reason: err.Error()}
	metrics.IncAnalysis("fallback", res.DocType.String())
	return res
}

// Reply answers a chat prompt. Chat text carries no source tag, so it is
// classified by content.
func (a *Analyzer) Reply(ctx context.Context, prompt string) domain.AnalysisResult {
	return a.Analyze(ctx, domain.DocumentFromText(prompt))
}

func (a *Analyzer) remote(ctx context.Context, prompt string) (string, error) {
	if !a.access.Configured() {
		return "", errNotConfigured
	}
	text, err := a.access.completer.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("model returned empty text")
	}
	return text, nil
}

// ChatPrompt wraps a previously shown summary and a follow-up question.
func ChatPrompt(summary, message string) string {
	return "You are a helpful medical assistant. The user was shown this summary:\n\n" +
		summary + "\n\nNow they asked: " + message + "\n\nReply accordingly."
}
