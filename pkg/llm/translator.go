package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
	"github.com/ekaya-inc/ekaya-askdb/pkg/prompts"
)

// MaxSuggestions caps the follow-up questions returned by Suggest.
const MaxSuggestions = 3

// LLMTranslator implements services.Translator on top of a Completer.
type LLMTranslator struct {
	completer Completer
	logger    *zap.Logger
}

// NewLLMTranslator creates a model-backed translator.
func NewLLMTranslator(completer Completer, logger *zap.Logger) *LLMTranslator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMTranslator{
		completer: completer,
		logger:    logger.Named("translator"),
	}
}

// Translate asks the model for the statements answering prompt. The schema is
// sent as YAML with a few sample rows per table.
func (t *LLMTranslator) Translate(ctx context.Context, prompt string, schema *models.SchemaGraph) ([]string, error) {
	schemaYAML, err := prompts.RenderSchemaYAML(schema, prompts.PromptSampleRows)
	if err != nil {
		return nil, err
	}
	dialect := models.Dialect("")
	if schema != nil {
		dialect = schema.Database.Dialect
	}

	res, err := t.completer.Complete(ctx, prompts.TranslateSystemMessage(dialect), prompts.BuildTranslatePrompt(prompt, schemaYAML))
	if err != nil {
		return nil, fmt.Errorf("generate sql: %w", err)
	}

	statements, err := ParseStatements(res.Content)
	if err != nil {
		t.logger.Warn("Model reply contained no SQL",
			zap.String("model", t.completer.Model()),
			zap.Int("reply_len", len(res.Content)))
		return nil, err
	}

	t.logger.Debug("Translated prompt",
		zap.String("dialect", string(dialect)),
		zap.Int("statements", len(statements)),
		zap.Int("schema_yaml_len", len(schemaYAML)))
	return statements, nil
}

// Summarize asks the model to describe the results in plain language.
func (t *LLMTranslator) Summarize(ctx context.Context, prompt string, schema *models.SchemaGraph, results []models.StatementResult) (string, error) {
	res, err := t.completer.Complete(ctx, prompts.SummarySystemMessage, prompts.BuildResultsPrompt(prompt, schema, results))
	if err != nil {
		return "", fmt.Errorf("summarize results: %w", err)
	}
	summary := strings.TrimSpace(StripThinking(res.Content))
	if summary == "" {
		return "", NewError(ErrorTypeResponse, "empty summary", false, nil)
	}
	return summary, nil
}

// Suggest asks the model for up to MaxSuggestions follow-up questions.
func (t *LLMTranslator) Suggest(ctx context.Context, prompt string, schema *models.SchemaGraph, results []models.StatementResult) ([]string, error) {
	res, err := t.completer.Complete(ctx, prompts.SuggestSystemMessage, prompts.BuildResultsPrompt(prompt, schema, results))
	if err != nil {
		return nil, fmt.Errorf("suggest follow-ups: %w", err)
	}
	suggestions := ParseStringList(res.Content)
	if len(suggestions) == 0 {
		return nil, NewError(ErrorTypeResponse, "no suggestions in reply", false, nil)
	}
	if len(suggestions) > MaxSuggestions {
		suggestions = suggestions[:MaxSuggestions]
	}
	return suggestions, nil
}
