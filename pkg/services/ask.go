package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-askdb/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-askdb/pkg/logging"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
	sqlcheck "github.com/ekaya-inc/ekaya-askdb/pkg/sql"
)

// Translator turns a question into SQL and explains the results.
// Implementations live in pkg/llm.
type Translator interface {
	// Translate returns the statements to run for prompt, in order.
	Translate(ctx context.Context, prompt string, schema *models.SchemaGraph) ([]string, error)

	// Summarize describes the executed statements in plain language.
	Summarize(ctx context.Context, prompt string, schema *models.SchemaGraph, results []models.StatementResult) (string, error)

	// Suggest proposes follow-up questions.
	Suggest(ctx context.Context, prompt string, schema *models.SchemaGraph, results []models.StatementResult) ([]string, error)
}

// HandleSource opens and releases connection handles. ConnectionRegistry is one.
type HandleSource interface {
	Connect(ctx context.Context, cfg *models.ConnectionConfig) (*datasource.Handle, error)
	Close(ctx context.Context, h *datasource.Handle) error
}

// StatementRunner runs caller SQL through the safety gate. QueryExecutor is one.
type StatementRunner interface {
	Execute(ctx context.Context, h *datasource.Handle, query string, timeout time.Duration) (*models.ResultSet, error)
}

// FallbackSuggestions are returned when the translator cannot suggest anything.
var FallbackSuggestions = []string{
	"Show more detailed information",
	"Filter by specific criteria",
	"Compare with historical data",
}

// AskService runs the full question-to-answer flow against one database.
type AskService interface {
	// Ask connects, discovers the schema, translates, runs each statement and
	// summarizes. Connection failures are returned as *apperrors.ConnectionError;
	// per-statement failures are recorded in the result.
	Ask(ctx context.Context, req *models.AskRequest) (*models.AskResult, error)
}

type askService struct {
	handles      HandleSource
	discovery    SchemaDiscoveryService
	runner       StatementRunner
	translator   Translator
	queryTimeout time.Duration
	logger       *zap.Logger
}

// NewAskService creates an ask service. queryTimeout bounds each generated statement.
func NewAskService(
	handles HandleSource,
	discovery SchemaDiscoveryService,
	runner StatementRunner,
	translator Translator,
	queryTimeout time.Duration,
	logger *zap.Logger,
) AskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &askService{
		handles:      handles,
		discovery:    discovery,
		runner:       runner,
		translator:   translator,
		queryTimeout: queryTimeout,
		logger:       logger.Named("ask"),
	}
}

func (s *askService) Ask(ctx context.Context, req *models.AskRequest) (*models.AskResult, error) {
	if s.translator == nil {
		return nil, apperrors.ErrNoTranslator
	}
	if req == nil || strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("%w: prompt is required", apperrors.ErrInvalidConfig)
	}
	cfg := req.Connection
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	requestID := uuid.New().String()
	logger := s.logger.With(zap.String("request_id", requestID), zap.String("dialect", string(cfg.Dialect)))

	h, err := s.handles.Connect(ctx, &cfg)
	if err != nil {
		logger.Warn("Connection failed", zap.String("error", logging.SanitizeError(err)))
		return nil, err
	}
	defer func() {
		// The request context may already be done; release regardless.
		if err := s.handles.Close(context.Background(), h); err != nil {
			logger.Warn("Failed to close connection", zap.String("error", logging.SanitizeError(err)))
		}
	}()

	result := &models.AskResult{
		RequestID:   requestID,
		Prompt:      req.Prompt,
		Statements:  []models.StatementResult{},
		Suggestions: []string{},
	}

	result.Schema = s.discovery.Discover(ctx, h, cfg.SchemaHint)

	statements, err := s.translator.Translate(ctx, req.Prompt, result.Schema)
	if err != nil {
		return result, fmt.Errorf("translate prompt: %w", err)
	}
	logger.Info("Prompt translated", zap.Int("statements", len(statements)))

	for _, stmt := range statements {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		result.Statements = append(result.Statements, s.runStatement(ctx, logger, h, stmt))
	}

	summary, err := s.translator.Summarize(ctx, req.Prompt, result.Schema, result.Statements)
	if err != nil || strings.TrimSpace(summary) == "" {
		if err != nil {
			logger.Warn("Summary generation failed; using fallback", zap.String("error", logging.SanitizeError(err)))
		}
		summary = FallbackSummary(result.Statements)
	}
	result.Summary = summary

	suggestions, err := s.translator.Suggest(ctx, req.Prompt, result.Schema, result.Statements)
	if err != nil || len(suggestions) == 0 {
		if err != nil {
			logger.Warn("Suggestion generation failed; using fallback", zap.String("error", logging.SanitizeError(err)))
		}
		suggestions = append([]string(nil), FallbackSuggestions...)
	}
	result.Suggestions = suggestions

	return result, nil
}

// runStatement screens and executes one statement. Rejected statements are
// never sent to the server.
func (s *askService) runStatement(ctx context.Context, logger *zap.Logger, h *datasource.Handle, stmt string) models.StatementResult {
	res := models.StatementResult{SQL: stmt}

	if v := sqlcheck.Check(stmt, h.Dialect()); v != nil {
		logger.Warn("Generated statement rejected",
			zap.String("rule", v.Rule),
			zap.String("sql", logging.SanitizeQuery(stmt)))
		res.Status = models.StatementRejected
		res.ErrorKind = string(apperrors.QueryUnsafe)
		res.Error = v.Error()
		return res
	}
	if flagged := sqlcheck.CheckValueForInjection("generated_sql", stmt); flagged != nil {
		// Logged only; the deny-list above is the gate.
		logger.Info("Generated statement matches an injection fingerprint",
			zap.String("fingerprint", flagged.Fingerprint))
	}

	rs, err := s.runner.Execute(ctx, h, stmt, s.queryTimeout)
	if err != nil {
		res.Status = models.StatementFailed
		res.Error = logging.SanitizeError(err)
		res.ErrorKind = string(apperrors.QueryUnknown)
		if qErr, ok := apperrors.AsQueryError(err); ok {
			res.ErrorKind = string(qErr.Kind)
			if qErr.Kind == apperrors.QueryUnsafe {
				res.Status = models.StatementRejected
			}
		}
		logger.Warn("Generated statement failed",
			zap.String("kind", res.ErrorKind),
			zap.String("error", res.Error))
		return res
	}

	res.Status = models.StatementSucceeded
	if rs != nil {
		res.Columns = rs.Columns
		res.Rows = rs.Rows
		res.RowCount = rs.RowCount()
	}
	return res
}

var fromPattern = regexp.MustCompile("(?i)\\b(?:FROM|JOIN)\\s+([A-Za-z0-9_.$#\"`\\[\\]]+)")

// TablesReferenced returns the distinct table names after FROM or JOIN, in
// order of appearance, with quoting removed.
func TablesReferenced(query string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range fromPattern.FindAllStringSubmatch(query, -1) {
		name := strings.NewReplacer(`"`, "", "`", "", "[", "", "]", "").Replace(m[1])
		name = strings.TrimRight(name, ".")
		if name == "" || strings.HasPrefix(name, "(") || seen[strings.ToLower(name)] {
			continue
		}
		seen[strings.ToLower(name)] = true
		out = append(out, name)
	}
	return out
}

// FallbackSummary describes the executed statements without a translator:
// the tables they read and the row counts of the first three results.
func FallbackSummary(results []models.StatementResult) string {
	if len(results) == 0 {
		return "No statements were generated for this question."
	}

	var tables []string
	seen := map[string]bool{}
	succeeded, rejected, failed := 0, 0, 0
	for _, r := range results {
		switch r.Status {
		case models.StatementSucceeded:
			succeeded++
		case models.StatementRejected:
			rejected++
		default:
			failed++
		}
		for _, t := range TablesReferenced(r.SQL) {
			if !seen[strings.ToLower(t)] {
				seen[strings.ToLower(t)] = true
				tables = append(tables, t)
			}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Ran %d of %d statement(s)", succeeded, len(results))
	if len(tables) > 0 {
		fmt.Fprintf(&b, " against %s", strings.Join(tables, ", "))
	}
	b.WriteString(".")

	var counts []string
	for i, r := range results {
		if i == 3 {
			break
		}
		if r.Status == models.StatementSucceeded {
			counts = append(counts, fmt.Sprintf("statement %d returned %d row(s)", i+1, r.RowCount))
		}
	}
	if len(counts) > 0 {
		b.WriteString(" ")
		b.WriteString(strings.Join(counts, "; "))
		b.WriteString(".")
	}
	if rejected > 0 {
		fmt.Fprintf(&b, " %d statement(s) were rejected as unsafe.", rejected)
	}
	if failed > 0 {
		fmt.Fprintf(&b, " %d statement(s) failed.", failed)
	}
	return b.String()
}
