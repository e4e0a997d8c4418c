package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

// PromptSampleRows caps the sample rows per table rendered into a prompt.
const PromptSampleRows = 3

// PromptResultRows caps the result rows per statement rendered into a summary prompt.
const PromptResultRows = 20

// RenderSchemaYAML renders the graph as YAML for a prompt, keeping at most
// sampleRows sample rows per table.
func RenderSchemaYAML(graph *models.SchemaGraph, sampleRows int) (string, error) {
	if graph == nil {
		graph = models.NewSchemaGraph("")
	}
	trimmed := *graph
	trimmed.Tables = make([]models.Table, len(graph.Tables))
	for i, t := range graph.Tables {
		if len(t.SampleRows) > sampleRows {
			t.SampleRows = t.SampleRows[:sampleRows]
		}
		trimmed.Tables[i] = t
	}

	out, err := yaml.Marshal(&trimmed)
	if err != nil {
		return "", fmt.Errorf("render schema: %w", err)
	}
	return string(out), nil
}

// dialectHints are the syntax reminders given to the model per dialect.
var dialectHints = map[models.Dialect]string{
	models.DialectOracle:   "Oracle SQL. Quote identifiers with double quotes only when needed. Limit rows with FETCH FIRST n ROWS ONLY or WHERE ROWNUM <= n. There is no LIMIT keyword. Use owner.table names as shown.",
	models.DialectPostgres: "PostgreSQL. Quote identifiers with double quotes only when needed. Limit rows with LIMIT n. Qualify tables with their schema.",
	models.DialectMySQL:    "MySQL. Quote identifiers with backticks only when needed. Limit rows with LIMIT n. The owner is the database name.",
	models.DialectMSSQL:    "Microsoft SQL Server (T-SQL). Quote identifiers with square brackets only when needed. Limit rows with SELECT TOP n. There is no LIMIT keyword.",
}

// TranslateSystemMessage returns the system prompt for SQL generation.
func TranslateSystemMessage(dialect models.Dialect) string {
	var b strings.Builder
	b.WriteString("You translate questions about a relational database into SQL.\n\n")
	b.WriteString("## Dialect\n\n")
	if hint, ok := dialectHints[dialect]; ok {
		b.WriteString(hint)
	} else {
		b.WriteString("ANSI SQL.")
	}
	b.WriteString("\n\n## Rules\n\n")
	b.WriteString("- Use only tables and columns that appear in the schema.\n")
	b.WriteString("- Prefer a single SELECT. Use several statements only when the question needs separate result sets.\n")
	b.WriteString("- Never emit DROP, TRUNCATE or ALTER. Never emit UPDATE or DELETE without a WHERE clause.\n")
	b.WriteString("- Do not end statements with a semicolon.\n\n")
	b.WriteString("## Output\n\n")
	b.WriteString("Reply with a JSON array of SQL strings and nothing else, for example:\n")
	b.WriteString(`["SELECT COUNT(*) AS employee_count FROM hr.employees"]`)
	b.WriteString("\n")
	return b.String()
}

// BuildTranslatePrompt creates the user prompt carrying the question and schema.
func BuildTranslatePrompt(question, schemaYAML string) string {
	var b strings.Builder
	b.WriteString("# Database Schema\n\n")
	b.WriteString("```yaml\n")
	b.WriteString(schemaYAML)
	if !strings.HasSuffix(schemaYAML, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("```\n\n")
	b.WriteString("# Question\n\n")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n")
	return b.String()
}

// SummarySystemMessage is the system prompt for result summaries.
const SummarySystemMessage = "You explain SQL query results to a non-technical reader. " +
	"Answer the question directly in two to four sentences using the numbers in the results. " +
	"Mention statements that failed or were rejected. Do not show SQL."

// SuggestSystemMessage is the system prompt for follow-up suggestions.
const SuggestSystemMessage = "You propose follow-up questions a user could ask next about the same database. " +
	"Reply with a JSON array of exactly three short questions and nothing else."

// BuildResultsPrompt creates the user prompt for summaries and suggestions.
func BuildResultsPrompt(question string, graph *models.SchemaGraph, results []models.StatementResult) string {
	var b strings.Builder
	b.WriteString("# Question\n\n")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n\n")

	if graph != nil && len(graph.Tables) > 0 {
		b.WriteString("# Tables\n\n")
		for _, t := range graph.Tables {
			fmt.Fprintf(&b, "- %s (%s)\n", t.QualifiedName(), strings.Join(t.ColumnNames(), ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("# Results\n\n")
	if len(results) == 0 {
		b.WriteString("No statements were run.\n")
	}
	for i, r := range results {
		fmt.Fprintf(&b, "## Statement %d (%s)\n\n", i+1, r.Status)
		fmt.Fprintf(&b, "```sql\n%s\n```\n\n", r.SQL)
		switch r.Status {
		case models.StatementSucceeded:
			rows := r.Rows
			if len(rows) > PromptResultRows {
				rows = rows[:PromptResultRows]
			}
			fmt.Fprintf(&b, "%d row(s)", r.RowCount)
			if len(rows) < r.RowCount {
				fmt.Fprintf(&b, ", first %d shown", len(rows))
			}
			b.WriteString(":\n\n")
			data, err := json.Marshal(rows)
			if err != nil {
				data = []byte(`"rows could not be rendered"`)
			}
			b.Write(data)
			b.WriteString("\n\n")
		default:
			fmt.Fprintf(&b, "Error (%s): %s\n\n", r.ErrorKind, r.Error)
		}
	}
	return b.String()
}
