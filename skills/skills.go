// Package skills provides the data-analysis tools shared by the code-based
// and swarm routers.
package skills

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/KamdynS/go-swarm/database"
	"github.com/KamdynS/go-swarm/llm"
	"github.com/KamdynS/go-swarm/tools"
	"github.com/rs/zerolog/log"
)

// Skill names.
const (
	GenerateAndRunSQL = "generate_and_run_sql_query"
	DataAnalyzer      = "data_analyzer"
	Calculator        = "calculator"
)

// Querier is the data source of the SQL skill.
type Querier interface {
	DescribeSchema(ctx context.Context) (string, error)
	Query(ctx context.Context, query string) (*database.Rows, error)
}

// Deps are the collaborators of the skills.
type Deps struct {
	Model llm.Client
	DB    Querier
	// Retries is how often a rejected SQL statement is sent back to the
	// model for correction.
	Retries int
}

// NewSkillMap registers every skill. The SQL skill is only registered when a
// database is available.
func NewSkillMap(d Deps) (*tools.DefaultRegistry, error) {
	if d.Model == nil {
		return nil, errors.New("skills: model is required")
	}
	ts := []tools.Tool{NewDataAnalyzer(d.Model), tools.NewCalculator()}
	if d.DB != nil {
		ts = append([]tools.Tool{NewSQLQuery(d.Model, d.DB, d.Retries)}, ts...)
	}
	return tools.NewRegistry(ts...)
}

// QueryArgs are the arguments of generate_and_run_sql_query.
type QueryArgs struct {
	Query string `json:"query" validate:"required" jsonschema:"description=The question to answer from the database in plain language"`
}

// SQLQuery is the statement the model writes for a question.
type SQLQuery struct {
	SQL         string `json:"sql" jsonschema:"description=A single read-only SQL SELECT statement"`
	Explanation string `json:"explanation,omitempty" jsonschema:"description=One sentence on what the statement computes"`
}

// Validate rejects anything but a single read-only statement.
func (q SQLQuery) Validate() error {
	_, err := database.ReadOnly(q.SQL)
	return err
}

const sqlPrompt = `You are a SQL expert. Write one SQLite-compatible SELECT statement that answers the user's question.
Only use the tables and columns below.

Schema:
%s`

// NewSQLQuery builds generate_and_run_sql_query: the model writes a
// statement for the question, which is run against db.
func NewSQLQuery(model llm.Client, db Querier, retries int) tools.Tool {
	return tools.NewFunc(GenerateAndRunSQL,
		"Generates a SQL query from a natural-language question, runs it against the sales database and returns the rows.",
		func(ctx context.Context, args QueryArgs) (tools.Result, error) {
			schema, err := db.DescribeSchema(ctx)
			if err != nil {
				return tools.Result{}, fmt.Errorf("describe schema: %w", err)
			}
			req := &llm.ChatRequest{
				SystemPrompt: fmt.Sprintf(sqlPrompt, schema),
				Messages:     []llm.Message{{Role: llm.RoleUser, Content: args.Query}},
			}
			q, _, err := llm.ChatStructured[SQLQuery](ctx, model, req, retries)
			if err != nil {
				return tools.Textf("Error: could not generate a SQL query: %v", err), nil
			}
			log.Debug().Str("sql", q.SQL).Msg("generated sql")

			rows, err := db.Query(ctx, q.SQL)
			if err != nil {
				return tools.Textf("Error running SQL query %s: %v", q.SQL, err), nil
			}
			return tools.Textf("SQL query: %s\n\nResults:\n%s", q.SQL, rows), nil
		})
}

// AnalyzeArgs are the arguments of data_analyzer.
type AnalyzeArgs struct {
	Prompt string `json:"prompt" validate:"required" jsonschema:"description=What to find out about the data"`
	Data   string `json:"data" jsonschema:"description=The data to analyze such as SQL query results"`
}

const analyzerPrompt = "You are a data analyst. Answer the question using only the data provided. Be concise and quote the numbers you rely on."

// NewDataAnalyzer builds data_analyzer, which asks the model for insights
// on the supplied data.
func NewDataAnalyzer(model llm.Client) tools.Tool {
	return tools.NewFunc(DataAnalyzer,
		"Provides insights, trends, or analysis based on the data and prompt.",
		func(ctx context.Context, args AnalyzeArgs) (tools.Result, error) {
			var content strings.Builder
			content.WriteString("Question: ")
			content.WriteString(args.Prompt)
			if strings.TrimSpace(args.Data) != "" {
				content.WriteString("\n\nData:\n")
				content.WriteString(args.Data)
			}
			resp, err := model.Chat(ctx, &llm.ChatRequest{
				SystemPrompt: analyzerPrompt,
				Messages:     []llm.Message{{Role: llm.RoleUser, Content: content.String()}},
			})
			if err != nil {
				return tools.Result{}, fmt.Errorf("analyze data: %w", err)
			}
			if resp == nil || strings.TrimSpace(resp.Content) == "" {
				return tools.Text("Error: No response from data analyzer"), nil
			}
			return tools.Text(resp.Content), nil
		})
}
