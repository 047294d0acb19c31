package skills

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/KamdynS/go-swarm/database"
	"github.com/KamdynS/go-swarm/llm/llmtest"
	"github.com/KamdynS/go-swarm/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(&database.Config{Type: "sqlite", Connection: filepath.Join(t.TempDir(), "sales.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.AutoMigrate())
	require.NoError(t, db.Seed(context.Background()))
	return db
}

func TestNewSkillMap(t *testing.T) {
	model := llmtest.NewMockClient()
	reg, err := NewSkillMap(Deps{Model: model, DB: seededDB(t)})
	require.NoError(t, err)
	assert.Equal(t, []string{GenerateAndRunSQL, DataAnalyzer, Calculator}, reg.List())

	reg, err = NewSkillMap(Deps{Model: model})
	require.NoError(t, err)
	assert.Equal(t, []string{DataAnalyzer, Calculator}, reg.List())

	_, err = NewSkillMap(Deps{})
	assert.Error(t, err)
}

func TestSQLSkillRunsGeneratedQuery(t *testing.T) {
	model := llmtest.NewMockClient().
		AddResponse(`{"sql": "SELECT region, COUNT(*) AS orders FROM sales GROUP BY region ORDER BY region", "explanation": "orders per region"}`)
	skill := NewSQLQuery(model, seededDB(t), 1)

	res, err := skill.Execute(context.Background(), tools.Call{Arguments: `{"query":"How many orders per region?"}`})
	require.NoError(t, err)
	assert.Contains(t, res.String(), "SQL query: SELECT region, COUNT(*)")
	assert.Contains(t, res.String(), "region | orders\nEast | 72\nNorth | 72")

	calls := model.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].SystemPrompt, "sales(")
	assert.Equal(t, "How many orders per region?", calls[0].Messages[0].Content)
	require.NotNil(t, calls[0].ResponseFormat)
	assert.Equal(t, "json_object", calls[0].ResponseFormat.Type)
}

func TestSQLSkillFeedsBackUnsafeSQL(t *testing.T) {
	model := llmtest.NewMockClient().
		AddResponse(`{"sql": "DELETE FROM sales"}`).
		AddResponse("```json\n{\"sql\": \"SELECT COUNT(*) AS n FROM sales\"}\n```")
	skill := NewSQLQuery(model, seededDB(t), 1)

	res, err := skill.Execute(context.Background(), tools.Call{Arguments: `{"query":"wipe it"}`})
	require.NoError(t, err)
	assert.Contains(t, res.String(), "n\n288")

	second := model.Calls()[1]
	assert.Contains(t, second.Messages[len(second.Messages)-1].Content, "only SELECT queries are allowed")
}

func TestSQLSkillGivesUp(t *testing.T) {
	model := llmtest.NewMockClient().AddResponse("not json").AddResponse(`{"sql":"DROP TABLE sales"}`)
	skill := NewSQLQuery(model, seededDB(t), 1)

	res, err := skill.Execute(context.Background(), tools.Call{Arguments: `{"query":"?"}`})
	require.NoError(t, err)
	assert.Contains(t, res.String(), "Error: could not generate a SQL query")
}

func TestDataAnalyzer(t *testing.T) {
	model := llmtest.NewMockClient().AddResponse("East leads with 40% of units.")
	skill := NewDataAnalyzer(model)

	res, err := skill.Execute(context.Background(), tools.Call{Arguments: `{"prompt":"Which region leads?","data":"East | 40\nWest | 10"}`})
	require.NoError(t, err)
	assert.Equal(t, "East leads with 40% of units.", res.String())
	assert.Equal(t, "Question: Which region leads?\n\nData:\nEast | 40\nWest | 10", model.Calls()[0].Messages[0].Content)

	model.AddError(errors.New("rate limited"))
	_, err = skill.Execute(context.Background(), tools.Call{Arguments: `{"prompt":"again"}`})
	assert.ErrorContains(t, err, "analyze data: rate limited")

	model.AddNoResponse()
	res, err = skill.Execute(context.Background(), tools.Call{Arguments: `{"prompt":"again"}`})
	require.NoError(t, err)
	assert.Equal(t, "Error: No response from data analyzer", res.String())
}
