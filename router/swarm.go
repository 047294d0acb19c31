package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/KamdynS/go-swarm/agent/core"
	"github.com/KamdynS/go-swarm/llm"
	obs "github.com/KamdynS/go-swarm/observability"
	"github.com/KamdynS/go-swarm/skills"
	"github.com/KamdynS/go-swarm/tools"
)

// Agent names of the swarm.
const (
	RouterAgent   = "Router"
	SQLAgent      = "SQL Expert"
	AnalyzerAgent = "Data Analyzer"
)

// Swarm routes through three agents that hand the conversation to each
// other: Router decides, SQL Expert fetches data, Data Analyzer explains it.
type Swarm struct {
	runner *core.Runner
}

// SwarmConfig configures NewSwarm.
type SwarmConfig struct {
	Model      llm.Client
	Skills     *tools.DefaultRegistry
	MaxTurns   int
	Middleware []core.Middleware
}

// NewSwarm builds the agent graph. The skill registry must hold the SQL and
// analyzer skills.
func NewSwarm(cfg SwarmConfig) (*Swarm, error) {
	if cfg.Skills == nil {
		return nil, fmt.Errorf("router: skills are required")
	}
	ts, err := cfg.Skills.Lookup(skills.GenerateAndRunSQL, skills.DataAnalyzer)
	if err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}
	sqlSkill, analyzerSkill := ts[0], ts[1]

	toSQL := tools.NewHandoff("transfer_to_sql", SQLAgent, "Transfer to the SQL Expert to fetch data from the database.")
	toAnalyzer := tools.NewHandoff("transfer_to_analyzer", AnalyzerAgent, "Transfer to the Data Analyzer to interpret data.")

	router, err := core.NewAgent(RouterAgent, SystemPrompt, toSQL, toAnalyzer)
	if err != nil {
		return nil, err
	}
	sql, err := core.NewAgent(SQLAgent, "You generate and execute SQL queries based on user requests.", sqlSkill, toAnalyzer)
	if err != nil {
		return nil, err
	}
	analyzer, err := core.NewAgent(AnalyzerAgent, "You analyze data and provide insights based on SQL query results.", analyzerSkill)
	if err != nil {
		return nil, err
	}

	runner, err := core.NewRunner(core.RunnerConfig{
		Model:      cfg.Model,
		Agents:     []*core.Agent{router, sql, analyzer},
		MaxTurns:   cfg.MaxTurns,
		Middleware: cfg.Middleware,
	})
	if err != nil {
		return nil, err
	}
	return &Swarm{runner: runner}, nil
}

// Route implements Router. The conversation always starts at the Router
// agent and the reply is the last message of the run.
func (s *Swarm) Route(ctx context.Context, req Request) (string, error) {
	return obs.Trace(ctx, "swarm_router_call", obs.SpanKindChain, req.Query, func(ctx context.Context) (string, error) {
		resp, err := s.runner.Run(ctx, core.RunRequest{Agent: RouterAgent, Messages: conversation(req)})
		if errors.Is(err, core.ErrNoResponse) {
			return "Error: No response from Router agent", nil
		}
		if err != nil {
			return "", err
		}
		return resp.Messages[len(resp.Messages)-1].Content, nil
	}, traceOptions(req)...)
}

var _ Router = (*Swarm)(nil)
