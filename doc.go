// Package swarm is the root of the go-swarm module: multi-agent LLM routing
// with tool calls and agent handoffs, demonstrated on a sales-data assistant
// and an LLM-versus-LLM chess game.
//
// The module is organized as subpackages:
//
//   - llm: provider clients (OpenAI, Anthropic), retries, structured output
//   - tools: typed tools, handoff tools and the tool registry
//   - agent/core: agents and the handoff orchestrator (Runner)
//   - skills: SQL generation, data analysis and calculator skills
//   - router: code-based and swarm routers for the sales assistant
//   - chess: board, player agents and the autonomous game loop
//   - chat: session-aware chat service with tracing
//   - memory: conversation stores (in-memory, redis)
//   - database: GORM models for sales data and archived games
//   - observability: tracing and metrics (OpenTelemetry, Prometheus)
//   - server/http: HTTP front-end
//   - config: viper-based configuration
//
// The agentctl command in cmd/agentctl wires everything together.
package swarm
