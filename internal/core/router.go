package core

import (
	"strings"

	"github.com/teamroom/teamroom/internal/store"
)

// roleKeywords binds a role tag to the substrings that trigger it. The table
// is an ordered slice rather than a map so that matching never depends on
// map iteration order.
type roleKeywords struct {
	Role     string
	Keywords []string
}

var roleKeywordTable = []roleKeywords{
	{"project_owner", []string{"scope", "goal", "requirement", "story", "product", "stakeholder", "business"}},
	{"project_manager", []string{"timeline", "deadline", "plan", "estimate", "risk", "milestone", "priority", "deliverable"}},
	{"solution_architect", []string{"architecture", "design", "pattern", "scalable", "scalability", "security", "compliance", "integration"}},
	{"devops", []string{"deploy", "deployment", "docker", "kubernetes", "infra", "infrastructure", "ci", "cd", "pipeline", "monitoring", "logging", "reliability"}},
	{"data_engineer", []string{"pipeline", "ingest", "ingestion", "etl", "elt", "warehouse", "lake", "schema", "dbt"}},
	{"data_scientist", []string{"model", "ml", "machine learning", "experiment", "analysis", "dataset", "feature", "prediction", "forecast"}},
	{"backend_engineer", []string{"api", "endpoint", "backend", "service", "microservice", "database", "auth", "authorization", "logic"}},
	{"database_engineer", []string{"sql", "database", "mysql", "postgres", "postgresql", "index", "query", "transaction", "migration", "schema"}},
	{"frontend_engineer", []string{"ui", "ux", "frontend", "react", "component", "layout", "css", "design system", "accessibility"}},
}

// rolePriority resolves multi-role matches: the first matched role in this
// list wins, regardless of how many keywords matched or where they appeared.
var rolePriority = []string{
	store.OrchestratorRole,
	"project_manager",
	"project_owner",
	"solution_architect",
	"backend_engineer",
	"database_engineer",
	"devops",
	"data_engineer",
	"data_scientist",
	"frontend_engineer",
}

// fallbackRoles are tried in order when no keyword matched.
var fallbackRoles = []string{"solution_architect", "backend_engineer"}

// RouterBot selects which attached bots should answer a message. It is pure:
// no persistence access, no randomness, deterministic for identical inputs.
type RouterBot struct{}

func NewRouterBot() *RouterBot {
	return &RouterBot{}
}

// ChooseBots maps a message and the candidate bots to the ordered list of
// responders. Candidates are expected to be pre-filtered to the bots attached
// to the conversation, orchestrator excluded. Matching is case-insensitive
// substring containment, so a keyword embedded inside another word counts.
func (r *RouterBot) ChooseBots(text string, candidates []store.Bot) []store.Bot {
	if len(candidates) == 0 {
		return nil
	}

	lower := strings.ToLower(text)
	matched := make(map[string]bool)
	for _, entry := range roleKeywordTable {
		for _, keyword := range entry.Keywords {
			if strings.Contains(lower, keyword) {
				matched[entry.Role] = true
				break
			}
		}
	}

	botsByRole := make(map[string]*store.Bot, len(candidates))
	for i := range candidates {
		if _, ok := botsByRole[candidates[i].Role]; !ok {
			botsByRole[candidates[i].Role] = &candidates[i]
		}
	}

	// One specialist answers per matched message, chosen by priority.
	if len(matched) > 0 {
		for _, role := range rolePriority {
			if role == store.OrchestratorRole {
				continue
			}
			if matched[role] {
				if bot, ok := botsByRole[role]; ok {
					return []store.Bot{*bot}
				}
			}
		}
	}

	// No keyword hit: prefer a generalist.
	for _, role := range fallbackRoles {
		if bot, ok := botsByRole[role]; ok {
			return []store.Bot{*bot}
		}
	}

	// Last resort: first non-orchestrator candidate in input order.
	for _, bot := range candidates {
		if bot.Role != store.OrchestratorRole {
			return []store.Bot{bot}
		}
	}
	return []store.Bot{candidates[0]}
}
