package models

import "github.com/google/uuid"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Request struct {
	Utterance string       `json:"utterance"`
	History   []Message    `json:"conversation_history"`
	UserID    string       `json:"user_id"`
	Policy    *UsagePolicy `json:"policy,omitempty"`
}

const (
	ApproachGeneralKnowledge = "general_knowledge"
	ApproachCurrentInfo      = "current_info"
	ApproachToolBased        = "tool_based"
	ApproachContextAnswer    = "context_answer"
	ApproachLLMPlanned       = "llm_planned"
	ApproachToolsDisabled    = "tools_disabled_by_user"
	ApproachDegraded         = "degraded_answer"
)

type Response struct {
	RequestID      uuid.UUID      `json:"request_id"`
	Success        bool           `json:"success"`
	Response       string         `json:"response"`
	Approach       string         `json:"approach"`
	Classification Classification `json:"classification"`
	ToolsUsed      []string       `json:"tools_used"`
	States         []State        `json:"-"`
}
