package models

type State string

const (
	Classify       State = "classify"
	PolicyFilter   State = "policy_filter"
	AnswerDirect   State = "answer_direct"
	PlanTools      State = "plan_tools"
	ExecuteTools   State = "execute_tools"
	Synthesize     State = "synthesize"
	Done           State = "done"
	DegradedAnswer State = "degraded_answer" // terminal, reachable from any state
)

