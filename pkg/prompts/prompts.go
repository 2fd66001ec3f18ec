package prompts

import (
	langChainPrompts "github.com/tmc/langchaingo/prompts"
)

// Templates use Go text/template syntax; literal JSON examples never contain a double brace.
var (
	Classification = langChainPrompts.NewPromptTemplate(classificationTemplate,
		[]string{"Utterance", "History", "Hint", "Tools"})
	Plan = langChainPrompts.NewPromptTemplate(planTemplate,
		[]string{"Utterance", "History", "Tools", "Feedback"})
	Synthesis = langChainPrompts.NewPromptTemplate(synthesisTemplate,
		[]string{"Question", "Results"})
	DirectAnswer = langChainPrompts.NewPromptTemplate(directAnswerTemplate,
		[]string{"Question", "History", "SearchResults"})
	ContextAnswer = langChainPrompts.NewPromptTemplate(contextAnswerTemplate,
		[]string{"Question", "History"})
	Evaluation = langChainPrompts.NewPromptTemplate(evaluationTemplate,
		[]string{"Question", "Answer", "Tools"})
)

const classificationTemplate = `
You classify requests sent to a personal assistant that can read the user's Gmail, Google Drive and
Google Calendar and can search the web.

Categories:
- GENERAL_KNOWLEDGE: facts, definitions, explanations, anything answerable without tools
- PERSONAL_DATA: needs the user's own email, files or calendar
- CONTEXT_DEPENDENT: only makes sense with the previous conversation (pronouns, follow-ups)
- CURRENT_INFO: needs up-to-date public information (news, prices, weather, live results)
- AMBIGUOUS: none of the above can be decided

Conversation so far:
{{.History}}

Faster classifiers already looked at this request and reported: {{.Hint}}

Available tools:
{{.Tools}}
Request: "{{.Utterance}}"

Answer with json only, in this format:
{
    "kind": "ONE_OF_THE_CATEGORIES",
    "confidence": 0.0,
    "needs_tools": true,
    "suggested_tools": ["TOOL_NAME"],
    "reasoning": "ONE_SENTENCE"
}
`

const planTemplate = `
You are the planning step of a personal assistant. Decide whether the request needs tools and, if so,
produce the smallest ordered plan of tool calls that answers it.

Conversation so far:
{{.History}}

Request: "{{.Utterance}}"

Available tools:
{{.Tools}}
{{.Feedback}}

Rules:
- only use tools from the list, with parameters matching their schema
- a step may use output of an earlier step with the placeholder "$stepN.field" (N starts at 1) or
  "$prev.field", for example {"message_id": "$step1.message_id"}
- give every step a short purpose

Answer with json only, in this format:
{
    "needs_tools": true,
    "reasoning": "WHY",
    "steps": [
        {"tool_name": "TOOL_NAME", "parameters": {}, "purpose": "WHAT_THIS_STEP_FINDS"}
    ]
}
`

const synthesisTemplate = `
You answer the user's question using only the tool results below. Answer directly and concisely.
Do not invent data that is not in the results. Copy every link exactly as it appears, character for
character; never shorten, rewrite or drop a URL.

Question: "{{.Question}}"

Tool results:
{{.Results}}
`

const directAnswerTemplate = `
You are a helpful assistant. Answer the question directly and accurately.

Conversation so far:
{{.History}}
{{.SearchResults}}
Question: "{{.Question}}"
`

const contextAnswerTemplate = `
Answer the user's follow-up question using only what was already said in this conversation. Do not
claim to have looked anything up. Copy links exactly as they appear.

Conversation so far:
{{.History}}

Follow-up question: "{{.Question}}"
`

const evaluationTemplate = `
You grade an assistant's answer.

Question: "{{.Question}}"
Answer: "{{.Answer}}"
Tools used: {{.Tools}}

Score how well the answer addresses the question from 0.0 (useless or failed) to 1.0 (complete and
correct), and rate each tool used from 0.0 to 1.0 for how much it contributed.

Answer with json only, in this format:
{
    "quality_score": 0.0,
    "addressed_question": true,
    "tool_effectiveness": {"TOOL_NAME": 0.0},
    "suggestions": ["IMPROVEMENT"]
}
`
