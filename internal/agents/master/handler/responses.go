package handler

import (
	intentErrors "go-intentflow/pkg/errors"
	"go-intentflow/pkg/models"
	"go-intentflow/pkg/template"
)

const (
	msgDegraded  = "I'm sorry, something went wrong while handling your request. Please try again in a moment."
	msgNoAnswer  = "I'm sorry, I couldn't put an answer together just now. Please try again in a moment."
	msgEmpty     = "Please tell me what you would like to know."
	msgCancelled = "The request was cancelled before I could finish."
	msgAutoOff   = "Automatic tool use is turned off in your settings, so I can't look that up for you."
	msgNoTools   = "None of the tools I'm allowed to use can answer that, so I can't look it up for you."
)

const codeEmptyUtterance = "empty_utterance"

const (
	blockedTemplate = "Access to {{range $i, $c := .}}{{if $i}}, {{end}}{{$c}}{{end}} is disabled in your settings, " +
		"so I can't look that up for you. Enable it if you want me to use it."
	toolsFailedTemplate = "I'm sorry, I couldn't retrieve that information because the tools I tried failed " +
		"({{range $i, $t := .}}{{if $i}}, {{end}}{{$t}}{{end}}). Please try again later."
)

func blockedMessage(categories []models.Category) string {
	if len(categories) == 0 {
		return msgNoTools
	}
	msg, err := template.Parse(blockedTemplate, categories)
	if err != nil {
		return msgNoTools
	}
	return msg
}

func toolsFailedMessage(tools []string) string {
	msg, err := template.Parse(toolsFailedTemplate, tools)
	if err != nil {
		return msgDegraded
	}
	return msg
}

// degradedMessage picks the apology for a failed request. The error text itself never
// reaches the user.
func degradedMessage(err error) string {
	switch intentErrors.CategoryOf(err) {
	case intentErrors.CategoryInvalidInput:
		if intentErrors.CodeOf(err) == codeEmptyUtterance {
			return msgEmpty
		}
		return msgDegraded
	case intentErrors.CategorySynthesis:
		return msgNoAnswer
	default:
		return msgDegraded
	}
}
