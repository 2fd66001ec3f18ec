// Package errors carries the engine's failure taxonomy. Lower layers wrap their causes with a
// category so the next layer up can decide how to degrade without string matching.
package errors

import "errors"

type Category string

const (
	CategoryClassification Category = "classification_failure"
	CategoryToolExecution  Category = "tool_execution_failure"
	CategorySynthesis      Category = "synthesis_failure"
	CategoryPolicyBlocked  Category = "policy_blocked"
	CategoryDegraded       Category = "degraded"
	CategoryInvalidInput   Category = "invalid_input"
)

type classifiedError struct {
	category Category
	code     string
	cause    error
}

func (e *classifiedError) Error() string {
	if e.cause == nil {
		return "unknown error"
	}
	return e.cause.Error()
}

func (e *classifiedError) Unwrap() error {
	return e.cause
}

func Wrap(cause error, category Category, code string) error {
	if cause == nil {
		return nil
	}
	return &classifiedError{category: category, code: code, cause: cause}
}

func New(category Category, code, msg string) error {
	return Wrap(errors.New(msg), category, code)
}

func CategoryOf(err error) Category {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.category
	}
	return ""
}

func CodeOf(err error) string {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.code
	}
	return ""
}

func Is(err error, category Category) bool {
	return err != nil && CategoryOf(err) == category
}
