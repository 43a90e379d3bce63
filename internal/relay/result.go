package relay

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Outcome classifies how a single relay attempt ended.
type Outcome int

const (
	OutcomeAnswered Outcome = iota
	OutcomeEmpty
	OutcomeUnauthorized
	OutcomeServiceError
	OutcomeUnreachable
)

var outcomeNames = map[Outcome]string{
	OutcomeAnswered:     "answered",
	OutcomeEmpty:        "empty",
	OutcomeUnauthorized: "unauthorized",
	OutcomeServiceError: "service_error",
	OutcomeUnreachable:  "unreachable",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "unknown"
}

// ParseOutcome is the inverse of Outcome.String.
func ParseOutcome(s string) (Outcome, bool) {
	for o, name := range outcomeNames {
		if name == s {
			return o, true
		}
	}
	return 0, false
}

// Result is the tagged outcome of Ask. Text is always displayable: either the
// extracted answer or the diagnostic for the failure kind.
type Result struct {
	Outcome    Outcome
	Text       string
	StatusCode int
	Err        error
	Elapsed    time.Duration
}

// OK reports whether the prediction service produced an answer.
func (r Result) OK() bool { return r.Outcome == OutcomeAnswered }

// StatusError is returned for non-2xx replies from the prediction service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("prediction service returned status %d: %s", e.StatusCode, e.Body)
}

// Messages holds the user-facing diagnostics substituted for failed relays.
// ServiceError may reference {status} and {body}.
type Messages struct {
	Unauthorized string
	ServiceError string
	Unreachable  string
	EmptyAnswer  string
}

// DefaultMessages returns the stock diagnostics.
func DefaultMessages() Messages {
	return Messages{
		Unauthorized: "🚨 Authorization failed: check the Flowise API key and chatflow ID.",
		ServiceError: "🚨 Flowise error {status}: {body}",
		Unreachable:  "🚨 Could not reach Flowise. Please try again later.",
		EmptyAnswer:  "❌ Flowise returned an empty response.",
	}
}

// withDefaults fills blank entries from DefaultMessages.
func (m Messages) withDefaults() Messages {
	d := DefaultMessages()
	if m.Unauthorized == "" {
		m.Unauthorized = d.Unauthorized
	}
	if m.ServiceError == "" {
		m.ServiceError = d.ServiceError
	}
	if m.Unreachable == "" {
		m.Unreachable = d.Unreachable
	}
	if m.EmptyAnswer == "" {
		m.EmptyAnswer = d.EmptyAnswer
	}
	return m
}

func (m Messages) serviceError(status int, body string) string {
	return strings.NewReplacer(
		"{status}", strconv.Itoa(status),
		"{body}", body,
	).Replace(m.ServiceError)
}
