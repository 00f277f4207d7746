package pipeline

import (
	"fmt"
	"strings"
)

// ErrorKind is the coarse error taxonomy surfaced on run termination.
type ErrorKind string

const (
	ErrorKindAuth       ErrorKind = "auth"
	ErrorKindRateLimit  ErrorKind = "rate_limit"
	ErrorKindBilling    ErrorKind = "billing"
	ErrorKindNetwork    ErrorKind = "network"
	ErrorKindFilesystem ErrorKind = "filesystem"
	ErrorKindCancelled  ErrorKind = "cancelled"
	ErrorKindGeneric    ErrorKind = "generic"
)

// ErrorDetails is the user-facing explanation of a terminal error. It
// supplements, never replaces, the raw message persisted in the error
// log.
type ErrorDetails struct {
	Kind      ErrorKind
	Title     string
	Message   string
	Solution  string
	Technical string
}

// Classify pattern-matches the error text against the taxonomy. It is a
// user-experience aid, not a correctness mechanism; unmatched errors fall
// through to a generic explanation naming the phase.
func Classify(err error, phase string) ErrorDetails {
	text := strings.ToLower(err.Error())
	technical := err.Error()

	switch {
	case strings.Contains(text, "api key") || strings.Contains(text, "unauthorized") || strings.Contains(text, "401"):
		provider := "research provider"
		if phase == "synthesis" {
			provider = "synthesis provider"
		}
		return ErrorDetails{
			Kind:      ErrorKindAuth,
			Title:     "API Authentication Error",
			Message:   fmt.Sprintf("The %s API key is invalid or not configured.", provider),
			Solution:  "Check the API key in your environment configuration and restart the application.",
			Technical: technical,
		}

	case strings.Contains(text, "rate limit") || strings.Contains(text, "quota") || strings.Contains(text, "429"):
		return ErrorDetails{
			Kind:      ErrorKindRateLimit,
			Title:     "Rate Limit Exceeded",
			Message:   "The API request limit was reached.",
			Solution:  "Wait a few minutes before retrying, or check your plan limits on the provider's platform.",
			Technical: technical,
		}

	case strings.Contains(text, "credit") || strings.Contains(text, "billing") || strings.Contains(text, "payment") || strings.Contains(text, "insufficient"):
		return ErrorDetails{
			Kind:      ErrorKindBilling,
			Title:     "Insufficient API Credits",
			Message:   "The API account has no remaining credits.",
			Solution:  "Add credits to your provider account and retry.",
			Technical: technical,
		}

	case strings.Contains(text, "connection") || strings.Contains(text, "timeout") || strings.Contains(text, "network"):
		return ErrorDetails{
			Kind:      ErrorKindNetwork,
			Title:     "Connection Error",
			Message:   "Could not reach the API service.",
			Solution:  "Check your network connection and retry. The service may be temporarily unavailable.",
			Technical: technical,
		}

	case strings.Contains(text, "permission denied") || strings.Contains(text, "permission"):
		return ErrorDetails{
			Kind:      ErrorKindFilesystem,
			Title:     "Filesystem Permission Error",
			Message:   "Could not create or write output files.",
			Solution:  "Check write permissions on the output directory.",
			Technical: technical,
		}

	case strings.Contains(text, "cancelled by user") || strings.Contains(text, "canceled by user"):
		return ErrorDetails{
			Kind:      ErrorKindCancelled,
			Title:     "Analysis Cancelled",
			Message:   "The analysis was cancelled by the user.",
			Solution:  "Start a new analysis or continue the existing one when ready.",
			Technical: technical,
		}

	default:
		return ErrorDetails{
			Kind:      ErrorKindGeneric,
			Title:     "Unexpected Error",
			Message:   fmt.Sprintf("An error occurred during the %s phase.", phaseDisplayName(phase)),
			Solution:  "Retry the analysis. If the error persists, check the server logs for details.",
			Technical: technical,
		}
	}
}

// inferPhase keyword-sniffs the error text for a phase. Used only when
// no tracker exists yet; the tracker's recorded current phase is always
// preferred.
func inferPhase(err error) string {
	text := strings.ToLower(err.Error())
	switch {
	case strings.Contains(text, "research"):
		return "research"
	case strings.Contains(text, "synthesis"):
		return "synthesis"
	case strings.Contains(text, "generation") || strings.Contains(text, "pptx") || strings.Contains(text, "docx"):
		return "generation"
	default:
		return "unknown"
	}
}

func phaseDisplayName(phase string) string {
	switch phase {
	case "research":
		return "research"
	case "synthesis":
		return "synthesis"
	case "generation":
		return "document generation"
	default:
		return "analysis"
	}
}
