package services

import (
	"regexp"
	"strings"

	"github.com/yungbote/angie-backend/internal/logger"
	"github.com/yungbote/angie-backend/internal/types"
)

var (
	unsafePromptPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bharm\b`),
		regexp.MustCompile(`(?i)\bviolence\b`),
	}
	sensitivePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bpassword\b`),
		regexp.MustCompile(`(?i)\bssn\b`),
		regexp.MustCompile(`(?i)\bcredit\s*card\b`),
	}
	harmRedactRe = regexp.MustCompile(`(?i)harm`)
)

// PolicyService validates generated text before it reaches the learner.
// Violations are advisory: the orchestrator surfaces them alongside the
// result but never blocks the turn on them.
type PolicyService interface {
	ValidatePrompt(prompt string) types.PolicyResult
	ValidateFeedback(feedback types.Feedback) types.PolicyResult
}

type policyService struct {
	log *logger.Logger
}

func NewPolicyService(baseLog *logger.Logger) PolicyService {
	return &policyService{log: baseLog.With("service", "PolicyService")}
}

func (s *policyService) ValidatePrompt(prompt string) types.PolicyResult {
	var violations []types.PolicyViolation
	for _, pattern := range unsafePromptPatterns {
		if pattern.MatchString(prompt) {
			violations = append(violations, types.PolicyViolation{
				Code:    "unsafe_prompt",
				Message: "Prompt contains disallowed pattern: " + pattern.String(),
			})
		}
	}

	if len(violations) > 0 {
		s.log.Warn("Prompt failed policy validation", "violations", len(violations))
		return types.PolicyResult{
			Valid:          false,
			Violations:     violations,
			RedactedPrompt: harmRedactRe.ReplaceAllString(prompt, "h—m"),
		}
	}
	return types.PolicyResult{Valid: true, Violations: []types.PolicyViolation{}}
}

func (s *policyService) ValidateFeedback(feedback types.Feedback) types.PolicyResult {
	parts := []string{feedback.Summary}
	for _, fbErr := range feedback.Errors {
		parts = append(parts, fbErr.Correction)
	}
	plainText := strings.Join(parts, " ")

	var violations []types.PolicyViolation
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(plainText) {
			violations = append(violations, types.PolicyViolation{
				Code:    "contains_sensitive_data",
				Message: "Feedback contains a sensitive token " + pattern.String(),
			})
		}
	}

	if len(violations) > 0 {
		s.log.Warn("Feedback failed policy validation", "violations", len(violations))
		return types.PolicyResult{Valid: false, Violations: violations}
	}
	return types.PolicyResult{Valid: true, Violations: []types.PolicyViolation{}}
}
