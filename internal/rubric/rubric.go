// Package rubric holds the compiled-in rubric dictionaries of both survey variants.
package rubric

import "github.com/ppiankov/pairwise/internal/model"

var (
	noveltyReasoning = model.Category{
		ID:          "novelty_reasoning_alignment",
		Title:       "Novelty Reasoning Alignment",
		Description: "Which assessment better captures the key novelty arguments and reasoning presented in the reference review?",
	}
	noveltyDecision = model.Category{
		ID:          "novelty_decision_alignment",
		Title:       "Novelty Decision Alignment",
		Description: "Which assessment reaches a novelty conclusion that is more consistent with the reference review's novelty decision?",
	}
	claimSubstantiation = model.Category{
		ID:    "claim_substantiation",
		Title: "Claim Substantiation",
		Description: "Which candidate better supports their claims with evidence? Consider which one: " +
			"(1) Provides specific examples or citations to back up statements, " +
			"(2) References concrete details from the paper being reviewed, " +
			"(3) Uses evidence that directly supports their novelty arguments, " +
			"(4) Avoids unsupported generalizations or assertions",
	}
	analyticalQuality = model.Category{
		ID:    "analytical_quality",
		Title: "Analytical Quality",
		Description: "Which assessment provides a more thorough and insightful technical analysis? Consider which one: " +
			"(1) Explains technical methods and contributions in more detail, " +
			"(2) Identifies specific strengths and limitations of the approach, " +
			"(3) Demonstrates deeper understanding of the technical content, " +
			"(4) Provides more substantive evaluation beyond surface-level comments",
	}
	constructiveness = model.Category{
		ID:          "constructiveness",
		Title:       "Constructiveness",
		Description: "Which assessment gives the authors more actionable guidance for positioning or strengthening the novelty of their work?",
	}
	overallPreference = model.Category{
		ID:          "overall_preference",
		Title:       "Overall Preference",
		Description: "Taking everything into account, which novelty assessment would you rather receive alongside the reference review?",
	}
)

// Hybrid returns the rubric of the assigned-sample survey: 4 categories, 4 options.
func Hybrid() model.Rubric {
	return model.Rubric{
		Categories: []model.Category{
			noveltyReasoning,
			noveltyDecision,
			claimSubstantiation,
			analyticalQuality,
		},
		Options: []model.ResponseOption{
			{ID: "a_wins", Label: "A wins"},
			{ID: "b_wins", Label: "B wins"},
			{ID: "tie", Label: "Tie"},
			{ID: "unclear", Label: "Unclear"},
		},
	}
}

// Random returns the rubric of the random-pairing survey: 6 categories on a
// 5-point preference scale.
func Random() model.Rubric {
	return model.Rubric{
		Categories: []model.Category{
			noveltyReasoning,
			noveltyDecision,
			claimSubstantiation,
			analyticalQuality,
			constructiveness,
			overallPreference,
		},
		Options: []model.ResponseOption{
			{ID: "a_much_better", Label: "A much better"},
			{ID: "a_better", Label: "A better"},
			{ID: "tie", Label: "Tie"},
			{ID: "b_better", Label: "B better"},
			{ID: "b_much_better", Label: "B much better"},
		},
	}
}

// ForMode returns the rubric of the given survey variant
func ForMode(mode model.Mode) model.Rubric {
	if mode == model.ModeRandom {
		return Random()
	}
	return Hybrid()
}
