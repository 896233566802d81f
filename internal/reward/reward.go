// Package reward holds the pure gating rules: given a unit kind and its
// aggregate result, decide how much to pay and whether to pay at all. No
// state, no I/O.
package reward

import "github.com/kidbank/backend/internal/models"

// Policy carries the configurable reward constants. The auto-quiz formula
// (one unit per block of correct answers, capped) mirrors observed production
// behavior; note a set smaller than CorrectPerUnit can never pay, which is
// why the constants are policy rather than contract.
type Policy struct {
	AutoQuizUnitCents int64
	AutoQuizCapCents  int64
	CorrectPerUnit    int
	AchievementCents  int64
}

// DefaultPolicy returns the production constants: R$1.00 per 10 correct,
// capped at R$2.00, 50-cent achievement bonuses.
func DefaultPolicy() Policy {
	return Policy{
		AutoQuizUnitCents: 100,
		AutoQuizCapCents:  200,
		CorrectPerUnit:    10,
		AchievementCents:  50,
	}
}

// Outcome is the settlement decision for a finished unit.
type Outcome struct {
	AmountCents int64
	Pay         bool
}

// Evaluate decides the payout for a batched unit in which correct of total
// items were answered correctly. Manual, creative, and auto-task units settle
// on approval instead and always pay the stored amount (see Approval).
func (p Policy) Evaluate(kind string, auto bool, correct, total int, storedCents int64) Outcome {
	switch kind {
	case models.UnitQuizSet, models.UnitMathSet:
		if auto {
			amount := int64(correct/p.CorrectPerUnit) * p.AutoQuizUnitCents
			if amount > p.AutoQuizCapCents {
				amount = p.AutoQuizCapCents
			}
			return Outcome{AmountCents: amount, Pay: amount > 0}
		}
		if correct == total {
			return Outcome{AmountCents: storedCents, Pay: true}
		}
		return Outcome{}
	case models.UnitDailyMission:
		return Outcome{AmountCents: storedCents, Pay: true}
	default:
		return Outcome{AmountCents: storedCents, Pay: true}
	}
}

// Approval is the payout for a manually approved unit: always the stored
// amount.
func (p Policy) Approval(storedCents int64) Outcome {
	return Outcome{AmountCents: storedCents, Pay: storedCents > 0}
}
