// Package questions supplies quiz content: a static multiple-choice bank, a
// math problem generator, and the interfaces external question providers
// implement.
package questions

import (
	"context"

	"github.com/kidbank/backend/internal/models"
)

// Question categories.
const (
	CategoryFinancial = "financial_education"
	CategorySpelling  = "spelling"
	CategoryScience   = "science"
	CategoryMath      = "math"
)

// Provider returns exactly count items for a category, or fails.
type Provider interface {
	Questions(ctx context.Context, category string, count int) ([]models.Item, error)
}

// AIProvider generates age-targeted questions. It may fail transiently; the
// caller treats failure as the provider being unavailable, not as an empty
// bank.
type AIProvider interface {
	Generate(ctx context.Context, category string, age, difficulty, count int) ([]models.Item, error)
}
