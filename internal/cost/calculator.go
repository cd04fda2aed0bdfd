package cost

import (
	"fmt"

	"github.com/manash/slidegen/pkg/models"
)

const (
	CurrencyUSD = "USD"
)

type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

// Estimate returns the estimated cost of one render. Unknown combinations
// fall back to the model's default tier, and unknown models cost zero.
func (c *Calculator) Estimate(provider models.ProviderType, model, size string, quality models.Quality) *models.CostInfo {
	var total float64

	switch provider {
	case models.ProviderOpenAI:
		total = c.estimateOpenAI(model, size, string(quality))
	case models.ProviderGemini:
		total, _ = GetGeminiPrice(model)
	}

	return &models.CostInfo{
		Total:    total,
		Currency: CurrencyUSD,
	}
}

func (c *Calculator) estimateOpenAI(model, size, quality string) float64 {
	if price, ok := GetOpenAIPrice(model, size, quality); ok {
		return price
	}

	// Default fallback: medium quality on the landscape slide size.
	if price, ok := GetOpenAIPrice(model, "1536x1024", "medium"); ok {
		return price
	}
	return 0
}

// Format renders a cost for display, e.g. "$0.2000 USD".
func Format(info *models.CostInfo) string {
	if info == nil {
		return ""
	}
	return fmt.Sprintf("$%.4f %s", info.Total, info.Currency)
}
