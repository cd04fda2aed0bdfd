package cost

// Image pricing in USD per output image. Edits are billed for input image
// tokens as well, so these are lower bounds.

type PricingKey struct {
	Model   string
	Size    string
	Quality string
}

// tier holds the per-quality prices of one size class.
type tier struct {
	low, medium, high float64
}

type gptImagePrices struct {
	square, rect tier
}

var gptImagePricing = map[string]gptImagePrices{
	"gpt-image-1.5": {
		square: tier{low: 0.009, medium: 0.034, high: 0.133},
		rect:   tier{low: 0.013, medium: 0.050, high: 0.200},
	},
	"gpt-image-1": {
		square: tier{low: 0.011, medium: 0.042, high: 0.167},
		rect:   tier{low: 0.016, medium: 0.063, high: 0.250},
	},
	"gpt-image-1-mini": {
		square: tier{low: 0.005, medium: 0.011, high: 0.036},
		rect:   tier{low: 0.006, medium: 0.015, high: 0.052},
	},
}

// Gemini bills a flat price per generated image.
var geminiPricing = map[string]float64{
	"gemini-3-pro-image-preview": 0.134,
	"gemini-2.5-flash-image":     0.039,
}

var openAIPricing = buildOpenAIPricing()

func buildOpenAIPricing() map[PricingKey]float64 {
	sizes := map[string]func(gptImagePrices) tier{
		"1024x1024": func(p gptImagePrices) tier { return p.square },
		"auto":      func(p gptImagePrices) tier { return p.square },
		"1536x1024": func(p gptImagePrices) tier { return p.rect },
		"1024x1536": func(p gptImagePrices) tier { return p.rect },
	}

	table := make(map[PricingKey]float64)
	for model, prices := range gptImagePricing {
		for size, pick := range sizes {
			t := pick(prices)
			table[PricingKey{model, size, "low"}] = t.low
			table[PricingKey{model, size, "medium"}] = t.medium
			table[PricingKey{model, size, "high"}] = t.high
			// auto is billed like medium
			table[PricingKey{model, size, "auto"}] = t.medium
		}
	}
	return table
}

func GetOpenAIPrice(model, size, quality string) (float64, bool) {
	price, ok := openAIPricing[PricingKey{Model: model, Size: size, Quality: quality}]
	return price, ok
}

func GetGeminiPrice(model string) (float64, bool) {
	price, ok := geminiPricing[model]
	return price, ok
}
