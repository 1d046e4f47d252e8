// Package pricing estimates token counts and maps token usage to dollar
// cost. All functions are pure; prices are per million tokens in USD.
package pricing

import (
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// FallbackModel prices requests for model identifiers missing from the
// table. It matches the service's default model.
const FallbackModel = "grok-4-fast-non-reasoning"

type Price struct {
	InputPerMillion  decimal.Decimal
	OutputPerMillion decimal.Decimal
}

var priceTable = map[string]Price{
	"grok-4-fast-non-reasoning":  price("0.20", "0.50"),
	"grok-4-fast-reasoning":      price("0.20", "0.50"),
	"grok-4":                     price("3.00", "15.00"),
	"grok-3-mini":                price("0.30", "0.50"),
	"gpt-4o-mini":                price("0.15", "0.60"),
	"gpt-4o":                     price("2.50", "10.00"),
	"gpt-4.1-mini":               price("0.40", "1.60"),
	"claude-3-5-haiku-20241022":  price("0.80", "4.00"),
	"claude-3-5-sonnet-20241022": price("3.00", "15.00"),
	"gemini-2.0-flash":           price("0.10", "0.40"),
	"gemini-1.5-flash":           price("0.075", "0.30"),
}

func price(in, out string) Price {
	return Price{
		InputPerMillion:  decimal.RequireFromString(in),
		OutputPerMillion: decimal.RequireFromString(out),
	}
}

var million = decimal.NewFromInt(1_000_000)

// EstimateTokens approximates the token count of text as ceil(runes / 3.5),
// the heuristic used when a provider does not report usage. Empty text is
// zero tokens; any non-empty text is at least one.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	// ceil(n / 3.5) == ceil(2n / 7)
	return (2*n + 6) / 7
}

// Cost returns the USD cost of a request. Unknown models fall back to
// FallbackModel pricing; negative token counts are treated as zero. The
// result is never negative and is exactly zero for zero tokens.
func Cost(model string, inputTokens, outputTokens int) decimal.Decimal {
	if inputTokens < 0 {
		inputTokens = 0
	}
	if outputTokens < 0 {
		outputTokens = 0
	}

	p, ok := priceTable[model]
	if !ok {
		p = priceTable[FallbackModel]
	}

	in := decimal.NewFromInt(int64(inputTokens)).Mul(p.InputPerMillion).Div(million)
	out := decimal.NewFromInt(int64(outputTokens)).Mul(p.OutputPerMillion).Div(million)
	return in.Add(out)
}

// Lookup returns the price entry for a model and whether it was found.
func Lookup(model string) (Price, bool) {
	p, ok := priceTable[model]
	return p, ok
}

// KnownModels lists every model identifier with an explicit price entry.
func KnownModels() []string {
	models := make([]string, 0, len(priceTable))
	for m := range priceTable {
		models = append(models, m)
	}
	return models
}
