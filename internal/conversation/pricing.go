package conversation

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ConfabulousDev/chat-insights/internal/anthropic"
	"github.com/ConfabulousDev/chat-insights/internal/logger"
)

// ModelPricing is USD per million tokens.
type ModelPricing struct {
	Input  decimal.Decimal
	Output decimal.Decimal
}

// Source: https://www.anthropic.com/pricing
var modelPricingTable = map[string]ModelPricing{
	"opus-4-5":   {Input: decimal.NewFromInt(5), Output: decimal.NewFromInt(25)},
	"opus-4-1":   {Input: decimal.NewFromInt(15), Output: decimal.NewFromInt(75)},
	"opus-4":     {Input: decimal.NewFromInt(15), Output: decimal.NewFromInt(75)},
	"sonnet-4-5": {Input: decimal.NewFromInt(3), Output: decimal.NewFromInt(15)},
	"sonnet-4":   {Input: decimal.NewFromInt(3), Output: decimal.NewFromInt(15)},
	"sonnet-3-7": {Input: decimal.NewFromInt(3), Output: decimal.NewFromInt(15)},
	"haiku-4-5":  {Input: decimal.NewFromInt(1), Output: decimal.NewFromInt(5)},
	"haiku-3-5":  {Input: decimal.RequireFromString("0.80"), Output: decimal.NewFromInt(4)},
	"haiku-3":    {Input: decimal.RequireFromString("0.25"), Output: decimal.RequireFromString("1.25")},
}

var oneMillion = decimal.NewFromInt(1_000_000)

// modelFamily maps a model id to its pricing family, e.g.
// "claude-haiku-4-5-20251001" -> "haiku-4-5" and "claude-sonnet-4-20250514" -> "sonnet-4".
func modelFamily(model string) string {
	parts := strings.Split(strings.TrimPrefix(model, "claude-"), "-")
	if len(parts) < 2 {
		return strings.Join(parts, "-")
	}
	family := parts[0]
	if family != "opus" && family != "sonnet" && family != "haiku" {
		return strings.Join(parts, "-")
	}
	if !isDigit(parts[1]) {
		return strings.Join(parts, "-")
	}
	// Minor versions are one digit; date suffixes are longer.
	if len(parts) >= 3 && isDigit(parts[2]) {
		return family + "-" + parts[1] + "-" + parts[2]
	}
	return family + "-" + parts[1]
}

func isDigit(s string) bool {
	return len(s) == 1 && s[0] >= '0' && s[0] <= '9'
}

// EstimateCost returns the USD cost of usage on model. Unknown models cost
// zero and log a warning.
func EstimateCost(model string, usage anthropic.Usage) decimal.Decimal {
	if usage.InputTokens == 0 && usage.OutputTokens == 0 {
		return decimal.Zero
	}
	pricing, ok := modelPricingTable[modelFamily(model)]
	if !ok {
		logger.Warn("unknown model for pricing", "model", model)
		return decimal.Zero
	}
	in := decimal.NewFromInt(int64(usage.InputTokens)).Mul(pricing.Input)
	out := decimal.NewFromInt(int64(usage.OutputTokens)).Mul(pricing.Output)
	return in.Add(out).Div(oneMillion)
}
