package analysis

import "sort"

// modelPrices is the fixed per-request credit cost of each supported model.
// Pricing is deliberately coarse; token-based billing is handled upstream by
// the provider account, not by the ledger.
var modelPrices = map[string]int{
	"gpt-4o":      3,
	"gpt-4o-mini": 1,
	"gpt-4-turbo": 5,
}

// CostFor returns the credit cost of one request against the given model.
func CostFor(model string) (int, bool) {
	cost, ok := modelPrices[model]
	return cost, ok
}

// SupportedModels lists the priced models in stable order.
func SupportedModels() []string {
	models := make([]string, 0, len(modelPrices))
	for model := range modelPrices {
		models = append(models, model)
	}
	sort.Strings(models)
	return models
}
