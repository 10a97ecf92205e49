package payment

import "subpay/internal/domain"

// PlanDetails describes one tier of the fixed pricing catalog. The catalog
// is process-wide, read-only configuration; prices are in paise.
type PlanDetails struct {
	Key      domain.Plan `json:"key"`
	Name     string      `json:"name"`
	Price    int64       `json:"price"`
	Currency string      `json:"currency"`
	Features []string    `json:"features"`
}

var planCatalog = map[domain.Plan]PlanDetails{
	domain.PlanBasic: {
		Key:      domain.PlanBasic,
		Name:     "Basic Plan",
		Price:    999,
		Currency: "INR",
		Features: []string{"Dashboard Access", "Basic Analytics", "Email Support"},
	},
	domain.PlanPremium: {
		Key:      domain.PlanPremium,
		Name:     "Premium Plan",
		Price:    2999,
		Currency: "INR",
		Features: []string{"All Basic Features", "Advanced Analytics", "Priority Support", "API Access"},
	},
	domain.PlanEnterprise: {
		Key:      domain.PlanEnterprise,
		Name:     "Enterprise Plan",
		Price:    9999,
		Currency: "INR",
		Features: []string{"All Premium Features", "Custom Integrations", "Dedicated Support", "White Label"},
	},
}

var planOrder = []domain.Plan{domain.PlanBasic, domain.PlanPremium, domain.PlanEnterprise}

// Plans returns the catalog in ascending price order.
func Plans() []PlanDetails {
	out := make([]PlanDetails, 0, len(planOrder))
	for _, key := range planOrder {
		out = append(out, planCatalog[key])
	}
	return out
}

// LookupPlan resolves a plan key against the catalog.
func LookupPlan(key string) (PlanDetails, bool) {
	details, ok := planCatalog[domain.Plan(key)]
	return details, ok
}
