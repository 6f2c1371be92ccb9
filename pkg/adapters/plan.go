package adapters

import (
	"github.com/de-tools/royalty-ledger/pkg/models/api"
	"github.com/de-tools/royalty-ledger/pkg/models/domain"
)

func MapWritePlanDomainToApi(plan domain.WritePlan) api.WritePlan {
	out := api.WritePlan{
		Period:  plan.Period.Key(),
		Actions: make([]api.Action, 0, len(plan.Actions)),
	}
	for _, a := range plan.Actions {
		out.Actions = append(out.Actions, MapActionDomainToApi(a))
	}
	return out
}

func MapActionDomainToApi(a domain.Action) api.Action {
	return api.Action{
		Kind:     string(a.Kind),
		Position: a.Position,
		Row:      MapNormalizedRowDomainToApi(a.Row),
	}
}

func MapNormalizedRowDomainToApi(r domain.NormalizedRow) api.Row {
	return api.Row{
		Period:      r.Period.Key(),
		Publisher:   r.Publisher,
		Title:       r.Title,
		SKU:         r.SKU,
		UnitsSold:   r.UnitsSold,
		Net:         r.Net.Amount.StringFixed(2),
		RoyaltyRate: r.RoyaltyRate.String(),
		Royalty:     r.Royalty.Amount.StringFixed(2),
		Currency:    r.Royalty.Currency,
		Hash:        r.Hash,
	}
}
