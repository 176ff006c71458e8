package inventory

import "github.com/shopspring/decimal"

// WeightedAverageCost costo promedio ponderado tras recibir mercancía (servicio de dominio).
// nuevo = (existencia*costo + entrada*costoEntrada) / (existencia + entrada)
func WeightedAverageCost(onHand int64, currentCost decimal.Decimal, incoming int64, incomingCost decimal.Decimal) decimal.Decimal {
	total := onHand + incoming
	if total <= 0 {
		return decimal.Zero
	}
	if onHand <= 0 {
		return incomingCost
	}
	num := decimal.NewFromInt(onHand).Mul(currentCost).Add(decimal.NewFromInt(incoming).Mul(incomingCost))
	return num.Div(decimal.NewFromInt(total)).Round(4)
}
