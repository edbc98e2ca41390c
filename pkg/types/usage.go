package types

// ApplianceUsageEntry is the input to a single consumption calculation.
type ApplianceUsageEntry struct {
	Name        string  `json:"name"`
	Wattage     float64 `json:"wattage"`
	HoursPerDay float64 `json:"hoursPerDay"`
	DaysPerWeek float64 `json:"daysPerWeek"`
}

// ConsumptionFigures is energy use in kWh for each horizon, rounded to 2
// decimal places.
type ConsumptionFigures struct {
	Daily   float64 `json:"daily"`
	Weekly  float64 `json:"weekly"`
	Monthly float64 `json:"monthly"`
}

// CostFigures is the cost for each horizon in the currency unit of the rate
// it was computed with, rounded to 2 decimal places.
type CostFigures struct {
	Daily   float64 `json:"daily"`
	Weekly  float64 `json:"weekly"`
	Monthly float64 `json:"monthly"`
}

// ApplianceResult is the per-appliance line of a multi-appliance calculation.
type ApplianceResult struct {
	Name        string             `json:"name"`
	Wattage     float64            `json:"wattage"`
	Consumption ConsumptionFigures `json:"consumption"`
	Cost        CostFigures        `json:"cost"`
}

// AggregateResult is the outcome of a multi-appliance calculation. The totals
// are sums of the already-rounded per-appliance figures, rounded again.
type AggregateResult struct {
	Appliances       []ApplianceResult  `json:"appliances"`
	TotalConsumption ConsumptionFigures `json:"totalConsumption"`
	TotalCost        CostFigures        `json:"totalCost"`
}
