package calc

import (
	"errors"
	"fmt"
	"math"

	"github.com/wattwise/wattwise/pkg/types"
)

// WeeksPerMonth is the average number of weeks in a month used for the monthly
// horizon. It is an approximation and not calendar accurate.
const WeeksPerMonth = 4.33

var (
	// ErrInvalidInput is returned when a numeric argument is non-positive or
	// non-finite, or when a result would not be finite.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyAggregate is returned when Aggregate is called without entries.
	ErrEmptyAggregate = errors.New("no appliances to aggregate")
)

// ComputeConsumption returns the daily, weekly and monthly kWh used by an
// appliance drawing wattage watts for hoursPerDay hours on daysPerWeek days.
//
// Weekly and monthly are derived from the unrounded daily chain, rounding is
// only applied to the three returned figures.
func ComputeConsumption(wattage, hoursPerDay, daysPerWeek float64) (types.ConsumptionFigures, error) {
	if err := positive("wattage", wattage); err != nil {
		return types.ConsumptionFigures{}, err
	}
	if err := positive("hoursPerDay", hoursPerDay); err != nil {
		return types.ConsumptionFigures{}, err
	}
	if err := positive("daysPerWeek", daysPerWeek); err != nil {
		return types.ConsumptionFigures{}, err
	}

	kilowatts := wattage / 1000
	daily := kilowatts * hoursPerDay
	weekly := daily * daysPerWeek
	monthly := weekly * WeeksPerMonth
	if math.IsInf(monthly, 0) {
		return types.ConsumptionFigures{}, fmt.Errorf("%w: consumption overflows", ErrInvalidInput)
	}

	return types.ConsumptionFigures{
		Daily:   Round2(daily),
		Weekly:  Round2(weekly),
		Monthly: Round2(monthly),
	}, nil
}

// ComputeCost prices each consumption horizon at rate. Every horizon is
// computed from its own rounded consumption figure, weekly cost is not derived
// from daily cost.
func ComputeCost(c types.ConsumptionFigures, rate float64) (types.CostFigures, error) {
	if err := positive("rate", rate); err != nil {
		return types.CostFigures{}, err
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"daily consumption", c.Daily},
		{"weekly consumption", c.Weekly},
		{"monthly consumption", c.Monthly},
	} {
		if err := nonNegative(f.name, f.v); err != nil {
			return types.CostFigures{}, err
		}
	}

	cost := types.CostFigures{
		Daily:   Round2(c.Daily * rate),
		Weekly:  Round2(c.Weekly * rate),
		Monthly: Round2(c.Monthly * rate),
	}
	if math.IsInf(cost.Daily, 0) || math.IsInf(cost.Weekly, 0) || math.IsInf(cost.Monthly, 0) {
		return types.CostFigures{}, fmt.Errorf("%w: cost overflows", ErrInvalidInput)
	}
	return cost, nil
}

// Calculate runs ComputeConsumption and then ComputeCost for a single entry.
func Calculate(e types.ApplianceUsageEntry, rate float64) (types.ApplianceResult, error) {
	consumption, err := ComputeConsumption(e.Wattage, e.HoursPerDay, e.DaysPerWeek)
	if err != nil {
		return types.ApplianceResult{}, err
	}
	cost, err := ComputeCost(consumption, rate)
	if err != nil {
		return types.ApplianceResult{}, err
	}
	return types.ApplianceResult{
		Name:        e.Name,
		Wattage:     e.Wattage,
		Consumption: consumption,
		Cost:        cost,
	}, nil
}

// Aggregate calculates every entry at the shared rate and sums the results.
//
// Appliances are returned in input order. Each total is the sum of the
// per-appliance rounded figures, rounded again; it is never recomputed from the
// raw inputs. Either the whole aggregate is returned or an error, never a
// partial result.
func Aggregate(entries []types.ApplianceUsageEntry, rate float64) (types.AggregateResult, error) {
	if len(entries) == 0 {
		return types.AggregateResult{}, ErrEmptyAggregate
	}
	if err := positive("rate", rate); err != nil {
		return types.AggregateResult{}, err
	}

	results := make([]types.ApplianceResult, len(entries))
	for i, e := range entries {
		r, err := Calculate(e, rate)
		if err != nil {
			return types.AggregateResult{}, fmt.Errorf("appliance %d (%s): %w", i, e.Name, err)
		}
		results[i] = r
	}

	var consumption types.ConsumptionFigures
	var cost types.CostFigures
	for _, r := range results {
		consumption.Daily += r.Consumption.Daily
		consumption.Weekly += r.Consumption.Weekly
		consumption.Monthly += r.Consumption.Monthly
		cost.Daily += r.Cost.Daily
		cost.Weekly += r.Cost.Weekly
		cost.Monthly += r.Cost.Monthly
	}

	return types.AggregateResult{
		Appliances: results,
		TotalConsumption: types.ConsumptionFigures{
			Daily:   Round2(consumption.Daily),
			Weekly:  Round2(consumption.Weekly),
			Monthly: Round2(consumption.Monthly),
		},
		TotalCost: types.CostFigures{
			Daily:   Round2(cost.Daily),
			Weekly:  Round2(cost.Weekly),
			Monthly: Round2(cost.Monthly),
		},
	}, nil
}

func positive(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be finite, got %v", ErrInvalidInput, name, v)
	}
	if v <= 0 {
		return fmt.Errorf("%w: %s must be greater than 0, got %v", ErrInvalidInput, name, v)
	}
	return nil
}

func nonNegative(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be finite, got %v", ErrInvalidInput, name, v)
	}
	if v < 0 {
		return fmt.Errorf("%w: %s must not be negative, got %v", ErrInvalidInput, name, v)
	}
	return nil
}
