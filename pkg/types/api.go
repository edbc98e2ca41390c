package types

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// DefaultApplianceName labels entries submitted without a name.
const DefaultApplianceName = "Custom Appliance"

// Bounds enforced on API input. They mirror the limits of the calculator form.
const (
	MinWattage     = 1
	MaxWattage     = 10000
	MinHoursPerDay = 0.1
	MaxHoursPerDay = 24
	MinDaysPerWeek = 1
	MaxDaysPerWeek = 7
	MinRate        = 0.1
)

// ErrValidation is wrapped by every error returned from a Validate method.
var ErrValidation = errors.New("invalid request")

// SingleRequest is the body of a single-appliance calculation.
type SingleRequest struct {
	Appliance   string  `json:"appliance"`
	Wattage     float64 `json:"wattage"`
	HoursPerDay float64 `json:"hoursPerDay"`
	DaysPerWeek float64 `json:"daysPerWeek"`
	// Rate is optional, the catalog's current rate is used when nil.
	Rate *float64 `json:"rate,omitempty"`
}

// Validate checks the request against the form bounds. A zero wattage is
// allowed so that the server can fill in an archetype's default.
func (r SingleRequest) Validate() error {
	if r.Wattage != 0 {
		if err := checkRange("wattage", r.Wattage, MinWattage, MaxWattage); err != nil {
			return err
		}
	}
	if err := checkUsage(r.HoursPerDay, r.DaysPerWeek); err != nil {
		return err
	}
	return checkRate(r.Rate)
}

// ApplianceInput is one line of a multi-appliance calculation.
type ApplianceInput struct {
	Name        string  `json:"name"`
	Wattage     float64 `json:"wattage"`
	HoursPerDay float64 `json:"hoursPerDay"`
	DaysPerWeek float64 `json:"daysPerWeek"`
}

// MultipleRequest is the body of a multi-appliance calculation.
type MultipleRequest struct {
	Appliances []ApplianceInput `json:"appliances"`
	Rate       *float64         `json:"rate,omitempty"`
}

// Validate checks every appliance line. Unlike the single form, the multi form
// has no upper wattage bound.
func (r MultipleRequest) Validate() error {
	if len(r.Appliances) == 0 {
		return fmt.Errorf("%w: at least one appliance is required", ErrValidation)
	}
	for i, a := range r.Appliances {
		if err := checkRange("wattage", a.Wattage, MinWattage, math.Inf(1)); err != nil {
			return fmt.Errorf("appliance %d: %w", i, err)
		}
		if err := checkUsage(a.HoursPerDay, a.DaysPerWeek); err != nil {
			return fmt.Errorf("appliance %d: %w", i, err)
		}
	}
	return checkRate(r.Rate)
}

// Entries converts the request into usage entries, labeling blank names with
// DefaultApplianceName.
func (r MultipleRequest) Entries() []ApplianceUsageEntry {
	entries := make([]ApplianceUsageEntry, len(r.Appliances))
	for i, a := range r.Appliances {
		entries[i] = ApplianceUsageEntry{
			Name:        ApplianceName(a.Name),
			Wattage:     a.Wattage,
			HoursPerDay: a.HoursPerDay,
			DaysPerWeek: a.DaysPerWeek,
		}
	}
	return entries
}

// ApplianceName returns name trimmed, or DefaultApplianceName if it is blank.
func ApplianceName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultApplianceName
	}
	return name
}

// SingleResponse is returned from a single-appliance calculation.
type SingleResponse struct {
	Appliance   string             `json:"appliance"`
	Wattage     float64            `json:"wattage"`
	HoursPerDay float64            `json:"hoursPerDay"`
	DaysPerWeek float64            `json:"daysPerWeek"`
	Rate        float64            `json:"rate"`
	Consumption ConsumptionFigures `json:"consumption"`
	Cost        CostFigures        `json:"cost"`
}

// MultipleResponse is returned from a multi-appliance calculation. Tariff is
// only set when the rate came from the catalog.
type MultipleResponse struct {
	AggregateResult
	Rate   float64 `json:"rate"`
	Tariff *Tariff `json:"tariff,omitempty"`
}

func checkUsage(hours, days float64) error {
	if err := checkRange("hoursPerDay", hours, MinHoursPerDay, MaxHoursPerDay); err != nil {
		return err
	}
	if err := checkRange("daysPerWeek", days, MinDaysPerWeek, MaxDaysPerWeek); err != nil {
		return err
	}
	if days != math.Trunc(days) {
		return fmt.Errorf("%w: daysPerWeek must be a whole number", ErrValidation)
	}
	return nil
}

func checkRate(rate *float64) error {
	if rate == nil {
		return nil
	}
	return checkRange("rate", *rate, MinRate, math.Inf(1))
}

func checkRange(field string, v, lo, hi float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be a finite number", ErrValidation, field)
	}
	if v < lo {
		return fmt.Errorf("%w: %s must be at least %g", ErrValidation, field, lo)
	}
	if v > hi {
		return fmt.Errorf("%w: %s must be at most %g", ErrValidation, field, hi)
	}
	return nil
}
