package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/wattwise/wattwise/pkg/calc"
	"github.com/wattwise/wattwise/pkg/log"
	"github.com/wattwise/wattwise/pkg/metrics"
	"github.com/wattwise/wattwise/pkg/report"
	"github.com/wattwise/wattwise/pkg/types"
)

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed json: %v", types.ErrValidation, err)
	}
	return nil
}

// writeCalcError maps validation and engine errors to 400 and everything else
// to 500.
func writeCalcError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, types.ErrValidation),
		errors.Is(err, calc.ErrInvalidInput),
		errors.Is(err, calc.ErrEmptyAggregate):
		log.Ctx(ctx).InfoContext(ctx, "rejected calculation", slog.Any("error", err))
		writeJSONError(w, r, err.Error(), http.StatusBadRequest)
	default:
		log.Ctx(ctx).ErrorContext(ctx, "calculation failed", slog.Any("error", err))
		writeJSONError(w, r, "calculation failed", http.StatusInternalServerError)
	}
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	res, err := s.calculateSingle(w, r)
	s.metrics.Calculation(metrics.ModeSingle, err)
	if err != nil {
		writeCalcError(w, r, err)
		return
	}
	writeJSON(w, res)
}

func (s *Server) calculateSingle(w http.ResponseWriter, r *http.Request) (types.SingleResponse, error) {
	ctx := r.Context()
	var req types.SingleRequest
	if err := decodeBody(w, r, &req); err != nil {
		return types.SingleResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return types.SingleResponse{}, err
	}

	name := types.ApplianceName(req.Appliance)
	wattage := req.Wattage
	if wattage == 0 {
		a, ok, err := s.catalog.ApplianceByName(ctx, name)
		if err != nil {
			return types.SingleResponse{}, fmt.Errorf("failed to look up appliance: %w", err)
		}
		if !ok || a.DefaultWatts <= 0 {
			return types.SingleResponse{}, fmt.Errorf("%w: wattage is required for %s", types.ErrValidation, name)
		}
		wattage = float64(a.DefaultWatts)
		log.Ctx(ctx).DebugContext(ctx, "using archetype wattage", slog.String("appliance", name), slog.Float64("wattage", wattage))
	}

	rate, _, err := s.resolveRate(r, req.Rate)
	if err != nil {
		return types.SingleResponse{}, err
	}

	res, err := calc.Calculate(types.ApplianceUsageEntry{
		Name:        name,
		Wattage:     wattage,
		HoursPerDay: req.HoursPerDay,
		DaysPerWeek: req.DaysPerWeek,
	}, rate)
	if err != nil {
		return types.SingleResponse{}, err
	}
	return types.SingleResponse{
		Appliance:   res.Name,
		Wattage:     res.Wattage,
		HoursPerDay: req.HoursPerDay,
		DaysPerWeek: req.DaysPerWeek,
		Rate:        rate,
		Consumption: res.Consumption,
		Cost:        res.Cost,
	}, nil
}

func (s *Server) handleCalculateMultiple(w http.ResponseWriter, r *http.Request) {
	res, err := s.calculateMultiple(w, r)
	s.metrics.Calculation(metrics.ModeMultiple, err)
	if err != nil {
		writeCalcError(w, r, err)
		return
	}
	writeJSON(w, res)
}

func (s *Server) calculateMultiple(w http.ResponseWriter, r *http.Request) (types.MultipleResponse, error) {
	var req types.MultipleRequest
	if err := decodeBody(w, r, &req); err != nil {
		return types.MultipleResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return types.MultipleResponse{}, err
	}

	rate, tariff, err := s.resolveRate(r, req.Rate)
	if err != nil {
		return types.MultipleResponse{}, err
	}
	res, err := calc.Aggregate(req.Entries(), rate)
	if err != nil {
		return types.MultipleResponse{}, err
	}
	log.Ctx(r.Context()).DebugContext(
		r.Context(),
		"aggregated appliances",
		slog.Int("count", len(res.Appliances)),
		slog.Float64("monthlyCost", res.TotalCost.Monthly),
	)
	return types.MultipleResponse{
		AggregateResult: res,
		Rate:            rate,
		Tariff:          tariff,
	}, nil
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "xlsx"
	}
	var contentType string
	var render func(types.AggregateResult, float64) ([]byte, error)
	switch format {
	case "xlsx":
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		render = report.XLSX
	case "pdf":
		contentType = "application/pdf"
		render = report.PDF
	default:
		writeJSONError(w, r, fmt.Sprintf("unsupported export format: %s", format), http.StatusBadRequest)
		return
	}

	res, err := s.calculateMultiple(w, r)
	if err != nil {
		s.metrics.Calculation(metrics.ModeExport, err)
		writeCalcError(w, r, err)
		return
	}
	b, err := render(res.AggregateResult, res.Rate)
	s.metrics.Calculation(metrics.ModeExport, err)
	if err != nil {
		log.Ctx(r.Context()).ErrorContext(r.Context(), "failed to render export", slog.String("format", format), slog.Any("error", err))
		writeJSONError(w, r, "failed to render export", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("wattwise-%s.%s", time.Now().UTC().Format("20060102"), format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := w.Write(b); err != nil {
		panic(http.ErrAbortHandler)
	}
}

// resolveRate returns the requested rate, or the catalog's current tariff when
// none was given. The tariff is only returned in the latter case.
func (s *Server) resolveRate(r *http.Request, rate *float64) (float64, *types.Tariff, error) {
	if rate != nil {
		return *rate, nil, nil
	}
	t, err := s.catalog.Tariff(r.Context())
	if err != nil {
		return 0, nil, fmt.Errorf("failed to get default rate: %w", err)
	}
	return t.Rate, &t, nil
}
