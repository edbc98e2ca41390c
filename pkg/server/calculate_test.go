package server

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/wattwise/wattwise/pkg/catalog"
	"github.com/wattwise/wattwise/pkg/types"
)

func TestHandleCalculate(t *testing.T) {
	srv := &Server{catalog: catalog.NewProvider(nil)}
	h := srv.setupHandler()

	t.Run("ExplicitValues", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPost, "/api/calculate", map[string]any{
			"appliance":   "Air Conditioner",
			"wattage":     1500,
			"hoursPerDay": 8,
			"daysPerWeek": 7,
			"rate":        11,
		})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, types.SingleResponse{
			Appliance:   "Air Conditioner",
			Wattage:     1500,
			HoursPerDay: 8,
			DaysPerWeek: 7,
			Rate:        11,
			Consumption: types.ConsumptionFigures{Daily: 12, Weekly: 84, Monthly: 363.72},
			Cost:        types.CostFigures{Daily: 132, Weekly: 924, Monthly: 4000.92},
		}, decodeJSON[types.SingleResponse](t, rr))
	})

	t.Run("ArchetypeDefaults", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPost, "/api/calculate", map[string]any{
			"appliance":   "Refrigerator",
			"hoursPerDay": 24,
			"daysPerWeek": 7,
		})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		res := decodeJSON[types.SingleResponse](t, rr)
		assert.Equal(t, 300.0, res.Wattage)
		assert.Equal(t, 13.01, res.Rate)
		assert.Equal(t, types.ConsumptionFigures{Daily: 7.2, Weekly: 50.4, Monthly: 218.23}, res.Consumption)
		assert.Equal(t, types.CostFigures{Daily: 93.67, Weekly: 655.7, Monthly: 2839.17}, res.Cost)
	})

	t.Run("BlankName", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPost, "/api/calculate", `{"appliance":"  ","wattage":100,"hoursPerDay":1,"daysPerWeek":1,"rate":10}`)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, types.DefaultApplianceName, decodeJSON[types.SingleResponse](t, rr).Appliance)
	})

	t.Run("Errors", func(t *testing.T) {
		tests := []struct {
			name string
			body string
			want string
		}{
			{
				name: "UnknownApplianceWithoutWattage",
				body: `{"appliance":"Flux Capacitor","hoursPerDay":1,"daysPerWeek":1}`,
				want: "wattage is required for Flux Capacitor",
			},
			{
				name: "WattageTooHigh",
				body: `{"wattage":10001,"hoursPerDay":1,"daysPerWeek":1}`,
				want: "wattage must be at most 10000",
			},
			{
				name: "HoursTooHigh",
				body: `{"wattage":100,"hoursPerDay":25,"daysPerWeek":1}`,
				want: "hoursPerDay must be at most 24",
			},
			{
				name: "FractionalDays",
				body: `{"wattage":100,"hoursPerDay":1,"daysPerWeek":2.5}`,
				want: "daysPerWeek must be a whole number",
			},
			{
				name: "RateTooLow",
				body: `{"wattage":100,"hoursPerDay":1,"daysPerWeek":1,"rate":0}`,
				want: "rate must be at least 0.1",
			},
			{
				name: "MalformedJSON",
				body: `{"wattage":`,
				want: "malformed json",
			},
			{
				name: "WrongType",
				body: `{"wattage":"lots"}`,
				want: "malformed json",
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rr := doJSON(t, h, http.MethodPost, "/api/calculate", tt.body)
				assert.Equal(t, http.StatusBadRequest, rr.Code)
				assert.Contains(t, errorMessage(t, rr), tt.want)
			})
		}
	})
}

var multipleBody = map[string]any{
	"appliances": []map[string]any{
		{"name": "Refrigerator", "wattage": 300, "hoursPerDay": 24, "daysPerWeek": 7},
		{"name": "", "wattage": 10, "hoursPerDay": 6, "daysPerWeek": 7},
		{"name": "Clothes Iron", "wattage": 1200, "hoursPerDay": 1, "daysPerWeek": 2},
	},
}

func TestHandleCalculateMultiple(t *testing.T) {
	srv := &Server{catalog: catalog.NewProvider(nil)}
	h := srv.setupHandler()

	t.Run("DefaultRate", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPost, "/api/calculate/multiple", multipleBody)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		res := decodeJSON[types.MultipleResponse](t, rr)
		assert.Equal(t, 13.01, res.Rate)
		require.NotNil(t, res.Tariff)
		assert.Equal(t, catalog.Fallback().Tariff, *res.Tariff)

		require.Len(t, res.Appliances, 3)
		assert.Equal(t, "Refrigerator", res.Appliances[0].Name)
		assert.Equal(t, types.DefaultApplianceName, res.Appliances[1].Name)
		assert.Equal(t, types.ConsumptionFigures{Daily: 0.06, Weekly: 0.42, Monthly: 1.82}, res.Appliances[1].Consumption)
		assert.Equal(t, types.ConsumptionFigures{Daily: 8.46, Weekly: 53.22, Monthly: 230.44}, res.TotalConsumption)
		assert.Equal(t, types.CostFigures{Daily: 110.06, Weekly: 692.38, Monthly: 2998.02}, res.TotalCost)
	})

	t.Run("ExplicitRate", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPost, "/api/calculate/multiple", `{"appliances":[{"wattage":1500,"hoursPerDay":8,"daysPerWeek":7}],"rate":11}`)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.NotContains(t, rr.Body.String(), `"tariff"`)

		res := decodeJSON[types.MultipleResponse](t, rr)
		assert.Equal(t, 11.0, res.Rate)
		assert.Nil(t, res.Tariff)
		assert.Equal(t, types.CostFigures{Daily: 132, Weekly: 924, Monthly: 4000.92}, res.TotalCost)
	})

	t.Run("NoUpperWattage", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPost, "/api/calculate/multiple", `{"appliances":[{"wattage":20000,"hoursPerDay":1,"daysPerWeek":1}],"rate":1}`)
		assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	})

	t.Run("Empty", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPost, "/api/calculate/multiple", `{"appliances":[]}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, errorMessage(t, rr), "at least one appliance is required")
	})

	t.Run("InvalidEntry", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPost, "/api/calculate/multiple", `{"appliances":[{"wattage":100,"hoursPerDay":1,"daysPerWeek":1},{"wattage":0,"hoursPerDay":1,"daysPerWeek":1}]}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, errorMessage(t, rr), "appliance 1: invalid request: wattage must be at least 1")
	})
}

func TestHandleExport(t *testing.T) {
	srv := &Server{catalog: catalog.NewProvider(nil)}
	h := srv.setupHandler()

	t.Run("XLSX", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPost, "/api/calculate/export?format=xlsx", multipleBody)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rr.Header().Get("Content-Type"))
		assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Disposition"), `attachment; filename="wattwise-`))
		assert.True(t, strings.HasSuffix(rr.Header().Get("Content-Disposition"), `.xlsx"`))

		f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
		require.NoError(t, err)
		defer f.Close()
		rows, err := f.GetRows("appliances")
		require.NoError(t, err)
		assert.Len(t, rows, 4)
		v, err := f.GetCellValue("summary", "D8")
		require.NoError(t, err)
		assert.Equal(t, "2998.02", v)
	})

	t.Run("DefaultFormat", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPost, "/api/calculate/export", multipleBody)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Contains(t, rr.Header().Get("Content-Disposition"), ".xlsx")
	})

	t.Run("PDF", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPost, "/api/calculate/export?format=pdf", multipleBody)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
		assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF")))
	})

	t.Run("UnsupportedFormat", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPost, "/api/calculate/export?format=csv", multipleBody)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "unsupported export format: csv", errorMessage(t, rr))
	})

	t.Run("InvalidBody", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPost, "/api/calculate/export?format=pdf", `{"appliances":[]}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
