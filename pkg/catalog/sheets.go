package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wattwise/wattwise/pkg/common"
	"github.com/wattwise/wattwise/pkg/log"
	"github.com/wattwise/wattwise/pkg/types"
)

const (
	sheetCategories = "categories"
	sheetAppliances = "appliances"
	sheetRates      = "rates"
)

// SheetsSource reads the catalog from a spreadsheet exported as a JSON web
// endpoint. Each sheet is requested with ?sheet=<name> and returns an array of
// row objects keyed by column header.
type SheetsSource struct {
	apiURL   string
	client   *http.Client
	fallback types.Tariff
}

// NewSheetsSource returns a source reading from apiURL. Missing tariff fields
// are filled in from fallback.
func NewSheetsSource(apiURL string, fallback types.Tariff) *SheetsSource {
	return &SheetsSource{
		apiURL:   apiURL,
		client:   common.HTTPClient(10 * time.Second),
		fallback: fallback,
	}
}

// Validate ensures the configuration is valid.
func (s *SheetsSource) Validate() error {
	if s.apiURL == "" {
		return fmt.Errorf("catalog-sheets-api-url is required")
	}
	if _, err := url.Parse(s.apiURL); err != nil {
		return fmt.Errorf("failed to parse sheets url (%s): %w", s.apiURL, err)
	}
	return nil
}

// Name implements Source.
func (s *SheetsSource) Name() string {
	return "sheets"
}

type sheetCategoryRow struct {
	Name sheetString `json:"name"`
}

type sheetApplianceRow struct {
	Name         sheetString `json:"name"`
	Category     sheetString `json:"category"`
	MinWatts     sheetInt    `json:"minWatts"`
	MaxWatts     sheetInt    `json:"maxWatts"`
	DefaultWatts sheetInt    `json:"defaultWatts"`
}

type sheetRateRow struct {
	Rate  sheetFloat  `json:"rate"`
	Month sheetString `json:"month"`
	Year  sheetString `json:"year"`
	Notes sheetString `json:"notes"`
}

// Categories implements Source. Appliances are grouped under the category
// rows in the order the categories appear. Appliances naming an unknown
// category are dropped.
func (s *SheetsSource) Categories(ctx context.Context) ([]types.Category, error) {
	var categoryRows []sheetCategoryRow
	if err := s.fetchSheet(ctx, sheetCategories, &categoryRows); err != nil {
		return nil, fmt.Errorf("failed to fetch categories: %w", err)
	}
	var applianceRows []sheetApplianceRow
	if err := s.fetchSheet(ctx, sheetAppliances, &applianceRows); err != nil {
		return nil, fmt.Errorf("failed to fetch appliances: %w", err)
	}

	categories := make([]types.Category, 0, len(categoryRows))
	for _, c := range categoryRows {
		cat := types.Category{
			Category:   string(c.Name),
			Appliances: []types.Archetype{},
		}
		for _, a := range applianceRows {
			if a.Category != c.Name {
				continue
			}
			cat.Appliances = append(cat.Appliances, types.Archetype{
				Name:         string(a.Name),
				MinWatts:     int(a.MinWatts),
				MaxWatts:     int(a.MaxWatts),
				DefaultWatts: int(a.DefaultWatts),
			})
		}
		categories = append(categories, cat)
	}

	log.Ctx(ctx).DebugContext(
		ctx,
		"fetched sheets catalog",
		slog.Int("categories", len(categoryRows)),
		slog.Int("appliances", len(applianceRows)),
	)
	return categories, nil
}

// LatestTariff implements Source. Rows are assumed to be chronological so the
// last row wins. An empty sheet yields the fallback tariff.
func (s *SheetsSource) LatestTariff(ctx context.Context) (types.Tariff, error) {
	var rows []sheetRateRow
	if err := s.fetchSheet(ctx, sheetRates, &rows); err != nil {
		return types.Tariff{}, fmt.Errorf("failed to fetch rates: %w", err)
	}
	if len(rows) == 0 {
		log.Ctx(ctx).WarnContext(ctx, "rates sheet is empty, using fallback tariff")
		return s.fallback, nil
	}
	latest := rows[len(rows)-1]
	return tariffFromFields(latest.Rate.value, latest.Rate.ok, string(latest.Month), string(latest.Year), string(latest.Notes), s.fallback), nil
}

// tariffFromFields fills each missing field from fallback. Notes have no
// fallback and are left empty.
func tariffFromFields(rate float64, rateOK bool, month, year, notes string, fallback types.Tariff) types.Tariff {
	t := types.Tariff{
		Rate:  rate,
		Month: month,
		Year:  year,
		Notes: notes,
	}
	if !rateOK || t.Rate <= 0 || math.IsNaN(t.Rate) || math.IsInf(t.Rate, 0) {
		t.Rate = fallback.Rate
	}
	if t.Month == "" {
		t.Month = fallback.Month
	}
	if t.Year == "" {
		t.Year = fallback.Year
	}
	return t
}

func (s *SheetsSource) fetchSheet(ctx context.Context, sheet string, v any) error {
	u, err := url.Parse(s.apiURL)
	if err != nil {
		return fmt.Errorf("invalid api url: %w", err)
	}
	params := u.Query()
	params.Set("sheet", sheet)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	log.Ctx(ctx).DebugContext(ctx, "fetching sheet", slog.String("sheet", sheet), slog.String("url", u.String()))

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to request sheet %s: %w", sheet, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sheets api returned status %d for sheet %s", resp.StatusCode, sheet)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode sheet %s: %w", sheet, err)
	}
	return nil
}

// sheetString accepts a JSON string or number. Null, booleans, objects and
// arrays are empty.
type sheetString string

func (s *sheetString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*s = ""
	case len(b) > 0 && b[0] == '"':
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = sheetString(strings.TrimSpace(str))
	case len(b) > 0 && (b[0] == '-' || (b[0] >= '0' && b[0] <= '9')):
		*s = sheetString(b)
	default:
		*s = ""
	}
	return nil
}

// sheetInt accepts a JSON number or a string with a leading integer, such as
// "150" or "150W". Fractions are truncated. Blank or unparsable cells are 0.
type sheetInt int

func (i *sheetInt) UnmarshalJSON(b []byte) error {
	var raw sheetString
	if err := raw.UnmarshalJSON(b); err != nil {
		return err
	}
	str := string(raw)
	if f, err := strconv.ParseFloat(str, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		*i = sheetInt(math.Trunc(f))
		return nil
	}
	*i = sheetInt(leadingInt(str))
	return nil
}

func leadingInt(s string) int {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// sheetFloat accepts a JSON number or numeric string. ok is false for blank or
// unparsable cells.
type sheetFloat struct {
	value float64
	ok    bool
}

func (f *sheetFloat) UnmarshalJSON(b []byte) error {
	var raw sheetString
	if err := raw.UnmarshalJSON(b); err != nil {
		return err
	}
	*f = sheetFloat{}
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return nil
	}
	f.value = v
	f.ok = true
	return nil
}
