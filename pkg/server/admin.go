package server

import (
	"log/slog"
	"net/http"

	"github.com/wattwise/wattwise/pkg/log"
)

func (s *Server) handleRefreshCatalog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s.catalog.Refresh()
	log.Ctx(ctx).InfoContext(ctx, "catalog caches invalidated", slog.String("by", adminEmail(r)))

	// warm the caches so the response reflects what will be served
	cats, err := s.catalog.Categories(ctx)
	if err != nil {
		writeJSONError(w, r, "failed to reload catalog", http.StatusInternalServerError)
		return
	}
	tariff, err := s.catalog.Tariff(ctx)
	if err != nil {
		writeJSONError(w, r, "failed to reload tariff", http.StatusInternalServerError)
		return
	}

	var appliances int
	for _, c := range cats {
		appliances += len(c.Appliances)
	}
	writeJSON(w, struct {
		Source     string  `json:"source"`
		Categories int     `json:"categories"`
		Appliances int     `json:"appliances"`
		Rate       float64 `json:"rate"`
	}{
		Source:     s.catalog.SourceName(),
		Categories: len(cats),
		Appliances: appliances,
		Rate:       tariff.Rate,
	})
}
