package server

import (
	"log/slog"
	"net/http"

	"github.com/wattwise/wattwise/pkg/log"
	"github.com/wattwise/wattwise/pkg/types"
)

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cats, err := s.catalog.Categories(ctx)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to get catalog", slog.Any("error", err))
		writeJSONError(w, r, "failed to get catalog", http.StatusInternalServerError)
		return
	}

	// Always return an array, even if empty
	if cats == nil {
		cats = []types.Category{}
	}
	writeJSON(w, cats)
}

func (s *Server) handleListAppliances(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	all, err := s.catalog.AllAppliances(ctx)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to list appliances", slog.Any("error", err))
		writeJSONError(w, r, "failed to list appliances", http.StatusInternalServerError)
		return
	}

	// Always return an array, even if empty
	if all == nil {
		all = []types.CategorizedArchetype{}
	}
	writeJSON(w, all)
}

func (s *Server) handleGetAppliance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := r.PathValue("name")
	a, ok, err := s.catalog.ApplianceByName(ctx, name)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to get appliance", slog.String("name", name), slog.Any("error", err))
		writeJSONError(w, r, "failed to get appliance", http.StatusInternalServerError)
		return
	}
	if !ok {
		writeJSONError(w, r, "appliance not found", http.StatusNotFound)
		return
	}
	writeJSON(w, a)
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	t, err := s.catalog.Tariff(ctx)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to get tariff", slog.Any("error", err))
		writeJSONError(w, r, "failed to get rate", http.StatusInternalServerError)
		return
	}
	writeJSON(w, t)
}
