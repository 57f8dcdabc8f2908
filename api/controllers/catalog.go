package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dariomutua/fundraza-backend/api/responses"
	"github.com/dariomutua/fundraza-backend/api/validators"
	"github.com/dariomutua/fundraza-backend/internal/catalog"
	"github.com/dariomutua/fundraza-backend/pkg/logger"
)

// CatalogLevels lists a campaign's hierarchy levels top to bottom.
func CatalogLevels(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		campaignID, err := validators.ParsePathUUID(chi.URLParam(r, "campaignId"), "campaign id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		levels, err := svc.Levels(r.Context(), campaignID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, levels)
	}
}

// CatalogValues lists a level's values, scoped to a parent when one is given.
func CatalogValues(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		levelID, err := validators.ParsePathUUID(chi.URLParam(r, "levelId"), "level id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		parentValueID, err := validators.ParseQueryUUID(r, "parent_value_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		values, err := svc.ListChildren(r.Context(), levelID, parentValueID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, values)
	}
}

type resolveValueRequest struct {
	LevelID       uuid.UUID  `json:"level_id" validate:"required"`
	Name          string     `json:"name" validate:"required"`
	ParentValueID *uuid.UUID `json:"parent_value_id,omitempty"`
}

// CatalogResolveValue looks up or lazily creates one node at a level.
func CatalogResolveValue(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resolveValueRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		value, err := svc.ResolveOrCreateValue(r.Context(), catalog.ResolveValueInput{
			LevelID:       req.LevelID,
			Name:          req.Name,
			ParentValueID: req.ParentValueID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, value)
	}
}
