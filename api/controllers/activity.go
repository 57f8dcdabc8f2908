package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dariomutua/fundraza-backend/api/responses"
	"github.com/dariomutua/fundraza-backend/api/validators"
	"github.com/dariomutua/fundraza-backend/internal/activity"
	"github.com/dariomutua/fundraza-backend/pkg/logger"
)

// CampaignActivity lists a campaign's recent audit entries, newest first.
func CampaignActivity(recorder activity.Recorder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		campaignID, err := validators.ParsePathUUID(chi.URLParam(r, "campaignId"), "campaign id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := recorder.List(r.Context(), campaignID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}
