package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/dariomutua/fundraza-backend/api/responses"
	"github.com/dariomutua/fundraza-backend/api/validators"
	"github.com/dariomutua/fundraza-backend/internal/commissions"
	"github.com/dariomutua/fundraza-backend/pkg/enums"
	pkgerrors "github.com/dariomutua/fundraza-backend/pkg/errors"
	"github.com/dariomutua/fundraza-backend/pkg/logger"
)

type commissionRuleRequest struct {
	Type          string          `json:"type" validate:"required"`
	Enabled       bool            `json:"enabled"`
	Percent       decimal.Decimal `json:"percent"`
	ThresholdDate *time.Time      `json:"threshold_date,omitempty"`
}

// CommissionRuleUpsert replaces one rule's configuration for a campaign.
func CommissionRuleUpsert(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		campaignID, err := validators.ParsePathUUID(chi.URLParam(r, "campaignId"), "campaign id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req commissionRuleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ruleType, err := enums.ParseCommissionRuleType(req.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, err.Error()))
			return
		}

		rule, err := svc.UpsertRule(r.Context(), commissions.RuleInput{
			CampaignID:    campaignID,
			Type:          ruleType,
			Enabled:       req.Enabled,
			Percent:       req.Percent,
			ThresholdDate: req.ThresholdDate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rule)
	}
}

func CommissionRuleList(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		campaignID, err := validators.ParsePathUUID(chi.URLParam(r, "campaignId"), "campaign id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rules, err := svc.ListRules(r.Context(), campaignID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rules)
	}
}

// AssignmentCommissions lists the commission rows earned at settlement.
func AssignmentCommissions(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assignmentID, err := validators.ParsePathUUID(chi.URLParam(r, "assignmentId"), "assignment id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		earned, err := svc.ListEarnedByAssignment(r.Context(), assignmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, earned)
	}
}
