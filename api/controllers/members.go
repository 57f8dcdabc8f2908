package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dariomutua/fundraza-backend/api/responses"
	"github.com/dariomutua/fundraza-backend/api/validators"
	"github.com/dariomutua/fundraza-backend/internal/members"
	pkgerrors "github.com/dariomutua/fundraza-backend/pkg/errors"
	"github.com/dariomutua/fundraza-backend/pkg/logger"
)

func MemberGet(svc members.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		memberID, err := validators.ParsePathUUID(chi.URLParam(r, "memberId"), "member id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		member, err := svc.Get(r.Context(), memberID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, member)
	}
}

// MemberResolve resolves a member by mobile first, exact name second. Used
// by import tooling to verify a row before committing it.
func MemberResolve(svc members.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mobile := strings.TrimSpace(r.URL.Query().Get("mobile"))
		fullName := strings.TrimSpace(r.URL.Query().Get("full_name"))
		if mobile == "" && fullName == "" {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "mobile or full_name required"))
			return
		}

		member, err := svc.Resolve(r.Context(), mobile, fullName)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, member)
	}
}
