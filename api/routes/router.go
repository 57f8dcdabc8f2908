package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dariomutua/fundraza-backend/api/controllers"
	"github.com/dariomutua/fundraza-backend/api/middleware"
	"github.com/dariomutua/fundraza-backend/internal/activity"
	"github.com/dariomutua/fundraza-backend/internal/assignments"
	"github.com/dariomutua/fundraza-backend/internal/campaigns"
	"github.com/dariomutua/fundraza-backend/internal/catalog"
	"github.com/dariomutua/fundraza-backend/internal/commissions"
	"github.com/dariomutua/fundraza-backend/internal/members"
	"github.com/dariomutua/fundraza-backend/internal/payments"
	"github.com/dariomutua/fundraza-backend/internal/reports"
	"github.com/dariomutua/fundraza-backend/internal/units"
	"github.com/dariomutua/fundraza-backend/pkg/config"
	"github.com/dariomutua/fundraza-backend/pkg/db"
	"github.com/dariomutua/fundraza-backend/pkg/logger"
	"github.com/dariomutua/fundraza-backend/pkg/redis"
)

// Services bundles every domain service the router mounts.
type Services struct {
	Campaigns   campaigns.Service
	Catalog     catalog.Service
	Units       units.Service
	Assignments assignments.Service
	Payments    payments.Service
	Dues        payments.DuesService
	Commissions commissions.Service
	Members     members.Service
	Reports     reports.Service
	Activity    activity.Recorder
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/campaigns", func(r chi.Router) {
			r.Post("/", controllers.CampaignCreate(svcs.Campaigns, logg))
			r.Get("/", controllers.CampaignList(svcs.Campaigns, logg))
			r.Route("/{campaignId}", func(r chi.Router) {
				r.Get("/", controllers.CampaignGet(svcs.Campaigns, logg))
				r.Get("/units", controllers.CampaignUnits(svcs.Units, logg))
				r.Get("/units/counts", controllers.CampaignUnitCounts(svcs.Units, logg))
				r.Get("/levels", controllers.CatalogLevels(svcs.Catalog, logg))
				r.Get("/assignments", controllers.AssignmentList(svcs.Assignments, logg))
				r.Get("/activity", controllers.CampaignActivity(svcs.Activity, logg))
				r.Put("/commission-rules", controllers.CommissionRuleUpsert(svcs.Commissions, logg))
				r.Get("/commission-rules", controllers.CommissionRuleList(svcs.Commissions, logg))
				r.Route("/reports", func(r chi.Router) {
					r.Get("/summary", controllers.ReportCampaignSummary(svcs.Reports, logg))
					r.Get("/collections", controllers.ReportCollectionsByEarner(svcs.Reports, logg))
					r.Get("/commissions", controllers.ReportCommissionPayouts(svcs.Reports, logg))
				})
			})
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/levels/{levelId}/values", controllers.CatalogValues(svcs.Catalog, logg))
			r.Post("/values", controllers.CatalogResolveValue(svcs.Catalog, logg))
		})

		r.Get("/units/{unitId}", controllers.UnitGet(svcs.Units, logg))

		r.Route("/assignments", func(r chi.Router) {
			r.Post("/", controllers.AssignmentCreate(svcs.Assignments, logg))
			r.Post("/bulk", controllers.AssignmentBulkCreate(svcs.Assignments, logg))
			r.Route("/{assignmentId}", func(r chi.Router) {
				r.Get("/", controllers.AssignmentGet(svcs.Assignments, logg))
				r.Post("/reassign", controllers.AssignmentReassign(svcs.Assignments, logg))
				r.Get("/ledger", controllers.PaymentLedger(svcs.Payments, logg))
				r.Get("/commissions", controllers.AssignmentCommissions(svcs.Commissions, logg))
			})
		})

		r.Post("/payments", controllers.PaymentRecord(svcs.Payments, logg))

		r.Route("/dues", func(r chi.Router) {
			r.Post("/", controllers.DuesRecord(svcs.Dues, logg))
			r.Post("/import/preview", controllers.DuesImportPreview(svcs.Dues, logg))
			r.Post("/import/commit", controllers.DuesImportCommit(svcs.Dues, logg))
		})

		r.Route("/members", func(r chi.Router) {
			r.Get("/resolve", controllers.MemberResolve(svcs.Members, logg))
			r.Route("/{memberId}", func(r chi.Router) {
				r.Get("/", controllers.MemberGet(svcs.Members, logg))
				r.Get("/dues", controllers.MemberDuesHistory(svcs.Dues, logg))
			})
		})

		r.Get("/reports/dues", controllers.ReportDuesSummary(svcs.Reports, logg))
	})

	return r
}
