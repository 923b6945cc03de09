package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerCompetitionRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/gameweeks", handler.ListGameweeks)
	mux.HandleFunc("GET /v1/fixtures", handler.ListFixtures)
	mux.HandleFunc("POST /v1/fixtures/reload", handler.ReloadFixtures)

	mux.HandleFunc("GET /v1/profile/{email}", handler.GetProfile)
	mux.HandleFunc("GET /v1/profile/{email}/progression", handler.GetProgression)
	mux.HandleFunc("GET /v1/profile/{email}/placing", handler.GetPlacing)
	mux.HandleFunc("POST /v1/profile/{email}/refresh", handler.RefreshProfile)

	mux.HandleFunc("POST /v1/picks", handler.SubmitPick)
	mux.HandleFunc("POST /v1/picks/clear", handler.ClearPick)
	mux.HandleFunc("POST /v1/picks/editing", handler.SetEditing)

	mux.HandleFunc("GET /v1/entrants", handler.ListEntrants)
	mux.HandleFunc("GET /v1/entrants/remaining", handler.CountRemaining)
	mux.HandleFunc("GET /v1/placings", handler.ListPlacings)

	mux.HandleFunc("GET /v1/report", handler.GetReport)
	mux.HandleFunc("POST /v1/report/reconcile", handler.Reconcile)
}

func registerAdminRoutes(mux *http.ServeMux, handler *Handler, adminKey string) {
	mux.Handle("POST /v1/admin/outcome", RequireAdminKey(adminKey, http.HandlerFunc(handler.AdminSetOutcome)))
	mux.Handle("POST /v1/admin/approve", RequireAdminKey(adminKey, http.HandlerFunc(handler.AdminApprove)))
	mux.Handle("GET /v1/admin/pending", RequireAdminKey(adminKey, http.HandlerFunc(handler.AdminListPending)))
	mux.Handle("GET /v1/admin/gameweeks/{gwID}/picks", RequireAdminKey(adminKey, http.HandlerFunc(handler.AdminListGameweekPicks)))
}
