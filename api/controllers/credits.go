package controllers

import (
	"net/http"

	"github.com/voynichlabs/voynich-backend/api/middleware"
	"github.com/voynichlabs/voynich-backend/api/responses"
	"github.com/voynichlabs/voynich-backend/api/validators"
	"github.com/voynichlabs/voynich-backend/internal/credits"
	pkgerrors "github.com/voynichlabs/voynich-backend/pkg/errors"
	"github.com/voynichlabs/voynich-backend/pkg/logger"
)

// GetCreditBalance returns the caller's current balance.
func GetCreditBalance(svc credits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "credits service unavailable"))
			return
		}

		balance, err := svc.GetBalance(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"balance": balance})
	}
}

// GetCreditHistory returns the caller's transaction log, newest first.
func GetCreditHistory(svc credits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "credits service unavailable"))
			return
		}

		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		history, err := svc.History(r.Context(), middleware.UserIDFromContext(r.Context()), page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, history)
	}
}
