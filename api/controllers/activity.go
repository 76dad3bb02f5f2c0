package controllers

import (
	"net/http"

	"github.com/voynichlabs/voynich-backend/api/middleware"
	"github.com/voynichlabs/voynich-backend/api/responses"
	"github.com/voynichlabs/voynich-backend/api/validators"
	"github.com/voynichlabs/voynich-backend/internal/activity"
	pkgerrors "github.com/voynichlabs/voynich-backend/pkg/errors"
	"github.com/voynichlabs/voynich-backend/pkg/logger"
)

// PublicActivityFeed returns the public feed, newest first. No auth.
func PublicActivityFeed(svc activity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "activity service unavailable"))
			return
		}

		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.QueryPublic(r.Context(), page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}

// MyActivityFeed returns the caller's own entries, public and private.
func MyActivityFeed(svc activity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "activity service unavailable"))
			return
		}

		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.QueryForUser(r.Context(), middleware.UserIDFromContext(r.Context()), page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}
