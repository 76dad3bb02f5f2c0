package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/voynichlabs/voynich-backend/api/middleware"
	"github.com/voynichlabs/voynich-backend/api/responses"
	"github.com/voynichlabs/voynich-backend/api/validators"
	"github.com/voynichlabs/voynich-backend/internal/analysis"
	"github.com/voynichlabs/voynich-backend/internal/references"
	pkgerrors "github.com/voynichlabs/voynich-backend/pkg/errors"
	"github.com/voynichlabs/voynich-backend/pkg/logger"
)

type analysisRequestBody struct {
	Prompt      string  `json:"prompt" validate:"required,max=8000"`
	Model       string  `json:"model" validate:"required"`
	Temperature float32 `json:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int     `json:"max_tokens" validate:"gte=0,lte=16384"`
	IsPublic    bool    `json:"is_public"`
	References  []struct {
		Type string `json:"type" validate:"required,oneof=page symbol"`
		ID   int    `json:"id" validate:"required,gt=0"`
	} `json:"references" validate:"dive"`
}

// RequestAnalysis submits a prompt to the analysis engine.
func RequestAnalysis(svc analysis.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analysis service unavailable"))
			return
		}

		var body analysisRequestBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		refs := make([]references.Reference, 0, len(body.References))
		for _, ref := range body.References {
			refs = append(refs, references.Reference{Type: references.RefType(ref.Type), ID: ref.ID})
		}

		out, err := svc.Request(r.Context(), analysis.RequestInput{
			UserID:      middleware.UserIDFromContext(r.Context()),
			Prompt:      body.Prompt,
			Model:       body.Model,
			Temperature: body.Temperature,
			MaxTokens:   body.MaxTokens,
			IsPublic:    body.IsPublic,
			References:  refs,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, out)
	}
}

// GetAnalysis returns one result, enforcing owner-or-public visibility.
func GetAnalysis(svc analysis.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analysis service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid analysis id"))
			return
		}

		result, err := svc.GetResult(r.Context(), id, middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// GetSharedAnalysis returns a public result by its share token. No auth.
func GetSharedAnalysis(svc analysis.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analysis service unavailable"))
			return
		}

		result, err := svc.GetShared(r.Context(), chi.URLParam(r, "token"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ListAnalyses returns the caller's analysis history, newest first.
func ListAnalyses(svc analysis.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analysis service unavailable"))
			return
		}

		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		results, err := svc.ListForUser(r.Context(), middleware.UserIDFromContext(r.Context()), page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, results)
	}
}

// GetUsage returns the caller's aggregate analysis consumption.
func GetUsage(svc analysis.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analysis service unavailable"))
			return
		}

		usage, err := svc.UsageForUser(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, usage)
	}
}
