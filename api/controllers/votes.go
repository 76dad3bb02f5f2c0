package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/voynichlabs/voynich-backend/api/middleware"
	"github.com/voynichlabs/voynich-backend/api/responses"
	"github.com/voynichlabs/voynich-backend/api/validators"
	"github.com/voynichlabs/voynich-backend/internal/votes"
	"github.com/voynichlabs/voynich-backend/pkg/enums"
	pkgerrors "github.com/voynichlabs/voynich-backend/pkg/errors"
	"github.com/voynichlabs/voynich-backend/pkg/logger"
)

type castVoteBody struct {
	VoteType string `json:"vote_type" validate:"required,oneof=upvote downvote"`
}

// CastAnnotationVote records the caller's vote on an annotation.
func CastAnnotationVote(svc votes.Service, logg *logger.Logger) http.HandlerFunc {
	return castVote(svc, logg, enums.VoteTargetTypeAnnotation)
}

// CastBlogPostVote records the caller's vote on a blog post.
func CastBlogPostVote(svc votes.Service, logg *logger.Logger) http.HandlerFunc {
	return castVote(svc, logg, enums.VoteTargetTypeBlogPost)
}

func castVote(svc votes.Service, logg *logger.Logger, targetType enums.VoteTargetType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "votes service unavailable"))
			return
		}

		targetID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || targetID <= 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid target id"))
			return
		}

		var body castVoteBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CastVote(r.Context(), votes.CastVoteInput{
			TargetType: targetType,
			TargetID:   targetID,
			UserID:     middleware.UserIDFromContext(r.Context()),
			VoteType:   enums.VoteType(body.VoteType),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
