package controllers

import (
	"net/http"
	"strings"

	"github.com/voynichlabs/voynich-backend/api/responses"
	"github.com/voynichlabs/voynich-backend/api/validators"
	"github.com/voynichlabs/voynich-backend/internal/leaderboard"
	"github.com/voynichlabs/voynich-backend/pkg/enums"
	pkgerrors "github.com/voynichlabs/voynich-backend/pkg/errors"
	"github.com/voynichlabs/voynich-backend/pkg/logger"
)

// GetLeaderboard returns the ranked entries for one timeframe's current
// bucket. Defaults to the alltime board.
func GetLeaderboard(svc leaderboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "leaderboard service unavailable"))
			return
		}

		timeframe := enums.TimeframeAllTime
		if raw := strings.TrimSpace(r.URL.Query().Get("timeframe")); raw != "" {
			parsed, err := enums.ParseTimeframe(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid timeframe"))
				return
			}
			timeframe = parsed
		}

		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := svc.GetLeaderboard(r.Context(), timeframe, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}
