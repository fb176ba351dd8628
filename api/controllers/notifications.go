package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/notifyd/api/responses"
	"github.com/angelmondragon/notifyd/api/validators"
	"github.com/angelmondragon/notifyd/internal/notify"
	pkgerrors "github.com/angelmondragon/notifyd/pkg/errors"
	"github.com/angelmondragon/notifyd/pkg/logger"
	"github.com/angelmondragon/notifyd/pkg/pagination"
)

type NotificationLister interface {
	List(ctx context.Context, params notify.ListParams) (*notify.ListResult, error)
}

// ListNotifications returns the audit trail of one host record.
func ListNotifications(svc NotificationLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		params := notify.ListParams{
			NotifyableType: validators.ParseQueryString(r, "notifyable_type", 128),
			NotifyableID:   validators.ParseQueryString(r, "notifyable_id", 128),
			Limit:          limit,
			Cursor:         validators.ParseQueryString(r, "cursor", 512),
		}

		result, err := svc.List(ctx, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
