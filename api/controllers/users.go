package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/notifyd/api/responses"
	"github.com/angelmondragon/notifyd/api/validators"
	"github.com/angelmondragon/notifyd/internal/users"
	pkgerrors "github.com/angelmondragon/notifyd/pkg/errors"
	"github.com/angelmondragon/notifyd/pkg/logger"
)

type UserRegistrar interface {
	Register(ctx context.Context, input users.RegisterInput) (*users.UserDTO, error)
}

// RegisterUser creates a user and composes its welcome notifications.
func RegisterUser(svc UserRegistrar, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		var input users.RegisterInput
		if err := validators.DecodeJSONBody(w, r, &input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		user, err := svc.Register(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, user)
	}
}
