package webhooks

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/angelmondragon/notifyd/api/responses"
	"github.com/angelmondragon/notifyd/internal/notify"
	pkgerrors "github.com/angelmondragon/notifyd/pkg/errors"
	"github.com/angelmondragon/notifyd/pkg/logger"
)

const (
	formMessageSid    = "MessageSid"
	formMessageStatus = "MessageStatus"
	formErrorCode     = "ErrorCode"
)

type StatusUpdater interface {
	UpdateStatus(ctx context.Context, update notify.StatusUpdate) (*notify.SMSNotification, error)
}

type signatureValidator interface {
	ValidRequest(r *http.Request, publicURL string) bool
}

type webhookCounter interface {
	IncWebhook(code string)
}

// TwilioStatusParams wires the status callback endpoint. Validator is
// optional; when set every request must carry a signature over PublicURL.
type TwilioStatusParams struct {
	Service   StatusUpdater
	Validator signatureValidator
	PublicURL string
	Metrics   webhookCounter
	Logger    *logger.Logger
}

// TwilioStatus applies provider delivery callbacks to stored SMS rows.
func TwilioStatus(p TwilioStatusParams) http.HandlerFunc {
	logg := p.Logger
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		rec := &codeRecorder{ResponseWriter: w}
		defer func() {
			if p.Metrics != nil {
				p.Metrics.IncWebhook(strconv.Itoa(rec.code()))
			}
		}()

		if p.Service == nil {
			responses.WriteError(ctx, logg, rec, pkgerrors.New(pkgerrors.CodeInternal, "notify service unavailable"))
			return
		}

		if err := r.ParseForm(); err != nil {
			responses.WriteError(ctx, logg, rec, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid form body"))
			return
		}

		update := notify.StatusUpdate{
			Sid:       strings.TrimSpace(r.PostForm.Get(formMessageSid)),
			Status:    formValue(r, formMessageStatus),
			ErrorCode: formValue(r, formErrorCode),
		}
		if logg != nil {
			ctx = logg.WithField(ctx, "sid", update.Sid)
		}

		if p.Validator != nil && !p.Validator.ValidRequest(r, p.PublicURL) {
			responses.WriteError(ctx, logg, rec, pkgerrors.New(pkgerrors.CodeForbidden, "invalid request signature").
				WithDetails(map[string]any{"sid": update.Sid}))
			return
		}

		sms, err := p.Service.UpdateStatus(ctx, update)
		if err != nil {
			responses.WriteError(ctx, logg, rec, err)
			return
		}

		if logg != nil {
			logg.Info(ctx, "sms.status.updated")
		}
		responses.WriteSuccess(rec, map[string]any{
			"sid":        update.Sid,
			"status":     sms.Status,
			"error_code": sms.ErrorCode,
		})
	}
}

// formValue returns nil for fields the provider did not send so the stored
// column is left alone.
func formValue(r *http.Request, key string) *string {
	values, ok := r.PostForm[key]
	if !ok || len(values) == 0 {
		return nil
	}
	v := strings.TrimSpace(values[0])
	return &v
}

type codeRecorder struct {
	http.ResponseWriter
	status int
}

func (c *codeRecorder) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *codeRecorder) code() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
