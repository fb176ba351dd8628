package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/angelmondragon/notifyd/pkg/errors"
	"github.com/angelmondragon/notifyd/pkg/logger"
)

// fallbackBody is written when a payload cannot be encoded.
const fallbackBody = `{"error":{"code":"INTERNAL_ERROR","message":"failed to encode response"}}` + "\n"

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, SuccessEnvelope{Data: data})
}

// WriteError maps err onto its coded status and envelope. Client errors keep their own
// message; server errors are replaced by the public message for the code.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	payload := ErrorEnvelope{
		Error: APIError{
			Code:    string(typed.Code()),
			Message: publicMessage(typed, meta),
		},
	}
	if meta.DetailsAllowed {
		payload.Error.Details = typed.Details()
	}

	if logg != nil {
		fields := pkgerrors.Dump(err).Fields()
		if sid := detailSID(typed.Details()); sid != nil {
			fields["sid"] = sid
		}
		ctx = logg.WithFields(ctx, fields)
		if meta.HTTPStatus >= http.StatusInternalServerError {
			logg.Error(ctx, "request.error", err)
		} else {
			logg.Warn(ctx, "request.rejected")
		}
	}

	writeJSON(w, meta.HTTPStatus, payload)
}

func publicMessage(typed *pkgerrors.Error, meta pkgerrors.Metadata) string {
	switch typed.Code() {
	case pkgerrors.CodeValidation,
		pkgerrors.CodeUnprocessable,
		pkgerrors.CodeForbidden,
		pkgerrors.CodeUnauthorized,
		pkgerrors.CodeNotFound,
		pkgerrors.CodeConflict:
		if m := typed.Message(); m != "" {
			return m
		}
	}
	return meta.PublicMessage
}

// detailSID pulls the provider message id out of error details so webhook
// failures can be traced by sid.
func detailSID(details any) any {
	switch d := details.(type) {
	case map[string]any:
		return d["sid"]
	case map[string]string:
		if sid, ok := d["sid"]; ok {
			return sid
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	var buf bytes.Buffer
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(fallbackBody))
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
