package twilio

import (
	"net/http"
	"strings"

	twclient "github.com/twilio/twilio-go/client"
)

// SignatureHeader carries the provider's request signature.
const SignatureHeader = "X-Twilio-Signature"

// SignatureValidator checks that webhook requests were signed with the
// account auth token.
type SignatureValidator struct {
	validator twclient.RequestValidator
}

func NewSignatureValidator(authToken string) *SignatureValidator {
	return &SignatureValidator{validator: twclient.NewRequestValidator(strings.TrimSpace(authToken))}
}

// ValidRequest reports whether r carries a matching signature for publicURL.
// The request form must already be parsed.
func (v *SignatureValidator) ValidRequest(r *http.Request, publicURL string) bool {
	if v == nil || r == nil {
		return false
	}
	signature := r.Header.Get(SignatureHeader)
	if signature == "" {
		return false
	}
	params := make(map[string]string, len(r.PostForm))
	for key, values := range r.PostForm {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	return v.validator.Validate(publicURL, params, signature)
}
