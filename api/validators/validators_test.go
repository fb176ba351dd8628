package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/notifyd/pkg/errors"
)

type phoneBody struct {
	Phone string `json:"phone" validate:"required,e164"`
}

func TestDecodeJSONBodyUsesJSONFieldNames(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"phone":"555-1234"}`))
	var dest phoneBody
	err := DecodeJSONBody(httptest.NewRecorder(), req, &dest)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	if !ok {
		t.Fatalf("unexpected details %T", pkgerrors.As(err).Details())
	}
	if details["phone"] != "must be an E.164 phone number" {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestParseQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=7&notifyable_type=%20User%20", nil)

	limit, err := ParseQueryInt(req, "limit", 20, 1, 100)
	if err != nil || limit != 7 {
		t.Fatalf("unexpected limit %d err %v", limit, err)
	}
	if got := ParseQueryString(req, "notifyable_type", 3); got != "Use" {
		t.Fatalf("expected trimmed and capped value, got %q", got)
	}
	if _, err := ParseQueryInt(req, "notifyable_type", 20, 1, 100); err == nil {
		t.Fatal("expected error for non numeric value")
	}
}

func TestDecodeJSONBodyRejectsEmptyAndTrailingInput(t *testing.T) {
	cases := map[string]string{
		"empty":    ``,
		"trailing": `{"phone":"+15005550006"}{"phone":"+15005550006"}`,
		"unknown":  `{"phone":"+15005550006","extra":true}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
			var dest phoneBody
			if err := DecodeJSONBody(httptest.NewRecorder(), req, &dest); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestParseQueryStringKeepsRunesWhole(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?notifyable_type=%C3%89v%C3%A9nement", nil)
	if got := ParseQueryString(req, "notifyable_type", 3); got != "Évé" {
		t.Fatalf("unexpected value %q", got)
	}
}
