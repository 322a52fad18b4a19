package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/phuoc-stack/foodapp-backend/pkg/errors"
)

type quantityBody struct {
	ListingID uuid.UUID `json:"listingId" validate:"required"`
	Quantity  *int      `json:"quantity" validate:"required"`
}

func TestDecodeJSONBody(t *testing.T) {
	id := uuid.New()
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"listingId":"`+id.String()+`","quantity":0}`))
	var body quantityBody
	require.NoError(t, DecodeJSONBody(req, &body))
	require.Equal(t, id, body.ListingID)
	require.Equal(t, 0, *body.Quantity)
}

func TestDecodeJSONBodyRejects(t *testing.T) {
	cases := map[string]string{
		"empty":         ``,
		"malformed":     `{"listingId":`,
		"unknown field": `{"listingId":"` + uuid.NewString() + `","quantity":1,"extra":true}`,
		"missing":       `{"quantity":1}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(payload))
			var body quantityBody
			err := DecodeJSONBody(req, &body)
			require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}

func TestValidationDetailsUseJSONNames(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"quantity":1}`))
	var body quantityBody
	err := DecodeJSONBody(req, &body)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	require.Equal(t, "is required", details["listingId"])
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/?quantity=3", nil)
	v, err := ParseQueryInt(req, "quantity", 1, 1, 99)
	require.NoError(t, err)
	require.Equal(t, 3, v)

	v, err = ParseQueryInt(httptest.NewRequest(http.MethodPost, "/", nil), "quantity", 1, 1, 99)
	require.NoError(t, err)
	require.Equal(t, 1, v)

	_, err = ParseQueryInt(httptest.NewRequest(http.MethodPost, "/?quantity=abc", nil), "quantity", 1, 1, 99)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()
	rc := chi.NewRouteContext()
	rc.URLParams.Add("id", id.String())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

	got, err := ParseUUIDParam(req, "id")
	require.NoError(t, err)
	require.Equal(t, id, got)

	rc.URLParams = chi.RouteParams{}
	rc.URLParams.Add("id", "not-a-uuid")
	_, err = ParseUUIDParam(req, "id")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestDecodeJSONBodyNamesMistypedField(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"listingId":"`+uuid.NewString()+`","quantity":"two"}`))
	var body quantityBody
	typed := pkgerrors.As(DecodeJSONBody(req, &body))
	require.NotNil(t, typed)
	require.Equal(t, map[string]string{"quantity": "must be a int"}, typed.Details())
}

func TestDecodeJSONBodyRejectsTrailingObject(t *testing.T) {
	one := `{"listingId":"` + uuid.NewString() + `","quantity":1}`
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(one+one))
	var body quantityBody
	require.True(t, pkgerrors.HasCode(DecodeJSONBody(req, &body), pkgerrors.CodeValidation))
}
