package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/holoauth/internal/challenge"
	"github.com/dropDatabas3/holoauth/internal/directory"
)

func TestFromError_MapsDomainSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{challenge.ErrBadSignature, http.StatusUnauthorized, "TOKEN_INVALID"},
		{fmt.Errorf("redeem: %w", challenge.ErrExpired), http.StatusUnauthorized, "TOKEN_EXPIRED"},
		{challenge.ErrNotAllowed, http.StatusUnauthorized, "UNAUTHORIZED"},
		{challenge.ErrMalformedClaim, http.StatusBadRequest, "MALFORMED_CLAIM"},
		{challenge.ErrMissingEmail, http.StatusBadRequest, "MISSING_FIELDS"},
		{fmt.Errorf("list: %w", directory.ErrUnavailable), http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{&directory.APIError{Op: "authorize", Status: 500, Body: "boom"}, http.StatusBadGateway, "BAD_GATEWAY"},
		{fmt.Errorf("something else"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
		{ErrRateLimitExceeded, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED"},
	}
	for _, tc := range cases {
		got := FromError(tc.err)
		require.Equal(t, tc.status, got.HTTPStatus, tc.err.Error())
		require.Equal(t, tc.code, got.Code, tc.err.Error())
	}
}

func TestWithDetail_DoesNotMutateCatalogue(t *testing.T) {
	e := ErrBadRequest.WithDetail("x")
	require.Equal(t, "x", e.Detail)
	require.Empty(t, ErrBadRequest.Detail)
}

func TestWriteError_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, challenge.ErrMissingEmail)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "MISSING_FIELDS", body["code"])
	require.Equal(t, "email", body["detail"])
	require.NotEmpty(t, body["message"])
}
