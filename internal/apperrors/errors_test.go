package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPStatusMapping(t *testing.T) {
	require.Equal(t, http.StatusUnauthorized, HTTPStatus(Unauthorized("no token")))
	require.Equal(t, http.StatusForbidden, HTTPStatus(Forbidden("not the owner")))
	require.Equal(t, http.StatusNotFound, HTTPStatus(NotFound("no such document")))
	require.Equal(t, http.StatusBadRequest, HTTPStatus(Validation("bad json")))
	require.Equal(t, http.StatusInternalServerError, HTTPStatus(Internal("save failed", errors.New("boom"))))
	require.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("untyped")))
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("create document: %w", Forbidden("not the owner"))
	require.Equal(t, KindForbidden, KindOf(err))
}

func TestInternalKeepsDiagnosticDetail(t *testing.T) {
	err := Internal("save failed", errors.New("connection reset"))
	require.Contains(t, err.Error(), "save failed")
	require.Contains(t, err.Error(), "connection reset")
}
