package errors

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_HTTPStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    *Error
		status int
	}{
		{"validation", ValidationError("bad input"), http.StatusBadRequest},
		{"not found", NotFoundError("missing"), http.StatusNotFound},
		{"timeout", TimeoutError("too slow", nil), http.StatusGatewayTimeout},
		{"internal", InternalError("boom", nil), http.StatusInternalServerError},
		{"external", ExternalError("upstream down", nil), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.HTTPStatus())
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := InternalError("wrapper", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "root cause")
}

func TestError_WithField(t *testing.T) {
	err := ValidationError("bad model").WithField("model", "nope")
	assert.Equal(t, "nope", err.Context["model"])
}

func TestError_ToResponse_HidesCause(t *testing.T) {
	err := InternalError("something broke", errors.New("secret detail"))
	resp := err.ToResponse()

	assert.Equal(t, "something broke", resp.Error)
	assert.Equal(t, TypeInternal, resp.Type)
	assert.NotContains(t, resp.Error, "secret detail")
}

func TestAsStructuredError(t *testing.T) {
	structured := NotFoundError("gone")
	assert.Same(t, structured, AsStructuredError(structured))

	plain := errors.New("plain")
	wrapped := AsStructuredError(plain)
	assert.Equal(t, TypeInternal, wrapped.Type)
	assert.ErrorIs(t, wrapped, plain)

	assert.Nil(t, AsStructuredError(nil))
}

func TestMiddleware_ConvertsStructuredError(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/boom", func(c echo.Context) error {
		return ValidationError("text must not be empty")
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "text must not be empty")
	assert.Contains(t, rec.Body.String(), `"type":"validation"`)
}

func TestMiddleware_PassesSuccessThrough(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/ok", func(c echo.Context) error {
		return c.String(http.StatusOK, "fine")
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fine", rec.Body.String())
}

func TestMiddleware_WrapsPlainError(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/plain", func(c echo.Context) error {
		return errors.New("raw failure")
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/plain", nil)
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	// Internal detail never reaches the client.
	assert.NotContains(t, rec.Body.String(), "raw failure")
	assert.Contains(t, rec.Body.String(), "internal server error")
}
