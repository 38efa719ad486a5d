package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	e := echo.New()

	tests := map[string]struct {
		header string
	}{
		"generated": {header: ""},
		"forwarded": {header: "req-42"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/employees", nil)
			if tc.header != "" {
				req.Header.Set(echo.HeaderXRequestID, tc.header)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			var seen bool
			h := RequestID(func(c echo.Context) error {
				seen = c.Request().Context() != req.Context()
				return c.NoContent(http.StatusNoContent)
			})

			if assert.NoError(t, h(c)) {
				assert.True(t, seen, "handler receives the tagged context")
				got := rec.Header().Get(echo.HeaderXRequestID)
				if tc.header != "" {
					assert.Equal(t, tc.header, got)
				} else {
					assert.Len(t, got, 36)
				}
			}
		})
	}
}
