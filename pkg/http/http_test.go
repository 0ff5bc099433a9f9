package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pairQuery struct {
	SymbolX   string `query:"symbolX" validate:"required,symbol"`
	Window    int    `query:"window" default:"30" validate:"gte=1"`
	StartTime string `query:"startTime" validate:"omitempty,timestamp"`
}

func newContext(target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestReadAndValidateRequest(t *testing.T) {
	tests := []struct {
		name   string
		target string
		code   string
		field  string
	}{
		{"ok with defaults", "/?symbolX=BTCUSDT", "", ""},
		{"epoch ms start", "/?symbolX=BTCUSDT&startTime=1704067200000", "", ""},
		{"missing symbol", "/", "ERR_REQUIRED", "symbolX"},
		{"bad symbol", "/?symbolX=BTC%20USDT", "ERR_SYMBOL", "symbolX"},
		{"bad start", "/?symbolX=BTCUSDT&startTime=yesterday", "ERR_TIMESTAMP", "startTime"},
		{"bad window", "/?symbolX=BTCUSDT&window=-3", "ERR_GTE", "window"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newContext(tt.target)
			var q pairQuery
			errs := ReadAndValidateRequest(c, &q)
			if tt.code == "" {
				require.Nil(t, errs)
				assert.Equal(t, 30, q.Window)
				return
			}
			list, ok := errs.([]ValidationError)
			require.True(t, ok)
			require.Len(t, list, 1)
			assert.Equal(t, tt.code, list[0].Code)
			assert.Equal(t, tt.field, list[0].Field)
		})
	}
}

func TestParseTimeRange(t *testing.T) {
	r, err := ParseTimeRange("", "2024-01-01T00:00:00Z")
	require.NoError(t, err)
	assert.Nil(t, r.From)

	r, err = ParseTimeRange("2024-01-01T00:00:00Z", "1704153600")
	require.NoError(t, err)
	from, to := r.Bounds()
	assert.Equal(t, 24*60*60.0, to.Sub(from).Seconds())

	_, err = ParseTimeRange("2024-01-02T00:00:00Z", "2024-01-01T00:00:00Z")
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
}

func TestAppErrorResponse(t *testing.T) {
	c, rec := newContext("/")
	wrapped := errors.Join(errors.New("context"), UnprocessableError("flat series"))
	require.NoError(t, AppErrorResponse(c, wrapped))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var env struct {
		Status int        `json:"status"`
		Data   []AppError `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, http.StatusUnprocessableEntity, env.Status)
	require.Len(t, env.Data, 1)
	assert.Equal(t, "ERR_UNPROCESSABLE", env.Data[0].Code)

	c, rec = newContext("/")
	require.NoError(t, AppErrorResponse(c, errors.New("boom")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAttachmentResponse(t *testing.T) {
	c, rec := newContext("/")
	require.NoError(t, AttachmentResponse(c, "AAA_BBB_data.csv", "text/csv", []byte("Time,X_Close,Y_Close,Spread\n")))
	assert.Equal(t, `attachment; filename="AAA_BBB_data.csv"`, rec.Header().Get(echo.HeaderContentDisposition))
	assert.Equal(t, "text/csv", rec.Header().Get(echo.HeaderContentType))
}

func TestServerCORS(t *testing.T) {
	preflight := func(s *Server) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/metrics", nil)
		req.Header.Set(echo.HeaderOrigin, "http://dashboard.local")
		req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodGet)
		rec := httptest.NewRecorder()
		s.Echo().ServeHTTP(rec, req)
		return rec
	}

	rec := preflight(NewServer(nil))
	assert.Equal(t, "http://dashboard.local", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))

	rec = preflight(NewServer(nil, WithCORS(false)))
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}
