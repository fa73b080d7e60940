package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestRequestID_Generated(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}

	if err := RequestID()(handler)(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	rid, _ := c.Get("request_id").(string)
	if rid == "" {
		t.Error("expected a generated request id")
	}
	if rec.Header().Get(echo.HeaderXRequestID) != rid {
		t.Error("expected request id echoed in response header")
	}
}

func TestRequestID_Inbound(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderXRequestID, "abc-123")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}

	if err := RequestID()(handler)(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rid, _ := c.Get("request_id").(string); rid != "abc-123" {
		t.Errorf("expected inbound id preserved, got %q", rid)
	}
}

func TestRecovery_Panic(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		panic("boom")
	}

	err := Recovery(zerolog.Nop())(handler)(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", httpErr.Code)
	}
}

func TestLogger_PassThrough(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}

	if err := Logger(zerolog.Nop())(handler)(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestLogger_CarriesRequestID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/patients", nil)
	req.Header.Set(echo.HeaderXRequestID, "rid-42")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	handler := RequestID()(Logger(logger)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}))
	if err := handler(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	line := buf.String()
	if !strings.Contains(line, `"request_id":"rid-42"`) {
		t.Errorf("log line missing request id: %s", line)
	}
	if !strings.Contains(line, `"path":"/patients"`) {
		t.Errorf("log line missing path: %s", line)
	}
	if !strings.Contains(line, `"level":"info"`) {
		t.Errorf("expected info level for 200: %s", line)
	}
}

func TestLogger_ClientErrorLogsWarn(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/vitals", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	handler := func(c echo.Context) error {
		return c.String(http.StatusForbidden, "denied")
	}
	if err := Logger(logger)(handler)(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(buf.String(), `"level":"warn"`) {
		t.Errorf("expected warn level for 403: %s", buf.String())
	}
}

func TestLogger_SkipsHealthCheck(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}
	if err := Logger(logger)(handler)(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("health check must not be logged: %s", buf.String())
	}
}

func TestRecovery_LogsRequestContext(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/ingest", nil)
	req.Header.Set(echo.HeaderXRequestID, "rid-99")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	handler := RequestID()(Recovery(logger)(func(c echo.Context) error {
		panic("boom")
	}))
	err := handler(c)
	if httpErr, ok := err.(*echo.HTTPError); !ok || httpErr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 HTTPError, got %v", err)
	}

	line := buf.String()
	if !strings.Contains(line, `"request_id":"rid-99"`) {
		t.Errorf("panic log missing request id: %s", line)
	}
	if !strings.Contains(line, `"path":"/ingest"`) {
		t.Errorf("panic log missing path: %s", line)
	}
}
