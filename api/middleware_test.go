package api

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestGzipRequestMiddlewareDecompresses(t *testing.T) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write([]byte(`{"input": "compressed"}`)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/generate", &buf)
	req.Header.Set(echo.HeaderContentEncoding, "gzip")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen string
	next := func(c echo.Context) error {
		data, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return err
		}
		seen = string(data)
		return c.NoContent(http.StatusOK)
	}
	if err := GzipRequestMiddleware()(next)(c); err != nil {
		t.Fatalf("middleware: %v", err)
	}
	if seen != `{"input": "compressed"}` {
		t.Fatalf("body not decompressed: %q", seen)
	}
}

func TestGzipRequestMiddlewareRejectsInvalidBody(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader("not gzip"))
	req.Header.Set(echo.HeaderContentEncoding, "gzip")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	err := GzipRequestMiddleware()(next)(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid gzip, got %v", err)
	}
}

func TestGzipRequestMiddlewarePassthrough(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader("plain"))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	next := func(c echo.Context) error {
		data, _ := io.ReadAll(c.Request().Body)
		if string(data) != "plain" {
			t.Fatalf("plain body altered: %q", data)
		}
		return c.NoContent(http.StatusOK)
	}
	if err := GzipRequestMiddleware()(next)(c); err != nil {
		t.Fatalf("middleware: %v", err)
	}
}
