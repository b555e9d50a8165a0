package controller

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

func sessionEcho() *echo.Echo {
	e := echo.New()
	e.Use(session.Middleware(sessions.NewCookieStore([]byte("test-secret-test-secret-32bytes!"))))
	return e
}

func TestClearSession(t *testing.T) {
	e := sessionEcho()
	e.GET("/out", func(c echo.Context) error {
		sw, err := LoadSession(c)
		if err != nil {
			return err
		}
		sw.Values()["uid"] = "u1"
		if err := sw.Save(); err != nil {
			return err
		}
		if err := ClearSession(c); err != nil {
			return err
		}
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/out", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", rec.Code, http.StatusOK)
	}

	// The final session cookie must be expired.
	expired := false
	for _, sc := range rec.Header().Values(echo.HeaderSetCookie) {
		if strings.HasPrefix(sc, "session=") && strings.Contains(sc, "Max-Age=0") {
			expired = true
		}
	}
	if !expired {
		t.Errorf("no expiring session cookie in %v", rec.Header().Values(echo.HeaderSetCookie))
	}
}

func TestClearSession_GarbageCookie(t *testing.T) {
	e := sessionEcho()
	e.GET("/out", func(c echo.Context) error {
		if err := ClearSession(c); err != nil {
			return err
		}
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/out", nil)
	req.Header.Set("Cookie", "session=not-a-valid-session-value")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	e := sessionEcho()
	ctrl := &controller{}
	e.GET("/logout", ctrl.logout)

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("Status = %d, want %d", rec.Code, http.StatusFound)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != "/login" {
		t.Errorf("Location = %q, want %q", loc, "/login")
	}
}
