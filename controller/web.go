package controller

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/quickbill/dashboard/model"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/shopspring/decimal"
	"github.com/xeonx/timeago"
)

type Flash struct {
	Kind    string // "success" | "error" | "warning" | "info"
	Message string
}

// FlashLoader pulls flashes out of the session (clearing them) and puts
// them into the echo context for the templates.
func FlashLoader(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, _ := session.Get("session", c)
		raw := sess.Flashes()
		_ = sess.Save(c.Request(), c.Response())

		flashes := make([]Flash, 0, len(raw))
		for _, it := range raw {
			if f, ok := it.(Flash); ok {
				flashes = append(flashes, f)
			}
		}
		c.Set("flashes", flashes)
		return next(c)
	}
}

// AddFlash queues a flash message for the next rendered page.
func AddFlash(c echo.Context, kind, msg string) error {
	sess, _ := session.Get("session", c)
	sess.AddFlash(Flash{Kind: kind, Message: msg})
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return ErrInvalid(err, "could not save the session")
	}
	return nil
}

type appError struct {
	Code   string // stable internal code for ops/support
	Status int
	Err    error  // original error, never shown to the client
	Public string // safe text for users (optional)
}

func (e *appError) Error() string { return fmt.Sprintf("%s: %v", e.Code, e.Err) }
func (e *appError) Unwrap() error { return e.Err }

func ErrNotFound(err error) *appError {
	return &appError{Code: "NOT_FOUND", Status: http.StatusNotFound, Err: err}
}
func ErrInvalid(err error, public string) *appError {
	return &appError{Code: "INVALID_INPUT", Status: http.StatusBadRequest, Err: err, Public: public}
}
func ErrInternal(err error) *appError {
	return &appError{Code: "INTERNAL", Status: http.StatusInternalServerError, Err: err}
}

var timeagoEnglish = timeago.NoMax(timeago.English)

// The Template interface implements rendering functionality for echo.
type Template struct {
	templates *template.Template
}

// Render is the echo way of rendering templates.
func (t *Template) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return t.templates.ExecuteTemplate(w, name, data)
}

type controller struct {
	model *model.DB
	store *model.Store
}

func (ctrl *controller) defaultResponseMap(c echo.Context, title string) map[string]any {
	responseMap := map[string]any{
		"title":    title,
		"loggedin": false,
		"path":     c.Request().URL.Path,
	}

	if flashes, ok := c.Get("flashes").([]Flash); ok {
		responseMap["flashes"] = flashes
	} else {
		responseMap["flashes"] = []Flash{}
	}

	if t := c.Get(middleware.DefaultCSRFConfig.ContextKey); t != nil {
		responseMap["CSRFToken"] = t.(string)
	}

	uid, ok := c.Get("uid").(string)
	if !ok || uid == "" {
		return responseMap
	}
	responseMap["uid"] = uid
	user, err := ctrl.model.GetUserByID(uid)
	if err != nil {
		c.Get("logger").(*slog.Logger).Warn("cannot get user by ID", "error", err)
		responseMap["uid"] = nil
		c.Set("uid", nil)
		return responseMap
	}
	responseMap["email"] = user.Email
	responseMap["fullname"] = user.FullName
	responseMap["quickpay"] = user.QuickPayPath()
	responseMap["loggedin"] = true
	return responseMap
}

// statusLabels maps invoice statuses to display text and badge color.
var statusLabels = map[model.InvoiceStatus]string{
	model.InvoiceStatusDraft:     "Draft",
	model.InvoiceStatusSent:      "Sent",
	model.InvoiceStatusPaid:      "Paid",
	model.InvoiceStatusOverdue:   "Overdue",
	model.InvoiceStatusCancelled: "Cancelled",
}

var statusColors = map[model.InvoiceStatus]string{
	model.InvoiceStatusDraft:     "slate",
	model.InvoiceStatusSent:      "blue",
	model.InvoiceStatusPaid:      "green",
	model.InvoiceStatusOverdue:   "red",
	model.InvoiceStatusCancelled: "gray",
}

// NewController wires the web server and blocks serving it.
func NewController(db *model.DB, store *model.Store) error {
	// Prod: JSON, Info+; Dev: text, Debug
	var logger *slog.Logger
	if db.Config.Mode == "development" {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	gob.Register(Flash{})
	var templateFunc = template.FuncMap{
		"htmldate": func(in time.Time) string {
			return in.Format("2006-01-02")
		},
		"userdate": func(in time.Time) string {
			return in.Format("Jan 2, 2006")
		},
		"timeago": func(in time.Time) string {
			return timeagoEnglish.Format(in)
		},
		"currency": func(in decimal.Decimal) string {
			return "$" + in.Round(2).StringFixed(2)
		},
		"rounddecimal": func(in decimal.Decimal) string {
			return in.Round(2).StringFixed(2)
		},
		"invoiceStatus": func(in model.InvoiceStatus) string {
			if label, ok := statusLabels[in]; ok {
				return label
			}
			return "unknown"
		},
		"statusColor": func(in model.InvoiceStatus) string {
			if color, ok := statusColors[in]; ok {
				return color
			}
			return "slate"
		},
		"effectiveStatus": func(inv model.Invoice) model.InvoiceStatus {
			return model.EffectiveStatus(&inv, time.Now())
		},
		"toJSON": func(v any) template.JS {
			b, _ := json.Marshal(v)
			return template.JS(b)
		},
		"fmtTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("Jan 2, 2006 15:04")
		},
		"nl2br": func(s string) template.HTML {
			esc := html.EscapeString(s)
			return template.HTML(strings.ReplaceAll(esc, "\n", "<br>"))
		},
		"array": func(els ...any) []any {
			return els
		},
		"now":    time.Now,
		"before": func(a, b time.Time) bool { return a.Before(b) },
	}

	tmpl := &Template{
		templates: template.Must(template.New("t").Funcs(templateFunc).ParseGlob("public/views/*.html")),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Pre(middleware.MethodOverrideWithConfig(middleware.MethodOverrideConfig{
		Getter: middleware.MethodFromForm("_method"),
	}))
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.BodyLimit("4M"))
	e.Use(middleware.RequestID())
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		DisableStackAll:   false,
		DisablePrintStack: true,
	}))

	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			req := c.Request()
			res := c.Response()
			rid := res.Header().Get(echo.HeaderXRequestID)

			reqLogger := logger.With(
				"request_id", rid,
			).WithGroup("http").With(
				"method", req.Method,
				"path", req.URL.Path,
				"remote_ip", c.RealIP(),
			)
			c.Set("logger", reqLogger)

			err := next(c)

			if shouldSkipAccessLog(c) {
				return err
			}
			latency := time.Since(start)

			attrs := []any{
				"status", res.Status,
				"latency_ms", float64(latency.Microseconds()) / 1000.0,
			}

			switch {
			case res.Status >= 500:
				reqLogger.Error("http_request", attrs...)
			case res.Status >= 400:
				reqLogger.Warn("http_request", attrs...)
			default:
				reqLogger.Info("http_request", attrs...)
			}
			return err
		}
	})

	// Central error handler: log everything internally, emit only a safe
	// payload to the client.
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		l, _ := c.Get("logger").(*slog.Logger)
		if l == nil {
			l = logger
		}

		var ae *appError
		var he *echo.HTTPError
		var verrs model.ValidationErrors
		switch {
		case errors.As(err, &ae):
		case errors.As(err, &verrs):
			ae = &appError{
				Code:   "VALIDATION",
				Status: http.StatusUnprocessableEntity,
				Err:    verrs,
				Public: verrs.Error(),
			}
		case errors.Is(err, model.ErrNotAuthenticated):
			ae = &appError{Code: "UNAUTHORIZED", Status: http.StatusUnauthorized, Err: err}
		case errors.As(err, &he):
			// Pass 4xx messages through; mask 5xx.
			public := ""
			if he.Code >= 400 && he.Code < 500 {
				public = fmt.Sprint(he.Message)
			}
			ae = &appError{
				Code:   httpStatusToCode(he.Code),
				Status: he.Code,
				Err:    fmt.Errorf("%v", he.Message),
				Public: public,
			}
		case errors.Is(err, echo.ErrNotFound):
			ae = ErrNotFound(err)
		case errors.Is(err, echo.ErrMethodNotAllowed):
			ae = &appError{Code: "METHOD_NOT_ALLOWED", Status: http.StatusMethodNotAllowed, Err: err}
		default:
			ae = ErrInternal(err)
		}

		attrs := []any{
			"status", ae.Status,
			"code", ae.Code,
			"error", ae.Err.Error(),
		}
		if ae.Status >= 500 {
			l.Error("handler_error", attrs...)
		} else {
			l.Warn("handler_error", attrs...)
		}

		if wantsHTML(c.Request()) {
			kind := "error"
			if ae.Status >= 400 && ae.Status < 500 {
				kind = "warning"
			}
			if err = AddFlash(c, kind, userMessage(ae)); err != nil {
				l.Error("cannot add flash message", "error", err)
			}
			target := c.Request().Referer()
			if target == "" {
				target = "/"
			}
			_ = c.Redirect(http.StatusSeeOther, target)
			return
		}

		_ = c.JSON(ae.Status, map[string]any{
			"error":      userMessage(ae),
			"error_code": ae.Code,
			"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
		})
	}

	cookieStore := sessions.NewCookieStore([]byte(db.Config.CookieSecret))
	cookieStore.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	isProd := db.Config.Mode == "production"
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("isprod", isProd)
			return next(c)
		}
	})
	e.Use(session.Middleware(cookieStore))
	e.Use(FlashLoader)
	if db.Config.Mode == "development" {
		// Disable caching for static files
		e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				if strings.HasPrefix(c.Request().URL.Path, "/static/") {
					res := c.Response().Header()
					res.Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
					res.Set("Pragma", "no-cache")
					res.Set("Expires", "0")
				}
				return next(c)
			}
		})
	}
	e.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
		TokenLength:    32,
		TokenLookup:    "form:_csrf,header:X-CSRF-Token",
		CookieName:     "csrf",
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSameSite: http.SameSiteLaxMode,
		Skipper: func(c echo.Context) bool {
			if strings.HasPrefix(c.Path(), "/api/") {
				return true
			}
			if c.Request().Method == http.MethodPost {
				if strings.HasPrefix(c.Path(), "/passwordreset") {
					return true
				}
				if strings.HasPrefix(c.Path(), "/login") {
					return true
				}
			}
			return false
		},
	}))

	e.Renderer = tmpl
	ctrl := controller{model: db, store: store}
	e.GET("/", ctrl.dashboard, ctrl.authMiddleware)
	e.GET("/login", ctrl.login)
	e.POST("/login", ctrl.login)
	e.GET("/logout", ctrl.logout)
	e.GET("/register", ctrl.register)
	e.POST("/register", ctrl.register)
	e.GET("/verify", ctrl.verifyEmail)
	e.GET("/passwordreset/:token", ctrl.showPasswordResetForm)
	e.POST("/passwordreset/:token", ctrl.handlePasswordResetSubmit)
	e.GET("/passwordreset", ctrl.showPasswordResetRequest)
	e.POST("/passwordreset", ctrl.handlePasswordResetRequest)
	e.GET("/pay/:userid", ctrl.quickPay)

	e.Static("/static", "public/static")
	ctrl.invoiceInit(e)
	ctrl.apiInit(e)

	if err := e.Start(fmt.Sprintf(":%d", db.Config.Port)); err != nil {
		return fmt.Errorf("cannot start application %w", err)
	}
	return nil
}

func userMessage(ae *appError) string {
	if ae.Public != "" {
		return ae.Public
	}
	switch ae.Code {
	case "INVALID_INPUT":
		return "The input is invalid. Please check and resubmit."
	case "VALIDATION":
		return "The invoice could not be validated. Please check the form."
	case "UNAUTHORIZED":
		return "Please sign in to continue."
	case "NOT_FOUND":
		return "The requested resource was not found."
	case "METHOD_NOT_ALLOWED":
		return "This HTTP method is not supported here."
	default:
		return "Something went wrong. Please try again later."
	}
}

func wantsHTML(r *http.Request) bool { return strings.Contains(r.Header.Get("Accept"), "text/html") }

func httpStatusToCode(status int) string {
	switch status {
	case 400:
		return "INVALID_INPUT"
	case 401:
		return "UNAUTHORIZED"
	case 403:
		return "FORBIDDEN"
	case 404:
		return "NOT_FOUND"
	case 405:
		return "METHOD_NOT_ALLOWED"
	case 422:
		return "VALIDATION"
	default:
		if status >= 500 {
			return "INTERNAL"
		}
		return "ERROR"
	}
}

func shouldSkipAccessLog(c echo.Context) bool {
	p := c.Request().URL.Path
	if strings.HasPrefix(p, "/static/") {
		return true
	}
	switch p {
	case "/favicon.ico", "/robots.txt":
		return true
	}
	ext := strings.ToLower(path.Ext(p))
	switch ext {
	case ".css", ".js", ".map", ".png", ".jpg", ".jpeg", ".svg", ".ico", ".webp":
		return true
	}
	m := c.Request().Method
	if m == http.MethodHead || m == http.MethodOptions {
		return true
	}
	return false
}
