package controller

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/quickbill/dashboard/model"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// authMiddleware ensures a user is authenticated before accessing
// protected routes. It reads the uid from the session; on failure it
// redirects to /login.
func (ctrl *controller) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sw, err := LoadSession(c)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, fmt.Errorf("cannot load session: %w", err))
		}

		uid, _ := sw.Values()["uid"].(string)
		if uid == "" {
			return c.Redirect(http.StatusSeeOther, "/login")
		}
		c.Set("uid", uid)
		return next(c)
	}
}

// currentUserID returns the signed-in user's id, or "" when anonymous.
func currentUserID(c echo.Context) string {
	uid, _ := c.Get("uid").(string)
	return uid
}

// login handles GET (render form) and POST (authenticate). On successful
// POST it stores the uid and the "persist" flag (remember me) in the
// session; the cookie MaxAge is applied by SessionWriter.Save().
func (ctrl *controller) login(c echo.Context) error {
	if c.Request().Method == http.MethodGet {
		m := ctrl.defaultResponseMap(c, "Sign in")
		return c.Render(http.StatusOK, "login.html", m)
	}

	email := strings.TrimSpace(strings.ToLower(c.FormValue("email")))
	password := c.FormValue("password")
	remember := c.FormValue("rememberMe") != ""

	// Do not leak whether the user exists.
	user, err := ctrl.model.AuthenticateUser(email, password)
	if err != nil || user == nil {
		if err := AddFlash(c, "error", "Sign in failed. Please check your input."); err != nil {
			return ErrInvalid(err, "could not save the session")
		}
		return c.Redirect(http.StatusSeeOther, "/login")
	}

	if !user.Verified {
		_ = AddFlash(c, "info", "Please confirm your email first. We've sent you instructions if needed.")
		return c.Redirect(http.StatusSeeOther, "/login")
	}

	sw, err := LoadSession(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err)
	}

	sw.Values()["uid"] = user.ID
	sw.Values()["persist"] = remember

	if err := sw.Save(); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err)
	}

	_ = ctrl.model.TouchLastLogin(user) // best-effort
	return c.Redirect(http.StatusSeeOther, "/")
}

// logout clears the session and deletes the cookie. ClearSession forces
// MaxAge = -1 regardless of "persist".
func (ctrl *controller) logout(c echo.Context) error {
	if err := ClearSession(c); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err)
	}
	_ = AddFlash(c, "success", "You have been signed out.")
	return c.Redirect(http.StatusFound, "/login")
}

// generateRandomToken returns a URL-safe base64 token for verification
// and password reset links. Only its hash is persisted.
func generateRandomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// register handles GET (render form) and POST (enumeration-safe signup).
// New accounts start unverified; a confirmation link is mailed and
// consumed by verifyEmail.
func (ctrl *controller) register(c echo.Context) error {
	if !ctrl.model.Config.RegistrationAllowed {
		return echo.NewHTTPError(http.StatusForbidden, "Registration is disabled")
	}
	if c.Request().Method == http.MethodGet {
		m := ctrl.defaultResponseMap(c, "Register")
		return c.Render(http.StatusOK, "register.html", m)
	}

	email := strings.TrimSpace(strings.ToLower(c.FormValue("email")))
	password := c.FormValue("password")
	logger := c.Get("logger").(*slog.Logger)

	neutral := func() error {
		m := ctrl.defaultResponseMap(c, "Register")
		m["flash_success"] = "If we can create or locate an account for that email, we have sent you an email with next steps."
		return c.Render(http.StatusOK, "register_submitted.html", m)
	}

	existing, err := ctrl.model.GetUserByEmail(email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return neutral()
	}
	if existing != nil {
		body := "Someone tried to sign up with your email. If this was you, sign in here or reset your password."
		_ = ctrl.sendEmail(email, "Sign in to QuickBill", body)
		return neutral()
	}

	user := &model.User{Email: email}
	if err := ctrl.model.SetPassword(user, password); err != nil {
		return neutral()
	}
	if err := ctrl.model.CreateUser(user); err != nil {
		logger.Warn("cannot create user", "error", err)
		return neutral()
	}

	token, err := generateRandomToken()
	if err != nil {
		return neutral()
	}
	if err := ctrl.model.SetPasswordResetToken(user, token, time.Now().UTC().Add(24*time.Hour)); err != nil {
		logger.Warn("cannot store verification token", "error", err)
		return neutral()
	}

	verifyURL := fmt.Sprintf("%s://%s/verify?token=%s", c.Scheme(), c.Request().Host, url.QueryEscape(token))
	body := fmt.Sprintf(
		"Please confirm your email for QuickBill:\n\n%s\n\nThe link is valid for 24 hours. If you did not request this, you can ignore this message.",
		verifyURL,
	)
	_ = ctrl.sendEmail(email, "Confirm your email", body)

	return neutral()
}

// verifyEmail consumes the email verification token, marks the account
// verified and sends the user to the login form.
func (ctrl *controller) verifyEmail(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		_ = AddFlash(c, "error", "Invalid or expired link.")
		return c.Redirect(http.StatusSeeOther, "/login")
	}

	u, err := ctrl.model.GetUserByResetToken(token)
	if err != nil || u == nil {
		_ = AddFlash(c, "error", "Invalid or expired link.")
		return c.Redirect(http.StatusSeeOther, "/login")
	}

	u.Verified = true
	if err := ctrl.model.UpdateUser(u); err != nil {
		_ = AddFlash(c, "error", "Internal error. Please try again.")
		return c.Redirect(http.StatusSeeOther, "/login")
	}
	_ = ctrl.model.ClearPasswordResetToken(u)

	_ = AddFlash(c, "success", "Your email is confirmed. You can sign in now.")
	return c.Redirect(http.StatusSeeOther, "/login")
}

// showPasswordResetRequest renders the "request password reset" form.
func (ctrl *controller) showPasswordResetRequest(c echo.Context) error {
	m := ctrl.defaultResponseMap(c, "Password Reset")
	return c.Render(http.StatusOK, "passwordreset.html", m)
}

// handlePasswordResetRequest handles the reset request in an
// enumeration-safe way.
func (ctrl *controller) handlePasswordResetRequest(c echo.Context) error {
	logger := c.Get("logger").(*slog.Logger)
	email := strings.TrimSpace(strings.ToLower(c.FormValue("email")))

	genericResponse := func() error {
		_ = AddFlash(c, "info", "If an account exists, we have sent you an email.")
		return c.Redirect(http.StatusSeeOther, "/login")
	}

	user, err := ctrl.model.GetUserByEmail(email)
	if err != nil || user == nil {
		return genericResponse()
	}

	token, err := generateRandomToken()
	if err != nil {
		logger.Error("cannot generate reset token", "error", err)
		return genericResponse()
	}
	if err := ctrl.model.SetPasswordResetToken(user, token, time.Now().UTC().Add(1*time.Hour)); err != nil {
		logger.Error("cannot store reset token", "error", err)
		return genericResponse()
	}

	resetURL := fmt.Sprintf("%s://%s/passwordreset/%s", c.Scheme(), c.Request().Host, url.PathEscape(token))
	body := fmt.Sprintf(
		"Click the link to reset your password:\n\n%s\n\nThe link is valid for 60 minutes.",
		resetURL,
	)
	_ = ctrl.sendEmail(email, "Reset your password", body)

	return genericResponse()
}

// showPasswordResetForm validates the token and renders the "set new
// password" form. Invalid or expired tokens redirect with a neutral
// message.
func (ctrl *controller) showPasswordResetForm(c echo.Context) error {
	token := c.Param("token")

	user, err := ctrl.model.GetUserByResetToken(token)
	if err != nil || user == nil {
		_ = AddFlash(c, "error", "The link is invalid or has expired.")
		return c.Redirect(http.StatusSeeOther, "/login")
	}

	m := ctrl.defaultResponseMap(c, "Set a new password")
	m["token"] = token
	return c.Render(http.StatusOK, "passwordresettoken.html", m)
}

// handlePasswordResetSubmit sets the new password and clears the token.
// Always responds neutrally on failure to avoid leaks.
func (ctrl *controller) handlePasswordResetSubmit(c echo.Context) error {
	token := c.Param("token")
	pass := c.FormValue("newPassword")
	confirm := c.FormValue("confirmPassword")
	logger := c.Get("logger").(*slog.Logger)

	if pass == "" || pass != confirm {
		_ = AddFlash(c, "error", "Please check your input (passwords do not match).")
		return c.Redirect(http.StatusSeeOther, c.Request().RequestURI)
	}

	user, err := ctrl.model.GetUserByResetToken(token)
	if err != nil || user == nil {
		_ = AddFlash(c, "error", "The link is invalid or has expired.")
		return c.Redirect(http.StatusSeeOther, "/login")
	}

	if err := ctrl.model.SetPassword(user, pass); err != nil {
		logger.Error("cannot set password", "error", err)
		_ = AddFlash(c, "error", "Internal error. Please try again later.")
		return c.Redirect(http.StatusSeeOther, "/login")
	}
	if err := ctrl.model.UpdateUser(user); err != nil {
		logger.Error("cannot store password", "error", err)
		_ = AddFlash(c, "error", "Internal error. Please try again later.")
		return c.Redirect(http.StatusSeeOther, "/login")
	}
	if err := ctrl.model.ClearPasswordResetToken(user); err != nil {
		logger.Error("cannot clear reset token", "error", err)
	}

	_ = AddFlash(c, "success", "Your password has been updated. You can sign in now.")
	return c.Redirect(http.StatusSeeOther, "/login")
}
