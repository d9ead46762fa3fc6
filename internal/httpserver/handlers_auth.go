package httpserver

import (
	"errors"
	"net/http"

	"shopfront/webshop/internal/audit"
	"shopfront/webshop/internal/auth"
	"shopfront/webshop/internal/view"
)

const (
	flashError = "error"

	msgInvalidLogin = "Invalid email or password."
	msgResetExpired = "Password reset link is invalid or has expired."
)

func registerAuthRoutes(mux *http.ServeMux, p *pipeline, h *handlers) {
	mux.Handle("GET /login", p.public(h.getLogin))
	mux.Handle("POST /login", p.public(h.postLogin))
	mux.Handle("GET /signup", p.public(h.getSignup))
	mux.Handle("POST /signup", p.public(h.postSignup))
	mux.Handle("POST /logout", p.public(h.postLogout))
	mux.Handle("GET /reset", p.public(h.getReset))
	mux.Handle("POST /reset", p.public(h.postReset))
	mux.Handle("GET /reset/{token}", p.public(h.getNewPassword))
	mux.Handle("POST /new-password", p.public(h.postNewPassword))
}

func (h *handlers) getLogin(rc *RequestContext) (Result, error) {
	return Render(http.StatusOK, view.Login, &view.LoginPage{
		Page:         view.Page{Title: "Login"},
		ErrorMessage: firstFlash(rc, flashError),
	}), nil
}

func (h *handlers) postLogin(rc *RequestContext) (Result, error) {
	email := formValue(rc, "email")
	password := rc.Request.PostFormValue("password")

	u, err := h.deps.Credentials.Login(rc.Request.Context(), rc.Session, email, password)
	if err != nil {
		if verr, ok := isValidation(err); ok {
			h.deps.Metrics.ObserveLogin(audit.OutcomeFailure)
			return Render(http.StatusUnprocessableEntity, view.Login, &view.LoginPage{
				Page:             view.Page{Title: "Login"},
				ErrorMessage:     verr.First(),
				OldEmail:         email,
				ValidationErrors: view.ErrorsFrom(verr),
			}), nil
		}
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.deps.Metrics.ObserveLogin(audit.OutcomeFailure)
			h.audit(rc, email, audit.ActionLogin, "", audit.OutcomeFailure)
			return Render(http.StatusUnprocessableEntity, view.Login, &view.LoginPage{
				Page:         view.Page{Title: "Login"},
				ErrorMessage: msgInvalidLogin,
				OldEmail:     email,
			}), nil
		}
		return Result{}, err
	}

	h.deps.Metrics.ObserveLogin(audit.OutcomeSuccess)
	h.audit(rc, u.ID, audit.ActionLogin, u.Email, audit.OutcomeSuccess)
	return Redirect("/"), nil
}

func (h *handlers) postLogout(rc *RequestContext) (Result, error) {
	actor := rc.Session.UserID
	h.deps.Credentials.Logout(rc.Session)
	if actor != "" {
		h.audit(rc, actor, audit.ActionLogout, "", audit.OutcomeSuccess)
	}
	return Redirect("/"), nil
}

func (h *handlers) getSignup(rc *RequestContext) (Result, error) {
	return Render(http.StatusOK, view.Signup, &view.SignupPage{
		Page:         view.Page{Title: "Signup"},
		ErrorMessage: firstFlash(rc, flashError),
	}), nil
}

func (h *handlers) postSignup(rc *RequestContext) (Result, error) {
	email := formValue(rc, "email")
	u, err := h.deps.Credentials.Signup(rc.Request.Context(), email,
		rc.Request.PostFormValue("password"),
		rc.Request.PostFormValue("confirmPassword"),
	)
	if err != nil {
		verr, ok := isValidation(err)
		if !ok {
			return Result{}, err
		}
		return Render(http.StatusUnprocessableEntity, view.Signup, &view.SignupPage{
			Page:             view.Page{Title: "Signup"},
			ErrorMessage:     verr.First(),
			OldEmail:         email,
			ValidationErrors: view.ErrorsFrom(verr),
		}), nil
	}
	h.audit(rc, u.ID, audit.ActionSignup, u.Email, audit.OutcomeSuccess)
	return Redirect("/login"), nil
}

func (h *handlers) getReset(rc *RequestContext) (Result, error) {
	return Render(http.StatusOK, view.Reset, &view.ResetPage{
		Page:         view.Page{Title: "Reset Password"},
		ErrorMessage: firstFlash(rc, flashError),
	}), nil
}

// postReset always ends on the shop index so the response does not reveal
// whether the email is registered.
func (h *handlers) postReset(rc *RequestContext) (Result, error) {
	ctx := rc.Request.Context()
	email := formValue(rc, "email")
	token, err := h.deps.Credentials.RequestReset(ctx, email)
	if err != nil {
		return Result{}, err
	}
	if token != "" {
		if err := h.deps.Notifier.SendReset(ctx, email, token); err != nil {
			h.deps.Logger.ErrorContext(ctx, "send reset link", "error", err)
		}
		h.audit(rc, email, audit.ActionResetRequest, "", audit.OutcomeSuccess)
	}
	return Redirect("/"), nil
}

func (h *handlers) getNewPassword(rc *RequestContext) (Result, error) {
	token := rc.Request.PathValue("token")
	if _, err := h.deps.Credentials.ValidateResetToken(rc.Request.Context(), token); err != nil {
		if isResetTokenError(err) {
			rc.Session.AddFlash(flashError, msgResetExpired)
			return Redirect("/reset"), nil
		}
		return Result{}, err
	}
	return Render(http.StatusOK, view.NewPassword, &view.NewPasswordPage{
		Page:  view.Page{Title: "New Password"},
		Token: token,
	}), nil
}

func (h *handlers) postNewPassword(rc *RequestContext) (Result, error) {
	token := formValue(rc, "passwordToken")
	u, err := h.deps.Credentials.CompleteReset(rc.Request.Context(), token, rc.Request.PostFormValue("password"))
	if err != nil {
		if verr, ok := isValidation(err); ok {
			return Render(http.StatusUnprocessableEntity, view.NewPassword, &view.NewPasswordPage{
				Page:         view.Page{Title: "New Password"},
				ErrorMessage: verr.First(),
				Token:        token,
			}), nil
		}
		if isResetTokenError(err) {
			rc.Session.AddFlash(flashError, msgResetExpired)
			return Redirect("/reset"), nil
		}
		return Result{}, err
	}
	h.audit(rc, u.ID, audit.ActionResetComplete, u.Email, audit.OutcomeSuccess)
	return Redirect("/login"), nil
}

func isResetTokenError(err error) bool {
	return errors.Is(err, auth.ErrTokenNotFound) || errors.Is(err, auth.ErrTokenExpired)
}
