package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mikemajesty/monorepo/internal/audit"
	"github.com/mikemajesty/monorepo/internal/auth"
)

type confirmResetRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var in auth.LoginInput
	if err := decodeJSON(r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	pair, err := a.svc.Login.Execute(r.Context(), in)
	audit.Record(r.Context(), "auth.login", err, map[string]any{"email": auth.NormalizeEmail(in.Email)})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (a *API) refresh(w http.ResponseWriter, r *http.Request) {
	var in auth.RefreshInput
	if err := decodeJSON(r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	pair, err := a.svc.Refresh.Execute(r.Context(), in)
	audit.Record(r.Context(), "auth.refresh", err, nil)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// logout revokes the token named in the body, or the caller's own token when
// the body is empty.
func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	var in auth.LogoutInput
	if err := decodeJSON(r, &in, true); err != nil {
		writeError(w, r, err)
		return
	}
	if in.Token == "" {
		if id, ok := auth.IdentityFromContext(r.Context()); ok {
			in.Token = id.Token
		}
	}
	err := a.svc.Logout.Execute(r.Context(), in)
	audit.Record(r.Context(), "auth.logout", err, nil)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) sendResetEmail(w http.ResponseWriter, r *http.Request) {
	var in auth.SendResetEmailInput
	if err := decodeJSON(r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	err := a.svc.SendResetEmail.Execute(r.Context(), in)
	audit.Record(r.Context(), "auth.reset_password.send_email", err, map[string]any{"email": auth.NormalizeEmail(in.Email)})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) confirmResetPassword(w http.ResponseWriter, r *http.Request) {
	var req confirmResetRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	err := a.svc.ConfirmReset.Execute(r.Context(), auth.ConfirmResetPasswordInput{
		Token:           chi.URLParam(r, "token"),
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	audit.Record(r.Context(), "auth.reset_password.confirm", err, nil)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
