package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mikemajesty/monorepo/internal/audit"
	"github.com/mikemajesty/monorepo/internal/users"
)

type changePasswordRequest struct {
	Password        string `json:"password"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	var in users.CreateInput
	if err := decodeJSON(r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := a.svc.Users.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/users/"+out.ID)
	writeJSON(w, http.StatusCreated, out)
}

func (a *API) updateUser(w http.ResponseWriter, r *http.Request) {
	var in users.UpdateInput
	if err := decodeJSON(r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	in.ID = chi.URLParam(r, "id")
	u, err := a.svc.Users.Update(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := a.svc.Users.Get(r.Context(), users.IDInput{ID: chi.URLParam(r, "id")})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	in, err := listQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := a.svc.Users.List(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	u, err := a.svc.Users.Delete(r.Context(), users.IDInput{ID: id})
	audit.Record(r.Context(), "user.delete", err, map[string]any{"target_user_id": id})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// searchUser serves the remote user lookup used by the auth service. The
// response includes the password digest.
func (a *API) searchUser(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := a.svc.Users.Search(r.Context(), users.SearchInput{ID: q.Get("id"), Email: q.Get("email")})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	err := a.svc.Users.ChangePassword(r.Context(), users.ChangePasswordInput{
		ID:              id,
		Password:        req.Password,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	audit.Record(r.Context(), "user.change_password", err, map[string]any{"target_user_id": id})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
