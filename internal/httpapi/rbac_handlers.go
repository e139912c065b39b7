package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mikemajesty/monorepo/internal/audit"
	"github.com/mikemajesty/monorepo/internal/auth"
	"github.com/mikemajesty/monorepo/internal/rbac"
)

func (a *API) createRole(w http.ResponseWriter, r *http.Request) {
	var in rbac.CreateRoleInput
	if err := decodeJSON(r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := a.svc.Roles.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/roles/"+out.ID)
	writeJSON(w, http.StatusCreated, out)
}

func (a *API) updateRole(w http.ResponseWriter, r *http.Request) {
	var in rbac.UpdateRoleInput
	if err := decodeJSON(r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	in.ID = chi.URLParam(r, "id")
	role, err := a.svc.Roles.Update(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (a *API) getRole(w http.ResponseWriter, r *http.Request) {
	role, err := a.svc.Roles.Get(r.Context(), rbac.IDInput{ID: chi.URLParam(r, "id")})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (a *API) listRoles(w http.ResponseWriter, r *http.Request) {
	in, err := listQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := a.svc.Roles.List(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (a *API) deleteRole(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	role, err := a.svc.Roles.Delete(r.Context(), rbac.IDInput{ID: id})
	audit.Record(r.Context(), "rbac.role.delete", err, map[string]any{"role_id": id})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (a *API) addRolePermissions(w http.ResponseWriter, r *http.Request) {
	a.changeRolePermissions(w, r, "rbac.role.add_permissions", a.svc.Roles.AddPermissions)
}

func (a *API) removeRolePermissions(w http.ResponseWriter, r *http.Request) {
	a.changeRolePermissions(w, r, "rbac.role.remove_permissions", a.svc.Roles.RemovePermissions)
}

func (a *API) changeRolePermissions(w http.ResponseWriter, r *http.Request, event string, apply func(ctx context.Context, in rbac.RolePermissionsInput) (*auth.Role, error)) {
	var in rbac.RolePermissionsInput
	if err := decodeJSON(r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	in.ID = chi.URLParam(r, "id")
	role, err := apply(r.Context(), in)
	audit.Record(r.Context(), event, err, map[string]any{"role_id": in.ID, "permissions": in.Permissions})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (a *API) createPermission(w http.ResponseWriter, r *http.Request) {
	var in rbac.CreatePermissionInput
	if err := decodeJSON(r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := a.svc.Permissions.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/permissions/"+out.ID)
	writeJSON(w, http.StatusCreated, out)
}

func (a *API) updatePermission(w http.ResponseWriter, r *http.Request) {
	var in rbac.UpdatePermissionInput
	if err := decodeJSON(r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	in.ID = chi.URLParam(r, "id")
	perm, err := a.svc.Permissions.Update(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, perm)
}

func (a *API) getPermission(w http.ResponseWriter, r *http.Request) {
	perm, err := a.svc.Permissions.Get(r.Context(), rbac.IDInput{ID: chi.URLParam(r, "id")})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, perm)
}

func (a *API) listPermissions(w http.ResponseWriter, r *http.Request) {
	in, err := listQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := a.svc.Permissions.List(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (a *API) deletePermission(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	perm, err := a.svc.Permissions.Delete(r.Context(), rbac.IDInput{ID: id})
	audit.Record(r.Context(), "rbac.permission.delete", err, map[string]any{"permission_id": id})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, perm)
}
