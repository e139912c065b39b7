package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mikemajesty/monorepo/internal/audit"
	"github.com/mikemajesty/monorepo/internal/auth"
	"github.com/mikemajesty/monorepo/internal/cat"
	"github.com/mikemajesty/monorepo/internal/paginate"
)

func (a *API) createCat(w http.ResponseWriter, r *http.Request) {
	var in cat.CreateInput
	if err := decodeJSON(r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := a.svc.Cats.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/cats/"+out.ID)
	writeJSON(w, http.StatusCreated, out)
}

func (a *API) updateCat(w http.ResponseWriter, r *http.Request) {
	var in cat.UpdateInput
	if err := decodeJSON(r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	in.ID = chi.URLParam(r, "id")
	c, err := a.svc.Cats.Update(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *API) getCat(w http.ResponseWriter, r *http.Request) {
	c, err := a.svc.Cats.Get(r.Context(), cat.IDInput{ID: chi.URLParam(r, "id")})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *API) listCats(w http.ResponseWriter, r *http.Request) {
	in, err := listQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := a.svc.Cats.List(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (a *API) deleteCat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := a.svc.Cats.Delete(r.Context(), cat.IDInput{ID: id})
	audit.Record(r.Context(), "cat.delete", err, map[string]any{"cat_id": id})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// listQuery reads the shared page, limit, search and sort parameters.
func listQuery(r *http.Request) (paginate.Input, error) {
	in, err := paginate.FromQuery(r.URL.Query())
	if err != nil {
		return paginate.Input{}, &auth.Error{Kind: auth.ErrBadRequest, Code: codeBadRequest, Message: err.Error()}
	}
	return in, nil
}
