package pg

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"github.com/mikemajesty/monorepo/internal/auth"
	"github.com/mikemajesty/monorepo/internal/paginate"
)

var permissionSortable = map[string]string{
	"name":      "name",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

// Permissions implements auth.PermissionRepository.
type Permissions struct{ s *Store }

var _ auth.PermissionRepository = (*Permissions)(nil)

func (r *Permissions) selectPermissions() sq.SelectBuilder {
	return r.s.sb.Select("id", "name", "created_at", "updated_at", "deleted_at").From("permissions")
}

// FindByID loads the permission with the active roles that reference it.
func (r *Permissions) FindByID(ctx context.Context, id string) (*auth.Permission, error) {
	perms, err := r.find(ctx, r.selectPermissions().Where(sq.Eq{"id": id, "deleted_at": nil}).Limit(1))
	if err != nil {
		return nil, err
	}
	if len(perms) == 0 {
		return nil, auth.ErrNotFound
	}
	p := &perms[0]
	rows, err := r.s.query(ctx, r.s.db, r.s.sb.Select("r.id", "r.name", "r.created_at", "r.updated_at").
		From("permissions_roles pr").
		Join("roles r on r.id = pr.role_id and r.deleted_at is null").
		Where(sq.Eq{"pr.permission_id": p.ID}).
		OrderBy("r.name"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	p.Roles = []auth.Role{}
	for rows.Next() {
		var role auth.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		p.Roles = append(p.Roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Permissions) FindIn(ctx context.Context, names []string) ([]auth.Permission, error) {
	if len(names) == 0 {
		return nil, nil
	}
	return r.find(ctx, r.selectPermissions().Where(sq.Eq{"name": names, "deleted_at": nil}).OrderBy("name"))
}

func (r *Permissions) List(ctx context.Context, in paginate.Input) (paginate.Result[auth.Permission], error) {
	in = in.Normalize()
	where := sq.And{sq.Eq{"deleted_at": nil}}
	if in.Search != "" {
		where = append(where, sq.ILike{"name": searchPattern(in.Search)})
	}
	q, err := pageQuery(r.selectPermissions().Where(where), in, permissionSortable, "name ASC")
	if err != nil {
		return paginate.Result[auth.Permission]{}, err
	}
	docs, err := r.find(ctx, q)
	if err != nil {
		return paginate.Result[auth.Permission]{}, err
	}
	total, err := r.s.count(ctx, r.s.sb.Select("count(*)").From("permissions").Where(where))
	if err != nil {
		return paginate.Result[auth.Permission]{}, err
	}
	return paginate.Result[auth.Permission]{Docs: docs, Page: in.Page, Limit: in.Limit, Total: total}, nil
}

func (r *Permissions) Create(ctx context.Context, p *auth.Permission) error {
	if r.s.db == nil {
		return errNoDB
	}
	_, err := r.s.exec(ctx, r.s.db, r.s.sb.Insert("permissions").
		Columns("id", "name", "created_at", "updated_at").
		Values(p.ID, p.Name, p.CreatedAt, p.UpdatedAt))
	return err
}

func (r *Permissions) Update(ctx context.Context, p *auth.Permission) error {
	if r.s.db == nil {
		return errNoDB
	}
	return r.s.execOne(ctx, r.s.db, r.s.sb.Update("permissions").
		Set("name", p.Name).
		Set("updated_at", p.UpdatedAt).
		Set("deleted_at", nullTime(p.DeletedAt)).
		Where(sq.Eq{"id": p.ID}))
}

func (r *Permissions) find(ctx context.Context, q sq.SelectBuilder) ([]auth.Permission, error) {
	if r.s.db == nil {
		return nil, errNoDB
	}
	rows, err := r.s.query(ctx, r.s.db, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []auth.Permission
	for rows.Next() {
		var (
			p         auth.Permission
			deletedAt sql.NullTime
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt, &deletedAt); err != nil {
			return nil, err
		}
		p.DeletedAt = timePtr(deletedAt)
		out = append(out, p)
	}
	return out, rows.Err()
}
