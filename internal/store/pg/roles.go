package pg

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"github.com/mikemajesty/monorepo/internal/auth"
	"github.com/mikemajesty/monorepo/internal/paginate"
)

var roleSortable = map[string]string{
	"name":      "name",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

// Roles implements auth.RoleRepository.
type Roles struct{ s *Store }

var _ auth.RoleRepository = (*Roles)(nil)

func (r *Roles) selectRoles() sq.SelectBuilder {
	return r.s.sb.Select("id", "name", "created_at", "updated_at", "deleted_at").From("roles")
}

func (r *Roles) FindByID(ctx context.Context, id string) (*auth.Role, error) {
	roles, err := r.find(ctx, r.selectRoles().Where(sq.Eq{"id": id, "deleted_at": nil}).Limit(1))
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return nil, auth.ErrNotFound
	}
	return &roles[0], nil
}

func (r *Roles) FindByName(ctx context.Context, name auth.RoleName) (*auth.Role, error) {
	roles, err := r.find(ctx, r.selectRoles().Where(sq.Eq{"name": string(name), "deleted_at": nil}).Limit(1))
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return nil, auth.ErrNotFound
	}
	return &roles[0], nil
}

func (r *Roles) FindByNames(ctx context.Context, names []auth.RoleName) ([]auth.Role, error) {
	if len(names) == 0 {
		return nil, nil
	}
	raw := make([]string, 0, len(names))
	for _, n := range names {
		raw = append(raw, string(n))
	}
	return r.find(ctx, r.selectRoles().Where(sq.Eq{"name": raw, "deleted_at": nil}).OrderBy("name"))
}

func (r *Roles) List(ctx context.Context, in paginate.Input) (paginate.Result[auth.Role], error) {
	in = in.Normalize()
	where := sq.And{sq.Eq{"deleted_at": nil}}
	if in.Search != "" {
		where = append(where, sq.ILike{"name": searchPattern(in.Search)})
	}
	q, err := pageQuery(r.selectRoles().Where(where), in, roleSortable, "name ASC")
	if err != nil {
		return paginate.Result[auth.Role]{}, err
	}
	docs, err := r.find(ctx, q)
	if err != nil {
		return paginate.Result[auth.Role]{}, err
	}
	total, err := r.s.count(ctx, r.s.sb.Select("count(*)").From("roles").Where(where))
	if err != nil {
		return paginate.Result[auth.Role]{}, err
	}
	return paginate.Result[auth.Role]{Docs: docs, Page: in.Page, Limit: in.Limit, Total: total}, nil
}

func (r *Roles) Create(ctx context.Context, role *auth.Role) error {
	if r.s.db == nil {
		return errNoDB
	}
	_, err := r.s.exec(ctx, r.s.db, r.s.sb.Insert("roles").
		Columns("id", "name", "created_at", "updated_at").
		Values(role.ID, string(role.Name), role.CreatedAt, role.UpdatedAt))
	return err
}

// Update writes name and timestamps, including deleted_at for soft deletes.
func (r *Roles) Update(ctx context.Context, role *auth.Role) error {
	if r.s.db == nil {
		return errNoDB
	}
	return r.s.execOne(ctx, r.s.db, r.s.sb.Update("roles").
		Set("name", string(role.Name)).
		Set("updated_at", role.UpdatedAt).
		Set("deleted_at", nullTime(role.DeletedAt)).
		Where(sq.Eq{"id": role.ID}))
}

func (r *Roles) AttachPermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	if len(permissionIDs) == 0 {
		return nil
	}
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		ins := r.s.sb.Insert("permissions_roles").Columns("role_id", "permission_id")
		for _, id := range permissionIDs {
			ins = ins.Values(roleID, id)
		}
		_, err := r.s.exec(ctx, tx, ins.Suffix("on conflict do nothing"))
		return err
	})
}

func (r *Roles) DetachPermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	if len(permissionIDs) == 0 {
		return nil
	}
	if r.s.db == nil {
		return errNoDB
	}
	_, err := r.s.exec(ctx, r.s.db, r.s.sb.Delete("permissions_roles").
		Where(sq.Eq{"role_id": roleID, "permission_id": permissionIDs}))
	return err
}

func (r *Roles) find(ctx context.Context, q sq.SelectBuilder) ([]auth.Role, error) {
	if r.s.db == nil {
		return nil, errNoDB
	}
	rows, err := r.s.query(ctx, r.s.db, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []auth.Role
	for rows.Next() {
		var (
			role      auth.Role
			deletedAt sql.NullTime
		)
		if err := rows.Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt, &deletedAt); err != nil {
			return nil, err
		}
		role.DeletedAt = timePtr(deletedAt)
		role.Permissions = []auth.Permission{}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()
	return roles, r.attachPermissions(ctx, roles)
}

func (r *Roles) attachPermissions(ctx context.Context, roles []auth.Role) error {
	if len(roles) == 0 {
		return nil
	}
	index := make(map[string]int, len(roles))
	ids := make([]string, 0, len(roles))
	for i, role := range roles {
		index[role.ID] = i
		ids = append(ids, role.ID)
	}
	rows, err := r.s.query(ctx, r.s.db, r.s.sb.Select("pr.role_id", "p.id", "p.name", "p.created_at", "p.updated_at").
		From("permissions_roles pr").
		Join("permissions p on p.id = pr.permission_id and p.deleted_at is null").
		Where(sq.Eq{"pr.role_id": ids}).
		OrderBy("p.name"))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			roleID string
			p      auth.Permission
		)
		if err := rows.Scan(&roleID, &p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return err
		}
		i := index[roleID]
		roles[i].Permissions = append(roles[i].Permissions, p)
	}
	return rows.Err()
}
