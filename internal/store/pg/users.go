package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/mikemajesty/monorepo/internal/auth"
	"github.com/mikemajesty/monorepo/internal/paginate"
)

var userSortable = map[string]string{
	"name":      "u.name",
	"email":     "u.email",
	"createdAt": "u.created_at",
	"updatedAt": "u.updated_at",
}

// Users implements auth.UserRepository.
type Users struct{ s *Store }

var _ auth.UserRepository = (*Users)(nil)

func (r *Users) selectUsers() sq.SelectBuilder {
	return r.s.sb.Select(
		"u.id", "u.email", "u.name", "u.created_at", "u.updated_at", "u.deleted_at", "p.id", "p.password",
	).From("users u").LeftJoin("users_password p on p.user_id = u.id")
}

func (r *Users) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.findOne(ctx, sq.Eq{"u.email": auth.NormalizeEmail(email), "u.deleted_at": nil})
}

func (r *Users) FindByID(ctx context.Context, id string) (*auth.User, error) {
	return r.findOne(ctx, sq.Eq{"u.id": id, "u.deleted_at": nil})
}

func (r *Users) Search(ctx context.Context, filter auth.UserFilter) (*auth.User, error) {
	where := sq.Eq{"u.deleted_at": nil}
	if filter.ID != "" {
		where["u.id"] = filter.ID
	}
	if filter.Email != "" {
		where["u.email"] = auth.NormalizeEmail(filter.Email)
	}
	if len(where) == 1 {
		return nil, auth.ErrNotFound
	}
	return r.findOne(ctx, where)
}

func (r *Users) findOne(ctx context.Context, where sq.Eq) (*auth.User, error) {
	if r.s.db == nil {
		return nil, errNoDB
	}
	rows, err := r.s.query(ctx, r.s.db, r.selectUsers().Where(where).Limit(1))
	if err != nil {
		return nil, err
	}
	users, err := scanUsers(rows)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, auth.ErrNotFound
	}
	if err := r.attachRoles(ctx, users); err != nil {
		return nil, err
	}
	return &users[0], nil
}

func (r *Users) List(ctx context.Context, in paginate.Input) (paginate.Result[auth.User], error) {
	in = in.Normalize()
	if r.s.db == nil {
		return paginate.Result[auth.User]{}, errNoDB
	}
	where := sq.And{sq.Eq{"u.deleted_at": nil}}
	if in.Search != "" {
		p := searchPattern(in.Search)
		where = append(where, sq.Or{sq.ILike{"u.name": p}, sq.ILike{"u.email": p}})
	}
	q, err := pageQuery(r.selectUsers().Where(where), in, userSortable, "u.created_at DESC")
	if err != nil {
		return paginate.Result[auth.User]{}, err
	}
	rows, err := r.s.query(ctx, r.s.db, q)
	if err != nil {
		return paginate.Result[auth.User]{}, err
	}
	docs, err := scanUsers(rows)
	if err != nil {
		return paginate.Result[auth.User]{}, err
	}
	total, err := r.s.count(ctx, r.s.sb.Select("count(*)").From("users u").Where(where))
	if err != nil {
		return paginate.Result[auth.User]{}, err
	}
	if err := r.attachRoles(ctx, docs); err != nil {
		return paginate.Result[auth.User]{}, err
	}
	for i := range docs {
		docs[i].Password = nil
	}
	return paginate.Result[auth.User]{Docs: docs, Page: in.Page, Limit: in.Limit, Total: total}, nil
}

func (r *Users) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if r.s.db == nil {
		return false, errNoDB
	}
	var exists bool
	err := r.s.db.QueryRowContext(ctx,
		`select exists(select 1 from users where email = $1 and deleted_at is null)`,
		auth.NormalizeEmail(email),
	).Scan(&exists)
	if err != nil {
		return false, translate(err)
	}
	return exists, nil
}

func (r *Users) Create(ctx context.Context, u *auth.User) error {
	if u.Password == nil {
		return errors.New("user password is required")
	}
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := r.s.exec(ctx, tx, r.s.sb.Insert("users").
			Columns("id", "email", "name", "created_at", "updated_at").
			Values(u.ID, u.Email, u.Name, u.CreatedAt, u.UpdatedAt)); err != nil {
			return err
		}
		if _, err := r.s.exec(ctx, tx, r.s.sb.Insert("users_password").
			Columns("id", "user_id", "password", "created_at", "updated_at").
			Values(u.Password.ID, u.ID, u.Password.Password, u.CreatedAt, u.UpdatedAt)); err != nil {
			return err
		}
		return r.replaceRoles(ctx, tx, u.ID, u.Roles, false)
	})
}

func (r *Users) Update(ctx context.Context, u *auth.User) error {
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		if err := r.s.execOne(ctx, tx, r.s.sb.Update("users").
			Set("email", u.Email).
			Set("name", u.Name).
			Set("updated_at", u.UpdatedAt).
			Where(sq.Eq{"id": u.ID, "deleted_at": nil})); err != nil {
			return err
		}
		return r.replaceRoles(ctx, tx, u.ID, u.Roles, true)
	})
}

func (r *Users) replaceRoles(ctx context.Context, tx *sql.Tx, userID string, roles []auth.Role, clear bool) error {
	if clear {
		if _, err := r.s.exec(ctx, tx, r.s.sb.Delete("users_roles").Where(sq.Eq{"user_id": userID})); err != nil {
			return err
		}
	}
	if len(roles) == 0 {
		return nil
	}
	ins := r.s.sb.Insert("users_roles").Columns("user_id", "role_id")
	for _, role := range roles {
		ins = ins.Values(userID, role.ID)
	}
	_, err := r.s.exec(ctx, tx, ins.Suffix("on conflict do nothing"))
	return err
}

func (r *Users) SoftDelete(ctx context.Context, id string, at time.Time) error {
	if r.s.db == nil {
		return errNoDB
	}
	return r.s.execOne(ctx, r.s.db, r.s.sb.Update("users").
		Set("deleted_at", at).
		Set("updated_at", at).
		Where(sq.Eq{"id": id, "deleted_at": nil}))
}

func (r *Users) UpdatePassword(ctx context.Context, userID, digest string) error {
	if r.s.db == nil {
		return errNoDB
	}
	return r.s.execOne(ctx, r.s.db, r.s.sb.Update("users_password").
		Set("password", digest).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"user_id": userID}))
}

// attachRoles loads active roles with their active permissions for users.
func (r *Users) attachRoles(ctx context.Context, users []auth.User) error {
	if len(users) == 0 {
		return nil
	}
	index := make(map[string]int, len(users))
	userIDs := make([]string, 0, len(users))
	for i, u := range users {
		index[u.ID] = i
		userIDs = append(userIDs, u.ID)
	}
	rows, err := r.s.query(ctx, r.s.db, r.s.sb.Select(
		"ur.user_id", "r.id", "r.name", "r.created_at", "r.updated_at",
		"p.id", "p.name", "p.created_at", "p.updated_at",
	).
		From("users_roles ur").
		Join("roles r on r.id = ur.role_id and r.deleted_at is null").
		LeftJoin("permissions_roles pr on pr.role_id = r.id").
		LeftJoin("permissions p on p.id = pr.permission_id and p.deleted_at is null").
		Where(sq.Eq{"ur.user_id": userIDs}).
		OrderBy("ur.user_id", "r.name", "p.name"))
	if err != nil {
		return err
	}
	defer rows.Close()

	type key struct{ user, role string }
	roleIdx := map[key]int{}
	for rows.Next() {
		var (
			userID string
			role   auth.Role
			perm   nullablePermission
		)
		if err := rows.Scan(&userID, &role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt,
			&perm.ID, &perm.Name, &perm.CreatedAt, &perm.UpdatedAt); err != nil {
			return err
		}
		u := &users[index[userID]]
		k := key{userID, role.ID}
		i, ok := roleIdx[k]
		if !ok {
			role.Permissions = []auth.Permission{}
			u.Roles = append(u.Roles, role)
			i = len(u.Roles) - 1
			roleIdx[k] = i
		}
		if p, ok := perm.value(); ok {
			u.Roles[i].Permissions = append(u.Roles[i].Permissions, p)
		}
	}
	return rows.Err()
}

func scanUsers(rows *sql.Rows) ([]auth.User, error) {
	defer rows.Close()
	var out []auth.User
	for rows.Next() {
		var (
			u         auth.User
			deletedAt sql.NullTime
			pwdID     sql.NullString
			pwd       sql.NullString
		)
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt, &u.UpdatedAt, &deletedAt, &pwdID, &pwd); err != nil {
			return nil, err
		}
		u.DeletedAt = timePtr(deletedAt)
		if pwdID.Valid {
			u.Password = &auth.PasswordCredential{ID: pwdID.String, Password: pwd.String}
		}
		u.Roles = []auth.Role{}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type nullablePermission struct {
	ID        sql.NullString
	Name      sql.NullString
	CreatedAt sql.NullTime
	UpdatedAt sql.NullTime
}

func (p nullablePermission) value() (auth.Permission, bool) {
	if !p.ID.Valid {
		return auth.Permission{}, false
	}
	return auth.Permission{ID: p.ID.String, Name: p.Name.String, CreatedAt: p.CreatedAt.Time, UpdatedAt: p.UpdatedAt.Time}, true
}
