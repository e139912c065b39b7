package pg

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"github.com/mikemajesty/monorepo/internal/auth"
	"github.com/mikemajesty/monorepo/internal/cat"
	"github.com/mikemajesty/monorepo/internal/paginate"
)

var catSortable = map[string]string{
	"name":      "name",
	"breed":     "breed",
	"age":       "age",
	"createdAt": "created_at",
}

// Cats implements cat.Repository.
type Cats struct{ s *Store }

var _ cat.Repository = (*Cats)(nil)

func (r *Cats) selectCats() sq.SelectBuilder {
	return r.s.sb.Select("id", "name", "breed", "age", "created_at", "updated_at", "deleted_at").From("cats")
}

func (r *Cats) Create(ctx context.Context, c *cat.Cat) error {
	if r.s.db == nil {
		return errNoDB
	}
	_, err := r.s.exec(ctx, r.s.db, r.s.sb.Insert("cats").
		Columns("id", "name", "breed", "age", "created_at", "updated_at").
		Values(c.ID, c.Name, c.Breed, c.Age, c.CreatedAt, c.UpdatedAt))
	return err
}

func (r *Cats) Update(ctx context.Context, c *cat.Cat) error {
	if r.s.db == nil {
		return errNoDB
	}
	return r.s.execOne(ctx, r.s.db, r.s.sb.Update("cats").
		Set("name", c.Name).
		Set("breed", c.Breed).
		Set("age", c.Age).
		Set("updated_at", c.UpdatedAt).
		Set("deleted_at", nullTime(c.DeletedAt)).
		Where(sq.Eq{"id": c.ID}))
}

func (r *Cats) FindByID(ctx context.Context, id string) (*cat.Cat, error) {
	cats, err := r.find(ctx, r.selectCats().Where(sq.Eq{"id": id, "deleted_at": nil}).Limit(1))
	if err != nil {
		return nil, err
	}
	if len(cats) == 0 {
		return nil, auth.ErrNotFound
	}
	return &cats[0], nil
}

func (r *Cats) List(ctx context.Context, in paginate.Input) (paginate.Result[cat.Cat], error) {
	in = in.Normalize()
	where := sq.And{sq.Eq{"deleted_at": nil}}
	if in.Search != "" {
		where = append(where, sq.ILike{"name": searchPattern(in.Search)})
	}
	q, err := pageQuery(r.selectCats().Where(where), in, catSortable, "created_at DESC")
	if err != nil {
		return paginate.Result[cat.Cat]{}, err
	}
	docs, err := r.find(ctx, q)
	if err != nil {
		return paginate.Result[cat.Cat]{}, err
	}
	total, err := r.s.count(ctx, r.s.sb.Select("count(*)").From("cats").Where(where))
	if err != nil {
		return paginate.Result[cat.Cat]{}, err
	}
	return paginate.Result[cat.Cat]{Docs: docs, Page: in.Page, Limit: in.Limit, Total: total}, nil
}

func (r *Cats) find(ctx context.Context, q sq.SelectBuilder) ([]cat.Cat, error) {
	if r.s.db == nil {
		return nil, errNoDB
	}
	rows, err := r.s.query(ctx, r.s.db, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []cat.Cat{}
	for rows.Next() {
		var (
			c         cat.Cat
			deletedAt sql.NullTime
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Breed, &c.Age, &c.CreatedAt, &c.UpdatedAt, &deletedAt); err != nil {
			return nil, err
		}
		c.DeletedAt = timePtr(deletedAt)
		out = append(out, c)
	}
	return out, rows.Err()
}
