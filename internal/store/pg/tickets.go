package pg

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/mikemajesty/monorepo/internal/auth"
)

// Tickets implements auth.ResetTicketRepository.
type Tickets struct{ s *Store }

var _ auth.ResetTicketRepository = (*Tickets)(nil)

// FindByUserID returns the newest outstanding ticket of the user.
func (r *Tickets) FindByUserID(ctx context.Context, userID string) (*auth.ResetPasswordTicket, error) {
	if r.s.db == nil {
		return nil, errNoDB
	}
	query, args, err := r.s.sb.Select("id", "token", "user_id", "created_at").
		From("reset_password").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}
	var t auth.ResetPasswordTicket
	if err := r.s.db.QueryRowContext(ctx, query, args...).Scan(&t.ID, &t.Token, &t.UserID, &t.CreatedAt); err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *Tickets) Create(ctx context.Context, t *auth.ResetPasswordTicket) error {
	if r.s.db == nil {
		return errNoDB
	}
	_, err := r.s.exec(ctx, r.s.db, r.s.sb.Insert("reset_password").
		Columns("id", "token", "user_id", "created_at").
		Values(t.ID, t.Token, t.UserID, t.CreatedAt))
	return err
}

func (r *Tickets) DeleteByUserID(ctx context.Context, userID string) error {
	if r.s.db == nil {
		return errNoDB
	}
	_, err := r.s.exec(ctx, r.s.db, r.s.sb.Delete("reset_password").Where(sq.Eq{"user_id": userID}))
	return err
}
