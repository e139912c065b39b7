// Package cat is the sample CRUD resource guarded by the cat:* permissions.
package cat

import (
	"context"
	"time"

	"github.com/mikemajesty/monorepo/internal/paginate"
)

type Cat struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Breed     string     `json:"breed"`
	Age       int        `json:"age"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt"`
}

// Repository persists cats. FindByID ignores soft-deleted rows and returns
// auth.ErrNotFound on a miss.
type Repository interface {
	Create(ctx context.Context, c *Cat) error
	Update(ctx context.Context, c *Cat) error
	FindByID(ctx context.Context, id string) (*Cat, error)
	List(ctx context.Context, in paginate.Input) (paginate.Result[Cat], error)
}
