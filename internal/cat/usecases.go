package cat

import (
	"context"
	"fmt"
	"time"

	"github.com/mikemajesty/monorepo/internal/auth"
	"github.com/mikemajesty/monorepo/internal/ids"
	"github.com/mikemajesty/monorepo/internal/paginate"
)

type CreateInput struct {
	Name  string `json:"name" validate:"required,max=200"`
	Breed string `json:"breed" validate:"required,max=200"`
	Age   int    `json:"age" validate:"gte=0,lte=100"`
}

type UpdateInput struct {
	ID    string  `json:"id" validate:"required,uuid"`
	Name  *string `json:"name" validate:"omitempty,min=1,max=200"`
	Breed *string `json:"breed" validate:"omitempty,min=1,max=200"`
	Age   *int    `json:"age" validate:"omitempty,gte=0,lte=100"`
}

type IDInput struct {
	ID string `json:"id" validate:"required,uuid"`
}

// Service bundles the cat use cases over one repository.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) Create(ctx context.Context, in CreateInput) (auth.Created, error) {
	if err := auth.Validate(in); err != nil {
		return auth.Created{}, err
	}
	now := s.now().UTC()
	c := &Cat{ID: ids.NewUUID(), Name: in.Name, Breed: in.Breed, Age: in.Age, CreatedAt: now, UpdatedAt: now}
	if err := s.repo.Create(ctx, c); err != nil {
		return auth.Created{}, fmt.Errorf("create cat: %w", err)
	}
	return auth.Created{Created: true, ID: c.ID}, nil
}

func (s *Service) Update(ctx context.Context, in UpdateInput) (*Cat, error) {
	if err := auth.Validate(in); err != nil {
		return nil, err
	}
	c, err := s.find(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		c.Name = *in.Name
	}
	if in.Breed != nil {
		c.Breed = *in.Breed
	}
	if in.Age != nil {
		c.Age = *in.Age
	}
	c.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, auth.NotFoundAs(err, auth.CodeCatNotFound)
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, in IDInput) (*Cat, error) {
	if err := auth.Validate(in); err != nil {
		return nil, err
	}
	return s.find(ctx, in.ID)
}

func (s *Service) List(ctx context.Context, in paginate.Input) (paginate.Result[Cat], error) {
	if err := auth.Validate(in); err != nil {
		return paginate.Result[Cat]{}, err
	}
	return s.repo.List(ctx, in.Normalize())
}

// Delete soft-deletes the cat and returns it with deletedAt set.
func (s *Service) Delete(ctx context.Context, in IDInput) (*Cat, error) {
	if err := auth.Validate(in); err != nil {
		return nil, err
	}
	c, err := s.find(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	c.DeletedAt = &now
	c.UpdatedAt = now
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, auth.NotFoundAs(err, auth.CodeCatNotFound)
	}
	return c, nil
}

func (s *Service) find(ctx context.Context, id string) (*Cat, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, auth.NotFoundAs(err, auth.CodeCatNotFound)
	}
	return c, nil
}
