package repo

import (
	"context"

	"github.com/fieldsync/ormgen/example/model"
	"github.com/fieldsync/ormgen/example/query"
	"github.com/fieldsync/ormgen/orm"
	"github.com/fieldsync/ormgen/scope"
)

// UserRepository wraps generated query functions with a repository pattern.
type UserRepository struct {
	db orm.Querier
}

func NewUserRepository(db orm.Querier) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	return query.Users(r.db).Create(ctx, u)
}

func (r *UserRepository) FindByID(ctx context.Context, id int) (model.User, error) {
	return query.Users(r.db).Find(ctx, id)
}

// FindWithPosts returns the user with Posts preloaded in a second query.
func (r *UserRepository) FindWithPosts(ctx context.Context, id int) (model.User, error) {
	return query.Users(r.db).Preload("Posts").Find(ctx, id)
}

func (r *UserRepository) FindAll(ctx context.Context, scopes ...scope.Scope) ([]model.User, error) {
	return query.Users(r.db).Scopes(scopes...).OrderBy("id").All(ctx)
}

func (r *UserRepository) Update(ctx context.Context, u *model.User) error {
	return query.Users(r.db).Update(ctx, u)
}

// Reload overwrites u with the stored row, or only the named fields.
func (r *UserRepository) Reload(ctx context.Context, u *model.User, fields ...string) error {
	return query.Users(r.db).Refresh(ctx, u, fields...)
}

func (r *UserRepository) Delete(ctx context.Context, id int) error {
	return query.Users(r.db).Where("id = ?", id).Delete(ctx)
}
