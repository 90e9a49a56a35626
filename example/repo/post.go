package repo

import (
	"context"

	"github.com/fieldsync/ormgen/example/model"
	"github.com/fieldsync/ormgen/example/query"
	"github.com/fieldsync/ormgen/orm"
	"github.com/fieldsync/ormgen/scope"
)

// PostRepository lists posts without their bodies and loads bodies on demand.
type PostRepository struct {
	db orm.Querier
}

func NewPostRepository(db orm.Querier) *PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) Create(ctx context.Context, p *model.Post) error {
	return query.Posts(r.db).Create(ctx, p)
}

// ListByUser returns the user's posts with Body deferred.
func (r *PostRepository) ListByUser(ctx context.Context, userID int) ([]model.Post, error) {
	return query.Posts(r.db).
		Scopes(scope.Where("user_id = ?", userID), scope.Defer("body")).
		OrderBy("id").
		All(ctx)
}

// LoadBody fetches Body if it was deferred; it is a no-op otherwise.
func (r *PostRepository) LoadBody(ctx context.Context, p *model.Post) error {
	return query.Posts(r.db).LoadDeferred(ctx, p, "Body")
}

// Reassign moves p to another author and reloads the author in place.
func (r *PostRepository) Reassign(ctx context.Context, p *model.Post, userID int) error {
	p.UserID = userID
	if err := query.Posts(r.db).Update(ctx, p); err != nil {
		return err
	}
	return query.Posts(r.db).Refresh(ctx, p, "User")
}
