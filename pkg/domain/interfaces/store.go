package interfaces

import (
	"context"

	"github.com/m-mizutani/relwatch/pkg/domain/model"
	"github.com/m-mizutani/relwatch/pkg/domain/types"
)

// ReleaseStore keeps the latest known release of each repository.
// Each call is atomic on its own; no cross-key transaction is offered.
type ReleaseStore interface {
	// Exists reports whether a release has been stored for the name.
	// An error is distinct from absence.
	Exists(ctx context.Context, name types.RepoName) (bool, error)

	// Get returns the stored release. Getting an absent name is an error.
	Get(ctx context.Context, name types.RepoName) (*model.Release, error)

	// Put overwrites the stored release for the name.
	Put(ctx context.Context, name types.RepoName, release *model.Release) error

	// List returns every stored release sorted by name.
	List(ctx context.Context) ([]*model.Release, error)

	Close() error
}
