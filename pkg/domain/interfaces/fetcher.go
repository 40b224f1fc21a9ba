package interfaces

import (
	"context"

	"github.com/m-mizutani/relwatch/pkg/domain/model"
)

// ReleaseFetcher retrieves the latest release metadata of a repository
type ReleaseFetcher interface {
	// FetchLatest performs a single fetch. Transport and parse failures
	// are both returned as errors.
	FetchLatest(ctx context.Context, repo model.Repo) (*model.ReleaseDetail, error)
}
