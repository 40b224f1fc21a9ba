package store

import (
	"context"
	"errors"
	"net/url"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/relwatch/pkg/domain/model"
	"github.com/m-mizutani/relwatch/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore keeps one document per repository in a collection
type Firestore struct {
	client     *firestore.Client
	collection string
}

func NewFirestore(ctx context.Context, projectID, databaseID, collection string, opts ...option.ClientOption) (*Firestore, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project_id", projectID),
			goerr.V("database_id", databaseID))
	}

	return &Firestore{
		client:     client,
		collection: collection,
	}, nil
}

// Document IDs must not contain a slash.
func docID(name types.RepoName) string {
	return url.PathEscape(string(name))
}

func (s *Firestore) doc(name types.RepoName) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(docID(name))
}

func (s *Firestore) Exists(ctx context.Context, name types.RepoName) (bool, error) {
	snap, err := s.doc(name).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	if err != nil {
		return false, goerr.Wrap(err, "failed to get release document", goerr.V("repo", name))
	}
	return snap.Exists(), nil
}

func (s *Firestore) Get(ctx context.Context, name types.RepoName) (*model.Release, error) {
	snap, err := s.doc(name).Get(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get release document", goerr.V("repo", name))
	}

	var release model.Release
	if err := snap.DataTo(&release); err != nil {
		return nil, goerr.Wrap(err, "failed to decode release document", goerr.V("repo", name))
	}
	return &release, nil
}

func (s *Firestore) Put(ctx context.Context, name types.RepoName, release *model.Release) error {
	if _, err := s.doc(name).Set(ctx, release); err != nil {
		return goerr.Wrap(err, "failed to set release document", goerr.V("repo", name))
	}
	return nil
}

func (s *Firestore) List(ctx context.Context) ([]*model.Release, error) {
	iter := s.client.Collection(s.collection).OrderBy("name", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var releases []*model.Release
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate release documents")
		}

		var release model.Release
		if err := snap.DataTo(&release); err != nil {
			return nil, goerr.Wrap(err, "failed to decode release document", goerr.V("doc_id", snap.Ref.ID))
		}
		releases = append(releases, &release)
	}
	return releases, nil
}

func (s *Firestore) Close() error {
	return s.client.Close()
}
