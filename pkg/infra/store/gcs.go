package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sort"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/relwatch/pkg/domain/model"
	"github.com/m-mizutani/relwatch/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCS keeps one JSON object per repository under a prefix of a bucket
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

func NewGCS(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*GCS, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client", goerr.V("bucket", bucket))
	}

	return &GCS{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}, nil
}

func (s *GCS) object(name types.RepoName) *storage.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(s.prefix + url.PathEscape(string(name)) + ".json")
}

func (s *GCS) Exists(ctx context.Context, name types.RepoName) (bool, error) {
	_, err := s.object(name).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, goerr.Wrap(err, "failed to get release object attrs", goerr.V("repo", name))
	}
	return true, nil
}

func (s *GCS) Get(ctx context.Context, name types.RepoName) (*model.Release, error) {
	return s.read(ctx, s.object(name))
}

func (s *GCS) read(ctx context.Context, obj *storage.ObjectHandle) (*model.Release, error) {
	r, err := obj.NewReader(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open release object", goerr.V("object", obj.ObjectName()))
	}
	defer r.Close()

	var release model.Release
	if err := json.NewDecoder(r).Decode(&release); err != nil {
		return nil, goerr.Wrap(err, "failed to decode release object", goerr.V("object", obj.ObjectName()))
	}
	return &release, nil
}

func (s *GCS) Put(ctx context.Context, name types.RepoName, release *model.Release) error {
	w := s.object(name).NewWriter(ctx)
	w.ContentType = "application/json"

	if err := json.NewEncoder(w).Encode(release); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write release object", goerr.V("repo", name))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to commit release object", goerr.V("repo", name))
	}
	return nil
}

func (s *GCS) List(ctx context.Context) ([]*model.Release, error) {
	bucket := s.client.Bucket(s.bucket)
	it := bucket.Objects(ctx, &storage.Query{Prefix: s.prefix})

	var releases []*model.Release
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list release objects", goerr.V("bucket", s.bucket))
		}

		release, err := s.read(ctx, bucket.Object(attrs.Name))
		if err != nil {
			return nil, err
		}
		releases = append(releases, release)
	}

	sort.Slice(releases, func(i, j int) bool {
		return releases[i].Name < releases[j].Name
	})
	return releases, nil
}

func (s *GCS) Close() error {
	return s.client.Close()
}
