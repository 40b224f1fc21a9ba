package model

import "github.com/m-mizutani/relwatch/pkg/domain/types"

// Repo is one watched repository. URL points to its latest-release endpoint.
type Repo struct {
	Name types.RepoName `json:"name" toml:"name" validate:"required"`
	URL  string         `json:"url" toml:"url" validate:"required,http_url"`
}

// ReleaseDetail holds the fields of a release that make it distinct.
type ReleaseDetail struct {
	ReleaseName string `json:"name" firestore:"name"`
	TagName     string `json:"tag_name" firestore:"tag_name" validate:"required"`
	Prerelease  bool   `json:"prerelease" firestore:"prerelease"`
	PublishedAt string `json:"published_at" firestore:"published_at"`
	HTMLURL     string `json:"html_url" firestore:"html_url"`
}

// Release is the unit persisted in the store and sent to alert providers.
// Two releases are the same iff every field, including Detail, is equal.
type Release struct {
	URL    string         `json:"url" firestore:"url"`
	Name   types.RepoName `json:"name" firestore:"name"`
	Detail ReleaseDetail  `json:"detail" firestore:"detail"`
}

func NewRelease(repo Repo, detail ReleaseDetail) *Release {
	return &Release{
		URL:    repo.URL,
		Name:   repo.Name,
		Detail: detail,
	}
}

// Equal reports whether both releases are structurally equal.
func (x *Release) Equal(other *Release) bool {
	if x == nil || other == nil {
		return x == other
	}
	return *x == *other
}
