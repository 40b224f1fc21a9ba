package github_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/relwatch/pkg/domain/model"
	githubinfra "github.com/m-mizutani/relwatch/pkg/infra/github"
)

const latestRelease = `{
	"url": "https://api.github.com/repos/o/foo/releases/1",
	"html_url": "https://github.com/o/foo/releases/tag/v1.1.0",
	"id": 1,
	"tag_name": "v1.1.0",
	"name": "Second",
	"draft": false,
	"prerelease": true,
	"published_at": "2024-03-01T10:00:00Z"
}`

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestClient_FetchLatest_Success(t *testing.T) {
	var gotAuth, gotUA, gotPath string
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(latestRelease))
	})

	client := githubinfra.NewClient(
		githubinfra.WithToken("test-token"),
		githubinfra.WithUserAgent("relwatch-test"),
	)

	detail, err := client.FetchLatest(context.Background(), model.Repo{
		Name: "foo",
		URL:  server.URL + "/repos/o/foo/releases/latest",
	})
	gt.NoError(t, err)

	gt.Value(t, *detail).Equal(model.ReleaseDetail{
		ReleaseName: "Second",
		TagName:     "v1.1.0",
		Prerelease:  true,
		PublishedAt: "2024-03-01T10:00:00Z",
		HTMLURL:     "https://github.com/o/foo/releases/tag/v1.1.0",
	})
	gt.Value(t, gotAuth).Equal("Bearer test-token")
	gt.Value(t, gotUA).Equal("relwatch-test")
	gt.Value(t, gotPath).Equal("/repos/o/foo/releases/latest")
}

func TestClient_FetchLatest_NoTokenNoAuthHeader(t *testing.T) {
	var gotAuth string
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(latestRelease))
	})

	client := githubinfra.NewClient()
	_, err := client.FetchLatest(context.Background(), model.Repo{Name: "foo", URL: server.URL})
	gt.NoError(t, err)
	gt.Value(t, gotAuth).Equal("")
}

func TestClient_FetchLatest_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"message":"Not Found"}`))
			},
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"tag_name":`))
			},
		},
		{
			name: "schema mismatch",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"tag_name": 100, "name": "x"}`))
			},
		},
		{
			name: "missing tag name",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"name": "x", "html_url": "https://example.com"}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newServer(t, tt.handler)
			client := githubinfra.NewClient()

			detail, err := client.FetchLatest(context.Background(), model.Repo{Name: "foo", URL: server.URL})
			gt.Error(t, err)
			gt.Value(t, detail).Nil()
		})
	}
}

func TestClient_FetchLatest_Timeout(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
		_, _ = w.Write([]byte(latestRelease))
	})

	client := githubinfra.NewClient(githubinfra.WithTimeout(50 * time.Millisecond))
	_, err := client.FetchLatest(context.Background(), model.Repo{Name: "foo", URL: server.URL})
	gt.Error(t, err)
}

func TestClient_FetchLatest_ContextCancelled(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(latestRelease))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := githubinfra.NewClient()
	_, err := client.FetchLatest(ctx, model.Repo{Name: "foo", URL: server.URL})
	gt.Error(t, err)
}
