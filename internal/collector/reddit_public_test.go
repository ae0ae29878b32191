package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HamzaaAkmal/Get-Opinion/internal/domain"
)

const redditSearchBody = `{"data":{"children":[
	{"data":{"id":"p1","title":"Thoughts on the topic?","permalink":"/r/test/comments/p1/thoughts/"}}
]}}`

// Two-element comments page: post listing first, then the comment tree with
// one nested reply and one deleted author.
const redditCommentsBody = `[
	{"kind":"Listing","data":{"children":[]}},
	{"kind":"Listing","data":{"children":[
		{"kind":"t1","data":{"id":"c1","author":"alice","body":"Absolutely worth it","score":12,"created_utc":1714557600,
			"replies":{"kind":"Listing","data":{"children":[
				{"kind":"t1","data":{"id":"c2","author":"bob","body":"Hard disagree here","score":4,"created_utc":1714561200,"replies":""}}
			]}}}},
		{"kind":"t1","data":{"id":"c3","author":"[deleted]","body":"[removed]","score":0,"created_utc":1714564800,"replies":""}}
	]}}
]`

func newPublicClient(t *testing.T, baseURL string) *RedditPublicClient {
	t.Helper()
	pc, err := NewRedditPublicClient("opinion-test/1.0", RedditOptions{BaseURL: baseURL, Timeout: 10 * time.Second})
	require.NoError(t, err)
	return pc
}

func TestNewRedditPublicClientRequiresUserAgent(t *testing.T) {
	t.Parallel()

	_, err := NewRedditPublicClient("", RedditOptions{})
	assert.ErrorContains(t, err, "user agent")
}

func TestRedditPublicFetchFlattensCommentTree(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "opinion-test/1.0", r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/search.json":
			assert.Equal(t, "some topic", r.URL.Query().Get("q"))
			fmt.Fprint(w, redditSearchBody)
		case "/r/test/comments/p1/thoughts.json":
			fmt.Fprint(w, redditCommentsBody)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	pc := newPublicClient(t, srv.URL)

	comments, err := pc.Fetch(context.Background(), "some topic", 10)
	require.NoError(t, err)
	require.Len(t, comments, 2, "deleted comment must be skipped, reply must be flattened")

	assert.Equal(t, "Absolutely worth it", comments[0].Text)
	assert.Equal(t, "alice", comments[0].Author)
	assert.Equal(t, domain.SourceReddit, comments[0].Source)
	assert.Equal(t, "p1", comments[0].OriginID)
	assert.Equal(t, "Thoughts on the topic?", comments[0].OriginTitle)
	assert.Equal(t, time.Unix(1714557600, 0).UTC(), comments[0].PublishedAt)

	assert.Equal(t, "Hard disagree here", comments[1].Text)
	assert.Equal(t, "bob", comments[1].Author)
}

func TestRedditPublicFetchHonorsLimit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/search.json" {
			fmt.Fprint(w, redditSearchBody)
			return
		}
		fmt.Fprint(w, redditCommentsBody)
	}))
	defer srv.Close()

	pc := newPublicClient(t, srv.URL)

	comments, err := pc.Fetch(context.Background(), "q", 1)
	require.NoError(t, err)
	assert.Len(t, comments, 1)
}

func TestRedditPublicSearchErrorKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		want   domain.ErrorKind
	}{
		{"server error is transient", http.StatusServiceUnavailable, domain.ErrTransient},
		{"rate limiting is transient", http.StatusTooManyRequests, domain.ErrTransient},
		{"not found is permanent", http.StatusNotFound, domain.ErrPermanent},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			pc := newPublicClient(t, srv.URL)

			_, err := pc.Fetch(context.Background(), "q", 10)
			require.Error(t, err)
			assert.Equal(t, tc.want, domain.KindOf(err))
		})
	}
}

func TestRedditPublicFetchSkipsFailingPost(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/search.json" {
			fmt.Fprint(w, redditSearchBody)
			return
		}
		// The single post's comments page is gone; the fetch still
		// succeeds with whatever it gathered.
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	pc := newPublicClient(t, srv.URL)

	comments, err := pc.Fetch(context.Background(), "q", 10)
	require.NoError(t, err)
	assert.Empty(t, comments)
}
