package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/HamzaaAkmal/Get-Opinion/internal/domain"
)

const defaultRedditBaseURL = "https://www.reddit.com"

// RedditPublicClient hits Reddit's public JSON endpoints. No credential, so
// the limiter is stricter than the authenticated variant's.
type RedditPublicClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	baseURL    string
	timeout    time.Duration
	maxPosts   int
}

// RedditOptions tunes either Reddit client variant.
type RedditOptions struct {
	BaseURL  string
	Timeout  time.Duration
	MaxPosts int
}

func NewRedditPublicClient(userAgent string, opts RedditOptions) (*RedditPublicClient, error) {
	if userAgent == "" {
		return nil, fmt.Errorf("a user agent is required for public mode")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultRedditBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxPosts <= 0 {
		opts.MaxPosts = 10
	}

	return &RedditPublicClient{
		httpClient: &http.Client{Timeout: opts.Timeout},
		// Public JSON limit: 1 req / 2 seconds (stricter)
		limiter:   rate.NewLimiter(rate.Every(2*time.Second), 1),
		userAgent: userAgent,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		timeout:   opts.Timeout,
		maxPosts:  opts.MaxPosts,
	}, nil
}

func (pc *RedditPublicClient) Source() domain.SourceKind { return domain.SourceReddit }

type redditSearchResponse struct {
	Data struct {
		Children []struct {
			Data struct {
				ID        string `json:"id"`
				Title     string `json:"title"`
				Permalink string `json:"permalink"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// redditThing decodes one listing node of a comment tree. Replies nest as a
// full listing, so the type is recursive.
type redditThing struct {
	Kind string `json:"kind"`
	Data struct {
		ID         string          `json:"id"`
		Author     string          `json:"author"`
		Body       string          `json:"body"`
		Score      int             `json:"score"`
		CreatedUTC float64         `json:"created_utc"`
		Replies    json.RawMessage `json:"replies"`
		Children   []redditThing   `json:"children"`
	} `json:"data"`
}

// Fetch searches posts and collects their comment trees until limit comments
// are gathered.
func (pc *RedditPublicClient) Fetch(ctx context.Context, query string, limit int) ([]domain.Comment, error) {
	ctx, cancel := context.WithTimeout(ctx, pc.timeout)
	defer cancel()

	posts, err := pc.searchPosts(ctx, query)
	if err != nil {
		return nil, err
	}

	var comments []domain.Comment
	for _, p := range posts {
		if len(comments) >= limit {
			break
		}
		pcs, err := pc.postComments(ctx, p, limit-len(comments))
		if err != nil {
			if domain.KindOf(err) == domain.ErrTimeout {
				return nil, err
			}
			continue
		}
		comments = append(comments, pcs...)
	}
	return comments, nil
}

type redditPost struct {
	ID        string
	Title     string
	Permalink string
}

func (pc *RedditPublicClient) searchPosts(ctx context.Context, query string) ([]redditPost, error) {
	params := url.Values{
		"q":     {query},
		"limit": {fmt.Sprint(pc.maxPosts)},
		"sort":  {"relevance"},
	}
	reqURL := pc.baseURL + "/search.json?" + params.Encode()

	var parsed redditSearchResponse
	if err := pc.get(ctx, reqURL, &parsed); err != nil {
		return nil, err
	}

	posts := make([]redditPost, 0, len(parsed.Data.Children))
	for _, child := range parsed.Data.Children {
		d := child.Data
		if d.ID == "" || d.Permalink == "" {
			continue
		}
		posts = append(posts, redditPost{ID: d.ID, Title: d.Title, Permalink: d.Permalink})
	}
	return posts, nil
}

func (pc *RedditPublicClient) postComments(ctx context.Context, post redditPost, limit int) ([]domain.Comment, error) {
	reqURL := pc.baseURL + strings.TrimRight(post.Permalink, "/") + ".json?limit=" + fmt.Sprint(limit)

	// A comments page is a two-element array: [post listing, comment listing].
	var listings []redditThing
	if err := pc.get(ctx, reqURL, &listings); err != nil {
		return nil, err
	}
	if len(listings) < 2 {
		return nil, nil
	}

	var comments []domain.Comment
	pc.collect(listings[1].Data.Children, post, limit, &comments)
	return comments, nil
}

// collect walks a comment listing depth-first, flattening replies into plain
// records.
func (pc *RedditPublicClient) collect(things []redditThing, post redditPost, limit int, out *[]domain.Comment) {
	for _, t := range things {
		if len(*out) >= limit {
			return
		}
		if t.Kind != "t1" {
			continue
		}

		text := strings.TrimSpace(t.Data.Body)
		if keep(text) && t.Data.Author != "[deleted]" {
			*out = append(*out, domain.Comment{
				Source:      domain.SourceReddit,
				Fingerprint: domain.NewFingerprint(text, t.Data.Author, domain.SourceReddit),
				Text:        text,
				Author:      t.Data.Author,
				Likes:       t.Data.Score,
				PublishedAt: time.Unix(int64(t.Data.CreatedUTC), 0).UTC(),
				OriginID:    post.ID,
				OriginTitle: post.Title,
			})
		}

		// "replies" is either a nested listing or an empty string.
		if len(t.Data.Replies) > 0 && t.Data.Replies[0] == '{' {
			var nested redditThing
			if err := json.Unmarshal(t.Data.Replies, &nested); err == nil {
				pc.collect(nested.Data.Children, post, limit, out)
			}
		}
	}
}

func (pc *RedditPublicClient) get(ctx context.Context, reqURL string, out any) error {
	if err := pc.limiter.Wait(ctx); err != nil {
		return pc.wrapTransport(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return domain.NewFetchError(domain.ErrPermanent, domain.SourceReddit, err)
	}
	req.Header.Set("User-Agent", pc.userAgent)

	resp, err := pc.httpClient.Do(req)
	if err != nil {
		return pc.wrapTransport(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return domain.NewFetchError(domain.ErrTransient, domain.SourceReddit, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return domain.NewFetchError(domain.ErrPermanent, domain.SourceReddit, fmt.Errorf("status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.NewFetchError(domain.ErrTransient, domain.SourceReddit, err)
	}
	return nil
}

func (pc *RedditPublicClient) wrapTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewFetchError(domain.ErrTimeout, domain.SourceReddit, err)
	}
	return domain.NewFetchError(domain.ErrTransient, domain.SourceReddit, err)
}
