package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/loganintech/go-reddit/v2/reddit"
	"golang.org/x/time/rate"

	"github.com/HamzaaAkmal/Get-Opinion/internal/domain"
)

// RedditAPIClient is the authenticated Reddit variant. Same unmetered
// contract as the public client, but the OAuth quota allows a faster limiter.
type RedditAPIClient struct {
	client   *reddit.Client
	limiter  *rate.Limiter
	timeout  time.Duration
	maxPosts int
}

func NewRedditAPIClient(id, secret, user, pass, userAgent string, opts RedditOptions) (*RedditAPIClient, error) {
	creds := reddit.Credentials{ID: id, Secret: secret, Username: user, Password: pass}

	client, err := reddit.NewClient(creds, reddit.WithUserAgent(userAgent))
	if err != nil {
		return nil, err
	}

	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxPosts <= 0 {
		opts.MaxPosts = 10
	}

	return &RedditAPIClient{
		client: client,
		// API rate limit: ~60 reqs/min (safe buffer)
		limiter:  rate.NewLimiter(rate.Every(1*time.Second), 1),
		timeout:  opts.Timeout,
		maxPosts: opts.MaxPosts,
	}, nil
}

func (ac *RedditAPIClient) Source() domain.SourceKind { return domain.SourceReddit }

func (ac *RedditAPIClient) Fetch(ctx context.Context, query string, limit int) ([]domain.Comment, error) {
	ctx, cancel := context.WithTimeout(ctx, ac.timeout)
	defer cancel()

	if err := ac.limiter.Wait(ctx); err != nil {
		return nil, ac.wrap(err)
	}

	posts, _, err := ac.client.Subreddit.SearchPosts(ctx, query, "", &reddit.ListPostSearchOptions{
		ListPostOptions: reddit.ListPostOptions{ListOptions: reddit.ListOptions{Limit: ac.maxPosts}},
		Sort:            "relevance",
	})
	if err != nil {
		return nil, ac.wrap(fmt.Errorf("authenticated api error: %w", err))
	}

	var comments []domain.Comment
	for _, p := range posts {
		if len(comments) >= limit {
			break
		}
		if err := ac.limiter.Wait(ctx); err != nil {
			return nil, ac.wrap(err)
		}

		pac, _, err := ac.client.Post.Get(ctx, p.ID)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, ac.wrap(err)
			}
			continue
		}
		ac.collect(pac.Comments, p, limit, &comments)
	}
	return comments, nil
}

func (ac *RedditAPIClient) collect(nodes []*reddit.Comment, post *reddit.Post, limit int, out *[]domain.Comment) {
	for _, c := range nodes {
		if len(*out) >= limit {
			return
		}

		text := strings.TrimSpace(c.Body)
		if keep(text) && c.Author != "[deleted]" {
			var published time.Time
			if c.Created != nil {
				published = c.Created.Time.UTC()
			}
			*out = append(*out, domain.Comment{
				Source:      domain.SourceReddit,
				Fingerprint: domain.NewFingerprint(text, c.Author, domain.SourceReddit),
				Text:        text,
				Author:      c.Author,
				Likes:       c.Score,
				PublishedAt: published,
				OriginID:    post.ID,
				OriginTitle: post.Title,
			})
		}

		if c.Replies.Comments != nil {
			ac.collect(c.Replies.Comments, post, limit, out)
		}
	}
}

func (ac *RedditAPIClient) wrap(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewFetchError(domain.ErrTimeout, domain.SourceReddit, err)
	}
	var apiErr *reddit.JSONErrorResponse
	if errors.As(err, &apiErr) {
		return domain.NewFetchError(domain.ErrPermanent, domain.SourceReddit, err)
	}
	return domain.NewFetchError(domain.ErrTransient, domain.SourceReddit, err)
}
