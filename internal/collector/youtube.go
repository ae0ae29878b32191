package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/HamzaaAkmal/Get-Opinion/internal/domain"
	"github.com/HamzaaAkmal/Get-Opinion/internal/keypool"
)

const defaultYouTubeBaseURL = "https://www.googleapis.com/youtube/v3"

// YouTubeClient is the quota-metered source. Every call borrows a key from
// the pool; quota-exhaustion responses send the key into cooldown and the
// call retries once with a fresh key.
type YouTubeClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	keys       *keypool.Pool
	baseURL    string
	timeout    time.Duration
	maxVideos  int
	keyRetries int
}

// YouTubeOptions tunes a YouTubeClient beyond its defaults.
type YouTubeOptions struct {
	BaseURL   string
	Timeout   time.Duration
	MaxVideos int
	// KeyRetries is how many fresh-key retries a call gets after quota
	// exhaustion. Zero means the default of 1; negative disables the retry.
	KeyRetries int
}

func NewYouTubeClient(keys *keypool.Pool, opts YouTubeOptions) *YouTubeClient {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultYouTubeBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxVideos <= 0 {
		opts.MaxVideos = 15
	}
	if opts.KeyRetries < 0 {
		opts.KeyRetries = 0
	} else if opts.KeyRetries == 0 {
		opts.KeyRetries = 1
	}

	return &YouTubeClient{
		httpClient: &http.Client{Timeout: opts.Timeout},
		// Data API quota units drain fast; keep request pacing modest.
		limiter:    rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
		keys:       keys,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		timeout:    opts.Timeout,
		maxVideos:  opts.MaxVideos,
		keyRetries: opts.KeyRetries,
	}
}

func (yc *YouTubeClient) Source() domain.SourceKind { return domain.SourceYouTube }

// Fetch searches videos for the query and pages their comment threads until
// limit comments (replies included) are collected.
func (yc *YouTubeClient) Fetch(ctx context.Context, query string, limit int) ([]domain.Comment, error) {
	comments, _, err := yc.FetchWithKey(ctx, query, limit)
	return comments, err
}

// FetchWithKey behaves like Fetch and reports the ID of the pool key that
// served, or last attempted, the call.
func (yc *YouTubeClient) FetchWithKey(ctx context.Context, query string, limit int) ([]domain.Comment, string, error) {
	ctx, cancel := context.WithTimeout(ctx, yc.timeout)
	defer cancel()

	var (
		lastErr   error
		lastKeyID string
	)
	for attempt := 0; attempt <= yc.keyRetries; attempt++ {
		key, err := yc.acquireKey(ctx)
		if err != nil {
			return nil, lastKeyID, domain.NewFetchError(domain.ErrQuotaExceeded, domain.SourceYouTube, err)
		}
		lastKeyID = key.ID

		comments, err := yc.fetchWithKey(ctx, key, query, limit)
		if err == nil {
			yc.keys.ReportSuccess(key.ID)
			return comments, key.ID, nil
		}

		lastErr = err
		if domain.KindOf(err) != domain.ErrQuotaExceeded {
			return nil, key.ID, err
		}
		yc.keys.ReportExhaustion(key.ID, 0)
	}
	return nil, lastKeyID, lastErr
}

// acquireKey retries once after a short backoff when every key is cooling,
// bounded by the call context.
func (yc *YouTubeClient) acquireKey(ctx context.Context) (keypool.Key, error) {
	key, err := yc.keys.Acquire()
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, keypool.ErrUnavailable) {
		return keypool.Key{}, err
	}

	select {
	case <-time.After(2 * time.Second):
	case <-ctx.Done():
		return keypool.Key{}, ctx.Err()
	}
	return yc.keys.Acquire()
}

func (yc *YouTubeClient) fetchWithKey(ctx context.Context, key keypool.Key, query string, limit int) ([]domain.Comment, error) {
	videos, err := yc.searchVideos(ctx, key, query)
	if err != nil {
		return nil, err
	}

	var comments []domain.Comment
	for _, v := range videos {
		if len(comments) >= limit {
			break
		}
		vc, err := yc.videoComments(ctx, key, v, limit-len(comments))
		if err != nil {
			// Quota and timeout failures end the whole call; a single
			// video with disabled comments should not.
			kind := domain.KindOf(err)
			if kind == domain.ErrQuotaExceeded || kind == domain.ErrTimeout {
				return nil, err
			}
			continue
		}
		comments = append(comments, vc...)
	}
	return comments, nil
}

type youtubeVideo struct {
	ID    string
	Title string
}

type youtubeAPIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Errors  []struct {
		Reason string `json:"reason"`
	} `json:"errors"`
}

type youtubeSearchResponse struct {
	Error *youtubeAPIError `json:"error"`
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
	} `json:"items"`
}

type youtubeCommentSnippet struct {
	AuthorDisplayName string `json:"authorDisplayName"`
	TextDisplay       string `json:"textDisplay"`
	LikeCount         int    `json:"likeCount"`
	PublishedAt       string `json:"publishedAt"`
}

type youtubeThreadsResponse struct {
	Error         *youtubeAPIError `json:"error"`
	NextPageToken string           `json:"nextPageToken"`
	Items         []struct {
		Snippet struct {
			TopLevelComment struct {
				Snippet youtubeCommentSnippet `json:"snippet"`
			} `json:"topLevelComment"`
			TotalReplyCount int `json:"totalReplyCount"`
		} `json:"snippet"`
		Replies struct {
			Comments []struct {
				Snippet youtubeCommentSnippet `json:"snippet"`
			} `json:"comments"`
		} `json:"replies"`
	} `json:"items"`
}

func (yc *YouTubeClient) searchVideos(ctx context.Context, key keypool.Key, query string) ([]youtubeVideo, error) {
	params := url.Values{
		"part":       {"id,snippet"},
		"q":          {query},
		"type":       {"video"},
		"order":      {"relevance"},
		"maxResults": {strconv.Itoa(yc.maxVideos)},
	}

	var parsed youtubeSearchResponse
	status, err := yc.get(ctx, key, "/search", params, &parsed)
	if err != nil {
		return nil, err
	}
	if err := yc.apiError(parsed.Error, status); err != nil {
		return nil, err
	}

	videos := make([]youtubeVideo, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item.ID.VideoID == "" {
			continue
		}
		videos = append(videos, youtubeVideo{ID: item.ID.VideoID, Title: item.Snippet.Title})
	}
	return videos, nil
}

func (yc *YouTubeClient) videoComments(ctx context.Context, key keypool.Key, video youtubeVideo, limit int) ([]domain.Comment, error) {
	var comments []domain.Comment
	pageToken := ""

	for len(comments) < limit {
		params := url.Values{
			"part":       {"snippet,replies"},
			"videoId":    {video.ID},
			"order":      {"relevance"},
			"maxResults": {strconv.Itoa(min(100, limit-len(comments)))},
		}
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var parsed youtubeThreadsResponse
		status, err := yc.get(ctx, key, "/commentThreads", params, &parsed)
		if err != nil {
			return nil, err
		}
		if err := yc.apiError(parsed.Error, status); err != nil {
			return nil, err
		}

		for _, item := range parsed.Items {
			top := item.Snippet.TopLevelComment.Snippet
			if c, ok := yc.toComment(top, video); ok {
				comments = append(comments, c)
			}
			// Replies flatten into plain records so dedup stays uniform.
			for _, r := range item.Replies.Comments {
				if c, ok := yc.toComment(r.Snippet, video); ok {
					comments = append(comments, c)
				}
			}
		}

		pageToken = parsed.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return comments, nil
}

func (yc *YouTubeClient) toComment(s youtubeCommentSnippet, video youtubeVideo) (domain.Comment, bool) {
	text := strings.TrimSpace(s.TextDisplay)
	if !keep(text) {
		return domain.Comment{}, false
	}
	published, _ := time.Parse(time.RFC3339, s.PublishedAt)
	return domain.Comment{
		Source:      domain.SourceYouTube,
		Fingerprint: domain.NewFingerprint(text, s.AuthorDisplayName, domain.SourceYouTube),
		Text:        text,
		Author:      s.AuthorDisplayName,
		Likes:       s.LikeCount,
		PublishedAt: published,
		OriginID:    video.ID,
		OriginTitle: video.Title,
	}, true
}

func (yc *YouTubeClient) get(ctx context.Context, key keypool.Key, path string, params url.Values, out any) (int, error) {
	if err := yc.limiter.Wait(ctx); err != nil {
		return 0, yc.wrapTransport(err)
	}

	params.Set("key", key.Secret)
	reqURL := yc.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, domain.NewFetchError(domain.ErrPermanent, domain.SourceYouTube, err)
	}

	resp, err := yc.httpClient.Do(req)
	if err != nil {
		return 0, yc.wrapTransport(err)
	}
	defer resp.Body.Close()

	// Quota errors can arrive with any status, including 200, so the body
	// is decoded before the status code is judged.
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if resp.StatusCode >= 500 {
			return resp.StatusCode, domain.NewFetchError(domain.ErrTransient, domain.SourceYouTube, fmt.Errorf("status %d", resp.StatusCode))
		}
		return resp.StatusCode, domain.NewFetchError(domain.ErrTransient, domain.SourceYouTube, err)
	}
	return resp.StatusCode, nil
}

func (yc *YouTubeClient) wrapTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewFetchError(domain.ErrTimeout, domain.SourceYouTube, err)
	}
	return domain.NewFetchError(domain.ErrTransient, domain.SourceYouTube, err)
}

// apiError maps an embedded API error body onto the failure taxonomy,
// matching quota signatures by reason and message rather than status code.
func (yc *YouTubeClient) apiError(e *youtubeAPIError, status int) error {
	if e == nil {
		switch {
		case status >= 500:
			return domain.NewFetchError(domain.ErrTransient, domain.SourceYouTube, fmt.Errorf("status %d", status))
		case status >= 400:
			return domain.NewFetchError(domain.ErrPermanent, domain.SourceYouTube, fmt.Errorf("status %d", status))
		}
		return nil
	}
	if isQuotaError(e) {
		return domain.NewFetchError(domain.ErrQuotaExceeded, domain.SourceYouTube, fmt.Errorf("%s (code %d)", e.Message, e.Code))
	}
	if e.Code >= 500 {
		return domain.NewFetchError(domain.ErrTransient, domain.SourceYouTube, fmt.Errorf("%s (code %d)", e.Message, e.Code))
	}
	return domain.NewFetchError(domain.ErrPermanent, domain.SourceYouTube, fmt.Errorf("%s (code %d)", e.Message, e.Code))
}

var quotaReasons = map[string]bool{
	"quotaExceeded":      true,
	"dailyLimitExceeded": true,
	"rateLimitExceeded":  true,
}

func isQuotaError(e *youtubeAPIError) bool {
	for _, detail := range e.Errors {
		if quotaReasons[detail.Reason] {
			return true
		}
	}
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "quota exceeded") || strings.Contains(msg, "daily limit")
}
