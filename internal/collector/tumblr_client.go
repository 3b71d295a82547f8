package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/qepting91/reblogbot/internal/domain"
	"golang.org/x/time/rate"
)

const defaultTumblrAPI = "https://api.tumblr.com/v2"

// TumblrClient talks to the Tumblr v2 JSON API. Reads are retried on
// connection errors, 5xx and 429; writes are sent once.
type TumblrClient struct {
	baseURL     string
	readClient  *http.Client
	writeClient *http.Client
	limiter     *rate.Limiter
	apiKey      string
	token       string
}

type TumblrOption func(*TumblrClient)

// WithTumblrBaseURL points the client at another API root, e.g. a test server.
func WithTumblrBaseURL(u string) TumblrOption {
	return func(tc *TumblrClient) { tc.baseURL = strings.TrimRight(u, "/") }
}

// WithTumblrRetries overrides the read retry budget.
func WithTumblrRetries(max int, waitMin, waitMax time.Duration) TumblrOption {
	return func(tc *TumblrClient) {
		tc.readClient = newReadClient(max, waitMin, waitMax, nil)
	}
}

// NewTumblrClient needs the consumer key for reads and an OAuth2 access token
// for reblog and like.
func NewTumblrClient(apiKey, token string, rps float64, logger *slog.Logger, opts ...TumblrOption) (*TumblrClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("tumblr consumer key is required")
	}
	if rps <= 0 {
		rps = 1
	}

	tc := &TumblrClient{
		baseURL:     defaultTumblrAPI,
		readClient:  newReadClient(3, 1*time.Second, 10*time.Second, logger),
		writeClient: &http.Client{Timeout: 30 * time.Second},
		limiter:     rate.NewLimiter(rate.Limit(rps), 1),
		apiKey:      apiKey,
		token:       token,
	}
	for _, opt := range opts {
		opt(tc)
	}
	return tc, nil
}

func newReadClient(max int, waitMin, waitMax time.Duration, logger *slog.Logger) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = max
	retryClient.RetryWaitMin = waitMin
	retryClient.RetryWaitMax = waitMax
	retryClient.Logger = nil
	if logger != nil {
		retryClient.Logger = retryablehttp.LeveledLogger(logger)
	}
	client := retryClient.StandardClient()
	client.Timeout = 30 * time.Second
	return client
}

type tumblrMeta struct {
	Status int    `json:"status"`
	Msg    string `json:"msg"`
}

type tumblrError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

type tumblrEnvelope struct {
	Meta     tumblrMeta      `json:"meta"`
	Response json.RawMessage `json:"response"`
	Errors   []tumblrError   `json:"errors"`
}

type tumblrPost struct {
	ID        int64    `json:"id"`
	IDString  string   `json:"id_string"`
	ReblogKey string   `json:"reblog_key"`
	BlogName  string   `json:"blog_name"`
	Tags      []string `json:"tags"`
	Slug      string   `json:"slug"`
	Timestamp int64    `json:"timestamp"`
	Trail     []struct {
		ContentRaw string `json:"content_raw"`
	} `json:"trail"`
}

func (p tumblrPost) toDomain() domain.Post {
	id := p.IDString
	if id == "" && p.ID != 0 {
		id = strconv.FormatInt(p.ID, 10)
	}
	post := domain.Post{
		ID:        id,
		ReblogKey: p.ReblogKey,
		BlogName:  p.BlogName,
		Tags:      p.Tags,
		Slug:      p.Slug,
	}
	if p.Timestamp > 0 {
		post.Timestamp = time.Unix(p.Timestamp, 0).UTC()
	}
	for _, t := range p.Trail {
		post.Trail = append(post.Trail, domain.TrailItem{ContentRaw: t.ContentRaw})
	}
	return post
}

func (tc *TumblrClient) Posts(ctx context.Context, blog string, q domain.PostsQuery) ([]domain.Post, error) {
	params := url.Values{}
	if q.ID != "" {
		params.Set("id", q.ID)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	var resp struct {
		Posts []tumblrPost `json:"posts"`
	}
	if err := tc.get(ctx, "posts", "/blog/"+blogIdentifier(blog)+"/posts", params, &resp); err != nil {
		return nil, err
	}

	posts := make([]domain.Post, 0, len(resp.Posts))
	for _, p := range resp.Posts {
		posts = append(posts, p.toDomain())
	}
	return posts, nil
}

func (tc *TumblrClient) Tagged(ctx context.Context, tag string, limit int, before time.Time) ([]domain.Post, error) {
	params := url.Values{}
	params.Set("tag", tag)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if !before.IsZero() {
		params.Set("before", strconv.FormatInt(before.Unix(), 10))
	}

	var resp []tumblrPost
	if err := tc.get(ctx, "tagged", "/tagged", params, &resp); err != nil {
		return nil, err
	}

	posts := make([]domain.Post, 0, len(resp))
	for _, p := range resp {
		posts = append(posts, p.toDomain())
	}
	return posts, nil
}

func (tc *TumblrClient) Reblog(ctx context.Context, req domain.ReblogRequest) error {
	form := url.Values{}
	form.Set("id", req.ID)
	form.Set("reblog_key", req.ReblogKey)
	if req.State != "" {
		form.Set("state", req.State)
	}
	if len(req.Tags) > 0 {
		form.Set("tags", strings.Join(req.Tags, ","))
	}
	if req.Comment != "" {
		form.Set("comment", req.Comment)
	}
	if req.Format != "" {
		form.Set("format", req.Format)
	}
	return tc.post(ctx, "reblog", "/blog/"+blogIdentifier(req.Blog)+"/post/reblog", form)
}

func (tc *TumblrClient) Like(ctx context.Context, id, reblogKey string) error {
	form := url.Values{}
	form.Set("id", id)
	form.Set("reblog_key", reblogKey)
	return tc.post(ctx, "like", "/user/like", form)
}

func (tc *TumblrClient) get(ctx context.Context, op, path string, params url.Values, out any) error {
	if err := tc.limiter.Wait(ctx); err != nil {
		return err
	}

	params.Set("api_key", tc.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tc.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return &domain.PlatformError{Op: op, Err: err}
	}
	return tc.do(tc.readClient, req, op, out)
}

func (tc *TumblrClient) post(ctx context.Context, op, path string, form url.Values) error {
	if tc.token == "" {
		return &domain.PlatformError{Op: op, Err: fmt.Errorf("no oauth token configured")}
	}
	if err := tc.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tc.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return &domain.PlatformError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return tc.do(tc.writeClient, req, op, nil)
}

func (tc *TumblrClient) do(client *http.Client, req *http.Request, op string, out any) error {
	if tc.token != "" {
		req.Header.Set("Authorization", "Bearer "+tc.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return &domain.PlatformError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.PlatformError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	var env tumblrEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &domain.PlatformError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("unexpected response: %s", truncate(body, 200))}
		}
		return &domain.PlatformError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	status := resp.StatusCode
	if env.Meta.Status >= 400 {
		status = env.Meta.Status
	}
	if status < 200 || status >= 300 {
		msg := env.Meta.Msg
		if len(env.Errors) > 0 {
			msg = env.Errors[0].Title
			if env.Errors[0].Detail != "" {
				msg += ": " + env.Errors[0].Detail
			}
		}
		return &domain.PlatformError{Op: op, Status: status, Err: fmt.Errorf("api error: %s", msg)}
	}

	if out != nil && len(env.Response) > 0 {
		if err := json.Unmarshal(env.Response, out); err != nil {
			return &domain.PlatformError{Op: op, Status: status, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

// blogIdentifier accepts a bare blog name or a full hostname.
func blogIdentifier(blog string) string {
	if !strings.Contains(blog, ".") {
		blog += ".tumblr.com"
	}
	return url.PathEscape(blog)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
