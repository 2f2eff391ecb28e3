package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultAPIURL is the public GitHub API endpoint.
const DefaultAPIURL = "https://api.github.com"

const perPage = 100

// ErrLabelNotFound is returned when removing a label the pull request does
// not carry.
var ErrLabelNotFound = errors.New("label not found")

// Client provides access to the GitHub REST API.
type Client struct {
	token      string
	apiURL     string
	httpCli    *http.Client
	logger     *zap.Logger
	maxRetries int
	backoff    func(attempt int) time.Duration
}

// NewClient creates a client authenticating with token. An empty apiURL
// means DefaultAPIURL; a nil logger discards output.
func NewClient(token, apiURL string, logger *zap.Logger) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("GitHub token is not set")
	}
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		token:      token,
		apiURL:     strings.TrimRight(apiURL, "/"),
		httpCli:    &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
		maxRetries: defaultMaxRetries,
		backoff:    defaultBackoff,
	}, nil
}

// Pull is the subset of a pull request the checker needs.
type Pull struct {
	Number  int    `json:"number"`
	State   string `json:"state"`
	Title   string `json:"title"`
	Commits int    `json:"commits"`
	Head    Ref    `json:"head"`
	Base    Ref    `json:"base"`
}

// Ref is one side of a pull request.
type Ref struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

// File is a file changed in a pull request. Patch is empty for binary
// files and for diffs GitHub truncates.
type File struct {
	Filename         string `json:"filename"`
	Status           string `json:"status"`
	Patch            string `json:"patch,omitempty"`
	PreviousFilename string `json:"previous_filename,omitempty"`
}

// ReviewComment is an inline pull request comment. Position is nil for
// comments on outdated diffs.
type ReviewComment struct {
	ID       int64  `json:"id,omitempty"`
	Path     string `json:"path"`
	Position *int   `json:"position,omitempty"`
	Body     string `json:"body"`
	CommitID string `json:"commit_id,omitempty"`
}

// Label is an issue label.
type Label struct {
	Name string `json:"name"`
}

// Commit status states.
const (
	StatePending = "pending"
	StateSuccess = "success"
	StateFailure = "failure"
	StateError   = "error"
)

// Status is a commit status.
type Status struct {
	State       string `json:"state"`
	TargetURL   string `json:"target_url,omitempty"`
	Description string `json:"description,omitempty"`
	Context     string `json:"context,omitempty"`
}

// GetPull fetches a pull request.
func (c *Client) GetPull(ctx context.Context, owner, repo string, number int) (*Pull, error) {
	var pr Pull
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d", owner, repo, number)
	if _, err := c.do(ctx, http.MethodGet, path, nil, &pr); err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("PR #%d not found in %s/%s: %w", number, owner, repo, err)
		}
		return nil, err
	}
	return &pr, nil
}

// ListFiles fetches every file changed in a pull request.
func (c *Client) ListFiles(ctx context.Context, owner, repo string, number int) ([]File, error) {
	var files []File
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d/files?per_page=%d", owner, repo, number, perPage)
	err := c.paginate(ctx, path, func(next func(v any) error) error {
		var page []File
		if err := next(&page); err != nil {
			return err
		}
		files = append(files, page...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing files of PR #%d: %w", number, err)
	}
	return files, nil
}

// ListReviewComments fetches every inline comment of a pull request.
func (c *Client) ListReviewComments(ctx context.Context, owner, repo string, number int) ([]ReviewComment, error) {
	var comments []ReviewComment
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d/comments?per_page=%d", owner, repo, number, perPage)
	err := c.paginate(ctx, path, func(next func(v any) error) error {
		var page []ReviewComment
		if err := next(&page); err != nil {
			return err
		}
		comments = append(comments, page...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing review comments of PR #%d: %w", number, err)
	}
	return comments, nil
}

// CreateReviewComment posts an inline comment at a diff position.
func (c *Client) CreateReviewComment(ctx context.Context, owner, repo string, number int, commitID, path string, position int, body string) error {
	payload := ReviewComment{Path: path, Position: &position, Body: body, CommitID: commitID}
	p := fmt.Sprintf("/repos/%s/%s/pulls/%d/comments", owner, repo, number)
	if _, err := c.do(ctx, http.MethodPost, p, payload, nil); err != nil {
		return fmt.Errorf("posting review comment on %s: %w", path, err)
	}
	return nil
}

// CreateIssueComment posts a conversation comment.
func (c *Client) CreateIssueComment(ctx context.Context, owner, repo string, number int, body string) error {
	p := fmt.Sprintf("/repos/%s/%s/issues/%d/comments", owner, repo, number)
	if _, err := c.do(ctx, http.MethodPost, p, map[string]string{"body": body}, nil); err != nil {
		return fmt.Errorf("posting issue comment: %w", err)
	}
	return nil
}

// ListLabels returns the label names of an issue or pull request.
func (c *Client) ListLabels(ctx context.Context, owner, repo string, number int) ([]string, error) {
	var names []string
	path := fmt.Sprintf("/repos/%s/%s/issues/%d/labels?per_page=%d", owner, repo, number, perPage)
	err := c.paginate(ctx, path, func(next func(v any) error) error {
		var page []Label
		if err := next(&page); err != nil {
			return err
		}
		for _, l := range page {
			names = append(names, l.Name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing labels: %w", err)
	}
	return names, nil
}

// AddLabels adds labels to an issue or pull request.
func (c *Client) AddLabels(ctx context.Context, owner, repo string, number int, labels ...string) error {
	if len(labels) == 0 {
		return nil
	}
	p := fmt.Sprintf("/repos/%s/%s/issues/%d/labels", owner, repo, number)
	if _, err := c.do(ctx, http.MethodPost, p, map[string][]string{"labels": labels}, nil); err != nil {
		return fmt.Errorf("adding labels %v: %w", labels, err)
	}
	return nil
}

// RemoveLabel removes a label. It returns ErrLabelNotFound when the label
// is not set.
func (c *Client) RemoveLabel(ctx context.Context, owner, repo string, number int, label string) error {
	p := fmt.Sprintf("/repos/%s/%s/issues/%d/labels/%s", owner, repo, number, url.PathEscape(label))
	if _, err := c.do(ctx, http.MethodDelete, p, nil, nil); err != nil {
		if IsNotFound(err) {
			return fmt.Errorf("%w: %s", ErrLabelNotFound, label)
		}
		return fmt.Errorf("removing label %s: %w", label, err)
	}
	return nil
}

// CreateStatus sets a commit status on sha.
func (c *Client) CreateStatus(ctx context.Context, owner, repo, sha string, s Status) error {
	p := fmt.Sprintf("/repos/%s/%s/statuses/%s", owner, repo, sha)
	if _, err := c.do(ctx, http.MethodPost, p, s, nil); err != nil {
		return fmt.Errorf("setting %s status %s: %w", s.Context, s.State, err)
	}
	return nil
}

// paginate calls page once per result page, following Link rel="next".
func (c *Client) paginate(ctx context.Context, path string, page func(next func(v any) error) error) error {
	for path != "" {
		var raw json.RawMessage
		header, err := c.do(ctx, http.MethodGet, path, nil, &raw)
		if err != nil {
			return err
		}
		if err := page(func(v any) error { return json.Unmarshal(raw, v) }); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
		path = nextLink(header.Get("Link"))
	}
	return nil
}

var linkNextRe = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

func nextLink(link string) string {
	if m := linkNextRe.FindStringSubmatch(link); len(m) == 2 {
		return m[1]
	}
	return ""
}

// do sends one API request with retries. path is relative to the API URL
// unless it is absolute. A non-nil out receives the decoded JSON body.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) (http.Header, error) {
	target := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		target = c.apiURL + path
	}

	var body []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		body = b
	}

	var header http.Header
	err := c.retryWithBackoff(ctx, func() error {
		var r io.Reader
		if body != nil {
			r = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, r)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/vnd.github+json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpCli.Do(req)
		if err != nil {
			return fmt.Errorf("%s %s: %w", method, target, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &APIError{
				Method:     method,
				URL:        target,
				StatusCode: resp.StatusCode,
				Message:    apiMessage(data),
				RetryAfter: retryAfter(resp.Header.Get("Retry-After")),
			}
		}
		header = resp.Header
		if out != nil && len(data) > 0 {
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("parsing response: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.logger.Debug("GitHub request", zap.String("method", method), zap.String("url", target))
	return header, nil
}

func apiMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		return e.Message
	}
	return strings.TrimSpace(string(body))
}

func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
