package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"

	"github.com/nahidhasan98/commit-notifier/internal/errors"
	"github.com/nahidhasan98/commit-notifier/internal/logger"
	"github.com/nahidhasan98/commit-notifier/internal/models"
	"github.com/nahidhasan98/commit-notifier/internal/reporter"
)

// Fetcher retrieves pages of commits from the commit feed
type Fetcher struct {
	client     *http.Client
	endpoint   string
	repository string
	reporter   reporter.Reporter
	log        *logger.Logger
}

// NewFetcher creates a fetcher for repository on the feed at endpoint
func NewFetcher(c *http.Client, endpoint, repository string, rep reporter.Reporter, log *logger.Logger) *Fetcher {
	return &Fetcher{
		client:     c,
		endpoint:   endpoint,
		repository: repository,
		reporter:   rep,
		log:        log.Component("feed"),
	}
}

// Fetch returns the commits on page. Failures are reported and yield an
// empty slice so a cycle always proceeds.
func (f *Fetcher) Fetch(ctx context.Context, page int) []models.Commit {
	commits, err := f.fetchPage(ctx, page)
	if err != nil {
		f.reporter.Report(ctx, err, fmt.Sprintf("fetching commits from page %d", page))
		return []models.Commit{}
	}

	f.log.Debugf("Fetched %d commit(s) from page %d", len(commits), page)
	return commits
}

func (f *Fetcher) fetchPage(ctx context.Context, page int) ([]models.Commit, error) {
	requestURL, err := makeFeedURL(f.endpoint, f.repository, page)
	if err != nil {
		return nil, errors.FeedUnavailable(fmt.Errorf("failed to make the request URL: %w", err), page)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, errors.FeedUnavailable(err, page)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.FeedUnavailable(err, page)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, errors.FeedUnavailable(fmt.Errorf("server error: %d", resp.StatusCode), page)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.FeedUnavailable(err, page)
	}

	var result models.FeedPage
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, errors.FeedDecodeFailed(err, page)
	}
	if result.Results == nil {
		return nil, errors.FeedDecodeFailed(fmt.Errorf("response has no results list"), page)
	}

	return result.Results, nil
}

func makeFeedURL(endpoint, repository string, page int) (string, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	parsed.Path = path.Join("/", parsed.Path, "r", repository)
	q := url.Values{}
	q.Set("p", strconv.Itoa(page))
	q.Set("format", "json")
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}
