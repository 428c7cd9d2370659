package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nahidhasan98/commit-notifier/internal/errors"
	"github.com/nahidhasan98/commit-notifier/internal/logger"
)

type recordingReporter struct {
	errs    []error
	actions []string
}

func (r *recordingReporter) Report(_ context.Context, err error, action string) {
	r.errs = append(r.errs, err)
	r.actions = append(r.actions, action)
}

// makeFeedServer is used during testing to create an HTTP server to return
// fixtures if the request matches.
func makeFeedServer(t *testing.T, wantPath, wantPage string, status int, response []byte) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != wantPath || r.URL.Query().Get("p") != wantPage || r.URL.Query().Get("format") != "json" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write(response)
	}))
}

func mustReadFile(t *testing.T, filename string) []byte {
	t.Helper()
	d, err := os.ReadFile(filename)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestFetchParsesResults(t *testing.T) {
	ts := makeFeedServer(t, "/r/rust_reboot", "1", http.StatusOK, mustReadFile(t, "testdata/commits_page1.json"))
	t.Cleanup(ts.Close)
	rep := &recordingReporter{}
	f := NewFetcher(ts.Client(), ts.URL, "rust_reboot", rep, logger.Nop())

	commits := f.Fetch(context.Background(), 1)

	assert.Empty(t, rep.errs)
	require.Len(t, commits, 3)
	assert.Equal(t, "523118", commits[0].ID.String())
	assert.True(t, commits[0].ID.IsNumeric())
	assert.Equal(t, "Alistair McFarlane", commits[0].User.Name)
	assert.Equal(t, "Fixed furnace not smelting", commits[0].Summary())
	assert.Equal(t, "e3f1b2", commits[1].Changeset.String())
	assert.Equal(t, "", commits[1].User.Avatar)
	assert.False(t, commits[2].ID.IsNumeric())
	assert.True(t, commits[2].Changeset.IsNumeric())
}

func TestFetchRequestsGivenPage(t *testing.T) {
	ts := makeFeedServer(t, "/r/sbox", "3", http.StatusOK, []byte(`{"results": []}`))
	t.Cleanup(ts.Close)
	rep := &recordingReporter{}
	f := NewFetcher(ts.Client(), ts.URL, "sbox", rep, logger.Nop())

	commits := f.Fetch(context.Background(), 3)

	assert.Empty(t, rep.errs)
	assert.NotNil(t, commits)
	assert.Empty(t, commits)
}

func TestFetchServerErrorIsReported(t *testing.T) {
	ts := makeFeedServer(t, "/r/rust_reboot", "1", http.StatusServiceUnavailable, nil)
	t.Cleanup(ts.Close)
	rep := &recordingReporter{}
	f := NewFetcher(ts.Client(), ts.URL, "rust_reboot", rep, logger.Nop())

	commits := f.Fetch(context.Background(), 1)

	assert.NotNil(t, commits)
	assert.Empty(t, commits)
	require.Len(t, rep.errs, 1)
	assert.True(t, errors.Is(rep.errs[0], errors.ErrCodeFeedUnavailable))
	assert.Equal(t, "fetching commits from page 1", rep.actions[0])
}

func TestFetchMalformedBodyIsReported(t *testing.T) {
	for name, body := range map[string]string{
		"not json":   `<html>maintenance</html>`,
		"no results": `{"total": 0}`,
		"bad record": `{"results": [{"id": {"nested": true}}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			ts := makeFeedServer(t, "/r/rust_reboot", "1", http.StatusOK, []byte(body))
			t.Cleanup(ts.Close)
			rep := &recordingReporter{}
			f := NewFetcher(ts.Client(), ts.URL, "rust_reboot", rep, logger.Nop())

			commits := f.Fetch(context.Background(), 1)

			assert.Empty(t, commits)
			require.Len(t, rep.errs, 1)
			assert.True(t, errors.Is(rep.errs[0], errors.ErrCodeFeedDecodeFailed))
		})
	}
}

func TestFetchUnreachableFeedIsReported(t *testing.T) {
	ts := makeFeedServer(t, "/r/rust_reboot", "1", http.StatusOK, nil)
	url := ts.URL
	ts.Close()
	rep := &recordingReporter{}
	f := NewFetcher(http.DefaultClient, url, "rust_reboot", rep, logger.Nop())

	commits := f.Fetch(context.Background(), 1)

	assert.Empty(t, commits)
	require.Len(t, rep.errs, 1)
	assert.True(t, errors.Is(rep.errs[0], errors.ErrCodeFeedUnavailable))
}

func TestMakeFeedURL(t *testing.T) {
	got, err := makeFeedURL("https://commits.facepunch.com", "rust_reboot", 2)
	require.NoError(t, err)
	assert.Equal(t, "https://commits.facepunch.com/r/rust_reboot?format=json&p=2", got)
}
