package core

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSite struct {
	body string
	hits map[string]int
}

func (s *testSite) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.hits[r.URL.Path]++
		switch r.URL.Path {
		case "/redirect":
			http.Redirect(w, r, "/final", http.StatusFound)
		case "/bad":
			w.Header().Set("Content-Type", "text/html; charset=klingon")
			w.Write([]byte("<p>bad</p>"))
		default:
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(s.body))
		}
	}
}

func TestMonitorFirstFetchIsPureAddition(t *testing.T) {
	site := &testSite{body: "<h1>Title</h1><p>hello</p>", hits: map[string]int{}}
	server := httptest.NewServer(site.handler())
	defer server.Close()

	config := NewConfig(t.TempDir())
	var changes []*Change
	config.OnChange = func(change *Change) { changes = append(changes, change) }
	monitor, err := NewMonitor(config)
	require.NoError(t, err)

	require.NoError(t, monitor.Check(context.Background(), server.URL+"/page"))
	require.Len(t, changes, 1)
	assert.Equal(t, server.URL+"/page", changes[0].RequestURL)
	assert.Equal(t, []Line{
		{Kind: Added, Text: "# Title"},
		{Kind: Added, Text: ""},
		{Kind: Added, Text: "hello"},
	}, changes[0].Lines)
}

func TestMonitorShortCircuitSkipsRendering(t *testing.T) {
	site := &testSite{body: "<p>stable</p>", hits: map[string]int{}}
	server := httptest.NewServer(site.handler())
	defer server.Close()

	config := NewConfig(t.TempDir())
	var changes []*Change
	config.OnChange = func(change *Change) { changes = append(changes, change) }
	monitor, err := NewMonitor(config)
	require.NoError(t, err)

	require.NoError(t, monitor.Check(context.Background(), server.URL+"/page"))
	require.Len(t, changes, 1)

	changes = nil
	monitor.render = func(string, string) (string, error) {
		t.Fatal("render must not be called when bodies are identical")
		return "", nil
	}
	require.NoError(t, monitor.Check(context.Background(), server.URL+"/page"))
	assert.Empty(t, changes)
}

func TestMonitorReportsChangesWithContext(t *testing.T) {
	site := &testSite{body: "<p>one</p><p>two</p><p>three</p>", hits: map[string]int{}}
	server := httptest.NewServer(site.handler())
	defer server.Close()

	config := NewConfig(t.TempDir())
	var changes []*Change
	config.OnChange = func(change *Change) { changes = append(changes, change) }
	monitor, err := NewMonitor(config)
	require.NoError(t, err)

	require.NoError(t, monitor.Check(context.Background(), server.URL+"/page"))
	changes = nil

	site.body = "<p>one</p><p>TWO</p><p>three</p>"
	require.NoError(t, monitor.Check(context.Background(), server.URL+"/page"))
	require.Len(t, changes, 1)
	assert.Equal(t, []Line{
		{Kind: Common, Text: "one"},
		{Kind: Common, Text: ""},
		{Kind: Removed, Text: "two"},
		{Kind: Added, Text: "TWO"},
		{Kind: Common, Text: ""},
		{Kind: Common, Text: "three"},
	}, changes[0].Lines)
}

func TestMonitorNoDiffRendersOnlyChangedBodies(t *testing.T) {
	site := &testSite{body: "<h1>Title</h1><p>hello</p>", hits: map[string]int{}}
	server := httptest.NewServer(site.handler())
	defer server.Close()

	config := NewConfig(t.TempDir())
	config.NoDiff = true
	var renderings []*Rendering
	config.OnRender = func(rendering *Rendering) { renderings = append(renderings, rendering) }
	config.OnChange = func(*Change) { t.Fatal("no diff must be reported in no-diff mode") }
	monitor, err := NewMonitor(config)
	require.NoError(t, err)

	require.NoError(t, monitor.Check(context.Background(), server.URL+"/page"))
	require.Len(t, renderings, 1)
	assert.Equal(t, "# Title\n\nhello\n", renderings[0].Text)

	// An unchanged body produces no output even in no-diff mode.
	originalRender := monitor.render
	monitor.render = func(string, string) (string, error) {
		t.Fatal("render must not be called when bodies are identical")
		return "", nil
	}
	require.NoError(t, monitor.Check(context.Background(), server.URL+"/page"))
	assert.Len(t, renderings, 1)
	monitor.render = originalRender

	site.body = "<h1>Title</h1><p>goodbye</p>"
	require.NoError(t, monitor.Check(context.Background(), server.URL+"/page"))
	require.Len(t, renderings, 2)
	assert.Equal(t, "# Title\n\ngoodbye\n", renderings[1].Text)
}

func TestMonitorRedirectAliasing(t *testing.T) {
	site := &testSite{body: "<p>content v1</p>", hits: map[string]int{}}
	server := httptest.NewServer(site.handler())
	defer server.Close()

	config := NewConfig(t.TempDir())
	var changes []*Change
	config.OnChange = func(change *Change) { changes = append(changes, change) }
	monitor, err := NewMonitor(config)
	require.NoError(t, err)

	requestURL := server.URL + "/redirect"
	finalURL := server.URL + "/final"

	require.NoError(t, monitor.Check(context.Background(), requestURL))
	require.Len(t, changes, 1)
	assert.Equal(t, requestURL, changes[0].RequestURL)
	assert.Equal(t, finalURL, changes[0].URL)

	// The record lives under the final URL's key and the requested URL's key
	// resolves to the same content.
	record, err := monitor.store.Load(CacheKey(finalURL))
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, finalURL, record.URL)
	aliased, err := monitor.store.Load(CacheKey(requestURL))
	require.NoError(t, err)
	require.NotNil(t, aliased)
	assert.Equal(t, record.Body, aliased.Body)

	// A second run loads the same content as baseline and short-circuits.
	changes = nil
	originalRender := monitor.render
	monitor.render = func(string, string) (string, error) {
		t.Fatal("render must not be called for an unchanged redirect target")
		return "", nil
	}
	require.NoError(t, monitor.Check(context.Background(), requestURL))
	assert.Empty(t, changes)
	monitor.render = originalRender

	// Once the target changes, the diff runs against the aliased baseline
	// instead of reporting everything as new.
	site.body = "<p>content v2</p>"
	require.NoError(t, monitor.Check(context.Background(), requestURL))
	require.Len(t, changes, 1)
	assert.Equal(t, []Line{
		{Kind: Removed, Text: "content v1"},
		{Kind: Added, Text: "content v2"},
	}, changes[0].Lines)
}

func TestMonitorRunAbortsOnFirstError(t *testing.T) {
	site := &testSite{body: "<p>fine</p>", hits: map[string]int{}}
	server := httptest.NewServer(site.handler())
	defer server.Close()

	config := NewConfig(t.TempDir())
	monitor, err := NewMonitor(config)
	require.NoError(t, err)

	err = monitor.Run(context.Background(), []string{server.URL + "/bad", server.URL + "/ok"})
	require.Error(t, err)
	assert.Equal(t, 0, site.hits["/ok"])
}

func TestMonitorRunKeepGoing(t *testing.T) {
	site := &testSite{body: "<p>fine</p>", hits: map[string]int{}}
	server := httptest.NewServer(site.handler())
	defer server.Close()

	config := NewConfig(t.TempDir())
	config.KeepGoing = true
	var changes []*Change
	config.OnChange = func(change *Change) { changes = append(changes, change) }
	monitor, err := NewMonitor(config)
	require.NoError(t, err)

	err = monitor.Run(context.Background(), []string{server.URL + "/bad", server.URL + "/ok"})
	require.EqualError(t, err, "1 of 2 URLs failed")
	assert.Equal(t, 1, site.hits["/ok"])
	assert.Len(t, changes, 1)
}

func TestMonitorRunEmptyList(t *testing.T) {
	monitor, err := NewMonitor(NewConfig(t.TempDir()))
	require.NoError(t, err)
	assert.NoError(t, monitor.Run(context.Background(), nil))
}

func TestMonitorWatch(t *testing.T) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<p>stable</p>"))
	}))
	defer server.Close()

	config := NewConfig(t.TempDir())
	config.Interval = 5 * time.Millisecond
	monitor, err := NewMonitor(config)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- monitor.Watch(ctx, []string{server.URL + "/"})
	}()
	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&hits) >= 3
	}, 2*time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestMonitorWatchRequiresInterval(t *testing.T) {
	monitor, err := NewMonitor(NewConfig(t.TempDir()))
	require.NoError(t, err)
	assert.Error(t, monitor.Watch(context.Background(), nil))
}
