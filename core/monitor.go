package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/pagewatch/pagewatch/internal/thread"
)

// Monitor runs the change-detection pipeline over watched URLs: load the
// prior record, fetch, short-circuit on identical bodies, otherwise render
// both versions and diff them, then persist the new record and update the
// redirect alias.
type Monitor struct {
	config *Config
	client client
	store  *Store
	render func(htmlText, baseURL string) (string, error)
}

// NewMonitor builds a monitor and creates the state directory.
func NewMonitor(config *Config) (*Monitor, error) {
	store, err := NewStore(config.StateDir)
	if err != nil {
		return nil, err
	}
	return &Monitor{
		config: config,
		client: newHTTPClient(config),
		store:  store,
		render: Render,
	}, nil
}

// Check processes a single URL. The prior record is loaded under the
// requested URL's key before fetching, so the baseline is whatever was last
// observed for that exact requested URL, including through earlier
// redirects. The new record is persisted under the final URL's key; when the
// two differ, the requested key becomes an alias.
func (m *Monitor) Check(ctx context.Context, url string) error {
	requestedKey := CacheKey(url)
	old, err := m.store.Load(requestedKey)
	if err != nil {
		return err
	}

	record, err := m.client.Get(ctx, url)
	if err != nil {
		return err
	}
	m.config.Logger.Debug().
		Str("url", url).
		Str("finalUrl", record.URL).
		Int("status", record.StatusCode).
		Msg("fetched")

	if err := m.report(old, record); err != nil {
		return err
	}

	finalKey := CacheKey(record.URL)
	if err := m.store.Save(finalKey, record); err != nil {
		return err
	}
	if record.URL != url {
		if err := m.store.Alias(requestedKey, finalKey); err != nil {
			return err
		}
	}
	return nil
}

func (m *Monitor) report(old, record *Record) error {
	// Identical raw bodies need no rendering or output at all, diff or not.
	if old != nil && bytes.Equal(old.Body, record.Body) {
		m.config.Logger.Debug().Str("url", record.RequestURL).Msg("body unchanged")
		return nil
	}

	if m.config.NoDiff {
		rendered, err := m.renderRecord(record)
		if err != nil {
			return err
		}
		if m.config.OnRender != nil {
			m.config.OnRender(&Rendering{
				RequestURL: record.RequestURL,
				URL:        record.URL,
				Text:       rendered,
			})
		}
		return nil
	}

	var oldText string
	if old != nil {
		rendered, err := m.renderRecord(old)
		if err != nil {
			return err
		}
		oldText = rendered
	}
	newText, err := m.renderRecord(record)
	if err != nil {
		return err
	}
	if newText == oldText {
		return nil
	}
	lines := Collapse(Compare(oldText, newText), m.config.ContextLen)
	if len(lines) == 0 {
		return nil
	}
	if m.config.OnChange != nil {
		m.config.OnChange(&Change{
			RequestURL: record.RequestURL,
			URL:        record.URL,
			Lines:      lines,
		})
	}
	return nil
}

func (m *Monitor) renderRecord(record *Record) (string, error) {
	text, err := record.Text()
	if err != nil {
		return "", err
	}
	return m.render(text, record.URL)
}

// Run checks every URL strictly in order. Without KeepGoing the first error
// aborts the remaining URLs; with it, failures are logged per URL and an
// aggregate error is returned after the batch.
func (m *Monitor) Run(ctx context.Context, urls []string) error {
	var failed int
	for _, url := range urls {
		if err := m.Check(ctx, url); err != nil {
			if !m.config.KeepGoing {
				return err
			}
			m.config.Logger.Error().Err(err).Str("url", url).Msg("check failed")
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d URLs failed", failed, len(urls))
	}
	return nil
}

// Watch re-runs the URL set every Interval until the context is canceled.
// A failed cycle does not stop the watch: the next cycle is scheduled by
// WatchBackoff, which resets once a cycle succeeds. Panics inside a cycle
// are converted to errors.
func (m *Monitor) Watch(ctx context.Context, urls []string) error {
	if m.config.Interval <= 0 {
		return errors.New("watch mode requires a positive interval")
	}
	wait := m.config.Interval
	for {
		err := thread.NoPanic(func() error {
			return m.Run(ctx, urls)
		})()
		switch {
		case err == nil:
			if m.config.WatchBackoff != nil {
				m.config.WatchBackoff.Reset()
			}
			wait = m.config.Interval
		case ctx.Err() != nil:
			return nil
		default:
			m.config.Logger.Warn().Err(err).Msg("check cycle failed")
			wait = m.config.Interval
			if m.config.WatchBackoff != nil {
				if next := m.config.WatchBackoff.NextBackOff(); next != backoff.Stop {
					wait = next
				}
			}
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil
		}
	}
}
