package batch

import (
	"bytes"
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/homescrape/internal/logger"
	"github.com/jmylchreest/homescrape/pkg/homescrape"
	"github.com/jmylchreest/homescrape/pkg/listing"
)

type stubExtractor struct {
	active, peak atomic.Int32
}

func (s *stubExtractor) Extract(_ context.Context, url string) (*listing.Record, error) {
	n := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	if url == "bad" {
		return nil, fmt.Errorf("%w: nope", homescrape.ErrUnsupportedSite)
	}
	return &listing.Record{Address: url, SourceURL: url}, nil
}

func TestRun_OrderAndFailures(t *testing.T) {
	ex := &stubExtractor{}
	urls := []string{"a", "bad", "c", "d", "e", "f"}

	entries := Run(context.Background(), ex, urls, 2)
	require.Len(t, entries, len(urls))

	for i, u := range urls {
		assert.Equal(t, u, entries[i].URL)
	}
	assert.True(t, entries[1].Failed())
	assert.Equal(t, string(homescrape.KindUnsupportedSite), entries[1].Kind)
	assert.Equal(t, "c", entries[2].Record.Address)
	assert.Equal(t, 1, Failures(entries))
	assert.LessOrEqual(t, int(ex.peak.Load()), 2)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	entries := Run(ctx, &stubExtractor{}, []string{"a", "b"}, 0)
	assert.Equal(t, 2, Failures(entries))
	assert.Equal(t, string(homescrape.KindFetchFailed), entries[0].Kind)
}

func TestRun_LogsFailures(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, logger.Init(logger.Options{Output: &buf}))
	t.Cleanup(func() { _ = logger.Init(logger.Options{}) })

	Run(context.Background(), &stubExtractor{}, []string{"a", "bad"}, 1)

	out := buf.String()
	assert.Contains(t, out, "extraction failed")
	assert.Contains(t, out, "url=bad")
	assert.Contains(t, out, "kind=unsupported_site")
	assert.NotContains(t, out, "url=a ", "successes are not logged at info level")
}
