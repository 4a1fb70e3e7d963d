package blacklist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSource returns fixed pattern lists, or an error.
type stubSource struct {
	mu  sync.Mutex
	ips []string
	uas []string
	err error
}

func (s *stubSource) ListBannedIPs(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.ips, nil
}

func (s *stubSource) ListBannedUserAgents(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.uas, nil
}

func (s *stubSource) set(ips, uas []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ips, s.uas = ips, uas
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestLoad_CompilesAndMatches(t *testing.T) {
	source := &stubSource{
		ips: []string{`^10\.0\.0\.`, `^192\.168\.1\.13$`},
		uas: []string{`curl`, `(?i)scrapybot`},
	}
	store := NewStore(source, testLogger())

	require.NoError(t, store.Load(context.Background()))

	assert.True(t, store.IsIPBanned("10.0.0.7"))
	assert.True(t, store.IsIPBanned("192.168.1.13"))
	assert.False(t, store.IsIPBanned("192.168.1.130"))
	assert.True(t, store.IsUserAgentBanned("curl/8.4.0"))
	assert.True(t, store.IsUserAgentBanned("ScrapyBot/1.0"))
	assert.False(t, store.IsUserAgentBanned("Mozilla/5.0"))
}

func TestLoad_CaseSensitiveByDefault(t *testing.T) {
	source := &stubSource{uas: []string{`BadBot`}}
	store := NewStore(source, testLogger())
	require.NoError(t, store.Load(context.Background()))

	// No implicit normalization - matching is exactly what the
	// pattern specifies.
	assert.True(t, store.IsUserAgentBanned("BadBot/2.1"))
	assert.False(t, store.IsUserAgentBanned("badbot/2.1"))
}

func TestEmptyStore_NeverBans(t *testing.T) {
	store := NewStore(&stubSource{}, testLogger())

	assert.False(t, store.IsIPBanned("10.0.0.1"))
	assert.False(t, store.IsUserAgentBanned("anything"))
}

func TestLoad_FailureKeepsPreviousSet(t *testing.T) {
	source := &stubSource{ips: []string{`^10\.`}}
	store := NewStore(source, testLogger())
	require.NoError(t, store.Load(context.Background()))
	assert.True(t, store.IsIPBanned("10.1.2.3"))

	source.mu.Lock()
	source.err = errors.New("connection refused")
	source.mu.Unlock()

	err := store.Load(context.Background())
	assert.Error(t, err)

	// Previous patterns stay active after a failed reload.
	assert.True(t, store.IsIPBanned("10.1.2.3"))
}

func TestLoad_InvalidPatternSkipped(t *testing.T) {
	source := &stubSource{ips: []string{`([`, `^10\.`}}
	store := NewStore(source, testLogger())
	require.NoError(t, store.Load(context.Background()))

	ips, _ := store.Sizes()
	assert.Equal(t, 1, ips)
	assert.True(t, store.IsIPBanned("10.0.0.1"))
}

// TestConcurrentReload stresses reads racing with reloads. A reader
// must always see a complete set: every query matches against either
// the old or the new full list, never a half-updated one.
func TestConcurrentReload(t *testing.T) {
	source := &stubSource{}
	store := NewStore(source, testLogger())

	const generations = 200

	var wg sync.WaitGroup
	done := make(chan struct{})

	// Readers: both pattern classes of one generation ban the same
	// address, so a torn snapshot would show up as one class matching
	// while the other does not for a mixed generation.
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				ipBanned := store.IsIPBanned("203.0.113.50")
				uaBanned := store.IsUserAgentBanned("203.0.113.50")
				assert.Equal(t, ipBanned, uaBanned)
			}
		}()
	}

	for gen := 0; gen < generations; gen++ {
		pattern := fmt.Sprintf(`^203\.0\.113\.%d$`, gen%100)
		source.set([]string{pattern}, []string{pattern})
		require.NoError(t, store.Load(context.Background()))
	}

	close(done)
	wg.Wait()
}
