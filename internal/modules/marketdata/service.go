package marketdata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/papertrade/terminal/internal/clients/yahoo"
)

const (
	// quoteFreshFor is how long a cached quote is served without touching
	// the upstream feed at all
	quoteFreshFor = 10 * time.Second

	// staleFallback is the maximum cache age accepted when the upstream
	// feed is down. Older entries are treated as missing.
	staleFallback = 60 * time.Second

	// indicesCacheKey is the cache row holding the index snapshot.
	// The leading underscores keep it out of any real symbol namespace.
	indicesCacheKey = "__indices__"
)

// Service is the quote layer the rest of the system talks to. It owns
// symbol suffix handling and the cache-through behavior.
type Service struct {
	client *yahoo.Client
	cache  *CacheRepository
	suffix string
	log    zerolog.Logger
}

// NewService creates a new market data service
func NewService(client *yahoo.Client, cache *CacheRepository, marketSuffix string, log zerolog.Logger) *Service {
	return &Service{
		client: client,
		cache:  cache,
		suffix: marketSuffix,
		log:    log.With().Str("service", "marketdata").Logger(),
	}
}

// ResolveSymbol normalizes user input into a feed symbol. Bare tickers get
// the market suffix; index symbols and already-suffixed tickers pass through.
func (s *Service) ResolveSymbol(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" || strings.HasPrefix(symbol, "^") || strings.Contains(symbol, ".") {
		return symbol
	}
	return symbol + s.suffix
}

// DisplaySymbol strips the market suffix for presentation
func (s *Service) DisplaySymbol(symbol string) string {
	return strings.TrimSuffix(symbol, s.suffix)
}

// GetQuote returns the quote for a symbol. Fresh cache hits skip the feed;
// when the feed fails, a cache entry no older than the stale window is
// served instead and flagged as stale.
func (s *Service) GetQuote(ctx context.Context, symbol string) (*yahoo.Quote, bool, error) {
	resolved := s.ResolveSymbol(symbol)

	var cached yahoo.Quote
	found, fetchedAt, err := s.cache.Get(resolved, &cached)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", resolved).Msg("Cache read failed")
		found = false
	}

	if found && time.Since(fetchedAt) <= quoteFreshFor {
		return &cached, false, nil
	}

	quote, err := s.client.GetQuote(ctx, resolved)
	if err != nil {
		if found && time.Since(fetchedAt) <= staleFallback {
			s.log.Warn().Err(err).Str("symbol", resolved).Msg("Feed failed, serving stale quote")
			return &cached, true, nil
		}
		return nil, false, err
	}

	if err := s.cache.Put(resolved, quote); err != nil {
		s.log.Warn().Err(err).Str("symbol", resolved).Msg("Cache write failed")
	}

	return quote, false, nil
}

// CurrentPrice returns the last traded price for a symbol
func (s *Service) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	quote, _, err := s.GetQuote(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return quote.Price, nil
}

// Search looks up symbols matching a query. Results are returned with the
// market suffix stripped so the terminal shows bare tickers.
func (s *Service) Search(ctx context.Context, query string) ([]yahoo.SearchResult, error) {
	results, err := s.client.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	for i := range results {
		results[i].Symbol = s.DisplaySymbol(results[i].Symbol)
	}

	return results, nil
}

// GetIndices returns the market index snapshot, falling back to a cached
// snapshot within the stale window when the feed is down
func (s *Service) GetIndices(ctx context.Context) (map[string]yahoo.IndexQuote, bool, error) {
	var cached map[string]yahoo.IndexQuote
	found, fetchedAt, err := s.cache.Get(indicesCacheKey, &cached)
	if err != nil {
		s.log.Warn().Err(err).Msg("Index cache read failed")
		found = false
	}

	if found && time.Since(fetchedAt) <= quoteFreshFor {
		return cached, false, nil
	}

	indices, err := s.client.GetIndices(ctx)
	if err != nil {
		if found && time.Since(fetchedAt) <= staleFallback {
			s.log.Warn().Err(err).Msg("Feed failed, serving stale indices")
			return cached, true, nil
		}
		return nil, false, err
	}

	if err := s.cache.Put(indicesCacheKey, indices); err != nil {
		s.log.Warn().Err(err).Msg("Index cache write failed")
	}

	return indices, false, nil
}

// RefreshIndices fetches the index snapshot and stores it, regardless of
// cache freshness. Used by the background refresh job.
func (s *Service) RefreshIndices(ctx context.Context) error {
	indices, err := s.client.GetIndices(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh indices: %w", err)
	}

	if err := s.cache.Put(indicesCacheKey, indices); err != nil {
		return fmt.Errorf("failed to cache indices: %w", err)
	}

	return nil
}
