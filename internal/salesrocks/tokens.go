package salesrocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonathan/prospect-analyzer/internal/db"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// expirySafetyMargin is subtracted from a fresh token's lifetime.
const expirySafetyMargin = 300 * time.Second

const tokenCacheKey = "access_token"

// TokenStore persists provider tokens across restarts.
type TokenStore interface {
	SaveProviderToken(ctx context.Context, tok db.ProviderToken) error
	LatestProviderToken(ctx context.Context, now time.Time) (*db.ProviderToken, error)
}

// AuthFunc obtains a fresh token from the provider.
type AuthFunc func(ctx context.Context) (*AuthResult, error)

// TokenManager hands out a valid access token: the in-memory cache first,
// then the newest unexpired persisted token, then a fresh authentication.
type TokenManager struct {
	auth   AuthFunc
	store  TokenStore // may be nil
	cache  *cache.Cache
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex // serializes refreshes
	rejected string     // last token the provider refused; never reloaded from the store
}

// NewTokenManager creates a TokenManager. store may be nil.
func NewTokenManager(auth AuthFunc, store TokenStore, logger *zap.Logger) *TokenManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenManager{
		auth:   auth,
		store:  store,
		cache:  cache.New(cache.NoExpiration, 10*time.Minute),
		logger: logger.Named("tokens"),
		now:    time.Now,
	}
}

// Token returns a valid access token.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	if tok, ok := m.cached(); ok {
		return tok, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Another caller may have refreshed while we waited.
	if tok, ok := m.cached(); ok {
		return tok, nil
	}

	now := m.now()
	if m.store != nil {
		stored, err := m.store.LatestProviderToken(ctx, now)
		if err != nil {
			m.logger.Warn("Failed to read persisted provider token", zap.Error(err))
		} else if stored != nil && stored.ExpiresAt.After(now) && stored.AccessToken != m.rejected {
			m.logger.Debug("Using persisted provider token", zap.Time("expires_at", stored.ExpiresAt))
			m.cache.Set(tokenCacheKey, stored.AccessToken, stored.ExpiresAt.Sub(now))
			return stored.AccessToken, nil
		}
	}

	auth, err := m.auth(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to authenticate with Sales.rocks: %w", err)
	}

	ttl := TokenLifetime(auth.ExpiresIn)
	if m.store != nil {
		saveErr := m.store.SaveProviderToken(ctx, db.ProviderToken{
			AccessToken: auth.AccessToken,
			TokenType:   auth.TokenType,
			ExpiresAt:   now.Add(ttl),
		})
		if saveErr != nil {
			m.logger.Error("Failed to persist provider token", zap.Error(saveErr))
		}
	}

	m.cache.Set(tokenCacheKey, auth.AccessToken, ttl)
	m.logger.Info("Obtained provider access token", zap.Duration("ttl", ttl))
	return auth.AccessToken, nil
}

// Invalidate drops the current token after the provider refused it. The next
// Token call authenticates again instead of reusing the persisted copy.
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tok, ok := m.cached(); ok {
		m.rejected = tok
	}
	m.cache.Delete(tokenCacheKey)
}

func (m *TokenManager) cached() (string, bool) {
	v, found := m.cache.Get(tokenCacheKey)
	if !found {
		return "", false
	}
	tok, ok := v.(string)
	return tok, ok && tok != ""
}

// TokenLifetime converts a provider expires_in into the cache lifetime,
// keeping a five minute safety margin when the token lives long enough.
func TokenLifetime(expiresIn int) time.Duration {
	if expiresIn <= 0 {
		expiresIn = defaultExpiresIn
	}
	full := time.Duration(expiresIn) * time.Second
	if full <= expirySafetyMargin {
		return full
	}
	return full - expirySafetyMargin
}
