package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"redirect-server/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==================== MOCKS ====================

type MockRedirectRepository struct {
	mock.Mock
}

func (m *MockRedirectRepository) FindTarget(ctx context.Context, identifier string) (*domain.RedirectTarget, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RedirectTarget), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetTarget(ctx context.Context, identifier string) (*domain.RedirectTarget, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RedirectTarget), args.Error(1)
}

func (m *MockCache) SetTarget(ctx context.Context, identifier string, target *domain.RedirectTarget) error {
	args := m.Called(ctx, identifier, target)
	return args.Error(0)
}

func (m *MockCache) DeleteTarget(ctx context.Context, identifier string) error {
	args := m.Called(ctx, identifier)
	return args.Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ==================== TESTS ====================

func TestResolve_FoundAndActive(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRedirectRepository)
	service := NewRedirectService(repo, nil, discardLogger())

	stored := &domain.RedirectTarget{
		Identifier:     "abc",
		DestinationURL: "https://example.com/x",
		Active:         true,
	}
	repo.On("FindTarget", ctx, "abc").Return(stored, nil)

	target, err := service.Resolve(ctx, "abc")

	require.NoError(t, err)
	assert.Equal(t, "https://example.com/x", target.DestinationURL)
	repo.AssertExpectations(t)
}

func TestResolve_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRedirectRepository)
	service := NewRedirectService(repo, nil, discardLogger())

	repo.On("FindTarget", ctx, "missing").Return(nil, domain.ErrTargetNotFound)

	target, err := service.Resolve(ctx, "missing")

	assert.Nil(t, target)
	assert.ErrorIs(t, err, domain.ErrTargetNotFound)
}

func TestResolve_InactiveTreatedAsNotFound(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRedirectRepository)
	service := NewRedirectService(repo, nil, discardLogger())

	repo.On("FindTarget", ctx, "paused").Return(&domain.RedirectTarget{
		Identifier:     "paused",
		DestinationURL: "https://example.com/x",
		Active:         false,
	}, nil)

	target, err := service.Resolve(ctx, "paused")

	assert.Nil(t, target)
	assert.ErrorIs(t, err, domain.ErrTargetNotFound)
}

func TestResolve_StoreErrorIsNotNotFound(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRedirectRepository)
	service := NewRedirectService(repo, nil, discardLogger())

	repo.On("FindTarget", ctx, "abc").Return(nil, errors.New("connection refused"))

	target, err := service.Resolve(ctx, "abc")

	assert.Nil(t, target)
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrTargetNotFound))
}

func TestResolve_EmptyIdentifier(t *testing.T) {
	repo := new(MockRedirectRepository)
	service := NewRedirectService(repo, nil, discardLogger())

	_, err := service.Resolve(context.Background(), "")

	assert.ErrorIs(t, err, domain.ErrTargetNotFound)
	repo.AssertNotCalled(t, "FindTarget")
}

func TestResolve_CacheHitSkipsDatabase(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRedirectRepository)
	cache := new(MockCache)
	service := NewRedirectService(repo, cache, discardLogger())

	cached := &domain.RedirectTarget{
		Identifier:     "abc",
		DestinationURL: "https://example.com/x",
		Active:         true,
	}
	cache.On("GetTarget", ctx, "abc").Return(cached, nil)

	target, err := service.Resolve(ctx, "abc")

	require.NoError(t, err)
	assert.Equal(t, cached, target)
	repo.AssertNotCalled(t, "FindTarget")
}

func TestResolve_CacheMissFallsThroughAndBackfills(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRedirectRepository)
	cache := new(MockCache)
	service := NewRedirectService(repo, cache, discardLogger())

	stored := &domain.RedirectTarget{
		Identifier:     "abc",
		DestinationURL: "https://example.com/x",
		Active:         true,
	}
	cache.On("GetTarget", ctx, "abc").Return(nil, nil)
	repo.On("FindTarget", ctx, "abc").Return(stored, nil)
	cache.On("SetTarget", ctx, "abc", stored).Return(nil)

	target, err := service.Resolve(ctx, "abc")

	require.NoError(t, err)
	assert.Equal(t, stored, target)
	cache.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestResolve_DeactivatedTargetInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRedirectRepository)
	cache := new(MockCache)
	service := NewRedirectService(repo, cache, discardLogger())

	cache.On("GetTarget", ctx, "paused").Return(nil, nil)
	repo.On("FindTarget", ctx, "paused").Return(&domain.RedirectTarget{
		Identifier:     "paused",
		DestinationURL: "https://example.com/x",
		Active:         false,
	}, nil)
	cache.On("DeleteTarget", ctx, "paused").Return(nil)

	_, err := service.Resolve(ctx, "paused")

	assert.ErrorIs(t, err, domain.ErrTargetNotFound)
	cache.AssertCalled(t, "DeleteTarget", ctx, "paused")
	cache.AssertNotCalled(t, "SetTarget")
}

func TestResolve_MissingTargetInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRedirectRepository)
	cache := new(MockCache)
	service := NewRedirectService(repo, cache, discardLogger())

	cache.On("GetTarget", ctx, "gone").Return(nil, nil)
	repo.On("FindTarget", ctx, "gone").Return(nil, domain.ErrTargetNotFound)
	cache.On("DeleteTarget", ctx, "gone").Return(nil)

	_, err := service.Resolve(ctx, "gone")

	assert.ErrorIs(t, err, domain.ErrTargetNotFound)
	cache.AssertCalled(t, "DeleteTarget", ctx, "gone")
}

func TestResolve_CacheErrorFallsThroughToDatabase(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRedirectRepository)
	cache := new(MockCache)
	service := NewRedirectService(repo, cache, discardLogger())

	stored := &domain.RedirectTarget{
		Identifier:     "abc",
		DestinationURL: "https://example.com/x",
		Active:         true,
	}
	cache.On("GetTarget", ctx, "abc").Return(nil, errors.New("redis down"))
	repo.On("FindTarget", ctx, "abc").Return(stored, nil)
	cache.On("SetTarget", ctx, "abc", stored).Return(nil)

	target, err := service.Resolve(ctx, "abc")

	require.NoError(t, err)
	assert.Equal(t, stored, target)
}
