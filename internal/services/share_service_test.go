package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/marcorisi/discount-codes/internal/database"
	customerrors "github.com/marcorisi/discount-codes/internal/errors"
	"github.com/marcorisi/discount-codes/internal/models"
	"github.com/marcorisi/discount-codes/internal/repository"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db    *gorm.DB
	svc   *ShareService
	users *repository.GormUserRepository
	codes *repository.GormCodeRepository
	owner *models.User
	code  *models.DiscountCode
	clock time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open("file::memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	f := &fixture{
		db:    db,
		users: repository.NewUserRepository(db),
		codes: repository.NewCodeRepository(db),
		clock: fixedNow,
	}
	f.svc = NewShareService(repository.NewShareRepository(db), f.codes, ShareSettings{MaxTTL: 30 * 24 * time.Hour})
	f.svc.now = func() time.Time { return f.clock }

	f.owner = f.addUser(t, "alice")
	f.code = f.addCode(t, func(c *models.DiscountCode) {})
	return f
}

func (f *fixture) addUser(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name, PasswordHash: "x"}
	require.NoError(t, f.users.CreateUser(context.Background(), u))
	return u
}

func (f *fixture) addCode(t *testing.T, mutate func(*models.DiscountCode)) *models.DiscountCode {
	t.Helper()
	value := "10%"
	c := &models.DiscountCode{Code: "SAVE10", StoreName: "Acme", DiscountValue: &value, UserID: &f.owner.ID}
	mutate(c)
	require.NoError(t, f.codes.CreateCode(context.Background(), c))
	return c
}

// sequence returns a token generator yielding tokens in order, then the last one forever.
func sequence(calls *int, tokens ...string) func(int) string {
	return func(int) string {
		i := *calls
		*calls++
		if i >= len(tokens) {
			i = len(tokens) - 1
		}
		return tokens[i]
	}
}

func TestShareService_CreateShareDefaults(t *testing.T) {
	f := newFixture(t)

	share, err := f.svc.CreateShare(context.Background(), f.code.ID, f.owner, nil)

	require.NoError(t, err)
	assert.Len(t, share.Token, DefaultTokenLength)
	assert.Equal(t, f.code.ID, share.DiscountCodeID)
	require.NotNil(t, share.CreatedBy)
	assert.Equal(t, f.owner.ID, *share.CreatedBy)
	assert.True(t, share.CreatedAt.Equal(fixedNow))
	assert.True(t, share.ExpiresAt.Equal(fixedNow.Add(24*time.Hour)))
	assert.Equal(t, 0, share.VisitCount)
	assert.Equal(t, "SAVE10", share.DiscountCode.Code)
}

func TestShareService_CreateShareTokenLengthSetting(t *testing.T) {
	f := newFixture(t)
	f.svc.settings.TokenLength = 12

	share, err := f.svc.CreateShare(context.Background(), f.code.ID, f.owner, nil)
	require.NoError(t, err)
	assert.Len(t, share.Token, 12)
}

func TestShareService_CreateSharePolicy(t *testing.T) {
	day := func(d time.Time) *time.Time {
		v := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		return &v
	}
	tcs := []struct {
		name   string
		mutate func(*models.DiscountCode)
		reason string
	}{
		{name: "Unused", mutate: func(c *models.DiscountCode) {}},
		{name: "ExpiresToday", mutate: func(c *models.DiscountCode) { c.ExpiryDate = day(fixedNow) }},
		{name: "ExpiresTomorrow", mutate: func(c *models.DiscountCode) { c.ExpiryDate = day(fixedNow.AddDate(0, 0, 1)) }},
		{name: "Used", mutate: func(c *models.DiscountCode) { c.IsUsed = true }, reason: "code already used"},
		{name: "ExpiredYesterday", mutate: func(c *models.DiscountCode) { c.ExpiryDate = day(fixedNow.AddDate(0, 0, -1)) }, reason: "code expired"},
	}
	for _, c := range tcs {
		t.Run(c.name, func(t *testing.T) {
			f := newFixture(t)
			code := f.addCode(t, c.mutate)

			share, err := f.svc.CreateShare(context.Background(), code.ID, f.owner, nil)
			if c.reason == "" {
				require.NoError(t, err)
				assert.NotNil(t, share)
				return
			}
			assert.Nil(t, share)
			assert.ErrorIs(t, err, customerrors.ErrNotShareable)
			var rejected customerrors.ShareRejectedError
			require.ErrorAs(t, err, &rejected)
			assert.Equal(t, c.reason, rejected.Reason)

			var count int64
			require.NoError(t, f.db.Model(&models.Share{}).Count(&count).Error)
			assert.Zero(t, count, "no share should be stored")
		})
	}
}

func TestShareService_CreateShareUnknownCode(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateShare(context.Background(), 9999, f.owner, nil)
	assert.ErrorIs(t, err, customerrors.ErrCodeNotFound)
}

func TestShareService_CreateShareExplicitExpiry(t *testing.T) {
	at := func(d time.Duration) *time.Time {
		v := fixedNow.Add(d)
		return &v
	}
	tcs := []struct {
		name    string
		expires *time.Time
		failed  bool
	}{
		{name: "InTwoDays", expires: at(48 * time.Hour)},
		{name: "AtMaxTTL", expires: at(30 * 24 * time.Hour)},
		{name: "Now", expires: at(0), failed: true},
		{name: "Past", expires: at(-time.Minute), failed: true},
		{name: "BeyondMaxTTL", expires: at(30*24*time.Hour + time.Second), failed: true},
	}
	for _, c := range tcs {
		t.Run(c.name, func(t *testing.T) {
			f := newFixture(t)
			share, err := f.svc.CreateShare(context.Background(), f.code.ID, f.owner, c.expires)
			if c.failed {
				assert.ErrorIs(t, err, customerrors.ErrInvalidExpiry)
				return
			}
			require.NoError(t, err)
			assert.True(t, share.ExpiresAt.Equal(*c.expires))
		})
	}
}

func TestShareService_CreateShareRetriesOnCollision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	existing, ok := models.NewShare(f.code.ID, &f.owner.ID, "AAAAAAAA", fixedNow, nil)
	require.True(t, ok)
	require.NoError(t, repository.NewShareRepository(f.db).CreateShare(ctx, existing))

	calls := 0
	f.svc.generate = sequence(&calls, "AAAAAAAA", "AAAAAAAA", "BBBBBBBB")

	share, err := f.svc.CreateShare(ctx, f.code.ID, f.owner, nil)

	require.NoError(t, err)
	assert.Equal(t, "BBBBBBBB", share.Token)
	assert.Equal(t, 3, calls, "generator should be called once per attempt")
}

func TestShareService_CreateShareGivesUpAfterFiveCollisions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	existing, ok := models.NewShare(f.code.ID, &f.owner.ID, "AAAAAAAA", fixedNow, nil)
	require.True(t, ok)
	require.NoError(t, repository.NewShareRepository(f.db).CreateShare(ctx, existing))

	calls := 0
	f.svc.generate = sequence(&calls, "AAAAAAAA")

	share, err := f.svc.CreateShare(ctx, f.code.ID, f.owner, nil)

	assert.Nil(t, share)
	assert.ErrorIs(t, err, customerrors.ErrTokenGenerationFailed)
	assert.Equal(t, maxTokenAttempts, calls)

	var count int64
	require.NoError(t, f.db.Model(&models.Share{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "existing share must be the only one")
}

type mockShareRepo struct {
	mock.Mock
}

func (m *mockShareRepo) CreateShare(ctx context.Context, share *models.Share) error {
	return m.Called(ctx, share).Error(0)
}

func (m *mockShareRepo) GetShareByToken(ctx context.Context, token string) (*models.Share, error) {
	args := m.Called(ctx, token)
	s, _ := args.Get(0).(*models.Share)
	return s, args.Error(1)
}

func (m *mockShareRepo) GetShareByID(ctx context.Context, id uint) (*models.Share, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*models.Share)
	return s, args.Error(1)
}

func (m *mockShareRepo) ListSharesByCreator(ctx context.Context, userID uint) ([]models.Share, error) {
	args := m.Called(ctx, userID)
	s, _ := args.Get(0).([]models.Share)
	return s, args.Error(1)
}

func (m *mockShareRepo) IncrementVisitCount(ctx context.Context, id uint) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func (m *mockShareRepo) DeleteShare(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockShareRepo) DeleteExpiredShares(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func TestShareService_CreateSharePropagatesStorageError(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("disk I/O error")
	repo := &mockShareRepo{}
	repo.On("CreateShare", mock.Anything, mock.AnythingOfType("*models.Share")).Return(boom).Once()
	svc := NewShareService(repo, f.codes, ShareSettings{})
	svc.now = func() time.Time { return fixedNow }

	share, err := svc.CreateShare(context.Background(), f.code.ID, f.owner, nil)

	assert.Nil(t, share)
	assert.Same(t, boom, err, "storage error should be returned unchanged")
	repo.AssertNumberOfCalls(t, "CreateShare", 1)
}

func TestShareService_ViewSharePropagatesIncrementError(t *testing.T) {
	boom := errors.New("database is locked")
	repo := &mockShareRepo{}
	share := &models.Share{ID: 3, Token: "tok", ExpiresAt: fixedNow.Add(time.Hour)}
	repo.On("GetShareByToken", mock.Anything, "tok").Return(share, nil)
	repo.On("IncrementVisitCount", mock.Anything, uint(3)).Return(0, boom)
	svc := NewShareService(repo, nil, ShareSettings{})
	svc.now = func() time.Time { return fixedNow }

	view, err := svc.ViewShare(context.Background(), "tok")

	assert.Nil(t, view)
	assert.ErrorIs(t, err, boom)
	repo.AssertExpectations(t)
}

func TestShareService_ViewShare(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	share, err := f.svc.CreateShare(ctx, f.code.ID, f.owner, nil)
	require.NoError(t, err)

	view, err := f.svc.ViewShare(ctx, share.Token)
	require.NoError(t, err)
	assert.False(t, view.Expired)
	assert.Equal(t, 1, view.Share.VisitCount)
	require.NotNil(t, view.Code)
	assert.Equal(t, "SAVE10", view.Code.Code)
	assert.Equal(t, "Acme", view.Code.StoreName)

	view, err = f.svc.ViewShare(ctx, share.Token)
	require.NoError(t, err)
	assert.Equal(t, 2, view.Share.VisitCount)
}

func TestShareService_ViewShareAtExactExpiryIsValid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	share, err := f.svc.CreateShare(ctx, f.code.ID, f.owner, nil)
	require.NoError(t, err)

	f.clock = share.ExpiresAt
	view, err := f.svc.ViewShare(ctx, share.Token)
	require.NoError(t, err)
	assert.False(t, view.Expired)
	assert.Equal(t, 1, view.Share.VisitCount)
}

func TestShareService_ViewExpiredShareIsNotCounted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	share, err := f.svc.CreateShare(ctx, f.code.ID, f.owner, nil)
	require.NoError(t, err)
	_, err = f.svc.ViewShare(ctx, share.Token)
	require.NoError(t, err)

	f.clock = fixedNow.Add(25 * time.Hour)
	view, err := f.svc.ViewShare(ctx, share.Token)
	require.NoError(t, err)
	assert.True(t, view.Expired)
	assert.Nil(t, view.Code, "expired view must not expose the code")

	stats, err := f.svc.ShareStats(ctx, share.Token)
	require.NoError(t, err)
	assert.True(t, stats.Expired)
	assert.Equal(t, 1, stats.Share.VisitCount, "expired views leave the counter unchanged")
}

func TestShareService_ViewUnknownToken(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ViewShare(context.Background(), "nOpE1234")
	assert.ErrorIs(t, err, customerrors.ErrShareNotFound)
}

func TestShareService_ViewIgnoresCodeStateAfterCreation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	share, err := f.svc.CreateShare(ctx, f.code.ID, f.owner, nil)
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&models.DiscountCode{}).Where("id = ?", f.code.ID).Update("is_used", true).Error)

	view, err := f.svc.ViewShare(ctx, share.Token)
	require.NoError(t, err)
	assert.False(t, view.Expired)
	assert.True(t, view.Code.IsUsed)
}

func TestShareService_ConcurrentViewsCountEach(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	share, err := f.svc.CreateShare(ctx, f.code.ID, f.owner, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ViewShare(ctx, share.Token)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stats, err := f.svc.ShareStats(ctx, share.Token)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Share.VisitCount)
}

func TestShareService_StatsDoesNotCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	share, err := f.svc.CreateShare(ctx, f.code.ID, f.owner, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		stats, err := f.svc.ShareStats(ctx, share.Token)
		require.NoError(t, err)
		assert.Equal(t, 0, stats.Share.VisitCount)
		assert.False(t, stats.Expired)
	}
}

func TestShareService_ListShares(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bob := f.addUser(t, "bob")

	first, err := f.svc.CreateShare(ctx, f.code.ID, f.owner, nil)
	require.NoError(t, err)
	f.clock = fixedNow.Add(time.Minute)
	second, err := f.svc.CreateShare(ctx, f.code.ID, f.owner, nil)
	require.NoError(t, err)
	_, err = f.svc.CreateShare(ctx, f.code.ID, bob, nil)
	require.NoError(t, err)

	shares, err := f.svc.ListShares(ctx, f.owner)
	require.NoError(t, err)
	require.Len(t, shares, 2)
	assert.Equal(t, second.ID, shares[0].ID)
	assert.Equal(t, first.ID, shares[1].ID)
}

func TestShareService_DeleteShare(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bob := f.addUser(t, "bob")
	share, err := f.svc.CreateShare(ctx, f.code.ID, f.owner, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.DeleteShare(ctx, share.ID, bob), customerrors.ErrForbidden)
	assert.ErrorIs(t, f.svc.DeleteShare(ctx, share.ID, nil), customerrors.ErrForbidden)
	assert.ErrorIs(t, f.svc.DeleteShare(ctx, 9999, f.owner), customerrors.ErrShareNotFound)

	require.NoError(t, f.svc.DeleteShare(ctx, share.ID, f.owner))
	_, err = f.svc.ViewShare(ctx, share.Token)
	assert.ErrorIs(t, err, customerrors.ErrShareNotFound)
}

func TestShareService_PurgeExpiredShares(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	old, err := f.svc.CreateShare(ctx, f.code.ID, f.owner, nil)
	require.NoError(t, err)
	f.clock = fixedNow.Add(20 * time.Hour)
	fresh, err := f.svc.CreateShare(ctx, f.code.ID, f.owner, nil)
	require.NoError(t, err)

	// old expired 2h ago, fresh expires in 18h
	f.clock = fixedNow.Add(26 * time.Hour)

	n, err := f.svc.PurgeExpiredShares(ctx, 3*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n, "old has not been expired for three hours yet")

	n, err = f.svc.PurgeExpiredShares(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = f.svc.ShareStats(ctx, old.Token)
	assert.ErrorIs(t, err, customerrors.ErrShareNotFound)
	_, err = f.svc.ShareStats(ctx, fresh.Token)
	assert.NoError(t, err)
}

func TestShareURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8080/shares/AbC12345", ShareURL("http://localhost:8080", "AbC12345"))
	assert.Equal(t, "https://codes.example/shares/AbC12345", ShareURL("https://codes.example/", "AbC12345"))
}
