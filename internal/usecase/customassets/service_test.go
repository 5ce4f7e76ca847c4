package customassets

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wealthapp/wealth-backend/internal/domain"
	"github.com/wealthapp/wealth-backend/internal/usecase/balance"
)

// MockUserRepository is a mock implementation of UserRepository for testing
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]*domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

func (m *MockUserRepository) SaveCustomAsset(ctx context.Context, userID uuid.UUID, asset *domain.CustomAsset) error {
	args := m.Called(ctx, userID, asset)
	return args.Error(0)
}

func (m *MockUserRepository) SaveStockPosition(ctx context.Context, userID uuid.UUID, position *domain.StockPosition) error {
	args := m.Called(ctx, userID, position)
	return args.Error(0)
}

// MockBalanceRepository is a mock implementation of BalanceRepository for testing
type MockBalanceRepository struct {
	mock.Mock
}

func (m *MockBalanceRepository) Replace(ctx context.Context, assetID uuid.UUID, balances []domain.DailyValue) error {
	args := m.Called(ctx, assetID, balances)
	return args.Error(0)
}

// identityConverter passes amounts through unchanged
type identityConverter struct{}

func (identityConverter) ToEuro(_ context.Context, amount decimal.Decimal, _ domain.Currency, _ domain.Date) (decimal.Decimal, error) {
	return amount, nil
}

// newTestService wires a Service with today frozen at 2020-02-15
func newTestService(users *MockUserRepository, balances *MockBalanceRepository) *Service {
	interpolator := balance.NewInterpolator(identityConverter{})
	interpolator.Today = func() domain.Date { return domain.MustParseDate("2020-02-15") }
	service := NewService(users, balances, interpolator)
	service.now = func() domain.Date { return domain.MustParseDate("2020-02-15") }
	return service
}

func TestCreate_SeedsInitialEventAndStoresBalances(t *testing.T) {
	ctx := context.Background()
	mockUsers := new(MockUserRepository)
	mockBalances := new(MockBalanceRepository)
	service := newTestService(mockUsers, mockBalances)

	userID := uuid.New()
	mockUsers.On("SaveCustomAsset", ctx, userID, mock.MatchedBy(func(asset *domain.CustomAsset) bool {
		return len(asset.Events) == 1 && len(asset.Balances) == 15
	})).Return(nil)
	mockBalances.On("Replace", ctx, mock.Anything, mock.Anything).Return(nil)

	// Execute
	asset, err := service.Create(ctx, userID, domain.CurrencyEUR, "apartment", decimal.NewFromInt(500), domain.MustParseDate("2020-02-01"))

	// Assert: one event, daily values from 02-01 through today
	require.NoError(t, err)
	require.Len(t, asset.Events, 1)
	assert.Len(t, asset.Balances, 15)
	assert.True(t, decimal.NewFromInt(500).Equal(asset.Balances[14].Amount))
	mockUsers.AssertExpectations(t)
	mockBalances.AssertExpectations(t)
}

func TestCreate_RejectsFutureEvent(t *testing.T) {
	ctx := context.Background()
	mockUsers := new(MockUserRepository)
	service := newTestService(mockUsers, new(MockBalanceRepository))

	_, err := service.Create(ctx, uuid.New(), domain.CurrencyEUR, "apartment", decimal.NewFromInt(500), domain.MustParseDate("2020-02-16"))

	assert.Error(t, err)
	mockUsers.AssertNotCalled(t, "SaveCustomAsset")
}

func TestUpsertEvent_SameDateUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	mockUsers := new(MockUserRepository)
	mockBalances := new(MockBalanceRepository)
	service := newTestService(mockUsers, mockBalances)

	userID := uuid.New()
	asset := &domain.CustomAsset{
		AssetID:  uuid.New(),
		Currency: domain.CurrencyEUR,
		Events: []domain.AssetEvent{
			{Date: domain.MustParseDate("2020-02-01"), Amount: decimal.NewFromInt(500)},
		},
	}
	user := &domain.User{ID: userID, CustomAssets: []*domain.CustomAsset{asset}}

	mockUsers.On("GetByID", ctx, userID).Return(user, nil)
	mockUsers.On("SaveCustomAsset", ctx, userID, asset).Return(nil)
	mockBalances.On("Replace", ctx, asset.AssetID, mock.Anything).Return(nil)

	// Execute: a second reading on the same day replaces the first
	err := service.UpsertEvent(ctx, userID, asset.AssetID, domain.AssetEvent{
		Date:   domain.MustParseDate("2020-02-01"),
		Amount: decimal.NewFromInt(650),
	})

	// Assert
	require.NoError(t, err)
	require.Len(t, asset.Events, 1)
	assert.True(t, decimal.NewFromInt(650).Equal(asset.Events[0].Amount))
	assert.True(t, decimal.NewFromInt(650).Equal(asset.Balances[0].Amount))
	mockUsers.AssertExpectations(t)
	mockBalances.AssertExpectations(t)
}

func TestUpsertEvent_NewDateAppends(t *testing.T) {
	ctx := context.Background()
	mockUsers := new(MockUserRepository)
	mockBalances := new(MockBalanceRepository)
	service := newTestService(mockUsers, mockBalances)

	userID := uuid.New()
	asset := &domain.CustomAsset{
		AssetID:  uuid.New(),
		Currency: domain.CurrencyEUR,
		Events: []domain.AssetEvent{
			{Date: domain.MustParseDate("2020-02-01"), Amount: decimal.NewFromInt(500)},
		},
	}
	user := &domain.User{ID: userID, CustomAssets: []*domain.CustomAsset{asset}}

	mockUsers.On("GetByID", ctx, userID).Return(user, nil)
	mockUsers.On("SaveCustomAsset", ctx, userID, asset).Return(nil)
	mockBalances.On("Replace", ctx, asset.AssetID, mock.Anything).Return(nil)

	err := service.UpsertEvent(ctx, userID, asset.AssetID, domain.AssetEvent{
		Date:   domain.MustParseDate("2020-02-06"),
		Amount: decimal.NewFromInt(600),
	})

	require.NoError(t, err)
	assert.Len(t, asset.Events, 2)
	// 02-01 through 02-15: 500 carried until the 02-06 reading takes over
	require.Len(t, asset.Balances, 15)
	assert.True(t, decimal.NewFromInt(500).Equal(asset.Balances[4].Amount))
	assert.True(t, decimal.NewFromInt(600).Equal(asset.Balances[5].Amount))
}

func TestUpsertEvent_UnknownAsset(t *testing.T) {
	ctx := context.Background()
	mockUsers := new(MockUserRepository)
	service := newTestService(mockUsers, new(MockBalanceRepository))

	userID := uuid.New()
	user := &domain.User{ID: userID}
	mockUsers.On("GetByID", ctx, userID).Return(user, nil)

	err := service.UpsertEvent(ctx, userID, uuid.New(), domain.AssetEvent{
		Date:   domain.MustParseDate("2020-02-01"),
		Amount: decimal.NewFromInt(500),
	})

	assert.ErrorIs(t, err, domain.ErrNotFound)
	mockUsers.AssertNotCalled(t, "SaveCustomAsset")
}

func TestRemoveEvent_MissingDate(t *testing.T) {
	ctx := context.Background()
	mockUsers := new(MockUserRepository)
	service := newTestService(mockUsers, new(MockBalanceRepository))

	userID := uuid.New()
	asset := &domain.CustomAsset{
		AssetID:  uuid.New(),
		Currency: domain.CurrencyEUR,
		Events: []domain.AssetEvent{
			{Date: domain.MustParseDate("2020-02-01"), Amount: decimal.NewFromInt(500)},
		},
	}
	user := &domain.User{ID: userID, CustomAssets: []*domain.CustomAsset{asset}}
	mockUsers.On("GetByID", ctx, userID).Return(user, nil)

	err := service.RemoveEvent(ctx, userID, asset.AssetID, domain.MustParseDate("2020-02-02"))

	assert.ErrorIs(t, err, domain.ErrNotFound)
	mockUsers.AssertNotCalled(t, "SaveCustomAsset")
}

func TestRemoveEvent_RecomputesRemainingHistory(t *testing.T) {
	ctx := context.Background()
	mockUsers := new(MockUserRepository)
	mockBalances := new(MockBalanceRepository)
	service := newTestService(mockUsers, mockBalances)

	userID := uuid.New()
	asset := &domain.CustomAsset{
		AssetID:  uuid.New(),
		Currency: domain.CurrencyEUR,
		Events: []domain.AssetEvent{
			{Date: domain.MustParseDate("2020-02-01"), Amount: decimal.NewFromInt(500)},
			{Date: domain.MustParseDate("2020-02-06"), Amount: decimal.NewFromInt(600)},
		},
	}
	user := &domain.User{ID: userID, CustomAssets: []*domain.CustomAsset{asset}}

	mockUsers.On("GetByID", ctx, userID).Return(user, nil)
	mockUsers.On("SaveCustomAsset", ctx, userID, asset).Return(nil)
	mockBalances.On("Replace", ctx, asset.AssetID, mock.MatchedBy(func(balances []domain.DailyValue) bool {
		return len(balances) == 15
	})).Return(nil)

	// Execute: dropping the 02-06 reading extends the 500 carry to today
	err := service.RemoveEvent(ctx, userID, asset.AssetID, domain.MustParseDate("2020-02-06"))

	// Assert
	require.NoError(t, err)
	require.Len(t, asset.Events, 1)
	assert.True(t, decimal.NewFromInt(500).Equal(asset.Balances[14].Amount))
	mockBalances.AssertExpectations(t)
}

func TestPopulateBalances_EmptyAsset(t *testing.T) {
	ctx := context.Background()
	service := newTestService(new(MockUserRepository), new(MockBalanceRepository))

	asset := &domain.CustomAsset{AssetID: uuid.New(), Currency: domain.CurrencyEUR}

	series, err := service.PopulateBalances(ctx, asset)

	require.NoError(t, err)
	assert.Empty(t, series)
}

func TestRecomputeAllBalances_IsolatesUserFailures(t *testing.T) {
	ctx := context.Background()
	mockUsers := new(MockUserRepository)
	mockBalances := new(MockBalanceRepository)
	service := newTestService(mockUsers, mockBalances)

	healthyAsset := &domain.CustomAsset{
		AssetID:  uuid.New(),
		Currency: domain.CurrencyEUR,
		Events: []domain.AssetEvent{
			{Date: domain.MustParseDate("2020-02-01"), Amount: decimal.NewFromInt(500)},
		},
	}
	brokenAsset := &domain.CustomAsset{
		AssetID:  uuid.New(),
		Currency: domain.CurrencyEUR,
		Events: []domain.AssetEvent{
			{Date: domain.MustParseDate("2020-02-01"), Amount: decimal.NewFromInt(300)},
		},
	}
	healthyUser := &domain.User{ID: uuid.New(), CustomAssets: []*domain.CustomAsset{healthyAsset}}
	brokenUser := &domain.User{ID: uuid.New(), CustomAssets: []*domain.CustomAsset{brokenAsset}}

	mockUsers.On("List", ctx).Return([]*domain.User{brokenUser, healthyUser}, nil)
	mockBalances.On("Replace", ctx, brokenAsset.AssetID, mock.Anything).Return(errors.New("store down"))
	mockBalances.On("Replace", ctx, healthyAsset.AssetID, mock.Anything).Return(nil)

	// Execute
	err := service.RecomputeAllBalances(ctx)

	// Assert: the healthy user's balances were replaced despite the failure
	assert.Error(t, err)
	assert.Contains(t, err.Error(), brokenUser.ID.String())
	assert.Len(t, healthyAsset.Balances, 15)
	mockBalances.AssertExpectations(t)
}
