package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/creditledger/internal/accounting"
	creditdomain "github.com/smallbiznis/creditledger/internal/credit/domain"
	creditrepository "github.com/smallbiznis/creditledger/internal/credit/repository"
	creditservice "github.com/smallbiznis/creditledger/internal/credit/service"
	"github.com/smallbiznis/creditledger/internal/statement/domain"
	statementrepository "github.com/smallbiznis/creditledger/internal/statement/repository"
	subscriptiondomain "github.com/smallbiznis/creditledger/internal/subscription/domain"
	subscriptionrepository "github.com/smallbiznis/creditledger/internal/subscription/repository"
	subscriptionservice "github.com/smallbiznis/creditledger/internal/subscription/service"
	usagedomain "github.com/smallbiznis/creditledger/internal/usage/domain"
	usagerepository "github.com/smallbiznis/creditledger/internal/usage/repository"
	usageservice "github.com/smallbiznis/creditledger/internal/usage/service"
	userdomain "github.com/smallbiznis/creditledger/internal/user/domain"
	userrepository "github.com/smallbiznis/creditledger/internal/user/repository"
	userservice "github.com/smallbiznis/creditledger/internal/user/service"
)

func setupService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&userdomain.User{},
		&subscriptiondomain.Subscription{},
		&usagedomain.WorkspaceSession{},
		&creditdomain.CreditGrant{},
		&domain.StatementSnapshot{},
	)
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	logger := zap.NewNop()

	users := userservice.New(userservice.Params{
		DB: db, Log: logger, Repo: userrepository.Provide(),
	})
	subscriptions := subscriptionservice.New(subscriptionservice.Params{
		DB: db, Log: logger, GenID: node, Repo: subscriptionrepository.Provide(),
	})
	credits := creditservice.New(creditservice.Params{
		DB: db, Log: logger, GenID: node, Repo: creditrepository.Provide(),
	})
	usage := usageservice.New(usageservice.Params{
		DB: db, Log: logger, GenID: node, Repo: usagerepository.Provide(),
	})
	engine := accounting.NewEngine(node, logger, accounting.DebitDatePinRightBefore)

	svc := New(Params{
		DB:            db,
		Log:           logger,
		GenID:         node,
		Engine:        engine,
		Repo:          statementrepository.Provide(),
		Users:         users,
		Subscriptions: subscriptions,
		Credits:       credits,
		Usage:         usage,
	})
	return svc, db
}

func seedUser(t *testing.T, db *gorm.DB, id string, creationDate time.Time) userdomain.User {
	t.Helper()
	user := userdomain.User{ID: id, CreationDate: creationDate}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedSubscription(t *testing.T, db *gorm.DB, sub subscriptiondomain.Subscription) {
	t.Helper()
	require.NoError(t, db.Create(&sub).Error)
}

func seedSession(t *testing.T, db *gorm.DB, id int64, userID string, start, end time.Time) {
	t.Helper()
	s, e := start, end
	session := usagedomain.WorkspaceSession{
		ID:            snowflake.ID(id),
		UserID:        userID,
		WorkspaceID:   "ws-1",
		InstanceID:    snowflake.ID(id).String(),
		WorkspaceType: usagedomain.WorkspaceTypeRegular,
		StartedAt:     &s,
		StoppedAt:     &e,
	}
	require.NoError(t, db.Create(&session).Error)
}

func TestGetAccountStatementUnknownUser(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.GetAccountStatement(context.Background(), "nobody", time.Now().UTC())
	assert.ErrorIs(t, err, userdomain.ErrUserNotFound)
}

func TestGetAccountStatementFreePlanOnly(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()

	creation := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	seedUser(t, db, "user-1", creation)
	seedSession(t, db, 100, "user-1", creation.AddDate(0, 0, 5), creation.AddDate(0, 0, 5).Add(4*time.Hour))

	stmt, err := svc.GetAccountStatement(ctx, "user-1", creation.AddDate(0, 0, 20))
	require.NoError(t, err)

	// The synthesized free-50 subscription covers the whole window.
	require.NotEmpty(t, stmt.Credits)
	assert.Equal(t, "free-50", stmt.Credits[0].PlanID)
	assert.InDelta(t, 50, stmt.Credits[0].Amount, 1e-9)

	require.Len(t, stmt.Debits, 1)
	assert.Equal(t, accounting.DebitKindSession, stmt.Debits[0].Kind)
	assert.InDelta(t, -4, stmt.Debits[0].Amount, 1e-9)

	assert.False(t, stmt.RemainingHrs.Unlimited)
	assert.InDelta(t, 46, stmt.RemainingHrs.Hours, 1e-9)
}

func TestGetAccountStatementPaidAndGrant(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()

	creation := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	seedUser(t, db, "user-1", creation)
	seedSubscription(t, db, subscriptiondomain.Subscription{
		ID:        snowflake.ID(7),
		UserID:    "user-1",
		PlanID:    "basic-eur",
		Amount:    100,
		StartDate: creation,
	})
	grantExpiry := creation.AddDate(0, 0, 10)
	require.NoError(t, db.Create(&creditdomain.CreditGrant{
		ID:         snowflake.ID(8),
		UserID:     "user-1",
		Amount:     5,
		Date:       creation,
		ExpiryDate: &grantExpiry,
	}).Error)
	seedSession(t, db, 100, "user-1", creation.AddDate(0, 0, 2), creation.AddDate(0, 0, 2).Add(3*time.Hour))

	stmt, err := svc.GetAccountStatement(ctx, "user-1", creation.AddDate(0, 0, 20))
	require.NoError(t, err)

	// The grant expires before the subscription credit and is consumed first.
	sessionDebit := stmt.Debits[0]
	assert.Equal(t, accounting.DebitKindSession, sessionDebit.Kind)
	assert.Equal(t, snowflake.ID(8).String(), sessionDebit.CreditID)

	// 100h subscription credit untouched, grant leftover expired.
	assert.InDelta(t, 100, stmt.RemainingHrs.Hours, 1e-9)
}

func TestRefreshStatementReplacesSnapshot(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()

	creation := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	seedUser(t, db, "user-1", creation)

	_, err := svc.RefreshStatement(ctx, "user-1", creation.AddDate(0, 0, 10))
	require.NoError(t, err)
	first, err := svc.GetSnapshot(ctx, "user-1")
	require.NoError(t, err)

	_, err = svc.RefreshStatement(ctx, "user-1", creation.AddDate(0, 0, 15))
	require.NoError(t, err)
	second, err := svc.GetSnapshot(ctx, "user-1")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID, "refresh replaces, never appends")
	assert.True(t, second.EndDate.After(first.EndDate))

	var count int64
	require.NoError(t, db.Model(&domain.StatementSnapshot{}).Where("user_id = ?", "user-1").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestGetSnapshotNotFound(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.GetSnapshot(context.Background(), "user-1")
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
}

func TestGetRemainingUsageHoursUnlimitedPlan(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()

	creation := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	seedUser(t, db, "user-1", creation)
	seedSubscription(t, db, subscriptiondomain.Subscription{
		ID:        snowflake.ID(7),
		UserID:    "user-1",
		PlanID:    "professional-eur",
		Amount:    11904,
		StartDate: creation,
	})

	remaining, err := svc.GetRemainingUsageHours(ctx, domain.RemainingUsageRequest{
		UserID:       "user-1",
		Date:         creation.AddDate(0, 0, 10),
		NumInstances: 1,
	})
	require.NoError(t, err)
	assert.True(t, remaining.Unlimited)
}
