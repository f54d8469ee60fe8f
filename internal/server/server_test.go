package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/creditledger/internal/accounting"
	"github.com/smallbiznis/creditledger/internal/config"
	creditdomain "github.com/smallbiznis/creditledger/internal/credit/domain"
	creditrepository "github.com/smallbiznis/creditledger/internal/credit/repository"
	creditservice "github.com/smallbiznis/creditledger/internal/credit/service"
	statementdomain "github.com/smallbiznis/creditledger/internal/statement/domain"
	statementrepository "github.com/smallbiznis/creditledger/internal/statement/repository"
	statementservice "github.com/smallbiznis/creditledger/internal/statement/service"
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

func setupServer(t *testing.T) (*Server, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&userdomain.User{},
		&subscriptiondomain.Subscription{},
		&usagedomain.WorkspaceSession{},
		&creditdomain.CreditGrant{},
		&statementdomain.StatementSnapshot{},
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
	statements := statementservice.New(statementservice.Params{
		DB:            db,
		Log:           logger,
		GenID:         node,
		Engine:        accounting.NewEngine(node, logger, accounting.DebitDatePinRightBefore),
		Repo:          statementrepository.Provide(),
		Users:         users,
		Subscriptions: subscriptions,
		Credits:       credits,
		Usage:         usage,
	})

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	srv := NewServer(ServerParams{
		Gin:             engine,
		Cfg:             config.Config{AppName: "creditledger"},
		DB:              db,
		GenID:           node,
		UserSvc:         users,
		SubscriptionSvc: subscriptions,
		UsageSvc:        usage,
		CreditSvc:       credits,
		StatementSvc:    statements,
	})
	return srv, db
}

func doRequest(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func createUser(t *testing.T, srv *Server, id string, creationDate time.Time) {
	t.Helper()
	w := doRequest(t, srv, http.MethodPost, "/v1/users", gin.H{
		"id":           id,
		"creationDate": creationDate.Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestCreateAndGetUser(t *testing.T) {
	srv, _ := setupServer(t)

	creation := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	createUser(t, srv, "user-1", creation)

	w := doRequest(t, srv, http.MethodGet, "/v1/users/user-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var user userdomain.User
	decodeData(t, w, &user)
	assert.Equal(t, "user-1", user.ID)
	assert.True(t, user.CreationDate.Equal(creation))
}

func TestCreateUserWithoutIDIsRejected(t *testing.T) {
	srv, _ := setupServer(t)

	w := doRequest(t, srv, http.MethodPost, "/v1/users", gin.H{"name": "no id"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetUserNotFound(t *testing.T) {
	srv, _ := setupServer(t)

	w := doRequest(t, srv, http.MethodGet, "/v1/users/nobody", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "not_found", resp.Error.Type)
}

func TestListPlans(t *testing.T) {
	srv, _ := setupServer(t)

	w := doRequest(t, srv, http.MethodGet, "/v1/plans", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var plans []struct {
		ID string `json:"id"`
	}
	decodeData(t, w, &plans)
	assert.NotEmpty(t, plans)
}

func TestSubscribeListAndCancel(t *testing.T) {
	srv, _ := setupServer(t)

	creation := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	createUser(t, srv, "user-1", creation)

	w := doRequest(t, srv, http.MethodPost, "/v1/users/user-1/subscriptions", gin.H{
		"planId":    "basic-eur",
		"startDate": creation.AddDate(0, 0, 5).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var sub subscriptiondomain.Subscription
	decodeData(t, w, &sub)
	assert.Equal(t, "basic-eur", sub.PlanID)

	// Active list at a date inside the paid period contains the subscription.
	at := creation.AddDate(0, 0, 10).Format(time.RFC3339)
	w = doRequest(t, srv, http.MethodGet, "/v1/users/user-1/subscriptions?active=true&date="+at, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var active []subscriptiondomain.Subscription
	decodeData(t, w, &active)
	require.Len(t, active, 1)
	assert.Equal(t, sub.ID, active[0].ID)

	w = doRequest(t, srv, http.MethodPost, fmt.Sprintf("/v1/users/user-1/subscriptions/%s/cancel", sub.ID), gin.H{
		"endDate": creation.AddDate(0, 0, 20).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Cancelling twice conflicts.
	w = doRequest(t, srv, http.MethodPost, fmt.Sprintf("/v1/users/user-1/subscriptions/%s/cancel", sub.ID), gin.H{
		"endDate": creation.AddDate(0, 0, 21).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSubscribeUnknownPlan(t *testing.T) {
	srv, _ := setupServer(t)

	creation := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	createUser(t, srv, "user-1", creation)

	w := doRequest(t, srv, http.MethodPost, "/v1/users/user-1/subscriptions", gin.H{
		"planId": "no-such-plan",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "validation_error", resp.Error.Type)
}

func TestListSubscriptionsFillsFreeGaps(t *testing.T) {
	srv, _ := setupServer(t)

	creation := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	createUser(t, srv, "user-1", creation)

	end := creation.AddDate(0, 1, 0).Format(time.RFC3339)
	w := doRequest(t, srv, http.MethodGet, "/v1/users/user-1/subscriptions?end_date="+end, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var history []subscriptiondomain.Subscription
	decodeData(t, w, &history)
	require.Len(t, history, 1)
	assert.Equal(t, "free-50", history[0].PlanID)
}

func TestSessionLifecycle(t *testing.T) {
	srv, _ := setupServer(t)

	creation := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	createUser(t, srv, "user-1", creation)

	started := creation.AddDate(0, 0, 1)
	w := doRequest(t, srv, http.MethodPost, "/v1/users/user-1/sessions", gin.H{
		"workspaceId": "ws-1",
		"instanceId":  "inst-1",
		"startedAt":   started.Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var session usagedomain.WorkspaceSession
	decodeData(t, w, &session)
	assert.Equal(t, usagedomain.WorkspaceTypeRegular, session.WorkspaceType)

	stopped := started.Add(2 * time.Hour)
	w = doRequest(t, srv, http.MethodPost, "/v1/users/user-1/sessions/inst-1/stop", gin.H{
		"stoppedAt": stopped.Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	decodeData(t, w, &session)
	require.NotNil(t, session.StoppedAt)
	assert.True(t, session.StoppedAt.Equal(stopped))

	// Stopping again conflicts, stopping an unknown instance is a 404.
	w = doRequest(t, srv, http.MethodPost, "/v1/users/user-1/sessions/inst-1/stop", gin.H{})
	assert.Equal(t, http.StatusConflict, w.Code)
	w = doRequest(t, srv, http.MethodPost, "/v1/users/user-1/sessions/inst-9/stop", gin.H{})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, srv, http.MethodGet, "/v1/users/user-1/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var sessions []usagedomain.WorkspaceSession
	decodeData(t, w, &sessions)
	require.Len(t, sessions, 1)
	assert.Equal(t, "inst-1", sessions[0].InstanceID)
}

func TestListSessionsPagination(t *testing.T) {
	srv, _ := setupServer(t)

	creation := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	createUser(t, srv, "user-1", creation)

	for i := 0; i < 3; i++ {
		started := creation.Add(time.Duration(i+1) * time.Hour)
		w := doRequest(t, srv, http.MethodPost, "/v1/users/user-1/sessions", gin.H{
			"workspaceId": "ws-1",
			"instanceId":  fmt.Sprintf("inst-%d", i),
			"startedAt":   started.Format(time.RFC3339),
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := doRequest(t, srv, http.MethodGet, "/v1/users/user-1/sessions?page_size=2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page struct {
		Data     []usagedomain.WorkspaceSession `json:"data"`
		PageInfo struct {
			NextPageToken string `json:"next_page_token"`
			HasMore       bool   `json:"has_more"`
		} `json:"page_info"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Data, 2)
	require.True(t, page.PageInfo.HasMore)

	w = doRequest(t, srv, http.MethodGet, "/v1/users/user-1/sessions?page_size=2&page_token="+page.PageInfo.NextPageToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Len(t, page.Data, 1)
	assert.False(t, page.PageInfo.HasMore)
}

func TestGrantAndListCredits(t *testing.T) {
	srv, _ := setupServer(t)

	creation := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	createUser(t, srv, "user-1", creation)

	w := doRequest(t, srv, http.MethodPost, "/v1/users/user-1/credits", gin.H{
		"amount":      5,
		"date":        creation.Format(time.RFC3339),
		"description": "support goodwill",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var grant creditdomain.CreditGrant
	decodeData(t, w, &grant)
	assert.InDelta(t, 5, grant.Amount, 1e-9)

	w = doRequest(t, srv, http.MethodPost, "/v1/users/user-1/credits", gin.H{
		"amount": -1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	at := creation.AddDate(0, 0, 1).Format(time.RFC3339)
	w = doRequest(t, srv, http.MethodGet, "/v1/users/user-1/credits?date="+at, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var grants []creditdomain.CreditGrant
	decodeData(t, w, &grants)
	require.Len(t, grants, 1)
	assert.Equal(t, grant.ID, grants[0].ID)
}

func TestStatementEndpoints(t *testing.T) {
	srv, _ := setupServer(t)

	creation := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	createUser(t, srv, "user-1", creation)

	started := creation.AddDate(0, 0, 2)
	w := doRequest(t, srv, http.MethodPost, "/v1/users/user-1/sessions", gin.H{
		"workspaceId": "ws-1",
		"instanceId":  "inst-1",
		"startedAt":   started.Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = doRequest(t, srv, http.MethodPost, "/v1/users/user-1/sessions/inst-1/stop", gin.H{
		"stoppedAt": started.Add(4 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	end := creation.AddDate(0, 0, 20).Format(time.RFC3339)
	w = doRequest(t, srv, http.MethodGet, "/v1/users/user-1/statement?end_date="+end, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var stmt accounting.Statement
	decodeData(t, w, &stmt)
	require.NotEmpty(t, stmt.Credits)
	assert.Equal(t, "free-50", stmt.Credits[0].PlanID)
	require.Len(t, stmt.Debits, 1)
	assert.InDelta(t, 46, stmt.RemainingHrs.Hours, 1e-9)

	w = doRequest(t, srv, http.MethodGet, "/v1/users/user-1/remaining-hours?date="+end, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var remaining accounting.RemainingHours
	decodeData(t, w, &remaining)
	assert.False(t, remaining.Unlimited)
	assert.InDelta(t, 46, remaining.Hours, 1e-9)

	// Snapshot only exists after a refresh.
	w = doRequest(t, srv, http.MethodGet, "/v1/users/user-1/statement/snapshot", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, srv, http.MethodPost, "/v1/users/user-1/statement/refresh?end_date="+end, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doRequest(t, srv, http.MethodGet, "/v1/users/user-1/statement/snapshot", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestStatementBeforeCreationIsRejected(t *testing.T) {
	srv, _ := setupServer(t)

	creation := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	createUser(t, srv, "user-1", creation)

	end := creation.AddDate(0, 0, -5).Format(time.RFC3339)
	w := doRequest(t, srv, http.MethodGet, "/v1/users/user-1/statement?end_date="+end, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "validation_error", resp.Error.Type)
}
