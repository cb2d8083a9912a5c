package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	accountdomain "github.com/prepdeck/metering/internal/account/domain"
	accountrepository "github.com/prepdeck/metering/internal/account/repository"
	accountservice "github.com/prepdeck/metering/internal/account/service"
	"github.com/prepdeck/metering/internal/clock"
	"github.com/prepdeck/metering/internal/config"
	usagedomain "github.com/prepdeck/metering/internal/usage/domain"
	"github.com/prepdeck/metering/internal/usage/policy"
	usageservice "github.com/prepdeck/metering/internal/usage/service"
	visitordomain "github.com/prepdeck/metering/internal/visitor/domain"
	visitorrepository "github.com/prepdeck/metering/internal/visitor/repository"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testJWTSecret = "test-secret"

type harness struct {
	server *Server
	db     *gorm.DB
	node   *snowflake.Node
	clock  *clock.FakeClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	assert.NoError(t, err)

	sqlDB, err := db.DB()
	assert.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	assert.NoError(t, db.AutoMigrate(&accountdomain.Account{}, &visitordomain.VisitorUsage{}))

	node, err := snowflake.NewNode(1)
	assert.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	log := zap.NewNop()
	quota := config.StaticQuota(policy.DefaultLimits())

	accounts := accountrepository.NewRepository(db)
	visitors := visitorrepository.NewRepository(db, node)

	usageSvc := usageservice.NewService(usageservice.ServiceParam{
		Log:      log,
		Clock:    fake,
		Quota:    quota,
		Visitors: visitors,
		Accounts: accounts,
	})
	accountSvc := accountservice.NewService(accountservice.ServiceParam{
		Log:      log,
		Clock:    fake,
		Accounts: accounts,
	})

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	srv := NewServer(ServerParams{
		Gin:        engine,
		Cfg:        config.Config{AuthJWTSecret: testJWTSecret},
		Log:        log,
		Quota:      quota,
		UsageSvc:   usageSvc,
		AccountSvc: accountSvc,
	})
	srv.RegisterRoutes()

	return &harness{server: srv, db: db, node: node, clock: fake}
}

func (h *harness) createAccount(t *testing.T, plan accountdomain.PlanType) *accountdomain.Account {
	t.Helper()
	account := &accountdomain.Account{
		ID:        h.node.Generate(),
		Email:     fmt.Sprintf("%s@prepdeck.local", h.node.Generate()),
		PlanType:  plan,
		CreatedAt: h.clock.Now(),
		UpdatedAt: h.clock.Now(),
	}
	assert.NoError(t, h.db.Create(account).Error)
	return account
}

func (h *harness) token(t *testing.T, id snowflake.ID) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": id.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testJWTSecret))
	assert.NoError(t, err)
	return signed
}

func (h *harness) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		assert.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "10.1.2.3:40000"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.server.Engine().ServeHTTP(w, req)
	return w
}

func decodeStatus(t *testing.T, w *httptest.ResponseRecorder) usagedomain.UsageStatus {
	t.Helper()
	var status usagedomain.UsageStatus
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	return status
}

func decodeTrack(t *testing.T, w *httptest.ResponseRecorder) trackResponse {
	t.Helper()
	var resp trackResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCheckUsage_AnonymousMissingFingerprint(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodPost, "/api/usage/check", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Fingerprint is required for anonymous users"}`, w.Body.String())

	w = h.do(t, http.MethodPost, "/api/usage/track", "", map[string]string{"fingerprint": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Fingerprint is required for anonymous users"}`, w.Body.String())
}

func TestCheckUsage_Anonymous(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodPost, "/api/usage/check", "", map[string]string{"fingerprint": "fp-1"})
	assert.Equal(t, http.StatusOK, w.Code)

	status := decodeStatus(t, w)
	assert.False(t, status.IsAuthenticated)
	assert.True(t, status.CanPractice)
	assert.Equal(t, 0, status.QuestionsUsed)
	assert.Equal(t, usagedomain.AllLocked(), status.IsLocked)
}

func TestTrackUsage_AnonymousToCap(t *testing.T) {
	h := newHarness(t)
	body := map[string]string{"fingerprint": "fp-cap"}

	var resp trackResponse
	for i := 0; i < 3; i++ {
		w := h.do(t, http.MethodPost, "/api/usage/track", "", body)
		assert.Equal(t, http.StatusOK, w.Code)
		resp = decodeTrack(t, w)
		assert.Equal(t, "Question tracked successfully", resp.Message)
	}
	assert.Equal(t, 3, resp.Status.QuestionsUsed)
	assert.False(t, resp.Status.CanPractice)

	// Tracking stays 200 past the cap.
	w := h.do(t, http.MethodPost, "/api/usage/track", "", body)
	assert.Equal(t, http.StatusOK, w.Code)
	resp = decodeTrack(t, w)
	assert.Equal(t, 4, resp.Status.QuestionsUsed)
}

func TestCheckUsage_Authenticated(t *testing.T) {
	h := newHarness(t)
	account := h.createAccount(t, accountdomain.PlanFree)

	w := h.do(t, http.MethodPost, "/api/usage/check", h.token(t, account.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	status := decodeStatus(t, w)
	assert.True(t, status.IsAuthenticated)
	assert.Equal(t, accountdomain.PlanFree, status.PlanType)
	assert.True(t, status.CanPractice)
	assert.Equal(t, usagedomain.FreeLocks(), status.IsLocked)
}

func TestUsageStatus_GetRoute(t *testing.T) {
	h := newHarness(t)
	account := h.createAccount(t, accountdomain.PlanProPaid)

	w := h.do(t, http.MethodGet, "/api/usage/status", h.token(t, account.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	status := decodeStatus(t, w)
	assert.True(t, status.CanPractice)
	assert.Equal(t, usagedomain.UnlimitedAllowance(), status.QuestionsLimit)
	// The unlimited sentinel is the literal string on the wire.
	assert.Contains(t, w.Body.String(), `"questionsLimit":"Unlimited"`)
}

func TestResolveIdentity_BadTokenFallsBackToAnonymous(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodPost, "/api/usage/check", "not-a-jwt", map[string]string{"fingerprint": "fp-x"})
	assert.Equal(t, http.StatusOK, w.Code)

	status := decodeStatus(t, w)
	assert.False(t, status.IsAuthenticated)
}

func TestStartTrial(t *testing.T) {
	h := newHarness(t)
	account := h.createAccount(t, accountdomain.PlanFree)
	token := h.token(t, account.ID)

	w := h.do(t, http.MethodPost, "/api/plan/trial", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp planResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, accountdomain.PlanProTrial, resp.Status.PlanType)
	assert.NotNil(t, resp.Status.TrialHoursRemaining)

	// One trial per account.
	w = h.do(t, http.MethodPost, "/api/plan/trial", token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestStartTrial_RequiresAuth(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodPost, "/api/plan/trial", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(t, http.MethodPost, "/api/plan/activate", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestActivatePaid(t *testing.T) {
	h := newHarness(t)
	account := h.createAccount(t, accountdomain.PlanFree)
	token := h.token(t, account.ID)

	w := h.do(t, http.MethodPost, "/api/plan/activate", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp planResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, accountdomain.PlanProPaid, resp.Status.PlanType)
	assert.True(t, resp.Status.CanPractice)

	w = h.do(t, http.MethodPost, "/api/plan/activate", token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestStartTrial_UnknownAccount(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodPost, "/api/plan/trial", h.token(t, h.node.Generate()), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// brokenUsageService simulates a store outage under the handlers.
type brokenUsageService struct{}

func (brokenUsageService) Check(ctx context.Context, req usagedomain.Request) (usagedomain.UsageStatus, error) {
	return usagedomain.UsageStatus{}, errors.New("store unavailable")
}

func (brokenUsageService) Track(ctx context.Context, req usagedomain.Request) (usagedomain.UsageStatus, error) {
	return usagedomain.UsageStatus{}, errors.New("store unavailable")
}

func TestUsage_FailsOpenOnStoreOutage(t *testing.T) {
	h := newHarness(t)
	h.server.usageSvc = brokenUsageService{}

	w := h.do(t, http.MethodPost, "/api/usage/check", "", map[string]string{"fingerprint": "fp-1"})
	assert.Equal(t, http.StatusOK, w.Code)

	status := decodeStatus(t, w)
	assert.True(t, status.CanPractice)
	assert.Equal(t, 0, status.QuestionsUsed)
	assert.Equal(t, usagedomain.AllLocked(), status.IsLocked)

	w = h.do(t, http.MethodPost, "/api/usage/track", "", map[string]string{"fingerprint": "fp-1"})
	assert.Equal(t, http.StatusOK, w.Code)

	resp := decodeTrack(t, w)
	assert.Equal(t, "Question tracked successfully", resp.Message)
	assert.True(t, resp.Status.CanPractice)
	assert.Equal(t, 1, resp.Status.QuestionsUsed)
}
