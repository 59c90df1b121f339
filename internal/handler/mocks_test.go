package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/coin-rewards-ledger/internal/config"
	"github.com/fairyhunter13/coin-rewards-ledger/internal/middleware"
	"github.com/fairyhunter13/coin-rewards-ledger/internal/model"
	"github.com/fairyhunter13/coin-rewards-ledger/internal/validator"
)

type mockUserService struct {
	resolveFn func(ctx context.Context, clientID, referralCode string) (*model.ResolveResult, error)
	welcomeFn func(ctx context.Context, clientID string) (*model.WelcomeResult, error)
	historyFn func(ctx context.Context, userID string, limit int) ([]model.LedgerEntry, error)
}

func (m *mockUserService) Resolve(ctx context.Context, clientID, referralCode string) (*model.ResolveResult, error) {
	return m.resolveFn(ctx, clientID, referralCode)
}

func (m *mockUserService) Welcome(ctx context.Context, clientID string) (*model.WelcomeResult, error) {
	return m.welcomeFn(ctx, clientID)
}

func (m *mockUserService) History(ctx context.Context, userID string, limit int) ([]model.LedgerEntry, error) {
	return m.historyFn(ctx, userID, limit)
}

type mockSettingsService struct {
	getFn    func(ctx context.Context) (*model.Settings, error)
	updateFn func(ctx context.Context, isAdmin bool, req *model.UpdateSettingsRequest) (*model.Settings, error)
}

func (m *mockSettingsService) GetSettings(ctx context.Context) (*model.Settings, error) {
	return m.getFn(ctx)
}

func (m *mockSettingsService) UpdateSettings(ctx context.Context, isAdmin bool, req *model.UpdateSettingsRequest) (*model.Settings, error) {
	return m.updateFn(ctx, isAdmin, req)
}

type mockTaskService struct {
	listForUserFn func(ctx context.Context, userID string) (*model.TaskBoard, error)
	startFn       func(ctx context.Context, userID, taskID string) (*model.StartTaskResult, error)
	finalizeFn    func(ctx context.Context, userID string) (*model.FinalizeTaskResult, error)
	cancelFn      func(ctx context.Context, userID string) error
	listAllFn     func(ctx context.Context, isAdmin bool) ([]model.Task, error)
	createFn      func(ctx context.Context, isAdmin bool, req *model.TaskRequest) (*model.Task, error)
	updateFn      func(ctx context.Context, isAdmin bool, id string, req *model.TaskRequest) (*model.Task, error)
	deleteFn      func(ctx context.Context, isAdmin bool, id string) error
}

func (m *mockTaskService) ListForUser(ctx context.Context, userID string) (*model.TaskBoard, error) {
	return m.listForUserFn(ctx, userID)
}

func (m *mockTaskService) Start(ctx context.Context, userID, taskID string) (*model.StartTaskResult, error) {
	return m.startFn(ctx, userID, taskID)
}

func (m *mockTaskService) Finalize(ctx context.Context, userID string) (*model.FinalizeTaskResult, error) {
	return m.finalizeFn(ctx, userID)
}

func (m *mockTaskService) Cancel(ctx context.Context, userID string) error {
	return m.cancelFn(ctx, userID)
}

func (m *mockTaskService) ListAll(ctx context.Context, isAdmin bool) ([]model.Task, error) {
	return m.listAllFn(ctx, isAdmin)
}

func (m *mockTaskService) Create(ctx context.Context, isAdmin bool, req *model.TaskRequest) (*model.Task, error) {
	return m.createFn(ctx, isAdmin, req)
}

func (m *mockTaskService) Update(ctx context.Context, isAdmin bool, id string, req *model.TaskRequest) (*model.Task, error) {
	return m.updateFn(ctx, isAdmin, id, req)
}

func (m *mockTaskService) Delete(ctx context.Context, isAdmin bool, id string) error {
	return m.deleteFn(ctx, isAdmin, id)
}

type mockCouponService struct {
	redeemFn    func(ctx context.Context, userID, rawCode string) (*model.RedeemResult, error)
	createFn    func(ctx context.Context, isAdmin bool, req *model.CreateCouponRequest) (*model.Coupon, error)
	getByCodeFn func(ctx context.Context, isAdmin bool, code string) (*model.CouponResponse, error)
	listFn      func(ctx context.Context, isAdmin bool) ([]model.Coupon, error)
	deleteFn    func(ctx context.Context, isAdmin bool, code string) error
}

func (m *mockCouponService) Redeem(ctx context.Context, userID, rawCode string) (*model.RedeemResult, error) {
	return m.redeemFn(ctx, userID, rawCode)
}

func (m *mockCouponService) Create(ctx context.Context, isAdmin bool, req *model.CreateCouponRequest) (*model.Coupon, error) {
	return m.createFn(ctx, isAdmin, req)
}

func (m *mockCouponService) GetByCode(ctx context.Context, isAdmin bool, code string) (*model.CouponResponse, error) {
	return m.getByCodeFn(ctx, isAdmin, code)
}

func (m *mockCouponService) List(ctx context.Context, isAdmin bool) ([]model.Coupon, error) {
	return m.listFn(ctx, isAdmin)
}

func (m *mockCouponService) Delete(ctx context.Context, isAdmin bool, code string) error {
	return m.deleteFn(ctx, isAdmin, code)
}

type mockBonusService struct {
	statusFn func(ctx context.Context, userID string) (*model.BonusStatus, error)
	claimFn  func(ctx context.Context, userID string) (*model.BonusResult, error)
}

func (m *mockBonusService) Status(ctx context.Context, userID string) (*model.BonusStatus, error) {
	return m.statusFn(ctx, userID)
}

func (m *mockBonusService) Claim(ctx context.Context, userID string) (*model.BonusResult, error) {
	return m.claimFn(ctx, userID)
}

type mockGameService struct {
	games    []model.Game
	settleFn func(ctx context.Context, userID, gameID string, score, elapsed int64) (*model.GameResult, error)
}

func (m *mockGameService) Catalog() []model.Game {
	return m.games
}

func (m *mockGameService) Settle(ctx context.Context, userID, gameID string, score, elapsed int64) (*model.GameResult, error) {
	return m.settleFn(ctx, userID, gameID, score, elapsed)
}

type mockWithdrawalService struct {
	requestFn     func(ctx context.Context, userID string, amount int64, wallet string) (*model.Withdrawal, error)
	listForUserFn func(ctx context.Context, userID string) ([]model.Withdrawal, error)
	listFn        func(ctx context.Context, isAdmin bool, status model.WithdrawalStatus) ([]model.Withdrawal, error)
	decideFn      func(ctx context.Context, isAdmin bool, id string, approve bool) (*model.Withdrawal, error)
}

func (m *mockWithdrawalService) Request(ctx context.Context, userID string, amount int64, wallet string) (*model.Withdrawal, error) {
	return m.requestFn(ctx, userID, amount, wallet)
}

func (m *mockWithdrawalService) ListForUser(ctx context.Context, userID string) ([]model.Withdrawal, error) {
	return m.listForUserFn(ctx, userID)
}

func (m *mockWithdrawalService) List(ctx context.Context, isAdmin bool, status model.WithdrawalStatus) ([]model.Withdrawal, error) {
	return m.listFn(ctx, isAdmin, status)
}

func (m *mockWithdrawalService) Decide(ctx context.Context, isAdmin bool, id string, approve bool) (*model.Withdrawal, error) {
	return m.decideFn(ctx, isAdmin, id, approve)
}

type mockAdminService struct {
	statsFn     func(ctx context.Context, isAdmin bool) (*model.AdminStats, error)
	listUsersFn func(ctx context.Context, isAdmin bool, limit, offset int) ([]model.User, error)
	toggleFn    func(ctx context.Context, isAdmin bool, userID string) (*model.User, error)
}

func (m *mockAdminService) Stats(ctx context.Context, isAdmin bool) (*model.AdminStats, error) {
	return m.statsFn(ctx, isAdmin)
}

func (m *mockAdminService) ListUsers(ctx context.Context, isAdmin bool, limit, offset int) ([]model.User, error) {
	return m.listUsersFn(ctx, isAdmin, limit, offset)
}

func (m *mockAdminService) ToggleBlocked(ctx context.Context, isAdmin bool, userID string) (*model.User, error) {
	return m.toggleFn(ctx, isAdmin, userID)
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.err
}

// services holds the mocks behind a test app. Unset mocks panic when called.
type services struct {
	user       mockUserService
	settings   mockSettingsService
	task       mockTaskService
	coupon     mockCouponService
	bonus      mockBonusService
	game       mockGameService
	withdrawal mockWithdrawalService
	admin      mockAdminService
	db         mockPinger
}

const (
	testClient        = "tg-1001"
	testAdminEmail    = "admin@example.com"
	testAdminPassword = "s3cret"
)

func setupTestApp(s *services) *fiber.App {
	app := fiber.New()
	v := validator.New()
	h := &Handlers{
		Health:     NewHealthHandler(&s.db),
		User:       NewUserHandler(&s.user),
		Settings:   NewSettingsHandler(&s.settings, v),
		Task:       NewTaskHandler(&s.task, v),
		Coupon:     NewCouponHandler(&s.coupon, v),
		Bonus:      NewBonusHandler(&s.bonus),
		Game:       NewGameHandler(&s.game, v),
		Withdrawal: NewWithdrawalHandler(&s.withdrawal, v),
		Admin:      NewAdminHandler(&s.admin),
	}
	identity := middleware.Identity(config.IdentityConfig{Mode: config.IdentityHeader, Header: "X-Client-ID"})
	admin := middleware.Admin(config.AdminConfig{Email: testAdminEmail, Password: testAdminPassword})
	Register(app, h, identity, admin)
	return app
}

// call performs a request as testClient with an optional JSON body.
func call(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	req := newRequest(method, path, body)
	req.Header.Set("X-Client-ID", testClient)
	return do(t, app, req)
}

// callAdmin performs a request with the admin credential.
func callAdmin(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	req := newRequest(method, path, body)
	req.Header.Set(fiber.HeaderAuthorization, "Basic "+base64.StdEncoding.EncodeToString([]byte(testAdminEmail+":"+testAdminPassword)))
	return do(t, app, req)
}

func newRequest(method, path, body string) *http.Request {
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var result map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &result), "body: %s", raw)
	}
	return resp, result
}
