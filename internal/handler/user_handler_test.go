package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/coin-rewards-ledger/internal/model"
	"github.com/fairyhunter13/coin-rewards-ledger/internal/service"
)

func TestMe_FirstVisitWithReferral(t *testing.T) {
	s := &services{}
	ref := "REF-ABC"
	s.user.resolveFn = func(_ context.Context, clientID, code string) (*model.ResolveResult, error) {
		assert.Equal(t, testClient, clientID)
		assert.Equal(t, "ref-abc", code)
		return &model.ResolveResult{
			User:    &model.User{ID: clientID, ReferralCode: "NEWCODE1", ReferredBy: &ref, JoinedAt: time.Now()},
			Created: true,
		}, nil
	}
	app := setupTestApp(s)

	resp, body := call(t, app, http.MethodGet, "/api/me?ref=ref-abc", "")

	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, true, body["created"])
	user := body["user"].(map[string]any)
	assert.Equal(t, testClient, user["id"])
	assert.Equal(t, "REF-ABC", user["referred_by"])
}

func TestMe_ReturningVisit(t *testing.T) {
	s := &services{}
	s.user.resolveFn = func(_ context.Context, clientID, code string) (*model.ResolveResult, error) {
		return &model.ResolveResult{User: &model.User{ID: clientID, Coins: 70}}, nil
	}
	app := setupTestApp(s)

	resp, body := call(t, app, http.MethodGet, "/api/me", "")

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["created"])
	assert.EqualValues(t, 70, body["user"].(map[string]any)["coins"])
}

func TestMe_RequiresIdentity(t *testing.T) {
	app := setupTestApp(&services{})

	resp, body := do(t, app, newRequest(http.MethodGet, "/api/me", ""))

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body["error"], "X-Client-ID")
}

func TestWelcome(t *testing.T) {
	s := &services{}
	calls := 0
	s.user.welcomeFn = func(_ context.Context, clientID string) (*model.WelcomeResult, error) {
		calls++
		return &model.WelcomeResult{FirstTime: calls == 1}, nil
	}
	app := setupTestApp(s)

	_, first := call(t, app, http.MethodPost, "/api/me/welcome", "")
	_, second := call(t, app, http.MethodPost, "/api/me/welcome", "")

	assert.Equal(t, true, first["first_time"])
	assert.Equal(t, false, second["first_time"])
}

func TestLedger(t *testing.T) {
	s := &services{}
	s.user.historyFn = func(_ context.Context, userID string, limit int) ([]model.LedgerEntry, error) {
		assert.Equal(t, 10, limit)
		return []model.LedgerEntry{
			{ID: 2, UserID: userID, Amount: -500, Source: model.SourceWithdrawal, CoinsBefore: 1000, CoinsAfter: 500},
			{ID: 1, UserID: userID, Amount: 1000, Source: model.SourceCoupon, CoinsBefore: 0, CoinsAfter: 1000},
		}, nil
	}
	app := setupTestApp(s)

	resp, body := call(t, app, http.MethodGet, "/api/me/ledger?limit=10", "")

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	entries := body["entries"].([]any)
	require.Len(t, entries, 2)
	assert.Equal(t, "withdrawal", entries[0].(map[string]any)["source"])
}

func TestLedger_InvalidLimit(t *testing.T) {
	app := setupTestApp(&services{})

	for _, q := range []string{"?limit=abc", "?limit=-1"} {
		resp, _ := call(t, app, http.MethodGet, "/api/me/ledger"+q, "")
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestLedger_UnknownUser(t *testing.T) {
	s := &services{}
	s.user.historyFn = func(context.Context, string, int) ([]model.LedgerEntry, error) {
		return nil, service.ErrUserNotFound
	}
	app := setupTestApp(s)

	resp, _ := call(t, app, http.MethodGet, "/api/me/ledger", "")

	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
