package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coin-rewards-ledger/internal/model"
	"github.com/fairyhunter13/coin-rewards-ledger/pkg/database"
)

// CouponRepositoryInterface defines the interface for coupon data access.
type CouponRepositoryInterface interface {
	Insert(ctx context.Context, coupon *model.Coupon) error
	// GetByCode returns nil, nil when the coupon does not exist.
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)
	// GetByCodeForUpdate returns ErrCouponNotFound when the coupon does not exist.
	GetByCodeForUpdate(ctx context.Context, tx database.TxQuerier, code string) (*model.Coupon, error)
	IncrementUsage(ctx context.Context, tx database.TxQuerier, id string) error
	List(ctx context.Context) ([]model.Coupon, error)
	Delete(ctx context.Context, code string) error
}

// ClaimRepositoryInterface defines the interface for claim data access.
type ClaimRepositoryInterface interface {
	GetUsersByCoupon(ctx context.Context, couponID string) ([]string, error)
	Exists(ctx context.Context, q database.TxQuerier, userID, couponID string) (bool, error)
	// Insert returns ErrAlreadyClaimed on a duplicate claim.
	Insert(ctx context.Context, tx database.TxQuerier, userID, couponID string, at time.Time) error
	ListCouponIDs(ctx context.Context, userID string) ([]string, error)
}

// CouponService provides business logic for coupon operations.
type CouponService struct {
	pool       TxBeginner
	users      BalanceRepository
	couponRepo CouponRepositoryInterface
	claimRepo  ClaimRepositoryInterface
	ledger     *Ledger
	clock      clockwork.Clock
}

// NewCouponService creates a new CouponService.
func NewCouponService(
	pool TxBeginner,
	users BalanceRepository,
	couponRepo CouponRepositoryInterface,
	claimRepo ClaimRepositoryInterface,
	ledger *Ledger,
	clock clockwork.Clock,
) *CouponService {
	return &CouponService{
		pool:       pool,
		users:      users,
		couponRepo: couponRepo,
		claimRepo:  claimRepo,
		ledger:     ledger,
		clock:      clock,
	}
}

// Create creates a new coupon from the request. Codes are stored upper-case.
// Returns ErrCouponExists if a coupon with the same code already exists.
func (s *CouponService) Create(ctx context.Context, isAdmin bool, req *model.CreateCouponRequest) (*model.Coupon, error) {
	if !isAdmin {
		return nil, ErrForbidden
	}
	// Defense-in-depth: check for nil pointers even though handler validates
	if req == nil || req.Reward == nil || req.UsageLimit == nil || req.ExpiryDate == nil {
		return nil, ErrInvalidRequest
	}
	code := NormalizeCode(req.Code)
	if code == "" || *req.Reward <= 0 || *req.UsageLimit <= 0 {
		return nil, ErrInvalidRequest
	}

	coupon := &model.Coupon{
		ID:         uuid.NewString(),
		Code:       code,
		Reward:     *req.Reward,
		UsageLimit: *req.UsageLimit,
		ExpiryDate: req.ExpiryDate.UTC(),
		CreatedAt:  s.clock.Now().UTC(),
	}
	if err := s.couponRepo.Insert(ctx, coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

// GetByCode retrieves a coupon by code with its claimant list.
// Returns ErrCouponNotFound if the coupon doesn't exist.
func (s *CouponService) GetByCode(ctx context.Context, isAdmin bool, code string) (*model.CouponResponse, error) {
	if !isAdmin {
		return nil, ErrForbidden
	}
	coupon, err := s.couponRepo.GetByCode(ctx, NormalizeCode(code))
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}

	claimedBy, err := s.claimRepo.GetUsersByCoupon(ctx, coupon.ID)
	if err != nil {
		return nil, fmt.Errorf("get claims: %w", err)
	}

	return &model.CouponResponse{
		Coupon:    *coupon,
		ClaimedBy: claimedBy,
	}, nil
}

// List returns every coupon, newest first.
func (s *CouponService) List(ctx context.Context, isAdmin bool) ([]model.Coupon, error) {
	if !isAdmin {
		return nil, ErrForbidden
	}
	coupons, err := s.couponRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	return coupons, nil
}

// Delete removes a coupon. Requires the admin capability.
func (s *CouponService) Delete(ctx context.Context, isAdmin bool, code string) error {
	if !isAdmin {
		return ErrForbidden
	}
	return s.couponRepo.Delete(ctx, NormalizeCode(code))
}

// Redeem atomically redeems a coupon for a user and credits its reward.
// The coupon row is locked before the user row for the whole check-and-mutate sequence.
// Rejections, in priority order:
//   - ErrCouponNotFound if the coupon doesn't exist
//   - ErrCouponExhausted if the usage limit is reached
//   - ErrCouponExpired if the expiry date has passed
//   - ErrAlreadyClaimed if the user has already redeemed this coupon
func (s *CouponService) Redeem(ctx context.Context, userID, rawCode string) (*model.RedeemResult, error) {
	code := NormalizeCode(rawCode)
	if code == "" {
		return nil, ErrInvalidRequest
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	// 1. Lock the coupon row (SELECT FOR UPDATE)
	coupon, err := s.couponRepo.GetByCodeForUpdate(ctx, tx, code)
	if err != nil {
		if errors.Is(err, ErrCouponNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("get coupon for update: %w", err)
	}

	// 2. Lock the user row
	if _, err := lockActiveUser(ctx, s.users, tx, userID); err != nil {
		return nil, err
	}

	// 3. Check usage, expiry and previous claims
	if coupon.Exhausted() {
		return nil, ErrCouponExhausted
	}
	now := s.clock.Now().UTC()
	if coupon.ExpiredAt(now) {
		return nil, ErrCouponExpired
	}
	claimed, err := s.claimRepo.Exists(ctx, tx, userID, coupon.ID)
	if err != nil {
		return nil, fmt.Errorf("check claim: %w", err)
	}
	if claimed {
		return nil, ErrAlreadyClaimed
	}

	// 4. Insert claim (UNIQUE constraint catches duplicates)
	if err := s.claimRepo.Insert(ctx, tx, userID, coupon.ID, now); err != nil {
		if errors.Is(err, ErrAlreadyClaimed) {
			return nil, ErrAlreadyClaimed
		}
		return nil, fmt.Errorf("insert claim: %w", err)
	}

	// 5. Count the use
	if err := s.couponRepo.IncrementUsage(ctx, tx, coupon.ID); err != nil {
		return nil, fmt.Errorf("increment usage: %w", err)
	}

	// 6. Credit the reward
	entry, err := s.ledger.Credit(ctx, tx, userID, coupon.Reward, model.SourceCoupon, coupon.ID)
	if err != nil {
		return nil, fmt.Errorf("credit coupon reward: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	s.ledger.Publish(entry)

	log.Info().
		Str("user_id", userID).
		Str("coupon_code", coupon.Code).
		Int64("reward", coupon.Reward).
		Msg("coupon redeemed")

	return &model.RedeemResult{
		CouponID: coupon.ID,
		Code:     coupon.Code,
		Reward:   coupon.Reward,
		Coins:    entry.CoinsAfter,
	}, nil
}
