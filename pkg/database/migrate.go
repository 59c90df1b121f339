package database

import (
	"context"
	"fmt"
)

// Schema is the full PostgreSQL schema of the ledger. Every statement is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id              VARCHAR(255) PRIMARY KEY,
	coins           BIGINT NOT NULL DEFAULT 0 CHECK (coins >= 0),
	last_daily_bonus TIMESTAMP WITH TIME ZONE,
	referral_code   VARCHAR(32) NOT NULL,
	referred_by     VARCHAR(32),
	total_referrals INTEGER NOT NULL DEFAULT 0 CHECK (total_referrals >= 0),
	is_blocked      BOOLEAN NOT NULL DEFAULT FALSE,
	joined_at       TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	CONSTRAINT users_referral_code_key UNIQUE (referral_code)
);

CREATE TABLE IF NOT EXISTS tasks (
	id          VARCHAR(64) PRIMARY KEY,
	title       VARCHAR(255) NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	category    VARCHAR(64) NOT NULL,
	reward      BIGINT NOT NULL CHECK (reward > 0),
	link        TEXT NOT NULL,
	is_active   BOOLEAN NOT NULL DEFAULT TRUE,
	created_at  TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS user_task_completions (
	user_id      VARCHAR(255) NOT NULL REFERENCES users(id),
	task_id      VARCHAR(64) NOT NULL,
	completed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	PRIMARY KEY (user_id, task_id)
);

CREATE TABLE IF NOT EXISTS task_verifications (
	user_id    VARCHAR(255) PRIMARY KEY REFERENCES users(id),
	task_id    VARCHAR(64) NOT NULL,
	started_at TIMESTAMP WITH TIME ZONE NOT NULL,
	ready_at   TIMESTAMP WITH TIME ZONE NOT NULL
);

CREATE TABLE IF NOT EXISTS coupons (
	id          VARCHAR(64) PRIMARY KEY,
	code        VARCHAR(64) NOT NULL,
	reward      BIGINT NOT NULL CHECK (reward > 0),
	usage_limit INTEGER NOT NULL CHECK (usage_limit > 0),
	used_count  INTEGER NOT NULL DEFAULT 0 CHECK (used_count >= 0),
	expiry_date TIMESTAMP WITH TIME ZONE NOT NULL,
	created_at  TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	CONSTRAINT coupons_code_key UNIQUE (code),
	CONSTRAINT coupons_usage_check CHECK (used_count <= usage_limit)
);

CREATE TABLE IF NOT EXISTS user_coupon_claims (
	user_id    VARCHAR(255) NOT NULL REFERENCES users(id),
	coupon_id  VARCHAR(64) NOT NULL,
	claimed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	PRIMARY KEY (user_id, coupon_id)
);

CREATE INDEX IF NOT EXISTS idx_user_coupon_claims_coupon_id ON user_coupon_claims(coupon_id);

CREATE TABLE IF NOT EXISTS withdrawals (
	id             VARCHAR(64) PRIMARY KEY,
	user_id        VARCHAR(255) NOT NULL REFERENCES users(id),
	amount         BIGINT NOT NULL CHECK (amount > 0),
	wallet_address VARCHAR(255) NOT NULL,
	status         VARCHAR(16) NOT NULL DEFAULT 'pending'
		CHECK (status IN ('pending', 'approved', 'rejected')),
	created_at     TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	decided_at     TIMESTAMP WITH TIME ZONE
);

CREATE INDEX IF NOT EXISTS idx_withdrawals_user_id ON withdrawals(user_id);
CREATE INDEX IF NOT EXISTS idx_withdrawals_status ON withdrawals(status);

CREATE TABLE IF NOT EXISTS settings (
	id                    INTEGER PRIMARY KEY CHECK (id = 1),
	daily_bonus_amount    BIGINT NOT NULL CHECK (daily_bonus_amount >= 0),
	referral_bonus_amount BIGINT NOT NULL CHECK (referral_bonus_amount >= 0),
	min_withdrawal        BIGINT NOT NULL CHECK (min_withdrawal >= 0),
	is_withdrawal_enabled BOOLEAN NOT NULL DEFAULT FALSE,
	ad_codes              JSONB NOT NULL DEFAULT '{}'::jsonb,
	updated_at            TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

INSERT INTO settings (id, daily_bonus_amount, referral_bonus_amount, min_withdrawal, is_withdrawal_enabled, ad_codes)
VALUES (1, 20, 100, 1000, FALSE, '{"main": [], "tasks": [], "games": [], "daily": []}'::jsonb)
ON CONFLICT (id) DO NOTHING;

CREATE TABLE IF NOT EXISTS ledger_entries (
	id           BIGSERIAL PRIMARY KEY,
	user_id      VARCHAR(255) NOT NULL REFERENCES users(id),
	amount       BIGINT NOT NULL,
	source       VARCHAR(32) NOT NULL,
	reference    VARCHAR(255) NOT NULL DEFAULT '',
	coins_before BIGINT NOT NULL,
	coins_after  BIGINT NOT NULL CHECK (coins_after >= 0),
	created_at   TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_ledger_entries_user_id ON ledger_entries(user_id, id DESC);

CREATE TABLE IF NOT EXISTS welcomed (
	client_id   VARCHAR(255) PRIMARY KEY,
	welcomed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
`

// Migrate applies Schema.
func Migrate(ctx context.Context, q TxQuerier) error {
	if _, err := q.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
