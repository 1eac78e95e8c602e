// Package app инициализирует все компоненты движка.
// app.go — точка сборки: создаёт БД-пул, кеш, репозитории, сервисы
// и собирает всё в один объект App.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/points-engine/internal/cache"
	"serotonyl.ru/points-engine/internal/config"
	"serotonyl.ru/points-engine/internal/db/postgres"
	"serotonyl.ru/points-engine/internal/engine"
	"serotonyl.ru/points-engine/internal/features/admin"
	"serotonyl.ru/points-engine/internal/features/chat"
	"serotonyl.ru/points-engine/internal/features/eligibility"
	"serotonyl.ru/points-engine/internal/features/invites"
	"serotonyl.ru/points-engine/internal/features/leaderboard"
	"serotonyl.ru/points-engine/internal/features/ledger"
	"serotonyl.ru/points-engine/internal/features/punish"
	"serotonyl.ru/points-engine/internal/features/settings"
	"serotonyl.ru/points-engine/internal/features/voice"
	"serotonyl.ru/points-engine/internal/gateway"
	"serotonyl.ru/points-engine/internal/jobs"
)

// Collaborators — внешние коллабораторы, которые поставляет
// платформенный адаптер. Движок про платформу ничего не знает.
type Collaborators struct {
	Oracle        eligibility.Oracle     // Проверка профиля (сетевая)
	VoiceProvider gateway.VoiceProvider  // Срезы голосовых каналов
	Members       gateway.MemberProvider // Проверка членства для свипа
	Sink          leaderboard.Sink       // Куда публиковать топы (nil = в лог)
}

// App содержит все компоненты движка.
type App struct {
	Engine      *engine.Engine
	Admin       *admin.Service
	Settings    *settings.Service
	Leaderboard *leaderboard.Service
	Scheduler   *jobs.Scheduler
	DB          *pgxpool.Pool
	Cache       *cache.Cache
}

// New создаёт и инициализирует движок.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config, collab Collaborators) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Кеш (один на процесс, принадлежит экземпляру движка) ===
	c := cache.New()

	// === 3. Репозитории ===
	settingsRepo := settings.NewRepository(pool)
	ledgerRepo := ledger.NewRepository(pool)
	punishRepo := punish.NewRepository(pool)
	chatRepo := chat.NewRepository(pool)
	voiceRepo := voice.NewRepository(pool)
	inviteRepo := invites.NewRepository(pool)

	// === 4. Сервисы ===
	settingsService := settings.NewService(settingsRepo, c, cfg.SettingsCacheTTL)
	ledgerService := ledger.NewService(ledgerRepo)
	punishService := punish.NewService(punishRepo, ledgerRepo, c, cfg.FreezeCacheTTL)
	oracleAdapter := eligibility.NewAdapter(collab.Oracle, c, cfg.OracleCacheTTL)
	chatService := chat.NewService(chatRepo, ledgerService, punishService, oracleAdapter, settingsService)
	voiceService := voice.NewService(voiceRepo, ledgerService, punishService, oracleAdapter, settingsService,
		collab.VoiceProvider, cfg.VoiceTickInterval)
	inviteService := invites.NewService(inviteRepo, ledgerService, punishService, oracleAdapter, settingsService,
		collab.Members)
	leaderboardService := leaderboard.NewService(ledgerService, settingsService, collab.Sink, c, cfg.LeaderboardSize)
	adminService := admin.NewService(ledgerService, punishService, cfg.AdminPasswordHash)

	// === 5. Фасад и планировщик ===
	eng := engine.New(ledgerService, punishService, chatService, voiceService, inviteService)
	scheduler := jobs.NewScheduler(voiceService, inviteService, leaderboardService,
		cfg.VoiceTickInterval, cfg.InviteSweepInterval, cfg.LeaderboardInterval)

	return &App{
		Engine:      eng,
		Admin:       adminService,
		Settings:    settingsService,
		Leaderboard: leaderboardService,
		Scheduler:   scheduler,
		DB:          pool,
		Cache:       c,
	}, nil
}

// Close освобождает ресурсы движка.
func (a *App) Close() {
	a.Cache.Close()
	a.DB.Close()
}

// runMigrations выполняет все SQL-миграции.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if err := postgres.InitMigrations(ctx, pool); err != nil {
		return err
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration001Settings},
		{2, migration002Ledger},
		{3, migration003ChatActivity},
		{4, migration004VoiceSessions},
		{5, migration005InviteLedger},
		{6, migration006Punishments},
	}

	for _, m := range migrations {
		if err := postgres.ExecMigrationSQL(ctx, pool, m.version, m.sql); err != nil {
			return fmt.Errorf("миграция %d: %w", m.version, err)
		}
		log.Infof("Миграция %d применена", m.version)
	}

	return nil
}

// SQL-миграции встроены в код для упрощения деплоя.

var migration001Settings = `
CREATE TABLE IF NOT EXISTS guild_settings (
    guild_id BIGINT PRIMARY KEY,
    enabled BOOLEAN NOT NULL DEFAULT TRUE,
    mode VARCHAR(16) NOT NULL DEFAULT 'GLOBAL',
    chat_points BIGINT NOT NULL DEFAULT 5,
    cooldown_minutes INTEGER NOT NULL DEFAULT 1,
    daily_chat_cap BIGINT NOT NULL DEFAULT 40,
    min_message_len INTEGER NOT NULL DEFAULT 5,
    call_points BIGINT NOT NULL DEFAULT 2,
    call_block_minutes INTEGER NOT NULL DEFAULT 5,
    min_call_users INTEGER NOT NULL DEFAULT 2,
    invite_points BIGINT NOT NULL DEFAULT 10,
    invite_hold_hours INTEGER NOT NULL DEFAULT 24,
    retention_days INTEGER NOT NULL DEFAULT 5,
    min_account_age_days INTEGER NOT NULL DEFAULT 7,
    anti_reentry BOOLEAN NOT NULL DEFAULT TRUE,
    oracle_enabled BOOLEAN NOT NULL DEFAULT FALSE,
    oracle_strict BOOLEAN NOT NULL DEFAULT FALSE,
    allowed_channels JSONB NOT NULL DEFAULT '[]',
    allowed_roles JSONB NOT NULL DEFAULT '[]',
    ignored_users JSONB NOT NULL DEFAULT '[]',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

var migration002Ledger = `
CREATE TABLE IF NOT EXISTS balances (
    id BIGSERIAL PRIMARY KEY,
    guild_id BIGINT NOT NULL,
    user_id BIGINT NOT NULL,
    points BIGINT NOT NULL DEFAULT 0 CHECK (points >= 0),
    frozen_until TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (guild_id, user_id)
);
CREATE INDEX IF NOT EXISTS idx_balances_guild_points ON balances(guild_id, points DESC, created_at ASC);
CREATE TABLE IF NOT EXISTS transactions (
    id BIGSERIAL PRIMARY KEY,
    guild_id BIGINT NOT NULL,
    user_id BIGINT NOT NULL,
    amount BIGINT NOT NULL,
    tx_type VARCHAR(32) NOT NULL,
    source VARCHAR(16) NOT NULL,
    reason TEXT NOT NULL DEFAULT '',
    actor_id BIGINT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_transactions_guild_user ON transactions(guild_id, user_id, created_at DESC);
`

var migration003ChatActivity = `
CREATE TABLE IF NOT EXISTS chat_activity (
    guild_id BIGINT NOT NULL,
    user_id BIGINT NOT NULL,
    last_message_at TIMESTAMPTZ,
    last_content_hash VARCHAR(64) NOT NULL DEFAULT '',
    daily_points BIGINT NOT NULL DEFAULT 0,
    daily_date TIMESTAMPTZ NOT NULL DEFAULT 'epoch',
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (guild_id, user_id)
);
`

var migration004VoiceSessions = `
CREATE TABLE IF NOT EXISTS voice_sessions (
    guild_id BIGINT NOT NULL,
    user_id BIGINT NOT NULL,
    channel_id BIGINT NOT NULL DEFAULT 0,
    accumulated_seconds BIGINT NOT NULL DEFAULT 0,
    last_checked_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (guild_id, user_id)
);
`

var migration005InviteLedger = `
CREATE TABLE IF NOT EXISTS invite_ledger (
    id BIGSERIAL PRIMARY KEY,
    guild_id BIGINT NOT NULL,
    invitee_id BIGINT NOT NULL,
    inviter_id BIGINT NOT NULL,
    invited_at TIMESTAMPTZ NOT NULL,
    status VARCHAR(16) NOT NULL DEFAULT 'PENDING',
    confirmed_at TIMESTAMPTZ,
    revoked_at TIMESTAMPTZ,
    revoked_reason VARCHAR(64),
    points_awarded BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (guild_id, invitee_id)
);
CREATE INDEX IF NOT EXISTS idx_invite_ledger_status ON invite_ledger(status, invited_at);
`

var migration006Punishments = `
CREATE TABLE IF NOT EXISTS punishments (
    id BIGSERIAL PRIMARY KEY,
    guild_id BIGINT NOT NULL,
    user_id BIGINT NOT NULL,
    moderator_id BIGINT NOT NULL,
    reason TEXT NOT NULL DEFAULT '',
    expires_at TIMESTAMPTZ,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    lifted_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_punishments_guild_user ON punishments(guild_id, user_id, active);
`
