// Package config загружает конфигурацию процесса из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
//
// Здесь лежат только настройки уровня процесса (БД, расписания, TTL кешей).
// Игровые параметры начисления (награды, кулдауны, лимиты) живут в БД
// по гильдиям — см. internal/features/settings.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит ВСЕ настройки процесса.
type Config struct {
	// --- Database ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"pointsuser"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"points_engine"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`

	// --- Расписания ---
	// Интервал войс-тика T. Каждый тик добавляет ровно T секунд
	// активным участникам голосовых каналов.
	VoiceTickInterval time.Duration `envconfig:"VOICE_TICK_INTERVAL" default:"60s"`
	// Интервал свипа инвайт-воронки (подтверждение отлежавшихся PENDING).
	InviteSweepInterval time.Duration `envconfig:"INVITE_SWEEP_INTERVAL" default:"5m"`
	// Интервал публикации таблицы лидеров.
	LeaderboardInterval time.Duration `envconfig:"LEADERBOARD_INTERVAL" default:"10m"`
	// Размер публикуемой таблицы лидеров.
	LeaderboardSize int `envconfig:"LEADERBOARD_SIZE" default:"10"`

	// --- TTL кешей ---
	// Статус заморозки кешируется на десятки секунд, чтобы не ходить
	// в БД на каждое сообщение; инвалидируется на freeze/lift.
	FreezeCacheTTL   time.Duration `envconfig:"FREEZE_CACHE_TTL" default:"30s"`
	OracleCacheTTL   time.Duration `envconfig:"ORACLE_CACHE_TTL" default:"5m"`
	SettingsCacheTTL time.Duration `envconfig:"SETTINGS_CACHE_TTL" default:"1m"`

	// --- Admin ---
	// Argon2id-хеш пароля, которым подтверждается обнуление всех балансов.
	// Генерация: go run scripts/generate_hash.go <пароль>
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH" required:"true"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

func (c *Config) Validate() error {
	if c.VoiceTickInterval <= 0 {
		return fmt.Errorf("VOICE_TICK_INTERVAL должен быть > 0")
	}
	if c.InviteSweepInterval <= 0 {
		return fmt.Errorf("INVITE_SWEEP_INTERVAL должен быть > 0")
	}
	if c.LeaderboardSize <= 0 {
		return fmt.Errorf("LEADERBOARD_SIZE должен быть > 0")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
