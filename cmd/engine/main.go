// Package main — точка входа движка начисления очков.
// Загружает конфигурацию, инициализирует приложение и запускает
// планировщик. Поддерживает graceful shutdown по SIGINT/SIGTERM.
//
// Боевые коллабораторы (оракул профиля, срезы голосовых каналов,
// проверка членства, публикация топов) поставляет платформенный
// адаптер, встраивающий движок. Автономный запуск использует
// заглушки: пустой войс, все участники на месте, оракул всегда «да».
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/points-engine/internal/app"
	"serotonyl.ru/points-engine/internal/config"
	"serotonyl.ru/points-engine/internal/features/eligibility"
	"serotonyl.ru/points-engine/internal/gateway"
)

func main() {
	setupLogging()

	log.Info("=== Движок начисления запускается ===")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Не удалось загрузить конфигурацию")
	}

	level, err := log.ParseLevel(cfg.AppLogLevel)
	if err == nil {
		log.SetLevel(level)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.New(ctx, cfg, standaloneCollaborators())
	if err != nil {
		log.WithError(err).Fatal("Не удалось инициализировать движок")
	}
	defer application.Close()

	application.Scheduler.Start(ctx)
	defer application.Scheduler.Stop()

	// Обрабатываем сигналы остановки (Ctrl+C, docker stop)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Info("=== Движок готов к работе ===")

	sig := <-quit
	log.Infof("Получен сигнал %s, останавливаемся...", sig)

	cancel()

	log.Info("=== Движок остановлен ===")
}

// setupLogging настраивает формат логов.
func setupLogging() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.DebugLevel)
}

// standaloneCollaborators возвращает заглушки для автономного запуска.
func standaloneCollaborators() app.Collaborators {
	return app.Collaborators{
		Oracle: eligibility.OracleFunc(func(_ context.Context, _ int64) (eligibility.Result, error) {
			return eligibility.Result{Allowed: true}, nil
		}),
		VoiceProvider: emptyVoice{},
		Members:       alwaysMember{},
		Sink:          nil, // дефолтный sink пишет в лог
	}
}

type emptyVoice struct{}

func (emptyVoice) Snapshots(_ context.Context) ([]gateway.ChannelSnapshot, error) {
	return nil, nil
}

type alwaysMember struct{}

func (alwaysMember) IsMember(_ context.Context, _, _ int64) (bool, error) {
	return true, nil
}
