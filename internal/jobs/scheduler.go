// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: войс-тик, свип инвайт-воронки
// и публикацию таблиц лидеров.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// VoiceTicker — один проход войс-начисления. Реализуется voice.Service.
type VoiceTicker interface {
	Tick(ctx context.Context) error
}

// InviteSweeper — пакетное подтверждение инвайтов. Реализуется invites.Service.
type InviteSweeper interface {
	Sweep(ctx context.Context) error
}

// LeaderboardPublisher — публикация таблиц лидеров. Реализуется leaderboard.Service.
type LeaderboardPublisher interface {
	Publish(ctx context.Context) error
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron        *cron.Cron
	voice       VoiceTicker
	invites     InviteSweeper
	leaderboard LeaderboardPublisher

	tickInterval        time.Duration
	sweepInterval       time.Duration
	leaderboardInterval time.Duration
}

// NewScheduler создаёт планировщик.
// Каждая задача обёрнута в SkipIfStillRunning: новый запуск не стартует,
// пока не завершился предыдущий. Для войс-тика это контракт корректности —
// тики не перекрываются, и одну сессию в каждый момент трогает ровно
// одно исполнение.
func NewScheduler(voice VoiceTicker, invites InviteSweeper, leaderboard LeaderboardPublisher,
	tickInterval, sweepInterval, leaderboardInterval time.Duration) *Scheduler {

	cronLog := cron.PrintfLogger(log.StandardLogger())
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cronLog), cron.Recover(cronLog)),
	)

	return &Scheduler{
		cron:                c,
		voice:               voice,
		invites:             invites,
		leaderboard:         leaderboard,
		tickInterval:        tickInterval,
		sweepInterval:       sweepInterval,
		leaderboardInterval: leaderboardInterval,
	}
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) {
	// Войс-тик фиксированной длительности T
	s.cron.AddFunc(every(s.tickInterval), func() {
		log.Debug("[CRON] Войс-тик")
		if err := s.voice.Tick(ctx); err != nil {
			log.WithError(err).Error("[CRON] Ошибка войс-тика")
		}
	})

	// Свип инвайт-воронки
	s.cron.AddFunc(every(s.sweepInterval), func() {
		log.Debug("[CRON] Свип инвайт-воронки")
		if err := s.invites.Sweep(ctx); err != nil {
			log.WithError(err).Error("[CRON] Ошибка свипа инвайтов")
		}
	})

	// Публикация таблиц лидеров
	s.cron.AddFunc(every(s.leaderboardInterval), func() {
		log.Debug("[CRON] Публикация таблиц лидеров")
		if err := s.leaderboard.Publish(ctx); err != nil {
			log.WithError(err).Error("[CRON] Ошибка публикации таблиц лидеров")
		}
	})

	s.cron.Start()
	log.WithFields(log.Fields{
		"voice_tick":   s.tickInterval.String(),
		"invite_sweep": s.sweepInterval.String(),
		"leaderboard":  s.leaderboardInterval.String(),
	}).Info("Планировщик задач запущен")
}

// Stop останавливает планировщик, дождавшись завершения текущих задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}

func every(d time.Duration) string {
	return fmt.Sprintf("@every %s", d)
}
