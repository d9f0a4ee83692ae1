package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/abhisek/atomastery/internal/broker"
	"github.com/abhisek/atomastery/internal/config"
	"github.com/abhisek/atomastery/internal/gems"
	"github.com/abhisek/atomastery/internal/grading"
	"github.com/abhisek/atomastery/internal/lock"
	"github.com/abhisek/atomastery/internal/logger"
	"github.com/abhisek/atomastery/internal/mastery"
	"github.com/abhisek/atomastery/internal/store"
	"github.com/abhisek/atomastery/internal/structure"
)

// engine holds the wired services shared by the commands.
type engine struct {
	cfg     config.Config
	log     *logger.Logger
	store   *store.Store
	lessons *structure.CachedProvider
	mastery *mastery.Service
	grading *grading.Service
	gems    *gems.Service

	closers []func() error
}

// openEngine opens the store and builds dependencies. Redis and AMQP are
// wired only when configured.
func openEngine(cmd *cobra.Command) (*engine, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	st, err := openStore(cmd)
	if err != nil {
		return nil, err
	}
	e := &engine{cfg: cfg, log: log, store: st}
	e.closers = append(e.closers, st.Close)

	var notifier gems.Notifier
	if cfg.AMQPURL != "" {
		pub, err := broker.Dial(cfg.AMQPURL, cfg.AMQPExchange, log)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Event publishing disabled:", err)
		} else {
			notifier = pub
			e.closers = append(e.closers, pub.Close)
		}
	}
	e.gems = gems.NewService(st.EventRepo(), notifier, log)

	var locker lock.Locker = lock.NewKeyedMutex()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := rdb.Ping(commandContext(cmd)).Err(); err != nil {
			rdb.Close()
			e.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		locker = lock.NewRedisLocker(rdb, cfg.LockTTL, log)
		e.closers = append(e.closers, rdb.Close)
	}

	e.lessons = structure.NewCachedProvider(st.LessonRepo(), cfg.StructureCacheTTL)
	e.mastery = mastery.NewService(e.lessons, st.RecordRepo(),
		mastery.WithLocker(locker),
		mastery.WithRewardTrigger(e.gems),
		mastery.WithLogger(log),
		mastery.WithMaxAttempts(cfg.MaxUpdateAttempts),
		mastery.WithStoreTimeout(cfg.StoreTimeout),
	)
	e.grading = grading.NewService(grading.NewStoreBank(st.QuestionRepo()), e.mastery, log)
	return e, nil
}

// Close releases resources in reverse order of acquisition.
func (e *engine) Close() error {
	var first error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	e.log.Sync()
	return first
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
