package engine

import (
	"database/sql"
	"time"

	"go.uber.org/zap"

	"taskmind/internal/activity"
	"taskmind/internal/config"
	"taskmind/internal/extract"
	"taskmind/internal/llm"
	"taskmind/internal/notify"
	"taskmind/internal/repo"
)

type Engine struct {
	DB       *sql.DB
	Repo     repo.Repo
	Activity activity.Writer
	Config   *config.Config
	Logger   *zap.Logger
	Provider llm.ChatProvider
	Notifier notify.Notifier
	Effects  *EffectQueue
	Now      func() time.Time

	Resolver  *llm.Resolver
	Whitelist *llm.Whitelist

	models *modelCache
}

func New(db *sql.DB, cfg *config.Config, logger *zap.Logger, provider llm.ChatProvider, notifier notify.Notifier) Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	return Engine{
		DB:        db,
		Repo:      repo.Repo{DB: db},
		Activity:  activity.Writer{DB: db},
		Config:    cfg,
		Logger:    logger,
		Provider:  provider,
		Notifier:  notifier,
		Effects:   NewEffectQueue(logger, 64),
		Now:       time.Now,
		Resolver:  llm.NewResolver(cfg.AI.PrimaryModel, cfg.AI.Fallback, cfg.AI.Priority, cfg.AI.LiveModels),
		Whitelist: llm.NewWhitelist(cfg.AI.Whitelist),
		models:    &modelCache{},
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) dates() extract.DateNormalizer {
	return extract.DateNormalizer{Now: e.Now}
}
