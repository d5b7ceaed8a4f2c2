// Package session assembles a playable session from loaded script content
// and configuration: the save store, the actor registries and world, the
// engine and the persistence orchestrator.
package session

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/nathoo/sceneweaver/actor"
	"github.com/nathoo/sceneweaver/cast"
	"github.com/nathoo/sceneweaver/config"
	"github.com/nathoo/sceneweaver/engine"
	"github.com/nathoo/sceneweaver/engine/assets"
	"github.com/nathoo/sceneweaver/engine/save"
	"github.com/nathoo/sceneweaver/loader"
	"github.com/nathoo/sceneweaver/world"
)

// Session is a running game.
type Session struct {
	Engine     *engine.Engine
	Saves      *save.Orchestrator
	World      *world.World
	Registries *actor.Registries
	Bundle     *loader.Bundle

	store save.Store
}

// OpenStore opens the save store selected by cfg.
func OpenStore(ctx context.Context, cfg *config.Config) (save.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return save.NewMemoryStore(), nil
	case config.BackendFile:
		st, err := save.NewFileStore(cfg.SaveDir)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("creating sqlite directory: %w", err)
		}
		st, err := save.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.BackendPostgres:
		st, err := save.NewPostgresStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown save backend: %q", cfg.Backend)
	}
}

// EngineOptions translates cfg into engine options.
func EngineOptions(cfg *config.Config, logger *log.Logger) engine.Options {
	opts := engine.Options{
		Logger:          logger,
		TransitionDelay: cfg.TransitionDelay,
		MinDwell:        cfg.MinDwell,
		VideoTimeout:    cfg.VideoTimeout,
		Seed:            cfg.Seed,
	}
	if cfg.AssetRoot != "" {
		opts.Assets = assets.New(os.DirFS(cfg.AssetRoot))
	}
	return opts
}

// New builds a session over b that renders through p. The session takes
// ownership of b and closes it with the session.
func New(ctx context.Context, cfg *config.Config, b *loader.Bundle, p engine.Presenter, logger *log.Logger) (*Session, error) {
	if logger == nil {
		logger = log.Default()
	}
	for _, w := range b.Warnings {
		logger.Printf("warning: %s", w)
	}

	defs := b.Defs
	if cfg.Start != "" {
		if _, ok := defs.Scenes[cfg.Start]; !ok {
			return nil, fmt.Errorf("start scene %q not defined", cfg.Start)
		}
		defs.Game.Start = cfg.Start
	}

	translations, err := loader.LoadTranslations(cfg.Translations)
	if err != nil {
		return nil, err
	}
	defs.Translations = translations

	regs := actor.NewRegistries(logger)
	cast.Register(regs)

	w, err := BuildWorld(defs.Actors, defs.Maps, regs, logger)
	if err != nil {
		return nil, fmt.Errorf("building world: %w", err)
	}

	st, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	e := engine.New(defs, p, EngineOptions(cfg, logger))
	saves := save.New(e, st, save.Options{
		World:      w,
		Registries: regs,
		Logger:     logger,
	})

	return &Session{
		Engine:     e,
		Saves:      saves,
		World:      w,
		Registries: regs,
		Bundle:     b,
		store:      st,
	}, nil
}

// Start installs the global menu and runs the start scene.
func (s *Session) Start(ctx context.Context) <-chan struct{} {
	if len(s.Engine.Defs.GlobalMenu) > 0 {
		s.Engine.SetGlobalMenu(s.Engine.Defs.GlobalMenu)
	}
	return s.Engine.Start(ctx)
}

// Close stops the engine and releases the store and the script VM.
func (s *Session) Close() error {
	s.Engine.Close()
	s.Bundle.Close()
	return s.store.Close()
}
