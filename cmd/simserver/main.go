package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/galeforge/tdrpg/internal/config"
	"github.com/galeforge/tdrpg/internal/data"
	"github.com/galeforge/tdrpg/internal/db"
	"github.com/galeforge/tdrpg/internal/game/attribute"
	"github.com/galeforge/tdrpg/internal/game/effect"
	"github.com/galeforge/tdrpg/internal/game/trigger"
	"github.com/galeforge/tdrpg/internal/model"
	"github.com/galeforge/tdrpg/internal/observer"
	"github.com/galeforge/tdrpg/internal/sim"
	"github.com/galeforge/tdrpg/internal/snapshot"
	"github.com/galeforge/tdrpg/internal/world"
)

const ConfigPath = "config/simserver.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))

	slog.Info("tdrpg simulation server starting")

	cfgPath := ConfigPath
	if p := os.Getenv("TDRPG_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadSimserver(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	slog.Info("config loaded", "bind", cfg.BindAddress, "port", cfg.Port, "tick_rate", cfg.TickRateHz)

	// Designer tables
	attrTable, err := data.LoadAttributeTable(cfg.AttributeTablePath)
	if err != nil {
		return fmt.Errorf("loading attribute table: %w", err)
	}
	effectTable, err := data.LoadEffectTable(cfg.EffectTablePath)
	if err != nil {
		return fmt.Errorf("loading effect table: %w", err)
	}
	actorConfigs, err := data.LoadTriggerTable(cfg.TriggerTablePath, effectTable)
	if err != nil {
		return fmt.Errorf("loading trigger table: %w", err)
	}

	// Database
	database, err := db.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()
	slog.Info("database connected")

	if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database migrations applied")

	repo := db.NewAttributeRepository(database.Pool())

	// World: restore from the last snapshot when present, otherwise from
	// the per-character base values persisted in the database.
	arena := world.NewArena()
	hub := observer.NewHub()
	snapPath := filepath.Join(cfg.SnapshotPath, "world.zst")
	if snap, err := snapshot.Load(snapPath); err == nil {
		for _, c := range snapshot.Restore(snap, attrTable) {
			spawn(arena, hub, c)
		}
		slog.Info("world restored from snapshot", "characters", arena.Len(), "saved_at", snap.Header.SavedAt)
	} else if errors.Is(err, os.ErrNotExist) {
		if err := restoreFromDatabase(ctx, repo, attrTable, arena, hub); err != nil {
			return err
		}
	} else {
		return fmt.Errorf("loading snapshot: %w", err)
	}

	// Trigger actors
	engine := effect.NewEngine()
	actors := make([]*trigger.Actor, 0, len(actorConfigs))
	for _, ac := range actorConfigs {
		actors = append(actors, trigger.NewActor(ac.Name, ac.Rows, engine, arena, nil))
	}
	slog.Info("trigger actors ready", "count", len(actors))

	loop := sim.NewLoop(arena, cfg.TickRateHz)
	obsServer := observer.NewServer(hub, arena)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.BindAddress, cfg.Port),
		Handler: obsServer.Handler(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loop.Run(gctx)
	})
	g.Go(func() error {
		slog.Info("observer endpoint listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("observer server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	// Persist world state on the way out.
	saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if saveErr := persistWorld(saveCtx, arena, repo, snapPath); saveErr != nil {
		slog.Error("persisting world on shutdown", "err", saveErr)
	}

	return err
}

// spawn adds c to the arena and wires its attribute writes to the hub.
func spawn(arena *world.Arena, hub *observer.Hub, c *model.Character) world.Ref {
	objectID := c.ObjectID()
	c.Attributes().Subscribe(func(id attribute.ID, value float64) {
		hub.BroadcastChange(observer.Change{
			ObjectID:  objectID,
			Attribute: id.Name(),
			Value:     value,
		})
	})
	return arena.Add(c)
}

// restoreFromDatabase rebuilds the world from persisted character rows.
func restoreFromDatabase(ctx context.Context, repo *db.AttributeRepository, attrTable *data.AttributeTable, arena *world.Arena, hub *observer.Hub) error {
	records, err := repo.ListCharacters(ctx)
	if err != nil {
		return fmt.Errorf("listing characters: %w", err)
	}
	for _, rec := range records {
		bases, err := repo.LoadAttributes(ctx, rec.ID)
		if err != nil {
			return fmt.Errorf("loading attributes for character %d: %w", rec.ID, err)
		}
		c := model.NewCharacter(uint32(rec.ID), rec.Name, rec.Level)
		attrTable.ApplyWithBases(c.Attributes(), bases)
		spawn(arena, hub, c)
	}
	if len(records) > 0 {
		slog.Info("world restored from database", "characters", arena.Len())
	}
	return nil
}

// persistWorld saves a snapshot, upserts every live character's base
// values and deletes persisted characters that left the world during the
// session.
func persistWorld(ctx context.Context, arena *world.Arena, repo *db.AttributeRepository, snapPath string) error {
	snap := snapshot.Capture(arena)
	if err := snapshot.Save(snapPath, snap); err != nil {
		return err
	}
	live := make(map[int64]bool, len(snap.Characters))
	for _, sc := range snap.Characters {
		live[int64(sc.ObjectID)] = true
		if err := repo.SaveCharacter(ctx, int64(sc.ObjectID), sc.Name, sc.Level, sc.Bases); err != nil {
			return err
		}
	}

	records, err := repo.ListCharacters(ctx)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if !live[rec.ID] {
			if err := repo.DeleteCharacter(ctx, rec.ID); err != nil {
				return err
			}
			slog.Info("removed departed character", "character_id", rec.ID)
		}
	}

	slog.Info("world persisted", "characters", len(snap.Characters))
	return nil
}
