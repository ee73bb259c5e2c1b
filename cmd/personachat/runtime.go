package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"pkt.systems/pslog"

	"github.com/jask/personachat/internal/catalog"
	"github.com/jask/personachat/internal/config"
	"github.com/jask/personachat/internal/database"
	"github.com/jask/personachat/internal/database/repository"
	"github.com/jask/personachat/internal/state"
	"github.com/jask/personachat/internal/tui"
)

// runtime is everything a command needs once configuration is loaded.
type runtime struct {
	cfg    config.Config
	db     *sql.DB
	cat    *catalog.Catalog
	stores tui.Stores
}

func (r *runtime) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

func openRuntime(ctx context.Context, cfgPath string) (*runtime, error) {
	if cfgPath != "" {
		if err := os.Setenv("PERSONACHAT_CONFIG", cfgPath); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger := pslog.Ctx(ctx)

	cat, err := loadCatalog(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	if _, ok := cat.Lookup(cfg.UI.DefaultPersona); !ok {
		return nil, fmt.Errorf("default persona %q is not in the catalog", cfg.UI.DefaultPersona)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}
	if err := database.RunMigrations(cfg.Database.Path); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	rt := &runtime{cfg: cfg, db: db, cat: cat}
	if err := database.SeedDefaults(ctx, db, cfg.UI.DefaultPersona); err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("seed defaults: %w", err)
	}

	chat := state.NewChatStore(repository.NewConversationRepo(db), cat, cfg.UI.DefaultPersona, logger)
	purposes := state.NewPurposeStore(repository.NewHiddenPersonaRepo(db), logger)
	prefs := state.NewPrefsStore(state.PrefsState{ShowFinder: cfg.UI.ShowFinder}, func(st state.PrefsState) error {
		saved := rt.cfg
		saved.UI.ShowFinder = st.ShowFinder
		return config.Save(saved)
	}, logger)
	messages := state.NewMessageLog(repository.NewMessageRepo(db), logger)

	if err := chat.Load(ctx); err != nil {
		_ = rt.Close()
		return nil, err
	}
	if err := purposes.Load(ctx); err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.stores = tui.Stores{Chat: chat, Purposes: purposes, Prefs: prefs, Messages: messages}
	logger.Debug("runtime ready", "db", cfg.Database.Path, "personas", cat.Len())
	return rt, nil
}

// checkConversation rejects a --conversation id that is not stored.
func (r *runtime) checkConversation(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	conv, err := repository.NewConversationRepo(r.db).Get(ctx, id)
	if err != nil {
		return fmt.Errorf("look up conversation: %w", err)
	}
	if conv == nil {
		return fmt.Errorf("conversation %q not found; run `personachat conversations` to list them", id)
	}
	return nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	cat, err := catalog.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return cat, nil
}

var errNoTerminal = errors.New("personachat needs an interactive terminal; see --help for subcommands")

func runTUI(ctx context.Context, cfgPath, conversationID string) error {
	if fd := os.Stdout.Fd(); !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return errNoTerminal
	}
	if cfgPath != "" {
		if err := os.Setenv("PERSONACHAT_CONFIG", cfgPath); err != nil {
			return err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger, closer, err := newFileLogger(cfg.Log.Path, cfg.Log.Level)
	if err != nil {
		return err
	}
	defer closer.Close()
	ctx = pslog.ContextWithLogger(ctx, logger)

	rt, err := openRuntime(ctx, "")
	if err != nil {
		return err
	}
	defer rt.Close()
	if err := rt.checkConversation(ctx, conversationID); err != nil {
		return err
	}

	seed := uint64(rt.cfg.Examples.Seed)
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	app := tui.New(ctx, rt.cat, rt.stores, tui.Options{
		ConversationID: conversationID,
		DefaultPersona: rt.cfg.UI.DefaultPersona,
		Rand:           rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		TileWidth:      rt.cfg.UI.TileWidth,
	})
	logger.Info("personachat started", "conversation", conversationID)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

// newFileLogger writes structured logs to path; the terminal belongs to the TUI.
func newFileLogger(path, level string) (pslog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("mkdir log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log: %w", err)
	}
	return newLogger(f, level), f, nil
}

func newLogger(w io.Writer, level string) pslog.Logger {
	opts := pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	}
	switch level {
	case "trace":
		opts.MinLevel = pslog.TraceLevel
	case "debug":
		opts.MinLevel = pslog.DebugLevel
	case "error":
		opts.MinLevel = pslog.ErrorLevel
	}
	return pslog.NewWithOptions(w, opts)
}
