package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/lumiebot/lumie/pkg/bus"
	"github.com/lumiebot/lumie/pkg/channels"
	"github.com/lumiebot/lumie/pkg/config"
	"github.com/lumiebot/lumie/pkg/corpus"
	"github.com/lumiebot/lumie/pkg/dialog"
	"github.com/lumiebot/lumie/pkg/gateway"
	"github.com/lumiebot/lumie/pkg/logger"
	"github.com/lumiebot/lumie/pkg/ratelimit"
	"github.com/lumiebot/lumie/pkg/session"
	"github.com/lumiebot/lumie/pkg/sweeper"
)

// loadConfig reads .env (if present), then the JSON config, then
// applies environment overrides.
func loadConfig(path string, debug bool) (*config.Config, error) {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if debug {
		logger.SetLevel(logger.DEBUG)
	} else {
		logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	}

	return cfg, nil
}

// app holds everything a chat front end needs.
type app struct {
	cfg      *config.Config
	corpus   *corpus.Corpus
	sessions *session.Store
	limiter  *ratelimit.Limiter
	engine   *dialog.Engine
}

func buildApp(cfg *config.Config) (*app, error) {
	c, err := corpus.Load(cfg.Chat.TrainingDir, corpus.Options{
		FuzzyScoreLimit: cfg.Matcher.FuzzyScoreLimit,
		ScopedMargin:    cfg.Matcher.ScopedMargin,
	})
	if err != nil {
		return nil, fmt.Errorf("load training data: %w", err)
	}

	sessions := session.NewStore(session.Config{
		SessionTTL:       cfg.SessionTTL(),
		ContextTTL:       cfg.ContextTTL(),
		MaxRecentAnswers: cfg.Chat.MaxRecentAnswers,
	})
	limiter := ratelimit.NewLimiter(cfg.RateWindow(), cfg.RateLimit.MaxRequests)
	selector := dialog.NewAnswerSelector(sessions.RecentWindow(), nil)

	return &app{
		cfg:      cfg,
		corpus:   c,
		sessions: sessions,
		limiter:  limiter,
		engine:   dialog.NewEngine(c, sessions, limiter, selector),
	}, nil
}

func serveCmd(configPath string, debug bool) error {
	cfg, err := loadConfig(configPath, debug)
	if err != nil {
		return err
	}

	rt, err := buildApp(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Loaded %d intents (%d utterances, %d contexts)\n",
		rt.corpus.Len(), rt.corpus.UtteranceCount(), len(rt.corpus.Contexts()))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	msgBus := bus.NewMessageBus()
	go rt.engine.Run(ctx, msgBus)

	channelManager, err := channels.NewManager(cfg, msgBus)
	if err != nil {
		return fmt.Errorf("create channel manager: %w", err)
	}
	if err := channelManager.StartAll(ctx); err != nil {
		return fmt.Errorf("start channels: %w", err)
	}

	sweep, err := sweeper.NewSweeper(cfg.Sweep.Cron)
	if err != nil {
		return err
	}
	sweep.Register("sessions", rt.sessions)
	sweep.Register("rate-limits", rt.limiter)
	go sweep.Run(ctx)

	server := gateway.NewServer(cfg.ListenAddr(), rt.engine, rt.corpus, channelManager.GetStatus)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	fmt.Printf("✓ Lumie is live at http://%s\n", cfg.ListenAddr())
	fmt.Println("Press Ctrl+C to stop")

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			cancel()
			_ = channelManager.StopAll(context.Background())
			return fmt.Errorf("gateway: %w", err)
		}
	}

	fmt.Println("\nShutting down...")
	cancel()
	if err := server.Shutdown(context.Background()); err != nil {
		logger.WarnCF("main", "Gateway shutdown error", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if err := channelManager.StopAll(context.Background()); err != nil {
		logger.WarnCF("main", "Channel shutdown error", map[string]interface{}{
			"error": err.Error(),
		})
	}
	msgBus.Close()
	fmt.Println("✓ Lumie stopped")
	return nil
}

func chatCmd(configPath string, debug bool, message, userID string) error {
	cfg, err := loadConfig(configPath, debug)
	if err != nil {
		return err
	}

	rt, err := buildApp(cfg)
	if err != nil {
		return err
	}

	if userID == "" {
		userID = uuid.NewString()
	}
	sessionKey := "cli:" + userID

	if strings.TrimSpace(message) != "" {
		resp, err := rt.engine.Handle(context.Background(), sessionKey, message)
		if err != nil {
			return err
		}
		fmt.Printf("\n%s %s\n", appName, resp.Reply)
		return nil
	}

	fmt.Printf("%s Interactive mode (Ctrl+C to exit)\n\n", appName)
	return interactiveChat(rt.engine, sessionKey)
}

func interactiveChat(engine *dialog.Engine, sessionKey string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "You: ",
		HistoryFile:     filepath.Join(os.TempDir(), ".lumie_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("initialize readline: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				fmt.Println("\nGoodbye!")
				return nil
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("Goodbye!")
			return nil
		}

		resp, err := engine.Handle(context.Background(), sessionKey, input)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}

		fmt.Printf("\n%s %s\n\n", appName, resp.Reply)
	}
}

func validateCmd(configPath string) error {
	cfg, err := loadConfig(configPath, false)
	if err != nil {
		return err
	}

	c, err := corpus.Load(cfg.Chat.TrainingDir, corpus.Options{
		FuzzyScoreLimit: cfg.Matcher.FuzzyScoreLimit,
		ScopedMargin:    cfg.Matcher.ScopedMargin,
	})
	if err != nil {
		return fmt.Errorf("training data invalid: %w", err)
	}

	fmt.Printf("Training data: %s\n", cfg.Chat.TrainingDir)
	fmt.Printf("  Intents:    %d\n", c.Len())
	fmt.Printf("  Utterances: %d\n", c.UtteranceCount())
	fmt.Printf("  Answers:    %d\n", c.AnswerCount())

	ctxs := c.Contexts()
	sort.Strings(ctxs)
	if len(ctxs) > 0 {
		fmt.Printf("  Contexts:   %s\n", strings.Join(ctxs, ", "))
	} else {
		fmt.Println("  Contexts:   none")
	}

	if c.Fallback() != nil {
		fmt.Println("  Fallback:   ✓")
	} else {
		fmt.Println("  Fallback:   ✗ (replies echo the message when nothing matches)")
	}

	fmt.Println("OK")
	return nil
}
