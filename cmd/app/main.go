package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"AutoOptimiser/internal/di"
	"AutoOptimiser/internal/domain/models"
	"AutoOptimiser/internal/services/ranking"
	"AutoOptimiser/pkg/config"
	xhttp "AutoOptimiser/pkg/http"
	"AutoOptimiser/pkg/tui"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	envPath := flag.String("env", ".env", "dotenv file loaded before the config")
	requestPath := flag.String("request", "", "run this YAML request once and print the ranked results")
	useTUI := flag.Bool("tui", true, "show a progress view for -request when stdout is a terminal")
	flag.Parse()

	if err := godotenv.Load(*envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("dotenv load failed: %v", err)
	}

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if *requestPath != "" {
		os.Exit(runOnce(cfg, *requestPath, *useTUI && tui.Available()))
	}

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}
	defer cleanup()

	if err := app.Run(context.Background()); err != nil {
		log.Printf("app error: %v", err)
		cleanup()
		os.Exit(1)
	}
}

type runOutput struct {
	Session string                 `json:"session"`
	Phase   models.Phase           `json:"phase"`
	Error   string                 `json:"error,omitempty"`
	Account models.AccountSettings `json:"account"`
	All     []models.ResultRecord  `json:"all"`
	History []models.ResultRecord  `json:"history"`
	Forward []models.ResultRecord  `json:"forward"`
}

func runOnce(cfg *config.Config, path string, withTUI bool) int {
	req, err := loadRequest(path)
	if err != nil {
		log.Printf("request: %v", err)
		return 2
	}

	// The request runs in the foreground; stdout carries the result JSON
	// or the progress view, so logs go elsewhere.
	cfg.Queue.Enabled = false
	switch {
	case withTUI && (cfg.Logger.Output == "" || cfg.Logger.Output == "stdout" || cfg.Logger.Output == "stderr"):
		cfg.Logger.Output = filepath.Join(cfg.Terminal.WorkDir, "optimiser.log")
	case cfg.Logger.Output == "" || cfg.Logger.Output == "stdout":
		cfg.Logger.Output = "stderr"
	}

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		log.Printf("app initialization failed: %v", err)
		return 1
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	viewDone := make(chan struct{})
	if withTUI {
		events, unsubscribe := app.Subscribe()
		updates := make(chan tui.Update, 16)
		go func() {
			defer close(updates)
			defer unsubscribe()
			for ev := range events {
				done := ev.Kind != models.EventProgress
				updates <- tui.Update{Time: ev.Time, Label: ev.Label, Percent: ev.Percent, Done: done, Err: ev.Error}
				if done {
					return
				}
			}
		}()
		go func() {
			defer close(viewDone)
			title := fmt.Sprintf("%s %s", req.Strategy, req.Symbol)
			if err := tui.Run(ctx, title, app.Runs().Variant(), updates, cancel); err != nil {
				log.Printf("progress view: %v", err)
			}
		}()
	} else {
		close(viewDone)
	}

	snap, runErr := app.RunOnce(ctx, req)
	<-viewDone
	if snap == nil {
		log.Printf("run failed: %v", runErr)
		return 1
	}

	out := runOutput{
		Session: snap.ID,
		Phase:   snap.Phase,
		Error:   snap.Error,
		Account: snap.Account,
		All:     ranking.Rank(snap.Results.All, req.Criteria, req.SortDirection),
		History: ranking.Rank(snap.Results.History, req.Criteria, req.SortDirection),
		Forward: ranking.Rank(snap.Results.Forward, req.Criteria, req.SortDirection),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Printf("write results: %v", err)
		return 1
	}
	if snap.Phase == models.PhaseFailed {
		return 1
	}
	return 0
}

func loadRequest(path string) (*models.RunRequest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var req models.RunRequest
	if err := yaml.Unmarshal(b, &req); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if verr := xhttp.ValidateStruct(context.Background(), &req); verr != nil {
		return nil, fmt.Errorf("invalid %s: %v", path, verr)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}
