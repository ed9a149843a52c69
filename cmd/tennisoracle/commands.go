package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rewired-gh/tennisoracle/internal/cache"
	"github.com/rewired-gh/tennisoracle/internal/config"
	"github.com/rewired-gh/tennisoracle/internal/filter"
	"github.com/rewired-gh/tennisoracle/internal/logger"
	"github.com/rewired-gh/tennisoracle/internal/models"
	"github.com/rewired-gh/tennisoracle/internal/predictapi"
	"github.com/rewired-gh/tennisoracle/internal/storage"
	"github.com/rewired-gh/tennisoracle/internal/telegram"
	"github.com/rewired-gh/tennisoracle/internal/watch"
)

type app struct {
	cfg    *config.Config
	store  *storage.Storage
	client *predictapi.Client
	// source serves the cacheable collection calls; it is either client or a cache in front of it.
	source   cache.Source
	settings storage.Settings
	out      io.Writer
}

func (a *app) run(ctx context.Context, args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "health":
		return a.health(ctx)
	case "predictions":
		return a.predictions(ctx, rest)
	case "dashboard":
		return a.dashboard(ctx)
	case "match":
		return a.match(ctx, rest)
	case "tournament":
		return a.tournament(ctx, rest)
	case "predict":
		return a.predict(ctx, rest)
	case "watch":
		return a.watch(ctx)
	case "settings":
		return a.settingsCmd(ctx, rest)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

// checkConnection probes the service and records the outcome.
func (a *app) checkConnection(ctx context.Context) bool {
	connected := a.client.CheckConnection(ctx)
	check := storage.ConnectionCheck{
		APIURL:    a.client.BaseURL(),
		Connected: connected,
		CheckedAt: time.Now(),
	}
	if err := a.store.RecordConnectionCheck(check); err != nil {
		logger.Warn("Failed to record connection check: %v", err)
	}
	return connected
}

func (a *app) health(ctx context.Context) error {
	if !a.checkConnection(ctx) {
		return fmt.Errorf("cannot reach prediction service at %s", a.client.BaseURL())
	}
	fmt.Fprintf(a.out, "Connected to %s\n", a.client.BaseURL())
	return nil
}

func (a *app) predictions(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("predictions", flag.ContinueOnError)
	fs.SetOutput(a.out)
	query := fs.String("q", "", "match player or tournament names containing TEXT")
	bandFlag := fs.String("band", "all", "confidence band: all, high, medium or low")
	if err := fs.Parse(args); err != nil {
		return err
	}
	band, err := models.ParseBand(*bandFlag)
	if err != nil {
		return err
	}

	records, err := a.source.FetchPredictions(ctx)
	if err != nil {
		return err
	}
	shown := filter.Apply(records, filter.Criteria{Text: *query, Band: band})
	renderPredictions(a.out, shown)
	fmt.Fprintf(a.out, "\n%d of %d predictions\n", len(shown), len(records))
	return nil
}

func (a *app) dashboard(ctx context.Context) error {
	stats, err := a.source.FetchDashboardStats(ctx)
	if err != nil {
		return err
	}
	renderDashboard(a.out, stats)
	return nil
}

func (a *app) match(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: match <tournament> <player A vs player B>")
	}
	detail, err := a.client.FetchMatchDetail(ctx, args[0], args[1])
	if errors.Is(err, predictapi.ErrNotFound) {
		fmt.Fprintf(a.out, "No data available for %s in %s\n", args[1], args[0])
		return nil
	}
	if err != nil {
		return err
	}
	renderMatch(a.out, detail)
	return nil
}

func (a *app) tournament(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: tournament <name>")
	}
	records, err := a.client.FetchTournament(ctx, args[0])
	if errors.Is(err, predictapi.ErrNotFound) {
		fmt.Fprintf(a.out, "No predictions for %s\n", args[0])
		return nil
	}
	if err != nil {
		return err
	}
	renderPredictions(a.out, records)
	return nil
}

func (a *app) predict(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("predict", flag.ContinueOnError)
	fs.SetOutput(a.out)
	surface := fs.String("surface", models.DefaultSurface, "court surface")
	tournament := fs.String("tournament", models.DefaultTournament, "tournament category")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("usage: predict [-surface S] [-tournament T] <player1> <player2>")
	}

	prediction, err := a.client.Predict(ctx, models.PredictRequest{
		Player1:    fs.Arg(0),
		Player2:    fs.Arg(1),
		Surface:    *surface,
		Tournament: *tournament,
	})
	if err != nil {
		return err
	}
	renderPredictions(a.out, []models.PredictionRecord{*prediction})
	return nil
}

func (a *app) watch(ctx context.Context) error {
	minBand, err := models.ParseBand(a.cfg.Watch.MinBand)
	if err != nil {
		return err
	}
	wcfg := watch.Config{
		PollInterval:   a.cfg.Watch.PollInterval,
		Query:          filter.Criteria{Text: a.cfg.Watch.Query},
		MinBand:        minBand,
		Cooldown:       a.cfg.Watch.Cooldown,
		InitialBackoff: a.cfg.Watch.InitialBackoff,
		MaxBackoff:     a.cfg.Watch.MaxBackoff,
	}

	var notifier watch.Notifier
	if a.cfg.Telegram.Enabled && a.settings.Notifications {
		tg, err := telegram.NewClient(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID,
			a.cfg.Telegram.MaxRetries, a.cfg.Telegram.RetryDelayBase)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram client: %w", err)
		}
		tg.SetStatusFunc(func(ctx context.Context) (string, bool) {
			return a.client.BaseURL(), a.checkConnection(ctx)
		})
		tg.ListenForCommands(ctx)
		notifier = tg
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	w := watch.New(a.source, notifier, wcfg)
	w.OnUpdate = func(records []models.PredictionRecord) {
		counts := filter.Count(records)
		fmt.Fprintf(a.out, "%s  %d predictions (high %d, medium %d, low %d)\n",
			time.Now().Format("15:04:05"), counts.Total(), counts.High, counts.Medium, counts.Low)
	}

	logger.Info("Prediction service at %s", a.client.BaseURL())
	return w.Run(ctx)
}

func (a *app) settingsCmd(ctx context.Context, args []string) error {
	if len(args) == 0 {
		args = []string{"show"}
	}
	switch args[0] {
	case "show":
		checks, err := a.store.RecentConnectionChecks(5)
		if err != nil {
			return err
		}
		renderSettings(a.out, a.settings, checks)
		return nil

	case "reset":
		st, err := a.store.ResetSettings()
		if err != nil {
			return err
		}
		a.settings = st
		if err := a.client.Configure(st.APIURL); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Settings restored to defaults")
		renderSettings(a.out, st, nil)
		return nil

	case "set-url":
		if len(args) != 2 {
			return errors.New("usage: settings set-url URL")
		}
		previous := a.client.BaseURL()
		if err := a.client.Configure(args[1]); err != nil {
			return err
		}
		st := a.settings
		st.APIURL = a.client.BaseURL()
		if err := a.store.SaveSettings(&st); err != nil {
			_ = a.client.Configure(previous)
			return err
		}
		a.settings = st
		if a.checkConnection(ctx) {
			fmt.Fprintf(a.out, "Saved %s (connected)\n", st.APIURL)
		} else {
			fmt.Fprintf(a.out, "Saved %s (not reachable right now)\n", st.APIURL)
		}
		return nil

	case "set":
		if len(args) != 3 {
			return errors.New("usage: settings set <notifications|auto_refresh|dark_mode> <on|off>")
		}
		on, err := parseSwitch(args[2])
		if err != nil {
			return err
		}
		st := a.settings
		switch args[1] {
		case "notifications":
			st.Notifications = on
		case "auto_refresh":
			st.AutoRefresh = on
		case "dark_mode":
			st.DarkMode = on
		default:
			return fmt.Errorf("unknown setting %q", args[1])
		}
		if err := a.store.SaveSettings(&st); err != nil {
			return err
		}
		a.settings = st
		renderSettings(a.out, st, nil)
		return nil
	}
	return fmt.Errorf("unknown settings action %q", args[0])
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}
