package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"

	"github.com/lowaak/workout-session/workout-session-app/internal/api"
	"github.com/lowaak/workout-session/workout-session-app/internal/auth"
	"github.com/lowaak/workout-session/workout-session-app/internal/config"
	"github.com/lowaak/workout-session/workout-session-app/internal/logging"
	"github.com/lowaak/workout-session/workout-session-app/internal/session"
	"github.com/lowaak/workout-session/workout-session-app/internal/tui"
)

// Buffered so a burst of log lines does not stall callers while the UI draws
const uiLogBuffer = 256

func main() {
	fs := config.NewFlagSet("workout-session")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) (err error) {
	uiLines := make(chan string, uiLogBuffer)
	logger, logCloser := logging.Setup(logging.LoggerSetupParams{
		LogFileName: cfg.Log.File,
		LogToStdout: cfg.Log.Stdout,
		LogLevel:    cfg.Log.Level,
		UILines:     uiLines,
	})
	if logCloser != nil {
		defer func() { err = multierr.Append(err, logCloser.Close()) }()
	}
	logger.Infof("Starting workout session client against %s", cfg.API.URL)

	authSession := auth.NewSession(auth.NewSessionArg{Logger: logger, Path: cfg.Session.File})
	if err := authSession.Hydrate(); err != nil {
		logger.Warnf("Could not restore stored login: %v", err)
	}

	client := api.NewClient(api.NewClientArg{
		BaseURL: cfg.API.URL,
		Timeout: cfg.API.Timeout,
		Tokens:  authSession,
		Logger:  logger,
	})

	timer := session.NewTimer(session.NewTimerArg{Logger: logger, RestSeconds: cfg.Timer.RestDefault})
	sessionCtrl := session.NewController(session.NewControllerArg{
		API:        client,
		Timer:      timer,
		Logger:     logger,
		QuickPicks: cfg.Timer.QuickPicks,
	})
	defer sessionCtrl.Close()

	model := tui.NewUIModel(tui.NewUIModelArg{
		Session:         sessionCtrl,
		Logger:          logger,
		UILogChan:       uiLines,
		GenerateMinutes: cfg.Workout.DefaultDuration,
	})
	defer model.Shutdown()

	controller := tui.NewUIController(tui.NewUIControllerArg{
		Model:   model,
		Backend: client,
		Auth:    authSession,
		Session: sessionCtrl,
		Logger:  logger,
	})
	defer controller.Shutdown()

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("create screen: %w", err)
	}

	impl := tui.NewCursesUIView(logger, tview.NewApplication(), screen)
	view := tui.NewBaseUIView(tui.NewBaseUIViewArg{
		UIViewImpl:   impl,
		UIModel:      model,
		UIController: controller,
		RestCue:      sessionCtrl,
		Logger:       logger,
	})
	defer view.Shutdown()

	if err := view.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	logger.Infof("Workout session client stopped")
	return nil
}
