package tui

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lowaak/workout-session/workout-session-app/internal/safego"
)

// RestCueSource reports the end of a rest countdown.
type RestCueSource interface {
	OnRestFinished(cb func()) func()
}

// BaseUIView contains the base logic shared by all UI implementations
type BaseUIView struct {
	uiViewImpl    UIViewImpl
	uiModel       *UIModel
	uiController  *UIController
	context       context.Context
	cancelFunc    context.CancelFunc
	waitGroup     sync.WaitGroup
	unregisterCue func()
	logger        logrus.FieldLogger
}

// NewBaseUIViewArg holds the arguments for creating a new BaseUIView
type NewBaseUIViewArg struct {
	UIViewImpl   UIViewImpl
	UIModel      *UIModel
	UIController *UIController
	RestCue      RestCueSource // optional
	Logger       logrus.FieldLogger
}

// NewBaseUIView creates a new BaseUIView with the given implementation
func NewBaseUIView(args NewBaseUIViewArg) *BaseUIView {
	if args.Logger == nil {
		panic("BaseUIView: logger cannot be nil")
	}
	if args.UIViewImpl == nil {
		panic("BaseUIView: UIViewImpl cannot be nil")
	}
	if args.UIModel == nil {
		panic("BaseUIView: UIModel cannot be nil")
	}
	if args.UIController == nil {
		panic("BaseUIView: UIController cannot be nil")
	}
	ctx, cancel := context.WithCancel(context.Background())

	base := &BaseUIView{
		uiViewImpl:    args.UIViewImpl,
		uiModel:       args.UIModel,
		uiController:  args.UIController,
		context:       ctx,
		cancelFunc:    cancel,
		unregisterCue: func() {},
		logger:        args.Logger,
	}

	args.UIViewImpl.Initialize(args.UIController)
	args.UIViewImpl.SetupKeyboardHandlers(args.UIController)
	args.UIViewImpl.SetMode(args.UIModel.GetUIState().Mode)

	if args.RestCue != nil {
		base.unregisterCue = args.RestCue.OnRestFinished(args.UIViewImpl.Beep)
	}

	// Set up periodic resize check and initial display
	base.waitGroup.Add(1)
	safego.Go(base.logger, func() { base.monitorLogResize() })
	base.updateLogDisplay()

	base.setupEventListeners()

	return base
}

func (base *BaseUIView) setupEventListeners() {
	listenAndDraw(base, base.uiModel.ListenToLog, func(string) {
		// When a new log arrives, update the display to show the tail
		base.updateLogDisplay()
	})
	listenAndDraw(base, base.uiModel.ListenToNotice, base.uiViewImpl.SetNotice)
	listenAndDraw(base, base.uiModel.ListenToUIState, func(state UIState) {
		base.uiViewImpl.SetMode(state.Mode)
		base.uiViewImpl.SetUIState(state)
	})
	listenAndDraw(base, base.uiModel.ListenToWorkouts, base.uiViewImpl.UpdateWorkouts)
	listenAndDraw(base, base.uiModel.ListenToSession, base.uiViewImpl.UpdateSession)
	listenAndDraw(base, base.uiModel.ListenToGoals, base.uiViewImpl.UpdateGoals)
	listenAndDraw(base, base.uiModel.ListenToRecords, base.uiViewImpl.UpdateRecords)
	listenAndDraw(base, base.uiModel.ListenToCalendar, base.uiViewImpl.UpdateCalendar)

	// Listen to close application event from model
	closeChan := make(chan struct{}, 1)
	closeUnregister := base.uiModel.ListenToCloseApplication(closeChan)
	base.waitGroup.Add(1)
	safego.Go(base.logger, func() {
		defer base.waitGroup.Done()
		defer closeUnregister()
		select {
		case <-base.context.Done():
			return
		case _, ok := <-closeChan:
			if !ok {
				return
			}
			base.uiViewImpl.Stop()
		}
	})
}

// listenAndDraw registers a channel with register and, for every value
// received until the view shuts down, calls apply and redraws.
func listenAndDraw[T any](base *BaseUIView, register func(chan T) func(), apply func(T)) {
	ch := make(chan T, 1)
	unregister := register(ch)
	base.waitGroup.Add(1)
	safego.Go(base.logger, func() {
		defer base.waitGroup.Done()
		defer unregister()
		for {
			select {
			case <-base.context.Done():
				return
			case value, ok := <-ch:
				if !ok {
					return
				}
				apply(value)
				if err := base.uiViewImpl.Draw(); err != nil {
					base.logger.Warnf("BaseUIView: Error drawing: %v", err)
				}
			}
		}
	})
}

func (base *BaseUIView) updateLogDisplay() {
	height := base.uiViewImpl.GetLogViewHeight()
	if height <= 0 {
		return
	}

	logLines := base.uiModel.GetLogTail(height)

	base.uiViewImpl.ClearLogView()
	for _, line := range logLines {
		if err := base.uiViewImpl.WriteLogLine(line); err != nil {
			// Not through the logger: the line would come straight back here
			return
		}
	}
}

func (base *BaseUIView) monitorLogResize() {
	defer base.waitGroup.Done()
	var lastHeight int
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-base.context.Done():
			return
		case <-ticker.C:
			height := base.uiViewImpl.GetLogViewHeight()
			if height != lastHeight && height > 0 {
				lastHeight = height
				base.updateLogDisplay()
				if err := base.uiViewImpl.Draw(); err != nil {
					base.logger.Warnf("BaseUIView: Error drawing: %v", err)
				}
			}
		}
	}
}

// Shutdown stops all goroutines and waits for them to finish
func (base *BaseUIView) Shutdown() {
	base.logger.Debugf("BaseUIView: Shutting down")
	base.unregisterCue()
	base.cancelFunc()
	base.waitGroup.Wait()
	base.logger.Debugf("BaseUIView: Shutdown complete")
}

// Run starts the UI and blocks until it exits
func (base *BaseUIView) Run() error {
	return base.uiViewImpl.Run()
}
