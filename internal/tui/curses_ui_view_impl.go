package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/sirupsen/logrus"

	"github.com/lowaak/workout-session/workout-session-app/internal/models"
	"github.com/lowaak/workout-session/workout-session-app/internal/session"
)

// Page names for tview.Pages
const (
	pageLogin    = "login"
	pageWorkouts = "workouts"
	pageSession  = "session"
	pageGoals    = "goals"
	pageRecords  = "records"
	pageCalendar = "calendar"

	pageMain    = "main"
	pageLevelUp = "level_up"
	pageForm    = "form"
)

const progressBarWidth = 30

// blockRef identifies a node of the session block tree. exercise is -1 for
// block nodes.
type blockRef struct {
	block    int
	exercise int
}

// CursesUIViewImpl implements UIViewImpl using tview (curses-based terminal UI)
type CursesUIViewImpl struct {
	logger      logrus.FieldLogger
	app         *tview.Application
	screen      tcell.Screen
	currentMode UIMode

	// Root: main layout with the level-up modal and input forms as overlay
	// pages
	root      *tview.Pages
	form      *tview.Form
	formShown bool

	// Shared components (visible in all modes)
	pages      *tview.Pages
	headerView *tview.TextView
	noticeView *tview.TextView
	logView    *tview.TextView
	mainFlex   *tview.Flex

	// Login mode components
	loginForm       *tview.Form
	emailField      *tview.InputField
	passwordField   *tview.InputField
	nameField       *tview.InputField
	loginTabWidgets []tview.Primitive

	// Workouts mode components
	workoutsFlex       *tview.Flex
	workoutsHint       *tview.TextView
	workoutList        *tview.List
	workoutDetails     *tview.TextView
	workoutsTabWidgets []tview.Primitive
	workoutsState      WorkoutsState

	// Session mode components
	sessionFlex       *tview.Flex
	sessionHeader     *tview.TextView
	progressView      *tview.TextView
	timerPanel        *tview.TextView
	blockTree         *tview.TreeView
	sessionTabWidgets []tview.Primitive
	treeKey           string
	levelUpModal      *tview.Modal
	levelUpShown      bool

	// Goals mode components
	goalsFlex       *tview.Flex
	goalList        *tview.List
	goalStatsView   *tview.TextView
	goalsTabWidgets []tview.Primitive
	goalsState      GoalsState

	// Records mode components
	recordsFlex       *tview.Flex
	recordsTable      *tview.Table
	recentView        *tview.TextView
	recordsTabWidgets []tview.Primitive
	recordsState      RecordsState

	// Calendar mode components
	calendarFlex       *tview.Flex
	calendarTable      *tview.Table
	calendarSummary    *tview.TextView
	calendarTabWidgets []tview.Primitive
}

// NewCursesUIView creates the tview view. screen is handed to app so the
// view can ring its bell; it may be nil, in which case app creates its own
// screen and Beep does nothing.
func NewCursesUIView(logger logrus.FieldLogger, app *tview.Application, screen tcell.Screen) *CursesUIViewImpl {
	if logger == nil {
		panic("CursesUIView: logger cannot be nil")
	}
	if app == nil {
		panic("CursesUIView: app cannot be nil")
	}
	if screen != nil {
		app.SetScreen(screen)
	}
	return &CursesUIViewImpl{
		logger:      logger,
		app:         app,
		screen:      screen,
		currentMode: UIModeLogin,
	}
}

// Initialize sets up the tview widgets
func (ui *CursesUIViewImpl) Initialize(controller *UIController) {
	// No SetChangedFunc with app.Draw() here: it can hang during shutdown.
	// The BaseUIView's event listeners call Draw() after updating content.
	ui.logView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	ui.logView.SetBorder(true).SetTitle(" Logs ")

	ui.headerView = tview.NewTextView().SetDynamicColors(true)
	ui.noticeView = tview.NewTextView().SetDynamicColors(true)
	ui.SetUIState(UIState{Mode: UIModeLogin})

	ui.pages = tview.NewPages()

	ui.initLoginMode(controller)
	ui.initWorkoutsMode(controller)
	ui.initSessionMode(controller)
	ui.initGoalsMode(controller)
	ui.initRecordsMode(controller)
	ui.initCalendarMode(controller)

	ui.pages.AddPage(pageLogin, ui.loginForm, true, true)
	ui.pages.AddPage(pageWorkouts, ui.workoutsFlex, true, false)
	ui.pages.AddPage(pageSession, ui.sessionFlex, true, false)
	ui.pages.AddPage(pageGoals, ui.goalsFlex, true, false)
	ui.pages.AddPage(pageRecords, ui.recordsFlex, true, false)
	ui.pages.AddPage(pageCalendar, ui.calendarFlex, true, false)

	// Main layout: header, then mode content on the left and logs on the
	// right, then the status line
	body := tview.NewFlex().
		AddItem(ui.pages, 0, 3, true).
		AddItem(ui.logView, 0, 2, false)
	ui.mainFlex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(ui.headerView, 1, 0, false).
		AddItem(body, 0, 1, true).
		AddItem(ui.noticeView, 1, 0, false)

	ui.levelUpModal = tview.NewModal().
		AddButtons([]string{"Continue"}).
		SetDoneFunc(func(int, string) {
			controller.AcknowledgeLevelUp()
		})

	ui.root = tview.NewPages().
		AddPage(pageMain, ui.mainFlex, true, true).
		AddPage(pageLevelUp, ui.levelUpModal, true, false)

	ui.setFocusForCurrentMode()
}

// initLoginMode sets up the Login mode UI
func (ui *CursesUIViewImpl) initLoginMode(controller *UIController) {
	ui.emailField = tview.NewInputField().SetLabel("Email    ").SetFieldWidth(36)
	ui.passwordField = tview.NewInputField().SetLabel("Password ").SetFieldWidth(36).SetMaskCharacter('*')
	ui.nameField = tview.NewInputField().SetLabel("Name     ").SetFieldWidth(36)

	ui.loginForm = tview.NewForm().
		AddFormItem(ui.emailField).
		AddFormItem(ui.passwordField).
		AddFormItem(ui.nameField).
		AddButton("Login", func() {
			controller.Login(ui.emailField.GetText(), ui.passwordField.GetText())
		}).
		AddButton("Register", func() {
			controller.Register(ui.emailField.GetText(), ui.passwordField.GetText(), ui.nameField.GetText())
		}).
		AddButton("Quit", func() {
			controller.OnEscapeKey()
		})
	ui.loginForm.SetBorder(true).SetTitle(" Sign in (Name is only needed to register) ")
	ui.loginTabWidgets = []tview.Primitive{ui.loginForm}
}

// initWorkoutsMode sets up the generator and history UI
func (ui *CursesUIViewImpl) initWorkoutsMode(controller *UIController) {
	ui.workoutsHint = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)

	ui.workoutList = tview.NewList().
		ShowSecondaryText(true).
		SetSelectedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
			controller.OnWorkoutSelected(index)
		}).
		SetChangedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
			ui.updateWorkoutDetailsDisplay(index)
		})
	ui.workoutList.SetBorder(true).SetTitle(" History ")

	ui.workoutDetails = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft).
		SetScrollable(true)
	ui.workoutDetails.SetBorder(true).SetTitle(" Details ")

	ui.workoutsTabWidgets = []tview.Primitive{ui.workoutList, ui.workoutDetails}

	content := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(ui.workoutList, 0, 1, true).
		AddItem(ui.workoutDetails, 0, 1, false)

	ui.workoutsFlex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(ui.workoutsHint, 2, 0, false).
		AddItem(content, 0, 1, true)

	ui.UpdateWorkouts(WorkoutsState{GenerateMinutes: MinGenerateMinutes})
}

// initSessionMode sets up the in-session UI
func (ui *CursesUIViewImpl) initSessionMode(controller *UIController) {
	ui.sessionHeader = tview.NewTextView().SetDynamicColors(true)
	ui.sessionHeader.SetBorder(true).SetTitle(" Workout ")

	ui.progressView = tview.NewTextView().SetDynamicColors(true)

	ui.timerPanel = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	ui.timerPanel.SetBorder(true).SetTitle(" Timer ")

	ui.blockTree = tview.NewTreeView().
		SetRoot(tview.NewTreeNode("")).
		SetTopLevel(1).
		SetGraphics(true)
	ui.blockTree.SetBorder(true).SetTitle(" Blocks ")
	ui.blockTree.SetSelectedFunc(func(node *tview.TreeNode) {
		ref, ok := node.GetReference().(blockRef)
		if !ok {
			return
		}
		if ref.exercise < 0 {
			controller.ToggleBlock(ref.block)
			return
		}
		controller.ToggleExercise(ref.block, ref.exercise)
	})

	hint := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText("[yellow]Enter[white] Check off / expand  |  [yellow]e[white] Expand block  |  [yellow]c[white] Complete workout  |  [yellow]Esc[white] Back")

	ui.sessionTabWidgets = []tview.Primitive{ui.blockTree}

	ui.sessionFlex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(ui.sessionHeader, 4, 0, false).
		AddItem(ui.progressView, 1, 0, false).
		AddItem(ui.timerPanel, 6, 0, false).
		AddItem(ui.blockTree, 0, 1, true).
		AddItem(hint, 1, 0, false)

	ui.UpdateSession(session.Snapshot{})
}

// initGoalsMode sets up the goals UI
func (ui *CursesUIViewImpl) initGoalsMode(controller *UIController) {
	ui.goalList = tview.NewList().ShowSecondaryText(true)
	ui.goalList.SetBorder(true).SetTitle(" Goals ")

	ui.goalStatsView = tview.NewTextView().SetDynamicColors(true)
	ui.goalStatsView.SetBorder(true).SetTitle(" Summary ")

	hint := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText("[yellow]a[white] New goal  |  [yellow]u[white] Update progress  |  [yellow]f[white] Filter  |  [yellow]c[white] Mark complete  |  [yellow]d[white] Delete")

	ui.goalsTabWidgets = []tview.Primitive{ui.goalList, ui.goalStatsView}

	content := tview.NewFlex().
		AddItem(ui.goalList, 0, 2, true).
		AddItem(ui.goalStatsView, 0, 1, false)
	ui.goalsFlex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(hint, 1, 0, false).
		AddItem(content, 0, 1, true)

	ui.UpdateGoals(GoalsState{Filter: models.GoalFilterAll})
}

// initRecordsMode sets up the personal records UI
func (ui *CursesUIViewImpl) initRecordsMode(controller *UIController) {
	ui.recordsTable = tview.NewTable().
		SetBorders(false).
		SetSelectable(true, false).
		SetFixed(1, 0)
	ui.recordsTable.SetBorder(true).SetTitle(" Personal records ")

	ui.recentView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	ui.recentView.SetBorder(true).SetTitle(" History and recent PRs ")

	hint := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText("[yellow]a[white] Log record  |  [yellow]h[white] History  |  [yellow]d[white] Delete  |  [yellow]R[white] Refresh")

	ui.recordsTabWidgets = []tview.Primitive{ui.recordsTable, ui.recentView}

	content := tview.NewFlex().
		AddItem(ui.recordsTable, 0, 2, true).
		AddItem(ui.recentView, 0, 1, false)
	ui.recordsFlex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(hint, 1, 0, false).
		AddItem(content, 0, 1, true)

	ui.UpdateRecords(RecordsState{})
}

// initCalendarMode sets up the month view
func (ui *CursesUIViewImpl) initCalendarMode(controller *UIController) {
	ui.calendarTable = tview.NewTable().
		SetBorders(false).
		SetSelectable(true, true).
		SetFixed(1, 0)
	ui.calendarTable.SetBorder(true)

	ui.calendarSummary = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	ui.calendarSummary.SetBorder(true).SetTitle(" Trained days ")

	hint := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText("[yellow]<[white] Previous month  |  [yellow]>[white] Next month  |  [yellow]R[white] Refresh  |  [green]green[white] completed, [yellow]yellow[white] not completed")

	ui.calendarTabWidgets = []tview.Primitive{ui.calendarTable, ui.calendarSummary}

	content := tview.NewFlex().
		AddItem(ui.calendarTable, 0, 3, true).
		AddItem(ui.calendarSummary, 0, 2, false)
	ui.calendarFlex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(hint, 1, 0, false).
		AddItem(content, 0, 1, true)

	ui.UpdateCalendar(CalendarState{})
}

// SetMode switches the UI to the specified mode
func (ui *CursesUIViewImpl) SetMode(mode UIMode) {
	if ui.currentMode == mode {
		return
	}

	ui.currentMode = mode
	ui.closeForm()

	switch mode {
	case UIModeLogin:
		ui.pages.SwitchToPage(pageLogin)
	case UIModeWorkouts:
		ui.pages.SwitchToPage(pageWorkouts)
	case UIModeSession:
		ui.pages.SwitchToPage(pageSession)
	case UIModeGoals:
		ui.pages.SwitchToPage(pageGoals)
	case UIModeRecords:
		ui.pages.SwitchToPage(pageRecords)
	case UIModeCalendar:
		ui.pages.SwitchToPage(pageCalendar)
	}

	ui.noticeView.Clear()
	ui.setFocusForCurrentMode()
}

// GetCurrentMode returns the currently active UI mode
func (ui *CursesUIViewImpl) GetCurrentMode() UIMode {
	return ui.currentMode
}

// SetUIState updates the header line
func (ui *CursesUIViewImpl) SetUIState(state UIState) {
	var b strings.Builder
	b.WriteString(" [::b]Workout Session[::-]  ")
	if state.User != nil {
		name := state.User.Name
		if name == "" {
			name = state.User.Email
		}
		fmt.Fprintf(&b, "[green]%s[white] (%s, %d done)  ",
			tview.Escape(name), tview.Escape(string(state.User.CurrentLevel)), state.User.WorkoutsCompleted)
		for _, info := range AllUIModes {
			if info.KeyBinding == tcell.KeyNUL {
				continue
			}
			color := "white"
			if info.Mode == state.Mode {
				color = "aqua"
			}
			fmt.Fprintf(&b, "[yellow]%s[%s] %s  ", tcell.KeyNames[info.KeyBinding], color, info.DisplayName)
		}
		b.WriteString("[white]")
		// Password is not kept around once signed in
		if ui.passwordField != nil {
			ui.passwordField.SetText("")
		}
	} else {
		b.WriteString("[gray]not signed in[white]")
	}
	ui.headerView.SetText(b.String())
}

// SetNotice shows msg in the status line
func (ui *CursesUIViewImpl) SetNotice(msg string) {
	ui.noticeView.SetText(" [orange]" + tview.Escape(msg) + "[white]")
}

// setFocusForCurrentMode sets focus to the first widget in the current mode
func (ui *CursesUIViewImpl) setFocusForCurrentMode() {
	if ui.levelUpShown {
		ui.app.SetFocus(ui.levelUpModal)
		return
	}
	if ui.formShown {
		ui.app.SetFocus(ui.form)
		return
	}
	if widgets := ui.getTabWidgetsForCurrentMode(); len(widgets) > 0 {
		ui.app.SetFocus(widgets[0])
	}
}

// getTabWidgetsForCurrentMode returns the tab widgets for the current mode
func (ui *CursesUIViewImpl) getTabWidgetsForCurrentMode() []tview.Primitive {
	switch ui.currentMode {
	case UIModeLogin:
		return ui.loginTabWidgets
	case UIModeWorkouts:
		return ui.workoutsTabWidgets
	case UIModeSession:
		return ui.sessionTabWidgets
	case UIModeGoals:
		return ui.goalsTabWidgets
	case UIModeRecords:
		return ui.recordsTabWidgets
	case UIModeCalendar:
		return ui.calendarTabWidgets
	default:
		return nil
	}
}

// SetupKeyboardHandlers sets up keyboard event handlers
func (ui *CursesUIViewImpl) SetupKeyboardHandlers(controller *UIController) {
	ui.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		// The level-up modal owns the keyboard until it is dismissed
		if ui.levelUpShown {
			return event
		}

		// An open form takes every key; Esc closes it
		if ui.formShown {
			if event.Key() == tcell.KeyEscape {
				ui.closeForm()
				return nil
			}
			return event
		}

		// Function keys for mode switching
		if mode, ok := GetUIModeByKey(event.Key()); ok {
			// Delegate to controller - it will update the model, which will notify us
			controller.OnModeChange(mode)
			return nil
		}

		if event.Key() == tcell.KeyEscape {
			controller.OnEscapeKey()
			return nil
		}

		// The login form takes every other key as text input
		if ui.currentMode == UIModeLogin {
			return event
		}

		// Tab to switch focus between widgets in current mode
		if event.Key() == tcell.KeyTab {
			widgets := ui.getTabWidgetsForCurrentMode()
			widgetCount := len(widgets)
			for i := 0; i < widgetCount; i++ {
				if widgets[i].HasFocus() {
					ui.app.SetFocus(widgets[(i+1)%widgetCount])
					break
				}
			}
			return nil
		}

		if event.Key() != tcell.KeyRune {
			return event
		}
		r := event.Rune()

		switch ui.currentMode {
		case UIModeWorkouts:
			switch r {
			case 'g':
				controller.GenerateWorkout()
			case 'p':
				controller.PreviewWorkout()
			case 'n':
				ui.showNotesForm(controller)
			case '+', '=':
				controller.AdjustGenerateMinutes(1)
			case '-':
				controller.AdjustGenerateMinutes(-1)
			case 'd':
				controller.DeleteWorkout(ui.workoutList.GetCurrentItem())
			case 'R':
				controller.RefreshWorkouts()
			case 'L':
				controller.Logout()
			default:
				return event
			}
			return nil

		case UIModeSession:
			switch {
			case r == ' ':
				controller.ToggleTimer()
			case r == 'r':
				controller.ResetTimer()
			case r == 'm':
				controller.ToggleTimerMode()
			case r >= '1' && r <= '9':
				controller.QuickRest(int(r - '1'))
			case r == 'e':
				if ref, ok := ui.currentBlockRef(); ok {
					controller.ToggleBlock(ref.block)
				}
			case r == 'c':
				controller.CompleteWorkout()
			default:
				return event
			}
			return nil

		case UIModeGoals:
			switch r {
			case 'a':
				ui.showGoalForm(controller)
			case 'u':
				ui.showProgressForm(controller)
			case 'f':
				controller.CycleGoalFilter()
			case 'c':
				controller.CompleteGoal(ui.goalList.GetCurrentItem())
			case 'd':
				controller.DeleteGoal(ui.goalList.GetCurrentItem())
			default:
				return event
			}
			return nil

		case UIModeRecords:
			switch r {
			case 'a':
				ui.showRecordForm(controller)
			case 'h':
				controller.ShowExerciseHistory(ui.selectedRecord())
			case 'd':
				controller.DeleteRecord(ui.selectedRecord())
			case 'R':
				controller.RefreshRecords()
			default:
				return event
			}
			return nil

		case UIModeCalendar:
			switch r {
			case '<', ',':
				controller.ShiftCalendarMonth(-1)
			case '>', '.':
				controller.ShiftCalendarMonth(1)
			case 'R':
				controller.RefreshCalendar()
			default:
				return event
			}
			return nil
		}

		return event
	})
}

// GetLogViewHeight returns the visible height of the log view
func (ui *CursesUIViewImpl) GetLogViewHeight() int {
	_, _, _, height := ui.logView.GetInnerRect()
	return height
}

// ClearLogView clears the log view
func (ui *CursesUIViewImpl) ClearLogView() {
	ui.logView.Clear()
}

// WriteLogLine writes a line to the log view
func (ui *CursesUIViewImpl) WriteLogLine(line string) error {
	_, err := fmt.Fprint(ui.logView, line)
	return err
}

// Draw refreshes/redraws the UI
func (ui *CursesUIViewImpl) Draw() error {
	ui.app.Draw()
	return nil
}

// Beep rings the terminal bell
func (ui *CursesUIViewImpl) Beep() {
	if ui.screen == nil {
		return
	}
	if err := ui.screen.Beep(); err != nil {
		ui.logger.Debugf("CursesUIView: beep: %v", err)
	}
}

// Run starts the UI and blocks until it exits
func (ui *CursesUIViewImpl) Run() error {
	// SetRoot must be called before setting focus, otherwise focus may be reset
	ui.app.SetRoot(ui.root, true)
	ui.setFocusForCurrentMode()
	return ui.app.Run()
}

// Stop stops the UI framework
func (ui *CursesUIViewImpl) Stop() {
	ui.app.Stop()
}

// --- Workouts ---

// UpdateWorkouts refreshes the history list, keeping the selection by id
func (ui *CursesUIViewImpl) UpdateWorkouts(state WorkoutsState) {
	var selectedID int64
	if current := ui.workoutList.GetCurrentItem(); current >= 0 && current < len(ui.workoutsState.Workouts) {
		selectedID = ui.workoutsState.Workouts[current].ID
	}
	ui.workoutsState = state

	busy := ""
	if state.Busy {
		busy = "  [gray](working...)[white]"
	}
	ui.workoutsHint.SetText(fmt.Sprintf(
		"[yellow]g[white] Generate [aqua]%s[white] routine  |  [yellow]+[white]/[yellow]-[white] Length  |  [yellow]p[white] Preview  |  [yellow]Enter[white] Open\n[yellow]n[white] Notes  |  [yellow]d[white] Delete  |  [yellow]R[white] Refresh  |  [yellow]L[white] Logout%s",
		formatMinutes(state.GenerateMinutes), busy))

	ui.workoutList.Clear()
	selected := 0
	for i, w := range state.Workouts {
		if w.ID == selectedID {
			selected = i
		}
		ui.workoutList.AddItem(workoutTitle(w), workoutSubtitle(w), 0, nil)
	}
	if len(state.Workouts) > 0 {
		ui.workoutList.SetCurrentItem(selected)
	}
	ui.updateWorkoutDetailsDisplay(ui.workoutList.GetCurrentItem())
}

// updateWorkoutDetailsDisplay formats the stats and the highlighted workout
func (ui *CursesUIViewImpl) updateWorkoutDetailsDisplay(index int) {
	var b strings.Builder

	if stats := ui.workoutsState.Stats; stats != nil {
		b.WriteString("\n  [yellow]Your training[white]\n\n")
		fmt.Fprintf(&b, "  [gray]Workouts:[white]  %d (%d completed)\n", stats.Total.TotalWorkouts, stats.Total.CompletedWorkouts)
		fmt.Fprintf(&b, "  [gray]Time:[white]      %s total, %.0f min average\n", formatMinutes(stats.Total.TotalDuration), stats.Total.AvgDuration)
		for _, level := range models.AllLevels {
			if n := stats.ByLevel[string(level)]; n > 0 {
				fmt.Fprintf(&b, "  [gray]%s:[white] %d\n", level, n)
			}
		}
	}

	if p := ui.workoutsState.Preview; p != nil {
		fmt.Fprintf(&b, "\n  [yellow]Preview[white] %s, %s\n", tview.Escape(p.Level), formatMinutes(p.TotalMinutes))
		for _, block := range p.Blocks {
			fmt.Fprintf(&b, "  %s [gray](%s, %d exercises)[white]\n", tview.Escape(block.Name), formatMinutes(block.Duration), block.ExerciseCount)
		}
	}

	workouts := ui.workoutsState.Workouts
	if index < 0 || index >= len(workouts) {
		b.WriteString("\n  [gray]No workouts yet. Press [yellow]g[gray] to generate one.[white]\n")
		ui.workoutDetails.SetText(b.String())
		return
	}

	w := workouts[index]
	fmt.Fprintf(&b, "\n  [yellow]%s[white]\n\n", tview.Escape(workoutTitle(w)))
	fmt.Fprintf(&b, "  [gray]Duration:[white]  %s\n", formatMinutes(w.DurationMinutes))
	fmt.Fprintf(&b, "  [gray]Exercises:[white] %d in %d blocks\n", w.ExerciseCount(), len(w.Blocks))
	if w.Completed {
		b.WriteString("  [green]Completed[white]\n")
	}
	if w.Notes != "" {
		fmt.Fprintf(&b, "  [gray]Notes:[white] %s\n", tview.Escape(w.Notes))
	}
	b.WriteString("\n")
	for _, block := range w.Blocks {
		fmt.Fprintf(&b, "  %s [gray](%s, %d exercises)[white]\n", tview.Escape(block.Name), formatMinutes(block.DurationMinutes), len(block.Exercises))
	}
	b.WriteString("\n  [green]Press Enter to open this workout[white]\n")
	ui.workoutDetails.SetText(b.String())
}

// --- Session ---

// UpdateSession renders a session snapshot
func (ui *CursesUIViewImpl) UpdateSession(s session.Snapshot) {
	ui.sessionHeader.SetText(sessionHeaderText(s))
	ui.progressView.SetText(progressText(s))

	showTimer := s.Interactive()
	if showTimer {
		ui.sessionFlex.ResizeItem(ui.timerPanel, 6, 0)
		ui.timerPanel.SetText(timerText(s))
	} else {
		// Completed workouts hide the timer
		ui.sessionFlex.ResizeItem(ui.timerPanel, 0, 0)
	}

	if key := treeKey(s); key != ui.treeKey {
		ui.treeKey = key
		ui.rebuildBlockTree(s)
	}

	ui.updateLevelUp(s.LevelUp)
}

func (ui *CursesUIViewImpl) updateLevelUp(notice *session.LevelUpNotice) {
	switch {
	case notice != nil && !ui.levelUpShown:
		text := fmt.Sprintf("Level up!\n\nYou reached %s.", notice.NewLevel)
		if notice.WorkoutsToNextLevel > 0 {
			text += fmt.Sprintf("\n%d more workouts to the next level.", notice.WorkoutsToNextLevel)
		}
		ui.levelUpModal.SetText(text)
		ui.levelUpShown = true
		ui.root.ShowPage(pageLevelUp)
		ui.app.SetFocus(ui.levelUpModal)
	case notice == nil && ui.levelUpShown:
		ui.levelUpShown = false
		ui.root.HidePage(pageLevelUp)
		ui.setFocusForCurrentMode()
	}
}

// rebuildBlockTree recreates the block tree, keeping the cursor on the same
// block or exercise.
func (ui *CursesUIViewImpl) rebuildBlockTree(s session.Snapshot) {
	current, hadCurrent := ui.currentBlockRef()

	root := tview.NewTreeNode("")
	var selected *tview.TreeNode
	if s.Workout != nil {
		for bi, block := range s.Workout.Blocks {
			done := 0
			exerciseNodes := make([]*tview.TreeNode, 0, len(block.Exercises))
			for ei, ex := range block.Exercises {
				mark, color := "○", tcell.ColorWhite
				if s.IsCompleted(bi, ei) {
					mark, color = "✔", tcell.ColorGreen
					done++
				}
				node := tview.NewTreeNode(fmt.Sprintf("%s %s  (%s)", mark, ex.Name, ex.MuscleGroup)).
					SetReference(blockRef{block: bi, exercise: ei}).
					SetColor(color)
				exerciseNodes = append(exerciseNodes, node)
				if hadCurrent && current == (blockRef{block: bi, exercise: ei}) {
					selected = node
				}
			}

			blockNode := tview.NewTreeNode(fmt.Sprintf("%s  %s, %d/%d", block.Name, formatMinutes(block.DurationMinutes), done, len(block.Exercises))).
				SetReference(blockRef{block: bi, exercise: -1}).
				SetColor(tcell.ColorYellow).
				SetExpanded(s.IsExpanded(bi))
			for _, n := range exerciseNodes {
				blockNode.AddChild(n)
			}
			root.AddChild(blockNode)
			if hadCurrent && current == (blockRef{block: bi, exercise: -1}) {
				selected = blockNode
			}
			// a collapsed block hides its exercises, so the cursor moves up
			if selected != nil && !s.IsExpanded(bi) && current.block == bi {
				selected = blockNode
			}
		}
	}
	ui.blockTree.SetRoot(root)
	if selected == nil && len(root.GetChildren()) > 0 {
		selected = root.GetChildren()[0]
	}
	ui.blockTree.SetCurrentNode(selected)
}

func (ui *CursesUIViewImpl) currentBlockRef() (blockRef, bool) {
	node := ui.blockTree.GetCurrentNode()
	if node == nil {
		return blockRef{}, false
	}
	ref, ok := node.GetReference().(blockRef)
	return ref, ok
}

// --- Goals ---

// UpdateGoals refreshes the goal list and summary
func (ui *CursesUIViewImpl) UpdateGoals(state GoalsState) {
	ui.goalsState = state
	current := ui.goalList.GetCurrentItem()
	ui.goalList.Clear()
	ui.goalList.SetTitle(fmt.Sprintf(" Goals (%s) ", state.Filter))
	for _, g := range state.Goals {
		mark := "○"
		if g.Completed {
			mark = "✔"
		} else if g.IsOverdue {
			mark = "!"
		}
		secondary := fmt.Sprintf("   %s  %g / %g  (%.0f%%)", g.Type, g.CurrentValue, g.TargetValue, g.Progress)
		if g.Deadline != nil && *g.Deadline != "" {
			secondary += "  due " + dateOnly(*g.Deadline)
		}
		ui.goalList.AddItem(fmt.Sprintf("%s %s", mark, tview.Escape(g.Description)), secondary, 0, nil)
	}
	if current < len(state.Goals) {
		ui.goalList.SetCurrentItem(current)
	}

	var b strings.Builder
	if stats := state.Stats; stats != nil {
		fmt.Fprintf(&b, "\n  [gray]Total:[white]     %d\n", stats.Total)
		fmt.Fprintf(&b, "  [gray]Active:[white]    %d\n", stats.Active)
		fmt.Fprintf(&b, "  [gray]Completed:[white] [green]%d[white]\n", stats.Completed)
		fmt.Fprintf(&b, "  [gray]Overdue:[white]   [red]%d[white]\n", stats.Overdue)
	} else {
		b.WriteString("\n  [gray]No goal data yet[white]\n")
	}
	ui.goalStatsView.SetText(b.String())
}

// --- Records ---

// UpdateRecords refreshes the records table and recent PRs
func (ui *CursesUIViewImpl) UpdateRecords(state RecordsState) {
	ui.recordsState = state
	ui.recordsTable.Clear()
	for col, title := range []string{"Exercise", "Type", "Best", "Date"} {
		ui.recordsTable.SetCell(0, col, tview.NewTableCell(title).
			SetTextColor(tcell.ColorYellow).
			SetSelectable(false))
	}
	for i, pr := range state.PersonalRecords {
		row := i + 1
		ui.recordsTable.SetCell(row, 0, tview.NewTableCell(tview.Escape(pr.Exercise)).SetExpansion(1))
		ui.recordsTable.SetCell(row, 1, tview.NewTableCell(string(pr.Type)))
		ui.recordsTable.SetCell(row, 2, tview.NewTableCell(formatRecordValue(pr)).SetAlign(tview.AlignRight))
		ui.recordsTable.SetCell(row, 3, tview.NewTableCell(dateOnly(pr.Date)))
	}

	var b strings.Builder
	if h := state.History; h != nil {
		fmt.Fprintf(&b, "\n  [yellow]%s[white]  [gray]%d entries[white]\n", tview.Escape(state.HistoryOf), h.TotalEntries)
		if h.BestRecord != nil {
			fmt.Fprintf(&b, "  [gray]Best:[white] [green]%s[white]\n", formatRecordValue(*h.BestRecord))
		}
		for _, pr := range h.History {
			mark := " "
			if pr.IsPR {
				mark = "★"
			}
			fmt.Fprintf(&b, "  %s %s  %s\n", mark, dateOnly(pr.Date), formatRecordValue(pr))
		}
	}

	b.WriteString("\n  [yellow]Recent PRs[white]\n")
	if len(state.Recent) == 0 {
		b.WriteString("  [gray]No records yet[white]\n")
	}
	for _, pr := range state.Recent {
		fmt.Fprintf(&b, "\n  [green]%s[white]\n  %s  [gray]%s[white]\n", tview.Escape(pr.Exercise), formatRecordValue(pr), dateOnly(pr.Date))
	}
	ui.recentView.SetText(b.String())
}

// selectedRecord maps the table selection to an index in PersonalRecords;
// the header row is row 0.
func (ui *CursesUIViewImpl) selectedRecord() int {
	row, _ := ui.recordsTable.GetSelection()
	return row - 1
}

// --- Calendar ---

// UpdateCalendar lays the month out Monday first, coloring trained days
func (ui *CursesUIViewImpl) UpdateCalendar(state CalendarState) {
	ui.calendarTable.Clear()
	if state.Year == 0 {
		ui.calendarTable.SetTitle(" Calendar ")
		ui.calendarSummary.SetText("\n  [gray]Loading...[white]")
		return
	}

	first := time.Date(state.Year, time.Month(state.Month), 1, 0, 0, 0, 0, time.UTC)
	ui.calendarTable.SetTitle(fmt.Sprintf(" %s %d ", first.Month(), first.Year()))
	for col, name := range []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"} {
		ui.calendarTable.SetCell(0, col, tview.NewTableCell(name).
			SetTextColor(tcell.ColorYellow).
			SetAlign(tview.AlignCenter).
			SetExpansion(1).
			SetSelectable(false))
	}

	byDate := make(map[string]models.CalendarDay, len(state.Days))
	for _, d := range state.Days {
		byDate[dateOnly(d.Date)] = d
	}
	offset := (int(first.Weekday()) + 6) % 7
	last := first.AddDate(0, 1, -1).Day()
	for day := 1; day <= last; day++ {
		pos := offset + day - 1
		cell := tview.NewTableCell(fmt.Sprintf("%2d", day)).
			SetAlign(tview.AlignCenter).
			SetExpansion(1)
		if d, ok := byDate[first.AddDate(0, 0, day-1).Format(time.DateOnly)]; ok {
			if d.Completed {
				cell.SetTextColor(tcell.ColorGreen)
			} else {
				cell.SetTextColor(tcell.ColorYellow)
			}
		}
		ui.calendarTable.SetCell(pos/7+1, pos%7, cell)
	}

	var b strings.Builder
	completed, minutes := 0, 0
	for _, d := range state.Days {
		if d.Completed {
			completed++
			minutes += d.Duration
		}
	}
	fmt.Fprintf(&b, "\n  [gray]Workouts:[white]  %d (%d completed)\n", len(state.Days), completed)
	fmt.Fprintf(&b, "  [gray]Trained:[white]   %s\n\n", formatMinutes(minutes))
	for _, d := range state.Days {
		mark := "[yellow]○[white]"
		if d.Completed {
			mark = "[green]✔[white]"
		}
		fmt.Fprintf(&b, "  %s %s  %s  %s\n", mark, dateOnly(d.Date), tview.Escape(d.Level), formatMinutes(d.Duration))
	}
	ui.calendarSummary.SetText(b.String())
}

// --- Forms ---

// showForm opens form as a dialog over the current screen
func (ui *CursesUIViewImpl) showForm(title string, form *tview.Form, height int) {
	form.SetBorder(true).SetTitle(" " + title + " (Esc to cancel) ")
	form.SetCancelFunc(ui.closeForm)
	ui.form = form
	ui.formShown = true
	ui.root.AddPage(pageForm, centered(form, 60, height), true, true)
	ui.app.SetFocus(form)
}

func (ui *CursesUIViewImpl) closeForm() {
	if !ui.formShown {
		return
	}
	ui.formShown = false
	ui.form = nil
	ui.root.RemovePage(pageForm)
	ui.setFocusForCurrentMode()
}

func (ui *CursesUIViewImpl) showGoalForm(controller *UIController) {
	description := tview.NewInputField().SetLabel("Description ").SetFieldWidth(40)
	kind := tview.NewDropDown().SetLabel("Type        ").SetOptions(goalTypeLabels(), nil).SetCurrentOption(0)
	target := tview.NewInputField().SetLabel("Target      ").SetFieldWidth(12).SetAcceptanceFunc(tview.InputFieldFloat)
	deadline := tview.NewInputField().SetLabel("Deadline    ").SetFieldWidth(12).SetPlaceholder("YYYY-MM-DD")

	form := tview.NewForm().
		AddFormItem(description).
		AddFormItem(kind).
		AddFormItem(target).
		AddFormItem(deadline)
	form.AddButton("Save", func() {
		i, _ := kind.GetCurrentOption()
		controller.CreateGoal(description.GetText(), goalTypes[max(i, 0)], target.GetText(), deadline.GetText())
		ui.closeForm()
	}).AddButton("Cancel", ui.closeForm)
	ui.showForm("New goal", form, 13)
}

func (ui *CursesUIViewImpl) showProgressForm(controller *UIController) {
	index := ui.goalList.GetCurrentItem()
	if index < 0 || index >= len(ui.goalsState.Goals) {
		return
	}
	goal := ui.goalsState.Goals[index]
	current := tview.NewInputField().
		SetLabel(fmt.Sprintf("Current (target %g) ", goal.TargetValue)).
		SetFieldWidth(12).
		SetText(fmt.Sprintf("%g", goal.CurrentValue)).
		SetAcceptanceFunc(tview.InputFieldFloat)

	form := tview.NewForm().AddFormItem(current)
	form.AddButton("Save", func() {
		controller.UpdateGoalProgress(index, current.GetText())
		ui.closeForm()
	}).AddButton("Cancel", ui.closeForm)
	ui.showForm(tview.Escape(goal.Description), form, 7)
}

func (ui *CursesUIViewImpl) showRecordForm(controller *UIController) {
	exercise := tview.NewInputField().SetLabel("Exercise ").SetFieldWidth(36)
	kind := tview.NewDropDown().SetLabel("Type     ").SetOptions(recordTypeLabels(), nil).SetCurrentOption(0)
	value := tview.NewInputField().SetLabel("Value    ").SetFieldWidth(12).SetAcceptanceFunc(tview.InputFieldFloat)
	notes := tview.NewInputField().SetLabel("Notes    ").SetFieldWidth(36)

	// Logging again for the highlighted exercise is the common case
	if index := ui.selectedRecord(); index >= 0 && index < len(ui.recordsState.PersonalRecords) {
		pr := ui.recordsState.PersonalRecords[index]
		exercise.SetText(pr.Exercise)
		for i, t := range recordTypes {
			if t == pr.Type {
				kind.SetCurrentOption(i)
			}
		}
	}

	form := tview.NewForm().
		AddFormItem(exercise).
		AddFormItem(kind).
		AddFormItem(value).
		AddFormItem(notes)
	form.AddButton("Save", func() {
		i, _ := kind.GetCurrentOption()
		controller.LogRecord(exercise.GetText(), recordTypes[max(i, 0)], value.GetText(), notes.GetText())
		ui.closeForm()
	}).AddButton("Cancel", ui.closeForm)
	ui.showForm("Log record", form, 13)
}

func (ui *CursesUIViewImpl) showNotesForm(controller *UIController) {
	index := ui.workoutList.GetCurrentItem()
	if index < 0 || index >= len(ui.workoutsState.Workouts) {
		return
	}
	w := ui.workoutsState.Workouts[index]
	notes := tview.NewInputField().SetLabel("Notes ").SetFieldWidth(46).SetText(w.Notes)

	form := tview.NewForm().AddFormItem(notes)
	form.AddButton("Save", func() {
		controller.UpdateWorkoutNotes(index, notes.GetText())
		ui.closeForm()
	}).AddButton("Cancel", ui.closeForm)
	ui.showForm(tview.Escape(workoutTitle(w)), form, 7)
}

// --- Formatting helpers ---

// centered places p in the middle of the screen at a fixed size
func centered(p tview.Primitive, width, height int) tview.Primitive {
	column := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(nil, 0, 1, false).
		AddItem(p, height, 0, true).
		AddItem(nil, 0, 1, false)
	return tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(column, width, 0, true).
		AddItem(nil, 0, 1, false)
}

func goalTypeLabels() []string {
	labels := make([]string, len(goalTypes))
	for i, t := range goalTypes {
		labels[i] = string(t)
	}
	return labels
}

func recordTypeLabels() []string {
	labels := make([]string, len(recordTypes))
	for i, t := range recordTypes {
		labels[i] = string(t)
	}
	return labels
}

func workoutTitle(w models.Workout) string {
	date := w.Date
	if t, ok := w.ParsedDate(); ok {
		date = t.Format("Mon 02 Jan 2006")
	}
	return fmt.Sprintf("%s  %s", date, w.Level)
}

func workoutSubtitle(w models.Workout) string {
	text := fmt.Sprintf("   %s, %d exercises", formatMinutes(w.DurationMinutes), w.ExerciseCount())
	if w.Completed {
		text += "  ✔ completed"
	}
	return text
}

func sessionHeaderText(s session.Snapshot) string {
	switch s.Status {
	case session.StatusIdle:
		return "\n  [gray]No workout open. Pick one in Workouts (F1).[white]"
	case session.StatusLoading:
		return "\n  [gray]Loading workout...[white]"
	case session.StatusError:
		msg := "unknown error"
		if s.Err != nil {
			msg = s.Err.Error()
		}
		return fmt.Sprintf("\n  [red]Could not load the workout:[white] %s\n  [gray]Press Esc to go back.[white]", tview.Escape(msg))
	}
	w := s.Workout
	if w == nil {
		return ""
	}
	date := w.Date
	if t, ok := w.ParsedDate(); ok {
		date = t.Format("Monday 02 January 2006")
	}
	text := fmt.Sprintf("\n  [yellow]%s[white]  %s  %s", tview.Escape(string(w.Level)), date, formatMinutes(w.DurationMinutes))
	switch s.Status {
	case session.StatusCompleted:
		text += "  [black:green] COMPLETED [-:-]"
	case session.StatusCompleting:
		text += "  [gray](completing...)[white]"
	}
	return text
}

func progressText(s session.Snapshot) string {
	if s.Workout == nil {
		return ""
	}
	done := len(s.Completed)
	total := s.Workout.ExerciseCount()
	return fmt.Sprintf(" %s %3.0f%%  (%d/%d)", renderProgressBar(s.Percentage, progressBarWidth), s.Percentage, done, total)
}

// renderProgressBar draws pct (0-100) as a bar width cells wide
func renderProgressBar(pct float64, width int) string {
	filled := int(pct / 100 * float64(width))
	filled = min(max(filled, 0), width)
	return "[green]" + strings.Repeat("█", filled) + "[gray]" + strings.Repeat("░", width-filled) + "[white]"
}

func timerText(s session.Snapshot) string {
	t := s.Timer
	var b strings.Builder
	state := "paused"
	if t.Running {
		state = "[green]running[white]"
	}
	label := "Rest"
	resetTo := session.FormatClock(s.RestBaseline)
	if t.Mode == session.TimerModeStopwatch {
		label = "Stopwatch"
		resetTo = session.FormatClock(0)
	}
	fmt.Fprintf(&b, "%s  [::b]%s[::-]  %s\n", label, t.Display(), state)
	fmt.Fprintf(&b, "[yellow]Space[white] Start/Pause  [yellow]r[white] Reset to %s  [yellow]m[white] Rest/Stopwatch\n", resetTo)
	if t.Mode == session.TimerModeRest && len(s.QuickPicks) > 0 {
		b.WriteString("Quick rest:")
		for i, secs := range s.QuickPicks {
			if i >= 9 {
				break
			}
			fmt.Fprintf(&b, "  [yellow]%d[white] %ds", i+1, secs)
		}
	}
	return b.String()
}

// treeKey summarizes what the block tree shows, so timer ticks do not
// rebuild it.
func treeKey(s session.Snapshot) string {
	if s.Workout == nil {
		return ""
	}
	return fmt.Sprintf("%d|%v|%v", s.Workout.ID, s.Expanded, s.Completed)
}

func formatRecordValue(pr models.PersonalRecord) string {
	value := fmt.Sprintf("%g", pr.Value)
	if pr.Unit != "" {
		value += " " + pr.Unit
	}
	return value
}

// dateOnly trims a timestamp down to its calendar date
func dateOnly(s string) string {
	if len(s) >= len("2006-01-02") {
		return s[:len("2006-01-02")]
	}
	return s
}
