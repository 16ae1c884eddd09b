package ui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	log "github.com/sirupsen/logrus"

	"github.com/tgienger/pulse/internal/prefs"
	"github.com/tgienger/pulse/internal/remote"
	"github.com/tgienger/pulse/internal/store"
	"github.com/tgienger/pulse/internal/ui/keys"
	"github.com/tgienger/pulse/internal/ui/styles"
	"github.com/tgienger/pulse/internal/ui/views"
)

const (
	toastTTL     = 4 * time.Second
	celebrateTTL = 3 * time.Second
	// bounds only the calls made on the way out
	flushTimeout = 5 * time.Second
)

// Screen is the page currently shown
type Screen int

const (
	ScreenAuth Screen = iota
	ScreenBoard
	ScreenCalendar
)

// Sessions is the part of the auth client the App drives
type Sessions interface {
	views.Authenticator
	GetSession(ctx context.Context) (*remote.Session, error)
	SignOut(ctx context.Context) error
}

// Deps are the services the App runs on
type Deps struct {
	Store           *store.Store
	Auth            Sessions
	Prefs           *prefs.Syncer
	Logger          log.FieldLogger
	RefreshInterval time.Duration
}

type sessionChecked struct {
	session *remote.Session
	err     error
}

type fetchDone struct {
	background bool
	err        error
}

type prefsSynced struct {
	err error
}

type noticeMsg store.Notice

type refreshTick struct{}

type toastExpired struct{ id int }

type celebrateExpired struct{ id int }

type signedOut struct{}

type toast struct {
	id    int
	text  string
	error bool
}

type App struct {
	deps   Deps
	log    log.FieldLogger
	styles *styles.Styles
	keys   keys.KeyMap
	spin   spinner.Model

	screen   Screen
	auth     *views.AuthView
	board    *views.BoardView
	calendar *views.CalendarView
	editor   *views.TaskEditor

	session *remote.Session
	checked bool

	notices chan store.Notice
	stop    func()

	toast       *toast
	celebrate   string
	celebrateID int
	seq         int

	width  int
	height int
}

// NewApp creates the application
func NewApp(deps Deps) *App {
	if deps.Logger == nil {
		deps.Logger = log.StandardLogger()
	}
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(styles.Current.Primary)

	a := &App{
		deps:     deps,
		log:      deps.Logger,
		styles:   styles.NewStyles(),
		keys:     keys.DefaultKeyMap(),
		spin:     spin,
		screen:   ScreenAuth,
		auth:     views.NewAuthView(deps.Auth, deps.Logger),
		board:    views.NewBoardView(deps.Store, deps.Logger),
		calendar: views.NewCalendarView(deps.Store, deps.Prefs, deps.Logger),
		editor:   views.NewTaskEditor(deps.Store),
		notices:  make(chan store.Notice, 16),
	}
	a.stop = deps.Store.OnNotice(func(n store.Notice) {
		select {
		case a.notices <- n:
		default:
			a.log.WithField("text", n.Text).Warn("app.notice_dropped")
		}
	})
	return a
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.auth.Init(), a.spin.Tick, a.waitNotice(), a.checkSession(), a.tick())
}

func (a *App) waitNotice() tea.Cmd {
	return func() tea.Msg {
		return noticeMsg(<-a.notices)
	}
}

func (a *App) checkSession() tea.Cmd {
	return func() tea.Msg {
		s, err := a.deps.Auth.GetSession(context.Background())
		return sessionChecked{session: s, err: err}
	}
}

func (a *App) tick() tea.Cmd {
	if a.deps.RefreshInterval <= 0 {
		return nil
	}
	return tea.Tick(a.deps.RefreshInterval, func(time.Time) tea.Msg { return refreshTick{} })
}

func (a *App) fetch(background bool) tea.Cmd {
	return func() tea.Msg {
		return fetchDone{background: background, err: a.deps.Store.FetchAll(context.Background(), background)}
	}
}

func (a *App) syncPrefs() tea.Cmd {
	return func() tea.Msg {
		_, err := a.deps.Prefs.SignedIn(context.Background())
		return prefsSynced{err: err}
	}
}

// start opens the board for a signed-in user
func (a *App) start(s *remote.Session) tea.Cmd {
	a.session = s
	a.screen = ScreenBoard
	a.log.WithField("user", s.User.ID).Info("app.signed_in")
	return tea.Batch(a.fetch(false), a.syncPrefs(), a.resize())
}

// resize replays the window size to the views after a screen change
func (a *App) resize() tea.Cmd {
	if a.width == 0 {
		return nil
	}
	size := tea.WindowSizeMsg{Width: a.width, Height: a.height}
	return func() tea.Msg { return size }
}

// endSession drops all signed-in state locally and shows the sign in form
func (a *App) endSession(status string) {
	a.session = nil
	a.deps.Store.Reset()
	a.deps.Prefs.SignedOut()
	a.screen = ScreenAuth
	a.auth.Reset(status)
}

func (a *App) signOut() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()
		if err := a.deps.Auth.SignOut(ctx); err != nil {
			a.log.WithError(err).Warn("app.sign_out")
		}
		return signedOut{}
	}
}

func (a *App) quit() tea.Cmd {
	a.stop()
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := a.deps.Prefs.Flush(ctx); err != nil {
		a.log.WithError(err).Warn("app.flush_prefs")
	}
	return tea.Quit
}

func (a *App) showToast(text string, isError bool) tea.Cmd {
	a.seq++
	id := a.seq
	a.toast = &toast{id: id, text: text, error: isError}
	return tea.Tick(toastTTL, func(time.Time) tea.Msg { return toastExpired{id: id} })
}

// failed reports whether err ended the session, signing out locally if so
func (a *App) failed(err error) bool {
	if !errors.Is(err, remote.ErrUnauthorized) && !errors.Is(err, remote.ErrNoSession) {
		return false
	}
	if a.session != nil {
		a.endSession("Your session expired. Sign in again.")
	}
	return true
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.auth.Update(msg)
		a.board.Update(msg)
		a.calendar.Update(msg)
		a.editor.Update(msg)
		return a, nil

	case sessionChecked:
		a.checked = true
		if msg.err != nil {
			a.log.WithError(msg.err).Warn("app.session")
			a.auth.Reset("Couldn't reach the server.")
			return a, nil
		}
		if msg.session == nil {
			return a, nil
		}
		return a, a.start(msg.session)

	case views.SignedIn:
		return a, a.start(msg.Session)

	case fetchDone:
		if msg.err != nil && !a.failed(msg.err) {
			a.log.WithError(msg.err).WithField("background", msg.background).Warn("app.fetch")
		}
		return a, nil

	case prefsSynced:
		if msg.err != nil && !a.failed(msg.err) {
			a.log.WithError(msg.err).Warn("app.prefs")
		}
		a.calendar.Init()
		return a, nil

	case refreshTick:
		if a.session != nil && !a.deps.Store.Loading() {
			return a, tea.Batch(a.fetch(true), a.tick())
		}
		return a, a.tick()

	case noticeMsg:
		return a, tea.Batch(a.waitNotice(), a.showToast(msg.Text, msg.Level == store.Error))

	case toastExpired:
		if a.toast != nil && a.toast.id == msg.id {
			a.toast = nil
		}
		return a, nil

	case views.Celebrate:
		a.seq++
		a.celebrateID = a.seq
		a.celebrate = msg.Title
		id := a.seq
		return a, tea.Tick(celebrateTTL, func(time.Time) tea.Msg { return celebrateExpired{id: id} })

	case celebrateExpired:
		if msg.id == a.celebrateID {
			a.celebrate = ""
		}
		return a, nil

	case views.CommitDone:
		if msg.Err != nil {
			a.failed(msg.Err)
			a.log.WithError(msg.Err).WithField("op", msg.Op).Debug("app.commit")
		}
		return a, nil

	case views.Navigate:
		switch msg.To {
		case views.PageCalendar:
			a.screen = ScreenCalendar
		default:
			a.screen = ScreenBoard
		}
		return a, a.resize()

	case views.OpenTask:
		if !a.editor.Open(msg.TaskID) {
			return a, a.showToast("That task no longer exists.", true)
		}
		return a, a.editor.Init()

	case views.NewTask:
		a.editor.OpenNew(msg.Defaults)
		return a, a.editor.Init()

	case views.EditorClosed:
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case signedOut:
		a.endSession("Signed out.")
		return a, nil

	case views.Quit:
		return a, a.quit()

	case tea.KeyMsg:
		if a.session != nil && !a.editor.Active() && !a.board.Capturing() {
			switch {
			case key.Matches(msg, a.keys.Refresh):
				return a, a.fetch(false)
			case key.Matches(msg, a.keys.SignOut):
				return a, a.signOut()
			}
		}
		if msg.String() == "ctrl+c" {
			return a, a.quit()
		}
		return a, a.route(msg)

	case tea.MouseMsg:
		return a, a.route(msg)
	}

	// everything else, such as blink and long press ticks, goes to every view
	_, c1 := a.auth.Update(msg)
	_, c2 := a.board.Update(msg)
	_, c3 := a.calendar.Update(msg)
	_, c4 := a.editor.Update(msg)
	return a, tea.Batch(c1, c2, c3, c4)
}

// route sends input to the editor when it is open, otherwise to the current screen
func (a *App) route(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch {
	case a.screen == ScreenAuth:
		_, cmd = a.auth.Update(msg)
	case a.editor.Active():
		_, cmd = a.editor.Update(msg)
	case a.screen == ScreenCalendar:
		_, cmd = a.calendar.Update(msg)
	default:
		_, cmd = a.board.Update(msg)
	}
	return cmd
}

func (a *App) View() string {
	var body string
	switch {
	case a.screen == ScreenAuth:
		if !a.checked {
			return styles.CenterView(a.spin.View()+a.styles.TitleMuted.Render(" Loading..."), a.width, a.height)
		}
		body = a.auth.View()
	case a.editor.Active():
		body = a.editor.View()
	case a.deps.Store.Loading() && !a.deps.Store.Loaded():
		body = styles.CenterView(a.spin.View()+a.styles.TitleMuted.Render(" Loading your tasks..."), a.width, a.height)
	case a.screen == ScreenCalendar:
		body = a.calendar.View()
	default:
		body = a.board.View()
	}

	var banner string
	switch {
	case a.celebrate != "":
		banner = a.styles.Celebrate.Render("✓ Nice! " + a.celebrate + " is done")
	case a.toast != nil && a.toast.error:
		banner = a.styles.ToastError.Render(a.toast.text)
	case a.toast != nil:
		banner = a.styles.Toast.Render(a.toast.text)
	}
	if banner == "" {
		return body
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, banner)
}
