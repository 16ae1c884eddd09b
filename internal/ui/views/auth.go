package views

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	log "github.com/sirupsen/logrus"

	"github.com/tgienger/pulse/internal/remote"
	"github.com/tgienger/pulse/internal/ui/keys"
	"github.com/tgienger/pulse/internal/ui/styles"
)

// Authenticator signs users in and up
type Authenticator interface {
	SignInWithPassword(ctx context.Context, email, password string) (*remote.Session, error)
	SignUp(ctx context.Context, email, password string) (*remote.Session, error)
}

type authResultMsg struct {
	session *remote.Session
	signUp  bool
	err     error
}

// AuthView is the sign in / sign up form
type AuthView struct {
	auth   Authenticator
	log    log.FieldLogger
	styles *styles.Styles
	keys   keys.KeyMap

	width  int
	height int

	email    textinput.Model
	password textinput.Model
	focusIdx int // 0=email, 1=password, 2=submit, 3=switch mode
	signUp   bool
	busy     bool
	status   string
	failed   bool
}

func NewAuthView(auth Authenticator, logger log.FieldLogger) *AuthView {
	if logger == nil {
		logger = log.StandardLogger()
	}
	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.CharLimit = 200

	password := textinput.New()
	password.Placeholder = "Password"
	password.CharLimit = 200
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	return &AuthView{
		auth:     auth,
		log:      logger,
		styles:   styles.NewStyles(),
		keys:     keys.DefaultKeyMap(),
		email:    email,
		password: password,
	}
}

// Reset clears the form, keeping the email for the next attempt
func (v *AuthView) Reset(status string) {
	v.password.Reset()
	v.busy = false
	v.status = status
	v.failed = status != ""
	v.focusIdx = 0
	v.updateFocus()
}

func (v *AuthView) Init() tea.Cmd {
	v.updateFocus()
	return textinput.Blink
}

func (v *AuthView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		return v, nil

	case authResultMsg:
		v.busy = false
		return v, v.result(msg)

	case tea.KeyMsg:
		if v.busy {
			return v, nil
		}
		return v.updateForm(msg)
	}
	return v, nil
}

func (v *AuthView) result(msg authResultMsg) tea.Cmd {
	if msg.err != nil {
		v.failed = true
		v.status = authError(msg.err)
		v.log.WithError(msg.err).WithField("sign_up", msg.signUp).Warn("auth.failed")
		return nil
	}
	if msg.session == nil {
		v.failed = false
		v.status = "Check your email to confirm your account, then sign in."
		v.signUp = false
		return nil
	}
	v.status = ""
	v.password.Reset()
	return send(SignedIn{Session: msg.session})
}

func authError(err error) string {
	var apiErr *remote.APIError
	switch {
	case errors.Is(err, remote.ErrUnauthorized):
		return "Wrong email or password."
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	default:
		return "Couldn't reach the server."
	}
}

func (v *AuthView) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "ctrl+c":
		return v, send(Quit{})

	case msg.String() == "ctrl+s":
		return v, v.submit()

	case msg.String() == "shift+tab", msg.String() == "up":
		v.focusIdx = (v.focusIdx + 3) % 4
		v.updateFocus()
		return v, nil

	case key.Matches(msg, v.keys.Tab), msg.String() == "down":
		v.focusIdx = (v.focusIdx + 1) % 4
		v.updateFocus()
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		switch v.focusIdx {
		case 0:
			v.focusIdx++
			v.updateFocus()
			return v, nil
		case 3:
			v.signUp = !v.signUp
			v.status = ""
			return v, nil
		}
		return v, v.submit()
	}

	var cmd tea.Cmd
	switch v.focusIdx {
	case 0:
		v.email, cmd = v.email.Update(msg)
	case 1:
		v.password, cmd = v.password.Update(msg)
	}
	return v, cmd
}

func (v *AuthView) updateFocus() {
	v.email.Blur()
	v.password.Blur()
	switch v.focusIdx {
	case 0:
		v.email.Focus()
	case 1:
		v.password.Focus()
	}
}

func (v *AuthView) submit() tea.Cmd {
	email := strings.TrimSpace(v.email.Value())
	password := v.password.Value()
	if email == "" || password == "" {
		v.failed = true
		v.status = "Enter your email and password."
		return nil
	}
	v.busy = true
	v.status = ""
	signUp := v.signUp
	return func() tea.Msg {
		ctx := context.Background()
		var (
			s   *remote.Session
			err error
		)
		if signUp {
			s, err = v.auth.SignUp(ctx, email, password)
		} else {
			s, err = v.auth.SignInWithPassword(ctx, email, password)
		}
		return authResultMsg{session: s, signUp: signUp, err: err}
	}
}

func (v *AuthView) View() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	emailStyle, passStyle := s.Input, s.Input
	btnStyle, switchStyle := s.Button, s.TitleMuted
	switch v.focusIdx {
	case 0:
		emailStyle = s.InputFocused
	case 1:
		passStyle = s.InputFocused
	case 2:
		btnStyle = s.ButtonFocused
	case 3:
		switchStyle = s.HelpKey
	}

	title, action, other := "Sign in to Pulse", " Sign in ", "No account? Sign up"
	if v.signUp {
		title, action, other = "Create your Pulse account", " Sign up ", "Have an account? Sign in"
	}

	status := ""
	switch {
	case v.busy:
		status = s.TitleMuted.Render("Working...")
	case v.failed:
		status = lipgloss.NewStyle().Foreground(styles.Current.Error).Render(v.status)
	case v.status != "":
		status = lipgloss.NewStyle().Foreground(styles.Current.Success).Render(v.status)
	}

	inputWidth := clamp(contentWidth-6, 20, 50)
	form := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render(title),
		"",
		"Email:",
		emailStyle.Width(inputWidth).Render(v.email.View()),
		"",
		"Password:",
		passStyle.Width(inputWidth).Render(v.password.View()),
		"",
		btnStyle.Render(action),
		"",
		switchStyle.Render(other),
		"",
		status,
		"",
		s.TitleMuted.Render("Tab: next • ↵: submit • Ctrl+C: quit"),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		form,
	)
	return styles.CenterView(centered, v.width, v.height)
}
