// ABOUTME: Interactive TUI wizard for connecting the CLI to a Circle account.
// ABOUTME: Collects the API URL and login token, decodes the token, then checks it against the API.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/circle/internal/config"
	"github.com/2389-research/circle/internal/session"
)

// Step represents the current wizard step.
type Step int

const (
	StepAPIURL Step = iota
	StepToken
	StepValidating
	StepDone
	StepFailed
)

// validatedMsg reports the outcome of a connection check.
type validatedMsg struct {
	err error
}

// ValidateFn checks that the API accepts the token.
type ValidateFn func(ctx context.Context, apiURL, token string) error

// inflight holds the cancel func of the running check. The model is copied
// on every Update, so it is shared through a pointer.
type inflight struct {
	cancel context.CancelFunc
}

func (f *inflight) stop() {
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
}

var keys = struct {
	quit, next, retry, saveAnyway, abort key.Binding
}{
	quit:       key.NewBinding(key.WithKeys("ctrl+c", "esc")),
	next:       key.NewBinding(key.WithKeys("enter")),
	retry:      key.NewBinding(key.WithKeys("r")),
	saveAnyway: key.NewBinding(key.WithKeys("s")),
	abort:      key.NewBinding(key.WithKeys("q")),
}

var (
	brandStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	mutedStyle = lipgloss.NewStyle().Faint(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// SetupModel is the bubbletea model for the setup wizard.
type SetupModel struct {
	step       Step
	url        textinput.Model
	token      textinput.Model
	spinner    spinner.Model
	validateFn ValidateFn
	check      *inflight
	identity   session.Identity
	tokenErr   error
	lastErr    error
	cancelled  bool
}

// NewSetupModel creates the wizard with any existing URL and token filled in.
func NewSetupModel(apiURL, token string) SetupModel {
	url := textinput.New()
	url.Placeholder = config.DefaultAPIURL
	url.CharLimit = 256
	url.SetValue(apiURL)
	url.Focus()

	tok := textinput.New()
	tok.Placeholder = "paste your login token"
	tok.EchoMode = textinput.EchoPassword
	tok.EchoCharacter = '•'
	tok.SetValue(token)

	return SetupModel{
		step:       StepAPIURL,
		url:        url,
		token:      tok,
		spinner:    spinner.New(spinner.WithSpinner(spinner.MiniDot)),
		validateFn: ValidateConnection,
		check:      &inflight{},
	}
}

// Init implements tea.Model.
func (m SetupModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m SetupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, keys.quit) {
			m.check.stop()
			m.cancelled = true
			return m, tea.Quit
		}
		switch m.step {
		case StepAPIURL:
			return m.onURLKey(msg)
		case StepToken:
			return m.onTokenKey(msg)
		case StepFailed:
			return m.onFailedKey(msg)
		}

	case validatedMsg:
		m.check.cancel = nil
		if msg.err != nil {
			m.lastErr = msg.err
			m.step = StepFailed
			return m, nil
		}
		m.step = StepDone
		return m, tea.Quit

	case spinner.TickMsg:
		if m.step != StepValidating {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m SetupModel) onURLKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !key.Matches(msg, keys.next) {
		var cmd tea.Cmd
		m.url, cmd = m.url.Update(msg)
		return m, cmd
	}
	u := strings.TrimRight(strings.TrimSpace(m.url.Value()), "/")
	if u == "" {
		u = config.DefaultAPIURL
	}
	m.url.SetValue(u)
	m.url.Blur()
	m.step = StepToken
	return m, m.token.Focus()
}

func (m SetupModel) onTokenKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !key.Matches(msg, keys.next) {
		var cmd tea.Cmd
		m.token, cmd = m.token.Update(msg)
		return m, cmd
	}
	raw := strings.TrimSpace(m.token.Value())
	if raw == "" {
		return m, nil
	}
	// a token that does not decode never reaches the network
	id, err := session.DecodeIdentity(raw)
	if err != nil {
		m.tokenErr = err
		return m, nil
	}
	m.token.SetValue(raw)
	m.token.Blur()
	m.identity, m.tokenErr = id, nil
	return m.validate()
}

func (m SetupModel) onFailedKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.retry):
		m.lastErr = nil
		return m.validate()
	case key.Matches(msg, keys.saveAnyway):
		m.step = StepDone
		return m, tea.Quit
	case key.Matches(msg, keys.abort):
		m.cancelled = true
		return m, tea.Quit
	}
	return m, nil
}

// validate moves to StepValidating and starts the connection check.
func (m SetupModel) validate() (tea.Model, tea.Cmd) {
	ctx, cancel := context.WithCancel(context.Background())
	m.check.cancel = cancel
	m.step = StepValidating

	fn, apiURL, token := m.validateFn, m.url.Value(), m.token.Value()
	run := func() tea.Msg {
		return validatedMsg{err: fn(ctx, apiURL, token)}
	}
	return m, tea.Batch(run, m.spinner.Tick)
}

// View implements tea.Model.
func (m SetupModel) View() string {
	header := brandStyle.Render("◯ CIRCLE") + mutedStyle.Render("  setup") + "\n\n"

	var body string
	switch m.step {
	case StepAPIURL:
		body = mutedStyle.Render("1/2 API URL, Enter keeps the default") + "\n" + m.url.View()
	case StepToken:
		body = fmt.Sprintf("API URL  %s\n\n", m.url.Value()) +
			mutedStyle.Render("2/2 Token from your Circle login") + "\n" + m.token.View()
		if m.tokenErr != nil {
			body += "\n" + badStyle.Render("✗ "+m.tokenErr.Error())
		}
	case StepValidating:
		body = fmt.Sprintf("API URL  %s\nUser     #%d\n\n%s Validating connection...",
			m.url.Value(), m.identity.UserID, m.spinner.View())
	case StepDone:
		body = okStyle.Render(fmt.Sprintf("✓ Connected as user %d", m.identity.UserID))
	case StepFailed:
		reason := "unknown error"
		if m.lastErr != nil {
			reason = m.lastErr.Error()
		}
		body = badStyle.Render("✗ Validation failed: "+reason) + "\n\n" +
			mutedStyle.Render("[r]etry  [s]ave anyway  [q]uit")
	}
	return "\n" + header + body + "\n"
}

// Result returns the entered API URL and token.
func (m SetupModel) Result() (apiURL, token string) {
	return m.url.Value(), m.token.Value()
}

// ShouldSave reports whether the wizard finished, either validated or saved
// anyway, without being cancelled.
func (m SetupModel) ShouldSave() bool {
	return m.step == StepDone && !m.cancelled
}
