package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/five82/tarmac/internal/engine"
	"github.com/five82/tarmac/internal/flight"
	"github.com/five82/tarmac/internal/logtail"
	"github.com/five82/tarmac/internal/prefs"
	"github.com/five82/tarmac/internal/view"
)

// Engine is the part of engine.Engine the console drives.
type Engine interface {
	Snapshot() engine.Snapshot
	Updates() <-chan struct{}
	Create(ctx context.Context, in flight.Input) (flight.Record, error)
	Update(ctx context.Context, id string, in flight.Input) (flight.Record, error)
	Delete(ctx context.Context, id string) (flight.Record, error)
	Undo(ctx context.Context) (bool, error)
	Subscribe(ctx context.Context) error
}

// Gate is the part of gate.Gate the console drives.
type Gate interface {
	RunIfAuthenticated(ctx context.Context, action func(ctx context.Context) error) (bool, error)
	Authenticated() bool
}

// Options configures the UI.
type Options struct {
	Context  context.Context
	Engine   Engine
	Gate     Gate
	Prompter *SecretPrompter
	Logger   *zap.SugaredLogger

	Backend   string // active record store, shown in the header
	Fallback  bool   // true when the configured backend was unreachable
	LogPath   string // JSON log tailed by the activity pane
	Refresh   time.Duration
	Prefs     prefs.Prefs
	PrefsPath string
	Now       func() time.Time
}

const (
	toastDuration  = 3 * time.Second
	activityLines  = 200
	activityHeight = 8
)

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx       context.Context
	engine    Engine
	gate      Gate
	prompter  *SecretPrompter
	log       *zap.SugaredLogger
	keys      keyMap
	prefs     prefs.Prefs
	prefsPath string
	backend   string
	fallback  bool
	logPath   string
	refresh   time.Duration
	now       func() time.Time

	theme  Theme
	width  int
	height int
	ready  bool

	snapshot engine.Snapshot
	criteria view.Criteria
	result   view.Result

	selectedID  string
	selectedRow int
	offset      int

	modal    Modal
	paused   Modal // modal hidden behind the secret prompt
	showHelp bool
	toast    *toast

	showActivity bool
	activity     []logtail.Entry
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	refresh := opts.Refresh
	if refresh <= 0 {
		refresh = time.Second
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	p := opts.Prefs
	if p.Theme == "" {
		p = prefs.Default()
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	m := Model{
		ctx:          ctx,
		engine:       opts.Engine,
		gate:         opts.Gate,
		prompter:     opts.Prompter,
		log:          log,
		keys:         DefaultKeyMap(),
		prefs:        p,
		prefsPath:    prefsPath,
		backend:      opts.Backend,
		fallback:     opts.Fallback,
		logPath:      opts.LogPath,
		refresh:      refresh,
		now:          now,
		theme:        GetTheme(p.Theme),
		showActivity: p.ShowActivity && opts.LogPath != "",
	}
	m.syncSnapshot()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tickCmd(m.refresh),
		m.waitForUpdate(),
		m.prompter.wait(m.ctx),
	}
	if m.showActivity {
		cmds = append(cmds, m.loadActivity())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.clampSelection()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case engineUpdatedMsg:
		m.syncSnapshot()
		return m, m.waitForUpdate()

	case tickMsg:
		return m.handleTick(time.Time(msg))

	case promptRequestMsg:
		m.showHelp = false
		if _, prompting := m.modal.(*secretModal); m.modal != nil && !prompting {
			m.paused = m.modal
		}
		m.modal = newSecretModal(promptRequest(msg))
		return m, m.prompter.wait(m.ctx)

	case formSubmittedMsg:
		if msg.ID == "" {
			return m, m.createCmd(msg.Input)
		}
		return m, m.updateCmd(msg.ID, msg.Input)

	case filtersAppliedMsg:
		m.applyCriteria(view.Criteria(msg), "")
		return m, nil

	case actionResultMsg:
		m.notify(msg.notification())
		m.syncSnapshot()
		return m, nil

	case activityMsg:
		m.activity = msg
		return m, nil
	}

	if m.modal != nil {
		return m.updateModal(msg)
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}
	if m.showHelp {
		return m.renderHelp()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderTable(m.tableHeight()))
	if m.showActivity {
		b.WriteString("\n")
		b.WriteString(m.renderActivity())
	}
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

// updateModal forwards msg to the open modal. When it closes, a modal
// paused by the secret prompt comes back.
func (m Model) updateModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var closed bool
	m.modal, cmd, closed = m.modal.Update(msg, m.keys)
	if closed {
		m.modal, m.paused = m.paused, nil
	}
	return m, cmd
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.modal != nil {
		return m.updateModal(msg)
	}

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.prefs.Theme = m.theme.Name
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.ToggleLog):
		if m.logPath == "" {
			m.notify(infoToast("Logging is disabled"))
			return m, nil
		}
		m.showActivity = !m.showActivity
		m.prefs.ShowActivity = m.showActivity
		m.savePrefs()
		m.clampSelection()
		if m.showActivity {
			return m, m.loadActivity()
		}
		return m, nil

	case key.Matches(msg, m.keys.New):
		m.modal = newFlightForm(nil, m.prefs.DefaultCompany, m.now())
		return m, nil

	case key.Matches(msg, m.keys.Edit):
		if rec, ok := m.selected(); ok {
			m.modal = newFlightForm(&rec, m.prefs.DefaultCompany, m.now())
		}
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		if rec, ok := m.selected(); ok {
			return m, m.deleteCmd(rec)
		}
		return m, nil

	case key.Matches(msg, m.keys.Undo):
		return m, m.undoCmd()

	case key.Matches(msg, m.keys.Reconnect):
		if m.snapshot.Subscribed {
			m.notify(infoToast("Live updates already active"))
			return m, nil
		}
		return m, m.reconnectCmd()

	case key.Matches(msg, m.keys.CycleType):
		c := m.criteria
		c.Type = nextMovement(c.Type)
		m.applyCriteria(c, "")
		return m, nil

	case key.Matches(msg, m.keys.NextMonth):
		c := m.criteria
		c.Month = shiftMonth(c.Month, 1)
		m.applyCriteria(c, "")
		return m, nil

	case key.Matches(msg, m.keys.PrevMonth):
		c := m.criteria
		c.Month = shiftMonth(c.Month, -1)
		m.applyCriteria(c, "")
		return m, nil

	case key.Matches(msg, m.keys.CycleCompany):
		c := m.criteria
		c.Company = nextCompany(c.Company)
		m.applyCriteria(c, "")
		return m, nil

	case key.Matches(msg, m.keys.EditFilters):
		m.modal = newFilterEditor(m.criteria)
		return m, nil

	case key.Matches(msg, m.keys.ResetFilters):
		m.applyCriteria(m.criteria.Reset(), "Filters reset")
		return m, nil
	}

	m.handleNavigation(msg)
	return m, nil
}

func (m *Model) handleNavigation(msg tea.KeyMsg) {
	count := len(m.result.Visible)
	if count == 0 {
		return
	}
	half := max(m.tableHeight()/2, 1)
	switch {
	case key.Matches(msg, m.keys.Up):
		m.selectedRow--
	case key.Matches(msg, m.keys.Down):
		m.selectedRow++
	case key.Matches(msg, m.keys.Top):
		m.selectedRow = 0
	case key.Matches(msg, m.keys.Bottom):
		m.selectedRow = count - 1
	case key.Matches(msg, m.keys.HalfPageUp):
		m.selectedRow -= half
	case key.Matches(msg, m.keys.HalfPageDown):
		m.selectedRow += half
	default:
		return
	}
	m.selectedRow = min(max(m.selectedRow, 0), count-1)
	m.selectedID = m.result.Visible[m.selectedRow].ID
	m.clampSelection()
}

// handleTick expires the toast, refreshes the undo countdown and reloads
// the activity pane.
func (m Model) handleTick(t time.Time) (tea.Model, tea.Cmd) {
	if m.toast != nil && !t.Before(m.toast.expires) {
		m.toast = nil
	}
	m.syncSnapshot()

	cmds := []tea.Cmd{tickCmd(m.refresh)}
	if m.showActivity {
		cmds = append(cmds, m.loadActivity())
	}
	return m, tea.Batch(cmds...)
}

// syncSnapshot pulls the engine state and recomputes the visible rows.
func (m *Model) syncSnapshot() {
	if m.engine == nil {
		return
	}
	m.snapshot = m.engine.Snapshot()
	m.recompute()
}

func (m *Model) recompute() {
	m.result = view.Compute(m.snapshot.Records, m.criteria)
	m.clampSelection()
}

func (m *Model) applyCriteria(c view.Criteria, note string) {
	m.criteria = c
	m.recompute()
	if note != "" {
		m.notify(infoToast(note))
	}
}

// clampSelection keeps the selection on the same record ID when it is
// still visible and within bounds otherwise.
func (m *Model) clampSelection() {
	rows := m.result.Visible
	if len(rows) == 0 {
		m.selectedRow = 0
		m.offset = 0
		return
	}
	if m.selectedID != "" {
		for i, r := range rows {
			if r.ID == m.selectedID {
				m.selectedRow = i
				break
			}
		}
	}
	m.selectedRow = min(max(m.selectedRow, 0), len(rows)-1)
	m.selectedID = rows[m.selectedRow].ID

	height := max(m.tableHeight()-3, 1) // borders and column header
	if m.selectedRow < m.offset {
		m.offset = m.selectedRow
	}
	if m.selectedRow >= m.offset+height {
		m.offset = m.selectedRow - height + 1
	}
	m.offset = min(max(m.offset, 0), max(len(rows)-height, 0))
}

func (m Model) selected() (flight.Record, bool) {
	rows := m.result.Visible
	if m.selectedRow < 0 || m.selectedRow >= len(rows) {
		return flight.Record{}, false
	}
	return rows[m.selectedRow], true
}

// tableHeight is the height of the flights box including its borders.
func (m Model) tableHeight() int {
	h := m.height - 3 // header, command bar, footer
	if m.showActivity {
		h -= activityHeight
	}
	return max(h, 3)
}

func (m *Model) notify(t *toast) {
	if t == nil {
		return
	}
	t.expires = m.now().Add(toastDuration)
	m.toast = t
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
		m.log.Warnw("save prefs failed", "error", err)
	}
}

// Messages

type tickMsg time.Time

type engineUpdatedMsg struct{}

type activityMsg []logtail.Entry

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForUpdate blocks until the engine signals a change.
func (m Model) waitForUpdate() tea.Cmd {
	if m.engine == nil {
		return nil
	}
	updates := m.engine.Updates()
	ctx := m.ctx
	return func() tea.Msg {
		select {
		case <-updates:
			return engineUpdatedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m Model) loadActivity() tea.Cmd {
	path := m.logPath
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		entries, err := logtail.Tail(path, activityLines)
		if err != nil {
			return activityMsg{{Level: "ERROR", Message: err.Error()}}
		}
		return activityMsg(entries)
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or ctx
// is cancelled.
func Run(ctx context.Context, opts Options) error {
	opts.Context = ctx
	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
