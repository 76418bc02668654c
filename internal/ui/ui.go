package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/formatter"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/queue"
	"github.com/desertthunder/mixtape/internal/synchronizer"
	"github.com/desertthunder/mixtape/internal/tasks"
)

const (
	seekStepMS   = 5000
	volumeStep   = 10
	defaultWidth = 80
	listHeight   = 14
)

// Model is the terminal player. It owns one session store for as long as it is mounted.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	store  *queue.Store
	sync   *synchronizer.Synchronizer
	loader *tasks.Loader
	logger *log.Logger

	subscription <-chan queue.State
	state        queue.State
	refs         []models.PlaylistRef

	queueList list.Model
	bar       progress.Model
	spinner   spinner.Model
	editor    textinput.Model
	help      help.Model
	keys      keyMap

	// loadGen identifies the newest load; messages from older ones are dropped.
	loadGen      int
	loadCancel   context.CancelFunc
	loading      bool
	progressChan chan tasks.ProgressUpdate
	loadUpdate   tasks.ProgressUpdate

	width int
	err   error
}

// NewModel builds the player for store. sync and loader may be nil, which disables playback and
// loading respectively. refs are loaded as soon as the program starts.
func NewModel(ctx context.Context, store *queue.Store, sync *synchronizer.Synchronizer, loader *tasks.Loader, refs []models.PlaylistRef) *Model {
	ctx, cancel := context.WithCancel(ctx)

	delegate := list.NewDefaultDelegate()
	queueList := list.New(nil, delegate, defaultWidth, listHeight)
	queueList.Title = "Queue"
	queueList.SetShowHelp(false)
	queueList.SetShowStatusBar(false)
	queueList.SetFilteringEnabled(false)
	queueList.DisableQuitKeybindings()

	editor := textinput.New()
	editor.Placeholder = "spotify:album:ID, youtube:playlist:ID or a share URL"
	editor.Prompt = "› "
	editor.Width = defaultWidth - 4

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &Model{
		ctx:          ctx,
		cancel:       cancel,
		store:        store,
		sync:         sync,
		loader:       loader,
		logger:       log.New(io.Discard),
		subscription: store.Subscribe(),
		refs:         refs,
		queueList:    queueList,
		bar:          progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		spinner:      sp,
		editor:       editor,
		help:         help.New(),
		keys:         newKeyMap(),
		width:        defaultWidth,
	}
	m.apply(store.State())
	return m
}

// WithLogger sets the logger used for load and playback failures.
func (m *Model) WithLogger(l *log.Logger) *Model {
	m.logger = l
	return m
}

// Init starts the synchronizer, the state subscription and the initial load.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForState(m.subscription), textinput.Blink}
	if m.sync != nil {
		cmds = append(cmds, m.runSync())
	}
	if len(m.refs) > 0 {
		cmds = append(cmds, m.startLoad(m.refs))
	}
	return tea.Batch(cmds...)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.queueList.SetSize(msg.Width, max(msg.Height-12, 4))
		m.bar.Width = max(msg.Width-20, 10)
		m.editor.Width = max(msg.Width-4, 10)
		m.help.Width = msg.Width
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case progress.FrameMsg:
		updated, cmd := m.bar.Update(msg)
		if bar, ok := updated.(progress.Model); ok {
			m.bar = bar
		}
		return m, cmd
	case Msg:
		return m.handleMsg(msg)
	}

	if m.state.IsPlaylistEditorOpen {
		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgStateChanged:
		m.apply(msg.data.(queue.State))
		return m, waitForState(m.subscription)
	case MsgLoadProgress:
		p := msg.data.(loadProgress)
		if p.gen != m.loadGen {
			return m, nil
		}
		m.loadUpdate = p.update
		return m, waitForProgress(m.loadGen, m.progressChan)
	case MsgLoadComplete:
		done := msg.data.(loadComplete)
		if done.gen != m.loadGen {
			m.logger.Debug("discarding superseded load", "gen", done.gen)
			return m, nil
		}
		m.loading = false
		m.stopLoad()
		if done.err != nil {
			m.err = done.err
			m.logger.Error("load failed", "error", done.err)
			return m, nil
		}
		m.err = nil
		for _, f := range done.result.Failed {
			m.logger.Warn("playlist skipped", "ref", f.Ref, "error", f.Err)
		}
		m.apply(m.store.Dispatch(done.result.Intent(), queue.CloseEditor{}))
		return m, nil
	case MsgStoreClosed:
		return m, m.quit()
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, m.quit()
	}
	if m.state.IsPlaylistEditorOpen {
		return m.handleEditorKey(msg)
	}
	if m.state.IsKeyManagerOpen && (key.Matches(msg, m.keys.keyMgr) || key.Matches(msg, m.keys.back)) {
		m.dispatch(queue.CloseKeyManager{})
		return m, nil
	}

	s := m.state
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, m.quit()
	case key.Matches(msg, m.keys.toggle):
		m.dispatch(queue.TogglePlay{})
	case key.Matches(msg, m.keys.next):
		m.dispatch(queue.PlayNext{})
	case key.Matches(msg, m.keys.previous):
		m.dispatch(queue.PlayPrevious{})
	case key.Matches(msg, m.keys.playAt):
		if idx := m.queueList.Index(); idx >= 0 && idx < len(s.Queue) {
			m.dispatch(queue.PlayAt{Index: idx})
		}
	case key.Matches(msg, m.keys.forward):
		m.dispatch(queue.Seek{ProgressMS: m.seekTarget(seekStepMS)})
	case key.Matches(msg, m.keys.rewind):
		m.dispatch(queue.Seek{ProgressMS: m.seekTarget(-seekStepMS)})
	case key.Matches(msg, m.keys.louder):
		m.dispatch(queue.SetVolume{Volume: s.Volume + volumeStep})
	case key.Matches(msg, m.keys.quieter):
		m.dispatch(queue.SetVolume{Volume: s.Volume - volumeStep})
	case key.Matches(msg, m.keys.mute):
		m.dispatch(queue.ToggleMute{})
	case key.Matches(msg, m.keys.shuffle):
		m.dispatch(queue.ToggleShuffle{})
	case key.Matches(msg, m.keys.repeat):
		m.dispatch(queue.ToggleRepeat{})
	case key.Matches(msg, m.keys.editor):
		m.dispatch(queue.OpenEditor{})
		return m, textinput.Blink
	case key.Matches(msg, m.keys.keyMgr):
		m.dispatch(queue.OpenKeyManager{})
	case key.Matches(msg, m.keys.up), key.Matches(msg, m.keys.down):
		var cmd tea.Cmd
		m.queueList, cmd = m.queueList.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleEditorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.submitRef):
		refs, err := models.ParseRefs(m.editor.Value())
		if err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.refs = refs
		return m, m.startLoad(refs)
	case key.Matches(msg, m.keys.back):
		if !m.state.IsEmpty() {
			m.dispatch(queue.CloseEditor{})
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m *Model) dispatch(intents ...queue.Intent) {
	m.apply(m.store.Dispatch(intents...))
}

// apply installs s and brings the widgets in line with it.
func (m *Model) apply(s queue.State) {
	prev := m.state
	m.state = s

	m.queueList.SetItems(queueItems(formatter.Rows(s)))
	if s.Cursor != prev.Cursor || len(s.Queue) != len(prev.Queue) {
		m.queueList.Select(s.Cursor)
	}

	if s.IsPlaylistEditorOpen {
		if !m.editor.Focused() {
			m.editor.SetValue(joinRefs(s.Refs()))
			m.editor.Focus()
		}
	} else {
		m.editor.Blur()
	}
	m.help.ShowAll = s.IsKeyManagerOpen
}

func (m *Model) seekTarget(delta int) int {
	target := m.state.ProgressMS + delta
	if m.state.DurationMS > 0 {
		target = min(target, m.state.DurationMS)
	}
	return max(target, 0)
}

func (m *Model) quit() tea.Cmd {
	m.stopLoad()
	m.cancel()
	m.store.Unsubscribe(m.subscription)
	return tea.Quit
}

func (m *Model) runSync() tea.Cmd {
	return func() tea.Msg {
		if err := m.sync.Run(m.ctx); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Error("synchronizer stopped", "error", err)
		}
		return nil
	}
}

// startLoad resolves refs in the background, reporting progress until the load finishes. A load still
// in flight is cancelled and its result ignored.
func (m *Model) startLoad(refs []models.PlaylistRef) tea.Cmd {
	if m.loader == nil {
		m.err = fmt.Errorf("loading is not available")
		return nil
	}
	m.stopLoad()

	ctx, cancel := context.WithCancel(m.ctx)
	m.loadGen++
	m.loadCancel = cancel
	m.loading = true
	m.loadUpdate = tasks.ProgressUpdate{}
	m.progressChan = make(chan tasks.ProgressUpdate, 10)
	return tea.Batch(m.loadCmd(ctx, m.loadGen, refs, m.progressChan), waitForProgress(m.loadGen, m.progressChan), m.spinner.Tick)
}

func (m *Model) stopLoad() {
	if m.loadCancel != nil {
		m.loadCancel()
		m.loadCancel = nil
	}
}

func (m *Model) loadCmd(ctx context.Context, gen int, refs []models.PlaylistRef, progressChan chan tasks.ProgressUpdate) tea.Cmd {
	return func() tea.Msg {
		defer close(progressChan)
		result, err := m.loader.Load(ctx, progressChan, refs)
		return loadCompleteMsg(gen, result, err)
	}
}

func waitForState(ch <-chan queue.State) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return storeClosedMsg()
		}
		return stateChangedMsg(s)
	}
}

func waitForProgress(gen int, ch <-chan tasks.ProgressUpdate) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		update, ok := <-ch
		if !ok {
			return nil
		}
		return loadProgressMsg(gen, update)
	}
}

// View renders the current view.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("mixtape"))
	b.WriteString("\n")

	switch {
	case m.state.IsPlaylistEditorOpen:
		b.WriteString(m.editorView())
	default:
		b.WriteString(m.nowPlayingView())
		b.WriteString("\n\n")
		b.WriteString(m.queueList.View())
	}

	if m.loading {
		fmt.Fprintf(&b, "\n%s %s", m.spinner.View(), m.loadingText())
	}
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(styles.err.Render("Error: " + m.err.Error()))
	}

	b.WriteString("\n\n")
	if m.state.IsPlaylistEditorOpen {
		b.WriteString(styles.help.Render("enter load • esc back • ctrl+c quit"))
	} else {
		b.WriteString(m.help.View(m.keys))
	}
	return b.String()
}

func (m *Model) editorView() string {
	var b strings.Builder
	b.WriteString("Playlists\n\n")
	b.WriteString(m.editor.View())
	for _, p := range m.state.Playlists {
		fmt.Fprintf(&b, "\n  %s %s", styles.dim.Render(p.Ref().String()), p.Title)
	}
	return b.String()
}

func (m *Model) nowPlayingView() string {
	s := m.state
	if s.IsEmpty() {
		return styles.warn.Render("Nothing queued. Press e to add playlists.")
	}

	title := s.Current().String()
	var artist string
	if info, ok := s.CurrentInfo(); ok {
		title = info.Title
		artist = info.Artist()
	}

	var b strings.Builder
	b.WriteString(styles.current.Render(title))
	if artist != "" {
		b.WriteString(" " + styles.dim.Render(artist))
	}
	b.WriteString("\n")

	percent := 0.0
	if s.DurationMS > 0 {
		percent = min(float64(s.ProgressMS)/float64(s.DurationMS), 1)
	}
	fmt.Fprintf(&b, "%s %s / %s\n", m.bar.ViewAs(percent),
		formatter.FormatDuration(s.ProgressMS), formatter.FormatDuration(s.DurationMS))
	b.WriteString(statusLine(s))
	return b.String()
}

func (m *Model) loadingText() string {
	u := m.loadUpdate
	if u.Message == "" {
		return "Loading playlists..."
	}
	if u.Total > 0 {
		return fmt.Sprintf("%s (%d/%d)", u.Message, u.Step, u.Total)
	}
	return u.Message
}

func statusLine(s queue.State) string {
	parts := make([]string, 0, 4)
	if s.IsPlaying {
		parts = append(parts, styles.ok.Render("playing"))
	} else {
		parts = append(parts, styles.dim.Render("paused"))
	}
	parts = append(parts, flag("shuffle", s.IsShuffleOn), flag("repeat", s.IsRepeatOn))
	if s.IsMuted {
		parts = append(parts, styles.warn.Render("muted"))
	} else {
		parts = append(parts, fmt.Sprintf("vol %d%%", s.Volume))
	}
	return strings.Join(parts, "  ")
}

func flag(name string, on bool) string {
	if on {
		return styles.ok.Render(name)
	}
	return styles.dim.Render(name)
}

func joinRefs(refs []models.PlaylistRef) string {
	parts := make([]string, len(refs))
	for i, r := range refs {
		parts[i] = r.String()
	}
	return strings.Join(parts, ", ")
}
