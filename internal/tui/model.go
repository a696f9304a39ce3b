package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"mp3cover/internal/audiotag"
	"mp3cover/internal/preview"
)

type screen int

const (
	screenMain screen = iota
	screenInjecting
	screenFilePicker
)

type pickTarget int

const (
	pickAudio pickTarget = iota
	pickImage
)

const (
	titleAudio = "01 SELECT MP3 FILE"
	titleImage = "02 SELECT COVER IMAGE"

	msgSuccess       = "SUCCESS >>> COVER ART INJECTED!"
	msgNotMP3        = "NOT AN MP3 FILE!"
	msgBadImage      = "UNSUPPORTED IMAGE FORMAT!"
	msgNeedBoth      = "SELECT BOTH AN MP3 AND AN IMAGE FIRST"
	msgCancelled     = "INJECTION CANCELLED"
	pulseInterval    = 500 * time.Millisecond
	watchDebounce    = 200 * time.Millisecond
	maxPreviewRows   = 15
	maxHistoryHeight = 6
)

var (
	audioTypes = caseVariants(".mp3")
	imageTypes = caseVariants(".jpg", ".jpeg", ".png", ".gif", ".bmp")
)

// Options configures the terminal UI.
type Options struct {
	AudioPath string
	ImagePath string
	// StartDir is where the file pickers open when nothing is selected yet.
	StartDir   string
	TagOptions []audiotag.Option
	Log        *slog.Logger
}

type previewKey struct {
	p          *preview.Preview
	cols, rows int
}

type model struct {
	log     *slog.Logger
	tagOpts []audiotag.Option

	w int
	h int

	startDir  string
	audioPath string
	imagePath string
	audioInfo *audiotag.Summary
	prev      *preview.Preview
	watcher   *preview.Watcher

	prevRows   int
	prevKey    previewKey
	prevRender string

	history  list.Model
	delegate *historyDelegate
	picker   filepicker.Model
	pickFor  pickTarget
	spinner  spinner.Model
	progress progress.Model

	screen screen
	errMsg string
	status string
	pulse  int

	injCh    chan tea.Msg
	cancel   context.CancelFunc
	stage    audiotag.Stage
	quitting bool

	initCmds []tea.Cmd
}

type audioInfoMsg struct {
	path string
	info audiotag.Summary
	err  error
}

type previewMsg struct {
	path string
	prev *preview.Preview
	err  error
}

type imageChangedMsg struct {
	w *preview.Watcher
}

type stageMsg struct {
	stage audiotag.Stage
}

type injectDoneMsg struct {
	req audiotag.Request
	res audiotag.Result
	err error
}

type pulseMsg struct{}

func New(opts Options) tea.Model {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	startDir := opts.StartDir
	if startDir == "" {
		startDir = "."
	}
	if abs, err := filepath.Abs(startDir); err == nil {
		startDir = abs
	}

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(colorCyan)

	del := newHistoryDelegate()
	l := list.New(nil, del, 0, 0)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowPagination(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)

	p := progress.New(
		progress.WithFillCharacters('█', '░'),
		progress.WithScaledGradient("#00FFFF", "#FF00FF"),
		progress.WithoutPercentage(),
	)
	p.EmptyColor = "#1A1A2E"

	fp := filepicker.New()
	fp.CurrentDirectory = startDir
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.ShowPermissions = false
	fp.ShowSize = true
	fp.ShowHidden = false
	fp.AutoHeight = false
	fp.Cursor = "▸"
	fp.Styles.Cursor = lipgloss.NewStyle().Foreground(colorMagenta).Bold(true)
	fp.Styles.Directory = lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
	fp.Styles.File = valueStyle
	fp.Styles.Selected = lipgloss.NewStyle().Foreground(colorCyan).Bold(true).Underline(true)
	fp.Styles.Symlink = lipgloss.NewStyle().Foreground(colorMagenta).Italic(true)
	fp.Styles.EmptyDirectory = faintStyle
	fp.Styles.DisabledFile = faintStyle
	fp.Styles.DisabledCursor = faintStyle
	fp.Styles.DisabledSelected = faintStyle
	fp.KeyMap.Back = key.NewBinding(key.WithKeys("h", "backspace", "left"), key.WithHelp("←", "back"))

	m := &model{
		log:      log,
		tagOpts:  opts.TagOptions,
		w:        80,
		h:        24,
		startDir: startDir,
		history:  l,
		delegate: del,
		picker:   fp,
		spinner:  sp,
		progress: p,
		screen:   screenMain,
	}
	if opts.AudioPath != "" {
		m.initCmds = append(m.initCmds, m.selectFile(pickAudio, opts.AudioPath))
	}
	if opts.ImagePath != "" {
		m.initCmds = append(m.initCmds, m.selectFile(pickImage, opts.ImagePath))
	}
	m.onResize()
	return m
}

func (m *model) Init() tea.Cmd {
	cmds := append([]tea.Cmd{pulseCmd()}, m.initCmds...)
	m.initCmds = nil
	return tea.Batch(cmds...)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.w = msg.Width
		m.h = msg.Height
		m.onResize()
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			if m.injCh != nil {
				// Quit once the running save has finished or been cancelled.
				if m.cancel != nil {
					m.cancel()
				}
				m.quitting = true
				m.status = "FINISHING SAVE..."
				return m, nil
			}
			return m, m.quit()
		}
	case pulseMsg:
		m.pulse = (m.pulse + 1) % len(pulseColors)
		return m, pulseCmd()
	case audioInfoMsg:
		return m, m.onAudioInfo(msg)
	case previewMsg:
		return m, m.onPreview(msg)
	case imageChangedMsg:
		if msg.w != m.watcher || m.imagePath == "" {
			return m, nil
		}
		return m, tea.Batch(loadPreviewCmd(m.imagePath), waitImageChange(m.watcher))
	}

	switch m.screen {
	case screenMain:
		return m.updateMain(msg)
	case screenInjecting:
		return m.updateInjecting(msg)
	case screenFilePicker:
		return m.updateFilePicker(msg)
	default:
		return m, nil
	}
}

func (m *model) View() string {
	switch m.screen {
	case screenMain:
		return m.viewMain()
	case screenInjecting:
		return m.viewInjecting()
	case screenFilePicker:
		return m.viewFilePicker()
	default:
		return ""
	}
}

func (m *model) updateMain(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "q", "esc":
			return m, m.quit()
		case "a":
			return m, m.openPicker(pickAudio)
		case "i":
			return m, m.openPicker(pickImage)
		case "enter":
			if m.audioPath == "" || m.imagePath == "" {
				m.status = ""
				m.errMsg = msgNeedBoth
				return m, nil
			}
			return m, m.startInject()
		case "up", "down", "k", "j":
			var cmd tea.Cmd
			m.history, cmd = m.history.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m *model) updateInjecting(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case stageMsg:
		m.stage = msg.stage
		return m, listenMsg(m.injCh)
	case injectDoneMsg:
		return m, m.finishInject(msg)
	case tea.KeyMsg:
		if msg.String() == "esc" && m.cancel != nil {
			// The save itself is never interrupted; a late cancel is ignored.
			m.cancel()
			m.status = "CANCELLING..."
		}
	}
	return m, nil
}

func (m *model) updateFilePicker(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "b", "esc":
			m.errMsg = ""
			m.screen = screenMain
			m.onResize()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	if didSelect, path := m.picker.DidSelectFile(msg); didSelect {
		sel := m.selectFile(m.pickFor, path)
		m.screen = screenMain
		m.onResize()
		return m, sel
	}
	if didSelect, _ := m.picker.DidSelectDisabledFile(msg); didSelect {
		m.status = ""
		if m.pickFor == pickAudio {
			m.errMsg = msgNotMP3
		} else {
			m.errMsg = msgBadImage
		}
		return m, cmd
	}

	return m, cmd
}

func (m *model) openPicker(target pickTarget) tea.Cmd {
	m.pickFor = target
	dir := m.startDir
	current := m.audioPath
	m.picker.AllowedTypes = audioTypes
	if target == pickImage {
		current = m.imagePath
		m.picker.AllowedTypes = imageTypes
	}
	if current != "" {
		if abs, err := filepath.Abs(filepath.Dir(current)); err == nil {
			dir = abs
		}
	}
	m.picker.CurrentDirectory = dir
	m.errMsg = ""
	m.screen = screenFilePicker
	m.onResize()
	return m.picker.Init()
}

func (m *model) selectFile(target pickTarget, path string) tea.Cmd {
	m.errMsg = ""
	name := displayName(filepath.Base(path))
	if target == pickAudio {
		m.audioPath = path
		m.audioInfo = nil
		m.status = "MP3 LOADED: " + name
		return inspectCmd(path)
	}
	m.imagePath = path
	m.prev = nil
	m.status = "IMAGE LOADED: " + name
	return loadPreviewCmd(path)
}

func (m *model) onAudioInfo(msg audioInfoMsg) tea.Cmd {
	if msg.path != m.audioPath {
		return nil
	}
	if msg.err != nil {
		m.audioInfo = nil
		m.status = ""
		m.errMsg = audiotag.Describe(msg.err)
		m.log.Warn("inspect audio", "audio", msg.path, "err", msg.err)
		return nil
	}
	info := msg.info
	m.audioInfo = &info
	return nil
}

func (m *model) onPreview(msg previewMsg) tea.Cmd {
	if msg.path != m.imagePath {
		return nil
	}
	if msg.err != nil {
		m.prev = nil
		m.status = ""
		m.errMsg = "could not load preview: " + msg.err.Error()
		m.log.Warn("load preview", "image", msg.path, "err", msg.err)
		return nil
	}
	m.prev = msg.prev

	abs, err := filepath.Abs(msg.path)
	if err != nil {
		abs = msg.path
	}
	if m.watcher != nil && m.watcher.Path() == abs {
		return nil
	}
	m.closeWatcher()
	w, err := preview.Watch(msg.path, watchDebounce, m.log)
	if err != nil {
		m.log.Warn("watch image", "image", msg.path, "err", err)
		return nil
	}
	m.watcher = w
	return waitImageChange(w)
}

func (m *model) startInject() tea.Cmd {
	req := audiotag.Request{AudioPath: m.audioPath, ImagePath: m.imagePath}

	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan tea.Msg, audiotag.StageCount+1)
	m.injCh = ch
	m.cancel = cancel
	m.stage = audiotag.StageOpen
	m.screen = screenInjecting
	m.errMsg = ""
	m.status = "INJECTING COVER ART..."
	m.onResize()

	opts := append([]audiotag.Option{audiotag.WithLogger(m.log)}, m.tagOpts...)
	opts = append(opts, audiotag.WithProgress(func(s audiotag.Stage) {
		select {
		case ch <- stageMsg{stage: s}:
		default:
		}
	}))
	t := audiotag.New(opts...)

	go func() {
		defer cancel()
		res, err := t.EmbedCover(ctx, req)
		ch <- injectDoneMsg{req: req, res: res, err: err}
		close(ch)
	}()

	return tea.Batch(listenMsg(ch), m.spinner.Tick)
}

func (m *model) finishInject(msg injectDoneMsg) tea.Cmd {
	cmd := m.recordInject(msg)
	if m.quitting {
		return m.quit()
	}
	return cmd
}

func (m *model) recordInject(msg injectDoneMsg) tea.Cmd {
	m.injCh = nil
	m.cancel = nil
	m.screen = screenMain

	if errors.Is(msg.err, context.Canceled) {
		m.status = ""
		m.errMsg = msgCancelled
		m.onResize()
		return nil
	}

	m.history.InsertItem(0, historyItem{
		audio: msg.req.AudioPath,
		image: msg.req.ImagePath,
		res:   msg.res,
		err:   msg.err,
		at:    time.Now(),
	})
	m.history.Select(0)

	if msg.err != nil {
		m.status = ""
		m.errMsg = audiotag.Describe(msg.err)
		m.log.Error("inject cover", "audio", msg.req.AudioPath, "image", msg.req.ImagePath, "err", msg.err)
		m.onResize()
		return nil
	}
	m.errMsg = ""
	m.status = msgSuccess
	m.onResize()
	return inspectCmd(msg.req.AudioPath)
}

func (m *model) quit() tea.Cmd {
	if m.cancel != nil {
		m.cancel()
	}
	m.closeWatcher()
	return tea.Quit
}

func (m *model) closeWatcher() {
	if m.watcher == nil {
		return
	}
	if err := m.watcher.Close(); err != nil {
		m.log.Debug("close watcher", "err", err)
	}
	m.watcher = nil
}

func listenMsg(ch <-chan tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func pulseCmd() tea.Cmd {
	return tea.Tick(pulseInterval, func(time.Time) tea.Msg { return pulseMsg{} })
}

func inspectCmd(path string) tea.Cmd {
	return func() tea.Msg {
		info, err := audiotag.Inspect(path)
		return audioInfoMsg{path: path, info: info, err: err}
	}
}

func loadPreviewCmd(path string) tea.Cmd {
	return func() tea.Msg {
		p, err := preview.Load(path)
		return previewMsg{path: path, prev: p, err: err}
	}
}

func waitImageChange(w *preview.Watcher) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-w.Changes(); !ok {
			return nil
		}
		return imageChangedMsg{w: w}
	}
}

func (m *model) viewMain() string {
	padX, padY, w, h := m.layout()
	container := lipgloss.NewStyle().Padding(padY, padX)
	if w < 24 || h < 10 {
		return container.Render("Terminal too small. Press q to quit.")
	}

	leftW, rightW, split := m.columns(w)
	audioPanel := renderPanel(titleAudio, leftW-2, m.audioContent(leftW-4), m.audioPath == "")
	imagePanel := renderPanel(titleImage, rightW-2, m.imageContent(rightW-4), m.audioPath != "" && m.imagePath == "")

	var panels string
	if split {
		panels = lipgloss.JoinHorizontal(lipgloss.Top, audioPanel, " ", imagePanel)
	} else {
		panels = audioPanel + "\n" + imagePanel
	}

	lines := []string{
		renderHeader(w, m.headerLeft("inject"), m.headerRight()),
		renderDivider(w, pulseColors[m.pulse]),
		panels,
	}
	if len(m.history.Items()) > 0 {
		lines = append(lines, renderPanel("HISTORY", w-2, m.history.View(), false))
	}
	if m.status != "" {
		lines = append(lines, renderStatusLine(m.status))
	}
	if m.errMsg != "" {
		lines = append(lines, renderErrorLine(m.errMsg))
	}
	lines = append(lines, renderFooterKeys(w, "a", "mp3", "i", "image", "Enter", "inject", "Esc", "quit"))

	return container.Render(strings.Join(filterEmpty(lines), "\n"))
}

func (m *model) audioContent(w int) string {
	if m.audioPath == "" {
		return faintStyle.Render("No file. Press a to browse.")
	}
	rows := []string{renderField("FILE", filepath.Base(m.audioPath), w)}
	info := m.audioInfo
	if info == nil {
		return strings.Join(rows, "\n")
	}

	tagVersion := info.TagVersion
	if tagVersion == "" {
		tagVersion = "none"
	}
	cover := "none"
	if info.Cover != nil {
		cover = fmt.Sprintf("%s %s", info.Cover.MIMEType, formatBytes(int64(info.Cover.Size)))
		if info.Pictures > 1 {
			cover += fmt.Sprintf(" (+%d)", info.Pictures-1)
		}
	}
	length := fmt.Sprintf("%s  %d kbps", info.Duration.Round(time.Second), info.Bitrate/1000)

	rows = append(rows,
		renderField("TAG", tagVersion, w),
		renderField("TITLE", orDash(info.Title), w),
		renderField("ARTIST", orDash(info.Artist), w),
		renderField("COVER", cover, w),
		renderField("LENGTH", length, w),
	)
	return strings.Join(rows, "\n")
}

func (m *model) imageContent(w int) string {
	if m.imagePath == "" {
		return faintStyle.Render("No image. Press i to browse.")
	}
	rows := []string{
		renderField("FILE", filepath.Base(m.imagePath), w),
		renderField("TYPE", audiotag.MIMEFromExt(m.imagePath), w),
	}
	if m.prev == nil {
		rows = append(rows, renderField("SIZE", "-", w))
		return strings.Join(rows, "\n")
	}
	rows = append(rows, renderField("SIZE", fmt.Sprintf("%dx%d", m.prev.Source.X, m.prev.Source.Y), w))
	if art := m.previewArt(w); art != "" {
		rows = append(rows, art)
	}
	return strings.Join(rows, "\n")
}

// previewArt renders the preview into at most maxCols × m.prevRows cells,
// reusing the last render while the image and size are unchanged.
func (m *model) previewArt(maxCols int) string {
	if m.prev == nil || m.prevRows < 2 || maxCols < 4 {
		return ""
	}
	cols, rows := preview.Fit(m.prev.Image.Bounds().Size(), maxCols, m.prevRows)
	k := previewKey{p: m.prev, cols: cols, rows: rows}
	if k != m.prevKey {
		m.prevKey = k
		m.prevRender = preview.Render(m.prev.Image, cols, rows)
	}
	return m.prevRender
}

func (m *model) viewInjecting() string {
	padX, padY, w, h := m.layout()
	container := lipgloss.NewStyle().Padding(padY, padX)
	if w < 24 || h < 10 {
		return container.Render("Terminal too small. Press q to quit.")
	}

	pct := float64(m.stage) / float64(audiotag.StageCount-1)
	stageStyle := lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
	progLine := m.progress.ViewAs(pct) + " " + stageStyle.Render(fmt.Sprintf("%d/%d", int(m.stage)+1, audiotag.StageCount))

	panel := renderPanel("", w-2, strings.Join(filterEmpty([]string{
		renderInfoLine(m.spinner.View() + " " + m.status),
		progLine,
		renderField("STAGE", strings.ToUpper(m.stage.String()), w-4),
		renderField("MP3", filepath.Base(m.audioPath), w-4),
		renderField("IMAGE", filepath.Base(m.imagePath), w-4),
	}), "\n"), true)

	lines := []string{
		renderHeader(w, m.headerLeft("injecting"), m.headerRight()),
		renderDivider(w, pulseColors[m.pulse]),
		panel,
		renderFooterKeys(w, "Esc", "cancel"),
	}
	return container.Render(strings.Join(filterEmpty(lines), "\n"))
}

func (m *model) viewFilePicker() string {
	padX, padY, w, h := m.layout()
	container := lipgloss.NewStyle().Padding(padY, padX)
	if w < 24 || h < 10 {
		return container.Render("Terminal too small. Press q to quit.")
	}

	title := titleAudio
	if m.pickFor == pickImage {
		title = titleImage
	}
	pathLine := labelStyle.Render("  ") + valueStyle.Render(m.picker.CurrentDirectory)

	lines := []string{
		renderHeader(w, m.headerLeft("browse"), m.headerRight()),
		renderDivider(w, pulseColors[m.pulse]),
		pathLine,
		renderPanel(title, w-2, m.picker.View(), true),
	}
	if m.errMsg != "" {
		lines = append(lines, renderErrorLine(m.errMsg))
	}
	lines = append(lines, renderFooterKeys(w, "Enter", "select", "b", "back", "↑↓", "navigate", "→/←", "open/parent"))
	return container.Render(strings.Join(filterEmpty(lines), "\n"))
}

func (m *model) headerLeft(sub string) string {
	return headerTitleStyle.Render(">> mp3cover") + headerSubStyle.Render(" // "+sub)
}

func (m *model) headerRight() string {
	flag := func(set bool) string {
		if set {
			return "OK"
		}
		return "--"
	}
	return headerLabelStyle.Render("MP3:") + headerFillStyle.Render(" ") + headerValueStyle.Render(flag(m.audioPath != "")) +
		headerFillStyle.Render("  ") +
		headerLabelStyle.Render("IMG:") + headerFillStyle.Render(" ") + headerValueStyle.Render(flag(m.imagePath != ""))
}

func (m *model) layout() (padX, padY, contentW, contentH int) {
	w := m.w
	h := m.h
	if w <= 0 {
		w = 80
	}
	if h <= 0 {
		h = 24
	}

	padX = 2
	padY = 1
	if w < 70 {
		padX = 1
	}
	if h < 18 {
		padY = 0
	}

	contentW = max(0, w-padX*2)
	contentH = max(0, h-padY*2)
	return padX, padY, contentW, contentH
}

// columns splits the content width between the two selection panels.
func (m *model) columns(w int) (left, right int, split bool) {
	if w < 72 {
		return w, w, false
	}
	left = (w - 1) / 2
	return left, w - 1 - left, true
}

func (m *model) onResize() {
	_, _, contentW, contentH := m.layout()

	m.progress.Width = max(10, contentW-12)
	m.delegate.compact = contentH < 24

	histH := 0
	if n := len(m.history.Items()); n > 0 {
		histH = min(n*m.delegate.Height(), maxHistoryHeight)
	}
	m.history.SetSize(max(0, contentW-4), histH)

	// header + divider + status + footer
	fixed := 4
	if histH > 0 {
		fixed += histH + 3
	}
	// image panel borders, title and three fields
	fixed += 6
	if _, _, split := m.columns(contentW); !split {
		fixed += 9
	}
	m.prevRows = min(maxPreviewRows, contentH-fixed)

	// header + divider + pathLine + panel borders and title + error + footer
	pickerH := contentH - 8
	if pickerH < 3 {
		pickerH = 3
	}
	m.picker.SetHeight(pickerH)
}

func filterEmpty(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, s := range lines {
		if strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// caseVariants expands each extension into every upper/lower case spelling,
// since the file picker matches suffixes case-sensitively.
func caseVariants(exts ...string) []string {
	var out []string
	for _, ext := range exts {
		variants := []string{""}
		for _, r := range ext {
			lo, up := string(unicode.ToLower(r)), string(unicode.ToUpper(r))
			next := make([]string, 0, len(variants)*2)
			for _, v := range variants {
				next = append(next, v+lo)
				if up != lo {
					next = append(next, v+up)
				}
			}
			variants = next
		}
		out = append(out, variants...)
	}
	return out
}
