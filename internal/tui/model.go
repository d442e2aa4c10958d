package tui

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"slices"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/log"

	"github.com/soltrom/flytt/internal/domain"
	"github.com/soltrom/flytt/internal/gesture"
	"github.com/soltrom/flytt/internal/mover"
	"github.com/soltrom/flytt/internal/reorder"
	"github.com/soltrom/flytt/internal/store"
	"github.com/soltrom/flytt/internal/surface"
)

// Loader fetches the initial (or reloaded) board snapshot from the backend.
type Loader func(ctx context.Context) (store.Snapshot, error)

// Layout constants, in cells. The renderer and the surface hit-test geometry
// must agree on these; layout() assigns the same rectangles the renderer
// paints into.
const (
	boardTop     = 2
	columnGap    = 1
	cardTopRows  = 2
	cardRows     = 2
	minColWidth  = 20
	maxColWidth  = 36
	addColumnTag = "__add_section__"
)

const (
	loadTimeout   = 10 * time.Second
	moveTimeout   = 15 * time.Second
	noticeTTL     = 3 * time.Second
	minBoardLines = 12
)

// noticeLog buffers transient notifications pushed by the move orchestrator
// so the update loop can surface them after the call that produced them.
type noticeLog struct {
	msgs []string
}

func (n *noticeLog) push(msg string) {
	n.msgs = append(n.msgs, msg)
}

func (n *noticeLog) drain() []string {
	out := n.msgs
	n.msgs = nil
	return out
}

// loadedMsg carries the initial snapshot fetch result.
type loadedMsg struct {
	snap store.Snapshot
	err  error
}

// moveResolvedMsg carries one executed move back onto the update loop.
type moveResolvedMsg struct {
	out mover.Outcome
}

// snapshotMsg carries a self-heal reload fetched after a failed move.
type snapshotMsg struct {
	snap store.Snapshot
	err  error
}

// noticeExpiredMsg clears a transient notice once its display window ends.
type noticeExpiredMsg struct {
	seq int
}

// Model is the board shell: it owns the client-side state store, the visual
// surface tree, the drag controllers, and the move orchestrator, and routes
// bubbletea key and mouse events into them.
type Model struct {
	loader Loader
	log    *log.Logger

	store      *store.Store
	surf       *surface.Surface
	taskCtl    *reorder.TaskController
	sectionCtl *reorder.SectionController
	guard      *reorder.Guard
	gest       *gesture.Recognizer
	moves      *mover.Orchestrator
	notices    *noticeLog

	hoverInterval   time.Duration
	minDragDistance int

	ready  bool
	width  int
	height int
	err    error

	status    string
	notice    string
	noticeSeq int

	help help.Model
	keys keyMap
	md   *markdownRenderer

	selectedColumn int
	selectedTask   int
	infoTaskID     string
}

// NewModel constructs the board shell over a move backend and a snapshot
// loader. The backend is what drops are sent to; the loader is what full
// reloads come from.
func NewModel(backend mover.Backend, loader Loader, logger *log.Logger, opts ...Option) Model {
	if logger == nil {
		logger = log.Default()
	}
	h := help.New()
	h.ShowAll = false

	m := Model{
		loader: loader,
		log:    logger,
		status: "loading...",
		help:   h,
		keys:   newKeyMap(),
		md:     &markdownRenderer{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}

	m.store = store.New(nil)
	m.surf = surface.New()
	m.surf.Root().Append(surface.NewNode(addColumnTag, surface.KindSentinel))

	m.taskCtl = reorder.NewTaskController(m.store, m.surf, logger)
	var sectionOpts []reorder.SectionControllerOption
	if m.hoverInterval > 0 {
		sectionOpts = append(sectionOpts, reorder.WithHoverInterval(m.hoverInterval))
	}
	if m.minDragDistance > 0 {
		sectionOpts = append(sectionOpts, reorder.WithMinDragDistance(m.minDragDistance))
	}
	m.sectionCtl = reorder.NewSectionController(m.store, m.surf, logger, sectionOpts...)
	m.guard = reorder.NewGuard(m.store, m.surf, logger)
	m.gest = gesture.New(m.taskCtl, m.sectionCtl, m.store, m.surf, logger)

	m.notices = &noticeLog{}
	m.moves = mover.New(m.store, backend, logger, mover.WithNotifier(m.notices.push))
	return m
}

// Init handles init.
func (m Model) Init() tea.Cmd {
	return m.loadData
}

// loadData loads the board snapshot for the current operation.
func (m Model) loadData() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()
	snap, err := m.loader(ctx)
	return loadedMsg{snap: snap, err: err}
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		if err := m.store.Load(msg.snap); err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.guard.Repair()
		m.layout()
		m.clampSelections()
		m.status = "ready"
		return m, nil

	case moveResolvedMsg:
		reload := m.moves.Resolve(msg.out)
		m.guard.Repair()
		m.layout()
		m.clampSelections()
		model, noticeCmd := m.drainNotices()
		if reload {
			// The failure notice stays up until the reload lands; the
			// snapshot handler clears it.
			model.status = "reloading..."
			return model, model.fetchSnapshotCmd()
		}
		model.status = "saved"
		return model, noticeCmd

	case snapshotMsg:
		if msg.err != nil {
			m.status = "reload failed: " + msg.err.Error()
			return m, nil
		}
		if err := m.moves.ApplySnapshot(msg.snap); err != nil {
			m.status = "reload rejected: " + err.Error()
			return m, nil
		}
		m.guard.Repair()
		m.layout()
		m.clampSelections()
		m.status = "board reloaded"
		m.notice = ""
		return m, nil

	case noticeExpiredMsg:
		if msg.seq == m.noticeSeq {
			m.notice = ""
		}
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)

	case tea.MouseClickMsg:
		return m.handleMouseClick(msg)

	case tea.MouseMotionMsg:
		return m.handleMouseMotion(msg)

	case tea.MouseReleaseMsg:
		return m.handleMouseRelease(msg)

	case tea.MouseWheelMsg:
		return m.handleMouseWheel(msg)

	default:
		return m, nil
	}
}

// drainNotices moves buffered orchestrator notices into the visible notice
// slot and arms its expiry timer.
func (m Model) drainNotices() (Model, tea.Cmd) {
	msgs := m.notices.drain()
	if len(msgs) == 0 {
		return m, nil
	}
	m.notice = msgs[len(msgs)-1]
	m.noticeSeq++
	seq := m.noticeSeq
	return m, tea.Tick(noticeTTL, func(time.Time) tea.Msg {
		return noticeExpiredMsg{seq: seq}
	})
}

// fetchSnapshotCmd captures the board id on the update loop and fetches a
// fresh snapshot off it.
func (m Model) fetchSnapshotCmd() tea.Cmd {
	boardID := m.store.Board().ID
	moves := m.moves
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		snap, err := moves.FetchSnapshot(ctx, boardID)
		return snapshotMsg{snap: snap, err: err}
	}
}

// beginMove registers a drop intent and schedules its backend call.
func (m Model) beginMove(intent reorder.Intent) (Model, tea.Cmd) {
	mv, err := m.moves.Begin(intent)
	if err != nil {
		model, noticeCmd := m.drainNotices()
		if !errors.Is(err, mover.ErrMoveInFlight) {
			model.status = err.Error()
		}
		return model, noticeCmd
	}
	m.status = "saving..."
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), moveTimeout)
		defer cancel()
		return moveResolvedMsg{out: mv.Execute(ctx)}
	}
}

// handleKey routes key presses for the board and the task-info overlay.
func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if m.infoTaskID != "" {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.closeOverlay), key.Matches(msg, m.keys.taskInfo):
			m.infoTaskID = ""
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.reload):
		if m.gest.Active() {
			m.gest.TouchCancel()
			m.guard.Repair()
		}
		m.status = "loading..."
		return m, m.loadData

	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.moveLeft):
		m.selectedColumn--
		m.clampSelections()
		return m, nil

	case key.Matches(msg, m.keys.moveRight):
		m.selectedColumn++
		m.clampSelections()
		return m, nil

	case key.Matches(msg, m.keys.moveUp):
		m.selectedTask--
		m.clampSelections()
		return m, nil

	case key.Matches(msg, m.keys.moveDown):
		m.selectedTask++
		m.clampSelections()
		return m, nil

	case key.Matches(msg, m.keys.taskInfo):
		if task, ok := m.selectedTaskEntity(); ok {
			m.infoTaskID = task.ID
		}
		return m, nil

	case key.Matches(msg, m.keys.moveTaskRight):
		task, ok := m.selectedTaskEntity()
		if !ok {
			return m, nil
		}
		intent, ok, err := m.taskCtl.MoveTaskRight(task.ID)
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		if !ok {
			m.status = "already in the last section"
			return m, nil
		}
		return m.beginMove(intent)

	case key.Matches(msg, m.keys.moveTaskLeft):
		task, ok := m.selectedTaskEntity()
		if !ok {
			return m, nil
		}
		board := m.store.Board()
		idx := board.SectionIndex(task.SectionID)
		if idx <= 0 {
			m.status = "already in the first section"
			return m, nil
		}
		return m.beginMove(reorder.Intent{
			Kind:     reorder.KindTask,
			EntityID: task.ID,
			SourceID: task.SectionID,
			TargetID: board.SectionOrder[idx-1],
			Index:    0,
		})
	}
	return m, nil
}

// handleMouseClick starts a drag when the press lands on a drag handle, and
// always moves keyboard selection under the cursor.
func (m Model) handleMouseClick(msg tea.MouseClickMsg) (tea.Model, tea.Cmd) {
	if msg.Button != tea.MouseLeft {
		return m, nil
	}
	if m.infoTaskID != "" {
		m.infoTaskID = ""
		return m, nil
	}
	m.selectAt(msg.X, msg.Y)

	started, err := m.gest.TouchStart(msg.X, msg.Y)
	if err != nil && !errors.Is(err, reorder.ErrAlreadyDragging) {
		m.log.Warn("drag start rejected", "err", err)
	}
	if started {
		m.status = "dragging"
		m.layout()
	}
	return m, nil
}

// handleMouseMotion forwards hover positions into the active drag.
func (m Model) handleMouseMotion(msg tea.MouseMotionMsg) (tea.Model, tea.Cmd) {
	if !m.gest.Active() {
		return m, nil
	}
	if err := m.gest.TouchMove(msg.X, msg.Y); err != nil {
		m.log.Warn("drag hover failed", "err", err)
	}
	m.layout()
	return m, nil
}

// handleMouseRelease ends the drag: consistency repair always runs, and a
// changed position becomes a move intent for the orchestrator.
func (m Model) handleMouseRelease(msg tea.MouseReleaseMsg) (tea.Model, tea.Cmd) {
	if !m.gest.Active() {
		return m, nil
	}
	intent, ok, err := m.gest.TouchEnd(msg.X, msg.Y)
	m.guard.Repair()
	m.layout()
	m.clampSelections()
	if err != nil {
		if !errors.Is(err, reorder.ErrNotDragging) {
			m.status = err.Error()
		}
		return m, nil
	}
	if !ok {
		m.status = "ready"
		return m, nil
	}
	return m.beginMove(intent)
}

// handleMouseWheel scrolls task selection; it is suppressed during drags so
// wheel input cannot shift geometry mid-gesture.
func (m Model) handleMouseWheel(msg tea.MouseWheelMsg) (tea.Model, tea.Cmd) {
	if m.gest.ScrollSuppressed() || m.infoTaskID != "" {
		return m, nil
	}
	switch msg.Button {
	case tea.MouseWheelUp:
		m.selectedTask--
	case tea.MouseWheelDown:
		m.selectedTask++
	}
	m.clampSelections()
	return m, nil
}

// selectAt moves keyboard selection to the entity under the cursor.
func (m *Model) selectAt(x, y int) {
	board := m.store.Board()
	if card, col, ok := m.surf.CardAt(x, y); ok {
		if idx := board.SectionIndex(col.ID); idx >= 0 {
			m.selectedColumn = idx
		}
		if idx := slices.Index(m.store.TaskOrderOf(col.ID), card.ID); idx >= 0 {
			m.selectedTask = idx
		}
		return
	}
	if col, ok := m.surf.ColumnAt(x, y); ok && col.Kind != surface.KindSentinel {
		if idx := board.SectionIndex(col.ID); idx >= 0 {
			m.selectedColumn = idx
			m.selectedTask = 0
		}
	}
}

// clampSelections clamps selections.
func (m *Model) clampSelections() {
	sections := m.store.SectionsInOrder()
	if len(sections) == 0 {
		m.selectedColumn = 0
		m.selectedTask = 0
		return
	}
	m.selectedColumn = clamp(m.selectedColumn, 0, len(sections)-1)
	tasks := m.store.TasksOf(sections[m.selectedColumn].ID)
	if len(tasks) == 0 {
		m.selectedTask = 0
		return
	}
	m.selectedTask = clamp(m.selectedTask, 0, len(tasks)-1)
}

// selectedSection returns the keyboard-selected section.
func (m Model) selectedSection() (domain.Section, bool) {
	sections := m.store.SectionsInOrder()
	if len(sections) == 0 {
		return domain.Section{}, false
	}
	return sections[clamp(m.selectedColumn, 0, len(sections)-1)], true
}

// selectedTaskEntity returns the keyboard-selected task.
func (m Model) selectedTaskEntity() (domain.Task, bool) {
	section, ok := m.selectedSection()
	if !ok {
		return domain.Task{}, false
	}
	tasks := m.store.TasksOf(section.ID)
	if len(tasks) == 0 {
		return domain.Task{}, false
	}
	return tasks[clamp(m.selectedTask, 0, len(tasks)-1)], true
}

// columnWidth computes the per-column cell width for the current terminal.
func (m Model) columnWidth() int {
	count := len(m.store.Board().SectionOrder) + 1 // trailing add tile
	if count < 2 {
		count = 2
	}
	w := minColWidth
	if m.width > 0 {
		candidate := (m.width - (count-1)*columnGap) / count
		if candidate > w {
			w = candidate
		}
	}
	if w > maxColWidth {
		w = maxColWidth
	}
	return w
}

// columnHeight computes the column body height in lines.
func (m Model) columnHeight() int {
	h := m.height - boardTop - 3 // status line + help line + spacer
	if h < minBoardLines {
		h = minBoardLines
	}
	return h
}

// layout assigns cell rectangles to every surface node, walking the current
// visual order. The renderer paints the same walk, so hit testing and the
// insertion-point scans see exactly what is on screen.
func (m Model) layout() {
	colW := m.columnWidth()
	colH := m.columnHeight()
	x := 0
	for _, col := range m.surf.Columns() {
		col.Rect = surface.Rect{X: x, Y: boardTop, W: colW, H: colH}
		y := boardTop + cardTopRows
		for _, card := range col.Children() {
			card.Rect = surface.Rect{X: x + 1, Y: y, W: colW - 2, H: cardRows}
			y += cardRows
		}
		x += colW + columnGap
	}
}

// View handles view.
func (m Model) View() tea.View {
	if m.err != nil {
		v := tea.NewView("error: " + m.err.Error() + "\n\npress r to retry • q quit\n")
		v.MouseMode = tea.MouseModeCellMotion
		v.AltScreen = true
		return v
	}
	if !m.ready || !m.store.Loaded() {
		v := tea.NewView("loading...")
		v.MouseMode = tea.MouseModeCellMotion
		v.AltScreen = true
		return v
	}

	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dim)
	noticeStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))

	header := titleStyle.Render("flytt") + "  " + m.store.Board().Name
	if m.gest.Active() {
		header += statusStyle.Render("  [dragging]")
	}

	board := m.renderBoard(accent, muted, dim)

	footer := statusStyle.Render(m.status)
	if m.notice != "" {
		footer = noticeStyle.Render(m.notice)
	}
	helpBubble := m.help
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().Foreground(muted).Padding(0, 1).Render(helpBubble.View(m.keys))

	content := header + "\n\n" + board
	if m.height > 0 {
		reserved := 2 // footer + help
		content = fitLines(content, max(1, m.height-reserved))
	}
	content += "\n" + footer + "\n" + helpLine

	if m.infoTaskID != "" {
		if overlay := m.renderTaskInfo(accent, muted); overlay != "" {
			content = lipgloss.Place(max(1, m.width), max(1, m.height), lipgloss.Center, lipgloss.Center, overlay)
		}
	}

	v := tea.NewView(content)
	v.MouseMode = tea.MouseModeCellMotion
	v.AltScreen = true
	return v
}

// renderBoard paints columns in surface order so live drag feedback shows.
func (m Model) renderBoard(accent, muted, dim color.Color) string {
	colW := m.columnWidth()
	colH := m.columnHeight()

	colTitle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	dimStyle := lipgloss.NewStyle().Foreground(dim)
	mutedStyle := lipgloss.NewStyle().Foreground(muted)
	dragStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	selectedStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))

	selSectionID := ""
	selTaskID := ""
	if section, ok := m.selectedSection(); ok {
		selSectionID = section.ID
	}
	if task, ok := m.selectedTaskEntity(); ok {
		selTaskID = task.ID
	}

	blocks := make([]string, 0, len(m.surf.Columns())*2)
	for i, col := range m.surf.Columns() {
		if i > 0 {
			blocks = append(blocks, strings.Repeat(" \n", colH-1)+" ")
		}
		if col.Kind == surface.KindSentinel {
			tile := dimStyle.Render("+ new section")
			blocks = append(blocks, fitLines(padBlock(tile, colW), colH))
			continue
		}

		section, ok := m.store.Section(col.ID)
		if !ok {
			blocks = append(blocks, fitLines(padBlock("", colW), colH))
			continue
		}
		headerText := fmt.Sprintf("%s (%d)", section.Name, len(col.ChildIDs()))
		headerLine := colTitle.Render(truncate(headerText, colW))
		if col.Dragging {
			headerLine = dragStyle.Render(truncate("≡ "+headerText, colW))
		} else if section.ID == selSectionID {
			headerLine = selectedStyle.Render(truncate(headerText, colW))
		}

		lines := []string{headerLine, ""}
		if len(col.Children()) == 0 {
			lines = append(lines, dimStyle.Render(" (empty)"))
		}
		for _, card := range col.Children() {
			task, found := m.store.Task(card.ID)
			if !found {
				continue
			}
			prefix := "  "
			style := lipgloss.NewStyle()
			switch {
			case card.Dragging:
				prefix = "≡ "
				style = dragStyle
			case task.ID == selTaskID && section.ID == selSectionID:
				prefix = "│ "
				style = selectedStyle
			}
			lines = append(lines, style.Render(truncate(prefix+task.Title, colW-1)))
			lines = append(lines, mutedStyle.Render(truncate("  "+taskSecondary(task), colW-1)))
		}
		block := strings.Join(lines, "\n")
		blocks = append(blocks, fitLines(padBlock(block, colW), colH))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, blocks...)
}

// renderTaskInfo paints the task detail overlay with a markdown description.
func (m Model) renderTaskInfo(accent, muted color.Color) string {
	task, ok := m.store.Task(m.infoTaskID)
	if !ok {
		return ""
	}
	section, _ := m.store.Section(task.SectionID)

	boxWidth := clamp(m.width-8, 32, 78)
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	metaStyle := lipgloss.NewStyle().Foreground(muted)

	lines := []string{
		titleStyle.Render(truncate(task.Title, boxWidth-4)),
		metaStyle.Render(taskSecondary(task) + "  in " + section.Name),
	}
	if body := m.md.render(task.Description, boxWidth-4); body != "" {
		lines = append(lines, "", body)
	}
	lines = append(lines, "", metaStyle.Render("esc to close"))

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1).
		Width(boxWidth).
		Render(strings.Join(lines, "\n"))
}

// taskSecondary builds the one-line card metadata: priority plus due date.
func taskSecondary(task domain.Task) string {
	parts := []string{string(task.Priority)}
	if task.DueAt != nil {
		parts = append(parts, "due "+task.DueAt.Local().Format("01-02"))
	}
	return strings.Join(parts, " · ")
}

// padBlock pads every line of a block to exactly width cells.
func padBlock(block string, width int) string {
	style := lipgloss.NewStyle().Width(width).MaxWidth(width)
	lines := strings.Split(block, "\n")
	for i, line := range lines {
		lines[i] = style.Render(line)
	}
	return strings.Join(lines, "\n")
}

// truncate shortens a string to the given display width with an ellipsis.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(runes[:width-1]) + "…"
}

// clamp clamps the requested operation.
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// max returns the larger of the provided values.
func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// fitLines fits lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}
