package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"toneprint/analyzer"
	"toneprint/audio"
	"toneprint/cue"
	"toneprint/log"
	"toneprint/machine"
	"toneprint/prefs"
)

// TUI message types
type levelMsg struct{ Level float64 }
type recordTickMsg time.Time
type analysisDoneMsg struct {
	Text   string
	ErrMsg string
	Lines  []string
}
type updateAvailableMsg struct{ Version string }
type selectFileMsg struct{ Path string } // from the -file flag
type tickMsg time.Time

var (
	tuiProgram *tea.Program
	tuiMu      sync.Mutex
)

func tuiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// Canned tone descriptions, shown without calling the analyzer so the
// result panel can be demoed offline.
var exampleDescriptions = [3]string{
	"Warm and gentle, with a soft mid-range timbre. Speaks slowly and reassuringly, with smooth pacing, light breathiness, and a calm, friendly intonation that rises slightly at the ends of phrases.",
	"Bright and energetic, slightly nasal, with quick pacing and crisp consonants. Projects enthusiasm through wide pitch swings and emphatic stress on key words.",
	"Deep and resonant, measured and deliberate. Low pitch with minimal variation, long pauses between sentences, and an authoritative, matter-of-fact delivery.",
}

type entryMode int

const (
	entryNone entryMode = iota
	entryPath
	entryKey
)

type appDeps struct {
	audioCtx audio.Context // nil when no capture backend is available
	device   *audio.DeviceInfo
	analyzer analyzer.Analyzer
	prefs    *prefs.Prefs
	format   string
}

type appModel struct {
	deps *appDeps
	st   machine.State

	rec *recorder
	mon *machine.SilenceMonitor

	width, height int
	frame         int
	level         float64
	peak          float64
	elapsed       float64
	warn          bool
	lines         []string // metric lines for the last analysis

	entering entryMode
	input    string
	notice   string

	updateVersion string
}

var (
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	tabActive     = lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("24")).Padding(0, 1)
	tabInactive   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Padding(0, 1)
	recStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	resultStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	metricStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	promptStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	analyzeFrames = []string{"|", "/", "-", "\\"}
)

func NewTUIProgram(deps *appDeps) *tea.Program {
	m := appModel{deps: deps, st: machine.New()}
	return tea.NewProgram(m, tea.WithAltScreen())
}

func tuiTick() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func recordTick() tea.Cmd {
	return tea.Tick(machine.TickInterval, func(t time.Time) tea.Msg {
		return recordTickMsg(t)
	})
}

func (m appModel) Init() tea.Cmd {
	return tuiTick()
}

// apply installs the next machine state and turns its effects into
// commands. All state transitions funnel through here.
func (m *appModel) apply(st machine.State, fx []machine.Effect) tea.Cmd {
	m.st = st
	var cmds []tea.Cmd
	for _, f := range fx {
		switch f := f.(type) {
		case machine.EffectStartCapture:
			cmds = append(cmds, m.startCapture())
		case machine.EffectReleaseMic:
			if m.rec != nil {
				m.rec.release()
				m.rec = nil
			}
			m.level, m.peak, m.warn = 0, 0, false
		case machine.EffectPlayCue:
			m.playCue(f.Kind)
		case machine.EffectAnalyze:
			cmds = append(cmds, analyzeCmd(m.deps, f.Data, f.MIME, m.sourceLabel()))
		}
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

func (m *appModel) sourceLabel() string {
	if m.st.RecordingHeld() {
		return "recording"
	}
	return "file"
}

func (m *appModel) startCapture() tea.Cmd {
	if m.deps.audioCtx == nil {
		st, fx := m.st.CaptureFailed(machine.FailureUnsupported)
		return m.apply(st, fx)
	}
	rec, err := startRecorder(m.deps.audioCtx, m.deps.device, m.deps.format, func(rms float64) {
		tuiSend(levelMsg{Level: rms})
	})
	if err != nil {
		log.Errorf("capture start error: %v", err)
		why := machine.FailureDevice
		if audio.IsPermissionDenied(err) {
			why = machine.FailurePermission
		}
		st, fx := m.st.CaptureFailed(why)
		return m.apply(st, fx)
	}
	m.rec = rec
	m.mon = machine.NewSilenceMonitor()
	m.level, m.peak, m.elapsed, m.warn = 0, 0, 0, false
	log.Info("recording_device: " + rec.deviceName())
	return recordTick()
}

func (m *appModel) playCue(kind machine.CueKind) {
	if !m.deps.prefs.AudioFeedback {
		return
	}
	switch kind {
	case machine.CueSuccess:
		cue.Play(cue.Success)
	case machine.CueError:
		cue.Play(cue.Error)
	}
}

func analyzeCmd(deps *appDeps, data []byte, mimeType, source string) tea.Cmd {
	key := deps.prefs.ResolveAPIKey()
	anlz := deps.analyzer
	return func() tea.Msg {
		start := time.Now()
		res, err := anlz.Analyze(context.Background(), analyzer.Request{
			Data:   data,
			MIME:   mimeType,
			APIKey: key,
		})
		if err != nil {
			log.Errorf("analysis error: %s", analyzer.Detail(err))
			return analysisDoneMsg{ErrMsg: err.Error()}
		}

		metrics := log.Metrics{
			PayloadKB:   float64(len(data)) / 1024,
			TotalTimeMs: float64(time.Since(start).Milliseconds()),
		}
		connReused := false
		tlsProto := ""
		if nm := res.Metrics; nm != nil {
			metrics.DNSTimeMs = float64(nm.DNS.Milliseconds())
			metrics.TLSTimeMs = float64(nm.TLS.Milliseconds())
			metrics.TTFBMs = float64(nm.TTFB.Milliseconds())
			metrics.TotalTimeMs = float64(nm.Total.Milliseconds())
			connReused = nm.ConnReused
		}
		log.AnalysisMetrics(metrics, source, mimeType, anlz.Name(), connReused, tlsProto)

		return analysisDoneMsg{Text: res.Description, Lines: res.Lines}
	}
}

func (m *appModel) stopRecording() tea.Cmd {
	if m.rec == nil {
		st, fx := m.st.StopRecording(nil, "")
		return m.apply(st, fx)
	}
	data, mimeType, frames := m.rec.stop()
	log.Info(fmt.Sprintf("recording_stop frames=%d", frames))
	st, fx := m.st.StopRecording(data, mimeType)
	return m.apply(st, fx)
}

func (m *appModel) selectPath(path string) tea.Cmd {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Errorf("file read error: %v", err)
		m.notice = "Could not read that file."
		return nil
	}
	st, fx := m.st.SelectFile(filepath.Base(path), data, mimeFromPath(path))
	m.lines = nil
	m.notice = ""
	return m.apply(st, fx)
}

func (m *appModel) handleEntry(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.entering = entryNone
		m.input = ""
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
	case tea.KeyEnter:
		mode, text := m.entering, strings.TrimSpace(m.input)
		m.entering = entryNone
		m.input = ""
		switch mode {
		case entryPath:
			if text != "" {
				return m.selectPath(text)
			}
		case entryKey:
			if err := m.deps.prefs.SetAPIKey(text); err != nil {
				m.notice = err.Error()
			} else {
				m.notice = "API key saved."
			}
		}
	case tea.KeyRunes, tea.KeySpace:
		m.input += string(msg.Runes)
		if msg.Type == tea.KeySpace {
			m.input += " "
		}
	}
	return nil
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			if m.rec != nil {
				m.rec.release()
			}
			return m, tea.Quit
		}
		if m.entering != entryNone {
			cmd := m.handleEntry(msg)
			return m, cmd
		}
		return m.handleKey(msg)

	case tickMsg:
		m.frame++
		return m, tuiTick()

	case levelMsg:
		if m.st.Phase == machine.PhaseRecording {
			m.level = m.level*0.6 + msg.Level*0.4
			if msg.Level > m.peak {
				m.peak = msg.Level
			}
		}

	case recordTickMsg:
		if m.st.Phase != machine.PhaseRecording || m.rec == nil {
			return m, nil
		}
		m.elapsed = m.rec.elapsed()
		switch m.mon.Tick(m.rec.speechTick()) {
		case machine.SilenceWarn:
			log.Info("no_voice_warning")
			m.warn = true
			m.playCue(machine.CueError)
		case machine.SilenceWarnClear:
			m.warn = false
		case machine.SilenceRepeat:
			log.Info("silence_during_warning")
			m.playCue(machine.CueError)
		}
		return m, recordTick()

	case analysisDoneMsg:
		st, fx := m.st.AnalysisDone(msg.Text, msg.ErrMsg)
		cmd := m.apply(st, fx)
		if msg.ErrMsg == "" && m.st.Result != "" {
			m.lines = msg.Lines
			recordAnalysis(msg.Text)
			log.AnalysisText(msg.Text)
		}
		return m, cmd

	case updateAvailableMsg:
		m.updateVersion = msg.Version

	case selectFileMsg:
		return m, m.selectPath(msg.Path)
	}
	return m, nil
}

func (m appModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		if m.st.Phase == machine.PhaseRecording {
			return m, nil
		}
		if m.rec != nil {
			m.rec.release()
		}
		return m, tea.Quit

	case "tab":
		next := machine.TabRecord
		if m.st.Tab == machine.TabRecord {
			next = machine.TabUpload
		}
		st, fx := m.st.SwitchTab(next)
		return m, m.apply(st, fx)

	case "o":
		if m.st.Tab == machine.TabUpload && m.st.Phase == machine.PhaseIdle {
			m.entering = entryPath
			m.input = ""
		}
		return m, nil

	case " ":
		if m.st.Tab != machine.TabRecord {
			return m, nil
		}
		switch m.st.Phase {
		case machine.PhaseIdle:
			st, fx := m.st.StartRecording()
			return m, m.apply(st, fx)
		case machine.PhaseRecording:
			return m, m.stopRecording()
		}
		return m, nil

	case "a", "enter":
		st, fx := m.st.Analyze(m.deps.prefs.ResolveAPIKey())
		return m, m.apply(st, fx)

	case "c":
		m.lines = nil
		m.notice = ""
		st, fx := m.st.Clear()
		return m, m.apply(st, fx)

	case "y":
		if m.st.Result != "" {
			if err := clipboard.WriteAll(m.st.Result); err != nil {
				log.Errorf("clipboard copy error: %v", err)
				m.notice = "Could not copy to clipboard."
			} else {
				m.notice = "Copied to clipboard."
			}
		}
		return m, nil

	case "f":
		m.deps.prefs.AudioFeedback = !m.deps.prefs.AudioFeedback
		if err := m.deps.prefs.Save(); err != nil {
			log.Errorf("prefs save error: %v", err)
		}
		if m.deps.prefs.AudioFeedback {
			m.notice = "Audio feedback on."
		} else {
			m.notice = "Audio feedback off."
		}
		return m, nil

	case "k":
		if m.st.Phase == machine.PhaseIdle {
			m.entering = entryKey
			m.input = ""
		}
		return m, nil

	case "1", "2", "3":
		idx := int(msg.String()[0] - '1')
		m.lines = nil
		st, fx := m.st.ShowExample(exampleDescriptions[idx])
		return m, m.apply(st, fx)
	}
	return m, nil
}

func levelBar(level float64, width int) string {
	filled := int(level * 30 * float64(width))
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func (m appModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var b strings.Builder

	title := titleStyle.Render("toneprint " + version)
	if m.updateVersion != "" {
		title += dimStyle.Render("  (update available: " + m.updateVersion + ", run: toneprint update)")
	}
	b.WriteString(title + "\n\n")

	uploadTab := tabInactive.Render("Upload")
	recordTab := tabInactive.Render("Record")
	if m.st.Tab == machine.TabUpload {
		uploadTab = tabActive.Render("Upload")
	} else {
		recordTab = tabActive.Render("Record")
	}
	b.WriteString(uploadTab + " " + recordTab + "\n\n")

	switch m.st.Tab {
	case machine.TabUpload:
		m.viewUpload(&b)
	case machine.TabRecord:
		m.viewRecord(&b)
	}

	if m.st.Phase == machine.PhaseAnalyzing {
		spin := analyzeFrames[m.frame%len(analyzeFrames)]
		b.WriteString("\n" + warnStyle.Render(spin+" analyzing...") + "\n")
	}

	if m.st.Err != "" {
		b.WriteString("\n" + errStyle.Render(m.st.Err) + "\n")
	}

	if m.st.Result != "" {
		b.WriteString("\n" + dimStyle.Render("Tone description:") + "\n")
		wrapWidth := m.width - 4
		if wrapWidth < 20 {
			wrapWidth = 20
		}
		for _, line := range wrapText(m.st.Result, wrapWidth) {
			b.WriteString(resultStyle.Render(line) + "\n")
		}
		for _, line := range m.lines {
			b.WriteString(metricStyle.Render(line) + "\n")
		}
		b.WriteString(dimStyle.Render("press y to copy") + "\n")
	}

	if m.notice != "" {
		b.WriteString("\n" + noticeStyle.Render(m.notice) + "\n")
	}

	switch m.entering {
	case entryPath:
		b.WriteString("\n" + promptStyle.Render("file path: "+m.input+"▌") + "\n")
	case entryKey:
		b.WriteString("\n" + promptStyle.Render("API key: "+strings.Repeat("*", len(m.input))+"▌") + "\n")
	}

	b.WriteString("\n" + helpStyle.Render("tab switch · space record · a analyze · c clear · y copy · k api key · f feedback · 1-3 examples · q quit") + "\n")

	return b.String()
}

func (m appModel) viewUpload(b *strings.Builder) {
	if f, ok := m.st.Source.(machine.FileSource); ok {
		b.WriteString(fmt.Sprintf("file: %s (%.1f KB)\n", f.Name, float64(len(f.Data))/1024))
		b.WriteString(dimStyle.Render("press a to analyze, o to pick another file") + "\n")
		return
	}
	b.WriteString(dimStyle.Render("no file selected — press o and enter a path to an audio file") + "\n")
}

func (m appModel) viewRecord(b *strings.Builder) {
	switch m.st.Phase {
	case machine.PhaseRecording:
		b.WriteString(recStyle.Render(fmt.Sprintf("● REC %.1fs", m.elapsed)) + "\n")
		b.WriteString(levelBar(m.level, 30) + "\n")
		if m.warn {
			b.WriteString(warnStyle.Render("⚠ no voice detected") + "\n")
		}
		b.WriteString(dimStyle.Render("press space to stop") + "\n")
	default:
		if r, ok := m.st.Source.(machine.RecordingSource); ok {
			b.WriteString(fmt.Sprintf("clip recorded (%.1f KB)\n", float64(len(r.Data))/1024))
			b.WriteString(dimStyle.Render("press a to analyze, space to record again") + "\n")
			return
		}
		b.WriteString(dimStyle.Render("press space to start recording") + "\n")
	}
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	runes := []rune(text)
	for len(runes) > width {
		// Find last space within width
		splitAt := width
		for i := width; i > 0; i-- {
			if runes[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, string(runes[:splitAt]))
		runes = runes[splitAt:]
		for len(runes) > 0 && runes[0] == ' ' {
			runes = runes[1:]
		}
	}
	if len(runes) > 0 {
		lines = append(lines, string(runes))
	}
	return lines
}
