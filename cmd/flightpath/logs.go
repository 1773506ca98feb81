package main

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rivo/tview"
)

// LogLevel represents the severity of a log message
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

// LogManager keeps recent log records for the log pane.
// It is the text mirror of the structured logger: every record written to
// the log file also arrives here through Write.
type LogManager struct {
	textView *tview.TextView

	messages    []LogMessage
	maxMessages int

	// mu protects messages; the logger may write from any goroutine
	mu sync.Mutex

	autoScroll bool
}

// LogMessage represents a single log entry
type LogMessage struct {
	Time    time.Time
	Level   LogLevel
	Message string
}

// NewLogManager creates a new log manager
func NewLogManager(maxMessages int) *LogManager {
	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetMaxLines(maxMessages)

	textView.SetBorder(true).SetTitle(" Logs ")

	return &LogManager{
		textView:    textView,
		messages:    make([]LogMessage, 0, maxMessages),
		maxMessages: maxMessages,
		autoScroll:  true,
	}
}

// GetView returns the tview component
func (lm *LogManager) GetView() tview.Primitive {
	return lm.textView
}

// Write accepts slog text records, one per call, as produced by
// slog.TextHandler with the time attribute removed.
func (lm *LogManager) Write(p []byte) (int, error) {
	for _, line := range bytes.Split(bytes.TrimRight(p, "\n"), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		level, msg := splitRecord(string(line))
		lm.AddLog(level, "%s", msg)
	}
	return len(p), nil
}

// splitRecord pulls the level out of a `level=WARN msg="..." k=v` record
// and returns the message followed by its attributes.
func splitRecord(line string) (LogLevel, string) {
	const prefix = "level="
	if !strings.HasPrefix(line, prefix) {
		return LogLevelInfo, line
	}
	lvl, rest, _ := strings.Cut(line[len(prefix):], " ")
	rest = strings.TrimPrefix(rest, "msg=")

	msg, attrs := rest, ""
	if strings.HasPrefix(rest, `"`) {
		if q, err := strconv.QuotedPrefix(rest); err == nil {
			msg, _ = strconv.Unquote(q)
			attrs = rest[len(q):]
		}
	} else {
		msg, attrs, _ = strings.Cut(rest, " ")
	}

	// every record carries the app name; the pane does not need it
	attrs = strings.TrimSpace(strings.Replace(" "+attrs, " app="+appName, "", 1))
	if attrs != "" {
		msg += " " + attrs
	}

	switch LogLevel(lvl) {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return LogLevel(lvl), msg
	default:
		return LogLevelInfo, msg
	}
}

// AddLog adds a log message with the specified level
func (lm *LogManager) AddLog(level LogLevel, format string, args ...interface{}) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	lm.messages = append(lm.messages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: fmt.Sprintf(format, args...),
	})

	if len(lm.messages) > lm.maxMessages {
		lm.messages = lm.messages[len(lm.messages)-lm.maxMessages:]
	}

	lm.refresh()
}

// Messages returns a copy of the retained messages.
func (lm *LogManager) Messages() []LogMessage {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return append([]LogMessage(nil), lm.messages...)
}

// refresh updates the text view with current messages
func (lm *LogManager) refresh() {
	lm.textView.Clear()

	for _, msg := range lm.messages {
		color := colorForLevel(msg.Level)
		levelStr := fmt.Sprintf("[%s]%-5s[-]", color, msg.Level)
		timeStr := msg.Time.Format("15:04:05")

		// message text may contain brackets from the telemetry line
		fmt.Fprintf(lm.textView, "[gray]%s[-] %s %s\n", timeStr, levelStr, tview.Escape(msg.Message))
	}

	if lm.autoScroll {
		lm.textView.ScrollToEnd()
	}
}

// colorForLevel returns the tview color tag for a log level
func colorForLevel(level LogLevel) string {
	switch level {
	case LogLevelDebug:
		return "gray"
	case LogLevelInfo:
		return "white"
	case LogLevelWarn:
		return "yellow"
	case LogLevelError:
		return "red"
	default:
		return "white"
	}
}

// Clear removes all log messages
func (lm *LogManager) Clear() {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	lm.messages = make([]LogMessage, 0, lm.maxMessages)
	lm.textView.Clear()
}
