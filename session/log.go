package session

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Level extends slog's four levels with the three PDF Hunter adds to its
// JSONL schema: TRACE (below Debug), SUCCESS (between Info and Warn), and
// CRITICAL (above Error).
const (
	LevelTrace    slog.Level = slog.LevelDebug - 4
	LevelSuccess  slog.Level = slog.LevelInfo + 2
	LevelCritical slog.Level = slog.LevelError + 4
)

func levelName(l slog.Level) string {
	switch {
	case l <= LevelTrace:
		return "TRACE"
	case l < slog.LevelInfo:
		return "DEBUG"
	case l < LevelSuccess:
		return "INFO"
	case l < slog.LevelWarn:
		return "SUCCESS"
	case l < slog.LevelError:
		return "WARNING"
	case l < LevelCritical:
		return "ERROR"
	default:
		return "CRITICAL"
	}
}

// Escape neutralizes the four characters the log record schema and any
// template-rendering sink treat as markup: `{`, `}`, `<`, `>`. Every caller
// that interpolates LLM-generated text into a log message or a prompt
// template must run it through Escape first; this is a contract, not an
// optimization; unescaped LLM output can both corrupt JSONL parsing and
// break a colored terminal sink that interprets `<...>` as markup.
func Escape(s string) string {
	replacer := strings.NewReplacer(
		"{", "\\{",
		"}", "\\}",
		"<", "\\<",
		">", "\\>",
	)
	return replacer.Replace(s)
}

// Sink is the structured JSONL log sink bound to one session's logs
// directory. Every record carries agent, node, and session_id so that
// concurrent sessions never interleave in a way that defeats per-session
// filtering (B4).
type Sink struct {
	mu     sync.Mutex
	file   *os.File
	logger *slog.Logger
}

// Close flushes and closes the underlying log file.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// For returns a *slog.Logger pre-bound with agent and session_id, matching
// the log record schema's required `extra` fields. Callers add `node` and
// any event-specific fields per call via slog.Attr.
func (s *Sink) For(agent, sessionID string) *slog.Logger {
	return s.logger.With(
		slog.String("agent", agent),
		slog.String("session_id", sessionID),
	)
}

// Open creates a Sink writing JSONL records to logPath (typically
// session.LogPath(sess)). Log level names follow PDF Hunter's seven-level
// scheme (TRACE..CRITICAL) via a ReplaceAttr hook over slog's JSON handler.
func Open(logPath string) (*Sink, error) {
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	handler := slog.NewJSONHandler(f, &slog.HandlerOptions{
		Level: LevelTrace,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok {
					a.Value = slog.StringValue(levelName(lvl))
				}
			}
			return a
		},
	})

	return &Sink{file: f, logger: slog.New(handler)}, nil
}

// Event logs one structured event record under the given logger, escaping
// any string-typed attribute values per Escape.
func Event(ctx context.Context, logger *slog.Logger, level slog.Level, node, eventType, message string, attrs ...slog.Attr) {
	args := make([]slog.Attr, 0, len(attrs)+2)
	args = append(args, slog.String("node", node))
	if eventType != "" {
		args = append(args, slog.String("event_type", eventType))
	}
	for _, a := range attrs {
		if a.Value.Kind() == slog.KindString {
			a.Value = slog.StringValue(Escape(a.Value.String()))
		}
		args = append(args, a)
	}
	logger.LogAttrs(ctx, level, Escape(message), args...)
}
