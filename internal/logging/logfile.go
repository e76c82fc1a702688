package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FilePrefix starts every generated log file name.
const FilePrefix = "iotops-"

// LogConfig selects where and how a run logs.
type LogConfig struct {
	Format        string // human (default), text or json
	Level         string // DEBUG, INFO (default), WARN or ERROR
	Output        string // "" or "-" for stderr, "none", "auto" for a generated file in Dir, or a path
	Dir           string // directory for generated and relative log files
	RetentionDays int    // generated files older than this are removed; 0 keeps everything
}

// DefaultDir returns $XDG_STATE_HOME/iotops/logs, falling back to ~/.local/state.
func DefaultDir() string {
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "iotops", "logs")
		}
		base = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(base, "iotops", "logs")
}

// LogFile owns the destination of a run's log output.
type LogFile struct {
	Path   string // empty unless output goes to a file
	file   *os.File
	writer io.Writer
}

// NewLogFile opens the destination named by cfg.Output.
func NewLogFile(cfg *LogConfig) (*LogFile, error) {
	var path string
	switch out := strings.ToLower(cfg.Output); out {
	case "none":
		return &LogFile{writer: io.Discard}, nil
	case "", "-":
		return &LogFile{writer: os.Stderr}, nil
	case "auto":
		path = filepath.Join(cfg.Dir, GenerateLogFilename(time.Now().UTC()))
	default:
		path = cfg.Output
		if !filepath.IsAbs(path) && cfg.Dir != "" {
			path = filepath.Join(cfg.Dir, path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory %q: %w", filepath.Dir(path), err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %q: %w", path, err)
	}
	return &LogFile{Path: path, file: f, writer: f}, nil
}

// Writer returns the io.Writer for log output.
func (lf *LogFile) Writer() io.Writer {
	return lf.writer
}

// Close closes the log file if it was opened.
func (lf *LogFile) Close() error {
	if lf.file != nil {
		return lf.file.Close()
	}
	return nil
}

// Setup opens the destination, prunes old generated files and builds the logger.
// The caller closes the returned LogFile.
func Setup(cfg *LogConfig) (Logger, *LogFile, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	lf, err := NewLogFile(cfg)
	if err != nil {
		return nil, nil, err
	}
	if lf.Path != "" {
		_ = CleanupOldLogFiles(filepath.Dir(lf.Path), cfg.RetentionDays)
	}
	logger, err := NewWithWriter(cfg.Format, level, lf.Writer())
	if err != nil {
		lf.Close()
		return nil, nil, err
	}
	return logger, lf, nil
}

// GenerateLogFilename returns iotops-YYYYMMDD-HHMMSS-mmm.log for t in UTC.
func GenerateLogFilename(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s%s-%03d.log", FilePrefix, t.Format("20060102-150405"), t.Nanosecond()/int(time.Millisecond))
}

// CleanupOldLogFiles removes generated log files in dir older than retentionDays.
func CleanupOldLogFiles(dir string, retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading log directory %q: %w", dir, err)
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, FilePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		_ = os.Remove(filepath.Join(dir, name))
	}
	return nil
}
