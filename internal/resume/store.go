package resume

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	backupLayout = "20060102_150405"
	dateLayout   = "2006-01-02"
)

// Store persists the resume document at a fixed path.
type Store struct {
	path   string
	logger *zap.Logger
	now    func() time.Time
}

func NewStore(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{path: path, logger: logger, now: time.Now}
}

func (s *Store) Path() string {
	return s.path
}

// Load reads and decodes the document.
func (s *Store) Load() (*Resume, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &LoadError{Path: s.path, Cause: err}
	}

	res, err := Decode(data)
	if err != nil {
		return nil, &LoadError{Path: s.path, Cause: err}
	}

	s.logger.Debug("loaded resume",
		zap.String("path", s.path),
		zap.String("version", res.Version()),
		zap.Int("employers", len(res.Experience)),
	)
	return res, nil
}

// Save stamps meta.last_updated, backs up the current file and atomically
// replaces it with the encoded document. It returns the backup path, empty
// when there was no file to back up.
func (s *Store) Save(res *Resume) (string, error) {
	now := s.now()
	if err := res.SetLastUpdated(now.Format(dateLayout)); err != nil {
		return "", err
	}

	data, err := Encode(res)
	if err != nil {
		return "", fmt.Errorf("encode resume: %w", err)
	}

	backup, err := s.backup(now)
	if err != nil {
		return "", err
	}

	if err := writeAtomic(s.path, data); err != nil {
		return backup, err
	}

	s.logger.Info("saved resume", zap.String("path", s.path), zap.String("backup", backup))
	return backup, nil
}

// Backup copies the current file next to it without touching the original.
func (s *Store) Backup() (string, error) {
	return s.backup(s.now())
}

func (s *Store) backup(now time.Time) (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read resume for backup: %w", err)
	}

	dir := filepath.Dir(s.path)
	name := strings.TrimSuffix(filepath.Base(s.path), filepath.Ext(s.path))
	stamp := now.Format(backupLayout)

	for i := 0; ; i++ {
		candidate := fmt.Sprintf("%s_backup_%s.json", name, stamp)
		if i > 0 {
			candidate = fmt.Sprintf("%s_backup_%s_%d.json", name, stamp, i)
		}
		path := filepath.Join(dir, candidate)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create backup: %w", err)
		}

		if _, err := f.Write(data); err != nil {
			f.Close()
			return "", fmt.Errorf("write backup: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("close backup: %w", err)
		}

		s.logger.Info("backup created", zap.String("path", path))
		return path, nil
	}
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	mode := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// Decode parses a resume document.
func Decode(data []byte) (*Resume, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid JSON")
	}
	return decodeResume(gjson.ParseBytes(data))
}

// Encode renders the document with two-space indentation and without
// escaping HTML or non-ASCII characters.
func Encode(res *Resume) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
