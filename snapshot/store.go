package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"f0oster/userreport/membership"
)

const fileSuffix = "_snapshot.json"

// ErrNoSnapshot is returned by Latest when the directory holds no snapshot.
var ErrNoSnapshot = errors.New("no snapshot found")

// Store keeps one snapshot file per calendar day in a directory.
type Store struct {
	dir string
	log *slog.Logger
}

func NewStore(dir string, logger *slog.Logger) *Store {
	return &Store{
		dir: dir,
		log: logger.With("component", "snapshot-store"),
	}
}

func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file a snapshot captured on the same UTC day as snap
// is stored in.
func (s *Store) Path(snap *Snapshot) string {
	return filepath.Join(s.dir, snap.Date.UTC().Format("20060102")+fileSuffix)
}

// Latest returns the snapshot with the greatest embedded date. Any file
// that fails to parse aborts the scan.
func (s *Store) Latest() (*Snapshot, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot directory %s: %w", s.dir, err)
	}

	var (
		latestPath string
		latestDate membership.Timestamp
	)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileSuffix) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())

		date, err := readDate(path)
		if err != nil {
			return nil, err
		}
		if latestPath == "" || date.After(latestDate.Time) {
			latestPath = path
			latestDate = date
		}
	}

	if latestPath == "" {
		return nil, ErrNoSnapshot
	}

	s.log.Info("found latest snapshot", slog.String("file", latestPath), slog.String("date", latestDate.String()))
	return Load(latestPath)
}

// Save writes snap as indented JSON, replacing any snapshot already stored
// for the same day. It returns the written path.
func (s *Store) Save(snap *Snapshot) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot directory %s: %w", s.dir, err)
	}

	data, err := json.MarshalIndent(snap, "", " ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	path := s.Path(snap)
	tmp, err := os.CreateTemp(s.dir, ".snapshot-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp snapshot file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("move snapshot into place: %w", err)
	}

	s.log.Info("snapshot written", slog.String("file", path), slog.Int("users", len(snap.Users)))
	return path, nil
}

// Load decodes a snapshot file. Unknown membership states and malformed
// dates are rejected here.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	if snap.Date.IsZero() {
		return nil, fmt.Errorf("parse snapshot %s: missing date", path)
	}
	if snap.Users == nil {
		return nil, fmt.Errorf("parse snapshot %s: missing users", path)
	}
	for name, user := range snap.Users {
		if user == nil {
			return nil, fmt.Errorf("parse snapshot %s: user %s is null", path, name)
		}
	}
	return &snap, nil
}

func readDate(path string) (membership.Timestamp, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return membership.Timestamp{}, fmt.Errorf("read snapshot %s: %w", path, err)
	}

	var header struct {
		Date *membership.Timestamp `json:"date"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return membership.Timestamp{}, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	if header.Date == nil {
		return membership.Timestamp{}, fmt.Errorf("parse snapshot %s: missing date", path)
	}
	return *header.Date, nil
}
