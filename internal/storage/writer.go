package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// RotatingFile is an append-only log file that rolls over at local midnight
// once every Days days. Rolled files get a .YYYYMMDD suffix.
type RotatingFile struct {
	Dir  string
	Name string
	Days int

	// Now is used for rotation decisions. Defaults to time.Now.
	Now func() time.Time

	mu       sync.Mutex
	f        *os.File
	rollover time.Time
}

// OpenRotatingFile creates dir if needed and opens dir/name for appending.
func OpenRotatingFile(dir, name string, days int) (*RotatingFile, error) {
	rf := &RotatingFile{Dir: dir, Name: name, Days: days}
	if err := rf.open(); err != nil {
		return nil, err
	}
	return rf, nil
}

func (rf *RotatingFile) Path() string {
	return filepath.Join(rf.Dir, rf.Name)
}

func (rf *RotatingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.f == nil {
		if err := rf.open(); err != nil {
			return 0, err
		}
	}
	if !rf.now().Before(rf.rollover) {
		if err := rf.rotate(); err != nil {
			return 0, err
		}
	}
	return rf.f.Write(p)
}

func (rf *RotatingFile) Close() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	if rf.f == nil {
		return nil
	}
	err := rf.f.Close()
	rf.f = nil
	return err
}

func (rf *RotatingFile) now() time.Time {
	if rf.Now != nil {
		return rf.Now()
	}
	return time.Now()
}

func (rf *RotatingFile) open() error {
	if err := os.MkdirAll(rf.Dir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(rf.Path(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	rf.f = f
	rf.rollover = nextRollover(rf.now(), rf.Days)
	return nil
}

func (rf *RotatingFile) rotate() error {
	if err := rf.f.Close(); err != nil {
		return fmt.Errorf("close log file: %w", err)
	}
	rf.f = nil

	suffix := rf.rollover.AddDate(0, 0, -1).Format("20060102")
	if err := os.Rename(rf.Path(), rf.Path()+"."+suffix); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("rotate log file: %w", err)
	}
	return rf.open()
}

// nextRollover is local midnight days days after t.
func nextRollover(t time.Time, days int) time.Time {
	if days < 1 {
		days = 1
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location()).AddDate(0, 0, days)
}
