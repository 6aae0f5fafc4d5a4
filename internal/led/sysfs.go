package led

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

const sysfsLEDPath = "/sys/class/leds"

// sysfs drives a kernel LED through /sys/class/leds/<name>. Blinking uses
// the timer trigger.
type sysfs struct {
	dir    string
	period time.Duration
	mu     sync.Mutex
}

func newSysfs(root, name string, period time.Duration) (*sysfs, error) {
	dir := filepath.Join(root, name)
	if _, err := os.Stat(filepath.Join(dir, "brightness")); err != nil {
		return nil, fmt.Errorf("LED %q not found: %w", name, err)
	}
	return &sysfs{dir: dir, period: period}, nil
}

func (s *sysfs) write(file, value string) error {
	if err := os.WriteFile(filepath.Join(s.dir, file), []byte(value), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", file, err)
	}
	return nil
}

func (s *sysfs) Set(p Pattern) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch p {
	case PatternOff:
		if err := s.write("trigger", "none"); err != nil {
			return err
		}
		return s.write("brightness", "0")
	case PatternSolid:
		if err := s.write("trigger", "none"); err != nil {
			return err
		}
		return s.write("brightness", "1")
	case PatternBlink:
		if err := s.write("trigger", "timer"); err != nil {
			return err
		}
		half := strconv.FormatInt(int64(s.period/2/time.Millisecond), 10)
		// delay files appear once the timer trigger is active
		if err := s.write("delay_on", half); err != nil {
			return err
		}
		return s.write("delay_off", half)
	default:
		return fmt.Errorf("unknown pattern %v", p)
	}
}

func (s *sysfs) Close() error {
	return s.Set(PatternOff)
}
