package led

import (
	"fmt"
	"sync"
	"time"

	"github.com/stianeikeland/go-rpio/v4"
)

// pin is the subset of rpio.Pin the GPIO controller uses.
type pin interface {
	Output()
	Input()
	High()
	Low()
	Toggle()
}

// gpio drives an LED wired to a Raspberry Pi pin. Blinking runs in a
// goroutine toggling the pin.
type gpio struct {
	pin    pin
	period time.Duration
	close  func() error

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func newGPIO(bcm int, period time.Duration) (*gpio, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open GPIO: %w", err)
	}
	return newGPIOWithPin(rpio.Pin(bcm), period, rpio.Close), nil
}

func newGPIOWithPin(p pin, period time.Duration, closeFn func() error) *gpio {
	p.Output()
	p.Low()
	return &gpio{pin: p, period: period, close: closeFn}
}

func (g *gpio) stopBlink() {
	if g.stop == nil {
		return
	}
	close(g.stop)
	<-g.done
	g.stop, g.done = nil, nil
}

func (g *gpio) Set(p Pattern) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.stopBlink()
	switch p {
	case PatternOff:
		g.pin.Low()
	case PatternSolid:
		g.pin.High()
	case PatternBlink:
		g.stop = make(chan struct{})
		g.done = make(chan struct{})
		go g.blink(g.stop, g.done)
	default:
		return fmt.Errorf("unknown pattern %v", p)
	}
	return nil
}

func (g *gpio) blink(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(g.period / 2)
	defer ticker.Stop()

	g.pin.High()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			g.pin.Toggle()
		}
	}
}

func (g *gpio) Close() error {
	g.mu.Lock()
	g.stopBlink()
	g.pin.Low()
	g.pin.Input()
	g.mu.Unlock()

	if g.close != nil {
		return g.close()
	}
	return nil
}
