package control

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gridsynth/ether-core/internal/engine"
	"github.com/pkg/term"
)

const serialBaud = 115200

// numEncoders is the §6 4-encoder device; encoder index 3 (the 4th) is the
// mode-toggle encoder and is never latchable.
const numEncoders = 4

// encoderKey identifies the accumulated normalized value an encoder has
// driven for one (slot, parameter) pair, since the encoder protocol carries
// only a relative delta.
type encoderKey struct {
	slot int
	id   engine.ParamID
}

// SerialController wraps pkg/term for the §6 USB-serial line protocol:
// "E<n>:<±delta>\n" encoder turns and "B<n>:PRESS\n"/"B<n>:RELEASE\n"
// button events, n in 1..4.
type SerialController struct {
	fd     *term.Term
	params ParamPort
	state  *ControlState
	log    *log.Logger

	lastPress [numEncoders]time.Time

	mu    sync.Mutex
	accum map[encoderKey]float64

	parseErrors uint64
	stopCh      chan struct{}
}

// NewSerialController opens device at 115200 8N1 raw mode. The caller must
// call Run on its own goroutine (the §5 UI/control domain) to start reading.
func NewSerialController(device string, params ParamPort, state *ControlState, logger *log.Logger) (*SerialController, error) {
	fd, err := term.Open(device, term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("control: opening serial device %s: %w", device, err)
	}
	if err := fd.SetSpeed(serialBaud); err != nil {
		return nil, fmt.Errorf("control: setting serial speed on %s: %w", device, err)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &SerialController{
		fd:     fd,
		params: params,
		state:  state,
		log:    logger,
		accum:  make(map[encoderKey]float64),
		stopCh: make(chan struct{}),
	}, nil
}

// Run reads newline-delimited events until Close is called or the device
// errs out. Intended to run on its own goroutine.
func (c *SerialController) Run() error {
	scanner := bufio.NewScanner(c.fd)
	for scanner.Scan() {
		select {
		case <-c.stopCh:
			return nil
		default:
		}
		c.handleLine(scanner.Text())
	}
	return scanner.Err()
}

// Close stops Run and releases the serial device.
func (c *SerialController) Close() error {
	close(c.stopCh)
	return c.fd.Close()
}

// ParseErrors reports the count of malformed incoming lines, for §7
// diagnostics.
func (c *SerialController) ParseErrors() uint64 { return c.parseErrors }

func (c *SerialController) handleLine(line string) {
	line = strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(line, "E"):
		c.handleEncoder(line)
	case strings.HasPrefix(line, "B"):
		c.handleButton(line)
	default:
		c.parseErrors++
	}
}

// handleEncoder parses "E<n>:<±delta>" and applies the delta. Turns of
// encoder 4 always move the menu. For encoders 0..2 the delta nudges the
// latched parameter if one is set, else the menu-selected parameter when
// edit mode is on, else it moves the menu.
func (c *SerialController) handleEncoder(line string) {
	n, delta, ok := parseEncoderLine(line)
	if !ok {
		c.parseErrors++
		return
	}
	if n < 0 || n >= numEncoders {
		c.parseErrors++
		return
	}

	if n == numEncoders-1 {
		// Encoder 4 turns navigate the menu regardless of edit mode.
		c.moveMenu(delta)
		return
	}

	latched := c.state.EncoderLatch[n].Load()
	slot := int(c.state.ActiveSlot.Load())

	if latched >= 0 {
		c.nudgeParam(slot, engine.ParamID(latched), delta)
		return
	}
	if c.state.EditMode.Load() {
		idx := c.state.MenuIndex.Load()
		if idx >= 0 && int(idx) < len(menuParams) {
			c.nudgeParam(slot, menuParams[idx], delta)
		}
		return
	}
	c.moveMenu(delta)
}

func (c *SerialController) moveMenu(delta int) {
	idx := int(c.state.MenuIndex.Load()) + delta
	n := len(menuParams)
	idx = ((idx % n) + n) % n
	c.state.MenuIndex.Store(int32(idx))
}

// nudgeParam steps the named parameter by delta/127 of full scale, clamped
// by router.Router.SetParameter itself.
func (c *SerialController) nudgeParam(slot int, id engine.ParamID, delta int) {
	step := float64(delta) / 127.0
	// The router holds the authoritative current value; the encoder only
	// knows a relative delta, so read-modify-write would require a getter
	// the Router doesn't expose for write-only atomics. Instead encoders
	// drive an accumulated normalized value tracked here per (slot, param).
	key := encoderKey{slot, id}
	c.mu.Lock()
	v := c.accum[key] + step
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	c.accum[key] = v
	c.mu.Unlock()
	c.params.SetParameter(slot, id, v)
}

// handleButton parses "B<n>:PRESS"/"B<n>:RELEASE". Only PRESS drives latch
// and mode-toggle logic; RELEASE is consumed silently.
func (c *SerialController) handleButton(line string) {
	n, down, ok := parseButtonLine(line)
	if !ok {
		c.parseErrors++
		return
	}
	if n < 0 || n >= numEncoders || !down {
		return
	}

	now := time.Now()
	doubleTap := now.Sub(c.lastPress[n]) <= doubleTapWindow
	c.lastPress[n] = now

	if n == numEncoders-1 {
		c.state.EditMode.Store(!c.state.EditMode.Load())
		return
	}

	if doubleTap {
		for i := range c.state.EncoderLatch {
			c.state.EncoderLatch[i].Store(-1)
		}
		return
	}
	c.state.EncoderLatch[n].Store(int32(menuParams[c.state.MenuIndex.Load()]))
}

// parseEncoderLine parses "E<n>:<±delta>" into (n-1, delta).
func parseEncoderLine(line string) (n int, delta int, ok bool) {
	body := strings.TrimPrefix(line, "E")
	parts := strings.SplitN(body, ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	idx, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	d, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return idx - 1, d, true
}

// parseButtonLine parses "B<n>:PRESS"/"B<n>:RELEASE" into (n-1, pressed).
func parseButtonLine(line string) (n int, pressed bool, ok bool) {
	body := strings.TrimPrefix(line, "B")
	parts := strings.SplitN(body, ":", 2)
	if len(parts) != 2 {
		return 0, false, false
	}
	idx, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false, false
	}
	switch parts[1] {
	case "PRESS":
		return idx - 1, true, true
	case "RELEASE":
		return idx - 1, false, true
	}
	return 0, false, false
}
