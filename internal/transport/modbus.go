// internal/transport/modbus.go
package transport

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/goburrow/modbus"
)

// Modbus caps one holding-register read at 125 registers.
const maxSpanLen = 125

// registerReader is the slice of the goburrow client the session uses.
type registerReader interface {
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error)
}

// TCPConfig configures the Modbus TCP variant.
type TCPConfig struct {
	Address string
	SlaveID byte
	Timeout time.Duration
}

// TCP is the Modbus TCP transport.
type TCP struct {
	cfg TCPConfig
}

// NewTCP validates the config and returns a TCP transport.
func NewTCP(cfg TCPConfig) (*TCP, error) {
	if cfg.Address == "" {
		return nil, errors.New("transport tcp: address required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &TCP{cfg: cfg}, nil
}

func (t *TCP) Kind() string { return "tcp" }

// Connect dials the device and returns a live session.
func (t *TCP) Connect() (Conn, error) {
	handler := modbus.NewTCPClientHandler(t.cfg.Address)
	handler.Timeout = t.cfg.Timeout
	handler.SlaveId = t.cfg.SlaveID

	if err := handler.Connect(); err != nil {
		return nil, fmt.Errorf("transport tcp: connect %s: %w", t.cfg.Address, err)
	}

	return &session{client: modbus.NewClient(handler), closer: handler}, nil
}

// SerialConfig configures the Modbus RTU variant.
type SerialConfig struct {
	Device   string
	BaudRate int
	DataBits int
	Parity   string // "N", "E" or "O"
	StopBits int
	SlaveID  byte
	Timeout  time.Duration
}

// Serial is the Modbus RTU transport over a serial line.
type Serial struct {
	cfg SerialConfig
}

// NewSerial validates the config and returns a serial transport.
func NewSerial(cfg SerialConfig) (*Serial, error) {
	if cfg.Device == "" {
		return nil, errors.New("transport serial: device required")
	}
	switch cfg.Parity {
	case "N", "E", "O":
	case "":
		cfg.Parity = "N"
	default:
		return nil, fmt.Errorf("transport serial: invalid parity %q", cfg.Parity)
	}
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = 19200
	}
	if cfg.DataBits <= 0 {
		cfg.DataBits = 8
	}
	if cfg.StopBits <= 0 {
		cfg.StopBits = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Serial{cfg: cfg}, nil
}

func (t *Serial) Kind() string { return "serial" }

// Connect opens the serial port and returns a live session.
func (t *Serial) Connect() (Conn, error) {
	handler := modbus.NewRTUClientHandler(t.cfg.Device)
	handler.BaudRate = t.cfg.BaudRate
	handler.DataBits = t.cfg.DataBits
	handler.Parity = t.cfg.Parity
	handler.StopBits = t.cfg.StopBits
	handler.SlaveId = t.cfg.SlaveID
	handler.Timeout = t.cfg.Timeout

	if err := handler.Connect(); err != nil {
		return nil, fmt.Errorf("transport serial: open %s: %w", t.cfg.Device, err)
	}

	return &session{client: modbus.NewClient(handler), closer: handler}, nil
}

// session adapts a goburrow client to the Conn contract.
type session struct {
	client registerReader
	closer io.Closer
}

// Read fetches the requested addresses. Addresses must be sorted ascending;
// contiguous runs are coalesced into one wire exchange each. A failed
// exchange fails only its own span's addresses.
func (s *session) Read(addrs []uint16) ReadResult {
	res := ReadResult{
		Values: make(map[uint16]uint16, len(addrs)),
		Failed: make(map[uint16]error),
	}

	for _, span := range coalesce(addrs) {
		data, err := s.client.ReadHoldingRegisters(span.start, span.count)
		if err != nil {
			err = fmt.Errorf("transport: read %d+%d: %w", span.start, span.count, err)
			for i := uint16(0); i < span.count; i++ {
				res.Failed[span.start+i] = err
			}
			continue
		}
		if len(data) < int(span.count)*2 {
			err := fmt.Errorf("transport: read %d+%d: short response (%d bytes)", span.start, span.count, len(data))
			for i := uint16(0); i < span.count; i++ {
				res.Failed[span.start+i] = err
			}
			continue
		}
		for i := uint16(0); i < span.count; i++ {
			res.Values[span.start+i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
		}
	}

	return res
}

func (s *session) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

type span struct {
	start uint16
	count uint16
}

// coalesce folds sorted addresses into contiguous spans, each capped at
// the Modbus per-read register limit.
func coalesce(addrs []uint16) []span {
	var spans []span
	for _, a := range addrs {
		n := len(spans)
		if n > 0 {
			last := &spans[n-1]
			if a == last.start+last.count && last.count < maxSpanLen {
				last.count++
				continue
			}
		}
		spans = append(spans, span{start: a, count: 1})
	}
	return spans
}
