// internal/device/device.go
package device

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Register pairs one bus address with its measurement name.
type Register struct {
	Address uint16
	Name    string
}

// RegisterMap is a bidirectional address<->name lookup.
// Built once from config, shared read-only by every poller of a group.
type RegisterMap struct {
	byAddr map[uint16]string
	byName map[string]uint16
	addrs  []uint16
}

// NewRegisterMap builds the map and rejects duplicate addresses or names.
func NewRegisterMap(regs []Register) (*RegisterMap, error) {
	if len(regs) == 0 {
		return nil, errors.New("device: register map requires at least one register")
	}

	m := &RegisterMap{
		byAddr: make(map[uint16]string, len(regs)),
		byName: make(map[string]uint16, len(regs)),
		addrs:  make([]uint16, 0, len(regs)),
	}

	for _, r := range regs {
		if r.Name == "" {
			return nil, fmt.Errorf("device: register %d has no name", r.Address)
		}
		if prev, ok := m.byAddr[r.Address]; ok {
			return nil, fmt.Errorf("device: duplicate register address %d (names %q and %q)", r.Address, prev, r.Name)
		}
		if prev, ok := m.byName[r.Name]; ok {
			return nil, fmt.Errorf("device: duplicate register name %q (addresses %d and %d)", r.Name, prev, r.Address)
		}
		m.byAddr[r.Address] = r.Name
		m.byName[r.Name] = r.Address
		m.addrs = append(m.addrs, r.Address)
	}

	sort.Slice(m.addrs, func(i, j int) bool { return m.addrs[i] < m.addrs[j] })
	return m, nil
}

// Name returns the measurement name for an address.
func (m *RegisterMap) Name(addr uint16) (string, bool) {
	name, ok := m.byAddr[addr]
	return name, ok
}

// Address returns the bus address for a measurement name.
func (m *RegisterMap) Address(name string) (uint16, bool) {
	addr, ok := m.byName[name]
	return addr, ok
}

// Addresses returns the register addresses in ascending order.
// The returned slice is a copy; callers may not mutate shared state.
func (m *RegisterMap) Addresses() []uint16 {
	out := make([]uint16, len(m.addrs))
	copy(out, m.addrs)
	return out
}

// Len reports the number of registers.
func (m *RegisterMap) Len() int { return len(m.addrs) }

// Tag is one user-configured tag pair. Order is preserved from config.
type Tag struct {
	Key   string
	Value string
}

// Device is an immutable descriptor of one polled field device.
type Device struct {
	ID           string
	Group        string
	ScanInterval time.Duration
	Tags         []Tag
	Registers    *RegisterMap
}

// New validates and constructs a device descriptor.
func New(id, group string, interval time.Duration, tags []Tag, regs *RegisterMap) (*Device, error) {
	if id == "" {
		return nil, errors.New("device: id required")
	}
	if group == "" {
		return nil, fmt.Errorf("device %q: group required", id)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("device %q: scan interval must be > 0", id)
	}
	if regs == nil || regs.Len() == 0 {
		return nil, fmt.Errorf("device %q: register map required", id)
	}
	return &Device{
		ID:           id,
		Group:        group,
		ScanInterval: interval,
		Tags:         tags,
		Registers:    regs,
	}, nil
}

// Reading is one sampled register value. Ephemeral, produced per poll cycle.
type Reading struct {
	Address   uint16
	Value     uint16
	Timestamp int64 // unix seconds
}
