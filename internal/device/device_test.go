// internal/device/device_test.go
package device

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterMap_Lookup(t *testing.T) {
	m, err := NewRegisterMap([]Register{
		{Address: 40, Name: "temperature"},
		{Address: 10, Name: "pressure"},
		{Address: 20, Name: "flow"},
	})
	require.NoError(t, err)

	name, ok := m.Name(10)
	require.True(t, ok)
	assert.Equal(t, "pressure", name)

	addr, ok := m.Address("temperature")
	require.True(t, ok)
	assert.Equal(t, uint16(40), addr)

	_, ok = m.Name(99)
	assert.False(t, ok)

	assert.Equal(t, []uint16{10, 20, 40}, m.Addresses())
	assert.Equal(t, 3, m.Len())
}

func TestRegisterMap_Duplicates(t *testing.T) {
	_, err := NewRegisterMap([]Register{
		{Address: 1, Name: "a"},
		{Address: 1, Name: "b"},
	})
	require.Error(t, err)

	_, err = NewRegisterMap([]Register{
		{Address: 1, Name: "a"},
		{Address: 2, Name: "a"},
	})
	require.Error(t, err)
}

func TestRegisterMap_Empty(t *testing.T) {
	_, err := NewRegisterMap(nil)
	require.Error(t, err)
}

func TestRegisterMap_AddressesIsACopy(t *testing.T) {
	m, err := NewRegisterMap([]Register{{Address: 1, Name: "a"}, {Address: 2, Name: "b"}})
	require.NoError(t, err)

	addrs := m.Addresses()
	addrs[0] = 99
	assert.Equal(t, []uint16{1, 2}, m.Addresses())
}

func TestNewDevice_Validation(t *testing.T) {
	regs, err := NewRegisterMap([]Register{{Address: 1, Name: "a"}})
	require.NoError(t, err)

	_, err = New("", "g", time.Second, nil, regs)
	assert.Error(t, err)

	_, err = New("d1", "", time.Second, nil, regs)
	assert.Error(t, err)

	_, err = New("d1", "g", 0, nil, regs)
	assert.Error(t, err)

	_, err = New("d1", "g", time.Second, nil, nil)
	assert.Error(t, err)

	d, err := New("d1", "g", time.Second, []Tag{{Key: "site", Value: "plant-1"}}, regs)
	require.NoError(t, err)
	assert.Equal(t, "d1", d.ID)
	assert.Equal(t, time.Second, d.ScanInterval)
}
