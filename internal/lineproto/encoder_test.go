// internal/lineproto/encoder_test.go
package lineproto

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldgate/fieldgate/internal/device"
)

func TestEncodeLine_Escaping(t *testing.T) {
	got := EncodeLine("a,b c", []device.Tag{{Key: "k=1", Value: "v 2"}}, 5, 100)
	assert.Equal(t, "a\\,b\\ c,k\\=1=v\\ 2 value=5 100\n", got)
}

func TestEncodeLine_NoTags(t *testing.T) {
	got := EncodeLine("temperature", nil, 421, 1700000000)
	assert.Equal(t, "temperature value=421 1700000000\n", got)
}

func TestEscapeTag(t *testing.T) {
	assert.Equal(t, `a\,b`, EscapeTag("a,b"))
	assert.Equal(t, `a\ b`, EscapeTag("a b"))
	assert.Equal(t, `a\=b`, EscapeTag("a=b"))
	assert.Equal(t, "plain", EscapeTag("plain"))
}

func TestEscapeMeasurement(t *testing.T) {
	assert.Equal(t, `a\,b`, EscapeMeasurement("a,b"))
	assert.Equal(t, `a\ b`, EscapeMeasurement("a b"))
	// equals is not escaped in measurement names
	assert.Equal(t, "a=b", EscapeMeasurement("a=b"))
}

func testDevice(t *testing.T) *device.Device {
	t.Helper()
	regs, err := device.NewRegisterMap([]device.Register{
		{Address: 10, Name: "temperature"},
		{Address: 11, Name: "humidity"},
	})
	require.NoError(t, err)
	dev, err := device.New("dev-1", "boiler", time.Second,
		[]device.Tag{{Key: "site", Value: "plant 1"}}, regs)
	require.NoError(t, err)
	return dev
}

func TestEncodeReadings_TagsAndOrder(t *testing.T) {
	dev := testDevice(t)

	payload := EncodeReadings(dev, []device.Reading{
		{Address: 10, Value: 215, Timestamp: 1000},
		{Address: 11, Value: 55, Timestamp: 1000},
	})

	lines := strings.Split(strings.TrimSuffix(payload, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "temperature,group=boiler,device=dev-1,address=10,site=plant\\ 1 value=215 1000", lines[0])
	assert.Equal(t, "humidity,group=boiler,device=dev-1,address=11,site=plant\\ 1 value=55 1000", lines[1])
}

func TestEncodeReadings_Empty(t *testing.T) {
	dev := testDevice(t)
	assert.Equal(t, "", EncodeReadings(dev, nil))
}

func TestEncodeReadings_SkipsUnmappedAddress(t *testing.T) {
	dev := testDevice(t)
	payload := EncodeReadings(dev, []device.Reading{
		{Address: 99, Value: 1, Timestamp: 1000},
		{Address: 10, Value: 2, Timestamp: 1000},
	})
	assert.Equal(t, 1, strings.Count(payload, "\n"))
	assert.Contains(t, payload, "temperature")
}
