// internal/lineproto/encoder.go
package lineproto

import (
	"strconv"
	"strings"

	"github.com/fieldgate/fieldgate/internal/device"
)

// Line-protocol escaping. Measurement names escape comma and space;
// tag keys and values additionally escape the equals sign.

var (
	measurementEscaper = strings.NewReplacer(",", `\,`, " ", `\ `)
	tagEscaper         = strings.NewReplacer(",", `\,`, " ", `\ `, "=", `\=`)
)

// EscapeMeasurement escapes a measurement name for line protocol.
func EscapeMeasurement(s string) string { return measurementEscaper.Replace(s) }

// EscapeTag escapes a tag key or tag value for line protocol.
func EscapeTag(s string) string { return tagEscaper.Replace(s) }

// EncodeLine renders one sample:
//
//	<measurement>[,<key>=<value>]* value=<value> <timestamp>\n
func EncodeLine(measurement string, tags []device.Tag, value uint16, ts int64) string {
	var b strings.Builder
	writeLine(&b, measurement, tags, value, ts)
	return b.String()
}

func writeLine(b *strings.Builder, measurement string, tags []device.Tag, value uint16, ts int64) {
	b.WriteString(EscapeMeasurement(measurement))
	for _, t := range tags {
		b.WriteByte(',')
		b.WriteString(EscapeTag(t.Key))
		b.WriteByte('=')
		b.WriteString(EscapeTag(t.Value))
	}
	b.WriteString(" value=")
	b.WriteString(strconv.FormatUint(uint64(value), 10))
	b.WriteByte(' ')
	b.WriteString(strconv.FormatInt(ts, 10))
	b.WriteByte('\n')
}

// EncodeReadings renders one line per reading for a device, concatenated
// into a single payload. The measurement name comes from the device's
// register map; readings whose address is unmapped are skipped (the map
// is the source of the address set, so this does not happen in practice).
//
// Tag order per line: group, device, address, then the device's
// user-configured tags in their declared order.
func EncodeReadings(dev *device.Device, readings []device.Reading) string {
	if len(readings) == 0 {
		return ""
	}

	tags := make([]device.Tag, 0, 3+len(dev.Tags))
	var b strings.Builder

	for _, r := range readings {
		name, ok := dev.Registers.Name(r.Address)
		if !ok {
			continue
		}

		tags = tags[:0]
		tags = append(tags,
			device.Tag{Key: "group", Value: dev.Group},
			device.Tag{Key: "device", Value: dev.ID},
			device.Tag{Key: "address", Value: strconv.FormatUint(uint64(r.Address), 10)},
		)
		tags = append(tags, dev.Tags...)

		writeLine(&b, name, tags, r.Value, r.Timestamp)
	}

	return b.String()
}
