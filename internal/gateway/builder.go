// internal/gateway/builder.go
package gateway

import (
	"fmt"
	"log/slog"
	"time"

	cfg "github.com/fieldgate/fieldgate/internal/config"
	"github.com/fieldgate/fieldgate/internal/device"
	"github.com/fieldgate/fieldgate/internal/metric"
	"github.com/fieldgate/fieldgate/internal/sink"
	"github.com/fieldgate/fieldgate/internal/transport"
)

// Build constructs a gateway from validated, normalized configuration:
// the transport variant for the configured bus mode, the sink client,
// and one immutable device descriptor per configured device.
func Build(c *cfg.Config, logger *slog.Logger, metrics *metric.Metrics) (*Gateway, error) {
	tr, err := buildTransport(c.Bus)
	if err != nil {
		return nil, err
	}

	s, err := sink.NewInfluxDB(sink.Config{
		URL:      c.InfluxDB.URL,
		Database: c.InfluxDB.Database,
		Username: c.InfluxDB.Username,
		Password: c.InfluxDB.Password,
		Timeout:  time.Duration(c.InfluxDB.TimeoutMs) * time.Millisecond,
	})
	if err != nil {
		return nil, err
	}

	devices, err := buildDevices(c.Groups)
	if err != nil {
		return nil, err
	}

	return New(
		Config{RetryDelay: time.Duration(c.Gateway.RetryDelayMs) * time.Millisecond},
		tr, s, devices, logger, metrics,
	), nil
}

func buildTransport(bus cfg.BusConfig) (transport.Transport, error) {
	switch bus.Mode {
	case "tcp":
		return transport.NewTCP(transport.TCPConfig{
			Address: bus.TCP.Address,
			SlaveID: bus.TCP.SlaveID,
			Timeout: time.Duration(bus.TCP.TimeoutMs) * time.Millisecond,
		})
	case "serial":
		return transport.NewSerial(transport.SerialConfig{
			Device:   bus.Serial.Device,
			BaudRate: bus.Serial.BaudRate,
			DataBits: bus.Serial.DataBits,
			Parity:   bus.Serial.Parity,
			StopBits: bus.Serial.StopBits,
			SlaveID:  bus.Serial.SlaveID,
			Timeout:  time.Duration(bus.Serial.TimeoutMs) * time.Millisecond,
		})
	default:
		return nil, fmt.Errorf("gateway: unsupported bus mode %q", bus.Mode)
	}
}

func buildDevices(groups []cfg.GroupConfig) ([]*device.Device, error) {
	var devices []*device.Device

	for _, g := range groups {
		regs := make([]device.Register, 0, len(g.Registers))
		for _, r := range g.Registers {
			regs = append(regs, device.Register{Address: r.Address, Name: r.Name})
		}

		// One register map per group, shared read-only by its devices.
		rm, err := device.NewRegisterMap(regs)
		if err != nil {
			return nil, fmt.Errorf("gateway: group %q: %w", g.Name, err)
		}

		for _, d := range g.Devices {
			tags := make([]device.Tag, 0, len(d.Tags))
			for _, tag := range d.Tags {
				tags = append(tags, device.Tag{Key: tag.Key, Value: tag.Value})
			}

			dev, err := device.New(
				d.ID, g.Name,
				time.Duration(d.ScanIntervalMs)*time.Millisecond,
				tags, rm,
			)
			if err != nil {
				return nil, fmt.Errorf("gateway: %w", err)
			}
			devices = append(devices, dev)
		}
	}

	if len(devices) == 0 {
		return nil, fmt.Errorf("gateway: no devices configured")
	}
	return devices, nil
}
