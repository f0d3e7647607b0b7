// Package onewire reads DS18B20 temperature sensors through the sysfs
// interface of the Linux w1 kernel driver.
package onewire

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
)

// FamilyPrefixDS18B20 is the device name prefix of the DS18B20 family.
const FamilyPrefixDS18B20 = "28-"

const slaveFileName = "w1_slave"

// Errors returned when parsing sensor data.
var (
	ErrNoTemperatureLine  = errors.New("temperature data not found")
	ErrNoTemperatureValue = errors.New("temperature value not found")
	ErrCRCMismatch        = errors.New("sensor reported CRC mismatch")
)

// Bus discovers and reads the sensors in a devices directory.
type Bus struct {
	fs           FS
	skipCRCCheck bool
}

// Option configures a Bus.
type Option func(b *Bus)

// WithSkipCRCCheck makes the bus accept readings even when the kernel driver
// reports a failed checksum.
func WithSkipCRCCheck(skip bool) Option {
	return func(b *Bus) {
		b.skipCRCCheck = skip
	}
}

// NewBus returns a bus that reads devices from the directory, typically
// /sys/bus/w1/devices.
func NewBus(dir string, opts ...Option) *Bus {
	return NewBusFS(NewFS(dir), opts...)
}

// NewBusFS returns a bus that reads devices from the filesystem.
func NewBusFS(fs FS, opts ...Option) *Bus {
	b := &Bus{fs: fs}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ListSensors returns the IDs of all DS18B20 sensors, sorted by ID.
func (b *Bus) ListSensors() ([]string, error) {
	entries, err := b.fs.ListDirEntries()
	if err != nil {
		return nil, fmt.Errorf("read devices directory: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), FamilyPrefixDS18B20) {
			ids = append(ids, entry.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ReadSensor returns the temperature in degrees Celsius of a sensor.
func (b *Bus) ReadSensor(id string) (float64, error) {
	data, err := b.fs.ReadFile(path.Join(id, slaveFileName))
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", slaveFileName, err)
	}
	return parseSlave(data, !b.skipCRCCheck)
}

// parseSlave parses the content of a w1_slave file, such as:
//
//	72 01 4b 46 7f ff 0e 10 57 : crc=57 YES
//	72 01 4b 46 7f ff 0e 10 57 t=23125
func parseSlave(data []byte, checkCRC bool) (float64, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	var lines []string
	for len(lines) < 2 && scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) < 2 {
		return 0, ErrNoTemperatureLine
	}
	if checkCRC && !strings.HasSuffix(strings.TrimSpace(lines[0]), "YES") {
		return 0, ErrCRCMismatch
	}
	_, rawValue, ok := strings.Cut(lines[1], "t=")
	if !ok {
		return 0, ErrNoTemperatureValue
	}
	milli, err := strconv.Atoi(strings.TrimSpace(rawValue))
	if err != nil {
		return 0, fmt.Errorf("parse temperature value: %w", err)
	}
	return float64(milli) / 1000, nil
}
