package main

import (
	"context"

	"github.com/fatih/color"
	"github.com/iver-wharf/temperatures/pkg/onewire"
	"github.com/iver-wharf/temperatures/pkg/poller"
	"github.com/spf13/cobra"
	"gopkg.in/typ.v4/slices"
)

var readFlags = struct {
	skipCRCCheck bool
}{}

var readCmd = &cobra.Command{
	Use:   "read [devicesDir]",
	Short: "Reads all sensors once and prints their temperatures",
	Long: `Reads all DS18B20 sensors once and prints one line per sensor.

Use the optional "devicesDir" argument to read from another directory than
the configured one (default /sys/bus/w1/devices).

Exits with a non-zero exit code if any sensor could not be read.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bus := newBusFromArgs(args, readFlags.skipCRCCheck || rootConfig.OneWire.SkipCRCCheck)
		sensors, err := poller.ReadAll(context.Background(), bus)
		printSensors(sensors)
		return err
	},
}

func init() {
	readCmd.Flags().BoolVar(&readFlags.skipCRCCheck, "skip-crc-check", false, "Accept readings with a failed checksum")
	rootCmd.AddCommand(readCmd)
}

func newBusFromArgs(args []string, skipCRCCheck bool) *onewire.Bus {
	dir := slices.SafeGet(args, 0)
	if dir == "" {
		dir = rootConfig.OneWire.DevicesDir
	}
	log.Debug().WithString("dir", dir).Message("Reading devices directory.")
	return onewire.NewBus(dir, onewire.WithSkipCRCCheck(skipCRCCheck))
}

func printSensors(sensors []poller.Sensor) {
	okColor := color.New(color.FgGreen)
	errColor := color.New(color.FgRed)
	for _, s := range sensors {
		if s.Celsius.Valid {
			okColor.Printf("%s\t%.3f°C\n", s.ID, s.Celsius.Float64)
		} else {
			errColor.Printf("%s\terror: %s\n", s.ID, s.LastError.String)
		}
	}
}
