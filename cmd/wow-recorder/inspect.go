package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tdaugaard/wow-recorder/internal/config"
	"github.com/tdaugaard/wow-recorder/internal/devices"
	"github.com/tdaugaard/wow-recorder/internal/engine"
	"github.com/tdaugaard/wow-recorder/internal/events"
	"github.com/tdaugaard/wow-recorder/internal/logging"
	"github.com/tdaugaard/wow-recorder/internal/recorder"
)

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List audio input and output devices",
		RunE: func(*cobra.Command, []string) error {
			enum, err := devices.NewMalgoEnumerator()
			if err != nil {
				return err
			}
			defer enum.Close()

			inputs, err := enum.InputDevices()
			if err != nil {
				return err
			}
			outputs, err := enum.OutputDevices()
			if err != nil {
				return err
			}

			for _, dev := range append(inputs, outputs...) {
				marker := ""
				if dev.IsDefault {
					marker = " (default)"
				}
				fmt.Printf("%-6s  %s  %s%s\n", dev.Direction.String(), dev.ID, dev.Name, marker)
			}
			return nil
		},
	}
}

// newInspectCmd connects to the engine and prints what it supports: encoder
// names and base/output resolution candidates.
func newInspectCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show engine-supported encoders and resolutions",
		RunE: func(*cobra.Command, []string) error {
			opts, err := config.Load(configFile)
			if err != nil {
				return err
			}
			logging.Initialize(opts.Logging)

			enum, err := devices.NewMalgoEnumerator()
			if err != nil {
				return err
			}
			defer enum.Close()

			client := engine.NewClient(opts.Engine.URL, opts.Engine.Password)
			rec := recorder.New(client, enum, events.New(), opts)
			if err := rec.Initialize(opts); err != nil {
				return err
			}
			defer rec.Shutdown() //nolint:errcheck

			encoders, err := rec.AvailableEncoders()
			if err != nil {
				return err
			}
			fmt.Println("encoders:")
			for _, name := range encoders {
				fmt.Printf("  %s\n", name)
			}

			resolutions, err := rec.AvailableResolutions()
			if err != nil {
				return err
			}
			for _, key := range []string{"Base", "Output"} {
				fmt.Printf("%s resolutions:\n", key)
				for _, res := range resolutions[key] {
					fmt.Printf("  %s\n", res)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "wow-recorder.toml", "Path to options file")
	return cmd
}
