// Command wow-recorder drives the native capture/encode engine host: it
// connects, configures the scene and audio track graph from a TOML options
// file, and records until interrupted.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tdaugaard/wow-recorder/internal/recorder"
)

// Version is set at build time via -ldflags "-X main.Version=..."
var Version = "dev"

func main() {
	recorder.Version = Version

	root := &cobra.Command{
		Use:          "wow-recorder",
		Short:        "Gameplay recorder driving a native capture/encode engine",
		SilenceUsage: true,
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newDevicesCmd())
	root.AddCommand(newInspectCmd())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(*cobra.Command, []string) {
			fmt.Println(Version)
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
