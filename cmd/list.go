package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"

	"github.com/quicoa/daheng-camera-class/internal/camera"
	"github.com/quicoa/daheng-camera-class/internal/config"
	"github.com/quicoa/daheng-camera-class/internal/logging"
)

// CreateListCmd creates the list command.
func CreateListCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cameras visible to the transport",
		Args:  cobra.NoArgs,
		Run: humacli.WithOptions(func(_ *cobra.Command, _ []string, opts *config.Options) {
			logger := logging.GetLogger("main")

			transport, err := NewTransport(opts)
			if err != nil {
				logger.Error("Invalid transport configuration", "error", err)
				os.Exit(1)
			}
			lib, err := camera.AcquireLibrary(transport)
			if err != nil {
				logger.Error("Failed to initialize transport", "transport", opts.TransportKind, "error", err)
				os.Exit(1)
			}
			defer func() { _ = lib.Release() }()

			devices, err := lib.Devices()
			if err != nil {
				logger.Error("Failed to enumerate devices", "error", err)
				os.Exit(1)
			}
			if err := writeDevices(os.Stdout, devices, asJSON); err != nil {
				logger.Error("Failed to write device list", "error", err)
				os.Exit(1)
			}
		}),
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print devices as JSON")
	return cmd
}

func writeDevices(w io.Writer, devices []camera.DeviceInfo, asJSON bool) error {
	if asJSON {
		if devices == nil {
			devices = []camera.DeviceInfo{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(devices)
	}

	if len(devices) == 0 {
		_, err := fmt.Fprintln(w, "no devices found")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	// DEVICE is the 0-based value --device takes.
	fmt.Fprintln(tw, "DEVICE\tNAME\tSERIAL\tCOLOR\tPATH")
	for _, d := range devices {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%s\n", d.Index-1, d.Name, d.Serial, d.Color, d.Path)
	}
	return tw.Flush()
}
