package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bigbag/eagleboot/internal/protocol"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configFlag       string
	portFlag         string
	baudFlag         int
	modeFlag         string
	ateFlag          int
	firmwarePathFlag string
	skipDownloadFlag bool
	powerCycleFlag   bool
	logLevelFlag     string
	entryFlag        uint32
	hexOutFlag       string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "eagleboot",
		Short: "Bring up ESP8089 radio chips over a serial bridge",
		Long: `eagleboot downloads firmware into an ESP8089 ("eagle") radio chip,
starts it and waits for the chip to report that it is up.

The chip is reached through a USB-serial bridge. Firmware images are read
from the firmware directory (default /lib/firmware).`,
		SilenceUsage: true,
	}

	// Boot command
	bootCmd := &cobra.Command{
		Use:   "boot",
		Short: "Download firmware and run the boot handshake",
		Long: `Run the chip bring-up sequence.

First init loads eagle_fw_ate_config_v19.bin, waits for the chip to announce
that it is resetting and then pulses interrupt line 7. Second init loads
eagle_fw_first_init_v19.bin and waits for the bootup event.

--ate selects a factory test configuration: 1 (wiring test), 6 (interrupt
self-test), any other non-zero value enters diagnostic mode.`,
		Args: cobra.NoArgs,
		RunE: runBoot,
	}
	bootCmd.Flags().StringVarP(&configFlag, "config", "c", "", "YAML config file")
	bootCmd.Flags().StringVarP(&portFlag, "port", "p", "", "Serial port (auto-detect if not specified)")
	bootCmd.Flags().IntVarP(&baudFlag, "baud", "b", protocol.DefaultBaudRate, "Baud rate")
	bootCmd.Flags().StringVarP(&modeFlag, "mode", "m", "first", "Init mode: first or second")
	bootCmd.Flags().IntVar(&ateFlag, "ate", 0, "Factory test configuration")
	bootCmd.Flags().StringVar(&firmwarePathFlag, "firmware-path", "", "Firmware directory")
	bootCmd.Flags().BoolVar(&skipDownloadFlag, "skip-download", false, "Boot without downloading firmware")
	bootCmd.Flags().BoolVar(&powerCycleFlag, "power-cycle", false, "Pulse chip enable before bring-up")
	bootCmd.Flags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error")

	// Inspect command
	inspectCmd := &cobra.Command{
		Use:   "inspect <image.bin>",
		Short: "Show the header and load blocks of a firmware image",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect,
	}
	inspectCmd.Flags().StringVar(&hexOutFlag, "hex", "", "Also write the blocks as Intel HEX to this file")

	// Pack command
	packCmd := &cobra.Command{
		Use:   "pack <input.hex> <output.bin>",
		Short: "Build a firmware image from an Intel HEX file",
		Args:  cobra.ExactArgs(2),
		RunE:  runPack,
	}
	packCmd.Flags().Uint32VarP(&entryFlag, "entry", "e", 0, "Entry address")

	// Info command
	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Show bridge and chip info",
		Long:  "Detect and show information about connected eagle bridges.",
		RunE:  runInfo,
	}
	infoCmd.Flags().StringVarP(&portFlag, "port", "p", "", "Serial port (auto-detect if not specified)")
	infoCmd.Flags().IntVarP(&baudFlag, "baud", "b", protocol.DefaultBaudRate, "Baud rate")

	// Version command
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("eagleboot %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available serial ports",
		RunE:  runList,
	}

	rootCmd.AddCommand(bootCmd, inspectCmd, packCmd, infoCmd, versionCmd, listCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
