package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bigbag/eagleboot/internal/detect"
	"github.com/bigbag/eagleboot/internal/serial"
)

func runInfo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if portFlag != "" {
		// Check specific port
		result, err := detect.DetectOnPort(ctx, portFlag, baudFlag)
		if err != nil {
			return fmt.Errorf("failed to detect bridge on %s: %w", portFlag, err)
		}
		printDeviceInfo(result)
		return nil
	}

	// Auto-detect
	fmt.Println("Scanning for eagle bridges...")
	devices, err := detect.ListDevices(ctx, baudFlag)
	if err != nil {
		return err
	}

	if len(devices) == 0 {
		fmt.Println("No eagle bridges found")
		return nil
	}

	fmt.Printf("Found %d device(s):\n\n", len(devices))
	for i, d := range devices {
		fmt.Printf("Device %d:\n", i+1)
		printDeviceInfo(&d)
		fmt.Println()
	}

	return nil
}

func printDeviceInfo(d *detect.Result) {
	fmt.Printf("  Port:     %s\n", d.Port)
	fmt.Printf("  Chip:     %s\n", d.ChipName)
	if d.ChipID != 0 {
		fmt.Printf("  Chip ID:  0x%04X\n", d.ChipID)
	}
}

func runList(cmd *cobra.Command, args []string) error {
	ports, err := serial.ListPorts()
	if err != nil {
		return err
	}

	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}

	fmt.Println("Available serial ports:")
	for _, p := range ports {
		fmt.Printf("  %s\n", p)
	}

	return nil
}
