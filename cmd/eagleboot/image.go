package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bigbag/eagleboot/internal/image"
)

func runInspect(cmd *cobra.Command, args []string) error {
	path := args[0]

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	img, err := image.Parse(data)
	if err != nil {
		return err
	}

	fmt.Printf("Image: %s (%d bytes)\n", path, img.Size())
	fmt.Printf("  Magic:  0x%02X\n", img.Magic)
	fmt.Printf("  Entry:  0x%08X\n", img.EntryAddress)
	fmt.Printf("  Blocks: %d\n", img.BlockCount)

	c := img.Cursor()
	for c.Next() {
		b := c.Block()
		fmt.Printf("  #%-3d 0x%08X  %7d bytes  @ 0x%X\n", b.Index, b.LoadAddress, len(b.Payload), b.Offset)
	}
	if err := c.Err(); err != nil {
		return err
	}
	if trailing := img.Size() - c.Offset(); trailing > 0 {
		fmt.Printf("  Trailing: %d bytes (not verified)\n", trailing)
	}

	if hexOutFlag != "" {
		f, err := os.Create(hexOutFlag)
		if err != nil {
			return fmt.Errorf("failed to create hex file: %w", err)
		}
		defer f.Close()
		if err := image.ToHex(f, img); err != nil {
			return fmt.Errorf("failed to write hex file: %w", err)
		}
		fmt.Printf("Wrote %s\n", hexOutFlag)
	}

	return nil
}

func runPack(cmd *cobra.Command, args []string) error {
	in, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open hex file: %w", err)
	}
	defer in.Close()

	data, err := image.FromHex(in, entryFlag)
	if err != nil {
		return err
	}

	img, err := image.Parse(data)
	if err != nil {
		return err
	}

	if err := os.WriteFile(args[1], data, 0o644); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}

	fmt.Printf("Wrote %s: %d blocks, entry 0x%08X, %d bytes\n", args[1], img.BlockCount, img.EntryAddress, len(data))
	return nil
}
