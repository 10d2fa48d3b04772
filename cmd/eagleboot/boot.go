package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bigbag/eagleboot/internal/bus"
	"github.com/bigbag/eagleboot/internal/config"
	"github.com/bigbag/eagleboot/internal/detect"
	"github.com/bigbag/eagleboot/internal/device"
	"github.com/bigbag/eagleboot/internal/firmware"
	"github.com/bigbag/eagleboot/internal/loader"
	"github.com/bigbag/eagleboot/internal/protocol"
	"github.com/bigbag/eagleboot/internal/serial"
	"github.com/bigbag/eagleboot/internal/sip"
)

// loadConfig reads the config file, if any, and applies flags the user set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFlag != "" {
		cfg, err = config.Load(configFlag)
	} else {
		cfg, err = config.Parse(nil)
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port = portFlag
	}
	if flags.Changed("baud") {
		cfg.Baud = baudFlag
	}
	if flags.Changed("mode") {
		cfg.InitMode = modeFlag
	}
	if flags.Changed("ate") {
		cfg.ATEConfig = ateFlag
	}
	if flags.Changed("firmware-path") {
		cfg.FirmwarePath = firmwarePathFlag
	}
	if flags.Changed("skip-download") {
		cfg.SkipDownload = skipDownloadFlag
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevelFlag
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	config.Normalize(cfg)
	return cfg, nil
}

func sessionOptions(cfg *config.Config, logger *slog.Logger) (device.Options, error) {
	mode, err := device.ParseInitMode(cfg.InitMode)
	if err != nil {
		return device.Options{}, err
	}
	return device.Options{
		InitMode:     mode,
		TestMode:     device.TestMode(cfg.ATEConfig),
		SkipDownload: cfg.SkipDownload,
		BootTimeout:  cfg.BootTimeout,
		ResetTimeout: cfg.ResetTimeout,
		Link: sip.Options{
			NoTxAMPDU: cfg.NoTxAMPDU,
			NoRxAMPDU: cfg.NoRxAMPDU,
		},
		Logger: logger,
	}, nil
}

func runBoot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))

	opts, err := sessionOptions(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	// Find or use specified port
	portName := cfg.Port
	if portName == "" {
		fmt.Println("Detecting bridge...")
		result, err := detect.DetectDevice(ctx, cfg.Baud)
		if err != nil {
			return fmt.Errorf("bridge detection failed: %w", err)
		}
		portName = result.Port
		fmt.Printf("Found %s on %s\n", result.ChipName, result.Port)
	}

	port, err := serial.Open(portName, cfg.Baud)
	if err != nil {
		return fmt.Errorf("failed to open port: %w", err)
	}
	defer port.Close()

	fmt.Printf("Port: %s @ %d baud\n", portName, cfg.Baud)

	if powerCycleFlag {
		fmt.Println("Power cycling chip...")
		if err := port.PowerCycle(); err != nil {
			return fmt.Errorf("power cycle failed: %w", err)
		}
	}

	var bar *progressbar.ProgressBar
	opts.Progress = func(p loader.Progress) {
		if bar == nil {
			bar = progressbar.NewOptions(p.TotalBytes,
				progressbar.OptionSetDescription("Downloading"),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowBytes(true),
				progressbar.OptionSetPredictTime(true),
				progressbar.OptionThrottle(100),
				progressbar.OptionClearOnFinish(),
			)
		}
		bar.Set(p.BytesWritten)
		if p.Block == p.TotalBlocks {
			bar.Finish()
		}
	}

	bridge := bus.NewBridge(port, bus.BridgeOptions{Logger: logger})
	session := device.New(bridge, firmware.NewFS(os.DirFS(cfg.FirmwarePath)), opts)
	bridge.SetEventHandler(session.OnDeviceEvent)

	g, gctx := errgroup.WithContext(ctx)
	pumpCtx, stopPump := context.WithCancel(gctx)
	defer stopPump()

	g.Go(func() error {
		if err := bridge.Run(pumpCtx); err != nil && pumpCtx.Err() == nil {
			return err
		}
		return nil
	})
	g.Go(func() error {
		defer stopPump()

		fmt.Println("Connecting to bridge...")
		if err := bridge.Sync(gctx); err != nil {
			return fmt.Errorf("failed to sync with bridge: %w", err)
		}
		fmt.Println("Connected!")

		fmt.Printf("Bringing up chip (%s init, firmware in %s)...\n", cfg.InitMode, cfg.FirmwarePath)
		return session.BringUp(gctx)
	})

	err = g.Wait()
	if errors.Is(err, device.ErrDiagnosticMode) {
		fmt.Println("\nChip left in diagnostic mode")
		return err
	}
	if err != nil {
		if errors.Is(err, device.ErrTimeout) {
			printRecentEvents(session.Link())
		}
		return err
	}

	fmt.Println("\nChip is up!")
	printLinkInfo(session.Link())
	return nil
}

func printLinkInfo(l *sip.Link) {
	if l == nil {
		return
	}
	noTx, noRx := l.AMPDU()
	fmt.Printf("  State:      %s\n", l.State())
	fmt.Printf("  Tx credits: %d\n", l.TxCredits())
	fmt.Printf("  Events:     %d\n", l.HostSequence())
	fmt.Printf("  AMPDU:      tx=%t rx=%t\n", !noTx, !noRx)
	printRecentEvents(l)
}

func printRecentEvents(l *sip.Link) {
	if l == nil {
		return
	}
	recent := l.Recent()
	if len(recent) == 0 {
		fmt.Println("  No device events received")
		return
	}
	fmt.Println("  Recent events:")
	for _, ev := range recent {
		fmt.Printf("    #%-4d %s (%d bytes)\n", ev.Seq, protocol.EventName(ev.ID), len(ev.Data))
	}
}
