package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/bsmt/cwfriend/target"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const AppName = "cwfriend"

type App struct {
	logger zerolog.Logger
	cli    *cli.App
}

func New() *App {

	// Set default log level to info
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logger :=
		log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339Nano,
		})

	app := &App{
		logger: logger,
		cli: &cli.App{
			Name:  AppName,
			Usage: "Voltage glitching harness for readout-protected STM32 bootloaders",
			Authors: []*cli.Author{
				{Name: "bsmt", Email: fmt.Sprintf("bsmt+%s@wootem.de", AppName)},
			},
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "verbose",
					Usage: "Enable verbose (debug) logging",
				},
			},
			Before: func(ctx *cli.Context) error {
				if ctx.Bool("verbose") {
					zerolog.SetGlobalLevel(zerolog.DebugLevel)
				}
				return nil
			},
		},
	}
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "sweep",
		Usage:  "Sweep glitch offset and width against the target bootloader",
		Action: app.sweep,
		Flags:  append(hardwareFlags(), sweepFlags()...),
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "check",
		Usage:  "Probe the bootloader version and readout protection baseline",
		Action: app.check,
		Flags:  hardwareFlags(),
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "list",
		Usage:  "List previous runs",
		Action: app.list,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "path",
				Aliases: []string{"p"},
				Usage:   "Filter by working directory substring",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Limit number of results (default: 20)",
				Value:   20,
			},
			historyDirFlag(),
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "view",
		Usage:     "View a recorded run",
		ArgsUsage: "[ID|INDEX]",
		Action:    app.view,
		Flags:     []cli.Flag{historyDirFlag()},
		Description: `View a recorded run.

Arguments:
  0           View last run (default)
  -1          View 2nd last run
  -2          View 3rd last run
  <hex-id>    View run matching the hex ID prefix

Examples:
  cwfriend view           # View last run
  cwfriend view -1        # View 2nd last run
  cwfriend view abc123    # View run with ID starting with abc123`,
	})
	return app
}

func (a *App) Run(args []string) error {
	return a.cli.Run(args)
}

// SetVersion sets the version information for the CLI application
func (a *App) SetVersion(version, commit, date string) {
	a.cli.Version = version
	if commit != "none" && commit != "" {
		a.cli.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit[:8], date)
	}
}

// hardwareFlags covers everything needed to reach the target: adapter
// selection, clocking, serial settings and the reset wiring. Shared by
// sweep and check.
func hardwareFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "adapter",
			Usage: "Capture device: 'lite' for a ChipWhisperer-Lite, 'sim' for the built-in simulator",
			Value: "lite",
		},
		&cli.StringFlag{
			Name:  "sim-behavior",
			Usage: "Simulated answer to the read probe: nack (protected), ack (already open), mute, odd",
			Value: "nack",
		},
		&cli.Float64Flag{
			Name:  "clock",
			Usage: "Glitch module clock frequency in Hz",
			Value: 24e6,
		},
		&cli.IntFlag{
			Name:  "baud",
			Usage: "Target serial baud rate",
			Value: 9600,
		},
		&cli.StringFlag{
			Name:  "address",
			Usage: "Flash address for the read probe (hex accepted)",
			Value: fmt.Sprintf("0x%08X", uint32(target.DefaultAddress)),
		},
		&cli.IntFlag{
			Name:  "size",
			Usage: "Bytes requested by the read probe (1-256)",
			Value: target.DefaultReadSize,
		},
		&cli.BoolFlag{
			Name:  "high-power",
			Usage: "Use the high-power crowbar FET",
		},
		&cli.BoolFlag{
			Name:  "cut-power",
			Usage: "Reset the target by cycling its power instead of pulsing reset",
		},
		&cli.DurationFlag{
			Name:  "reset-hold",
			Usage: "How long to hold the target in reset",
			Value: 100 * time.Millisecond,
		},
		&cli.DurationFlag{
			Name:  "read-timeout",
			Usage: "How long to wait for each bootloader answer",
			Value: 250 * time.Millisecond,
		},
	}
}

// sweepFlags covers the grid walk itself.
func sweepFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Float64Flag{
			Name:     "offset-start",
			Usage:    "First trigger-to-glitch offset in seconds (negative allowed)",
			Required: true,
		},
		&cli.Float64Flag{
			Name:     "offset-end",
			Usage:    "Offset sweep end in seconds, exclusive",
			Required: true,
		},
		&cli.Float64Flag{
			Name:     "offset-step",
			Usage:    "Offset increment in seconds",
			Required: true,
		},
		&cli.Float64Flag{
			Name:     "width-start",
			Usage:    "First glitch width in seconds",
			Required: true,
		},
		&cli.Float64Flag{
			Name:     "width-end",
			Usage:    "Width sweep end in seconds, exclusive",
			Required: true,
		},
		&cli.Float64Flag{
			Name:     "width-step",
			Usage:    "Width increment in seconds",
			Required: true,
		},
		&cli.IntFlag{
			Name:    "attempts",
			Aliases: []string{"a"},
			Usage:   "Trials per grid point",
			Value:   5,
		},
		&cli.DurationFlag{
			Name:  "delay",
			Usage: "Pause between trials",
			Value: 50 * time.Millisecond,
		},
		&cli.Float64Flag{
			Name:  "min-width",
			Usage: "Narrowest effective glitch width in percent of one clock cycle",
			Value: 35,
		},
		&cli.BoolFlag{
			Name:  "ext-only",
			Usage: "Restrict offsets to whole clock cycles (skip sub-cycle phase stepping)",
		},
		&cli.StringFlag{
			Name:  "success-phase",
			Usage: "Protocol phase whose acknowledgement counts as success: init, command, address, size",
			Value: "size",
		},
		&cli.BoolFlag{
			Name:  "skip-check",
			Usage: "Skip the unglitched protection baseline probe",
		},
		&cli.BoolFlag{
			Name:  "no-history",
			Usage: "Do not record this run",
		},
		historyDirFlag(),
	}
}

func historyDirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "history-dir",
		Usage: "History directory (default: .cwfriend under the working directory)",
	}
}
