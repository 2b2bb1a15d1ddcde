package cli

// This file contains the check command: an unglitched probe of the
// bootloader to verify wiring and read the protection baseline.

import (
	"fmt"

	"github.com/bsmt/cwfriend/target"
	"github.com/urfave/cli/v2"
)

func (a *App) check(ctx *cli.Context) error {
	profile := parseProfile(ctx)
	targetCfg, err := parseTargetConfig(ctx)
	if err != nil {
		return err
	}

	dev, closeDev, err := a.openDevice(ctx, profile)
	if err != nil {
		return err
	}
	defer closeDev()

	tgt, err := target.New(dev, dev, a.logger, targetCfg)
	if err != nil {
		return err
	}

	status, err := tgt.CheckProtection()
	if err != nil {
		return err
	}

	fmt.Printf("Bootloader version: %d.%d\n", status.Major, status.Minor)
	fmt.Printf("Option bytes: %02X %02X\n", status.Option[0], status.Option[1])
	if status.Protected {
		fmt.Println("Readout protection: enabled")
	} else {
		fmt.Println("Readout protection: disabled")
	}

	return nil
}
