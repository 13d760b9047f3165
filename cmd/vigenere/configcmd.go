package main

import (
	"fmt"

	"vigenere/internal/config"
)

func (a *app) cmdConfig(args []string) error {
	sub := "show"
	if len(args) > 0 {
		sub = args[0]
	}

	switch sub {
	case "show":
		return a.cfg.Encode(a.stdout)
	case "path":
		fmt.Fprintln(a.stdout, a.configPath)
		return nil
	case "init":
		// Defaults are written without environment overrides.
		_, created, err := config.LoadOrCreate(a.configPath)
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintf(a.stdout, "Created %s\n", a.configPath)
		} else {
			fmt.Fprintf(a.stdout, "Config already exists: %s\n", a.configPath)
		}
		return nil
	default:
		fmt.Fprintf(a.stderr, "Unknown config command: %s\n", sub)
		return errUsage
	}
}
