package main

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Johnr24/portpick/internal/app"
	"github.com/Johnr24/portpick/internal/ui"
)

var (
	version string
	commit  string
	date    string
)

func getVersion() string {
	if version == "" {
		return "dev"
	}
	if commit != "" {
		return fmt.Sprintf("%s (%s)", version, commit[:7])
	}
	return version
}

func main() {
	appCLI := &cli.App{
		Name:    "portpick",
		Usage:   "Suggest TCP ports that are neither reserved nor in use",
		Version: getVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "Path to config file"},
			&cli.UintFlag{Name: "number-of-ports", Aliases: []string{"n"}, Value: 1, Usage: "How many ports to suggest"},
			&cli.BoolFlag{Name: "continuous", Aliases: []string{"c"}, Usage: "Require a block of consecutive ports"},
			&cli.BoolFlag{Name: "docker", Aliases: []string{"d"}, Usage: "Print ports in docker-compose \"port:\" form"},
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Usage: "Registry source: system, nmap, cache, iana, wiki"},
			&cli.StringFlag{Name: "address", Aliases: []string{"a"}, Usage: "Scan a target address instead of local listeners"},
			&cli.BoolFlag{Name: "prefer-dynamic", Usage: "Search the dynamic/private range (49152-65535) first"},
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Continue even if used-port collection fails"},
			&cli.BoolFlag{Name: "update", Aliases: []string{"u"}, Usage: "Refresh the local IANA CSV before running"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Enable debug output"},
		},
		Action: suggestAction,
		Commands: []*cli.Command{
			updateCommand(),
		},
	}

	if err := appCLI.Run(os.Args); err != nil {
		if exitErr, ok := err.(cli.ExitCoder); ok {
			if msg := exitErr.Error(); msg != "" {
				fmt.Fprintln(os.Stderr, msg)
			}
			os.Exit(exitErr.ExitCode())
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func suggestAction(c *cli.Context) error {
	count := c.Uint("number-of-ports")
	if count > 65535 {
		return cli.Exit("number of ports must be at most 65535", 2)
	}

	result, err := app.Run(c.Context, app.Options{
		ConfigPath:     c.String("config"),
		Source:         c.String("source"),
		Address:        c.String("address"),
		Count:          uint16(count),
		Continuous:     c.Bool("continuous"),
		TierPreference: tierPreference(c),
		Force:          c.Bool("force"),
		Update:         c.Bool("update"),
		Verbose:        c.Bool("verbose"),
	})
	if err != nil {
		return exitForError(err)
	}

	printer := ui.New(os.Stdout, rand.New(rand.NewSource(time.Now().UnixNano())))
	printResult(printer, result, c.Bool("docker"), c.Bool("verbose"))
	return nil
}

func updateCommand() *cli.Command {
	return &cli.Command{
		Name:  "update",
		Usage: "Refresh the local IANA port assignments CSV",
		Action: func(c *cli.Context) error {
			// Count 0 skips the search: only the update side of Run happens.
			_, err := app.Run(c.Context, app.Options{
				ConfigPath: c.String("config"),
				Update:     true,
				Verbose:    c.Bool("verbose"),
			})
			return exitForError(err)
		},
	}
}

func printResult(printer *ui.Printer, result app.Result, dockerFormat, verbose bool) {
	if verbose {
		printer.Infof("Total %d forbidden ports collected.", result.Forbidden)
	}
	if result.Requested == 0 {
		printer.Infof("Number of ports requested is 0. No ports to find.")
		return
	}
	if len(result.Ports) == 0 {
		if result.Continuous {
			printer.Infof("Could not find a block of %d continuous available ports.", result.Requested)
		} else {
			printer.Infof("Could not find an available port in the checked ranges.")
		}
		return
	}
	if result.Partial() {
		printer.Infof("Only %d of %d requested ports are available.", len(result.Ports), result.Requested)
	}
	printer.Header("Suggested available port(s):")
	for _, port := range result.Ports {
		if dockerFormat {
			printer.DockerPort(port)
		} else {
			printer.Port(port)
		}
	}
}

func tierPreference(c *cli.Context) string {
	if c.Bool("prefer-dynamic") {
		return "dynamic"
	}
	return ""
}

func exitForError(err error) error {
	if err == nil {
		return nil
	}
	var codeErr app.CodeError
	if errors.As(err, &codeErr) {
		return cli.Exit(codeErr.Error(), codeErr.Code)
	}
	return cli.Exit(err.Error(), 2)
}
