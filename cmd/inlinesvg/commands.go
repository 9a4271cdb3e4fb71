package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"inlinesvg/common"
	"inlinesvg/config"
	"inlinesvg/datauri"
	"inlinesvg/process"
	"inlinesvg/state"
)

func optimizeCommand() *cli.Command {
	return &cli.Command{
		Name:         "optimize",
		Usage:        "Optimizes SVG data URIs in stylesheet(s)",
		OnUsageError: passUsageError,
		Action:       process.Run,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "nodirs", Aliases: []string{"nd"}, Usage: "put all results directly into destination, do not recreate source directories"},
			&cli.BoolFlag{Name: "overwrite", Aliases: []string{"ow"}, Usage: "replace existing files in destination"},
			&cli.StringFlag{Name: "force-zip-cp",
				Usage: "treat ALL non UTF-8 names of archive entries as being in `ENCODING` (IANA character set name)"},
			&cli.StringSliceFlag{Name: "pattern",
				Usage: "data URI preamble `REGEX` to look for, may be repeated, replaces configured patterns (default: " + datauri.DefaultPattern + ")"},
		},
		ArgsUsage: "SOURCE [DESTINATION]",
		CustomHelpTemplate: cli.CommandHelpTemplate + `
SOURCE:
    what to process:
        "[path]file.css" - single stylesheet
        "[path]directory" - every stylesheet and archive under directory, recursively (symbolic links are ignored)
        "[path]archive.zip" or "[path]book.epub" - every stylesheet in archive
        "[path]archive.zip[path_in_archive]" - stylesheets under path_in_archive only

    Archives are written to destination with stylesheets optimized and every
    other entry copied unchanged. Nested archives are not looked into.

DESTINATION:
    directory for results, current working directory when absent. Results
    keep names of their sources.

Error policy (` + strings.Join(common.ErrorPolicyNames(), ", ") + `) is set in configuration.
`,
	}
}

func dumpConfigCommand() *cli.Command {
	return &cli.Command{
		Name:         "dumpconfig",
		Usage:        "Dumps either default or actual configuration (YAML)",
		OnUsageError: passUsageError,
		Action:       dumpConfig,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
		},
		ArgsUsage: "DESTINATION",
		CustomHelpTemplate: cli.CommandHelpTemplate + `
DESTINATION:
    file to write configuration to, STDOUT when absent

Without --default writes "active" configuration: defaults merged with values
from configuration file.
`,
	}
}

func dumpConfig(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	kind, data := "actual", []byte(nil)
	if cmd.Bool("default") {
		kind = "default"
		data, err = config.Prepare()
	} else {
		data, err = config.Dump(env.Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	var out io.Writer = os.Stdout
	fname := cmd.Args().Get(0)
	if len(fname) > 0 {
		f, err := os.Create(fname)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer f.Close()
		out = f
	} else {
		fname = "STDOUT"
	}
	env.Log.Info("Writing configuration", zap.String("state", kind), zap.String("file", fname))

	if _, err := out.Write(data); err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}
