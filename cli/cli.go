/*
	serialupdi
	Copyright (c) 2024 the serialupdi authors.  All right reserved.

	This library is free software; you can redistribute it and/or
	modify it under the terms of the GNU Lesser General Public
	License as published by the Free Software Foundation; either
	version 2.1 of the License, or (at your option) any later version.

	This library is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
	Lesser General Public License for more details.

	You should have received a copy of the GNU Lesser General Public
	License along with this library; if not, write to the Free Software
	Foundation, Inc., 51 Franklin St, Fifth Floor, Boston, MA  02110-1301  USA
*/

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/avrdudes/serialupdi/cli/deviceinfo"
	"github.com/avrdudes/serialupdi/cli/dump"
	"github.com/avrdudes/serialupdi/cli/erase"
	"github.com/avrdudes/serialupdi/cli/flash"
	"github.com/avrdudes/serialupdi/cli/fuse"
	"github.com/avrdudes/serialupdi/cli/userrow"
	"github.com/avrdudes/serialupdi/cli/version"
	v "github.com/avrdudes/serialupdi/version"
	"github.com/mattn/go-colorable"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	verbose   bool
	logFile   string
	logFormat string
	logLevel  string
)

func NewCommand() *cobra.Command {
	// serialupdi is the root command
	serialupdiCli := &cobra.Command{
		Use:              "serialupdi",
		Short:            "An UPDI programmer for serial adapters.",
		Long:             "serialupdi programs UPDI-capable AVR devices through a plain USB-serial adapter.",
		Example:          "  " + os.Args[0] + " <command> [flags...]",
		Args:             cobra.NoArgs,
		PersistentPreRun: preRun,
	}

	serialupdiCli.AddCommand(version.NewCommand())
	serialupdiCli.AddCommand(deviceinfo.NewCommand())
	serialupdiCli.AddCommand(flash.NewCommand())
	serialupdiCli.AddCommand(dump.NewCommand())
	serialupdiCli.AddCommand(erase.NewCommand())
	serialupdiCli.AddCommand(fuse.NewCommand())
	serialupdiCli.AddCommand(userrow.NewCommand())

	serialupdiCli.PersistentFlags().StringVar(&logFile, "log-file", "", "Path to the file where logs will be written")
	serialupdiCli.PersistentFlags().StringVar(&logFormat, "log-format", "", "The output format for the logs, can be {text|json}.")
	serialupdiCli.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Messages with this level and above will be logged. Valid levels are: trace, debug, info, warn, error, fatal, panic")
	serialupdiCli.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print the logs on the standard output.")

	return serialupdiCli
}

// Convert the string passed to the `--log-level` option to the corresponding
// logrus formal level.
func toLogLevel(s string) (t logrus.Level, found bool) {
	t, found = map[string]logrus.Level{
		"trace": logrus.TraceLevel,
		"debug": logrus.DebugLevel,
		"info":  logrus.InfoLevel,
		"warn":  logrus.WarnLevel,
		"error": logrus.ErrorLevel,
		"fatal": logrus.FatalLevel,
		"panic": logrus.PanicLevel,
	}[s]

	return
}

func preRun(cmd *cobra.Command, args []string) {
	// Prepare logging
	if verbose {
		// if we print on stdout, do it in full colors
		logrus.SetOutput(colorable.NewColorableStdout())
		logrus.SetFormatter(&logrus.TextFormatter{
			ForceColors: true,
		})
	} else {
		logrus.SetOutput(io.Discard)
	}

	// Normalize the format strings
	logFormat = strings.ToLower(logFormat)
	if logFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			fmt.Printf("Unable to open file for logging: %s", logFile)
			os.Exit(1)
		}

		// Use a hook so we don't get color codes in the log file
		if logFormat == "json" {
			logrus.AddHook(lfshook.NewHook(file, &logrus.JSONFormatter{}))
		} else {
			logrus.AddHook(lfshook.NewHook(file, &logrus.TextFormatter{}))
		}
	}

	// Configure logging filter
	if lvl, found := toLogLevel(logLevel); !found {
		fmt.Fprintf(os.Stderr, "Invalid option for --log-level: %s\n", logLevel)
		os.Exit(1)
	} else {
		logrus.SetLevel(lvl)
	}

	logrus.Info(v.VersionInfo)
}
