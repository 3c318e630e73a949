/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"promptmanager/internal/config"
	"promptmanager/internal/crash"
	applog "promptmanager/internal/log"
	"promptmanager/internal/telemetry"
)

// app carries the state shared by all subcommands.
type app struct {
	configPath   string
	settingsPath string
	yes          bool

	cfg config.AppConfig
	log *slog.Logger

	// choose picks the default image among candidates; nil means ask on the terminal.
	choose func(candidates []string) (string, error)
}

func (a *app) init() error {
	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadFrom(a.configPath)
	} else {
		a.cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	applog.Init(applog.Options{
		Level:     a.cfg.Logging.Level,
		Format:    a.cfg.Logging.Format,
		AddSource: a.cfg.Logging.Source,
		File:      a.cfg.Logging.File,
	})
	a.log = applog.WithComponent("cli")
	telemetry.Configure(telemetry.Config{
		OptIn:     a.cfg.Telemetry.OptIn,
		EventsURL: a.cfg.Telemetry.EventsURL,
		CrashURL:  a.cfg.Telemetry.CrashURL,
		Timeout:   1500 * time.Millisecond,
	})
	return nil
}

func newRootCmd(out io.Writer) (*cobra.Command, *app) {
	a := &app{}
	root := &cobra.Command{
		Use:   "promptmanager",
		Short: "Compose, batch and organize text-to-image prompts",
		Long: `promptmanager keeps prompts split into top, middle, bottom and negative
sections, stores them as JSON templates next to their preview media and
exports batches of combined prompts.

Run "promptmanager ui" for the desktop window (build with -tags fyne).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.init(); err != nil {
				return err
			}
			a.log.Debug("start", slog.String("command", cmd.CommandPath()), slog.Int("args", len(args)))
			telemetry.Event(telemetry.EventStarted, nil)
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			telemetry.Flush(ctx)
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file path (default <user config dir>/promptmanager/config.yaml)")
	root.PersistentFlags().StringVar(&a.settingsPath, "settings", "", "settings file path (default ~/"+config.SettingsFileName+")")
	root.PersistentFlags().BoolVarP(&a.yes, "yes", "y", false, "non-interactive: never prompt, pick no default image")

	root.AddCommand(
		versionCmd(),
		uiCmd(a),
		templateCmd(a),
		batchCmd(a),
		catalogCmd(a),
		purgeCmd(a),
		settingsCmd(a),
	)
	return root, a
}

func main() {
	defer crash.Recover(nil)
	root, _ := newRootCmd(os.Stdout)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
