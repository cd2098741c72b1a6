/*
Copyright 2025 Heavyrent Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/heavyrent/rentahold"
	"github.com/heavyrent/rentahold/config"
	"github.com/heavyrent/rentahold/database"
	"github.com/heavyrent/rentahold/internal/notification"
)

// CLI wraps the root cobra command.
type CLI struct {
	cmd *cobra.Command
}

// appInstance holds the engine and its configuration for the subcommands.
type appInstance struct {
	engine *rentahold.Rentahold
	cnf    *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads configuration and initializes the engine before any command
// runs.
func preRun(app *appInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig("rentahold.json")
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		engine, err := setupEngine(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.engine = engine
		app.cnf = cnf

		return nil
	}
}

func setupEngine(cfg *config.Configuration) (*rentahold.Rentahold, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	engine, err := rentahold.NewRentahold(db)
	if err != nil {
		return nil, fmt.Errorf("error creating engine: %v", err)
	}
	return engine, nil
}

// NewCLI builds the command-line interface: server, workers and migrations.
func NewCLI() *CLI {
	var configFile string
	app := &appInstance{}

	var rootCmd = &cobra.Command{
		Use:   "rentahold",
		Short: "Deferred security-hold engine for equipment rentals",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./rentahold.json", "Configuration file")

	rootCmd.PersistentPreRunE = preRun(app)

	rootCmd.AddCommand(serverCommands(app))
	rootCmd.AddCommand(workerCommands(app))
	rootCmd.AddCommand(migrateCommands(app))

	return &CLI{cmd: rootCmd}
}

func (w CLI) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
