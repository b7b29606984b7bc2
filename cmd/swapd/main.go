package main

import (
	"fmt"
	"io"
	"os"

	"github.com/comit-network/swapd/internal/config"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	app = &cobra.Command{
		Use:   "swapd",
		Short: "atomic swap daemon",
		Long: "swapd drives atomic swaps between bitcoin and ethereum through " +
			"a comit node, either as maker publishing orders or as taker " +
			"accepting them",
		Version:           formatVersion(),
		PersistentPreRunE: setup,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	makerCmd = &cobra.Command{
		Use:   "maker",
		Short: "publish orders and execute the swaps taken by takers",
		RunE:  runMaker,
	}

	takerCmd = &cobra.Command{
		Use:   "taker",
		Short: "take the order published by a maker and execute the swap",
		RunE:  runTaker,
	}
)

func init() {
	app.AddCommand(makerCmd, takerCmd)
}

func main() {
	if err := app.Execute(); err != nil {
		log.Fatal(err)
	}
}

func setup(cmd *cobra.Command, _ []string) error {
	if err := config.InitConfig(); err != nil {
		return err
	}

	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))
	if config.GetBool(config.LogFileKey) {
		logFile := &lumberjack.Logger{
			Filename:   config.GetLogFile(cmd.Name()),
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		}
		log.SetOutput(io.MultiWriter(os.Stdout, logFile))
	}
	return nil
}

func formatVersion() string {
	return fmt.Sprintf(
		"Version: %s\nCommit: %s\nDate: %s",
		version, commit, date,
	)
}
