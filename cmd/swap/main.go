package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/comit-network/swapd/internal/config"
	"github.com/comit-network/swapd/internal/core/ports"
	"github.com/comit-network/swapd/internal/infrastructure/registry/cnd"
	makerclient "github.com/comit-network/swapd/internal/infrastructure/maker-client"
	"github.com/urfave/cli/v2"
)

var (
	makerFlag = cli.StringFlag{
		Name:  "maker",
		Usage: "url of the maker negotiation server, defaults to SWAPD_MAKER_URL",
	}

	cndFlag = cli.StringFlag{
		Name:  "cnd",
		Usage: "url of the cnd REST API, defaults to SWAPD_CND_URL or the env file one",
	}
)

func main() {
	app := cli.NewApp()

	app.Version = "0.0.1"
	app.Name = "swap CLI"
	app.Usage = "Command line interface for swapd operators"
	app.Flags = []cli.Flag{&makerFlag, &cndFlag}
	app.Before = func(*cli.Context) error {
		return config.InitConfig()
	}
	app.Commands = append(
		app.Commands,
		&order,
		&offers,
		&swaps,
		&peer,
		&balance,
	)

	err := app.Run(os.Args)
	if err != nil {
		fatal(err)
	}
}

func getMakerClient(ctx *cli.Context) (ports.MakerClient, error) {
	return makerclient.NewService(getMakerURL(ctx))
}

func getMakerURL(ctx *cli.Context) string {
	if u := ctx.String(makerFlag.Name); u != "" {
		return u
	}
	return config.GetString(config.MakerURLKey)
}

func getRegistry(ctx *cli.Context) (ports.SwapRegistry, error) {
	url := ctx.String(cndFlag.Name)
	if url == "" {
		url = config.GetString(config.CndURLKey)
	}
	if url == "" {
		return nil, errors.New("set cnd url with --cnd or SWAPD_CND_URL")
	}
	return cnd.NewService(url, config.GetInt(config.RegistryRateLimitKey))
}

func printRespJSON(resp interface{}) {
	jsonBytes, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		fmt.Println("unable to decode response: ", err)
		return
	}

	fmt.Println(string(jsonBytes))
}

type invalidUsageError struct {
	ctx     *cli.Context
	command string
}

func (e *invalidUsageError) Error() string {
	return fmt.Sprintf("invalid usage of command %s", e.command)
}

func fatal(err error) {
	var e *invalidUsageError
	if errors.As(err, &e) {
		_ = cli.ShowCommandHelp(e.ctx, e.command)
	} else {
		_, _ = fmt.Fprintf(os.Stderr, "[swap] %v\n", err)
	}
	os.Exit(1)
}
