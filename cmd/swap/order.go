package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/comit-network/swapd/internal/core/domain"
	"github.com/comit-network/swapd/pkg/util"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
)

var order = cli.Command{
	Name:      "order",
	Usage:     "get the order published by the maker for a pair",
	ArgsUsage: "<pair>",
	Action:    orderAction,
}

var offers = cli.Command{
	Name:  "offers",
	Usage: "find the maker offers to buy an amount of some coin",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "buy_coin",
			Usage:    "the coin to buy: bitcoin or ether",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "sell_coin",
			Usage:    "the coin to sell: bitcoin or ether",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "buy_amount",
			Usage:    "the nominal amount to buy, ie. 0.5",
			Required: true,
		},
	},
	Action: offersAction,
}

func orderAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return &invalidUsageError{ctx, ctx.Command.Name}
	}

	client, err := getMakerClient(ctx)
	if err != nil {
		return err
	}

	resp, err := client.GetOrder(context.Background(), ctx.Args().First())
	if err != nil {
		return err
	}

	printRespJSON(resp)

	return nil
}

func offersAction(ctx *cli.Context) error {
	amount, err := decimal.NewFromString(ctx.String("buy_amount"))
	if err != nil {
		return fmt.Errorf("invalid buy amount: %w", err)
	}

	query := url.Values{}
	query.Set("buy_coin", strings.ToLower(ctx.String("buy_coin")))
	query.Set("sell_coin", strings.ToLower(ctx.String("sell_coin")))
	query.Set("buy_amount", amount.String())
	endpoint := fmt.Sprintf(
		"%s/offers?%s", strings.TrimRight(getMakerURL(ctx), "/"), query.Encode(),
	)

	resp, err := util.NewHTTPRequest(
		context.Background(), http.MethodGet, endpoint, nil, nil,
	)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return fmt.Errorf(
			"maker returned %d: %s", resp.StatusCode, strings.TrimSpace(string(resp.Body)),
		)
	}

	var found []domain.Offer
	if err := json.Unmarshal(resp.Body, &found); err != nil {
		return fmt.Errorf("failed to parse offers: %w", err)
	}

	printRespJSON(found)

	return nil
}
