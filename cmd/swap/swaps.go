package main

import (
	"context"

	"github.com/comit-network/swapd/internal/core/domain"
	"github.com/urfave/cli/v2"
)

var swaps = cli.Command{
	Name:   "swaps",
	Usage:  "list the swaps known to cnd",
	Action: listSwapsAction,
	Subcommands: []*cli.Command{
		{
			Name:      "show",
			Usage:     "show the details of a swap",
			ArgsUsage: "<swap_id>",
			Action:    showSwapAction,
		},
	},
}

var peer = cli.Command{
	Name:   "peer",
	Usage:  "print the peer id and listen addresses of cnd",
	Action: peerAction,
}

type swapInfo struct {
	ID           string                `json:"id"`
	Role         domain.Role           `json:"role"`
	Status       domain.SwapStatus     `json:"status"`
	Counterparty string                `json:"counterparty"`
	Parameters   domain.SwapParameters `json:"parameters"`
	Actions      []domain.ActionName   `json:"actions"`
}

func newSwapInfo(swap domain.Swap) swapInfo {
	actions := make([]domain.ActionName, 0, len(swap.Actions))
	for _, a := range swap.Actions {
		actions = append(actions, a.Name)
	}
	return swapInfo{
		ID:           swap.ID,
		Role:         swap.Role,
		Status:       swap.Status,
		Counterparty: swap.Counterparty,
		Parameters:   swap.Parameters,
		Actions:      actions,
	}
}

func listSwapsAction(ctx *cli.Context) error {
	registry, err := getRegistry(ctx)
	if err != nil {
		return err
	}

	list, err := registry.ListSwaps(context.Background())
	if err != nil {
		return err
	}

	resp := make([]swapInfo, 0, len(list))
	for _, s := range list {
		resp = append(resp, newSwapInfo(s))
	}

	printRespJSON(resp)

	return nil
}

func showSwapAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return &invalidUsageError{ctx, ctx.Command.Name}
	}

	registry, err := getRegistry(ctx)
	if err != nil {
		return err
	}

	swap, err := registry.GetSwap(context.Background(), ctx.Args().First())
	if err != nil {
		return err
	}

	printRespJSON(newSwapInfo(*swap))

	return nil
}

func peerAction(ctx *cli.Context) error {
	registry, err := getRegistry(ctx)
	if err != nil {
		return err
	}

	peerID, err := registry.GetPeerID(context.Background())
	if err != nil {
		return err
	}
	addresses, err := registry.GetListenAddresses(context.Background())
	if err != nil {
		return err
	}

	printRespJSON(map[string]interface{}{
		"peer_id":          peerID,
		"listen_addresses": addresses,
	})

	return nil
}
