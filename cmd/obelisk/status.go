package obelisk

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/obelisk-org/obelisk"
)

func newStatusCmd() *cobra.Command {
	var proposalPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show each chain's deployment state for a proposal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			proposal, err := obelisk.LoadProposal(proposalPath)
			if err != nil {
				return fmt.Errorf("load proposal: %w", err)
			}

			bundle, err := proposal.Bundle()
			if err != nil {
				return err
			}

			registry, err := cfg.registry()
			if err != nil {
				return err
			}

			lggr, err := newLogger()
			if err != nil {
				return err
			}

			clients, err := dialClients(lggr, registry, bundle.ChainIDs())
			if err != nil {
				return err
			}

			inspectors := buildInspectors(clients)
			signable, err := obelisk.NewSignable(proposal, inspectors)
			if err != nil {
				return err
			}

			fmt.Printf("deployment %s (%d signatures)\n\n", bundle.Root, len(proposal.Signatures))

			t := newTable()
			t.AppendHeader(table.Row{"Chain", "Network", "Status", "Executed", "Active Deployment", "Quorum"})
			for _, chainID := range bundle.ChainIDs() {
				descriptor, derr := registry.Get(chainID)
				if derr != nil {
					return derr
				}

				manager := proposal.ChainMetadata[chainID].Manager
				state, serr := inspectors[chainID].GetDeploymentState(ctx, manager)
				if serr != nil {
					return fmt.Errorf("chain %d: fetch deployment state: %w", chainID, serr)
				}

				quorum, qerr := signable.CheckQuorum(ctx, chainID)
				if qerr != nil {
					return fmt.Errorf("chain %d: check quorum: %w", chainID, qerr)
				}

				active := state.ActiveDeploymentID.String()
				switch state.ActiveDeploymentID {
				case bundle.Root:
					active = successStyle.Sprint("this deployment")
				case (common.Hash{}):
					active = faintStyle.Sprint("none")
				}

				quorumCell := warnStyle.Sprint("pending")
				if quorum {
					quorumCell = successStyle.Sprint("reached")
				}

				t.AppendRow(table.Row{
					chainID,
					descriptor.Name,
					colorStatus(state.Status),
					fmt.Sprintf("%d/%d", state.ActionsExecuted, bundle.Chains[chainID].NumActions()),
					active,
					quorumCell,
				})
			}
			fmt.Println(t.Render())

			return nil
		},
	}

	cmd.Flags().StringVar(&proposalPath, "proposal", "", "Path to the proposal file")
	cmd.MarkFlagRequired("proposal")

	return cmd
}
