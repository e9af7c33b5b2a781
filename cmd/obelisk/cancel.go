package obelisk

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/obelisk-org/obelisk"
	"github.com/obelisk-org/obelisk/types"
)

func newCancelCmd() *cobra.Command {
	var (
		proposalPath string
		yes          bool
	)

	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the active deployments a proposal replaces",
		Long: `Executes only the cancel leaves of a signed proposal: every chain whose
manager still runs the deployment named by the proposal's cancel entry is
cancelled. Nothing else is submitted; run deploy afterwards to execute the
replacement.`,
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

			sortedSignatures, err := proposal.SortedSignatures()
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

			key, err := loadPrivateKey()
			if err != nil {
				return err
			}

			executors, _, err := buildExecutors(proposal, clients, key)
			if err != nil {
				return err
			}

			var cancelled int
			for _, chainID := range bundle.ChainIDs() {
				chain := bundle.Chains[chainID]
				if chain.Cancel == nil || chain.CancelDeploymentID == nil {
					continue
				}

				executor := executors[chainID]
				state, serr := executor.GetDeploymentState(ctx, proposal.ChainMetadata[chainID].Manager)
				if serr != nil {
					return fmt.Errorf("chain %d: fetch deployment state: %w", chainID, serr)
				}

				if state.Status == types.DeploymentStatusEmpty || state.Status.Terminal() {
					fmt.Printf("chain %d: no active deployment to cancel (status %s)\n", chainID, state.Status)
					continue
				}
				if state.ActiveDeploymentID != *chain.CancelDeploymentID {
					return fmt.Errorf(
						"chain %d: active deployment %s does not match cancel target %s",
						chainID, state.ActiveDeploymentID, chain.CancelDeploymentID,
					)
				}

				if !yes && !confirmPrompt(fmt.Sprintf("Cancel deployment %s on chain %d", state.ActiveDeploymentID, chainID)) {
					return errors.New("aborted")
				}

				result, cerr := executor.Cancel(
					ctx, proposal.ChainMetadata[chainID], bundle.Root, proposal.ValidUntil, *chain.Cancel, sortedSignatures,
				)
				if cerr != nil {
					return fmt.Errorf("chain %d: cancel: %w", chainID, cerr)
				}

				fmt.Printf("chain %d: cancelled %s in tx %s\n", chainID, warnStyle.Sprint(state.ActiveDeploymentID), result.Hash)
				cancelled++
			}

			if cancelled == 0 {
				fmt.Println("no cancel entries matched an active deployment")
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&proposalPath, "proposal", "", "Path to the proposal file")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	cmd.MarkFlagRequired("proposal")

	return cmd
}
