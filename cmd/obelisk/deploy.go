package obelisk

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/obelisk-org/obelisk"
)

func newDeployCmd() *cobra.Command {
	var (
		proposalPath string
		maxParallel  int
		yes          bool
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Execute a signed proposal across all its chains",
		Long: `Drives every chain of a signed proposal to a terminal state: approves the
deployment on each manager contract, executes the action batches sized by
gas simulation and finalizes the upgrade. Chains run concurrently; a chain
that fails never stops its siblings. Re-running a partially executed
deployment resumes from the on-chain action counter.`,
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

			key, err := loadPrivateKey()
			if err != nil {
				return err
			}

			executors, simulators, err := buildExecutors(proposal, clients, key)
			if err != nil {
				return err
			}

			fmt.Printf("deployment %s\n\n%s\n", bundle.Root, proposal.Describe())
			if !yes && !confirmPrompt(fmt.Sprintf("Execute this deployment across %d chains", len(bundle.ChainIDs()))) {
				return errors.New("aborted")
			}

			opts := []obelisk.ExecutableOption{obelisk.WithLogger(lggr)}
			switch {
			case maxParallel > 0:
				opts = append(opts, obelisk.WithMaxParallel(maxParallel))
			case cfg.MaxParallel > 0:
				opts = append(opts, obelisk.WithMaxParallel(cfg.MaxParallel))
			}

			executable, err := obelisk.NewExecutable(proposal, executors, simulators, registry, opts...)
			if err != nil {
				return err
			}

			result, err := executable.Execute(ctx)
			if err != nil {
				return err
			}

			renderResult(result, registry)

			if !result.Succeeded() {
				return fmt.Errorf("deployment failed on chains %v", result.FailedChains())
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&proposalPath, "proposal", "", "Path to the proposal file")
	cmd.Flags().IntVar(&maxParallel, "max-parallel", 0, "Maximum number of chains executing at once (0 = unlimited)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	cmd.MarkFlagRequired("proposal")

	return cmd
}
