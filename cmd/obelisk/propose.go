package obelisk

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/obelisk-org/obelisk"
	"github.com/obelisk-org/obelisk/sdk/relay"
)

func newProposeCmd() *cobra.Command {
	var (
		proposalPath string
		relayerURL   string
		yes          bool
	)

	cmd := &cobra.Command{
		Use:   "propose",
		Short: "Submit a proposal to the approval service",
		Long: `Assembles the cross-chain proposal request: the serialized bundle is
stored with the approval service first, then the request referencing it by
content id is relayed for multi-party approval. RELAYER_TOKEN from the
environment (or a .env file) authenticates the submission when set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			proposal, err := obelisk.LoadProposal(proposalPath)
			if err != nil {
				return fmt.Errorf("load proposal: %w", err)
			}

			bundle, err := proposal.Bundle()
			if err != nil {
				return err
			}

			url := relayerURL
			if url == "" {
				url = cfg.Relayer.URL
			}
			if url == "" {
				return errors.New("no relayer URL configured, set relayer.url in the config file or pass --relayer-url")
			}

			var opts []relay.Option
			if token := loadEnv("RELAYER_TOKEN"); token != "" {
				opts = append(opts, relay.WithAuthToken(token))
			}
			relayer := relay.NewHTTPRelayer(url, opts...)

			fmt.Printf("deployment %s\n\n%s\n", bundle.Root, proposal.Describe())
			if !yes && !confirmPrompt(fmt.Sprintf("Submit this proposal to %s", url)) {
				return errors.New("aborted")
			}

			request, err := proposal.AssembleRequest(cmd.Context(), relayer)
			if err != nil {
				return err
			}

			fmt.Printf("submitted deployment %s\n", request.Tree.Root)
			fmt.Printf("  content id: %s\n", successStyle.Sprint(request.ContentID))
			fmt.Printf("  chains: %v\n", request.ChainIDs)

			return nil
		},
	}

	cmd.Flags().StringVar(&proposalPath, "proposal", "", "Path to the proposal file")
	cmd.Flags().StringVar(&relayerURL, "relayer-url", "", "Approval service base URL (overrides the config file)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	cmd.MarkFlagRequired("proposal")

	return cmd
}
