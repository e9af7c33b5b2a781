package obelisk

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/obelisk-org/obelisk"
)

func newSignCmd() *cobra.Command {
	var proposalPath string

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a proposal with the configured private key",
		Long: `Signs the proposal's root digest with PRIVATE_KEY from the environment
(or a .env file) and appends the signature to the proposal file in place.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			proposal, err := obelisk.LoadProposal(proposalPath)
			if err != nil {
				return fmt.Errorf("load proposal: %w", err)
			}

			key, err := loadPrivateKey()
			if err != nil {
				return err
			}

			signable, err := obelisk.NewSignable(proposal, nil)
			if err != nil {
				return err
			}

			signer := obelisk.NewPrivateKeySigner(key)
			sig, err := signable.SignAndAppend(signer)
			if err != nil {
				return fmt.Errorf("sign proposal: %w", err)
			}

			file, err := os.Create(proposalPath)
			if err != nil {
				return err
			}
			defer file.Close()

			if err := proposal.Write(file); err != nil {
				return fmt.Errorf("write proposal: %w", err)
			}

			signerAddr, err := signer.GetAddress()
			if err != nil {
				return err
			}

			fmt.Printf("signed deployment %s\n", successStyle.Sprint(signable.Root()))
			fmt.Printf("  signer: %s\n", signerAddr)
			fmt.Printf("  r: %s\n  s: %s\n  v: %d\n", sig.R, sig.S, sig.V)

			return nil
		},
	}

	cmd.Flags().StringVar(&proposalPath, "proposal", "", "Path to the proposal file")
	cmd.MarkFlagRequired("proposal")

	return cmd
}
