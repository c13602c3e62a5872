package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"parley/internal/crypto"
)

// fingerprint --key FILE: print the public key fingerprint.
func fingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the fingerprint of a key file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if keyFile == "" {
				return fmt.Errorf("--key required")
			}
			_, pub, err := crypto.LoadKeyFile(keyFile)
			if err != nil {
				return err
			}
			fmt.Println(crypto.Fingerprint(pub.Slice()))
			return nil
		},
	}
}
