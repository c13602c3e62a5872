package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"parley/internal/crypto"
)

// keygen --key FILE: generate and save a fresh key pair.
func keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new private key file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if keyFile == "" {
				return fmt.Errorf("--key required")
			}
			if _, err := os.Stat(keyFile); err == nil {
				return fmt.Errorf("refusing to overwrite %q", keyFile)
			}
			priv, pub, err := crypto.GenerateKeyPair()
			if err != nil {
				return err
			}
			if err := crypto.SaveKeyFile(keyFile, priv); err != nil {
				return err
			}
			fmt.Printf("wrote %s (fingerprint %s)\n", keyFile, crypto.Fingerprint(pub.Slice()))
			return nil
		},
	}
}
