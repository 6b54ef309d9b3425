package commands

import (
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"
)

func keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen <entity-id>",
		Short: "Generate identity keys and store them securely",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			id, fp, err := idsvc.Generate(passphrase, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Identity created for %s.\nFingerprint: %s\nPublic key:  %s\n",
				id.EntityID, fp, base64.StdEncoding.EncodeToString(id.EdPub.Slice()))
			return nil
		},
	}
}
