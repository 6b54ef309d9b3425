package commands

import (
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	"agentlink/internal/crypto"
	"agentlink/internal/domain"
)

func trustCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "trust <entity-id> <base64-signing-key>",
		Short: "Record a peer's entity id and signing key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := base64.StdEncoding.DecodeString(args[1])
			if err != nil {
				return fmt.Errorf("decode signing key: %w", err)
			}
			key, err := domain.Ed25519PublicFromBytes(raw)
			if err != nil {
				return err
			}
			info := domain.PeerInfo{EntityID: args[0], SigningKey: key, Addr: addr}
			if err := files.SavePeer(info); err != nil {
				return err
			}
			fmt.Printf("Trusted %s (%s).\n", info.EntityID, crypto.Fingerprint(key.Slice()))
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "peer address hint")
	return cmd
}
