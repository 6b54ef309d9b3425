package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"agentlink/internal/app"
	"agentlink/internal/crypto"
	"agentlink/internal/domain"
	"agentlink/internal/transport"
)

// demoCmd runs two in-process entities through a full exchange: handshake,
// piggy-backed ping, encrypted pong, heartbeat, teardown.
func demoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run two in-process entities through a full exchange",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			idA, err := crypto.GenerateIdentity("agent-a")
			if err != nil {
				return err
			}
			idB, err := crypto.GenerateIdentity("agent-b")
			if err != nil {
				return err
			}

			lb := transport.NewLoopback()
			dir := transport.NewStaticDirectory()
			dir.Add(domain.PeerInfo{EntityID: idA.EntityID, SigningKey: idA.EdPub})
			dir.Add(domain.PeerInfo{EntityID: idB.EntityID, SigningKey: idB.EdPub})

			nodeA := app.New(idA, lb, dir, cfg)
			nodeB := app.New(idB, lb, dir, cfg)
			lb.Register(idA.EntityID, nodeA.HandleInbound)
			lb.Register(idB.EntityID, nodeB.HandleInbound)

			nodeA.Messages.OnMessage(func(m domain.DecryptedMessage) {
				fmt.Printf("[%s] seq=%d %s\n", idA.EntityID, m.Sequence, m.Plaintext)
			})
			nodeB.Messages.OnMessage(func(m domain.DecryptedMessage) {
				fmt.Printf("[%s] seq=%d %s\n", idB.EntityID, m.Sequence, m.Plaintext)
			})

			sess, err := nodeA.Messages.Connect(ctx, idB.EntityID, []byte(`{"action":"ping"}`))
			if err != nil {
				return err
			}
			fmt.Printf("session %s established (expires %s)\n",
				sess.ID(), sess.ExpiresAt().Format("15:04:05"))

			if _, err := nodeB.Messages.Send(ctx, idA.EntityID, []byte(`{"action":"pong"}`)); err != nil {
				return err
			}
			if err := nodeA.Messages.Heartbeat(ctx, idB.EntityID); err != nil {
				return err
			}

			nodeA.Messages.Close(idB.EntityID)
			fmt.Println("session closed")
			return nil
		},
	}
}
