package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"milkyway/internal/codec"
	"milkyway/internal/message"
	"milkyway/internal/transportsvc"
)

func newPeerCmd(dataDir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "peer",
		Short: "Dial another host and exchange messages",
	}
	cmd.AddCommand(newPeerPingCmd(dataDir))
	return cmd
}

func newPeerPingCmd(dataDir *string) *cobra.Command {
	var addr, signingSerial, encryptionSerial string
	var windowMS int

	cmd := &cobra.Command{
		Use:   "ping <addr>",
		Short: "Connect to a peer, send one Ping, and print the Pong",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr = args[0]
			identity, certs, err := resolveServiceIdentity(*dataDir, signingSerial, encryptionSerial)
			if err != nil {
				return err
			}
			svc := transportsvc.NewService(certs, identity, time.Duration(windowMS)*time.Millisecond)

			pong := make(chan *message.Message, 1)
			svc.Subscribe(transportsvc.Filter{}, func(peerID codec.Uint128, m *message.Message) {
				if m.MessageType == message.TypePong {
					pong <- m
				}
			})

			peerID, err := svc.Connect(addr)
			if err != nil {
				return fmt.Errorf("connecting to %s: %w", addr, err)
			}

			if !svc.SendMessage(peerID, message.New().SetType(message.TypePing).SetCurrentTimestamp()) {
				return fmt.Errorf("peer: failed to send ping")
			}

			select {
			case <-pong:
				fmt.Fprintln(cmd.OutOrStdout(), "pong received")
				return nil
			case <-time.After(10 * time.Second):
				return fmt.Errorf("peer: timed out waiting for pong")
			}
		},
	}
	cmd.Flags().StringVar(&signingSerial, "signing-serial", "", "this host's signing certificate serial (hex)")
	cmd.Flags().StringVar(&encryptionSerial, "encryption-serial", "", "this host's encryption certificate serial (hex)")
	cmd.Flags().IntVar(&windowMS, "freshness-window-ms", 5000, "handshake timestamp freshness window, in milliseconds")
	return cmd
}
