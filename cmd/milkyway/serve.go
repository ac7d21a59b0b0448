package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"milkyway/internal/certsvc"
	"milkyway/internal/config"
	"milkyway/internal/modules/ping"
	"milkyway/internal/transportsvc"
)

func newServeCmd(dataDir *string) *cobra.Command {
	var signingSerial, encryptionSerial string
	var windowMS int
	cfg := config.Default()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the transport service, accepting inbound peer connections",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.HandshakeWindow = time.Duration(windowMS) * time.Millisecond
			if cfg.ListenAddr == "" {
				return fmt.Errorf("--listen is required")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			identity, certs, err := resolveServiceIdentity(*dataDir, signingSerial, encryptionSerial)
			if err != nil {
				return err
			}
			svc := transportsvc.NewService(certs, identity, cfg.HandshakeWindow)
			ping.Register(svc)

			fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", cfg.ListenAddr)
			return svc.Listen(cfg.ListenAddr)
		},
	}
	cmd.Flags().StringVar(&cfg.ListenAddr, "listen", "", "address to listen on, e.g. 0.0.0.0:7400")
	cmd.Flags().StringVar(&signingSerial, "signing-serial", "", "this host's signing certificate serial (hex)")
	cmd.Flags().StringVar(&encryptionSerial, "encryption-serial", "", "this host's encryption certificate serial (hex)")
	cmd.Flags().IntVar(&windowMS, "freshness-window-ms", 5000, "handshake timestamp freshness window, in milliseconds")
	return cmd
}

// resolveServiceIdentity opens the store behind a certsvc binder (the
// concurrency boundary every running service must go through, per
// spec.md §5) and resolves the two serials naming this host's identity.
func resolveServiceIdentity(dataDir, signingSerial, encryptionSerial string) (transportsvc.Identity, *certsvc.Client, error) {
	if signingSerial == "" || encryptionSerial == "" {
		return transportsvc.Identity{}, nil, fmt.Errorf("--signing-serial and --encryption-serial are both required")
	}
	signSerial, err := parseSerial(signingSerial)
	if err != nil {
		return transportsvc.Identity{}, nil, err
	}
	encSerial, err := parseSerial(encryptionSerial)
	if err != nil {
		return transportsvc.Identity{}, nil, err
	}
	store, err := openStore(dataDir)
	if err != nil {
		return transportsvc.Identity{}, nil, err
	}
	if store.GetSigning(signSerial) == nil {
		return transportsvc.Identity{}, nil, fmt.Errorf("cert: signing certificate %s not found", signingSerial)
	}
	if store.GetEncryption(encSerial) == nil {
		return transportsvc.Identity{}, nil, fmt.Errorf("cert: encryption certificate %s not found", encryptionSerial)
	}

	svc := certsvc.NewService(store, 64)
	identity := transportsvc.Identity{SigningSerial: signSerial, EncryptionSerial: encSerial}
	return identity, svc.Bind(), nil
}
