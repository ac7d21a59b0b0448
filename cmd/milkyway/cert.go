package main

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/spf13/cobra"

	"milkyway/internal/certstore"
	"milkyway/internal/codec"
	"milkyway/internal/pki"
	"milkyway/internal/pqcrypto"
)

// newSerial draws a random non-zero 128-bit serial, retrying on
// collision against store. Collisions are astronomically unlikely but
// checked anyway since a colliding Add just silently fails otherwise.
func newSerial(store *certstore.Store) (codec.Uint128, error) {
	for i := 0; i < 8; i++ {
		var buf [16]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return codec.Uint128{}, err
		}
		serial := codec.Uint128{
			Lo: binary.LittleEndian.Uint64(buf[0:8]),
			Hi: binary.LittleEndian.Uint64(buf[8:16]),
		}
		if serial.IsZero() {
			continue
		}
		if store.GetSigning(serial) == nil && store.GetEncryption(serial) == nil {
			return serial, nil
		}
	}
	return codec.Uint128{}, fmt.Errorf("cert: could not draw a free serial after 8 attempts")
}

func openStore(dataDir string) (*certstore.Store, error) {
	cfg, err := defaultConfig(dataDir)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	store := certstore.New(cfg.StorePath)
	if err := store.Load(); err != nil {
		return nil, fmt.Errorf("loading store: %w", err)
	}
	return store, nil
}

func newCertCmd(dataDir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cert",
		Short: "Manage the certificate store",
	}

	cmd.AddCommand(newCertInitCmd(dataDir))
	cmd.AddCommand(newCertIssueSigningCmd(dataDir))
	cmd.AddCommand(newCertIssueEncryptionCmd(dataDir))
	cmd.AddCommand(newCertListCmd(dataDir))
	cmd.AddCommand(newCertRemoveCmd(dataDir))
	cmd.AddCommand(newCertVerifyCmd(dataDir))

	return cmd
}

func newCertInitCmd(dataDir *string) *cobra.Command {
	var name, subject string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a new root certificate",
		RunE: func(cmd *cobra.Command, args []string) error {
			certName, err := certNameFromSubject(name, subject)
			if err != nil {
				return err
			}
			store, err := openStore(*dataDir)
			if err != nil {
				return err
			}
			if store.GetRoot() != nil {
				return fmt.Errorf("cert: a root certificate already exists in this store")
			}
			kp, err := pqcrypto.GenerateSigningKeyPair()
			if err != nil {
				return fmt.Errorf("generating root key pair: %w", err)
			}
			root := &pki.RootCertificate{Public: kp.Public, Secret: kp.Secret, CertName: certName}
			store.SetRootCertificate(root)
			if err := store.Commit(); err != nil {
				return fmt.Errorf("committing store: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "root certificate generated")
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "root certificate name")
	cmd.Flags().StringVar(&subject, "subject", "", "root certificate subject DN, e.g. \"CN=My Root,O=My Org\" (alternative to --name)")
	return cmd
}

func newCertIssueSigningCmd(dataDir *string) *cobra.Command {
	var name, subject, parent string
	var signCerts, signMessages bool
	cmd := &cobra.Command{
		Use:   "issue-signing",
		Short: "Issue a new signing certificate",
		RunE: func(cmd *cobra.Command, args []string) error {
			certName, err := certNameFromSubject(name, subject)
			if err != nil {
				return err
			}
			store, err := openStore(*dataDir)
			if err != nil {
				return err
			}
			parentSerial, parentCert, err := resolveSigningParent(store, parent)
			if err != nil {
				return err
			}
			serial, err := newSerial(store)
			if err != nil {
				return err
			}
			kp, err := pqcrypto.GenerateSigningKeyPair()
			if err != nil {
				return fmt.Errorf("generating key pair: %w", err)
			}
			flags := pki.Flags{}
			if signCerts {
				flags = flags.Or(pki.FlagSignCerts)
			}
			if signMessages {
				flags = flags.Or(pki.FlagSignMessages)
			}
			cert := &pki.SigningCertificate{
				SerialNum: serial, ParentNum: parentSerial,
				Public: kp.Public, Secret: kp.Secret,
				CertName: certName, FlagBits: flags,
			}
			sig, err := pki.SignValue(parentCert, cert.CloneStripSignatureAndSecret(), pqcrypto.HashNone)
			if err != nil {
				return fmt.Errorf("signing certificate: %w", err)
			}
			cert.Sig = &sig
			if !store.AddSigningCertificate(cert) {
				return fmt.Errorf("cert: store rejected the new signing certificate")
			}
			if err := store.Commit(); err != nil {
				return fmt.Errorf("committing store: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "issued signing certificate %s\n", serial)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "certificate name")
	cmd.Flags().StringVar(&subject, "subject", "", "certificate subject DN, e.g. \"CN=leaf-signer,O=MilkyWay\" (alternative to --name)")
	cmd.Flags().StringVar(&parent, "parent", "0", "parent signing certificate serial (hex; \"0\" for root)")
	cmd.Flags().BoolVar(&signCerts, "can-sign-certs", false, "grant SIGN_CERTS")
	cmd.Flags().BoolVar(&signMessages, "can-sign-messages", true, "grant SIGN_MESSAGES")
	return cmd
}

func newCertIssueEncryptionCmd(dataDir *string) *cobra.Command {
	var name, subject, parent string
	cmd := &cobra.Command{
		Use:   "issue-encryption",
		Short: "Issue a new encryption certificate under a signing certificate",
		RunE: func(cmd *cobra.Command, args []string) error {
			certName, err := certNameFromSubject(name, subject)
			if err != nil {
				return err
			}
			if parent == "" {
				return fmt.Errorf("--parent is required (encryption certs cannot be root-signed)")
			}
			store, err := openStore(*dataDir)
			if err != nil {
				return err
			}
			parentSerial, err := parseSerial(parent)
			if err != nil {
				return err
			}
			parentCert := store.GetSigning(parentSerial)
			if parentCert == nil {
				return fmt.Errorf("cert: parent signing certificate %s not found", parent)
			}
			serial, err := newSerial(store)
			if err != nil {
				return err
			}
			kp, err := pqcrypto.GenerateEncryptionKeyPair()
			if err != nil {
				return fmt.Errorf("generating key pair: %w", err)
			}
			cert := &pki.EncryptionCertificate{
				SerialNum: serial, ParentNum: parentSerial,
				Public: kp.Public, Secret: kp.Secret,
				CertName: certName,
			}
			sig, err := pki.SignValue(parentCert, cert.CloneStripSignatureAndSecret(), pqcrypto.HashNone)
			if err != nil {
				return fmt.Errorf("signing certificate: %w", err)
			}
			cert.Sig = &sig
			if !store.AddEncryptionCertificate(cert) {
				return fmt.Errorf("cert: store rejected the new encryption certificate")
			}
			if err := store.Commit(); err != nil {
				return fmt.Errorf("committing store: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "issued encryption certificate %s\n", serial)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "certificate name")
	cmd.Flags().StringVar(&subject, "subject", "", "certificate subject DN, e.g. \"CN=leaf-enc,O=MilkyWay\" (alternative to --name)")
	cmd.Flags().StringVar(&parent, "parent", "", "parent signing certificate serial (hex)")
	return cmd
}

// resolveSigningParent returns (parentSerial, parentCert) for a
// --parent flag that may be "0" (sign under the store's root) or a
// signing certificate's serial.
func resolveSigningParent(store *certstore.Store, parent string) (codec.Uint128, pki.Certificate, error) {
	serial, err := parseSerial(parent)
	if err != nil {
		return codec.Uint128{}, nil, err
	}
	if serial.IsZero() {
		root := store.GetRoot()
		if root == nil {
			return codec.Uint128{}, nil, fmt.Errorf("cert: no root certificate in this store")
		}
		return serial, root, nil
	}
	cert := store.GetSigning(serial)
	if cert == nil {
		return codec.Uint128{}, nil, fmt.Errorf("cert: parent signing certificate %s not found", parent)
	}
	return serial, cert, nil
}

func newCertListCmd(dataDir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every certificate in the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(*dataDir)
			if err != nil {
				return err
			}
			if root := store.GetRoot(); root != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "root: %s (serial 0)\n\n", root.Name())
			}
			rows := make([]*signingRow, 0)
			for _, c := range store.ListSigning() {
				rows = append(rows, &signingRow{
					Serial: c.Serial().String(), Name: c.Name(),
					Flags: c.Flags().String(), Parent: c.ParentNum.String(),
				})
			}
			printSigningTable(cmd.OutOrStdout(), rows)
			fmt.Fprintln(cmd.OutOrStdout())
			erows := make([]*encryptionRow, 0)
			for _, c := range store.ListEncryption() {
				erows = append(erows, &encryptionRow{
					Serial: c.Serial().String(), Name: c.Name(), Parent: c.ParentNum.String(),
				})
			}
			printEncryptionTable(cmd.OutOrStdout(), erows)
			return nil
		},
	}
	return cmd
}

func newCertRemoveCmd(dataDir *string) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "remove <serial>",
		Short: "Remove a signing or encryption certificate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serial, err := parseSerial(args[0])
			if err != nil {
				return err
			}
			store, err := openStore(*dataDir)
			if err != nil {
				return err
			}
			switch kind {
			case "signing":
				store.RemoveSigning(serial)
			case "encryption":
				store.RemoveEncryption(serial)
			default:
				return fmt.Errorf("--type must be \"signing\" or \"encryption\"")
			}
			if err := store.Commit(); err != nil {
				return fmt.Errorf("committing store: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "removed")
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "type", "signing", "certificate type: signing or encryption")
	return cmd
}

func newCertVerifyCmd(dataDir *string) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "verify <serial>",
		Short: "Verify a certificate's chain up to the root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serial, err := parseSerial(args[0])
			if err != nil {
				return err
			}
			store, err := openStore(*dataDir)
			if err != nil {
				return err
			}
			var ok bool
			switch kind {
			case "signing":
				cert := store.GetSigning(serial)
				if cert == nil {
					return fmt.Errorf("cert: signing certificate %s not found", args[0])
				}
				ok = store.VerifySigningCertificate(cert)
			case "encryption":
				cert := store.GetEncryption(serial)
				if cert == nil {
					return fmt.Errorf("cert: encryption certificate %s not found", args[0])
				}
				ok = store.VerifyEncryptionCertificate(cert)
			default:
				return fmt.Errorf("--type must be \"signing\" or \"encryption\"")
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "chain INVALID")
				return fmt.Errorf("cert: chain verification failed")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "chain valid")
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "type", "signing", "certificate type: signing or encryption")
	return cmd
}
