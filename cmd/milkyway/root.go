package main

import (
	"os"

	"github.com/spf13/cobra"

	"milkyway/internal/config"
)

// resolveDataDir implements the teacher's --data-dir flag > env var >
// default precedence (CON-BD-022 in the teacher's terms), renamed to this
// domain's env var.
func resolveDataDir(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv("MILKYWAY_DATA_DIR"); v != "" {
		return v
	}
	return "./milkyway-data"
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "milkyway",
		Short:         "Post-quantum P2P secure messaging fabric",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	var dataDir string
	root.PersistentFlags().StringVar(&dataDir, "data-dir", "", "certificate store directory (default: $MILKYWAY_DATA_DIR or ./milkyway-data)")

	root.AddCommand(newCertCmd(&dataDir))
	root.AddCommand(newServeCmd(&dataDir))
	root.AddCommand(newPeerCmd(&dataDir))

	return root
}

// storePath returns the snapshot file path under the resolved data
// directory, creating the directory if absent.
func storePath(dataDir string) (string, error) {
	dir := resolveDataDir(dataDir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir + "/store.bin", nil
}

func defaultConfig(dataDir string) (config.Config, error) {
	path, err := storePath(dataDir)
	if err != nil {
		return config.Config{}, err
	}
	c := config.Default()
	c.StorePath = path
	return c, nil
}
