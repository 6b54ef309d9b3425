package commands

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"agentlink/internal/config"
	"agentlink/internal/logging"
	"agentlink/internal/services/identity"
	"agentlink/internal/store"
)

var (
	home       string
	passphrase string
	configPath string

	cfg   config.Config
	files *store.FileStore
	idsvc *identity.Service
)

func Execute() error {
	root := &cobra.Command{
		Use:   "agentlink",
		Short: "Secure peer session CLI",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.Configure(logging.ProfileRuntime)

			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".agentlink")
			}

			var err error
			if cfg, err = config.Load(configPath); err != nil {
				return err
			}
			if files, err = store.NewFileStore(home); err != nil {
				return err
			}
			idsvc = identity.New(files)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "state dir (default ~/.agentlink)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase to protect keys")
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML config file")

	root.AddCommand(keygenCmd(), fingerprintCmd(), trustCmd(), demoCmd())
	return root.Execute()
}
