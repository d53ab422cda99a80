package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/corpledger-dev/corpledger/internal/config"
)

func newInitCommand(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				if _, err := os.Stat(a.cfgPath); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", a.cfgPath)
				}
			}
			if err := config.Save(a.cfgPath, config.Default()); err != nil {
				return err
			}
			fmt.Printf("Wrote %s; fill in the esi credentials and corp.corporation_id\n", a.cfgPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	return cmd
}
