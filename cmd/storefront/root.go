package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "storefront",
		Short: "Storefront widgets: add-to-cart controls and merchant content blocks",
		Long: `storefront serves merchant-configured widgets as HTML fragments together
with their add-to-cart controls.

Configuration comes from STOREFRONT_* environment variables; flags on the
subcommands override the most common ones.

  storefront serve --widgets widgets.yaml
  storefront validate widgets.yaml
  storefront kinds`,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newValidateCmd(), newKindsCmd())
	return root
}
