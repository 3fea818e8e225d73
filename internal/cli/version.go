package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Astrolithia/qvtu-shopping/internal/app"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "shopctl %s\n", app.Version)
		},
	}
}
