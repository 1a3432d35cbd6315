package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bakushin-github/bakushin.dev/internal/works"
)

func newProbeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Print the schema variant the content API stores skills in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, root)
			if err != nil {
				return err
			}
			defer func() { _ = a.close(ctx) }()

			variant := works.NewResolver(a.source, works.WithLogger(a.logger.Named("probe"))).Resolve(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "variant: %s\nquery variant: %s\n", variant, variant.Effective())
			return nil
		},
	}
}
