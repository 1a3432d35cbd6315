package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bakushin-github/bakushin.dev/internal/nav"
)

func newRoutesCmd(root *rootOptions) *cobra.Command {
	var withSlugs bool
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the listing routes, and optionally detail routes, to pre-render",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, root)
			if err != nil {
				return err
			}
			defer func() { _ = a.close(ctx) }()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, nav.ListingPath)
			for _, page := range a.catalog.StaticPages(ctx) {
				fmt.Fprintln(out, nav.PageURL(page))
			}
			if withSlugs {
				for _, slug := range a.catalog.StaticSlugs(ctx) {
					fmt.Fprintln(out, nav.ListingPath+"/"+slug)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withSlugs, "slugs", false, "also list one detail route per work")
	return cmd
}
