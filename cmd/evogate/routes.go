package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/nao1215/evogate/internal/config"
	"github.com/nao1215/evogate/internal/gateway"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newRoutesCmd は公開ルートの一覧を表示するコマンドを生成する。
func newRoutesCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the route table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			server, err := gateway.NewServer(cfg)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "METHOD\tPATTERN\tUPSTREAM")
			for _, r := range server.Routes() {
				fmt.Fprintf(w, "%s\t%s\t%s %s\n", r.Method, r.Pattern, r.Operation.Method, r.Operation.Path)
			}
			return w.Flush()
		},
	}
}
