package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Najib-Murshed-UWO/FinEdge/internal/devserver"
)

func (a *app) devServerCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "dev-server",
		Short: "Run an in-memory FinEdge API for local development",
		Long: fmt.Sprintf(`Run an in-memory FinEdge API seeded with demo data.

Demo users (password %q): alice (customer), bob (banker), carol (admin).
Stop with Ctrl+C.`, devserver.DemoPassword),
		RunE: func(cmd *cobra.Command, args []string) error {
			dc := a.cfg.DevServer
			if !cmd.Flags().Changed("port") {
				port = dc.Port
			}

			srv, err := devserver.New(devserver.Config{
				JWTSecret:       dc.JWTSecret,
				AccessTokenTTL:  dc.AccessTokenTTL,
				RefreshTokenTTL: dc.RefreshTokenTTL,
				Seed:            dc.Seed,
				Logger:          a.logger,
				AllowedOrigins:  dc.AllowedOrigins,
			})
			if err != nil {
				return err
			}

			a.printer.Info("FinEdge dev server on http://localhost:%d%s", port, devserver.APIPrefix)
			return srv.ListenAndServe(cmd.Context(), fmt.Sprintf(":%d", port))
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "Port to listen on")
	return cmd
}
