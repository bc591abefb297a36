package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Najib-Murshed-UWO/FinEdge/internal/client"
	"github.com/Najib-Murshed-UWO/FinEdge/internal/guard"
	"github.com/Najib-Murshed-UWO/FinEdge/internal/models"
)

func (a *app) loginCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login to FinEdge",
		Long:  `Authenticate with username and password and store the session tokens.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			user, err := c.Session.Login(cmd.Context(), username, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			a.printer.Success("Logged in as %s (%s)", user.Username, user.Role)
			a.printer.Info("Landing page: %s", guard.LandingPath(user.Role))
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (a *app) registerCmd() *cobra.Command {
	var req models.RegisterRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a FinEdge account and login",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			user, err := c.Session.Register(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("registration failed: %w", err)
			}
			a.printer.Success("Registered and logged in as %s (%s)", user.Username, user.Role)
			return nil
		},
	}

	cmd.Flags().StringVarP(&req.Username, "username", "u", "", "Username")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringVarP(&req.Password, "password", "p", "", "Password")
	cmd.Flags().StringVar(&req.Role, "role", "", "Role: customer, banker or admin (default customer)")
	cmd.Flags().StringVar(&req.FullName, "full-name", "", "Full name")
	cmd.Flags().StringVar(&req.Phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&req.Address, "address", "", "Postal address")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Logout and clear stored tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.Session.Logout(cmd.Context()); err != nil {
				return err
			}
			a.printer.Success("Logged out")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: a.authorized(nil, func(cmd *cobra.Command, c *client.Client, args []string) error {
			user := c.Session.User()
			return a.render(user,
				[]string{"ID", "USERNAME", "EMAIL", "ROLE"},
				[][]string{{user.ID, user.Username, user.Email, user.Role}})
		}),
	}
}

func (a *app) refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Rotate the stored access and refresh tokens",
		RunE: a.authorized(nil, func(cmd *cobra.Command, c *client.Client, args []string) error {
			if err := c.Session.RefreshAccessToken(cmd.Context()); err != nil {
				return fmt.Errorf("refresh failed: %w", err)
			}
			a.printer.Success("Tokens refreshed")
			return nil
		}),
	}
}
