package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Astrolithia/qvtu-shopping/internal/auth"
	"github.com/Astrolithia/qvtu-shopping/internal/event"
	"github.com/Astrolithia/qvtu-shopping/internal/repository/postgres"
	"github.com/Astrolithia/qvtu-shopping/internal/service"
)

func newCreateAdminCmd(opts *rootOptions) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Long:  `Create an account with the admin role. When --password is omitted a random one is generated and printed once.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			generated := password == ""
			if generated {
				var err error
				password, err = auth.GeneratePassword(auth.GeneratedPasswordLength)
				if err != nil {
					return err
				}
			}

			db, closeDB, err := connect(cmd.Context(), opts.cfg, opts.logger)
			if err != nil {
				return fmt.Errorf("connect to postgres: %w", err)
			}
			defer closeDB()

			svc := service.NewAuthService(
				postgres.NewUserRepository(db),
				postgres.NewCustomerRepository(db),
				auth.NewBcryptHasher(opts.cfg.BcryptCost),
				auth.NewJWTManager(opts.cfg.JWTSecret, opts.cfg.JWTIssuer, opts.cfg.JWTAccessTTL),
				event.NewProducer(event.NewLogPublisher(opts.logger), opts.logger),
				opts.logger,
			)

			user, err := svc.CreateAdmin(cmd.Context(), email, password)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Created admin %s (%s)\n", user.Email, user.ID)
			if generated {
				fmt.Fprintf(out, "Generated password: %s\n", password)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "admin email address")
	cmd.Flags().StringVar(&password, "password", "", "admin password (generated when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
