// Command seed creates the initial admin account. Running it again leaves an
// existing account untouched.
package main

import (
	"context"
	"os"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/ovaphlow/pitchfork/service-portfolio-go/internal/config"
	"github.com/ovaphlow/pitchfork/service-portfolio-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-portfolio-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-portfolio-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-portfolio-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-portfolio-go/pkg/utilities"
)

const defaultSeedTimeout = 30 * time.Second

type seedConfig struct {
	name     string
	email    string
	password string
	cost     int
	timeout  time.Duration
}

// ensurer creates a user unless the email is taken.
type ensurer interface {
	EnsureUser(ctx context.Context, in user.RegisterInput) (*entity.User, bool, error)
}

// NewSeedCmd creates the seed command.
func NewSeedCmd() *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the admin user",
		Long: `Creates the admin account used to manage the portfolio.
This command is idempotent - an existing account with the same email is left as is.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.name, "name", "Admin User", "display name of the admin user")
	cmd.Flags().StringVar(&cfg.email, "email", "admin@portfolio.com", "email of the admin user")
	cmd.Flags().StringVar(&cfg.password, "password", "admin123456", "initial password of the admin user")
	cmd.Flags().IntVar(&cfg.cost, "bcrypt-cost", user.DefaultCost, "bcrypt work factor")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")

	return cmd
}

func runSeed(cmd *cobra.Command, cfg *seedConfig) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	cmd.Println("Connecting to database...")
	db, err := database.Connect(database.ConfigFromEnv())
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer db.Close()

	users := repo.NewUserRepo(db)
	if err := users.EnsureTable(ctx); err != nil {
		return err
	}
	return seedAdmin(ctx, cmd, user.NewUserService(users, user.BcryptHasher{Cost: cfg.cost}, nil), cfg)
}

func seedAdmin(ctx context.Context, cmd *cobra.Command, svc ensurer, cfg *seedConfig) error {
	u, created, err := svc.EnsureUser(ctx, user.RegisterInput{Name: cfg.name, Email: cfg.email, Password: cfg.password})
	if err != nil {
		return oops.With("operation", "seed admin user").Wrap(err)
	}
	if !created {
		cmd.Printf("Admin user already exists: %s\n", u.Email)
		return nil
	}
	cmd.Printf("Admin user created: %s (id %s)\n", u.Email, u.ID)
	return nil
}

func main() {
	config.LoadDotenv()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err == nil {
		defer lg.Sync()
	}

	if err := NewSeedCmd().Execute(); err != nil {
		if lg != nil {
			lg.Sugar().Errorw("seed failed", "err", err)
		}
		os.Exit(1)
	}
}
