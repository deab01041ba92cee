// Command commenergyctl is an operator tool for the Commenergy API: it
// exports the sharing coefficients of a community and lists its versions
// without going through the dashboard.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"commenergy-backend/internal/domain"
	"commenergy-backend/internal/infrastructure/commenergyapi"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	apiURL      string
	email       string
	password    string
	token       string
	communityID string
	timeout     time.Duration
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:           "commenergyctl",
	Short:         "Operator tool for Commenergy sharing coefficients",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := zerolog.WarnLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		zerolog.SetGlobalLevel(level)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		return nil
	},
}

func init() {
	viper.AutomaticEnv()

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&apiURL, "api-url", "", "remote API base URL (env API_BASE_URL)")
	pf.StringVar(&email, "email", "", "login email (env COMMENERGY_EMAIL)")
	pf.StringVar(&password, "password", "", "login password (env COMMENERGY_PASSWORD)")
	pf.StringVar(&token, "token", "", "bearer token, skips login (env COMMENERGY_TOKEN)")
	pf.StringVar(&communityID, "community", "", "community id")
	pf.DurationVar(&timeout, "timeout", 30*time.Second, "timeout for the whole command")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(exportCmd, versionsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// flagOrEnv returns the flag value, falling back to the environment.
func flagOrEnv(flag, env string) string {
	if flag != "" {
		return flag
	}
	return viper.GetString(env)
}

func newClient() (*commenergyapi.Client, error) {
	base := strings.TrimRight(flagOrEnv(apiURL, "API_BASE_URL"), "/")
	if base == "" {
		return nil, errors.New("--api-url or API_BASE_URL is required")
	}
	return commenergyapi.New(base, timeout), nil
}

// openSession uses a ready token when given, otherwise logs in.
func openSession(ctx context.Context, client *commenergyapi.Client) (domain.Session, error) {
	if t := flagOrEnv(token, "COMMENERGY_TOKEN"); t != "" {
		return domain.Session{ID: "cli", Token: t, User: domain.AuthUser{ID: "cli"}}, nil
	}
	e, p := flagOrEnv(email, "COMMENERGY_EMAIL"), flagOrEnv(password, "COMMENERGY_PASSWORD")
	if e == "" || p == "" {
		return domain.Session{}, errors.New("credentials required: --token, or --email and --password")
	}
	res, err := client.Login(ctx, e, p)
	if err != nil {
		return domain.Session{}, fmt.Errorf("login: %w", err)
	}
	log.Debug().Str("user_id", res.User.ID).Msg("logged in")
	return domain.Session{ID: "cli", Token: res.Token, User: res.User}, nil
}

func requireCommunity() error {
	if communityID == "" {
		return errors.New("--community is required")
	}
	return nil
}
