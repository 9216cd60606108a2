package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginEmail string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate against the chat backend",
	Long: `Authenticate with email and password and cache the access token.

The password is read from the terminal, or from STREAMCHAT_PASSWORD
when set (for scripting).

Examples:
  streamchat login --email me@example.com`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "account email")
	loginCmd.MarkFlagRequired("email")
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	password := os.Getenv("STREAMCHAT_PASSWORD")
	if password == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		password = string(raw)
	}

	tokens, err := apiClient.Login(ctx, loginEmail, password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	if err := saveToken(cfg.TokenFile, tokens.AccessToken); err != nil {
		return fmt.Errorf("cache token: %w", err)
	}
	if tokens.RefreshToken != "" {
		if err := saveToken(cfg.TokenFile+".refresh", tokens.RefreshToken); err != nil {
			return fmt.Errorf("cache refresh token: %w", err)
		}
	}

	me, err := apiClient.Me(ctx)
	if err != nil {
		return fmt.Errorf("verify credentials: %w", err)
	}

	fmt.Printf("Logged in as %s (%s)\n", me.Username, me.Email)
	return nil
}

// saveToken writes the access token with user-only permissions.
func saveToken(path, token string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(token+"\n"), 0600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}
