package app

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/custodia-labs/cms-mirror/internal/adapters/driven/auth"
	"github.com/custodia-labs/cms-mirror/internal/core/ports/driven"
)

func newHashPasswordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Hash an admin password for ADMIN_PASSWORD_HASH",
		Long: `Read a password from the first line of standard input and print its bcrypt
hash, suitable for the ADMIN_PASSWORD_HASH setting.

  printf '%s\n' "$PASSWORD" | cms-mirror hash-password`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cost, err := cmd.Flags().GetInt("cost")
			if err != nil {
				return err
			}
			if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
				return fmt.Errorf("cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
			}
			// Tokens are never issued here, so the adapter needs no secret.
			return hashPassword(auth.NewAdapterWithCost("", cost), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().Int("cost", bcrypt.DefaultCost, "bcrypt cost factor")
	return cmd
}

// hashPassword hashes the first line of in and writes the hash to out
func hashPassword(adapter driven.AuthAdapter, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		return errors.New("no password on standard input")
	}
	password := strings.TrimRight(scanner.Text(), "\r")
	if password == "" {
		return errors.New("password must not be empty")
	}

	hash, err := adapter.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = fmt.Fprintln(out, hash)
	return err
}
