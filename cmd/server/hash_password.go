package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/phrazzld/boxpack-api/internal/service/auth"
)

// newHashPasswordCommand prints bcrypt hashes for seeding users directly in
// the database, e.g. the first manager account.
func newHashPasswordCommand() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-password [password...]",
		Short: "Print bcrypt hashes for passwords given as arguments or on stdin, one per line",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
				return fmt.Errorf("cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
			}
			if len(args) == 0 {
				var err error
				if args, err = readPasswords(cmd.InOrStdin()); err != nil {
					return err
				}
			}
			return hashPasswords(auth.NewBcryptVerifier(cost), args, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	return cmd
}

func readPasswords(r io.Reader) ([]string, error) {
	var passwords []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			passwords = append(passwords, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read passwords: %w", err)
	}
	return passwords, nil
}

func hashPasswords(hasher auth.PasswordVerifier, passwords []string, out io.Writer) error {
	for _, pw := range passwords {
		hash, err := hasher.Hash(pw)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(out, hash); err != nil {
			return err
		}
	}
	return nil
}
