package main

import (
	"strconv"

	"github.com/jrsteele09/incal-auth/internal/config"
	"github.com/jrsteele09/incal-auth/users"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password PASSWORD [ROUNDS]",
		Short: "Print the bcrypt hash of a password",
		Long:  "Print the bcrypt hash of a password. ROUNDS defaults to SALT_ROUNDS.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(envFile)
			if err != nil {
				return err
			}
			rounds := c.GetSaltRounds()
			if len(args) == 2 {
				if rounds, err = strconv.Atoi(args[1]); err != nil {
					return errors.Wrapf(err, "non-numeric rounds %q", args[1])
				}
			}

			hasher, err := users.NewPasswordHasher(rounds)
			if err != nil {
				return err
			}
			hash, err := hasher.Hash(args[0])
			if err != nil {
				return err
			}
			printf(cmd, "%s\n", hash)
			return nil
		},
	}
}

func newCheckPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-password PASSWORD HASH",
		Short: "Check a password against a bcrypt hash",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			hasher, err := users.NewPasswordHasher(bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			if !hasher.Verify(args[0], args[1]) {
				printf(cmd, "no match\n")
				return errPasswordMismatch
			}
			printf(cmd, "match\n")
			return nil
		},
	}
}
