package main

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jrsteele09/incal-auth/rp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestHashAndCheckPassword(t *testing.T) {
	t.Setenv("ENV_FILE_PATH", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("SALT_ROUNDS", "4")

	out, err := execute(t, "hash-password", "s3cret")
	require.NoError(t, err)
	hash := strings.TrimSpace(out)
	require.True(t, strings.HasPrefix(hash, "$2a$04$"), hash)

	out, err = execute(t, "hash-password", "s3cret", "5")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(strings.TrimSpace(out), "$2a$05$"))

	out, err = execute(t, "check-password", "s3cret", hash)
	require.NoError(t, err)
	require.Equal(t, "match\n", out)

	out, err = execute(t, "check-password", "wrong", hash)
	require.ErrorIs(t, err, errPasswordMismatch)
	require.Equal(t, "no match\n", out)
	require.Equal(t, ExitCodePasswordMismatch, exitCode(err))
}

func TestHashPassword_InvalidRounds(t *testing.T) {
	t.Setenv("ENV_FILE_PATH", filepath.Join(t.TempDir(), "missing.env"))

	_, err := execute(t, "hash-password", "s3cret", "many")
	require.Error(t, err)

	_, err = execute(t, "hash-password", "s3cret", "99")
	require.Error(t, err)
}

func TestExitCode(t *testing.T) {
	require.Equal(t, ExitCodeLoginRequired, exitCode(errors.Wrap(rp.ErrLoginRequired, "refresh failed")))
	require.Equal(t, ExitCodeError, exitCode(errors.New("boom")))
}
