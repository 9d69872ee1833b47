/*-------------------------------------------------------------------------
 *
 * jobs-feed - Secret Management Commands
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"jobs-feed/internal/crypto"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	secretFile string
	password   string
)

var generateKeyCmd = &cobra.Command{
	Use:   "generate-key",
	Short: "Create a key file for encrypting the database password",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return generateKeyCommand(cmd.OutOrStdout(), secretFile)
	},
}

var encryptPasswordCmd = &cobra.Command{
	Use:   "encrypt-password",
	Short: "Encrypt a database password for the configuration file",
	Long: `encrypt-password prints the database password encrypted with the key in
--secret-file. Put the output in database.password and set secret_file in the
configuration file (or JOBSFEED_SECRET_FILE) to the same key file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		pw := password
		if !cmd.Flags().Changed("password") {
			var err error
			if pw, err = promptPassword(cmd.ErrOrStderr()); err != nil {
				return err
			}
		}
		return encryptPasswordCommand(cmd.OutOrStdout(), secretFile, pw)
	},
}

func init() {
	for _, c := range []*cobra.Command{generateKeyCmd, encryptPasswordCmd} {
		c.Flags().StringVar(&secretFile, "secret-file", "jobs-feed.secret", "Path to the key file")
	}
	encryptPasswordCmd.Flags().StringVar(&password, "password", "",
		"Password to encrypt (prompted for when omitted)")
}

// generateKeyCommand writes a new key to path, refusing to replace one
func generateKeyCommand(w io.Writer, path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("key file %s already exists", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to check key file: %w", err)
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}
	if err := key.SaveToFile(path); err != nil {
		return fmt.Errorf("failed to save key: %w", err)
	}

	fmt.Fprintf(w, "Key written to %s\n", path)
	return nil
}

// encryptPasswordCommand prints password encrypted with the key at path
func encryptPasswordCommand(w io.Writer, path, pw string) error {
	if pw == "" {
		return fmt.Errorf("password is required")
	}

	key, err := crypto.LoadKeyFromFile(path)
	if err != nil {
		return fmt.Errorf("failed to load key: %w", err)
	}

	sealed, err := key.Encrypt(pw)
	if err != nil {
		return fmt.Errorf("failed to encrypt password: %w", err)
	}

	fmt.Fprintln(w, sealed)
	return nil
}

// promptPassword reads a password twice from the terminal without echo
func promptPassword(w io.Writer) (string, error) {
	fmt.Fprint(w, "Enter password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(w) // New line after password input
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	fmt.Fprint(w, "Confirm password: ")
	confirmBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("failed to read password confirmation: %w", err)
	}

	if string(passwordBytes) != string(confirmBytes) {
		return "", fmt.Errorf("passwords do not match")
	}
	return strings.TrimRight(string(passwordBytes), "\r\n"), nil
}
