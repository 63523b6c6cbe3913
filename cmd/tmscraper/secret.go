package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tmscraper/pkg/config"
	"tmscraper/pkg/identity"
	"tmscraper/pkg/logger"
	"tmscraper/pkg/secrets"
	"tmscraper/pkg/ui"
)

var showSecret bool

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage stored secrets",
	Long: `Manage secrets kept outside the configuration file.

Secrets are stored in the system keychain when available, otherwise in an
encrypted file in the tmscraper config directory. They can also be supplied
through TMSCRAPER_SECRET_<NAME> environment variables.

Known secrets:
  tor-control-password   password for the Tor control port`,
}

var secretSetCmd = &cobra.Command{
	Use:   "set <name>",
	Short: "Store a secret (the value is read from the terminal)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := secrets.NewManager()
		if err != nil {
			return err
		}

		value, err := readSecret(fmt.Sprintf("Value for %s: ", args[0]))
		if err != nil {
			return err
		}
		if err := m.Set(args[0], value); err != nil {
			return err
		}
		ui.PrintSuccess("Secret stored: " + args[0])
		return nil
	},
}

var secretGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Show a stored secret (masked unless --show)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := secrets.NewManager()
		if err != nil {
			return err
		}
		value, err := m.Get(args[0])
		if err != nil {
			return err
		}
		if !showSecret {
			value = secrets.Mask(value)
		}
		fmt.Fprintln(cmd.OutOrStdout(), value)
		return nil
	},
}

var secretListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored secret names",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := secrets.NewManager()
		if err != nil {
			return err
		}
		names := m.List()
		if len(names) == 0 {
			ui.PrintInfo("Secrets", "none stored")
			return nil
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var secretDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a stored secret",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := secrets.NewManager()
		if err != nil {
			return err
		}
		if err := m.Delete(args[0]); err != nil {
			return err
		}
		ui.PrintSuccess("Secret deleted: " + args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(secretCmd)
	secretCmd.AddCommand(secretSetCmd, secretGetCmd, secretListCmd, secretDeleteCmd)
	secretGetCmd.Flags().BoolVar(&showSecret, "show", false, "print the value unmasked")
}

// readSecret reads a value without echo when stdin is a terminal
func readSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read secret: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// resolveSecrets fills credentials the configuration leaves empty from the secret stores
func resolveSecrets(cfg *config.Config, log logger.Logger) {
	tor := &cfg.Identity.Tor
	if !strings.EqualFold(cfg.Identity.Provider, identity.ProviderTor) || tor.Embedded || tor.ControlPassword != "" {
		return
	}

	m, err := secrets.NewManager()
	if err != nil {
		log.WithError(err).Debug("Secret stores unavailable")
		return
	}
	if pw := m.Lookup(secrets.TorControlPassword); pw != "" {
		tor.ControlPassword = pw
		log.Debug("Tor control password loaded from secret store")
	}
}
