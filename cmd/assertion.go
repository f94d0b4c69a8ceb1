package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/personar/profile-service/internal/core/domain"
	"github.com/personar/profile-service/internal/infrastructure/identity"
)

var assertionCmd = &cobra.Command{
	Use:   "assertion",
	Short: "Issue an external identity assertion for local testing",
	Long: `Print a PASETO v4.local assertion signed with IDENTITY_ASSERTION_KEY, the
same shape the identity provider sends to /signup/external and /login/external.`,
	RunE: runAssertion,
}

func init() {
	rootCmd.AddCommand(assertionCmd)

	assertionCmd.Flags().String("email", "", "Email the assertion vouches for")
	assertionCmd.Flags().String("name", "", "Display name claim")
	assertionCmd.Flags().Duration("ttl", 10*time.Minute, "Assertion lifetime")
	_ = assertionCmd.MarkFlagRequired("email")
}

func runAssertion(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd.Context())
	if err != nil {
		return err
	}
	if cfg.IdentityAssertionKey == "" {
		return errors.New("IDENTITY_ASSERTION_KEY is not set")
	}

	issuer, err := identity.NewAssertionVerifierFromHex(cfg.IdentityAssertionKey)
	if err != nil {
		return err
	}

	email, _ := cmd.Flags().GetString("email")
	name, _ := cmd.Flags().GetString("name")
	ttl, _ := cmd.Flags().GetDuration("ttl")

	fmt.Fprintln(cmd.OutOrStdout(), issuer.Issue(domain.ExternalIdentity{Email: email, DisplayName: name}, ttl))
	return nil
}
