package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/sessionless"
)

type claimsView struct {
	Subject   string `json:"sub"`
	Audience  string `json:"aud,omitempty"`
	Issuer    string `json:"iss,omitempty"`
	ID        string `json:"jti,omitempty"`
	IssuedAt  string `json:"iat,omitempty"`
	ExpiresAt string `json:"exp,omitempty"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func verifyCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "verify TOKEN",
		Short: "Verify a token and print its claims",
		Long: `Verify TOKEN with the configured secret, audience and issuer.
On success the claims are printed as JSON. On failure the error code
(for example token_expired or invalid_signature) is reported and the
command exits non-zero.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := g.newCodec(nil)
			if err != nil {
				return err
			}

			claims, err := codec.Verify(args[0])
			if err != nil {
				if code := sessionless.VerificationErrorCode(err); code != "" {
					return fmt.Errorf("%s: %w", code, err)
				}
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(claimsView{
				Subject:   claims.Subject,
				Audience:  claims.Audience,
				Issuer:    claims.Issuer,
				ID:        claims.ID,
				IssuedAt:  formatTime(claims.IssuedAt),
				ExpiresAt: formatTime(claims.ExpiresAt),
			})
		},
	}
}
