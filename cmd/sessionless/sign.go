package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/sessionless/jwt"
)

func signCmd(g *globalFlags) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "sign SUBJECT",
		Short: "Sign a token for a subject",
		Long: `Sign a token whose sub claim is SUBJECT and print it.

Examples:
  sessionless sign alice
  sessionless sign alice --ttl 30m --audience web`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if ttl < 0 {
				return fmt.Errorf("ttl must be >= 0")
			}
			codec, err := g.newCodec(nil)
			if err != nil {
				return err
			}

			now := time.Now()
			claims := jwt.Claims{
				Subject:  args[0],
				Audience: g.audience,
				Issuer:   g.issuer,
				ID:       uuid.NewString(),
				IssuedAt: now,
			}
			if ttl > 0 {
				claims.ExpiresAt = now.Add(ttl)
			}

			token, err := codec.Sign(claims)
			if err != nil {
				return err
			}
			g.logger.Debug("signed token", "subject", claims.Subject, "jti", claims.ID, "codec", g.codec)
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime; 0 issues a token without exp")
	return cmd
}
