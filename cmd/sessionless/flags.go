package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/sessionless"
	"github.com/MrEthical07/sessionless/jwt"
	"github.com/MrEthical07/sessionless/jwt/jwxcodec"
)

const envPrefix = "SESSIONLESS_"

type globalFlags struct {
	secret   string
	audience string
	issuer   string
	leeway   time.Duration
	codec    string
	logLevel string

	logger *slog.Logger
}

func (g *globalFlags) register(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&g.secret, "secret", "", "HS256 signing secret (env SESSIONLESS_SECRET)")
	f.StringVar(&g.audience, "audience", "", "expected aud claim (env SESSIONLESS_AUDIENCE)")
	f.StringVar(&g.issuer, "issuer", "", "expected iss claim (env SESSIONLESS_ISSUER)")
	f.DurationVar(&g.leeway, "leeway", 0, "clock skew tolerance, at most 2m (env SESSIONLESS_LEEWAY)")
	f.StringVar(&g.codec, "codec", "golang-jwt", "token codec: golang-jwt or jwx (env SESSIONLESS_CODEC)")
	f.StringVar(&g.logLevel, "log-level", "info", "debug, info, warn or error (env SESSIONLESS_LOG_LEVEL)")
}

// resolve fills unset flags from the environment and builds the logger.
func (g *globalFlags) resolve(cmd *cobra.Command) error {
	flags := cmd.Flags()
	for name, dst := range map[string]*string{
		"secret":    &g.secret,
		"audience":  &g.audience,
		"issuer":    &g.issuer,
		"codec":     &g.codec,
		"log-level": &g.logLevel,
	} {
		if flags.Changed(name) {
			continue
		}
		if v, ok := lookupEnv(name); ok {
			*dst = v
		}
	}
	if !flags.Changed("leeway") {
		if v, ok := lookupEnv("leeway"); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %sLEEWAY: %w", envPrefix, err)
			}
			g.leeway = d
		}
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(g.logLevel)); err != nil {
		return fmt.Errorf("invalid log level %q", g.logLevel)
	}
	g.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

func lookupEnv(flag string) (string, bool) {
	key := envPrefix + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

var errNoSecret = errors.New("a signing secret is required (--secret or SESSIONLESS_SECRET)")

// newCodec builds the codec selected by --codec.
func (g *globalFlags) newCodec(now func() time.Time) (sessionless.Codec, error) {
	if g.secret == "" {
		return nil, errNoSecret
	}
	switch g.codec {
	case "golang-jwt", "":
		return jwt.NewManager(jwt.Config{
			SigningMethod: jwt.MethodHS256,
			Secret:        []byte(g.secret),
			Issuer:        g.issuer,
			Audience:      g.audience,
			Leeway:        g.leeway,
			Now:           now,
		})
	case "jwx":
		return jwxcodec.New(jwxcodec.Config{
			Secret:    []byte(g.secret),
			Issuer:    g.issuer,
			Audience:  g.audience,
			ClockSkew: g.leeway,
			Now:       now,
		})
	default:
		return nil, fmt.Errorf("unknown codec %q", g.codec)
	}
}
