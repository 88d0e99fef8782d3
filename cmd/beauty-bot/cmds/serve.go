package cmds

import (
	"github.com/go-go-golems/beauty-bot/pkg/completion"
	"github.com/go-go-golems/beauty-bot/pkg/proxy"
	"github.com/go-go-golems/beauty-bot/pkg/secrets"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const DefaultProxyModel = "gpt-4o-mini"

func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP proxy that holds the API credential",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// a missing credential is fatal here, not per request
			apiKey, err := resolveAPIKey()
			if err != nil {
				return err
			}

			p, err := loadProfile()
			if err != nil {
				return errors.Wrap(err, "could not load profile")
			}

			settings := settingsFromViper(apiKey, viper.GetString("proxy-model"))
			upstream, err := completion.NewOpenAIClient(settings)
			if err != nil {
				return err
			}

			handler := proxy.NewHandler(upstream, p,
				proxy.WithRateLimit(viper.GetFloat64("rate-limit"), viper.GetInt("rate-burst")),
			)

			log.Info().
				Str("profile", p.Name).
				Str("model", settings.Model).
				Str("api_key", secrets.MaskKey(apiKey)).
				Float64("rate_limit", viper.GetFloat64("rate-limit")).
				Msg("starting proxy")

			return proxy.NewServer(viper.GetString("addr"), handler).Run(cmd.Context())
		},
	}

	cmd.Flags().String("addr", ":8787", "Address to listen on")
	cmd.Flags().String("proxy-model", DefaultProxyModel, "Model used for proxied requests")
	cmd.Flags().Float64("rate-limit", 1, "Requests per second allowed per client address (0: unlimited)")
	cmd.Flags().Int("rate-burst", 5, "Burst size of the per client rate limit")

	return cmd
}
