package cmds

import (
	"net/http"

	"github.com/go-go-golems/beauty-bot/pkg/completion"
	"github.com/go-go-golems/beauty-bot/pkg/profile"
	"github.com/go-go-golems/beauty-bot/pkg/secrets"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// AddClientFlags registers the flags shared by every command that talks to a
// model, directly or through the proxy.
func AddClientFlags(flags *pflag.FlagSet) {
	flags.String("openai-api-key", "", "OpenAI API key (default: $OPENAI_API_KEY)")
	flags.String("openai-base-url", "", "Base URL of an OpenAI compatible API")
	flags.String("model", completion.DefaultModel, "Model used for chat completions")
	flags.Int("max-tokens", 0, "Maximum number of tokens per answer (0: no limit)")
	flags.Float32("temperature", 0.5, "Sampling temperature")
	flags.Duration("timeout", completion.DefaultTimeout, "Timeout of a single completion request")
	flags.String("proxy-url", "", "Send completions through a beauty-bot proxy instead of calling the API")
	flags.String("profile", "", "Path to a profile YAML file (default: built-in profile)")
}

func loadProfile() (*profile.Profile, error) {
	return profile.Load(viper.GetString("profile"))
}

// resolveAPIKey prefers the configured key and falls back to OPENAI_API_KEY.
func resolveAPIKey() (string, error) {
	if key := viper.GetString("openai-api-key"); key != "" {
		return secrets.Resolve(key)
	}
	return secrets.APIKeyFromEnv()
}

func settingsFromViper(apiKey string, model string) *completion.Settings {
	settings := completion.NewSettings(apiKey)
	settings.BaseURL = viper.GetString("openai-base-url")
	if model != "" {
		settings.Model = model
	}
	settings.MaxTokens = viper.GetInt("max-tokens")
	if viper.IsSet("temperature") {
		settings.Temperature = float32(viper.GetFloat64("temperature"))
	}
	if timeout := viper.GetDuration("timeout"); timeout > 0 {
		settings.Timeout = timeout
	}
	return settings
}

// newChatClient picks how the chat talks to the model. A proxy URL wins over
// an API key; with neither the chat runs in demo mode and the client is nil.
func newChatClient() (completion.Client, error) {
	if url := viper.GetString("proxy-url"); url != "" {
		log.Info().Str("proxy", url).Msg("using proxy")
		return completion.NewProxyClient(url,
			completion.WithHTTPClient(&http.Client{Timeout: viper.GetDuration("timeout")}),
		), nil
	}

	apiKey, err := resolveAPIKey()
	if err != nil {
		log.Warn().Err(err).Msg("no credential, running in demo mode")
		return nil, nil
	}

	settings := settingsFromViper(apiKey, viper.GetString("model"))
	log.Info().
		Str("model", settings.Model).
		Str("api_key", secrets.MaskKey(apiKey)).
		Msg("using OpenAI client")

	client, err := completion.NewOpenAIClient(settings)
	if err != nil {
		return nil, err
	}
	return client, nil
}
