package envvar

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/sanLimbu/esindex/internal"
)

//Provider resolves secured values, for example from Vault.
type Provider interface {
	Get(key string) (string, error)
}

//Configuration reads values from the environment, resolving "<KEY>_SECURE" indirections through
//the Provider.
type Configuration struct {
	provider Provider
}

//Load reads the env filename and loads it into ENV for this process. Variables already set win.
func Load(filename string) error {
	if err := godotenv.Load(filename); err != nil {
		return internal.WrapErrorf(err, internal.ErrorCodeUnknown, "godotenv.Load %s", filename)
	}

	return nil
}

//New returns a new Configuration, provider may be nil when no secured values are used.
func New(provider Provider) *Configuration {
	return &Configuration{
		provider: provider,
	}
}

//Get returns the value of key. When "<key>_SECURE" is set its value is looked up in the provider
//instead.
func (c *Configuration) Get(key string) (string, error) {
	res := os.Getenv(key)

	valSecret := os.Getenv(fmt.Sprintf("%s_SECURE", key))
	if valSecret == "" {
		return res, nil
	}

	if c.provider == nil {
		return "", internal.NewErrorf(internal.ErrorCodeInvalidArgument, "%s_SECURE is set but no secret provider is configured", key)
	}

	valSecretRes, err := c.provider.Get(valSecret)
	if err != nil {
		return "", internal.WrapErrorf(err, internal.ErrorCodeInvalidArgument, "provider.Get")
	}

	return valSecretRes, nil
}

//GetDefault is Get falling back to def when the value is empty.
func (c *Configuration) GetDefault(key, def string) (string, error) {
	res, err := c.Get(key)
	if err != nil {
		return "", err
	}

	if res == "" {
		return def, nil
	}

	return res, nil
}
