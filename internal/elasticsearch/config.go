package elasticsearch

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"go.uber.org/zap"
)

const (
	DefaultHost    = "http://localhost:9200"
	DefaultIndex   = "default"
	DefaultTimeout = 5 * time.Second
)

//Config holds the settings an Index handle is built from. Zero values fall back to the defaults.
type Config struct {
	Host    string
	Index   string
	Timeout time.Duration

	//IndexConfig is the raw settings/mappings body sent when creating the index.
	IndexConfig json.RawMessage

	Username string
	Password string

	//Transport overrides the HTTP transport used by the underlying client.
	Transport http.RoundTripper
}

func (c *Config) setDefaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Index == "" {
		c.Index = DefaultIndex
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
}

//Validate checks the configuration values.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Host, validation.Required, is.URL),
		validation.Field(&c.Index, validation.Required),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.IndexConfig, validation.By(validJSON)),
	)
}

func validJSON(value interface{}) error {
	raw, _ := value.(json.RawMessage)
	if len(raw) == 0 {
		return nil
	}
	if !json.Valid(raw) {
		return errors.New("must be valid JSON")
	}
	return nil
}

//Option configures optional Index dependencies.
type Option func(*Index)

//WithLogger sets the logger used for reporting failed requests.
func WithLogger(logger *zap.Logger) Option {
	return func(i *Index) {
		if logger != nil {
			i.logger = logger
		}
	}
}
