package vault

import (
	"path"
	"strings"
	"sync"

	"github.com/hashicorp/vault/api"

	"github.com/sanLimbu/esindex/internal"
)

//Provider reads secrets stored in a Vault KV version 2 engine.
type Provider struct {
	path    string
	client  *api.Logical
	mu      sync.Mutex
	secrets map[string]map[string]interface{}
}

//New instantiates the Vault client.
func New(token, addr, mountPath string) (*Provider, error) {
	config := api.DefaultConfig()
	config.Address = addr

	client, err := api.NewClient(config)
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "api.NewClient")
	}

	client.SetToken(token)

	return &Provider{
		path:    mountPath,
		client:  client.Logical(),
		secrets: make(map[string]map[string]interface{}),
	}, nil
}

//Get retrieves a value using the "<secret path>:<key>" notation. Each secret is read once.
func (p *Provider) Get(v string) (string, error) {
	secretPath, key, ok := strings.Cut(v, ":")
	if !ok || secretPath == "" || key == "" {
		return "", internal.NewErrorf(internal.ErrorCodeInvalidArgument, "expected <path>:<key>, got %q", v)
	}

	data, err := p.read(secretPath)
	if err != nil {
		return "", err
	}

	value, ok := data[key].(string)
	if !ok {
		return "", internal.NewErrorf(internal.ErrorCodeNotFound, "key %q not found in secret %q", key, secretPath)
	}

	return value, nil
}

func (p *Provider) read(secretPath string) (map[string]interface{}, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if data, ok := p.secrets[secretPath]; ok {
		return data, nil
	}

	secret, err := p.client.Read(path.Join(p.path, secretPath))
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "client.Read")
	}

	if secret == nil || secret.Data == nil {
		return nil, internal.NewErrorf(internal.ErrorCodeNotFound, "secret %q not found", secretPath)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, internal.NewErrorf(internal.ErrorCodeNotFound, "secret %q has no data", secretPath)
	}

	p.secrets[secretPath] = data

	return data, nil
}
