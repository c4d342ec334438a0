package config

// ProviderConfig exposes the external identity provider used to mint
// one-time login links for synthetic identities.
type ProviderConfig interface {
	GetProviderBaseURL() string
	GetProviderServiceKey() string
	GetProviderJWTSecret() string
}

type Provider struct{}

var _ ProviderConfig = Provider{}

func (Provider) GetProviderBaseURL() string {
	return GetEnv("AUTH_PROVIDER_URL", "")
}

// GetProviderServiceKey is the static admin credential sent as a bearer
// token when no JWT secret is configured.
func (Provider) GetProviderServiceKey() string {
	return GetEnv("AUTH_PROVIDER_SERVICE_KEY", "")
}

// GetProviderJWTSecret, when set, is used to mint short-lived HS256 admin
// tokens instead of sending the static service key on every call.
func (Provider) GetProviderJWTSecret() string {
	return GetEnv("AUTH_PROVIDER_JWT_SECRET", "")
}
