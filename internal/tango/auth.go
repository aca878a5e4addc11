package tango

import (
	"context"
	"net/http"
	"net/url"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/nexdatas/nxstools/internal/configuration"
	"github.com/nexdatas/nxstools/internal/model"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// newTransport returns the base round tripper for the gateway,
// authenticating with OIDC client credentials unless OAuth is disabled.
func newTransport(ctx context.Context, opts *configuration.TangoOptions) (http.RoundTripper, error) {
	if opts.DisableOAuth {
		return http.DefaultTransport, nil
	}

	provider, err := oidc.NewProvider(ctx, opts.OidcIssuerEndpoint)
	if err != nil {
		return nil, errors.Wrap(model.ErrConnection, "oidc provider error: "+err.Error())
	}

	oauthConfig := clientcredentials.Config{
		ClientID:       opts.OidcClientID,
		ClientSecret:   opts.OidcClientSecret,
		TokenURL:       provider.Endpoint().TokenURL,
		Scopes:         opts.OidcClientScopes,
		EndpointParams: url.Values{"audience": []string{opts.OidcAudienceEndpoint}},
	}

	return &oauth2.Transport{
		Source: oauthConfig.TokenSource(ctx),
		Base:   http.DefaultTransport,
	}, nil
}
