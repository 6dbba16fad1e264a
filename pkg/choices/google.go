package choices

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// GoogleConfig selects how Google API clients authenticate.
type GoogleConfig struct {
	// ProjectID is the Google Cloud project. When empty it is taken from
	// the credentials.
	ProjectID string

	// CredentialsFile is a service account JSON key. When empty,
	// application default credentials are used.
	CredentialsFile string

	// AccessToken, when set, is used as a static bearer token.
	AccessToken string

	// Endpoint overrides the API endpoint and disables authentication.
	// Used for emulators and tests.
	Endpoint string
}

// clientOptions resolves cfg into client options and the project ID.
func clientOptions(ctx context.Context, cfg GoogleConfig, scopes ...string) ([]option.ClientOption, string, error) {
	project := cfg.ProjectID

	switch {
	case cfg.Endpoint != "":
		return []option.ClientOption{
			option.WithEndpoint(cfg.Endpoint),
			option.WithoutAuthentication(),
		}, project, nil

	case cfg.AccessToken != "":
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken, TokenType: "Bearer"})
		return []option.ClientOption{option.WithTokenSource(ts)}, project, nil

	case cfg.CredentialsFile != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, "", fmt.Errorf("choices: read credentials: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, scopes...)
		if err != nil {
			return nil, "", fmt.Errorf("choices: parse credentials: %w", err)
		}
		if project == "" {
			project = creds.ProjectID
		}
		return []option.ClientOption{option.WithCredentials(creds)}, project, nil

	default:
		creds, err := google.FindDefaultCredentials(ctx, scopes...)
		if err != nil {
			return nil, "", fmt.Errorf("choices: default credentials: %w", err)
		}
		if project == "" {
			project = creds.ProjectID
		}
		return []option.ClientOption{option.WithCredentials(creds)}, project, nil
	}
}
