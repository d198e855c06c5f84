package config

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

const secretTimeout = 10 * time.Second

// secretAccessor fetches the latest version of a named secret.
type secretAccessor func(ctx context.Context, name string) (string, error)

func newSecretManagerAccessor(project string) secretAccessor {
	return func(ctx context.Context, name string) (string, error) {
		client, err := secretmanager.NewClient(ctx)
		if err != nil {
			return "", fmt.Errorf("create secret manager client: %w", err)
		}
		defer func() { _ = client.Close() }()

		resp, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
			Name: fmt.Sprintf("projects/%s/secrets/%s/versions/latest", project, name),
		})
		if err != nil {
			return "", fmt.Errorf("access secret %s: %w", name, err)
		}
		return strings.TrimSpace(string(resp.GetPayload().GetData())), nil
	}
}

// resolveSecrets fills API keys left empty by the environment. Missing
// secrets are logged, not fatal; Validate reports what is still required.
func resolveSecrets(ctx context.Context, cfg *Config, access secretAccessor) {
	targets := []struct {
		secret string
		field  *string
	}{
		{"elevenlabs-api-key", &cfg.ElevenLabsAPIKey},
		{"openai-api-key", &cfg.OpenAIAPIKey},
	}

	for _, t := range targets {
		if *t.field != "" {
			continue
		}

		fetchCtx, cancel := context.WithTimeout(ctx, secretTimeout)
		value, err := access(fetchCtx, t.secret)
		cancel()
		if err != nil {
			slog.Debug("Secret not resolved", "secret", t.secret, "error", err)
			continue
		}
		*t.field = value
	}
}
