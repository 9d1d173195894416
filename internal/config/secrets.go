package config

import (
	"context"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// ResolveSecrets fills config values that are referenced by secret name
// rather than provided inline. Currently only the DB connection string is
// secret-managed; deployments that set DB_CONNECTION_STRING directly skip
// this entirely.
func (c *Config) ResolveSecrets(ctx context.Context) error {
	if c.DBSecretName == "" || c.DBConnectionString != "" {
		return nil
	}
	if c.GCPProjectID == "" {
		return fmt.Errorf("DB_SECRET_NAME is set but GCP_PROJECT_ID is not")
	}

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create Secret Manager client: %w", err)
	}
	defer client.Close()

	name := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", c.GCPProjectID, c.DBSecretName)
	resp, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: name,
	})
	if err != nil {
		return fmt.Errorf("failed to access secret %s: %w", c.DBSecretName, err)
	}

	c.DBConnectionString = string(resp.GetPayload().GetData())
	if c.DBConnectionString == "" {
		return fmt.Errorf("secret %s resolved to an empty connection string", c.DBSecretName)
	}
	return nil
}
