package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsClient is the subset of the Secrets Manager API used at startup.
type SecretsClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsClientFactory builds a SecretsClient on demand.
type SecretsClientFactory func(ctx context.Context) (SecretsClient, error)

// NewSecretsManager builds a client from the default AWS credential chain.
func NewSecretsManager(ctx context.Context) (SecretsClient, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return secretsmanager.NewFromConfig(awsCfg), nil
}

type jwtSecret struct {
	Key string `json:"jwt-secret-key"`
}

type dbSecret struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func resolveSecrets(ctx context.Context, cfg *Config, client SecretsClient) error {
	if arn := cfg.Lambda.JWTSecretARN; arn != "" {
		var secret jwtSecret
		if err := readSecret(ctx, client, arn, &secret); err != nil {
			return fmt.Errorf("read jwt secret: %w", err)
		}
		cfg.JWTSecret = secret.Key
	}

	if arn := cfg.Lambda.DBSecretARN; arn != "" {
		var secret dbSecret
		if err := readSecret(ctx, client, arn, &secret); err != nil {
			return fmt.Errorf("read db secret: %w", err)
		}
		if cfg.Lambda.DBClusterEndpoint == "" {
			return errors.New("DB_CLUSTER_ENDPOINT is not set")
		}
		cfg.DBDriver = "postgres"
		cfg.DBURL = postgresURL(secret.Username, secret.Password, cfg.Lambda.DBClusterEndpoint, cfg.DBName)
	}
	return nil
}

func readSecret(ctx context.Context, client SecretsClient, arn string, dst any) error {
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(arn)})
	if err != nil {
		return err
	}
	if out.SecretString == nil {
		return errors.New("secret has no string value")
	}
	return json.Unmarshal([]byte(*out.SecretString), dst)
}

func postgresURL(user, password, host, database string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(user, password),
		Host:   host,
		Path:   "/" + database,
	}
	return u.String()
}
