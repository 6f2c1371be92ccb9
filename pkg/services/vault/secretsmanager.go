package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/de-tools/royalty-ledger/pkg/models/domain"
	"github.com/rs/zerolog"
)

// SecretsAPI is the subset of the Secrets Manager client used by the vault
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	PutSecretValue(ctx context.Context, in *secretsmanager.PutSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error)
	CreateSecret(ctx context.Context, in *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
}

type SecretsManagerConfig struct {
	SecretID string
	Region   string
	Profile  string
}

type secretPayload struct {
	Username string `json:"username"`
	Secret   string `json:"secret"`
}

type SecretsManagerVault struct {
	client   SecretsAPI
	secretID string
}

func NewSecretsManagerVault(ctx context.Context, cfg SecretsManagerConfig) (*SecretsManagerVault, error) {
	if cfg.SecretID == "" {
		return nil, domain.NewInvalidInputError("vault secret_id is required", nil)
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return NewSecretsManagerVaultWithClient(secretsmanager.NewFromConfig(awsCfg), cfg.SecretID), nil
}

func NewSecretsManagerVaultWithClient(client SecretsAPI, secretID string) *SecretsManagerVault {
	return &SecretsManagerVault{client: client, secretID: secretID}
}

func (v *SecretsManagerVault) Credentials(ctx context.Context) (domain.Credentials, error) {
	out, err := v.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(v.secretID),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return domain.Credentials{}, domain.NewNotFoundError(fmt.Sprintf("secret %s does not exist", v.secretID))
		}
		return domain.Credentials{}, fmt.Errorf("get secret %s: %w", v.secretID, err)
	}
	if out.SecretString == nil {
		return domain.Credentials{}, domain.NewNotFoundError(fmt.Sprintf("secret %s has no string value", v.secretID))
	}

	var payload secretPayload
	if err := json.Unmarshal([]byte(*out.SecretString), &payload); err != nil {
		return domain.Credentials{}, domain.NewSchemaError(fmt.Sprintf("secret %s is not a credentials document", v.secretID), err)
	}

	zerolog.Ctx(ctx).Debug().Str("secret_id", v.secretID).Msg("loaded credentials from secrets manager")
	return domain.Credentials{Username: payload.Username, Secret: payload.Secret}, nil
}

// Save writes a new secret version, creating the secret on first use
func (v *SecretsManagerVault) Save(ctx context.Context, creds domain.Credentials) error {
	if creds.Empty() {
		return domain.NewInvalidInputError("username and secret are required", nil)
	}
	body, err := json.Marshal(secretPayload{Username: creds.Username, Secret: creds.Secret})
	if err != nil {
		return fmt.Errorf("encode secret: %w", err)
	}

	_, err = v.client.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(v.secretID),
		SecretString: aws.String(string(body)),
	})
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		_, err = v.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
			Name:         aws.String(v.secretID),
			SecretString: aws.String(string(body)),
			Description:  aws.String("royalty portal credentials"),
		})
	}
	if err != nil {
		return fmt.Errorf("store secret %s: %w", v.secretID, err)
	}

	zerolog.Ctx(ctx).Info().Str("secret_id", v.secretID).Msg("stored credentials")
	return nil
}
