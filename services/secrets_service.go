package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsService fetches secrets from AWS Secrets Manager with a
// process-wide cache; each secret is fetched at most once per cold start.
type SecretsService struct {
	Client SecretsManagerAPI

	mu    sync.Mutex
	cache map[string]string
}

func NewSecretsService(client SecretsManagerAPI) *SecretsService {
	return &SecretsService{Client: client, cache: make(map[string]string)}
}

// GetSecret returns the secret string for the given ARN.
func (ss *SecretsService) GetSecret(ctx context.Context, secretARN string) (string, error) {
	if secretARN == "" {
		return "", fmt.Errorf("secret ARN must not be empty")
	}

	ss.mu.Lock()
	if value, ok := ss.cache[secretARN]; ok {
		ss.mu.Unlock()
		return value, nil
	}
	ss.mu.Unlock()

	output, err := ss.Client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &secretARN,
	})
	if err != nil {
		return "", fmt.Errorf("failed to retrieve secret %s: %w", secretARN, err)
	}

	var value string
	switch {
	case output.SecretString != nil:
		value = *output.SecretString
	case output.SecretBinary != nil:
		value = string(output.SecretBinary)
	default:
		return "", fmt.Errorf("secret %s has no value", secretARN)
	}

	ss.mu.Lock()
	ss.cache[secretARN] = value
	ss.mu.Unlock()
	return value, nil
}
