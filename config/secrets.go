package config

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ParameterGetter is the subset of the SSM client used to resolve secrets.
type ParameterGetter interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// NewSSM builds a Parameter Store client from the default AWS credential chain.
func NewSSM(ctx context.Context) (*ssm.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return ssm.NewFromConfig(cfg), nil
}

// NeedsSecrets reports whether ResolveSecrets has anything to fetch.
func (c *Config) NeedsSecrets() bool {
	return (c.Alert.Token == "" && c.Alert.TokenParam != "") ||
		(c.Journal.Postgres.Password == "" && c.Journal.Postgres.PasswordParam != "")
}

// ResolveSecrets fills secrets named by *_param fields that are not already
// set directly.
func (c *Config) ResolveSecrets(ctx context.Context, store ParameterGetter) error {
	if c.Alert.Token == "" && c.Alert.TokenParam != "" {
		v, err := getParameter(ctx, store, c.Alert.TokenParam)
		if err != nil {
			return fmt.Errorf("alert.token_param: %w", err)
		}
		c.Alert.Token = v
	}
	if c.Journal.Postgres.Password == "" && c.Journal.Postgres.PasswordParam != "" {
		v, err := getParameter(ctx, store, c.Journal.Postgres.PasswordParam)
		if err != nil {
			return fmt.Errorf("journal.postgres.password_param: %w", err)
		}
		c.Journal.Postgres.Password = v
	}
	return nil
}

func getParameter(ctx context.Context, store ParameterGetter, name string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	out, err := store.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("get parameter %s: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %s has no value", name)
	}
	return aws.ToString(out.Parameter.Value), nil
}
