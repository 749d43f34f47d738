// Package ddbsdk executes planned filters against DynamoDB or the local
// store. It builds Query and Scan requests from access plans, runs them a
// page at a time, and carries the client-side helpers dynamate needs:
// table listing, schema caching, batch puts, item sizes and identity.
package ddbsdk

import (
	"context"
	"fmt"

	"github.com/acksell/dynamate/dynamodb/ddbiface"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Item is a raw DynamoDB item.
type Item = map[string]types.AttributeValue

// ClientOptions selects the AWS account and endpoint. Empty fields fall
// back to the SDK's default chain.
type ClientOptions struct {
	Region      string
	Profile     string
	EndpointURL string
}

// LoadAWSConfig resolves credentials and region.
func LoadAWSConfig(ctx context.Context, opts ClientOptions) (aws.Config, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(opts.Profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}

// NewClient builds a DynamoDB client. EndpointURL points it at DynamoDB
// Local or any other compatible endpoint.
func NewClient(ctx context.Context, opts ClientOptions) (*dynamodb.Client, aws.Config, error) {
	cfg, err := LoadAWSConfig(ctx, opts)
	if err != nil {
		return nil, aws.Config{}, err
	}
	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if opts.EndpointURL != "" {
			o.BaseEndpoint = aws.String(opts.EndpointURL)
		}
	})
	return client, cfg, nil
}

// ValidateConnection makes one cheap call so that bad credentials or an
// unreachable endpoint fail early.
func ValidateConnection(ctx context.Context, client ddbiface.Client) error {
	if _, err := client.ListTables(ctx, &dynamodb.ListTablesInput{Limit: aws.Int32(1)}); err != nil {
		return fmt.Errorf("cannot reach DynamoDB: %w", err)
	}
	return nil
}
