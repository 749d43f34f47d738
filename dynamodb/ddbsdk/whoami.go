package ddbsdk

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// Identity is the caller the current credentials resolve to.
type Identity struct {
	Account string
	ARN     string
	UserID  string
	// AccountAlias is empty when the account has none or it cannot be read.
	AccountAlias string
	Region       string
}

type callerIdentityAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

type accountAliasAPI interface {
	ListAccountAliases(ctx context.Context, params *iam.ListAccountAliasesInput, optFns ...func(*iam.Options)) (*iam.ListAccountAliasesOutput, error)
}

// WhoAmI resolves the caller identity of cfg.
func WhoAmI(ctx context.Context, cfg aws.Config) (Identity, error) {
	id, err := whoAmI(ctx, sts.NewFromConfig(cfg), iam.NewFromConfig(cfg))
	id.Region = cfg.Region
	return id, err
}

func whoAmI(ctx context.Context, stsClient callerIdentityAPI, iamClient accountAliasAPI) (Identity, error) {
	out, err := stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return Identity{}, fmt.Errorf("get caller identity: %w", err)
	}
	id := Identity{
		Account: aws.ToString(out.Account),
		ARN:     aws.ToString(out.Arn),
		UserID:  aws.ToString(out.UserId),
	}

	// Listing aliases needs iam permissions many roles lack.
	aliases, err := iamClient.ListAccountAliases(ctx, &iam.ListAccountAliasesInput{})
	if err == nil && len(aliases.AccountAliases) > 0 {
		id.AccountAlias = aliases.AccountAliases[0]
	}
	return id, nil
}
