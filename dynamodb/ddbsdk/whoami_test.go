package ddbsdk

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSTS struct {
	out *sts.GetCallerIdentityOutput
	err error
}

func (f fakeSTS) GetCallerIdentity(context.Context, *sts.GetCallerIdentityInput, ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	return f.out, f.err
}

type fakeIAM struct {
	aliases []string
	err     error
}

func (f fakeIAM) ListAccountAliases(context.Context, *iam.ListAccountAliasesInput, ...func(*iam.Options)) (*iam.ListAccountAliasesOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &iam.ListAccountAliasesOutput{AccountAliases: f.aliases}, nil
}

func TestWhoAmI(t *testing.T) {
	caller := fakeSTS{out: &sts.GetCallerIdentityOutput{
		Account: aws.String("123456789012"),
		Arn:     aws.String("arn:aws:iam::123456789012:user/dev"),
		UserId:  aws.String("AIDAEXAMPLE"),
	}}

	t.Run("with alias", func(t *testing.T) {
		id, err := whoAmI(context.Background(), caller, fakeIAM{aliases: []string{"acme-dev", "other"}})
		require.NoError(t, err)
		assert.Equal(t, Identity{
			Account:      "123456789012",
			ARN:          "arn:aws:iam::123456789012:user/dev",
			UserID:       "AIDAEXAMPLE",
			AccountAlias: "acme-dev",
		}, id)
	})

	t.Run("alias lookup denied", func(t *testing.T) {
		id, err := whoAmI(context.Background(), caller, fakeIAM{err: errors.New("access denied")})
		require.NoError(t, err)
		assert.Equal(t, "123456789012", id.Account)
		assert.Empty(t, id.AccountAlias)
	})

	t.Run("sts failure", func(t *testing.T) {
		_, err := whoAmI(context.Background(), fakeSTS{err: errors.New("expired token")}, fakeIAM{})
		require.ErrorContains(t, err, "expired token")
	})
}
