package objstore

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/andrejsk/clouddrive/internal/common"
	sc "github.com/andrejsk/clouddrive/internal/server/config"
)

// scopedSessionDuration bounds how long a per-request credential lives.
const scopedSessionDuration = 900 * time.Second

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newSTSClientFromConfig = func(cfg aws.Config, optFns ...func(*sts.Options)) *sts.Client {
		return sts.NewFromConfig(cfg, optFns...)
	}

	assumeRole = func(c *sts.Client, ctx context.Context, in *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error) {
		return c.AssumeRole(ctx, in, optFns...)
	}
)

// ownerPolicyTemplate restricts a session to one owner's private prefix.
const ownerPolicyTemplate = `{
  "Version": "2012-10-17",
  "Statement": [
    {
      "Effect": "Allow",
      "Action": ["s3:GetObject", "s3:PutObject", "s3:DeleteObject"],
      "Resource": "arn:aws:s3:::%s/private/%s/*"
    },
    {
      "Effect": "Allow",
      "Action": ["s3:ListBucket"],
      "Resource": "arn:aws:s3:::%s",
      "Condition": {"StringLike": {"s3:prefix": "private/%s/*"}}
    }
  ]
}`

// publicPolicyTemplate restricts a session to the shared public prefix.
const publicPolicyTemplate = `{
  "Version": "2012-10-17",
  "Statement": [
    {
      "Effect": "Allow",
      "Action": ["s3:GetObject", "s3:PutObject", "s3:DeleteObject"],
      "Resource": "arn:aws:s3:::%s/shares/*"
    },
    {
      "Effect": "Allow",
      "Action": ["s3:ListBucket"],
      "Resource": "arn:aws:s3:::%s",
      "Condition": {"StringLike": {"s3:prefix": "shares/*"}}
    }
  ]
}`

// sharingPolicyTemplate grants read on one owner's private prefix and full
// access to the public prefix.
const sharingPolicyTemplate = `{
  "Version": "2012-10-17",
  "Statement": [
    {
      "Effect": "Allow",
      "Action": ["s3:GetObject"],
      "Resource": "arn:aws:s3:::%s/private/%s/*"
    },
    {
      "Effect": "Allow",
      "Action": ["s3:GetObject", "s3:PutObject", "s3:DeleteObject"],
      "Resource": "arn:aws:s3:::%s/shares/*"
    },
    {
      "Effect": "Allow",
      "Action": ["s3:ListBucket"],
      "Resource": "arn:aws:s3:::%s"
    }
  ]
}`

// Scoper exchanges the service's base identity for short-lived credentials
// limited to one owner's prefix (or the public prefix). A scoped Store is
// built per logical operation and must not be cached across requests.
type Scoper struct {
	config *sc.Config
}

func NewScoper(config *sc.Config) *Scoper {
	return &Scoper{config: config}
}

// Scoped returns a Store whose credentials only reach private/<ownerID>/.
func (s *Scoper) Scoped(ctx context.Context, ownerID string) (Store, error) {
	policy := fmt.Sprintf(ownerPolicyTemplate, s.config.S3Bucket, ownerID, s.config.S3Bucket, ownerID)
	return s.scopedClient(ctx, "owner-"+ownerID, policy)
}

// Public returns a Store whose credentials only reach the shares/ prefix.
func (s *Scoper) Public(ctx context.Context) (Store, error) {
	policy := fmt.Sprintf(publicPolicyTemplate, s.config.S3Bucket, s.config.S3Bucket)
	return s.scopedClient(ctx, "public", policy)
}

// Sharing returns a Store that reads private/<ownerID>/ and writes shares/,
// the minimum a publish or retract of a share needs.
func (s *Scoper) Sharing(ctx context.Context, ownerID string) (Store, error) {
	policy := fmt.Sprintf(sharingPolicyTemplate, s.config.S3Bucket, ownerID, s.config.S3Bucket, s.config.S3Bucket)
	return s.scopedClient(ctx, "sharing-"+ownerID, policy)
}

func (s *Scoper) scopedClient(ctx context.Context, sessionName, policy string) (Store, error) {
	baseCfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w: %w", common.ErrUpstream, err)
	}

	// Without a scope role (local minio) the base identity is used directly.
	if s.config.S3ScopeRoleARN == "" {
		return NewClient(baseCfg, s.config.S3Bucket, s.config.S3BaseEndpoint), nil
	}

	stsClient := newSTSClientFromConfig(baseCfg, func(o *sts.Options) {
		if s.config.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		}
	})

	out, err := assumeRole(stsClient, ctx, &sts.AssumeRoleInput{
		RoleArn:         aws.String(s.config.S3ScopeRoleARN),
		RoleSessionName: aws.String("clouddrive-" + sessionName),
		Policy:          aws.String(policy),
		DurationSeconds: aws.Int32(int32(scopedSessionDuration.Seconds())),
	})
	if err != nil {
		return nil, fmt.Errorf("credential exchange: %w: %w", common.ErrUpstream, err)
	}

	creds := out.Credentials
	scopedCfg := baseCfg.Copy()
	scopedCfg.Credentials = credentials.NewStaticCredentialsProvider(
		aws.ToString(creds.AccessKeyId),
		aws.ToString(creds.SecretAccessKey),
		aws.ToString(creds.SessionToken),
	)

	return NewClient(scopedCfg, s.config.S3Bucket, s.config.S3BaseEndpoint), nil
}
