package objstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/andrejsk/clouddrive/internal/common"
)

// Seam points for tests: AWS client constructors and presign calls are
// package variables so unit tests can substitute them without a network.
var (
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// Client is the S3-backed Store. One Client wraps one set of credentials;
// scoped clients are built per request and discarded afterwards.
type Client struct {
	s3      *s3.Client
	presign *s3.PresignClient
	bucket  string
}

func NewClient(cfg aws.Config, bucket, baseEndpoint string) *Client {
	c := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if baseEndpoint != "" {
			o.BaseEndpoint = aws.String(baseEndpoint)
		}
		// Path-style addressing: required for minio and harmless for AWS.
		o.UsePathStyle = true
	})
	return &Client{s3: c, presign: newS3PresignClient(c), bucket: bucket}
}

func (c *Client) Put(ctx context.Context, key string, body io.Reader, length int64) error {
	if body == nil {
		body = bytes.NewReader(nil)
	}
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &c.bucket,
		Key:           &key,
		Body:          body,
		ContentLength: aws.Int64(length),
	})
	if err != nil {
		return fmt.Errorf("put %q: %w: %w", key, common.ErrUpstream, err)
	}
	return nil
}

func (c *Client) Get(ctx context.Context, key string) (io.ReadCloser, *ObjectInfo, error) {
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &c.bucket,
		Key:    &key,
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, nil, fmt.Errorf("get %q: %w", key, common.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("get %q: %w: %w", key, common.ErrUpstream, err)
	}
	info := &ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		LastModified: aws.ToTime(out.LastModified),
		ETag:         aws.ToString(out.ETag),
	}
	return out.Body, info, nil
}

func (c *Client) Head(ctx context.Context, key string) (*ObjectInfo, error) {
	out, err := c.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &c.bucket,
		Key:    &key,
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("head %q: %w", key, common.ErrNotFound)
		}
		return nil, fmt.Errorf("head %q: %w: %w", key, common.ErrUpstream, err)
	}
	return &ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		LastModified: aws.ToTime(out.LastModified),
		ETag:         aws.ToString(out.ETag),
	}, nil
}

func (c *Client) Copy(ctx context.Context, srcKey, dstKey string) error {
	source := c.bucket + "/" + url.PathEscape(srcKey)
	_, err := c.s3.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     &c.bucket,
		CopySource: &source,
		Key:        &dstKey,
	})
	if err != nil {
		return fmt.Errorf("copy %q -> %q: %w: %w", srcKey, dstKey, common.ErrUpstream, err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &c.bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("delete %q: %w: %w", key, common.ErrUpstream, err)
	}
	return nil
}

func (c *Client) DeleteMany(ctx context.Context, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	if len(keys) > MaxBatchDelete {
		return nil, fmt.Errorf("batch of %d exceeds limit %d: %w", len(keys), MaxBatchDelete, common.ErrInvalidArgument)
	}

	objects := make([]types.ObjectIdentifier, 0, len(keys))
	for i := range keys {
		objects = append(objects, types.ObjectIdentifier{Key: &keys[i]})
	}

	out, err := c.s3.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: &c.bucket,
		Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return keys, fmt.Errorf("delete batch of %d: %w: %w", len(keys), common.ErrUpstream, err)
	}

	var failed []string
	for _, e := range out.Errors {
		failed = append(failed, aws.ToString(e.Key))
	}
	return failed, nil
}

func (c *Client) List(ctx context.Context, prefix, delimiter, token string, maxKeys int32) (*ListPage, error) {
	in := &s3.ListObjectsV2Input{
		Bucket: &c.bucket,
		Prefix: &prefix,
	}
	if delimiter != "" {
		in.Delimiter = &delimiter
	}
	if token != "" {
		in.ContinuationToken = &token
	}
	if maxKeys > 0 {
		in.MaxKeys = aws.Int32(maxKeys)
	}

	out, err := c.s3.ListObjectsV2(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w: %w", prefix, common.ErrUpstream, err)
	}

	page := &ListPage{
		NextToken: aws.ToString(out.NextContinuationToken),
		Truncated: aws.ToBool(out.IsTruncated),
	}
	for _, o := range out.Contents {
		page.Objects = append(page.Objects, ObjectInfo{
			Key:          aws.ToString(o.Key),
			Size:         aws.ToInt64(o.Size),
			LastModified: aws.ToTime(o.LastModified),
			ETag:         aws.ToString(o.ETag),
		})
	}
	for _, p := range out.CommonPrefixes {
		page.CommonPrefixes = append(page.CommonPrefixes, aws.ToString(p.Prefix))
	}
	return page, nil
}

func (c *Client) PresignPut(ctx context.Context, key string, expires time.Duration) (string, error) {
	req, err := presignPutObject(c.presign, ctx, &s3.PutObjectInput{
		Bucket: &c.bucket,
		Key:    &key,
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("presign put %q: %w: %w", key, common.ErrUpstream, err)
	}
	return req.URL, nil
}

func (c *Client) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	req, err := presignGetObject(c.presign, ctx, &s3.GetObjectInput{
		Bucket: &c.bucket,
		Key:    &key,
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("presign get %q: %w: %w", key, common.ErrUpstream, err)
	}
	return req.URL, nil
}
