package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/cenk/backoff"
	"github.com/rs/dnscache"
)

// S3API is the subset of the S3 client the store uses.
type S3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store implements ObjectStore on an S3 bucket.
type S3Store struct {
	api        S3API
	bucket     string
	maxRetries uint64
	baseDelay  time.Duration
}

// S3Option configures an S3Store.
type S3Option func(*S3Store)

// WithMaxRetries sets the maximum retry attempts per storage call.
func WithMaxRetries(n int) S3Option {
	return func(s *S3Store) {
		s.maxRetries = uint64(n)
	}
}

// WithBaseDelay sets the base delay for exponential backoff between retries.
func WithBaseDelay(d time.Duration) S3Option {
	return func(s *S3Store) {
		s.baseDelay = d
	}
}

// NewS3Store creates an ObjectStore backed by the given bucket.
func NewS3Store(api S3API, bucket string, opts ...S3Option) *S3Store {
	s := &S3Store{
		api:        api,
		bucket:     bucket,
		maxRetries: 3,
		baseDelay:  500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewS3Client builds an S3 client from the ambient AWS configuration
// (environment, shared config, instance role). A non-empty profile selects a
// shared-config profile; a non-empty endpoint enables path-style addressing
// for S3-compatible backends.
func NewS3Client(ctx context.Context, region, profile, endpoint string) (*s3.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithHTTPClient(newHTTPClient()),
	}
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	if profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}

	return s3.NewFromConfig(cfg, s3Opts...), nil
}

// newHTTPClient returns an HTTP client with a caching DNS resolver, refreshed
// every five minutes. Long index runs issue many requests against one host,
// so resolving once per connection instead of per request pays off.
func newHTTPClient() *http.Client {
	resolver := &dnscache.Resolver{}
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			resolver.Refresh(true)
		}
	}()

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	return &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				host, port, err := net.SplitHostPort(addr)
				if err != nil {
					return nil, err
				}
				ips, err := resolver.LookupHost(ctx, host)
				if err != nil {
					return nil, err
				}
				for _, ip := range ips {
					conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
					if err == nil {
						return conn, nil
					}
				}
				return nil, fmt.Errorf("failed to dial any resolved IP for %s", host)
			},
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// retry runs op with exponential backoff. Absence is permanent, not retried.
func (s *S3Store) retry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.baseDelay
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if isAbsence(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, s.maxRetries), ctx))
}

func (s *S3Store) List(ctx context.Context, prefix, delimiter string) (*Listing, error) {
	listing := &Listing{}
	var token *string

	for {
		input := &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		}
		if delimiter != "" {
			input.Delimiter = aws.String(delimiter)
		}

		var out *s3.ListObjectsV2Output
		err := s.retry(ctx, func() error {
			var callErr error
			out, callErr = s.api.ListObjectsV2(ctx, input)
			return callErr
		})
		if err != nil {
			return nil, fmt.Errorf("listing %q: %w", prefix, err)
		}

		for _, obj := range out.Contents {
			o := Object{
				Key:  aws.ToString(obj.Key),
				Size: aws.ToInt64(obj.Size),
				ETag: trimETag(aws.ToString(obj.ETag)),
			}
			if obj.LastModified != nil {
				o.LastModified = *obj.LastModified
			}
			listing.Objects = append(listing.Objects, o)
		}
		for _, p := range out.CommonPrefixes {
			listing.Prefixes = append(listing.Prefixes, aws.ToString(p.Prefix))
		}

		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}

	return listing, nil
}

func (s *S3Store) Head(ctx context.Context, key string) (*Object, bool, error) {
	var out *s3.HeadObjectOutput
	err := s.retry(ctx, func() error {
		var callErr error
		out, callErr = s.api.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		return callErr
	})
	if err != nil {
		if isAbsence(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("probing %q: %w", key, err)
	}

	obj := &Object{
		Key:  key,
		Size: aws.ToInt64(out.ContentLength),
		ETag: trimETag(aws.ToString(out.ETag)),
	}
	if out.LastModified != nil {
		obj.LastModified = *out.LastModified
	}
	return obj, true, nil
}

func (s *S3Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	var out *s3.GetObjectOutput
	err := s.retry(ctx, func() error {
		var callErr error
		out, callErr = s.api.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		return callErr
	})
	if err != nil {
		if isAbsence(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetching %q: %w", key, err)
	}
	return out.Body, nil
}

// Put rewinds the body before each attempt so retries resend it from the
// start. Already-seekable bodies (files) stream as-is; anything else is
// buffered once to make it seekable.
func (s *S3Store) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	seeker, ok := body.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(body)
		if err != nil {
			return "", fmt.Errorf("reading body for %q: %w", key, err)
		}
		seeker = bytes.NewReader(data)
	}

	var out *s3.PutObjectOutput
	err := s.retry(ctx, func() error {
		if _, seekErr := seeker.Seek(0, io.SeekStart); seekErr != nil {
			return backoff.Permanent(seekErr)
		}
		var callErr error
		out, callErr = s.api.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        seeker,
			ContentType: aws.String(contentType),
		})
		return callErr
	})
	if err != nil {
		return "", fmt.Errorf("writing %q: %w", key, err)
	}
	return trimETag(aws.ToString(out.ETag)), nil
}

// isAbsence reports whether err means the object does not exist or is not
// visible to us. Forbidden counts: S3 returns 403 for keys the caller cannot
// see, and the repository treats both the same way.
func isAbsence(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket", "AccessDenied", "Forbidden":
			return true
		}
	}
	return false
}

// trimETag strips the quotes S3 wraps around etag values so recorded and
// probed tokens compare equal.
func trimETag(etag string) string {
	return strings.Trim(etag, `"`)
}
