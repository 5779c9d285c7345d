package storage

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3Storage_SignedURL(t *testing.T) {
	s, err := NewS3Storage(context.Background(), MinioConfig{
		Endpoint:        "s3.us-west-000.backblazeb2.com",
		Region:          "us-west-000",
		AccessKeyID:     "keyid",
		SecretAccessKey: "secret",
		BucketName:      "gallery",
		UseSSL:          true,
	})
	require.NoError(t, err)

	raw, err := s.SignedURL(context.Background(), "images/1700000000000_cat.png", time.Hour)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "s3.us-west-000.backblazeb2.com", u.Host)
	assert.Equal(t, "/gallery/images/1700000000000_cat.png", u.Path)
	assert.Equal(t, "3600", u.Query().Get("X-Amz-Expires"))
	assert.Equal(t, "s3", s.Name())
	assert.Empty(t, s.PublicURL("images/1_a.png"))
}

func TestEndpointURL(t *testing.T) {
	assert.Equal(t, "https://host:9000", endpointURL("host:9000", true))
	assert.Equal(t, "http://host:9000", endpointURL("host:9000", false))
	assert.Equal(t, "http://explicit", endpointURL("http://explicit", true))
}

func TestIsS3NotFound(t *testing.T) {
	assert.True(t, isS3NotFound(&types.NotFound{}))
	assert.True(t, isS3NotFound(&types.NoSuchKey{}))
	assert.True(t, isS3NotFound(&smithy.GenericAPIError{Code: "NoSuchKey"}))
	assert.False(t, isS3NotFound(&smithy.GenericAPIError{Code: "AccessDenied"}))
	assert.False(t, isS3NotFound(errors.New("boom")))
}

func TestClassifyS3(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "denied", err: &smithy.GenericAPIError{Code: "AccessDenied"}, want: KindAuthFailed},
		{name: "signature", err: &smithy.GenericAPIError{Code: "SignatureDoesNotMatch"}, want: KindAuthFailed},
		{name: "quota", err: &smithy.GenericAPIError{Code: "QuotaExceeded"}, want: KindQuotaExceeded},
		{name: "slow down", err: &smithy.GenericAPIError{Code: "SlowDown"}, want: KindUnreachable},
		{name: "plain", err: errors.New("boom"), want: KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, IsKind(wrap("put", "k", tt.err, classifyS3), tt.want))
		})
	}
}
