package bootstrap

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/datafirstseo/booking-backend/internal/config"
	"github.com/datafirstseo/booking-backend/internal/notify"
)

func TestBuildRedisClientDisabled(t *testing.T) {
	client := BuildRedisClient(context.Background(), &appconfig.Config{}, nil, true)
	assert.Nil(t, client, "no address configured means no client")
}

func TestBuildRedisClientVerify(t *testing.T) {
	mr := miniredis.RunT(t)

	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, nil, true)
	require.NotNil(t, client)
	defer client.Close()

	require.NoError(t, client.Ping(context.Background()).Err())
}

func TestBuildRedisClientVerifyFailure(t *testing.T) {
	// Nothing listens on this port; verification should drop the client.
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: "127.0.0.1:1"}, nil, true)
	assert.Nil(t, client)
}

func TestLoadAWSConfigEndpointOverride(t *testing.T) {
	cfg := &appconfig.Config{
		AWSRegion:           "us-east-1",
		AWSAccessKeyID:      "test",
		AWSSecretAccessKey:  "test",
		AWSEndpointOverride: "http://localhost:4566",
	}
	awsCfg, err := LoadAWSConfig(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", awsCfg.Region)

	for _, service := range []string{s3.ServiceID, sesv2.ServiceID} {
		ep, err := awsCfg.EndpointResolverWithOptions.ResolveEndpoint(service, "us-east-1")
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:4566", ep.URL)
	}

	// Unknown services must fall through to the SDK defaults.
	_, err = awsCfg.EndpointResolverWithOptions.ResolveEndpoint("SQS", "us-east-1")
	assert.Error(t, err)
}

func TestBuildEmailSenderFallsBackToStub(t *testing.T) {
	cfg := &appconfig.Config{EmailProvider: "sendgrid"} // no API key configured
	awsCfg, err := LoadAWSConfig(context.Background(), &appconfig.Config{AWSRegion: "us-east-1"})
	require.NoError(t, err)

	sender := BuildEmailSender(cfg, awsCfg, nil)
	_, ok := sender.(*notify.StubEmailSender)
	assert.True(t, ok, "unconfigured sendgrid must fall back to the stub sender")
}

func TestBuildEmailSenderStubByDefault(t *testing.T) {
	awsCfg, err := LoadAWSConfig(context.Background(), &appconfig.Config{AWSRegion: "us-east-1"})
	require.NoError(t, err)

	sender := BuildEmailSender(&appconfig.Config{EmailProvider: "stub"}, awsCfg, nil)
	_, ok := sender.(*notify.StubEmailSender)
	assert.True(t, ok)
}
