package kafkaconn

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/roadrunner-server/errors"
	"github.com/twmb/franz-go/pkg/sasl"
	kaws "github.com/twmb/franz-go/pkg/sasl/aws"
	"github.com/twmb/franz-go/pkg/sasl/plain"
	"github.com/twmb/franz-go/pkg/sasl/scram"
)

func saslMechanism(s *SASL) (sasl.Mechanism, error) {
	switch s.Type {
	case basic:
		return plain.Auth{
			Zid:  s.Zid,
			User: s.Username,
			Pass: s.Password,
		}.AsMechanism(), nil
	case scramSha256:
		return scram.Auth{
			Zid:     s.Zid,
			User:    s.Username,
			Pass:    s.Password,
			Nonce:   s.Nonce,
			IsToken: s.IsToken,
		}.AsSha256Mechanism(), nil
	case scramSha512:
		return scram.Auth{
			Zid:     s.Zid,
			User:    s.Username,
			Pass:    s.Password,
			Nonce:   s.Nonce,
			IsToken: s.IsToken,
		}.AsSha512Mechanism(), nil
	case awsMskIam:
		return mskIamMechanism(s), nil
	default:
		return nil, fmt.Errorf("%w: unknown sasl mechanism: %s", ErrConfig, s.Type)
	}
}

// mskIamMechanism resolves credentials on every SASL session: static keys
// when configured, the ambient AWS credential chain otherwise, so rotated
// instance-profile credentials keep working.
func mskIamMechanism(s *SASL) sasl.Mechanism {
	return kaws.ManagedStreamingIAM(func(ctx context.Context) (kaws.Auth, error) {
		if s.AccessKey != "" && s.SecretKey != "" {
			return kaws.Auth{
				AccessKey:    s.AccessKey,
				SecretKey:    s.SecretKey,
				SessionToken: s.SessionToken,
				UserAgent:    s.UserAgent,
			}, nil
		}

		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return kaws.Auth{}, err
		}

		creds, err := cfg.Credentials.Retrieve(ctx)
		if err != nil {
			return kaws.Auth{}, err
		}

		return kaws.Auth{
			AccessKey:    creds.AccessKeyID,
			SecretKey:    creds.SecretAccessKey,
			SessionToken: creds.SessionToken,
			UserAgent:    s.UserAgent,
		}, nil
	})
}

func tlsConfig(t *TLS) (*tls.Config, error) {
	const op = errors.Op("kafka_tls_config")

	conf := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	if t.RootCA != "" {
		pem, err := os.ReadFile(t.RootCA)
		if err != nil {
			return nil, errors.E(op, err)
		}

		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.E(op, errors.Errorf("failed to parse root CA: %s", t.RootCA))
		}
		conf.RootCAs = pool
	}

	if t.Cert != "" && t.Key != "" {
		cert, err := tls.LoadX509KeyPair(t.Cert, t.Key)
		if err != nil {
			return nil, errors.E(op, err)
		}
		conf.Certificates = []tls.Certificate{cert}
	}

	return conf, nil
}
