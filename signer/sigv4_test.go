package signer_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/adamwoolhether/s3exec/signer"
)

func staticCredentials() aws.CredentialsProvider {
	return aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     "AKIDEXAMPLE",
			SecretAccessKey: "wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY",
		}, nil
	})
}

func getRequest(t *testing.T) *http.Request {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, "https://examplebucket.s3.amazonaws.com/test.txt", nil)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}

	return req
}

// signWait runs one signing operation and blocks for its outcome.
func signWait(t *testing.T, s *signer.V4, req *http.Request, cfg signer.Config) (signer.Result, error) {
	t.Helper()

	sg, err := s.NewSignable(req)
	if err != nil {
		t.Fatalf("creating signable: %v", err)
	}

	type outcome struct {
		res signer.Result
		err error
	}
	ch := make(chan outcome, 1)

	if err := s.SignAsync(context.Background(), sg, cfg, func(res signer.Result, err error) {
		ch <- outcome{res: res, err: err}
	}); err != nil {
		t.Fatalf("submitting signing: %v", err)
	}

	select {
	case o := <-ch:
		return o.res, o.err
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for signing outcome")
		return nil, nil
	}
}

func TestV4_SignsRequest(t *testing.T) {
	s := signer.NewV4()
	req := getRequest(t)

	cfg := signer.Config{
		Algorithm:   signer.AlgorithmV4,
		Credentials: staticCredentials(),
		Region:      "us-east-1",
		Service:     "s3",
		Date:        time.Date(2013, 5, 24, 0, 0, 0, 0, time.UTC),
	}

	res, err := signWait(t, s, req, cfg)
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	// The original message is untouched before Apply.
	if got := req.Header.Get("Authorization"); got != "" {
		t.Errorf("expected unsigned original, got Authorization %q", got)
	}

	if err := res.Apply(req); err != nil {
		t.Fatalf("applying result: %v", err)
	}

	auth := req.Header.Get("Authorization")
	switch {
	case !strings.HasPrefix(auth, "AWS4-HMAC-SHA256 "):
		t.Errorf("unexpected authorization algorithm: %q", auth)
	case !strings.Contains(auth, "Credential=AKIDEXAMPLE/20130524/us-east-1/s3/aws4_request"):
		t.Errorf("missing credential scope: %q", auth)
	case !strings.Contains(auth, "Signature="):
		t.Errorf("missing signature: %q", auth)
	}

	if got := req.Header.Get("X-Amz-Content-Sha256"); got != signer.UnsignedPayload {
		t.Errorf("expected payload hash %q, got %q", signer.UnsignedPayload, got)
	}
	if got := req.Header.Get("X-Amz-Date"); got != "20130524T000000Z" {
		t.Errorf("unexpected X-Amz-Date: %q", got)
	}
}

func TestV4_SessionToken(t *testing.T) {
	creds := aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     "AKIDEXAMPLE",
			SecretAccessKey: "secret",
			SessionToken:    "session-token",
		}, nil
	})

	s := signer.NewV4()
	req := getRequest(t)

	res, err := signWait(t, s, req, signer.Config{
		Credentials: creds,
		Region:      "us-west-2",
		Service:     "s3",
	})
	if err != nil {
		t.Fatalf("signing: %v", err)
	}
	if err := res.Apply(req); err != nil {
		t.Fatalf("applying result: %v", err)
	}

	if got := req.Header.Get("X-Amz-Security-Token"); got != "session-token" {
		t.Errorf("expected security token header, got %q", got)
	}
}

func TestV4_ApplyOverwritesStaleAuthorization(t *testing.T) {
	s := signer.NewV4()
	req := getRequest(t)
	req.Header.Set("Authorization", "stale")

	res, err := signWait(t, s, req, signer.Config{
		Credentials: staticCredentials(),
		Region:      "us-east-1",
		Service:     "s3",
	})
	if err != nil {
		t.Fatalf("signing: %v", err)
	}
	if err := res.Apply(req); err != nil {
		t.Fatalf("applying result: %v", err)
	}

	if got := req.Header.Get("Authorization"); !strings.HasPrefix(got, "AWS4-HMAC-SHA256 ") {
		t.Errorf("expected fresh authorization, got %q", got)
	}
}

func TestV4_ClockUsedForZeroDate(t *testing.T) {
	fixed := time.Date(2021, 1, 2, 3, 4, 5, 0, time.UTC)
	s := signer.NewV4(signer.WithClock(func() time.Time { return fixed }))
	req := getRequest(t)

	res, err := signWait(t, s, req, signer.Config{
		Credentials: staticCredentials(),
		Region:      "us-east-1",
		Service:     "s3",
	})
	if err != nil {
		t.Fatalf("signing: %v", err)
	}
	if err := res.Apply(req); err != nil {
		t.Fatalf("applying result: %v", err)
	}

	if got := req.Header.Get("X-Amz-Date"); got != "20210102T030405Z" {
		t.Errorf("expected clock date, got %q", got)
	}
}

func TestV4_NewSignableNilMessage(t *testing.T) {
	s := signer.NewV4()

	if _, err := s.NewSignable(nil); !errors.Is(err, signer.ErrNilMessage) {
		t.Errorf("expected ErrNilMessage, got: %v", err)
	}
}

func TestV4_SignAsyncValidation(t *testing.T) {
	s := signer.NewV4()
	req := getRequest(t)

	sg, err := s.NewSignable(req)
	if err != nil {
		t.Fatalf("creating signable: %v", err)
	}

	noCall := func(signer.Result, error) {
		t.Error("callback must not fire for rejected submissions")
	}

	err = s.SignAsync(context.Background(), nil, signer.Config{Credentials: staticCredentials()}, noCall)
	if !errors.Is(err, signer.ErrNilMessage) {
		t.Errorf("expected ErrNilMessage for nil signable, got: %v", err)
	}

	err = s.SignAsync(context.Background(), sg, signer.Config{}, noCall)
	if !errors.Is(err, signer.ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials, got: %v", err)
	}

	err = s.SignAsync(context.Background(), sg, signer.Config{
		Credentials: staticCredentials(),
		Algorithm:   signer.Algorithm(99),
	}, noCall)
	if !errors.Is(err, signer.ErrUnsupportedAlgorithm) {
		t.Errorf("expected ErrUnsupportedAlgorithm, got: %v", err)
	}
}

func TestV4_CredentialsError(t *testing.T) {
	errCreds := errors.New("expired token")
	creds := aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
		return aws.Credentials{}, errCreds
	})

	s := signer.NewV4()
	_, err := signWait(t, s, getRequest(t), signer.Config{
		Credentials: creds,
		Region:      "us-east-1",
		Service:     "s3",
	})
	if !errors.Is(err, errCreds) {
		t.Errorf("expected credentials error, got: %v", err)
	}
}

func TestV4_ApplyNilTarget(t *testing.T) {
	s := signer.NewV4()

	res, err := signWait(t, s, getRequest(t), signer.Config{
		Credentials: staticCredentials(),
		Region:      "us-east-1",
		Service:     "s3",
	})
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	if err := res.Apply(nil); !errors.Is(err, signer.ErrNilMessage) {
		t.Errorf("expected ErrNilMessage, got: %v", err)
	}
}
