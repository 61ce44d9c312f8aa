package signer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
)

// UnsignedPayload is the payload-hash value for streaming requests whose
// body is not covered by the signature.
const UnsignedPayload = "UNSIGNED-PAYLOAD"

const (
	authorizationHeader = "Authorization"
	amzHeaderPrefix     = "X-Amz-"
)

var (
	ErrNilMessage           = errors.New("message must not be nil")
	ErrMissingCredentials   = errors.New("credentials provider must not be nil")
	ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")
)

// Algorithm selects the signing algorithm.
type Algorithm int

const (
	// AlgorithmV4 is AWS Signature Version 4.
	AlgorithmV4 Algorithm = iota
)

// Config carries everything one signing operation needs.
type Config struct {
	Algorithm   Algorithm
	Credentials aws.CredentialsProvider
	Region      string
	Service     string
	Date        time.Time

	// PayloadHash is the hex-encoded body hash to sign, or
	// [UnsignedPayload]. Defaults to UnsignedPayload.
	PayloadHash string
}

// Signable is the view of an outbound message handed to a signing
// operation. It is created at most once per request.
type Signable interface {
	Message() *http.Request
}

// Result is the output of a signing operation. Apply writes the computed
// authorization headers onto the target message, overwriting any existing
// values.
type Result interface {
	Apply(req *http.Request) error
}

// V4 signs messages with AWS Signature Version 4. It is stateless and
// safe for concurrent use.
type V4 struct {
	signer *v4.Signer
	now    func() time.Time
}

// V4Option configures a [V4] signer.
type V4Option func(*V4)

// WithClock overrides the time source used when Config.Date is zero.
func WithClock(now func() time.Time) V4Option {
	return func(s *V4) {
		s.now = now
	}
}

// NewV4 creates a SigV4 signer.
func NewV4(opts ...V4Option) *V4 {
	s := &V4{
		signer: v4.NewSigner(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// NewSignable builds the signable view of req.
func (s *V4) NewSignable(req *http.Request) (Signable, error) {
	if req == nil || req.URL == nil {
		return nil, ErrNilMessage
	}

	return &signable{msg: req}, nil
}

// SignAsync signs sg asynchronously and delivers the outcome through fn,
// which is invoked exactly once. A non-nil return means the operation was
// never started and fn will not be called.
func (s *V4) SignAsync(ctx context.Context, sg Signable, cfg Config, fn func(Result, error)) error {
	if sg == nil || sg.Message() == nil {
		return ErrNilMessage
	}
	if cfg.Credentials == nil {
		return ErrMissingCredentials
	}
	if cfg.Algorithm != AlgorithmV4 {
		return fmt.Errorf("%w: %d", ErrUnsupportedAlgorithm, cfg.Algorithm)
	}

	go func() {
		res, err := s.sign(ctx, sg.Message(), cfg)
		fn(res, err)
	}()

	return nil
}

func (s *V4) sign(ctx context.Context, msg *http.Request, cfg Config) (Result, error) {
	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		return nil, fmt.Errorf("retrieving credentials: %w", err)
	}

	payloadHash := cfg.PayloadHash
	if payloadHash == "" {
		payloadHash = UnsignedPayload
	}

	date := cfg.Date
	if date.IsZero() {
		date = s.now().UTC()
	}

	// Sign a clone so the live message stays untouched until Apply.
	cpy := msg.Clone(ctx)
	cpy.Header.Set("X-Amz-Content-Sha256", payloadHash)

	if err := s.signer.SignHTTP(ctx, creds, cpy, payloadHash, cfg.Service, cfg.Region, date); err != nil {
		return nil, fmt.Errorf("signing request: %w", err)
	}

	return &v4Result{headers: cpy.Header}, nil
}

type signable struct {
	msg *http.Request
}

func (s *signable) Message() *http.Request {
	return s.msg
}

type v4Result struct {
	headers http.Header
}

func (r *v4Result) Apply(req *http.Request) error {
	if req == nil {
		return ErrNilMessage
	}
	if req.Header == nil {
		req.Header = make(http.Header)
	}

	for name, values := range r.headers {
		if name != authorizationHeader && !strings.HasPrefix(name, amzHeaderPrefix) {
			continue
		}
		req.Header[name] = append([]string(nil), values...)
	}

	return nil
}
