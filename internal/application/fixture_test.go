package application

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/healthcare-identity/internal/domain/entity"
	"github.com/oksasatya/healthcare-identity/internal/infrastructure/memory"
	"github.com/oksasatya/healthcare-identity/pkg/helpers"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
	fail error
}

func (n *recordingNotifier) Notify(_ context.Context, msg Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		return n.fail
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) last(t *testing.T) Notification {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.sent, "no notification sent")
	return n.sent[len(n.sent)-1]
}

type memoryIndexer struct {
	mu   sync.Mutex
	docs map[string]AccountSummary
}

func (m *memoryIndexer) Index(_ context.Context, s AccountSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.docs == nil {
		m.docs = map[string]AccountSummary{}
	}
	m.docs[s.ID] = s
	return nil
}

func (m *memoryIndexer) Search(_ context.Context, q string, _ int) ([]map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []map[string]any{}
	for _, d := range m.docs {
		if q == "" || d.DisplayName == q {
			out = append(out, map[string]any{"id": d.ID, "name": d.DisplayName})
		}
	}
	return out, nil
}

type stubObjects struct{ fail bool }

func (s stubObjects) Upload(_ context.Context, objectPath, _ string, r io.Reader) (string, error) {
	if s.fail {
		return "", errors.New("bucket unavailable")
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	return "https://storage.googleapis.com/test-bucket/" + objectPath, nil
}

type fixture struct {
	svc      *AuthService
	repo     *memory.AccountRepository
	clock    *clock
	notifier *recordingNotifier
	indexer  *memoryIndexer
	codes    []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	f := &fixture{
		repo:     memory.NewAccountRepository(),
		clock:    &clock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)},
		notifier: &recordingNotifier{},
		indexer:  &memoryIndexer{},
	}
	otp := NewOTPEngine(f.repo, DefaultOTPTTL)
	otp.Now = f.clock.Now
	seq := []string{"123456", "654321", "000042", "777777", "314159"}
	otp.Generate = func() (string, error) {
		code := seq[len(f.codes)%len(seq)]
		f.codes = append(f.codes, code)
		return code, nil
	}

	resolver := NewIdentityResolver(f.repo, nil, logger)
	f.svc = NewAuthService(f.repo, resolver, otp, helpers.NewSessionManager("test-secret", time.Hour),
		f.notifier, f.indexer, stubObjects{}, logger, Options{ResetURL: "https://app.example.com/reset-password"})
	f.svc.Now = f.clock.Now
	return f
}

func patientInput(email string) RegisterInput {
	return RegisterInput{
		Email:    email,
		Password: "hunter22!",
		Role:     "patient",
		Profile:  entity.Profile{Patient: &entity.PatientProfile{FullName: "Ada Patient"}},
	}
}

// register creates an account and returns its summary
func (f *fixture) register(t *testing.T, in RegisterInput) *AccountSummary {
	t.Helper()
	sum, sess, err := f.svc.Register(context.Background(), in)
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token)
	return sum
}

// registerVerified creates an account and runs it through email verification
func (f *fixture) registerVerified(t *testing.T, in RegisterInput) *AccountSummary {
	t.Helper()
	ctx := context.Background()
	sum := f.register(t, in)
	require.NoError(t, f.svc.SendVerificationOTP(ctx, sum.ID, RequestMeta{}))
	require.NoError(t, f.svc.VerifyAccount(ctx, sum.ID, f.notifier.last(t).Code, RequestMeta{}))
	return sum
}
