package plaid

import (
	"context"
	"sync"
	"time"

	"github.com/Veraticus/plaid-connect/internal/model"
)

// MockClient is a mock implementation of API for testing.
type MockClient struct {
	// Functions that can be set by tests to control behavior
	ListInstitutionsFn       func(ctx context.Context) InstitutionList
	ListIntuitInstitutionsFn func(ctx context.Context, count, skip int) InstitutionList
	GetInstitutionFn         func(ctx context.Context, id string) InstitutionResult
	LoginFn                  func(ctx context.Context, inst model.Institution, username, password, pin string) LinkResult
	SubmitMFAFn              func(ctx context.Context, answer string, inst model.Institution, accessToken string) *Payload
	PatchInstitutionFn       func(ctx context.Context, accessToken, username, password, pin string) *Payload
	PatchSubmitMFAFn         func(ctx context.Context, answer, accessToken string) *Payload
	DownloadFn               func(ctx context.Context, accessToken, account string, pending bool, from, to *time.Time) SyncOutcome

	// Call tracking
	LoginCalls     []LoginCall
	SubmitMFACalls []MFACall
	PatchCalls     []LoginCall
	DownloadCalls  []DownloadCall

	mu sync.Mutex
}

// LoginCall records the parameters of a Login or PatchInstitution call.
type LoginCall struct {
	Institution model.Institution
	AccessToken string
	Username    string
	Password    string
	PIN         string
}

// MFACall records the parameters of an MFA submission.
type MFACall struct {
	Options     map[string]any
	Answer      string
	AccessToken string
	Update      bool
}

// DownloadCall records the parameters of a Download call.
type DownloadCall struct {
	From        *time.Time
	To          *time.Time
	AccessToken string
	Account     string
	Pending     bool
}

// NewMockClient creates a new mock Plaid client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// ListInstitutions implements Catalog.ListInstitutions.
func (m *MockClient) ListInstitutions(ctx context.Context) InstitutionList {
	if m.ListInstitutionsFn != nil {
		return m.ListInstitutionsFn(ctx)
	}
	return InstitutionList{Institutions: []model.Institution{}}
}

// ListIntuitInstitutions implements Catalog.ListIntuitInstitutions.
func (m *MockClient) ListIntuitInstitutions(ctx context.Context, count, skip int) InstitutionList {
	if m.ListIntuitInstitutionsFn != nil {
		return m.ListIntuitInstitutionsFn(ctx, count, skip)
	}
	return InstitutionList{Institutions: []model.Institution{}}
}

// GetInstitution implements Catalog.GetInstitution.
func (m *MockClient) GetInstitution(ctx context.Context, id string) InstitutionResult {
	if m.GetInstitutionFn != nil {
		return m.GetInstitutionFn(ctx, id)
	}
	return InstitutionResult{}
}

// Login implements Linker.Login.
func (m *MockClient) Login(ctx context.Context, inst model.Institution, username, password, pin string) LinkResult {
	m.mu.Lock()
	m.LoginCalls = append(m.LoginCalls, LoginCall{Institution: inst, Username: username, Password: password, PIN: pin})
	m.mu.Unlock()

	if m.LoginFn != nil {
		return m.LoginFn(ctx, inst, username, password, pin)
	}
	return LinkResult{Kind: LinkNone}
}

// SubmitMFA implements Linker.SubmitMFA.
func (m *MockClient) SubmitMFA(ctx context.Context, answer string, inst model.Institution, accessToken string, opts ...MFAOption) *Payload {
	m.mu.Lock()
	m.SubmitMFACalls = append(m.SubmitMFACalls, MFACall{Answer: answer, AccessToken: accessToken, Options: mfaOptions(opts)})
	m.mu.Unlock()

	if m.SubmitMFAFn != nil {
		return m.SubmitMFAFn(ctx, answer, inst, accessToken)
	}
	return nil
}

// PatchInstitution implements Updater.PatchInstitution.
func (m *MockClient) PatchInstitution(ctx context.Context, accessToken, username, password, pin string) *Payload {
	m.mu.Lock()
	m.PatchCalls = append(m.PatchCalls, LoginCall{AccessToken: accessToken, Username: username, Password: password, PIN: pin})
	m.mu.Unlock()

	if m.PatchInstitutionFn != nil {
		return m.PatchInstitutionFn(ctx, accessToken, username, password, pin)
	}
	return nil
}

// PatchSubmitMFA implements Updater.PatchSubmitMFA.
func (m *MockClient) PatchSubmitMFA(ctx context.Context, answer, accessToken string) *Payload {
	m.mu.Lock()
	m.SubmitMFACalls = append(m.SubmitMFACalls, MFACall{Answer: answer, AccessToken: accessToken, Update: true})
	m.mu.Unlock()

	if m.PatchSubmitMFAFn != nil {
		return m.PatchSubmitMFAFn(ctx, answer, accessToken)
	}
	return nil
}

// Download implements Syncer.Download.
func (m *MockClient) Download(ctx context.Context, accessToken, account string, pending bool, from, to *time.Time) SyncOutcome {
	m.mu.Lock()
	m.DownloadCalls = append(m.DownloadCalls, DownloadCall{AccessToken: accessToken, Account: account, Pending: pending, From: from, To: to})
	m.mu.Unlock()

	if m.DownloadFn != nil {
		return m.DownloadFn(ctx, accessToken, account, pending, from, to)
	}
	return SyncOutcome{Kind: OutcomeEmpty}
}

// Reset clears all call tracking.
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LoginCalls = nil
	m.SubmitMFACalls = nil
	m.PatchCalls = nil
	m.DownloadCalls = nil
}

// Ensure MockClient implements API interface.
var _ API = (*MockClient)(nil)
