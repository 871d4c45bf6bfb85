package plaid

import (
	"context"
	"time"

	"github.com/Veraticus/plaid-connect/internal/model"
)

// Catalog lists and looks up supported institutions.
type Catalog interface {
	ListInstitutions(ctx context.Context) InstitutionList
	ListIntuitInstitutions(ctx context.Context, count, skip int) InstitutionList
	GetInstitution(ctx context.Context, id string) InstitutionResult
}

// Linker drives a linking attempt from credentials through MFA.
type Linker interface {
	Login(ctx context.Context, inst model.Institution, username, password, pin string) LinkResult
	SubmitMFA(ctx context.Context, answer string, inst model.Institution, accessToken string, opts ...MFAOption) *Payload
}

// Updater re-verifies an existing link.
type Updater interface {
	PatchInstitution(ctx context.Context, accessToken, username, password, pin string) *Payload
	PatchSubmitMFA(ctx context.Context, answer, accessToken string) *Payload
}

// Syncer downloads transactions for a linked account.
type Syncer interface {
	Download(ctx context.Context, accessToken, account string, pending bool, from, to *time.Time) SyncOutcome
}

// API is the full connect API surface. It allows for easy mocking in tests.
type API interface {
	Catalog
	Linker
	Updater
	Syncer
}

// Ensure Client implements API interface.
var _ API = (*Client)(nil)
