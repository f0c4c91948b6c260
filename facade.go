package soasecurity

import (
	"fmt"

	"github.com/goliatone/go-soasecurity/adapters/gocommand"
	soacommand "github.com/goliatone/go-soasecurity/command"
	soaquery "github.com/goliatone/go-soasecurity/query"
)

// AnonymizationStore is the read/write side of the anonymization requests.
type AnonymizationStore interface {
	soacommand.AnonymizationWriter
	soaquery.AnonymizationReader
}

type Commands struct {
	InsertAnonymizationRequest *soacommand.InsertAnonymizationRequestCommand
}

type Queries struct {
	RequestToken            *soaquery.RequestTokenQuery
	GetAnonymizationRequest *soaquery.GetAnonymizationRequestQuery
}

type Facade struct {
	tokens        soaquery.TokenReader
	anonymization AnonymizationStore
	commands      Commands
	queries       Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	anonymization AnonymizationStore
}

func WithAnonymizationStore(store AnonymizationStore) FacadeOption {
	return func(options *facadeOptions) {
		options.anonymization = store
	}
}

// NewFacade wires the message handlers. Anonymization handlers stay nil until
// a store is supplied.
func NewFacade(tokens soaquery.TokenReader, opts ...FacadeOption) (*Facade, error) {
	if tokens == nil {
		return nil, fmt.Errorf("soasecurity: token reader is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	facade := &Facade{
		tokens:        tokens,
		anonymization: cfg.anonymization,
	}
	facade.queries.RequestToken = soaquery.NewRequestTokenQuery(tokens)
	if cfg.anonymization != nil {
		facade.commands.InsertAnonymizationRequest = soacommand.NewInsertAnonymizationRequestCommand(cfg.anonymization)
		facade.queries.GetAnonymizationRequest = soaquery.NewGetAnonymizationRequestQuery(cfg.anonymization)
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

// Handlers returns the collaborators for gocommand.RegisterHandlers.
func (f *Facade) Handlers() gocommand.Handlers {
	if f == nil {
		return gocommand.Handlers{}
	}
	handlers := gocommand.Handlers{Tokens: f.tokens}
	if f.anonymization != nil {
		handlers.AnonymizationWriter = f.anonymization
		handlers.AnonymizationReader = f.anonymization
	}
	return handlers
}
