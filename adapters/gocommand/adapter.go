package gocommand

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	soacommand "github.com/goliatone/go-soasecurity/command"
	"github.com/goliatone/go-soasecurity/core"
	soaquery "github.com/goliatone/go-soasecurity/query"
)

// ValidateMessageContract enforces Type() plus optional Validate() contract.
func ValidateMessageContract(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

type RegistryAdapter struct {
	registry *command.Registry
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *command.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) RegisterCommand(cmd any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(cmd)
}

func (a *RegistryAdapter) Initialize() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.Initialize()
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	return commanddispatcher.Query[T, R](ctx, msg)
}

func RegisterAndSubscribe[T any](
	adapter *RegistryAdapter,
	cmd command.Commander[T],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if cmd == nil {
		return nil, fmt.Errorf("gocommand: command is required")
	}
	subscription := commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
	if err := adapter.RegisterCommand(cmd); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

func RegisterAndSubscribeQuery[T any, R any](
	adapter *RegistryAdapter,
	qry command.Querier[T, R],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if qry == nil {
		return nil, fmt.Errorf("gocommand: query is required")
	}
	subscription := commanddispatcher.SubscribeQuery(qry, runnerOpts...)
	if err := adapter.RegisterCommand(qry); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

// Handlers names the collaborators behind the security messages. Nil members
// leave the matching message unsubscribed.
type Handlers struct {
	Tokens              soaquery.TokenReader
	AnonymizationWriter soacommand.AnonymizationWriter
	AnonymizationReader soaquery.AnonymizationReader
}

// RegisterHandlers subscribes the token and anonymization messages on the
// global dispatcher. On error every subscription made so far is removed.
func RegisterHandlers(adapter *RegistryAdapter, handlers Handlers, runnerOpts ...runner.Option) ([]commanddispatcher.Subscription, error) {
	var subscriptions []commanddispatcher.Subscription
	register := func(subscription commanddispatcher.Subscription, err error) error {
		if err != nil {
			for _, sub := range subscriptions {
				sub.Unsubscribe()
			}
			subscriptions = nil
			return err
		}
		subscriptions = append(subscriptions, subscription)
		return nil
	}

	if handlers.Tokens != nil {
		qry := command.Querier[soaquery.RequestTokenMessage, core.TokenResult](soaquery.NewRequestTokenQuery(handlers.Tokens))
		if err := register(RegisterAndSubscribeQuery(adapter, qry, runnerOpts...)); err != nil {
			return nil, err
		}
	}
	if handlers.AnonymizationWriter != nil {
		cmd := command.Commander[soacommand.InsertAnonymizationRequestMessage](soacommand.NewInsertAnonymizationRequestCommand(handlers.AnonymizationWriter))
		if err := register(RegisterAndSubscribe(adapter, cmd, runnerOpts...)); err != nil {
			return nil, err
		}
	}
	if handlers.AnonymizationReader != nil {
		qry := command.Querier[soaquery.GetAnonymizationRequestMessage, core.AnonymizationRecord](soaquery.NewGetAnonymizationRequestQuery(handlers.AnonymizationReader))
		if err := register(RegisterAndSubscribeQuery(adapter, qry, runnerOpts...)); err != nil {
			return nil, err
		}
	}
	if len(subscriptions) == 0 {
		return nil, fmt.Errorf("gocommand: at least one handler is required")
	}
	return subscriptions, nil
}
