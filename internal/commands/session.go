package commands

import (
	"context"
	"errors"
	"fmt"

	"tally/internal/amqp"
	"tally/internal/backend"
	"tally/internal/config"
	"tally/internal/log"
	"tally/internal/services"
	"tally/internal/store"
)

// session is an opened account and the resources behind it.
type session struct {
	account *services.AccountService
	backend *backend.BackendResult
}

// openSession builds the backend, the document store and the account
// service. Events are published only when AMQP_URL is set; a broker that
// cannot be reached disables publishing instead of failing the command.
func openSession(ctx context.Context, cfg *config.Config, logger *log.Logger) (*session, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.DataBackend, err)
	}

	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Event publishing disabled", log.FieldError, err)
		} else {
			publisher = client
		}
	}

	st := store.NewDocumentStore(res.KV, cfg.DocumentKey, logger)
	return &session{
		account: services.NewAccountService(st, publisher, logger),
		backend: res,
	}, nil
}

// openWriteSession is openSession for commands that change the account. The
// memory backend lives only as long as this process, so its writes are lost
// when the command exits.
func openWriteSession(ctx context.Context, cfg *config.Config, logger *log.Logger) (*session, error) {
	if cfg.DataBackend == config.BackendMemory {
		logger.Warn("Changes will not persist: the memory backend lasts only for this command",
			log.FieldBackend, cfg.DataBackend)
	}
	return openSession(ctx, cfg, logger)
}

func (s *session) Close() error {
	return errors.Join(s.account.Close(), s.backend.Close())
}
