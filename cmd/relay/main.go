package main

import (
	"context"
	"database/sql"
	"net/http"
	"sync"

	"github.com/mitchellh/mapstructure"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tixchain/ticket-server/pkg/app"
	"github.com/tixchain/ticket-server/pkg/data/account"
	memory_account_store "github.com/tixchain/ticket-server/pkg/data/account/memory"
	postgres_account_store "github.com/tixchain/ticket-server/pkg/data/account/postgres"
	pg "github.com/tixchain/ticket-server/pkg/database/postgres"
	"github.com/tixchain/ticket-server/pkg/netutil"
	"github.com/tixchain/ticket-server/pkg/relay"
	"github.com/tixchain/ticket-server/pkg/runtime"
	"github.com/tixchain/ticket-server/pkg/solana"
	ticketing_api "github.com/tixchain/ticket-server/pkg/solana/ticketing"
	"github.com/tixchain/ticket-server/pkg/ticketing"
)

const (
	memoryLedgerStore   = "memory"
	postgresLedgerStore = "postgres"
)

// relayConfig is decoded from the "app" section of the config file.
//
// When RpcEndpoint is set, either a URL or a cluster name such as "devnet",
// the relay builds against a real cluster. Otherwise it runs an in-process
// bank with the ticketing program registered.
type relayConfig struct {
	RpcEndpoint string `mapstructure:"rpc_endpoint"`

	LedgerStore string     `mapstructure:"ledger_store"`
	Postgres    *pg.Config `mapstructure:"postgres"`

	PlatformSeedLamports uint64 `mapstructure:"platform_seed_lamports"`
}

var defaultRelayConfig = relayConfig{
	LedgerStore:          memoryLedgerStore,
	PlatformSeedLamports: 1_000_000_000,
}

type relayApp struct {
	log *logrus.Entry

	db     *sql.DB
	server *relay.Server

	shutdownCh chan struct{}
	stopOnce   sync.Once
}

func (a *relayApp) Init(appConfig app.Config, metricsProvider *newrelic.Application) error {
	config := defaultRelayConfig
	if err := mapstructure.Decode(appConfig, &config); err != nil {
		return errors.Wrap(err, "invalid app config")
	}

	chain, err := a.newChain(&config, metricsProvider)
	if err != nil {
		return err
	}

	a.server = relay.NewServer(relay.NewBuilder(chain, relay.WithEnvConfigs()))
	return nil
}

func (a *relayApp) newChain(config *relayConfig, metricsProvider *newrelic.Application) (solana.Client, error) {
	if len(config.RpcEndpoint) > 0 {
		endpoint, err := netutil.ValidateHttpUrl(solana.ResolveEndpoint(config.RpcEndpoint), false, true)
		if err != nil {
			return nil, errors.Wrap(err, "invalid rpc endpoint")
		}

		a.log.WithField("endpoint", endpoint.Redacted()).Info("using rpc chain")
		return solana.New(endpoint.String()), nil
	}

	var store account.Store
	switch config.LedgerStore {
	case memoryLedgerStore:
		store = memory_account_store.New()
	case postgresLedgerStore:
		if config.Postgres == nil {
			return nil, errors.New("postgres config is required for the postgres ledger store")
		}

		db, err := pg.New(config.Postgres)
		if err != nil {
			return nil, errors.Wrap(err, "error connecting to postgres")
		}
		a.db = db
		store = postgres_account_store.New(db)
	default:
		return nil, errors.Errorf("unknown ledger store %q", config.LedgerStore)
	}

	bank := runtime.NewBank(store, runtime.WithEnvConfigs())
	bank.SetMetricsProvider(metricsProvider)
	ticketing.Register(bank)

	// The platform account must be rent exempt before it can receive resale
	// fees.
	balance, err := bank.GetBalance(ticketing_api.PLATFORM_ADDRESS)
	if err != nil {
		return nil, errors.Wrap(err, "error getting platform balance")
	}
	if balance == 0 && config.PlatformSeedLamports > 0 {
		_, err := bank.RequestAirdrop(ticketing_api.PLATFORM_ADDRESS, config.PlatformSeedLamports, solana.CommitmentFinalized)
		if err != nil {
			return nil, errors.Wrap(err, "error funding platform account")
		}
	}

	count, err := store.Count(context.Background())
	if err != nil {
		return nil, errors.Wrap(err, "error counting ledger accounts")
	}

	a.log.WithFields(logrus.Fields{
		"ledger_store": config.LedgerStore,
		"accounts":     count,
	}).Info("using local bank")
	return bank, nil
}

func (a *relayApp) RegisterWithHTTP(mux *http.ServeMux) {
	for path, handler := range a.server.GetHandlers() {
		mux.HandleFunc(path, handler)
	}
}

func (a *relayApp) ShutdownChan() <-chan struct{} {
	return a.shutdownCh
}

func (a *relayApp) Stop() {
	a.stopOnce.Do(func() {
		if a.db != nil {
			if err := a.db.Close(); err != nil {
				a.log.WithError(err).Warn("failed to close database")
			}
		}
		close(a.shutdownCh)
	})
}

func main() {
	relayApp := &relayApp{
		log:        logrus.StandardLogger().WithField("type", "cmd/relay"),
		shutdownCh: make(chan struct{}),
	}

	if err := app.Run(relayApp); err != nil {
		logrus.StandardLogger().WithError(err).Fatal("error running relay")
	}
}
