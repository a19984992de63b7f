// Package monolith provides the application container and module interface.
package monolith

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/fd1az/swapbox/internal/config"
	"github.com/fd1az/swapbox/internal/di"
	"github.com/fd1az/swapbox/internal/httpclient"
	"github.com/fd1az/swapbox/internal/logger"
	"github.com/fd1az/swapbox/internal/ratelimit"
)

// Shared service names registered by New.
const (
	ServiceConfig     = "config"
	ServiceLogger     = "logger"
	ServiceEthClient  = "ethClient"
	ServiceRPCClient  = "rpcClient"
	ServiceRPCLimiter = "rpcLimiter"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	EthClient() *ethclient.Client
	RPCClient() *rpc.Client
	Services() di.ServiceRegistry
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// app implements the Monolith interface.
type app struct {
	config    *config.Config
	logger    logger.LoggerInterface
	rpcClient *rpc.Client
	ethClient *ethclient.Client
	container di.Container
}

// New dials the node over the instrumented HTTP client and registers the
// shared services. Dialing HTTP does not contact the node.
func New(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) (*app, error) {
	httpClient, err := httpclient.New(
		httpclient.WithProviderName("ethereum"),
		httpclient.WithRequestTimeout(cfg.Ethereum.RPCTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("http client: %w", err)
	}

	rpcClient, err := rpc.DialOptions(ctx, cfg.Ethereum.HTTPURL, rpc.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.Ethereum.HTTPURL, err)
	}

	return newApp(cfg, log, rpcClient), nil
}

func newApp(cfg *config.Config, log logger.LoggerInterface, rpcClient *rpc.Client) *app {
	ethClient := ethclient.NewClient(rpcClient)

	container := di.NewContainer()

	// Register global services
	container.Register(ServiceConfig, cfg)
	container.Register(ServiceLogger, log)
	container.Register(ServiceRPCClient, rpcClient)
	container.Register(ServiceEthClient, ethClient)
	container.Register(ServiceRPCLimiter, ratelimit.New(cfg.Ethereum.RequestsPerMinute))

	return &app{
		config:    cfg,
		logger:    log,
		rpcClient: rpcClient,
		ethClient: ethClient,
		container: container,
	}
}

func (a *app) Config() *config.Config {
	return a.config
}

func (a *app) Logger() logger.LoggerInterface {
	return a.logger
}

func (a *app) EthClient() *ethclient.Client {
	return a.ethClient
}

func (a *app) RPCClient() *rpc.Client {
	return a.rpcClient
}

func (a *app) Services() di.ServiceRegistry {
	return a.container
}

// Container returns the DI container for module registration.
func (a *app) Container() di.Container {
	return a.container
}

// RegisterModules registers all provided modules.
func (a *app) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return err
		}
	}
	return nil
}

// StartModules starts all provided modules.
func (a *app) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all resources.
func (a *app) Close() error {
	if a.ethClient != nil {
		a.ethClient.Close()
	}
	return nil
}
