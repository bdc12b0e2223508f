package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/loamstore/access/internal/cluster"
	"github.com/loamstore/access/internal/database"
	"github.com/loamstore/access/internal/metrics"
	"github.com/loamstore/access/internal/security/backend"
	securityHTTP "github.com/loamstore/access/internal/security/http"
	"github.com/loamstore/access/internal/security/service"
	securityUseCase "github.com/loamstore/access/internal/security/usecase"
)

// backendNeedsDB reports whether a backend name requires a SQL database.
func backendNeedsDB(name string) bool {
	return name != "memory"
}

// backendNeedsRedis reports whether a backend name layers a redis cache.
func backendNeedsRedis(name string) bool {
	return strings.HasSuffix(name, "+redis")
}

// SecretService returns the credential hashing service.
func (c *Container) SecretService() service.SecretService {
	c.secretServiceInit.Do(func() {
		c.secretService = service.NewSecretService()
	})
	return c.secretService
}

// IdentityStore returns the identity store selected by configuration.
func (c *Container) IdentityStore() (backend.IdentityStore, error) {
	var err error
	c.identityStoreInit.Do(func() {
		c.identityStore, err = c.initIdentityStore()
		if err != nil {
			c.initErrors["identityStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["identityStore"]; exists {
		return nil, storedErr
	}
	return c.identityStore, nil
}

// PermissionStore returns the permission store selected by configuration.
func (c *Container) PermissionStore() (backend.PermissionStore, error) {
	var err error
	c.permissionStoreInit.Do(func() {
		c.permissionStore, err = c.initPermissionStore()
		if err != nil {
			c.initErrors["permissionStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["permissionStore"]; exists {
		return nil, storedErr
	}
	return c.permissionStore, nil
}

// ClusterRegistry returns the cluster metadata registry.
func (c *Container) ClusterRegistry() (cluster.Registry, error) {
	var err error
	c.registryInit.Do(func() {
		c.registry, err = c.initClusterRegistry()
		if err != nil {
			c.initErrors["registry"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["registry"]; exists {
		return nil, storedErr
	}
	return c.registry, nil
}

// SecurityEngine returns the access-control engine with the configured
// decorators applied.
func (c *Container) SecurityEngine() (securityUseCase.SecurityUseCase, error) {
	var err error
	c.securityEngineInit.Do(func() {
		c.securityEngine, err = c.initSecurityEngine()
		if err != nil {
			c.initErrors["securityEngine"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["securityEngine"]; exists {
		return nil, storedErr
	}
	return c.securityEngine, nil
}

// Handlers returns the HTTP handlers for the API router.
func (c *Container) Handlers() (
	*securityHTTP.SecurityHandler,
	*securityHTTP.UserHandler,
	*securityHTTP.PermissionHandler,
	*securityHTTP.CacheHandler,
	error,
) {
	var err error
	c.handlersInit.Do(func() {
		var engine securityUseCase.SecurityUseCase
		engine, err = c.SecurityEngine()
		if err != nil {
			c.initErrors["handlers"] = err
			return
		}

		logger := c.Logger()
		c.securityHandler = securityHTTP.NewSecurityHandler(engine, logger)
		c.userHandler = securityHTTP.NewUserHandler(engine, logger)
		c.permissionHandler = securityHTTP.NewPermissionHandler(engine, logger)
		c.cacheHandler = securityHTTP.NewCacheHandler(engine, logger)
	})
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if storedErr, exists := c.initErrors["handlers"]; exists {
		return nil, nil, nil, nil, storedErr
	}
	return c.securityHandler, c.userHandler, c.permissionHandler, c.cacheHandler, nil
}

// initIdentityStore builds the identity store and its dependencies.
func (c *Container) initIdentityStore() (backend.IdentityStore, error) {
	deps, err := c.backendDeps(c.config.IdentityBackend)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble identity store dependencies: %w", err)
	}

	store, err := backend.NewIdentityStore(c.config.IdentityBackend, deps)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity store: %w", err)
	}
	return store, nil
}

// initPermissionStore builds the permission store and its dependencies.
func (c *Container) initPermissionStore() (backend.PermissionStore, error) {
	deps, err := c.backendDeps(c.config.PermissionBackend)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble permission store dependencies: %w", err)
	}

	store, err := backend.NewPermissionStore(c.config.PermissionBackend, deps)
	if err != nil {
		return nil, fmt.Errorf("failed to create permission store: %w", err)
	}
	return store, nil
}

// backendDeps collects the shared resources a backend constructor needs.
func (c *Container) backendDeps(name string) (backend.Deps, error) {
	deps := backend.Deps{
		Secrets:  c.SecretService(),
		CacheTTL: c.config.CacheTTL,
	}

	if backendNeedsDB(name) {
		db, err := c.DB()
		if err != nil {
			return backend.Deps{}, err
		}
		deps.DB = db
	}

	if backendNeedsRedis(name) {
		rdb, err := c.RedisClient()
		if err != nil {
			return backend.Deps{}, err
		}
		deps.Redis = rdb
	}

	return deps, nil
}

// initClusterRegistry selects the registry implementation. Deployments with
// a coordination store resolve cluster metadata from redis; everything else
// runs on the values pinned in configuration.
func (c *Container) initClusterRegistry() (cluster.Registry, error) {
	if c.config.RedisAddr != "" {
		rdb, err := c.RedisClient()
		if err != nil {
			return nil, fmt.Errorf("failed to get redis client for cluster registry: %w", err)
		}
		return cluster.NewRedisRegistry(rdb), nil
	}

	if c.config.InstanceID == "" {
		return nil, fmt.Errorf("cluster registry requires INSTANCE_ID when redis coordination is disabled")
	}
	return cluster.NewStaticRegistry(c.config.InstanceID, ""), nil
}

// initSecurityEngine assembles the engine and wraps it with the metrics and
// audit decorators.
func (c *Container) initSecurityEngine() (securityUseCase.SecurityUseCase, error) {
	identities, err := c.IdentityStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get identity store for security engine: %w", err)
	}

	permissions, err := c.PermissionStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get permission store for security engine: %w", err)
	}

	registry, err := c.ClusterRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to get cluster registry for security engine: %w", err)
	}

	// Memory deployments run without transactions.
	var txManager database.TxManager
	if backendNeedsDB(c.config.IdentityBackend) || backendNeedsDB(c.config.PermissionBackend) {
		txManager, err = c.TxManager()
		if err != nil {
			return nil, fmt.Errorf("failed to get tx manager for security engine: %w", err)
		}
	}

	engine, err := securityUseCase.NewSecurityUseCase(
		context.Background(),
		identities,
		permissions,
		registry,
		txManager,
		[]byte(c.config.SystemSecret),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create security engine: %w", err)
	}

	if c.config.MetricsEnabled {
		metricsProvider, err := c.MetricsProvider()
		if err != nil {
			return nil, fmt.Errorf("failed to get metrics provider for security engine: %w", err)
		}
		businessMetrics, err := metrics.NewBusinessMetrics(
			metricsProvider.MeterProvider(),
			c.config.MetricsNamespace,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create business metrics: %w", err)
		}
		engine = securityUseCase.NewSecurityUseCaseWithMetrics(engine, businessMetrics)
	}

	// Audit logging is unconditional. Authorization decisions are part of
	// the cluster's security record.
	engine = securityUseCase.NewAuditedSecurityUseCase(engine, c.Logger())

	return engine, nil
}
