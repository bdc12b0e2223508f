package backend

import (
	"database/sql"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/loamstore/access/internal/errors"
	"github.com/loamstore/access/internal/security/service"
)

// Deps carries the shared resources a store constructor may need. A
// constructor uses only what its backend requires; missing resources fail
// construction rather than being discovered at call time.
type Deps struct {
	DB       *sql.DB
	Redis    *redis.Client
	Secrets  service.SecretService
	CacheTTL time.Duration
}

// Store selection is a registry of statically known constructors keyed by a
// configuration string. No reflective instantiation: adding a backend means
// registering a constructor here.
type (
	identityConstructor   func(deps Deps) (IdentityStore, error)
	permissionConstructor func(deps Deps) (PermissionStore, error)
)

var identityConstructors map[string]identityConstructor

func init() {
	identityConstructors = map[string]identityConstructor{
		"postgresql": func(deps Deps) (IdentityStore, error) {
			if deps.DB == nil {
				return nil, apperrors.New("postgresql identity store requires a database connection")
			}
			if deps.Secrets == nil {
				return nil, apperrors.New("postgresql identity store requires a secret service")
			}
			return NewPostgreSQLIdentityStore(deps.DB, deps.Secrets), nil
		},
		"postgresql+redis": func(deps Deps) (IdentityStore, error) {
			next, err := identityConstructors["postgresql"](deps)
			if err != nil {
				return nil, err
			}
			if deps.Redis == nil {
				return nil, apperrors.New("cached identity store requires a redis client")
			}
			return NewCachedIdentityStore(next, deps.Redis, deps.CacheTTL), nil
		},
		"mysql": func(deps Deps) (IdentityStore, error) {
			if deps.DB == nil {
				return nil, apperrors.New("mysql identity store requires a database connection")
			}
			if deps.Secrets == nil {
				return nil, apperrors.New("mysql identity store requires a secret service")
			}
			return NewMySQLIdentityStore(deps.DB, deps.Secrets), nil
		},
		"mysql+redis": func(deps Deps) (IdentityStore, error) {
			next, err := identityConstructors["mysql"](deps)
			if err != nil {
				return nil, err
			}
			if deps.Redis == nil {
				return nil, apperrors.New("cached identity store requires a redis client")
			}
			return NewCachedIdentityStore(next, deps.Redis, deps.CacheTTL), nil
		},
		"memory": func(Deps) (IdentityStore, error) {
			return NewMemoryIdentityStore(), nil
		},
	}
}

var permissionConstructors map[string]permissionConstructor

func init() {
	permissionConstructors = map[string]permissionConstructor{
		"postgresql": func(deps Deps) (PermissionStore, error) {
			if deps.DB == nil {
				return nil, apperrors.New("postgresql permission store requires a database connection")
			}
			return NewPostgreSQLPermissionStore(deps.DB), nil
		},
		"postgresql+redis": func(deps Deps) (PermissionStore, error) {
			next, err := permissionConstructors["postgresql"](deps)
			if err != nil {
				return nil, err
			}
			if deps.Redis == nil {
				return nil, apperrors.New("cached permission store requires a redis client")
			}
			return NewCachedPermissionStore(next, deps.Redis, deps.CacheTTL), nil
		},
		"mysql": func(deps Deps) (PermissionStore, error) {
			if deps.DB == nil {
				return nil, apperrors.New("mysql permission store requires a database connection")
			}
			return NewMySQLPermissionStore(deps.DB), nil
		},
		"mysql+redis": func(deps Deps) (PermissionStore, error) {
			next, err := permissionConstructors["mysql"](deps)
			if err != nil {
				return nil, err
			}
			if deps.Redis == nil {
				return nil, apperrors.New("cached permission store requires a redis client")
			}
			return NewCachedPermissionStore(next, deps.Redis, deps.CacheTTL), nil
		},
		"memory": func(Deps) (PermissionStore, error) {
			return NewMemoryPermissionStore(), nil
		},
	}
}

// NewIdentityStore builds the identity store selected by name.
func NewIdentityStore(name string, deps Deps) (IdentityStore, error) {
	ctor, ok := identityConstructors[name]
	if !ok {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidInput, "unknown identity backend %q", name)
	}
	return ctor(deps)
}

// NewPermissionStore builds the permission store selected by name.
func NewPermissionStore(name string, deps Deps) (PermissionStore, error) {
	ctor, ok := permissionConstructors[name]
	if !ok {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidInput, "unknown permission backend %q", name)
	}
	return ctor(deps)
}
