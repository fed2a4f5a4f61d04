package app

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/authz"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/clock"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/config"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/goroutine"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/idempotency"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/instrument"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/jwt"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/messaging"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/router"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/secretbox"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/storage"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/uid"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/validator"
)

type closer struct {
	name string
	fn   func(context.Context) error
}

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	uid       uid.NumberID
	uuid      uid.StringID
	jwt       jwt.JWT
	secretBox secretbox.Box
	authz     authz.Authorizer

	// resources
	dbConn    *pgxpool.Pool
	cacheConn *redis.Client
	idemp     idempotency.Guard
	messaging messaging.Messaging
	storage   storage.Storage

	// server
	router       *router.Router
	httpServer   *http.Server
	streamServer *http.Server

	closers []closer
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initJWT()
	app.initDatabase()
	app.initMigration()
	app.initCache()
	app.initStorage()
	app.initMessaging()
	app.initAuthz()
	app.initSecretBox()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}
