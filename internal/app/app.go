package app

import (
	"context"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/asaskevich/EventBus"
	"github.com/bwmarrin/snowflake"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/vitrina/catalogd/config"
	"github.com/vitrina/catalogd/internal/backend"
	"github.com/vitrina/catalogd/internal/localstate"
	"github.com/vitrina/catalogd/internal/store"
	"github.com/vitrina/catalogd/internal/uploader"
	"github.com/vitrina/catalogd/pkg/metrics"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Application struct {
	appConfig *config.AppConfig
	catalog   *store.Store
	guarded   *backend.Guard
	drive     *backend.Drive
	local     *localstate.Store
	bus       EventBus.Bus
	sched     *cron.Cron
	gormDB    *gorm.DB
}

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig { return a.appConfig }

func (a *Application) Store() *store.Store { return a.catalog }

func (a *Application) LocalState() *localstate.Store { return a.local }

func (a *Application) Bus() EventBus.Bus { return a.bus }

// Scheduler returns the cron scheduler.
func (a *Application) Scheduler() *cron.Cron { return a.sched }

func (a *Application) Init() error {
	cfg := a.appConfig

	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	a.initLogger()

	if err := os.MkdirAll(cfg.System.Workdir, 0o755); err != nil {
		return errors.Wrap(err, "create workdir")
	}

	if err := metrics.InitMetrics(cfg.System.Workdir); err != nil {
		zap.S().Warn("Failed to initialize metrics:", err)
	}

	a.local, err = localstate.Open(cfg.System.Workdir)
	if err != nil {
		return err
	}

	inner, up, err := a.buildBackend()
	if err != nil {
		return err
	}
	a.guarded = backend.NewGuard(inner)
	zap.S().Infof("Catalog backend selected, type: %s", inner.Name())

	node, err := snowflake.NewNode(1)
	if err != nil {
		return errors.Wrap(err, "init id node")
	}

	a.bus = EventBus.New()
	a.catalog = store.New(a.guarded, up, node, a.bus)

	a.initJob()
	return nil
}

// LoadInitial performs the startup catalog load. This is the only place a
// fetch failure is surfaced, so the caller can show a generic failure notice.
func (a *Application) LoadInitial(ctx context.Context) error {
	a.catalog.Load(ctx)
	if !a.guarded.Loaded() {
		return errors.New("catalog initialization failed")
	}
	return nil
}

// buildBackend selects the backend and image uploader from credential
// presence: Drive credentials win, then a database DSN, else the demo
// backend. Cloudinary takes the uploads whenever a preset is configured.
func (a *Application) buildBackend() (backend.Backend, uploader.Uploader, error) {
	cfg := a.appConfig

	var inner backend.Backend
	switch cfg.BackendType() {
	case config.BackendDrive:
		tokens := backend.NewTokenManager(cfg.Drive, a.local)
		a.drive = backend.NewDrive(cfg.Drive, tokens)
		inner = a.drive
	case config.BackendTable:
		db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
		if err != nil {
			return nil, nil, errors.Wrap(err, "open catalog database")
		}
		a.gormDB = db
		table, err := backend.NewTable(db, cfg.Database.Table)
		if err != nil {
			return nil, nil, err
		}
		inner = table
	default:
		inner = backend.NewMemory()
	}

	var up uploader.Uploader
	switch {
	case cfg.Cloudinary.CloudName != "" && cfg.Cloudinary.UploadPreset != "":
		up = uploader.NewCloudinary(cfg.Cloudinary)
	case a.drive != nil:
		up = uploader.NewDrive(a.drive)
	default:
		up = uploader.Noop{}
	}
	return inner, up, nil
}

func (a *Application) initLogger() {
	cfg := a.appConfig

	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.OutputPaths = []string{"stdout"}

	var logger *zap.Logger
	if cfg.Logger.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Logger.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}
		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	} else {
		var err error
		logger, err = zapConfig.Build(zap.AddCaller(), zap.AddCallerSkip(1))
		if err != nil {
			panic(err)
		}
	}
	zap.ReplaceGlobals(logger)
}

// Release releases application resources.
func (a *Application) Release() {
	if a.sched != nil {
		a.sched.Stop()
	}
	if a.local != nil {
		_ = a.local.Close()
	}
	_ = metrics.Close()
	_ = zap.L().Sync()
}
