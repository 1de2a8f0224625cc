package dig_container

import (
	"context"
	"fmt"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/dig"

	"github.com/trezcool/masomo-attendance/apps"
	echoapi "github.com/trezcool/masomo-attendance/apps/api/echo"
	"github.com/trezcool/masomo-attendance/core"
	"github.com/trezcool/masomo-attendance/core/attendance"
	logsvc "github.com/trezcool/masomo-attendance/services/logger"
	"github.com/trezcool/masomo-attendance/services/metrics"
)

type BackendLoggerParam struct {
	dig.In
	Logger core.Logger `name:"backendLogger"`
}

func newLogger(log *logrus.Logger, conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(log, conf).WithComponent("api")
	logger.Enable(!conf.Debug)
	return logger
}

func newBackendLogger(log *logrus.Logger, conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(log, conf).WithComponent("backend")
	logger.Enable(!conf.Debug)
	return logger
}

func newBackend(conf *core.Config, loggerParam BackendLoggerParam) *apps.Backend {
	backend, err := apps.NewBackend(context.Background(), conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up %s roster backend: %v", conf.Roster.Driver, err), err)
	}
	return backend
}

func newInstrumentedBackend(backend *apps.Backend, collector *metrics.Collector) attendance.Backend {
	return collector.Instrument(backend)
}

type serverParams struct {
	dig.In
	Config     *core.Config
	Logger     core.Logger
	Service    *attendance.Service
	Sessions   *echoapi.SessionRegistry
	Metrics    *metrics.Collector
	Validate   *validator.Validate
	Translator ut.Translator
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.Deps{
		Config:     p.Config,
		Logger:     p.Logger,
		Service:    p.Service,
		Sessions:   p.Sessions,
		Metrics:    p.Metrics,
		Validate:   p.Validate,
		Translator: p.Translator,
	})
}

type NewConfigFunc func() *core.Config

// New returns a new dependency injection dig.Container
func New(newConfig NewConfigFunc) *dig.Container {
	c := dig.New()

	must(c.Provide(newConfig))
	must(c.Provide(logsvc.NewLogrus))
	must(c.Provide(newLogger))
	must(c.Provide(newBackendLogger, dig.Name("backendLogger")))
	must(c.Provide(newBackend))
	must(c.Provide(metrics.NewCollector))
	must(c.Provide(newInstrumentedBackend))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(attendance.NewService))
	must(c.Provide(echoapi.NewSessionRegistry))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
