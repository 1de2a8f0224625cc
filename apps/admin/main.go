package main

import (
	"context"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-attendance/apps"
	"github.com/trezcool/masomo-attendance/core"
	"github.com/trezcool/masomo-attendance/core/attendance"
	logsvc "github.com/trezcool/masomo-attendance/services/logger"
)

func main() {
	conf := core.NewConfig()
	log := logsvc.NewLogrus(conf).WithField("app", "admin")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)

	backend, err := apps.NewBackend(context.Background(), conf)
	if err != nil {
		log.Fatal(err)
	}

	// start CLI
	cli := commandLine{
		conf:    conf,
		backend: backend,
		svc:     attendance.NewService(backend, validate, nil),
		out:     os.Stdout,
	}
	err = cli.run(os.Args)
	_ = backend.Close()
	if err != nil {
		if err != errHelp {
			log.Errorf("error: %s", err)
		}
		os.Exit(1)
	}
}
