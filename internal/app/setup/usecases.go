package setup

import (
	"fmt"

	"github.com/LavaJover/shvark-currency-service/internal/app/background"
	"github.com/LavaJover/shvark-currency-service/internal/usecase"
)

type UseCases struct {
	ImportUsecase         *usecase.DefaultImportUsecase
	ExchangeRateQuery     usecase.ExchangeRateQueryUsecase
	CurrencySeriesUsecase usecase.CurrencySeriesUsecase
}

type Workers struct {
	Scheduler    *background.TimerScheduler
	ImportJob    *background.ImportJob
	DailyTrigger *background.DailyTrigger
}

func InitializeUseCases(deps *Dependencies) *UseCases {
	importUc := usecase.NewDefaultImportUsecase(
		deps.Repositories.SeriesRepo,
		deps.Repositories.RateRepo,
		deps.Provider,
		usecase.NewReconciler(deps.Logger),
		deps.Cache,
		deps.Metrics,
		deps.Logger,
	)

	return &UseCases{
		ImportUsecase: importUc,
		ExchangeRateQuery: usecase.NewDefaultExchangeRateQueryUsecase(
			deps.Repositories.RateRepo,
			deps.Cache,
			deps.Config.Cache.TTL,
			deps.Logger,
		),
		CurrencySeriesUsecase: usecase.NewDefaultCurrencySeriesUsecase(
			deps.Repositories.SeriesRepo,
			deps.Publisher,
			deps.Logger,
		),
	}
}

func InitializeWorkers(deps *Dependencies, ucs *UseCases) (*Workers, error) {
	importCfg := deps.Config.ExchangeRateImport
	scheduler := background.NewTimerScheduler()

	job := background.NewImportJob(
		ucs.ImportUsecase,
		deps.Lock,
		deps.Metrics,
		deps.Journal,
		scheduler,
		background.ImportJobConfig{
			LockName: importCfg.LockName,
			MinHold:  importCfg.MinHold,
			MaxHold:  importCfg.MaxHold,
			Retry: background.RetryPolicy{
				MaxAttempts:        importCfg.Retry.MaxAttempts,
				BaseDelay:          importCfg.Retry.BaseDelay,
				FailFastOnRejected: importCfg.Retry.FailFastOnRejected,
			},
		},
		deps.Logger,
	)

	trigger, err := background.NewDailyTrigger(job, ucs.ImportUsecase, importCfg.Schedule, importCfg.RunOnStartup, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("daily trigger: %w", err)
	}

	return &Workers{
		Scheduler:    scheduler,
		ImportJob:    job,
		DailyTrigger: trigger,
	}, nil
}
