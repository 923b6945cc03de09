package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"github.com/lmspool/last-man-standing/external/fixturefeed"
	"github.com/lmspool/last-man-standing/external/lmsapi"
	"github.com/lmspool/last-man-standing/internal/config"
	"github.com/lmspool/last-man-standing/internal/infrastructure/repository/memory"
	"github.com/lmspool/last-man-standing/internal/interfaces/httpapi"
	"github.com/lmspool/last-man-standing/internal/platform/cache"
	"github.com/lmspool/last-man-standing/internal/platform/logging"
	"github.com/lmspool/last-man-standing/internal/platform/resilience"
	"github.com/lmspool/last-man-standing/internal/usecase"
)

func NewHTTPServer(cfg config.Config, logger *slog.Logger) (*http.Server, error) {
	zlog := logging.Default()

	participantRepo := memory.NewParticipantRepository()
	pickRepo := memory.NewPickRepository()
	scheduleRepo := memory.NewScheduleRepository()

	var feedCache *cache.Store
	if cfg.CacheEnabled {
		feedCache = cache.NewStore(cfg.CacheTTL)
	}

	feedClient := fixturefeed.NewClient(fixturefeed.ClientConfig{
		DeadlineURL: cfg.DeadlineFeedURL,
		Timeout:     cfg.FeedTimeout,
		Cache:       feedCache,
		Logger:      zlog,
	})

	fixtureSvc := usecase.NewFixtureService(feedClient, feedSources(cfg.FixtureFeedByLeague), cfg.GameStart, zlog)
	gameweekSvc := usecase.NewGameweekService(feedClient, cfg.DeadlineLead, zlog)

	// Without configured feeds the schedule comes from the built-in fixtures,
	// so local development works against a populated competition.
	if len(cfg.FixtureFeedByLeague) == 0 {
		sched, err := gameweekSvc.BuildSchedule(context.Background(), memory.SeedFixtures())
		if err != nil {
			return nil, fmt.Errorf("build seed schedule: %w", err)
		}
		scheduleRepo.Replace(context.Background(), sched)
	}

	lmsClient := lmsapi.NewClient(lmsapi.ClientConfig{
		EndpointURL: cfg.LMSAPIURL,
		APIKey:      cfg.LMSAPIKey,
		Timeout:     cfg.LMSAPITimeout,
		MaxRetries:  cfg.LMSAPIMaxRetries,
		Logger:      zlog,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.LMSAPICircuitEnabled,
			FailureThreshold: cfg.LMSAPICircuitFailureCount,
			OpenTimeout:      cfg.LMSAPICircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.LMSAPICircuitHalfOpenMaxReq,
		},
	})

	// Disabled remote means picks apply locally without a confirming
	// round-trip and background refresh reports the dependency unavailable.
	var pickRemote usecase.PickRemote
	var stateRemote usecase.StateRemote
	if cfg.LMSAPIEnabled {
		pickRemote = lmsClient
		stateRemote = lmsClient
	}

	pickSvc := usecase.NewPickService(participantRepo, pickRepo, scheduleRepo, pickRemote, zlog)
	progressionSvc := usecase.NewProgressionService(participantRepo, pickRepo, scheduleRepo)
	entrantSvc := usecase.NewEntrantService(scheduleRepo, zlog)
	reconcileSvc := usecase.NewReconcileService(lmsClient, scheduleRepo, nil, cfg.ReportConcurrency, zlog)
	refreshSvc := usecase.NewRefreshService(stateRemote, pickSvc, entrantSvc, cfg.RefreshInterval, zlog)
	// Local pick writes supersede any refresh pass already in flight, so a
	// snapshot fetched before the write cannot roll it back.
	pickSvc.SetRefreshGuard(refreshSvc)

	handler := httpapi.NewHandler(
		fixtureSvc,
		gameweekSvc,
		pickSvc,
		progressionSvc,
		entrantSvc,
		reconcileSvc,
		refreshSvc,
		participantRepo,
		pickRepo,
		scheduleRepo,
		lmsClient,
		logger,
	)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins, cfg.AdminKey)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if server.Addr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return server, nil
}

func feedSources(byLeague map[string]string) []usecase.FixtureSource {
	leagues := make([]string, 0, len(byLeague))
	for league := range byLeague {
		leagues = append(leagues, league)
	}
	sort.Strings(leagues)

	out := make([]usecase.FixtureSource, 0, len(leagues))
	for _, league := range leagues {
		out = append(out, usecase.FixtureSource{League: league, URL: byLeague[league]})
	}
	return out
}
