//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/animuse/animuse/internal/bootstrap"
	"github.com/animuse/animuse/internal/domain/auth"
	"github.com/animuse/animuse/internal/domain/profile"
	"github.com/animuse/animuse/internal/domain/recommend"
	"github.com/animuse/animuse/internal/infra/config"
	"github.com/animuse/animuse/internal/infra/notify"
	"github.com/animuse/animuse/internal/infra/recommender"
	httpiface "github.com/animuse/animuse/internal/interface/http"
	"github.com/animuse/animuse/pkg/logger"
)

func initializeApp() (*bootstrap.App, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		provideRecommendConfig,
		provideFetcherConfig,
		provideAuthConfig,
		provideChatClient,
		provideTokenCounter,
		provideNotificationFeed,
		provideProfileRepository,
		provideCategoryStore,
		provideRegistry,
		profile.NewService,
		recommend.NewCategoryCache,
		recommender.NewFetcher,
		auth.NewVerifier,
		wire.Bind(new(recommend.Service), new(*recommend.Registry)),
		wire.Bind(new(httpiface.NotificationFeed), new(*notify.Feed)),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}
