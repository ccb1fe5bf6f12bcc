//go:build wireinject
// +build wireinject

// Run `wire gen ./cmd/api` after changing a provider set.
package main

import (
	"github.com/google/wire"

	appbook "github.com/xiebiao/library/internal/application/book"
	appreservation "github.com/xiebiao/library/internal/application/reservation"
	appuser "github.com/xiebiao/library/internal/application/user"
	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/reservation"
	"github.com/xiebiao/library/internal/domain/user"
	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/interface/http/handler"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	"github.com/xiebiao/library/internal/interface/http/router"
)

var infrastructureSet = wire.NewSet(
	config.Load,
	provideLogger,
	provideStorage,
	provideRedis,
	provideNotifier,
)

var repositorySet = wire.NewSet(
	provideBookRepository,
	provideUserRepository,
	provideReservationRepository,
	provideTransactor,
	provideSessionStore,
	provideLocker,
)

var domainSet = wire.NewSet(
	user.NewService,
	book.NewService,
	reservation.NewEngine,
)

var applicationSet = wire.NewSet(
	appuser.NewRegisterUseCase,
	appuser.NewLoginUseCase,
	appuser.NewRefreshUseCase,
	appuser.NewLogoutUseCase,
	appuser.NewProfileUseCase,
	appuser.NewBootstrapAdmin,
	appbook.NewAddBookUseCase,
	appbook.NewListBooksUseCase,
	appbook.NewGetBookUseCase,
	appreservation.NewService,
	appreservation.NewQueryService,
)

var middlewareSet = wire.NewSet(
	provideJWTManager,
	provideBlacklist,
	middleware.NewAuthMiddleware,
)

var handlerSet = wire.NewSet(
	handler.NewUserHandler,
	handler.NewBookHandler,
	handler.NewReservationHandler,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)

func InitializeApp() (*App, func(), error) {
	wire.Build(
		infrastructureSet,
		repositorySet,
		domainSet,
		applicationSet,
		middlewareSet,
		handlerSet,
		newApp,
	)
	return nil, nil, nil
}
