package notification

import (
	"github.com/smallbiznis/recurra/internal/notification/domain"
	"github.com/smallbiznis/recurra/internal/notification/repository"
	"github.com/smallbiznis/recurra/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(func(s domain.Service) domain.Notifier { return s }),
)
