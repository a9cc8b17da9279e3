package application

import (
	"go.uber.org/zap"

	"github.com/gearboxe-market/messaging/internal/cache"
	"github.com/gearboxe-market/messaging/internal/directory"
	"github.com/gearboxe-market/messaging/internal/notify"
	"github.com/gearboxe-market/messaging/internal/repository"
	"github.com/gearboxe-market/messaging/internal/tx"
)

const serviceLabel = "messaging"

type Service struct {
	repo     repository.Repository
	tx       tx.Transactor
	users    directory.IdentityResolver
	vehicles directory.VehicleLookup
	cache    *cache.Cache
	notifier *notify.Notifier
	log      *zap.Logger
}

func New(
	repo repository.Repository,
	transactor tx.Transactor,
	users directory.IdentityResolver,
	vehicles directory.VehicleLookup,
	unreadCache *cache.Cache,
	notifier *notify.Notifier,
	log *zap.Logger,
) *Service {
	return &Service{
		repo:     repo,
		tx:       transactor,
		users:    users,
		vehicles: vehicles,
		cache:    unreadCache,
		notifier: notifier,
		log:      log,
	}
}
