package provider

import (
	"github.com/tipari/platform/internal/cache"
	"github.com/tipari/platform/internal/config"
	"github.com/tipari/platform/internal/logger"
	"github.com/tipari/platform/internal/models"
	"github.com/tipari/platform/internal/queue"
	"github.com/tipari/platform/internal/repository"
	"github.com/tipari/platform/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	BrokerRepo      repository.BrokerRepository
	ProjectRepo     repository.ProjectRepository
	TicketRepo      repository.TicketRepository
	InvestorRepo    repository.InvestorRepository
	ReservationRepo repository.ReservationRepository
	CommissionRepo  repository.CommissionRepository
	SplitRuleRepo   repository.SplitRuleRepository
	MatchingRepo    repository.MatchingRepository
	AuditEventRepo  repository.AuditEventRepository
	IncidentRepo    repository.IncidentRepository

	// Services
	AuditService       *service.AuditService
	IncidentService    *service.IncidentService
	CatalogService     *service.CatalogService
	CommissionService  *service.CommissionService
	ReservationService *service.ReservationService
	MatchingService    *service.MatchingService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.BrokerRepo = repository.NewBrokerRepository(db)
	c.ProjectRepo = repository.NewProjectRepository(db)
	c.TicketRepo = repository.NewTicketRepository(db)
	c.InvestorRepo = repository.NewInvestorRepository(db)
	c.ReservationRepo = repository.NewReservationRepository(db)
	c.CommissionRepo = repository.NewCommissionRepository(db)
	c.SplitRuleRepo = repository.NewSplitRuleRepository(db)
	c.MatchingRepo = repository.NewMatchingRepository(db)
	c.AuditEventRepo = repository.NewAuditEventRepository(db)
	c.IncidentRepo = repository.NewIncidentRepository(db)
}

func (c *Container) initServices() {
	policy := service.NewDeadlinePolicy(&c.Config.Lifecycle)

	c.AuditService = service.NewAuditService(c.AuditEventRepo, c.IncidentRepo)
	c.IncidentService = service.NewIncidentService(c.IncidentRepo)
	c.CommissionService = service.NewCommissionService(c.CommissionRepo, c.SplitRuleRepo, c.AuditService, policy)
	c.MatchingService = service.NewMatchingService(
		c.MatchingRepo,
		c.InvestorRepo,
		c.TicketRepo,
		c.AuditService,
		c.IncidentService,
		c.AuditEventRepo,
		c.QueueClient,
		&c.Config.Matching,
	)
	c.ReservationService = service.NewReservationService(
		c.ReservationRepo,
		c.TicketRepo,
		c.ProjectRepo,
		c.BrokerRepo,
		c.CommissionService,
		c.AuditService,
		c.MatchingService,
		policy,
	)
	c.CatalogService = service.NewCatalogService(
		c.BrokerRepo,
		c.ProjectRepo,
		c.TicketRepo,
		c.InvestorRepo,
		c.AuditService,
		c.MatchingService,
	)
}
