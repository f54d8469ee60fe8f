package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/creditledger/internal/config"
	"github.com/smallbiznis/creditledger/internal/credit"
	creditdomain "github.com/smallbiznis/creditledger/internal/credit/domain"
	"github.com/smallbiznis/creditledger/internal/observability"
	obsmiddleware "github.com/smallbiznis/creditledger/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/creditledger/internal/observability/metrics"
	obstracing "github.com/smallbiznis/creditledger/internal/observability/tracing"
	"github.com/smallbiznis/creditledger/internal/statement"
	statementdomain "github.com/smallbiznis/creditledger/internal/statement/domain"
	"github.com/smallbiznis/creditledger/internal/subscription"
	subscriptiondomain "github.com/smallbiznis/creditledger/internal/subscription/domain"
	"github.com/smallbiznis/creditledger/internal/usage"
	usagedomain "github.com/smallbiznis/creditledger/internal/usage/domain"
	"github.com/smallbiznis/creditledger/internal/user"
	userdomain "github.com/smallbiznis/creditledger/internal/user/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	user.Module,
	subscription.Module,
	usage.Module,
	credit.Module,
	statement.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine) {
	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	genID           *snowflake.Node
	userSvc         userdomain.Service
	subscriptionSvc subscriptiondomain.Service
	usageSvc        usagedomain.Service
	creditSvc       creditdomain.Service
	statementSvc    statementdomain.Service
	obsMetrics      *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	GenID           *snowflake.Node
	UserSvc         userdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	UsageSvc        usagedomain.Service
	CreditSvc       creditdomain.Service
	StatementSvc    statementdomain.Service
	ObsMetrics      *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		genID:           p.GenID,
		userSvc:         p.UserSvc,
		subscriptionSvc: p.SubscriptionSvc,
		usageSvc:        p.UsageSvc,
		creditSvc:       p.CreditSvc,
		statementSvc:    p.StatementSvc,
		obsMetrics:      p.ObsMetrics,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	v1.GET("/plans", s.ListPlans)

	v1.POST("/users", s.CreateUser)

	users := v1.Group("/users/:user_id")
	{
		users.GET("", s.GetUserByID)

		// -------- Statements --------
		users.GET("/statement", s.GetAccountStatement)
		users.GET("/statement/snapshot", s.GetStatementSnapshot)
		users.POST("/statement/refresh", s.RefreshStatement)
		users.GET("/remaining-hours", s.GetRemainingUsageHours)

		// -------- Subscriptions --------
		users.GET("/subscriptions", s.ListSubscriptions)
		users.POST("/subscriptions", s.Subscribe)
		users.POST("/subscriptions/:id/cancel", s.Unsubscribe)

		// -------- Workspace sessions --------
		users.GET("/sessions", s.ListSessions)
		users.POST("/sessions", s.StartSession)
		users.POST("/sessions/:instance_id/stop", s.StopSession)

		// -------- Credit grants --------
		users.GET("/credits", s.ListCredits)
		users.POST("/credits", s.GrantCredit)
	}
}
