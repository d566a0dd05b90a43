package server

import (
	"strings"

	"github.com/gin-gonic/gin"

	"verifycert-backend/internal/batches"
	"verifycert-backend/internal/documents"
	"verifycert-backend/internal/services/health"
	"verifycert-backend/internal/shared/config"
	"verifycert-backend/internal/shared/metrics"
	"verifycert-backend/internal/shared/server/middleware"
	"verifycert-backend/internal/stats"
	"verifycert-backend/internal/templates"
	"verifycert-backend/internal/verification"
)

const (
	apiPrefix    = "/api/v1"
	verifyPrefix = apiPrefix + "/verify"
	healthPrefix = apiPrefix + "/health"
	metricsPath  = "/metrics"

	rateGroupVerify   = "VERIFY"
	rateGroupGenerate = "GENERATE"
)

// RouterDeps carries the handlers the router mounts. Nil handlers are skipped.
type RouterDeps struct {
	Config              config.Config
	TemplateHandler     *templates.Handler
	DocumentHandler     *documents.Handler
	BatchHandler        *batches.Handler
	VerificationHandler *verification.Handler
	StatsHandler        *stats.Handler
	HealthHandler       *health.Handler
	RateLimiter         *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(verifyPrefix, healthPrefix, metricsPath),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules:    rateLimitRules(),
			GroupFor: rateGroup,
			Limiter:  deps.RateLimiter,
		}),
	)

	r.GET(metricsPath, metrics.Handler())

	api := r.Group(apiPrefix)
	if deps.HealthHandler != nil {
		deps.HealthHandler.RegisterRoutes(api)
	}
	if deps.VerificationHandler != nil {
		deps.VerificationHandler.RegisterRoutes(api)
	}
	registerMeRoutes(api)
	if deps.TemplateHandler != nil {
		deps.TemplateHandler.RegisterRoutes(api)
	}
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(api)
	}
	if deps.BatchHandler != nil {
		deps.BatchHandler.RegisterRoutes(api)
	}
	if deps.StatsHandler != nil {
		deps.StatsHandler.RegisterRoutes(api)
	}

	return r
}

func rateLimitRules() map[string]middleware.RateLimitRule {
	return map[string]middleware.RateLimitRule{
		rateGroupVerify:   {Rate: 5, Burst: 30},
		rateGroupGenerate: {Rate: 1, Burst: 10},
	}
}

// rateGroup limits the public verification endpoint and the generation
// endpoints, which each spawn a converter process.
func rateGroup(c *gin.Context) string {
	path := c.Request.URL.Path
	switch {
	case strings.HasPrefix(path, verifyPrefix):
		return rateGroupVerify
	case strings.HasPrefix(path, apiPrefix+"/templates/") &&
		(strings.HasSuffix(path, "/generate") || strings.HasSuffix(path, "/bulk")):
		return rateGroupGenerate
	default:
		return ""
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
