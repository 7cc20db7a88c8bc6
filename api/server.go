package api

import (
	"context"
	"crypto/rsa"
	"net/http"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/nearhelp/nearhelp-api/lifecycle"
	"github.com/nearhelp/nearhelp-api/logmodule"
	"github.com/nearhelp/nearhelp-api/matching"
	"github.com/nearhelp/nearhelp-api/store"
)

var log *logrus.Entry

func init() {
	log = logrus.WithField("prefix", "gin")
}

// Server to run a http server instance
type Server struct {
	// Server instance
	server *http.Server

	// Stores
	store store.Store

	// Request lifecycle and proximity matching
	engine  *lifecycle.Engine
	matcher *matching.Service

	// JWT private key
	jwtPrivateKey *rsa.PrivateKey
}

// NewServer new instance of server
func NewServer(
	st store.Store,
	engine *lifecycle.Engine,
	matcher *matching.Service,
	jwtKey *rsa.PrivateKey) *Server {
	return &Server{
		store:         st,
		engine:        engine,
		matcher:       matcher,
		jwtPrivateKey: jwtKey,
	}
}

// Run to run the server
func (s *Server) Run(addr string) error {
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.setupRouter(),
	}

	return s.server.ListenAndServe()
}

func (s *Server) setupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         10 * time.Second,
	}))

	apiRoute := r.Group("/api")
	apiRoute.Use(logmodule.Ginrus("API"))
	apiRoute.GET("/information", s.information)

	// api route other than `/information` will apply the following middleware
	apiRoute.Use(s.clientVersionGateway())
	apiRoute.Use(s.authMiddleware())
	apiRoute.Use(s.updateGeoPositionMiddleware)

	accountRoute := apiRoute.Group("/accounts")
	{
		accountRoute.GET("/me", s.accountDetail)
		accountRoute.PUT("/me/location", s.accountUpdateLocation)
		accountRoute.PUT("/me/device-token", s.accountUpdateDeviceToken)
	}

	requestRoute := apiRoute.Group("/requests")
	{
		requestRoute.POST("", s.createRequest)
		requestRoute.GET("", s.listOwnRequests)
		requestRoute.GET("/:requestID", s.getRequest)
		requestRoute.POST("/:requestID/attend", s.attendRequest)
		requestRoute.POST("/:requestID/cancel", s.cancelRequest)
		requestRoute.POST("/:requestID/finish", s.finishRequest)
	}

	browseRoute := apiRoute.Group("/browse")
	{
		browseRoute.GET("/nearby", s.nearbyRequests)
		browseRoute.GET("/notified", s.notifiedRequests)
	}

	apiRoute.GET("/tasks", s.listTasks)

	adminRoute := apiRoute.Group("/admin")
	{
		adminRoute.GET("/requests", s.adminListRequests)
		adminRoute.PATCH("/requests/:requestID/status", s.adminSetStatus)
		adminRoute.GET("/users", s.adminListUsers)
		adminRoute.DELETE("/users/:userID", s.adminDeactivateUser)
		adminRoute.GET("/candidates", s.adminPreviewCandidates)
	}

	secretRoute := r.Group("/secret")
	secretRoute.Use(logmodule.Ginrus("Secret"))
	secretRoute.Use(s.apikeyAuthentication(viper.GetString("server.apikey.admin")))
	{
		secretRoute.POST("/users", s.registerUser)
		secretRoute.POST("/tokens", s.issueToken)
	}

	metricRoute := r.Group("/metrics")
	metricRoute.Use(logmodule.Ginrus("Metric"))
	metricRoute.Use(cors.New(cors.Config{
		AllowMethods:     []string{"GET"},
		AllowHeaders:     []string{"Origin"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		AllowAllOrigins:  true,
		MaxAge:           12 * time.Hour,
	}))
	metricRoute.Use(s.apikeyAuthentication(viper.GetString("server.apikey.metric")))
	{
		metricRoute.GET("/requests", s.metricRequests)
	}

	r.GET("/healthz", s.healthz)

	return r
}

// Shutdown to shutdown the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) healthz(c *gin.Context) {
	// Ping db
	err := s.store.Ping()
	if err != nil {
		log.WithError(err).Error("store is not reachable")
		abortWithEncoding(c, http.StatusServiceUnavailable, errorServiceUnavailable)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "OK",
		"version": viper.GetString("server.version"),
	})
}

func (s *Server) information(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"information": map[string]interface{}{
			"server": map[string]interface{}{
				"version": viper.GetString("server.version"),
			},
			"android":        viper.GetStringMap("clients.android"),
			"ios":            viper.GetStringMap("clients.ios"),
			"system_version": "NearHelp 0.1",
		},
	})
}

// responseOK writes the success envelope with the given fields
func responseOK(c *gin.Context, fields gin.H) {
	body := gin.H{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

func responseWithEncoding(c *gin.Context, code int, obj ErrorResponse) {
	acceptEncoding := c.GetHeader("Accept-Encoding")
	switch acceptEncoding {
	default:
		c.JSON(code, obj)
	}
}

func abortWithEncoding(c *gin.Context, code int, obj ErrorResponse, errors ...error) {
	for _, err := range errors {
		c.Error(err)
	}
	responseWithEncoding(c, code, obj)
	c.Abort()
}

// abortWithError translates an error of the core into the response
func abortWithError(c *gin.Context, err error) {
	code, obj := errorResponse(err)
	abortWithEncoding(c, code, obj, err)
}
