package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/RichardKnop/machinery/v1"
	"github.com/RichardKnop/machinery/v1/config"
	"github.com/getsentry/sentry-go"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nearhelp/nearhelp-api/background"
	"github.com/nearhelp/nearhelp-api/external/fcm"
	"github.com/nearhelp/nearhelp-api/geo"
	"github.com/nearhelp/nearhelp-api/matching"
	"github.com/nearhelp/nearhelp-api/store"
	"github.com/nearhelp/nearhelp-api/utils"
)

var (
	ormDB       *gorm.DB
	mongoClient *mongo.Client
	manager     *background.Manager
)

func initLog() {
	logLevel, err := log.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(logLevel)
	}

	log.SetOutput(os.Stdout)

	log.SetFormatter(&prefixed.TextFormatter{
		ForceFormatting: true,
		FullTimestamp:   true,
	})
}

func loadConfig(file string) {
	// Config from file
	viper.SetConfigType("yaml")
	if file != "" {
		viper.SetConfigFile(file)
	}

	viper.AddConfigPath("/.config/")
	viper.AddConfigPath(".")
	err := viper.ReadInConfig()
	if err != nil {
		fmt.Println("No config file. Read config from env.")
		viper.AllowEmptyEnv(false)
	}

	// Config from env if possible
	viper.AutomaticEnv()
	viper.SetEnvPrefix("nearhelp")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("background.concurrency", 5)
	viper.SetDefault("notification.language", "en")
	viper.SetDefault("i18n.dir", "./i18n")
}

func main() {
	var configFile string

	initialCtx, cancelInitialization := context.WithCancel(context.Background())

	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Info("Worker is preparing to shutdown")

		if initialCtx != nil && cancelInitialization != nil {
			log.Info("Cancelling initialization")
			cancelInitialization()
			<-initialCtx.Done()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if manager != nil {
			log.Info("Stopping background worker")
			manager.Stop()
		}

		if ormDB != nil {
			log.Info("Shutting down orm store")
			if err := ormDB.Close(); err != nil {
				log.Error(err)
			}
		}

		if mongoClient != nil {
			log.Info("Shutting down mongo store")
			_ = mongoClient.Disconnect(ctx)
		}

		sentry.Flush(2 * time.Second)
		os.Exit(1)
	}()

	flag.StringVar(&configFile, "c", "./config.yaml", "[optional] path of configuration file")
	flag.Parse()

	loadConfig(configFile)

	initLog()

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              viper.GetString("sentry.dsn"),
		AttachStacktrace: true,
		Environment:      viper.GetString("sentry.environment"),
		Dist:             viper.GetString("sentry.dist"),
	}); err != nil {
		log.Error(err)
	}

	if err := utils.InitI18NBundle(viper.GetString("i18n.dir")); err != nil {
		log.Panicf("load i18n messages with error: %s", err)
	}

	var err error

	ormDB, err = gorm.Open("postgres", viper.GetString("orm.conn"))
	if err != nil {
		log.Panic(err)
	}

	// initialise mongodb connections
	opts := options.Client().ApplyURI(viper.GetString("mongo.conn"))
	opts.SetMaxPoolSize(viper.GetUint64("mongo.pool"))
	mongoClient, err = mongo.NewClient(opts)
	if nil != err {
		log.Panicf("create mongo client with error: %s", err)
	}

	err = mongoClient.Connect(initialCtx)
	if nil != err {
		log.Panicf("connect mongo database with error: %s", err)
	}

	database := viper.GetString("mongo.database")
	nearhelpStore := store.NewNearhelpStore(ormDB, store.NewMongoStore(mongoClient, database))
	matcher := matching.NewService(nearhelpStore, nearhelpStore, geo.NewMongoIndex(mongoClient, database), matching.Config{
		CandidateDistance: viper.GetFloat64("matching.distance"),
		CandidateLimit:    viper.GetInt("matching.limit"),
	})

	var pusher background.Pusher = background.LogPusher{}
	if credentials := viper.GetString("fcm.credentials"); credentials != "" {
		client, err := fcm.NewClient(initialCtx, credentials)
		if err != nil {
			log.Panicf("init fcm client with error: %s", err)
		}
		pusher = client
	}

	dispatcher := background.NewDispatcher(nearhelpStore, nearhelpStore, matcher, pusher, viper.GetString("notification.language"))

	var conf = &config.Config{
		Broker:        viper.GetString("redis.conn"),
		DefaultQueue:  "nearhelp_background",
		ResultBackend: viper.GetString("redis.conn"),
	}
	taskServer, err := machinery.NewServer(conf)
	if err != nil {
		log.Panic(err)
	}

	manager = background.NewManager(taskServer, dispatcher)
	if err := manager.RegisterTasks(); err != nil {
		log.Panic(err)
	}

	// Remove initial context
	initialCtx = nil
	cancelInitialization = nil

	if err := manager.Run("nearhelp-worker", viper.GetInt("background.concurrency")); err != nil {
		log.Panic(err)
	}
}
