package main

import (
	"context"
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"googlemaps.github.io/maps"

	"github.com/RichardKnop/machinery/v1"
	machineryconf "github.com/RichardKnop/machinery/v1/config"
	"github.com/dgrijalva/jwt-go"
	"github.com/getsentry/sentry-go"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	"github.com/nearhelp/nearhelp-api/api"
	"github.com/nearhelp/nearhelp-api/background"
	"github.com/nearhelp/nearhelp-api/external/fcm"
	"github.com/nearhelp/nearhelp-api/geo"
	"github.com/nearhelp/nearhelp-api/lifecycle"
	"github.com/nearhelp/nearhelp-api/matching"
	"github.com/nearhelp/nearhelp-api/schema"
	"github.com/nearhelp/nearhelp-api/store"
	"github.com/nearhelp/nearhelp-api/store/memstore"
	"github.com/nearhelp/nearhelp-api/utils"
)

const (
	storeDriverPersistent = "persistent"
	storeDriverMemory     = "memory"

	backgroundModeAsync = "async"
	backgroundModeQueue = "queue"
)

var (
	server       *api.Server
	ormDB        *gorm.DB
	mongoClient  *mongo.Client
	asyncTrigger *background.AsyncTrigger
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

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("jwt.expire", 24)
	viper.SetDefault("store.driver", storeDriverPersistent)
	viper.SetDefault("background.mode", backgroundModeAsync)
	viper.SetDefault("background.timeout", 30)
	viper.SetDefault("notification.language", "en")
	viper.SetDefault("i18n.dir", "./i18n")
}

// openPersistentStore connects postgres and mongodb
func openPersistentStore(ctx context.Context) (store.Store, geo.Index) {
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

	err = mongoClient.Connect(ctx)
	if nil != err {
		log.Panicf("connect mongo database with error: %s", err)
	}

	database := viper.GetString("mongo.database")
	return store.NewNearhelpStore(ormDB, store.NewMongoStore(mongoClient, database)),
		geo.NewMongoIndex(mongoClient, database)
}

func main() {
	var configFile string

	initialCtx, cancelInitialization := context.WithCancel(context.Background())

	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Info("Server is preparing to shutdown")

		if initialCtx != nil && cancelInitialization != nil {
			log.Info("Cancelling initialization")
			cancelInitialization()
			<-initialCtx.Done()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if server != nil {
			log.Info("Shutdown mobile api server")
			if err := server.Shutdown(ctx); err != nil {
				log.Error("Server Shutdown:", err)
			}
		}

		if asyncTrigger != nil {
			log.Info("Waiting for notification jobs")
			asyncTrigger.Wait()
		}

		if ormDB != nil {
			log.Info("Shutting down db store")
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

	// Sentry
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              viper.GetString("sentry.dsn"),
		AttachStacktrace: true,
		Environment:      viper.GetString("sentry.environment"),
		Dist:             viper.GetString("sentry.dist"),
	}); err != nil {
		log.Error(err)
	}
	log.WithField("prefix", "init").Info("Initialized sentry")

	if err := utils.InitI18NBundle(viper.GetString("i18n.dir")); err != nil {
		log.Panicf("load i18n messages with error: %s", err)
	}
	log.WithField("prefix", "init").Info("Loaded i18n messages")

	schema.RegisterCategories(viper.GetStringSlice("request.categories"))
	log.WithField("prefix", "init").Infof("Accepting request categories: %v", schema.Categories())

	// Load JWT private key
	jwtSecretByte, err := ioutil.ReadFile(viper.GetString("jwt.keyfile"))
	if err != nil {
		log.Panic(err)
	}
	jwtPrivateKey, err := jwt.ParseRSAPrivateKeyFromPEMWithPassword(jwtSecretByte, viper.GetString("jwt.password"))
	if err != nil {
		log.Panic(err)
	}
	log.WithField("prefix", "init").Info("Loaded global jwt key")

	var st store.Store
	var index geo.Index
	switch driver := viper.GetString("store.driver"); driver {
	case storeDriverPersistent:
		st, index = openPersistentStore(initialCtx)
	case storeDriverMemory:
		st, index = memstore.New(), geo.NewMemoryIndex()
	default:
		log.Panicf("unknown store driver: %s", driver)
	}
	log.WithField("prefix", "init").Infof("Initialized %s store", viper.GetString("store.driver"))

	matcher := matching.NewService(st, st, index, matching.Config{
		CandidateDistance: viper.GetFloat64("matching.distance"),
		CandidateLimit:    viper.GetInt("matching.limit"),
	})

	var trigger background.Trigger
	switch mode := viper.GetString("background.mode"); mode {
	case backgroundModeAsync:
		var pusher background.Pusher = background.LogPusher{}
		if credentials := viper.GetString("fcm.credentials"); credentials != "" {
			client, err := fcm.NewClient(initialCtx, credentials)
			if err != nil {
				log.Panicf("init fcm client with error: %s", err)
			}
			pusher = client
		}

		dispatcher := background.NewDispatcher(st, st, matcher, pusher, viper.GetString("notification.language"))
		asyncTrigger = background.NewAsyncTrigger(dispatcher, time.Duration(viper.GetInt("background.timeout"))*time.Second)
		trigger = asyncTrigger
	case backgroundModeQueue:
		if viper.GetString("store.driver") == storeDriverMemory {
			log.Panic("queue mode needs the persistent store shared with the worker")
		}

		machineryServer, err := machinery.NewServer(&machineryconf.Config{
			Broker:        viper.GetString("redis.conn"),
			DefaultQueue:  "nearhelp_background",
			ResultBackend: viper.GetString("redis.conn"),
		})
		if err != nil {
			log.Panic(err)
		}
		trigger = background.NewQueueTrigger(machineryServer)
	default:
		log.Panicf("unknown background mode: %s", mode)
	}
	log.WithField("prefix", "init").Infof("Initialized %s notification trigger", viper.GetString("background.mode"))

	var resolver geo.LocationResolver
	if key := viper.GetString("map.apikey"); key != "" {
		mapClient, err := maps.NewClient(maps.WithAPIKey(key))
		if err != nil {
			log.Panic(err)
		}
		resolver = geo.NewGeocodingResolver(mapClient, viper.GetString("notification.language"))
	}

	engine := lifecycle.NewEngine(st, st, matcher, trigger, resolver)

	// Init http server
	server = api.NewServer(st, engine, matcher, jwtPrivateKey)
	log.WithField("prefix", "init").Info("Initialized http server")

	// Remove initial context
	initialCtx = nil
	cancelInitialization = nil

	log.Fatal(server.Run(":" + viper.GetString("server.port")))
}
