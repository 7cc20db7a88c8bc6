package main

import (
	"strings"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/nearhelp/nearhelp-api/schema"
)

func init() {
	viper.AutomaticEnv()
	viper.SetEnvPrefix("nearhelp")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
}

func main() {
	db, err := gorm.Open("postgres", viper.GetString("orm.conn"))
	if err != nil {
		panic(err)
	}
	defer db.Close()

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		panic(err)
	}

	if err := db.AutoMigrate(
		&schema.Request{},
	).Error; err != nil {
		panic(err)
	}

	if err := db.Model(&schema.Request{}).
		AddIndex("requests_status_created_at", "status", "created_at").Error; err != nil {
		panic(err)
	}

	// the assignee is set exactly when the request is attended or finished
	if err := db.Exec(`ALTER TABLE requests
		DROP CONSTRAINT IF EXISTS requests_assignee_matches_status,
		ADD CONSTRAINT requests_assignee_matches_status
		CHECK ((status IN ('attended', 'finished')) = (assigned_volunteer IS NOT NULL))`).Error; err != nil {
		panic(err)
	}
	log.WithField("prefix", "migrate").Info("migrated postgres schema")

	schema.NewMongoDBIndexer(viper.GetString("mongo.conn"), viper.GetString("mongo.database")).IndexAll()
	log.WithField("prefix", "migrate").Info("created mongodb indexes")
}
