package main

import (
	"log"
	"os"

	"github.com/trezcool/ripoti/core"
	"github.com/trezcool/ripoti/core/notification"
	"github.com/trezcool/ripoti/core/user"
	emailsvc "github.com/trezcool/ripoti/services/email"
	logsvc "github.com/trezcool/ripoti/services/logger"
	"github.com/trezcool/ripoti/storage/database"
	sqlxrepos "github.com/trezcool/ripoti/storage/database/sqlx"
)

var build = "develop"

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig(build)
	errAndDie(err)

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(database.Ping(db))

	// set up services
	appLogger := logsvc.NewRollbarLogger(logger, conf)
	appLogger.Enable(false)
	usrRepo := sqlxrepos.NewUserRepository(db)
	notifSvc := notification.NewService(sqlxrepos.NewNotificationRepository(db), usrRepo, appLogger)
	usrSvc := user.NewService(conf, usrRepo, notifSvc, emailsvc.NewConsoleService(conf))

	// start CLI
	cli := commandLine{
		db:     db,
		usrSvc: usrSvc,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
