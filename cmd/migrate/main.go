// cmd/migrate/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"finflow-lending/internal/config"
	"finflow-lending/internal/util"
	"finflow-lending/pkg/db"
)

func main() {
	printOnly := flag.Bool("print", false, "print the schema for DB_DRIVER instead of applying it")
	timeout := flag.Duration("timeout", time.Minute, "migration timeout")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	logger := util.NewLogger(cfg.Log.Level, cfg.Log.Format)

	if *printOnly {
		statements, err := db.Schema(cfg.DB.Driver)
		if err != nil {
			logger.WithError(err).Fatal("Failed to render schema")
		}
		for _, stmt := range statements {
			fmt.Fprintf(os.Stdout, "%s;\n\n", stmt)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, err := db.Open(cfg.DB)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	err = db.Migrate(ctx, conn)
	conn.Close()
	if err != nil {
		logger.WithError(err).Error("Migration failed")
		os.Exit(1)
	}
	logger.WithField("driver", cfg.DB.Driver).Info("Migration complete")
}
