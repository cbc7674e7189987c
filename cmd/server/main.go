package main

import (
	"tradefeed/config"
	"tradefeed/internal/exchange/server"
	"tradefeed/logger"

	"go.uber.org/zap"
)

func main() {
	// viper config
	cfg := config.Load()

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	// run server
	if err := server.Run(cfg, log); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}
