// Command cpgamebot runs the CP game Telegram bot.
package main

import (
	"errors"
	"io/fs"
	"log"

	"github.com/joho/godotenv"

	"github.com/m3rciful/cpgamebot/core/cmd"
	"github.com/m3rciful/cpgamebot/internal/app"
	"github.com/m3rciful/cpgamebot/internal/config"
)

func main() {
	// A .env file is optional; real environment variables win either way.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("load .env: %v", err)
	}

	err := cmd.Run(cmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (cmd.ConfigCarrier, error) {
			return config.Load(path)
		},
		Bootstrap: func(c cmd.ConfigCarrier) (cmd.TelegramApp, error) {
			return app.Bootstrap(c.(*config.Config))
		},
	})
	if err != nil {
		log.Fatal(err)
	}
}
