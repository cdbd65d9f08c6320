package main

import (
	"log"
	"os"

	"modguard/bot"
	"modguard/config"
	"modguard/handlers"
	"modguard/utils/database/cases"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	if err := os.MkdirAll("./data", os.ModePerm); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	db, err := cases.Init(cfg.CaseDBPath)
	if err != nil {
		log.Fatalf("Error initializing case database: %v", err)
	}
	defer db.Close()

	b, err := bot.New(cfg, db)
	if err != nil {
		log.Fatalf("Error creating bot: %v", err)
	}

	handlers.Register(b)

	b.Run()

	defer b.Close()
}
