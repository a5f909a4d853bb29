package main

import (
	"time"

	"github.com/flexingg/flexingg/config"
	"github.com/flexingg/flexingg/garmin"
	"github.com/flexingg/flexingg/models"
	"github.com/flexingg/flexingg/routes"
	"github.com/flexingg/flexingg/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.GarminAuth{},
		&models.GarminDailySteps{},
		&models.GarminActivity{},
		&models.Transaction{},
		&models.SweatScoreWeight{},
		&models.Friendship{},
		&models.Group{},
		&models.GroupMembership{},
	)

	client := garmin.NewConnectClient(cfg.GarminBaseURL)
	syncer := garmin.NewSyncService(db, client)
	if cfg.GarminSyncCooldownMin > 0 {
		syncer.Cooldown = time.Duration(cfg.GarminSyncCooldownMin) * time.Minute
	}
	if cfg.GarminActivityLimit > 0 {
		syncer.ActivityLimit = cfg.GarminActivityLimit
	}
	if cfg.GarminManualSyncMaxDays > 0 {
		syncer.ManualSyncMaxDays = cfg.GarminManualSyncMaxDays
	}

	r := routes.SetupRouter(db, client, syncer)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
