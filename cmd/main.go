package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	api "github.com/workbench-hq/workbench-api/pkg/workbench_api"
	"github.com/workbench-hq/workbench-api/pkg/jobs"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/adapters"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/database"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/delivery"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/handler"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/models"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/repositories"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/services"
)

const apiVersion = "1.0.0"

func main() {
	_ = godotenv.Load()

	dbcon := "postgres://" +
		os.Getenv("DB_USERNAME") + ":" +
		os.Getenv("DB_PASSWORD") + "@" +
		os.Getenv("DB_HOSTNAME") + "/" +
		os.Getenv("DB_DBNAME") + "?search_path=" +
		os.Getenv("DB_SCHEMA")
	db, err := database.Connect(dbcon)
	if err != nil {
		log.Fatalf("[FATAL] no database connection: %v", err)
	}

	workspaceRepo := repositories.NewWorkspaceRepository(db)
	artifactRepo := repositories.NewArtifactRepository(db)
	runRepo := repositories.NewRunRepository(db)
	deliveryRepo := repositories.NewDeliveryRepository(db)

	registry := adapters.NewRegistry()
	senders := delivery.Senders{
		models.ChannelTypeWebhook: delivery.NewWebhookSender(),
		models.ChannelTypeEmail:   delivery.NewEmailSender(),
	}

	querySpecService := services.NewQuerySpecService(workspaceRepo)
	artifactService := services.NewArtifactService(artifactRepo, workspaceRepo)
	dashboardService := services.NewDashboardService(artifactRepo)
	runService := services.NewRunService(runRepo, artifactRepo, workspaceRepo, registry)
	deliveryService := services.NewDeliveryService(deliveryRepo, artifactRepo, runService, senders, envInt64("DELIVERY_MAX_CONCURRENT", 2))

	ctx := context.Background()
	jobs.ScheduleDeliverySweep(ctx, deliveryService, 0)
	jobs.ScheduleRunWatchdog(ctx, runService, envDuration("RUN_STALE_AFTER", 30*time.Minute))

	router := api.NewRouter(apiVersion, api.Controllers{
		QuerySpecs: handler.NewQuerySpecsAPIController(querySpecService),
		Artifacts:  handler.NewArtifactsAPIController(artifactService, dashboardService),
		Runs:       handler.NewRunsAPIController(runService),
		Delivery:   handler.NewDeliveryAPIController(deliveryService),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "1337"
	}
	log.Printf("Server is running on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, router))
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
