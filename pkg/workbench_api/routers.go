package workbench_api

import (
	"github.com/gin-gonic/gin"
	"github.com/loopfz/gadgeto/tonic"
	"github.com/wI2L/fizz"
	"github.com/wI2L/fizz/openapi"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/handler"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/middleware"
)

var (
	apiVersionHeader = fizz.Header(
		"API-Version",
		"The API version of the response",
		"", // empty string means: primitive string in the spec
	)

	notFoundResponse = fizz.Response(
		"404",
		"Not Found",
		nil, // no inline schema
		nil, // no content media type
		nil, // no extra headers
	)
)

// Controllers bundles the wired controllers NewRouter mounts.
type Controllers struct {
	QuerySpecs *handler.QuerySpecsAPIController
	Artifacts  *handler.ArtifactsAPIController
	Runs       *handler.RunsAPIController
	Delivery   *handler.DeliveryAPIController
}

func NewRouter(apiVersion string, controllers Controllers) *fizz.Fizz {
	g := gin.Default()
	g.Use(APIVersionMiddleware(apiVersion))
	f := fizz.NewFromEngine(g)

	f.Generator().SetServers([]*openapi.Server{
		{
			URL:         "https://api.workbench.example/v1",
			Description: "Production",
		},
	})

	info := &openapi.Info{
		Title:       "Workbench API v1",
		Description: "Multi-tenant workspace API: data sources, saved queries, versioned artifacts and scheduled deliveries",
		Version:     apiVersion,
		Contact: &openapi.Contact{
			Name: "Workbench team",
		},
	}

	root := f.Group("/v1", "API v1", "Workbench V1 routes")

	// Read-only endpoints
	read := root.Group("", "Read", "Read-only endpoints", middleware.RequireAccess("workbench:read"))
	read.GET("/query-specs",
		[]fizz.OperationOption{fizz.Summary("List query specs"), apiVersionHeader, notFoundResponse},
		tonic.Handler(controllers.QuerySpecs.ListQuerySpecs, 200),
	)
	read.GET("/query-specs/:id",
		[]fizz.OperationOption{fizz.Summary("Retrieve a query spec"), apiVersionHeader, notFoundResponse},
		tonic.Handler(controllers.QuerySpecs.RetrieveQuerySpec, 200),
	)
	read.GET("/artifacts",
		[]fizz.OperationOption{fizz.Summary("List artifacts"), apiVersionHeader, notFoundResponse},
		tonic.Handler(controllers.Artifacts.ListArtifacts, 200),
	)
	read.GET("/artifacts/:id",
		[]fizz.OperationOption{fizz.Summary("Retrieve an artifact"), apiVersionHeader, notFoundResponse},
		tonic.Handler(controllers.Artifacts.RetrieveArtifact, 200),
	)
	read.GET("/artifacts/:id/versions",
		[]fizz.OperationOption{fizz.Summary("List an artifact's version history, newest first"), apiVersionHeader, notFoundResponse},
		tonic.Handler(controllers.Artifacts.ListVersions, 200),
	)
	read.GET("/artifacts/:id/runs",
		[]fizz.OperationOption{fizz.Summary("List an artifact's runs, newest first"), apiVersionHeader, notFoundResponse},
		tonic.Handler(controllers.Runs.ListRuns, 200),
	)
	read.GET("/runs/:id",
		[]fizz.OperationOption{fizz.Summary("Retrieve a run"), apiVersionHeader, notFoundResponse},
		tonic.Handler(controllers.Runs.RetrieveRun, 200),
	)
	read.GET("/dashboards/:id/items",
		[]fizz.OperationOption{fizz.Summary("List dashboard items with resolved versions"), apiVersionHeader, notFoundResponse},
		tonic.Handler(controllers.Artifacts.ListItems, 200),
	)
	read.GET("/delivery-channels",
		[]fizz.OperationOption{fizz.Summary("List delivery channels"), apiVersionHeader, notFoundResponse},
		tonic.Handler(controllers.Delivery.ListChannels, 200),
	)

	// Write endpoints
	write := root.Group("", "Write", "Workspace mutation endpoints", middleware.RequireAccess("workbench:write"))
	write.POST("/query-specs",
		[]fizz.OperationOption{fizz.Summary("Create a query spec"), apiVersionHeader, notFoundResponse},
		tonic.Handler(controllers.QuerySpecs.CreateQuerySpec, 201),
	)
	write.PUT("/query-specs/:id",
		[]fizz.OperationOption{fizz.Summary("Update a query spec in place"), apiVersionHeader, notFoundResponse},
		tonic.Handler(controllers.QuerySpecs.UpdateQuerySpec, 200),
	)
	write.DELETE("/query-specs/:id",
		[]fizz.OperationOption{fizz.Summary("Delete an unreferenced query spec"), apiVersionHeader, notFoundResponse},
		tonic.Handler(controllers.QuerySpecs.DeleteQuerySpec, 204),
	)
	write.POST("/artifacts",
		[]fizz.OperationOption{fizz.Summary("Create an artifact with its first version"), apiVersionHeader, notFoundResponse},
		tonic.Handler(controllers.Artifacts.CreateArtifact, 201),
	)
	write.DELETE("/artifacts/:id",
		[]fizz.OperationOption{fizz.Summary("Archive an artifact"), apiVersionHeader, notFoundResponse},
		tonic.Handler(controllers.Artifacts.ArchiveArtifact, 200),
	)
	write.POST("/artifacts/:id/versions",
		[]fizz.OperationOption{fizz.Summary("Append a new version and retarget the current pointer"), apiVersionHeader, notFoundResponse},
		tonic.Handler(controllers.Artifacts.CreateVersion, 201),
	)
	write.POST("/artifacts/:id/runs",
		[]fizz.OperationOption{fizz.Summary("Trigger a run of the artifact's current version"), apiVersionHeader, notFoundResponse},
		tonic.Handler(controllers.Runs.TriggerRun, 201),
	)
	write.POST("/dashboards/:id/items",
		[]fizz.OperationOption{fizz.Summary("Embed an artifact in a dashboard"), apiVersionHeader, notFoundResponse},
		tonic.Handler(controllers.Artifacts.AddItem, 201),
	)
	write.DELETE("/dashboards/:id/items/:itemId",
		[]fizz.OperationOption{fizz.Summary("Remove a dashboard item"), apiVersionHeader, notFoundResponse},
		tonic.Handler(controllers.Artifacts.RemoveItem, 204),
	)
	write.POST("/delivery-channels",
		[]fizz.OperationOption{fizz.Summary("Create a scheduled delivery channel"), apiVersionHeader, notFoundResponse},
		tonic.Handler(controllers.Delivery.CreateChannel, 201),
	)
	write.DELETE("/delivery-channels/:id",
		[]fizz.OperationOption{fizz.Summary("Delete a delivery channel"), apiVersionHeader, notFoundResponse},
		tonic.Handler(controllers.Delivery.DeleteChannel, 204),
	)

	// Scheduler trigger: shared secret or write scope
	sched := root.Group("", "Scheduler", "Delivery scheduler trigger", middleware.AllowScheduler("workbench:write"))
	sched.POST("/delivery-channels/run-due",
		[]fizz.OperationOption{fizz.Summary("Process due delivery channels"), apiVersionHeader, notFoundResponse},
		tonic.Handler(controllers.Delivery.RunDue, 200),
	)

	f.GET("/v1/openapi.json", []fizz.OperationOption{}, f.OpenAPI(info, "json"))

	return f
}

type apiVersionWriter struct {
	gin.ResponseWriter
	version string
}

func (w *apiVersionWriter) WriteHeader(code int) {
	if code >= 200 && code < 300 {
		w.Header().Set("API-Version", w.version)
	}
	w.ResponseWriter.WriteHeader(code)
}

func APIVersionMiddleware(version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer = &apiVersionWriter{c.Writer, version}
		c.Next()
	}
}
