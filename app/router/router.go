package router

import (
	"github.com/beego/beego/v2/server/web"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pimhub/backend-go/app/controllers"
)

// Init registers all routes. Must be called after services are wired.
func Init() {
	web.Router("/", &controllers.RootController{}, "get:Index")
	web.Router("/health", &controllers.HealthController{}, "get:Health")

	web.Router("/api/search", &controllers.SearchController{}, "post:Search")

	web.Router("/api/products/:id/similar", &controllers.RecommendationController{}, "get:Similar")
	web.Router("/api/products/:id/reindex", &controllers.RecommendationController{}, "post:Reindex")

	web.Handler("/metrics", promhttp.Handler())
}
