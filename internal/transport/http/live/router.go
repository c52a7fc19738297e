package livehttp

import (
	"context"
	"net/http"

	"exeq/internal/engine"

	"github.com/gin-gonic/gin"
)

// Trigger is implemented by the application layer; each call runs one pass
// across all configured venues and returns the per-venue summary.
type Trigger interface {
	ExecuteOrders(ctx context.Context) []engine.VenueResult
	ReconcileOrders(ctx context.Context) []engine.VenueResult
}

// Router exposes the order trigger endpoints.
type Router struct {
	trigger Trigger
}

func NewRouter(trigger Trigger) *Router {
	return &Router{trigger: trigger}
}

// Register mounts the routes under the given group.
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.POST("/execute", r.handleExecute)
	group.POST("/reconcile", r.handleReconcile)
}

func (r *Router) handleExecute(c *gin.Context) {
	results := r.trigger.ExecuteOrders(c.Request.Context())
	respond(c, results, "Orders created successfully")
}

func (r *Router) handleReconcile(c *gin.Context) {
	results := r.trigger.ReconcileOrders(c.Request.Context())
	respond(c, results, "Orders updated successfully")
}

// respond returns 200 when every venue succeeded and 207 when only some did.
// No order-level error detail crosses this boundary; that lives in logs and
// the notification sink.
func respond(c *gin.Context, results []engine.VenueResult, successMsg string) {
	if engine.AllOK(results) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"message": successMsg,
			"results": results,
		})
		return
	}
	c.JSON(http.StatusMultiStatus, gin.H{
		"status":  "partial_success",
		"message": "Some orders failed",
		"results": results,
	})
}
