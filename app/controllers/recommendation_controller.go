package controllers

import (
	"net/http"
	"strconv"

	"github.com/pimhub/backend-go/internal/services"
)

// RecommendationController 相似商品推荐控制器
type RecommendationController struct {
	BaseController
}

// Similar 返回与指定商品最相似的商品列表
func (c *RecommendationController) Similar() {
	recommendationService := services.GetRecommendationService()
	if recommendationService == nil {
		c.JSONError(http.StatusServiceUnavailable, "recommendation service not initialized")
		return
	}

	entityID := c.Ctx.Input.Param(":id")
	if entityID == "" {
		c.JSONError(http.StatusBadRequest, "product id is required")
		return
	}

	limit, _ := strconv.Atoi(c.GetString("limit", "10"))
	threshold, _ := strconv.ParseFloat(c.GetString("threshold", "0"), 64)

	items, err := recommendationService.SimilarProducts(c.Ctx.Request.Context(), entityID, limit, threshold)
	if err != nil {
		c.JSONAppError(err)
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"productId":       entityID,
		"recommendations": items,
	})
}

// Reindex 内容变更后重建商品嵌入
func (c *RecommendationController) Reindex() {
	indexingService := services.GetIndexingService()
	if indexingService == nil {
		c.JSONError(http.StatusServiceUnavailable, "indexing service not initialized")
		return
	}

	entityID := c.Ctx.Input.Param(":id")
	if entityID == "" {
		c.JSONError(http.StatusBadRequest, "product id is required")
		return
	}

	if err := indexingService.ReindexProduct(c.Ctx.Request.Context(), entityID); err != nil {
		c.JSONAppError(err)
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"productId": entityID,
		"reindexed": true,
	})
}
