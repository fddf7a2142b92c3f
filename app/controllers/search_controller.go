package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/pimhub/backend-go/internal/services"
)

var validate = validator.New()

// SearchController 检索控制器
type SearchController struct {
	BaseController
}

// SearchRequest 检索请求体：自由文本或现成向量二选一
type SearchRequest struct {
	Query  string    `json:"query"`
	Vector []float32 `json:"vector"`
	Limit  int       `json:"limit" validate:"gte=0,lte=100"`
}

// Search 自由文本/向量检索
func (c *SearchController) Search() {
	searchService := services.GetSearchService()
	if searchService == nil {
		c.JSONError(http.StatusServiceUnavailable, "search service not initialized")
		return
	}

	var req SearchRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		c.JSONError(http.StatusBadRequest, err.Error())
		return
	}
	if req.Query == "" && len(req.Vector) == 0 {
		c.JSONError(http.StatusBadRequest, "query or vector is required")
		return
	}

	ctx := c.Ctx.Request.Context()
	var (
		resp *services.SearchResponse
		err  error
	)
	if len(req.Vector) > 0 {
		resp, err = searchService.SearchByVector(ctx, req.Vector, req.Limit)
	} else {
		resp, err = searchService.Search(ctx, req.Query, req.Limit)
	}
	if err != nil {
		c.JSONAppError(err)
		return
	}

	c.JSONSuccess(resp)
}
