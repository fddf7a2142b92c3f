package controllers

// HealthController 健康检查
type HealthController struct {
	BaseController
}

// Health 存活探针
func (c *HealthController) Health() {
	c.JSONSuccess(map[string]interface{}{
		"status": "ok",
	})
}

// RootController 根路径
type RootController struct {
	BaseController
}

// Index 服务信息
func (c *RootController) Index() {
	c.JSONSuccess(map[string]interface{}{
		"service": "pimhub-backend",
	})
}
