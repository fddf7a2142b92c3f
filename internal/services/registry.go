package services

import "sync"

// 全局服务实例，bootstrap阶段注入一次，控制器只读访问
var (
	registryMu            sync.RWMutex
	searchService         *SearchService
	recommendationService *RecommendationService
	indexingService       *IndexingService
)

// SetServices 注入全局服务实例（启动时调用一次）
func SetServices(search *SearchService, recommendation *RecommendationService, indexing *IndexingService) {
	registryMu.Lock()
	defer registryMu.Unlock()
	searchService = search
	recommendationService = recommendation
	indexingService = indexing
}

// GetSearchService 获取检索服务
func GetSearchService() *SearchService {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return searchService
}

// GetRecommendationService 获取推荐服务
func GetRecommendationService() *RecommendationService {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return recommendationService
}

// GetIndexingService 获取索引服务
func GetIndexingService() *IndexingService {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return indexingService
}
