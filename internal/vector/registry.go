package vector

import (
	"sync"

	apperrors "github.com/pimhub/backend-go/internal/errors"
)

// collectionState 集合生命周期状态：NOT_EXISTS → CREATING → READY
type collectionState int

const (
	stateNotExists collectionState = iota
	stateCreating
	stateReady
)

// dimensionGuard 记录每个集合的维度并在客户端侧做维度校验。
// 集合的维度在其生命周期内固定，插入不同维度的向量是致命错误，
// 绝不做静默截断或补零
type dimensionGuard struct {
	mu     sync.Mutex
	dims   map[string]int
	states map[string]collectionState
}

func newDimensionGuard() *dimensionGuard {
	return &dimensionGuard{
		dims:   make(map[string]int),
		states: make(map[string]collectionState),
	}
}

// beginEnsure 进入CREATING状态；已注册且维度一致时直接返回ready=true，
// 维度不一致返回DimensionMismatchError
func (g *dimensionGuard) beginEnsure(name string, dimension int) (ready bool, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if existing, ok := g.dims[name]; ok {
		if existing != dimension {
			return false, apperrors.NewDimensionMismatchError(existing, dimension)
		}
		if g.states[name] == stateReady {
			return true, nil
		}
	}
	g.dims[name] = dimension
	g.states[name] = stateCreating
	return false, nil
}

// markReady 集合创建完成，进入READY状态
func (g *dimensionGuard) markReady(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.states[name] = stateReady
}

// markFailed 创建失败回退到NOT_EXISTS，允许下次重新ensure
func (g *dimensionGuard) markFailed(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.dims, name)
	delete(g.states, name)
}

// check 校验向量长度与集合注册维度一致。
// 集合未注册时跳过校验，交由存储后端报错
func (g *dimensionGuard) check(name string, vectorLen int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if dim, ok := g.dims[name]; ok && dim != vectorLen {
		return apperrors.NewDimensionMismatchError(dim, vectorLen)
	}
	return nil
}

// dimension 返回集合注册的维度，未注册返回0
func (g *dimensionGuard) dimension(name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dims[name]
}
