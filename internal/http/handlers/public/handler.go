package public

import "github.com/tipari/platform/internal/provider"

// Handler 公开接口处理器入口
// 说明：该处理器仅用于无需管理端身份的只读 API。
type Handler struct {
	*provider.Container
}

// New 创建公开处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
