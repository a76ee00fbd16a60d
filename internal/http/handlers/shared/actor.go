package shared

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// AdminActor 读取管理端操作者标识（X-Admin-ID 经中间件写入）。
// 缺省返回空串，由服务层回退为 SYSTEM。
func AdminActor(c *gin.Context) string {
	if c == nil {
		return ""
	}
	if value, ok := c.Get("admin_actor"); ok {
		if actor, ok := value.(string); ok {
			return strings.TrimSpace(actor)
		}
	}
	return ""
}
