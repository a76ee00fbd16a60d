package public

import (
	"strconv"
	"strings"

	handlershared "github.com/tipari/platform/internal/http/handlers/shared"
	"github.com/tipari/platform/internal/http/response"

	"github.com/gin-gonic/gin"
)

func parseIDParam(c *gin.Context) (uint, bool) {
	raw := strings.TrimSpace(c.Param("id"))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		handlershared.RespondErrorWithMsg(c, response.CodeBadRequest, "invalid id parameter", nil)
		return 0, false
	}
	return uint(id), true
}
