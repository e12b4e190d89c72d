package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"crewcheck/backend/internal/service"
	"crewcheck/backend/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	crewSvc   service.CrewVerificationService
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(crewSvc service.CrewVerificationService, exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{crewSvc: crewSvc, exportSvc: exportSvc}
}

// ExportTimesheet 导出当前核验会话的工时表
// GET /api/v1/crew-verifications/:id/export
func (h *ExportHandler) ExportTimesheet(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	v, err := h.crewSvc.Get(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	buf, filename, err := h.exportSvc.ExportTimesheet(c.Request.Context(), v)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	response.Attachment(c, filename, xlsxContentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, response.CodeSessionNotFound, "核验会话不存在或已过期")
	case errors.Is(err, service.ErrSessionForbidden):
		response.Forbidden(c, response.CodeSessionForbidden, "无权操作他人的核验会话")
	case errors.Is(err, service.ErrExportEmptyRoster):
		response.BadRequest(c, response.CodeExportFailed, "核验名单为空")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.Error(c, http.StatusInternalServerError, response.CodeExportFailed, "生成 Excel 文件失败")
	default:
		response.InternalError(c)
	}
}
