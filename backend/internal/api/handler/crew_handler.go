package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"crewcheck/backend/internal/crew"
	"crewcheck/backend/internal/dto"
	"crewcheck/backend/internal/service"
	"crewcheck/backend/pkg/response"
)

// CrewHandler 班组核验 HTTP 处理器
type CrewHandler struct {
	crewSvc service.CrewVerificationService
}

// NewCrewHandler 创建 CrewHandler
func NewCrewHandler(crewSvc service.CrewVerificationService) *CrewHandler {
	return &CrewHandler{crewSvc: crewSvc}
}

// OpenVerification 打开核验会话
// POST /api/v1/crew-verifications
func (h *CrewHandler) OpenVerification(c *gin.Context) {
	var req dto.OpenCrewVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeInvalidParam, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	v, err := h.crewSvc.Open(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleCrewError(c, err)
		return
	}

	response.Created(c, v)
}

// GetVerification 获取当前花名册
// GET /api/v1/crew-verifications/:id
func (h *CrewHandler) GetVerification(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	v, err := h.crewSvc.Get(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		h.handleCrewError(c, err)
		return
	}

	response.OK(c, v)
}

// UpdateMember 修改成员上下班时间或休息时长
// PUT /api/v1/crew-verifications/:id/members/:user_id
func (h *CrewHandler) UpdateMember(c *gin.Context) {
	var req dto.UpdateCrewMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeInvalidParam, "参数校验失败")
		return
	}
	if req.ClockIn == nil && req.ClockOut == nil && req.BreakMinutes == nil {
		response.BadRequest(c, response.CodeInvalidParam, "至少需要修改一个字段")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	v, err := h.crewSvc.UpdateMember(c.Request.Context(), c.Param("id"), c.Param("user_id"), &req, callerID)
	if err != nil {
		h.handleCrewError(c, err)
		return
	}

	response.OK(c, v)
}

// ToggleConfirmed 切换成员确认状态
// POST /api/v1/crew-verifications/:id/members/:user_id/toggle
func (h *CrewHandler) ToggleConfirmed(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.crewSvc.ToggleConfirmed(c.Request.Context(), c.Param("id"), c.Param("user_id"), callerID)
	if err != nil {
		h.handleCrewError(c, err)
		return
	}

	response.OK(c, result)
}

// AddMembers 手动添加成员
// POST /api/v1/crew-verifications/:id/members
func (h *CrewHandler) AddMembers(c *gin.Context) {
	var req dto.AddCrewMembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeInvalidParam, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.crewSvc.AddMembers(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleCrewError(c, err)
		return
	}

	response.OK(c, result)
}

// Submit 提交核验结果
// POST /api/v1/crew-verifications/:id/submit
func (h *CrewHandler) Submit(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.crewSvc.Submit(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		h.handleCrewError(c, err)
		return
	}

	response.OK(c, result)
}

// CloseVerification 跳过核验并丢弃会话
// DELETE /api/v1/crew-verifications/:id
func (h *CrewHandler) CloseVerification(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.crewSvc.Close(c.Request.Context(), c.Param("id"), callerID); err != nil {
		h.handleCrewError(c, err)
		return
	}

	response.OK(c, nil)
}

// ListCorrections 查看项目的考勤更正申请
// GET /api/v1/jobs/:job_id/corrections
func (h *CrewHandler) ListCorrections(c *gin.Context) {
	var req dto.CorrectionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, response.CodeInvalidParam, "参数校验失败")
		return
	}

	list, err := h.crewSvc.ListCorrections(c.Request.Context(), c.Param("job_id"), &req)
	if err != nil {
		h.handleCrewError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// handleCrewError 统一处理班组核验模块业务错误
func (h *CrewHandler) handleCrewError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrJobNotFound):
		response.NotFound(c, response.CodeJobNotFound, "项目不存在")
	case errors.Is(err, service.ErrLeaderShiftNotFound):
		response.NotFound(c, response.CodeLeaderShiftNotFound, "未找到带班人在该项目的考勤记录")
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, response.CodeSessionNotFound, "核验会话不存在或已过期")
	case errors.Is(err, service.ErrSessionForbidden):
		response.Forbidden(c, response.CodeSessionForbidden, "无权操作他人的核验会话")
	case errors.Is(err, service.ErrMemberNotFound):
		response.NotFound(c, response.CodeMemberNotFound, "成员不在核验名单中")
	case errors.Is(err, service.ErrInvalidClock):
		response.BadRequest(c, response.CodeInvalidClock, "时间格式无效，应为 HH:MM")
	case errors.Is(err, service.ErrInvalidBreak):
		response.BadRequest(c, response.CodeInvalidBreak, "休息时长应在 0-1440 分钟之间")
	case errors.Is(err, crew.ErrMissingLeader):
		response.BadRequest(c, response.CodeMissingLeader, "缺少提交人身份")
	default:
		response.InternalError(c)
	}
}
