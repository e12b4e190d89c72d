package handler

import "crewcheck/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Crew   *CrewHandler
	Export *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Crew:   NewCrewHandler(svc.CrewVerification),
		Export: NewExportHandler(svc.CrewVerification, svc.Export),
	}
}
