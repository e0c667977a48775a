package router

import (
	"context"
	"errors"

	"cv-match-go/internal/api/handler"
	"cv-match-go/internal/parser"
	"cv-match-go/internal/storage"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// RegisterRoutes 注册API路由
func RegisterRoutes(h *server.Hertz, matchHandler *handler.MatchHandler) {
	api := h.Group("/api/v1")

	// 提交一次岗位-简历匹配
	api.POST("/match", func(c context.Context, ctx *app.RequestContext) {
		offerText := ctx.PostForm("offer_text")

		fileHeader, err := ctx.FormFile("cv_file")
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "简历文件未找到"})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "打开简历文件失败"})
			return
		}
		defer file.Close()

		resp, err := matchHandler.HandleMatch(c, offerText, file, fileHeader.Size)
		if err != nil {
			ctx.JSON(statusForError(err), utils.H{"error": err.Error()})
			return
		}

		ctx.JSON(consts.StatusOK, resp)
	})

	// 按UUID查询历史匹配记录
	api.GET("/match/:id", func(c context.Context, ctx *app.RequestContext) {
		matchUUID := ctx.Param("id")

		record, err := matchHandler.HandleGetMatch(c, matchUUID)
		if err != nil {
			if errors.Is(err, storage.ErrMatchRecordNotFound) {
				ctx.JSON(consts.StatusNotFound, utils.H{"error": "匹配记录不存在"})
				return
			}
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}

		ctx.JSON(consts.StatusOK, record)
	})

	// 健康检查
	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})
}

// statusForError 按错误类型映射HTTP状态码。
// 输入验证错误和简历文本长度异常都属于客户端错误。
func statusForError(err error) int {
	if handler.IsValidationError(err) ||
		errors.Is(err, parser.ErrResumeTooShort) ||
		errors.Is(err, parser.ErrResumeTooLong) {
		return consts.StatusBadRequest
	}
	return consts.StatusInternalServerError
}
