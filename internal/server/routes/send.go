package routes

import (
	"github.com/gin-gonic/gin"

	"wallet-send/internal/handler"
)

func RegisterSendRoutes(rg *gin.RouterGroup, h *handler.SendHandler) {
	sendGroup := rg.Group("/send")
	{
		sendGroup.POST("", h.Create)
		sendGroup.GET("/:id", h.Get)
		sendGroup.POST("/:id/form", h.SubmitForm)
		sendGroup.POST("/:id/confirm", h.Confirm)
		sendGroup.POST("/:id/back", h.Back)
		sendGroup.POST("/:id/sign", h.Sign)
		sendGroup.POST("/:id/send", h.Send)
		sendGroup.POST("/:id/gate/cancel", h.CancelGate)
		sendGroup.POST("/:id/gate/release", h.ReleaseGate)
	}
	rg.GET("/history", h.ListHistory)
}
