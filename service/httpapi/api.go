package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"ChatCore/module/chat/member"
	"ChatCore/module/chat/message"
	chatmodel "ChatCore/module/chat/model"
	"ChatCore/tools/errs"

	"github.com/gin-gonic/gin"
)

// Server 聚合对外 HTTP 面：发消息 / 拉消息 / 已读回执 / 未读数 / 成员管理
type Server struct {
	Msg     *message.Service
	Tracker *member.Tracker
	Unread  *member.Counter
	Members member.Repository
}

func NewServer(msg *message.Service, tracker *member.Tracker, unread *member.Counter, members member.Repository) *Server {
	return &Server{Msg: msg, Tracker: tracker, Unread: unread, Members: members}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.POST("/chats/:chat_id/messages", s.SendMessage)
		api.GET("/chats/:chat_id/messages", s.ListMessages)
		api.POST("/chats/:chat_id/read", s.MarkRead)
		api.GET("/chats/:chat_id/members/:member_id/unread", s.UnreadCount)
		api.GET("/members/:member_id/unread", s.UnreadCounts)
		api.POST("/chats/:chat_id/members", s.JoinChat)
		api.DELETE("/chats/:chat_id/members/:member_id", s.LeaveChat)
	}
}

type sendReq struct {
	SenderID string `json:"sender_id" binding:"required"`
	Content  string `json:"content" binding:"required"`
}

func (s *Server) SendMessage(c *gin.Context) {
	var req sendReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": errs.ArgsError, "msg": err.Error()})
		return
	}
	msg, err := s.Msg.Send(c.Request.Context(), c.Param("chat_id"), req.SenderID, req.Content)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"server_msg_id": msg.ServerMsgID,
		"seq":           msg.Seq,
		"create_time":   msg.CreateTime,
	})
}

func (s *Server) ListMessages(c *gin.Context) {
	from := parseInt64(c.Query("from_seq"), 0)
	to := parseInt64(c.Query("to_seq"), 0)
	limit := parseInt64(c.Query("limit"), 50)

	out, err := s.Msg.List(c.Request.Context(), c.Param("chat_id"), from, to, limit)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

type markReadReq struct {
	MemberID string `json:"member_id" binding:"required"`
	Seq      int64  `json:"seq"`
}

func (s *Server) MarkRead(c *gin.Context) {
	var req markReadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": errs.ArgsError, "msg": err.Error()})
		return
	}
	if err := s.Tracker.MarkRead(c.Request.Context(), c.Param("chat_id"), req.MemberID, req.Seq); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) UnreadCount(c *gin.Context) {
	n, err := s.Unread.UnreadCount(c.Request.Context(), c.Param("chat_id"), c.Param("member_id"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": n})
}

func (s *Server) UnreadCounts(c *gin.Context) {
	out, err := s.Unread.UnreadCounts(c.Request.Context(), c.Param("member_id"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": out})
}

type joinReq struct {
	MemberID string `json:"member_id" binding:"required"`
	Role     int32  `json:"role"`
}

func (s *Server) JoinChat(c *gin.Context) {
	var req joinReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": errs.ArgsError, "msg": err.Error()})
		return
	}
	m := &chatmodel.Membership{ChatID: c.Param("chat_id"), MemberID: req.MemberID, Role: req.Role}
	if err := s.Members.Upsert(c.Request.Context(), m); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) LeaveChat(c *gin.Context) {
	if err := s.Members.Remove(c.Request.Context(), c.Param("chat_id"), c.Param("member_id")); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// writeErr CodeError 按业务码回 4xx/5xx，其余统一 500
func writeErr(c *gin.Context, err error) {
	var ce *errs.CodeError
	if errors.As(err, &ce) {
		status := http.StatusInternalServerError
		switch ce.Code {
		case errs.ArgsError:
			status = http.StatusBadRequest
		case errs.RecordNotFoundError:
			status = http.StatusNotFound
		case errs.AllocatorUnavailableError, errs.BootstrapTimeoutError:
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"code": ce.Code, "msg": ce.Msg, "detail": ce.Detail})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"code": errs.InternalError, "msg": err.Error()})
}

func parseInt64(s string, def int64) int64 {
	if s == "" {
		return def
	}
	x, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return def
	}
	return x
}
