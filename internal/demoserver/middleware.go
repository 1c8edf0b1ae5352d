package demoserver

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang/glog"
	"github.com/google/uuid"
)

const (
	RequestIDKey = "X-Request-Id"
	userIDKey    = "demo-user-id"
)

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := uuid.NewString()
		c.Set(RequestIDKey, rid)
		c.Header(RequestIDKey, rid)
	}
}

// accessLog logs one line per request at V(1), and every failure.
func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		status := c.Writer.Status()
		if status >= http.StatusBadRequest {
			glog.Warningf("%s %s %s -> %d", logPrefix(c), c.Request.Method, c.Request.URL.Path, status)
			return
		}
		glog.V(1).Infof("%s %s %s -> %d", logPrefix(c), c.Request.Method, c.Request.URL.Path, status)
	}
}

func logPrefix(c *gin.Context) string {
	return fmt.Sprintf("[demo req=%s]", c.GetString(RequestIDKey))
}

// authMiddleware requires a valid bearer token and records its user.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || raw == "" {
			abort(c, http.StatusUnauthorized, "Missing bearer token")
			return
		}
		claims, err := ParseToken(s.secret, raw, s.now())
		if err != nil {
			glog.Infof("%s rejected token: %v", logPrefix(c), err)
			abort(c, http.StatusUnauthorized, "Invalid token")
			return
		}
		c.Set(userIDKey, claims.UserID)
	}
}

// sameUser rejects requests whose :user_id is not the token's user.
func sameUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
		if err != nil {
			abort(c, http.StatusBadRequest, "Invalid user_id")
			return
		}
		if uint32(id) != currentUser(c) {
			abort(c, http.StatusForbidden, "Not allowed to access this user")
			return
		}
	}
}

func currentUser(c *gin.Context) uint32 {
	v, _ := c.Get(userIDKey)
	id, _ := v.(uint32)
	return id
}

func errorJSON(msg string) gin.H {
	return gin.H{"error": msg}
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, errorJSON(msg))
}
