package handler

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/user/moodreel/internal/logging"
	"github.com/user/moodreel/internal/middleware"
	"github.com/user/moodreel/internal/model"
	"github.com/user/moodreel/internal/notice"
	"github.com/user/moodreel/internal/repository"
	"github.com/user/moodreel/internal/service"
)

// ==================== 认证页面 ====================

// SignInPage 登录页面
func (h *Handler) SignInPage(c *gin.Context) {
	if middleware.GetUserID(c) > 0 {
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.HTML(http.StatusOK, "signin.html", h.RenderData(c, gin.H{
		"Title":    "Sign In - " + h.Config.SiteName,
		"Email":    "",
		"Redirect": c.Query("redirect"),
	}))
}

// SignIn 处理登录
func (h *Handler) SignIn(c *gin.Context) {
	ctx := c.Request.Context()
	email := c.PostForm("email")
	password := c.PostForm("password")

	user, err := h.Accounts.SignIn(ctx, email, password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingCredentials):
			notice.Error(ctx, "Please enter both email and password.")
		case errors.Is(err, service.ErrInvalidCredentials):
			notice.Error(ctx, "Invalid email or password.")
		default:
			logging.Error().Err(err).Msg("[Auth] 登录失败")
			notice.Error(ctx, "Sign in failed. Please try again.")
		}
		c.HTML(http.StatusOK, "signin.html", h.RenderData(c, gin.H{
			"Title":    "Sign In - " + h.Config.SiteName,
			"Email":    email,
			"Redirect": c.PostForm("redirect"),
		}))
		return
	}

	token, err := middleware.GenerateToken(user.ID, user.Username, h.Config.AppSecret, h.Config.JWTExpiry)
	if err != nil {
		logging.Error().Err(err).Int("user_id", user.ID).Msg("[Auth] 生成 token 失败")
		notice.Error(ctx, "Sign in failed. Please try again.")
		c.HTML(http.StatusInternalServerError, "signin.html", h.RenderData(c, gin.H{
			"Title":    "Sign In - " + h.Config.SiteName,
			"Email":    email,
			"Redirect": c.PostForm("redirect"),
		}))
		return
	}

	// 设置 Cookie (JWT)
	c.SetCookie(middleware.TokenCookie, token, int(h.Config.JWTExpiry.Seconds()), "/", "", false, true)

	// 保存 UserInfo 到 Session
	session := sessions.Default(c)
	session.Set("userinfo", model.SessionUser{ID: user.ID, Username: user.Username})
	session.Save()

	notice.Success(ctx, "Signed in successfully as %s!", user.Username)
	h.redirectWithNotices(c, backTo(c, "/"))
}

// SignUpPage 注册页面
func (h *Handler) SignUpPage(c *gin.Context) {
	if middleware.GetUserID(c) > 0 {
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.HTML(http.StatusOK, "signup.html", h.RenderData(c, gin.H{
		"Title":     "Sign Up - " + h.Config.SiteName,
		"Email":     "",
		"MinLength": service.MinPasswordLength,
	}))
}

// SignUp 处理注册
func (h *Handler) SignUp(c *gin.Context) {
	ctx := c.Request.Context()
	email := c.PostForm("email")
	password := c.PostForm("password")

	if password != c.PostForm("confirm_password") {
		notice.Error(ctx, "Passwords do not match.")
		h.renderSignUp(c, email)
		return
	}

	_, err := h.Accounts.SignUp(ctx, email, password)
	switch {
	case err == nil:
		notice.Success(ctx, "Account created! Please sign in.")
		h.redirectWithNotices(c, "/signin")
	case errors.Is(err, repository.ErrUserExists):
		notice.Warn(ctx, "Email already registered. Please sign in.")
		h.redirectWithNotices(c, "/signin")
	case errors.Is(err, service.ErrMissingCredentials):
		notice.Error(ctx, "Please enter both email and password.")
		h.renderSignUp(c, email)
	case errors.Is(err, service.ErrPasswordTooShort):
		notice.Error(ctx, "Password must be at least %d characters.", service.MinPasswordLength)
		h.renderSignUp(c, email)
	default:
		logging.Error().Err(err).Msg("[Auth] 注册失败")
		notice.Error(ctx, "Sign up failed. Please try again.")
		h.renderSignUp(c, email)
	}
}

func (h *Handler) renderSignUp(c *gin.Context, email string) {
	c.HTML(http.StatusOK, "signup.html", h.RenderData(c, gin.H{
		"Title":     "Sign Up - " + h.Config.SiteName,
		"Email":     email,
		"MinLength": service.MinPasswordLength,
	}))
}

// SignOut 退出登录
func (h *Handler) SignOut(c *gin.Context) {
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", false, true)

	session := sessions.Default(c)
	if sid, ok := session.Get("sid").(string); ok {
		h.Sessions.Clear(sid)
	}
	session.Clear()
	session.Save()

	notice.Info(c.Request.Context(), "You have been signed out.")
	h.redirectWithNotices(c, "/")
}
