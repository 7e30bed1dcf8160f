package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authUC "github.com/khoahotran/wellness-api/internal/application/usecase/auth"
	"github.com/khoahotran/wellness-api/pkg/apperror"
	"github.com/khoahotran/wellness-api/pkg/logger"
)

type AuthHandler struct {
	signupUseCase *authUC.SignupUseCase
	loginUseCase  *authUC.LoginUseCase
	logoutUseCase *authUC.LogoutUseCase
	logger        logger.Logger
}

func NewAuthHandler(
	signupUC *authUC.SignupUseCase,
	loginUC *authUC.LoginUseCase,
	logoutUC *authUC.LogoutUseCase,
	log logger.Logger,
) *AuthHandler {
	return &AuthHandler{
		signupUseCase: signupUC,
		loginUseCase:  loginUC,
		logoutUseCase: logoutUC,
		logger:        log,
	}
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("invalid JSON body for signup", err))
		return
	}

	output, err := h.signupUseCase.Execute(c.Request.Context(), authUC.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"msg": "User registered successfully",
		"id":  output.UserID,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("invalid JSON body for login", err))
		return
	}

	output, err := h.loginUseCase.Execute(c.Request.Context(), authUC.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": output.AccessToken,
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	output, err := h.logoutUseCase.Execute(c.Request.Context(), tokenFromRequest(c))
	if err != nil {
		c.Error(err)
		return
	}

	msg := "Logged out"
	if !output.Revoked {
		msg = "Logged out, token remains valid until it expires"
	}
	c.JSON(http.StatusOK, gin.H{"msg": msg})
}
