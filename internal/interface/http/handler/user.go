package handler

import (
	"github.com/gin-gonic/gin"

	appuser "github.com/xiebiao/library/internal/application/user"
	"github.com/xiebiao/library/internal/interface/http/dto"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/response"
)

// UserHandler serves account routes. Handlers only bind input, call one
// use case and shape the reply.
type UserHandler struct {
	registerUseCase *appuser.RegisterUseCase
	loginUseCase    *appuser.LoginUseCase
	refreshUseCase  *appuser.RefreshUseCase
	logoutUseCase   *appuser.LogoutUseCase
	profileUseCase  *appuser.ProfileUseCase
}

func NewUserHandler(
	registerUseCase *appuser.RegisterUseCase,
	loginUseCase *appuser.LoginUseCase,
	refreshUseCase *appuser.RefreshUseCase,
	logoutUseCase *appuser.LogoutUseCase,
	profileUseCase *appuser.ProfileUseCase,
) *UserHandler {
	return &UserHandler{
		registerUseCase: registerUseCase,
		loginUseCase:    loginUseCase,
		refreshUseCase:  refreshUseCase,
		logoutUseCase:   logoutUseCase,
		profileUseCase:  profileUseCase,
	}
}

// Register
// @Summary      Register
// @Description  Create a member account
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body dto.RegisterRequest true "account"
// @Success      200 {object} response.Response{data=dto.UserResponse}
// @Failure      200 {object} response.Response "40003 email taken, 40005 weak password, 40900 bad params"
// @Router       /api/v1/users/register [post]
func (h *UserHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	info, err := h.registerUseCase.Execute(c.Request.Context(), appuser.RegisterRequest{
		Email:    req.Email,
		Password: req.Password,
		Nickname: req.Nickname,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, toUserResponse(info))
}

// Login
// @Summary      Log in
// @Description  Check credentials and issue an access/refresh token pair
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body dto.LoginRequest true "credentials"
// @Success      200 {object} response.Response{data=dto.LoginResponse}
// @Failure      200 {object} response.Response "40103 wrong password, 40401 unknown email"
// @Router       /api/v1/users/login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.loginUseCase.Execute(c.Request.Context(), appuser.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
		ClientIP: c.ClientIP(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, toLoginResponse(result))
}

// Refresh
// @Summary      Refresh tokens
// @Description  Trade a refresh token of a live session for a new pair
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body dto.RefreshRequest true "refresh token"
// @Success      200 {object} response.Response{data=dto.LoginResponse}
// @Failure      200 {object} response.Response "40100 session closed, 40101 invalid token, 40102 expired"
// @Router       /api/v1/users/refresh [post]
func (h *UserHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.refreshUseCase.Execute(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, toLoginResponse(result))
}

// Logout
// @Summary      Log out
// @Description  Revoke the access token and close the session
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response
// @Router       /api/v1/users/logout [post]
func (h *UserHandler) Logout(c *gin.Context) {
	if err := h.logoutUseCase.Execute(c.Request.Context(), middleware.GetAccessToken(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "logged out", nil)
}

// Me
// @Summary      Current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response{data=dto.UserResponse}
// @Router       /api/v1/users/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	info, err := h.profileUseCase.Execute(c.Request.Context(), middleware.MustGetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, toUserResponse(info))
}

func toUserResponse(info *appuser.UserInfo) *dto.UserResponse {
	return &dto.UserResponse{
		ID:       info.ID,
		Email:    info.Email,
		Nickname: info.Nickname,
		Role:     info.Role,
	}
}

func toLoginResponse(r *appuser.LoginResponse) *dto.LoginResponse {
	return &dto.LoginResponse{
		User:         *toUserResponse(&r.User),
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresIn:    r.ExpiresIn,
	}
}

// bindError replies 40900 with the validator message.
func bindError(c *gin.Context, err error) {
	response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "invalid parameters: "+err.Error())
}
