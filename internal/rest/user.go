package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	userbiz "storefront/business/user"
	"storefront/domain"
	"storefront/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/labstack/echo/v4"
)

type UserService interface {
	Register(ctx context.Context, in userbiz.RegisterInput) (domain.User, error)
	VerifyEmail(ctx context.Context, token string) error
	Login(ctx context.Context, email, password, pushToken string) (userbiz.LoginResult, error)
	GoogleLogin(ctx context.Context, in userbiz.GoogleLoginInput) (userbiz.LoginResult, error)
	Logout(ctx context.Context, userID uint, token string) error
	UpdateProfile(ctx context.Context, userID uint, in userbiz.UpdateProfileInput) (domain.User, error)
	ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error
	FetchCustomerDetails(ctx context.Context, customerID uint) (domain.Customer, error)
	GetUserProfile(ctx context.Context, userID uint) (domain.User, error)
	GetAllUsers(ctx context.Context) ([]domain.User, error)
	UpdateRole(ctx context.Context, userID uint, role string) (domain.User, error)
}

type UserHandler struct {
	userService UserService
	timeout     time.Duration
}

func NewUserHandler(userService UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
		timeout:     10 * time.Second,
	}
}

type UserRegisterRequest struct {
	Username    string `json:"username" form:"username"`
	Email       string `json:"email" form:"email"`
	Password    string `json:"password" form:"password"`
	FirstName   string `json:"first_name" form:"first_name"`
	LastName    string `json:"last_name" form:"last_name"`
	PhoneNumber string `json:"phone_number" form:"phone_number"`
	Address     string `json:"address" form:"address"`
	ZipCode     string `json:"zip_code" form:"zip_code"`
}

type UserLoginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	PushToken string `json:"push_token"`
}

// GoogleLoginRequest is the payload the mobile client forwards after the
// identity provider signed the user in.
type GoogleLoginRequest struct {
	Email     string `json:"email"`
	UID       string `json:"uid"`
	Name      string `json:"name"`
	PushToken string `json:"push_token"`
}

type UserUpdateRequest struct {
	Username    string `json:"username" form:"username"`
	FirstName   string `json:"first_name" form:"first_name"`
	LastName    string `json:"last_name" form:"last_name"`
	PhoneNumber string `json:"phone_number" form:"phone_number"`
	Address     string `json:"address" form:"address"`
	ZipCode     string `json:"zip_code" form:"zip_code"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type UpdateRoleRequest struct {
	Role string `json:"role"`
}

func (h *UserHandler) Register(c echo.Context) error {
	var req UserRegisterRequest
	if err := c.Bind(&req); err != nil {
		logger.Warn("Invalid request body", err)
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	filename, data, err := formImage(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	in := userbiz.RegisterInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Address:     req.Address,
		ZipCode:     req.ZipCode,
	}
	if data != nil {
		in.Image = &userbiz.ImageUpload{Filename: filename, Data: data}
	}

	user, err := h.userService.Register(ctx, in)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(user))
}

const verifiedPage = `<!DOCTYPE html>
<html><head><title>Email verified</title></head>
<body style="font-family: Arial, sans-serif; text-align: center; padding-top: 60px;">
<h1>Your email has been verified</h1>
<p>You can now return to the app and log in.</p>
</body></html>`

const verifyFailedPage = `<!DOCTYPE html>
<html><head><title>Verification failed</title></head>
<body style="font-family: Arial, sans-serif; text-align: center; padding-top: 60px;">
<h1>This verification link is invalid or has expired</h1>
<p>Please register again or request a new verification email.</p>
</body></html>`

// VerifyEmail is opened from the email client, so it answers with a page
// rather than JSON.
func (h *UserHandler) VerifyEmail(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	err := h.userService.VerifyEmail(ctx, c.Param("token"))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidToken) {
			return c.HTML(http.StatusBadRequest, verifyFailedPage)
		}
		logger.Error("Failed to verify email", err)
		return c.HTML(http.StatusInternalServerError, verifyFailedPage)
	}

	return c.HTML(http.StatusOK, verifiedPage)
}

func (h *UserHandler) Login(c echo.Context) error {
	var req UserLoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	result, err := h.userService.Login(ctx, req.Email, req.Password, req.PushToken)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(result))
}

func (h *UserHandler) GoogleLogin(c echo.Context) error {
	var req GoogleLoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	result, err := h.userService.GoogleLogin(ctx, userbiz.GoogleLoginInput{
		Email:       req.Email,
		ExternalID:  req.UID,
		DisplayName: req.Name,
		PushToken:   req.PushToken,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(result))
}

func (h *UserHandler) Logout(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	token, ok := c.Get("token").(string)
	if !ok {
		logger.Error("Failed to get token from context")
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	if err := h.userService.Logout(ctx, userID, token); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK("Logout successful"))
}

func (h *UserHandler) GetProfile(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	user, err := h.userService.GetUserProfile(ctx, userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(user))
}

func (h *UserHandler) UpdateProfile(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req UserUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	filename, data, err := formImage(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	in := userbiz.UpdateProfileInput{
		Username:    req.Username,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Address:     req.Address,
		ZipCode:     req.ZipCode,
	}
	if data != nil {
		in.Image = &userbiz.ImageUpload{Filename: filename, Data: data}
	}

	user, err := h.userService.UpdateProfile(ctx, userID, in)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(user))
}

func (h *UserHandler) ChangePassword(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	if err := h.userService.ChangePassword(ctx, userID, req.OldPassword, req.NewPassword); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK("Password changed, please log in again"))
}

func (h *UserHandler) FetchCustomerDetails(c echo.Context) error {
	customerID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	customer, err := h.userService.FetchCustomerDetails(ctx, customerID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(customer))
}

func (h *UserHandler) GetAllUsers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	users, err := h.userService.GetAllUsers(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(users))
}

func (h *UserHandler) UpdateRole(c echo.Context) error {
	userID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req UpdateRoleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	user, err := h.userService.UpdateRole(ctx, userID, req.Role)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(user))
}
