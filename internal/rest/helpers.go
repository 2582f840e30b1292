package rest

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"storefront/domain"

	"github.com/labstack/echo/v4"
)

const maxImageSize = 5 << 20

func paramID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, domain.NewValidationError(name, fmt.Sprintf("invalid %s", name))
	}
	return uint(id), nil
}

func currentUserID(c echo.Context) (uint, error) {
	userID, ok := c.Get("user_id").(uint)
	if !ok {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	return userID, nil
}

func isMultipart(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

// formImage reads the optional "image" part of a multipart request. JSON
// requests and multipart requests without the part yield no image.
func formImage(c echo.Context) (string, []byte, error) {
	if !isMultipart(c) {
		return "", nil, nil
	}

	fh, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil, nil
		}
		return "", nil, err
	}

	if fh.Size > maxImageSize {
		return "", nil, domain.NewValidationError("image", "image must be at most 5MB")
	}

	f, err := fh.Open()
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageSize+1))
	if err != nil {
		return "", nil, err
	}
	if len(data) > maxImageSize {
		return "", nil, domain.NewValidationError("image", "image must be at most 5MB")
	}

	return fh.Filename, data, nil
}
