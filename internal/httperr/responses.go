package httperr

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// BadRequest sends a 400 Bad Request response.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, NewAPIError(message, nil))
}

// NotFound sends a 404 Not Found response.
func NotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, NewAPIError(message, nil))
}

// Internal sends a 500 Internal Server Error response.
func Internal(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, NewAPIError(message, nil))
}
