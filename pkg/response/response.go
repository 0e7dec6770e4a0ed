package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// errorBody is the JSON shape for failures, matching what the frontend parses.
type errorBody struct {
	Error string `json:"error"`
}

// OK sends a 200 JSON response with the entity as the body.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Created sends a 201 JSON response with the entity as the body.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// BadRequest sends 400 with an error message.
func BadRequest(c *gin.Context, err string) {
	c.JSON(http.StatusBadRequest, errorBody{Error: err})
}

// NotFound sends 404.
func NotFound(c *gin.Context, err string) {
	c.JSON(http.StatusNotFound, errorBody{Error: err})
}

// ServiceUnavailable sends 503.
func ServiceUnavailable(c *gin.Context, err string) {
	c.JSON(http.StatusServiceUnavailable, errorBody{Error: err})
}

// Internal sends 500 with a generic message; internal detail stays in logs.
func Internal(c *gin.Context, err string) {
	c.JSON(http.StatusInternalServerError, errorBody{Error: err})
}
