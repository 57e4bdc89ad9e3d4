package handler

import "github.com/gin-gonic/gin"

const (
	statusSuccess = "Success"
	statusFailed  = "Failed"

	errDataNotFound       = "data not found!"
	errVerificationFailed = "User verification failed"
	errEmailNotFound      = "User with this email not found!"
	msgEmailSent          = "Email Sent!"
	msgPasswordChanged    = "Password Changed"
)

func success(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"status": statusSuccess, "data": data})
}

func failed(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"status": statusFailed, "data": data})
}
