package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/pulsefeed/pulsefeed-go/api"
	"github.com/pulsefeed/pulsefeed-go/model"
	"github.com/pulsefeed/pulsefeed-go/server/middlewares"
	"github.com/pulsefeed/pulsefeed-go/utils/log"
)

func (s *Server) authResponse(c *gin.Context, status int, user *model.User) {
	access, refresh, err := middlewares.GenerateTokens(user.ID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to generate tokens")
		return
	}
	c.JSON(status, api.AuthResponse{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
	})
}

func (s *Server) Register(c *gin.Context) {
	var req api.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		abortWithError(c, http.StatusBadRequest, "username, email and password are required")
		return
	}

	var n int64
	s.db.Model(&model.User{}).
		Where("username = ? OR email = ?", req.Username, req.Email).
		Count(&n)
	if n > 0 {
		abortWithError(c, http.StatusConflict, "Username or email already exists")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	user := model.User{
		Username:  req.Username,
		Email:     req.Email,
		FullName:  req.FullName,
		CreatedAt: nowStamp(),
		UpdatedAt: nowStamp(),
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return tx.Create(&Credential{UserID: user.ID, PasswordHash: string(hashed)}).Error
	})
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to create user")
		return
	}

	s.authResponse(c, http.StatusCreated, &user)
}

func (s *Server) Login(c *gin.Context) {
	var req api.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	var user model.User
	err := s.db.Where("username = ? OR email = ?", req.Username, req.Username).
		First(&user).Error
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	var cred Credential
	if err := s.db.First(&cred, "user_id = ?", user.ID).Error; err != nil {
		abortWithError(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(req.Password)); err != nil {
		abortWithError(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	filled, err := userWithCounts(s.db, user.ID, user.ID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Database error")
		return
	}
	s.authResponse(c, http.StatusOK, filled)
}

func (s *Server) RefreshToken(c *gin.Context) {
	var req api.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	userID, err := middlewares.ParseToken(req.RefreshToken)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}
	user, err := userWithCounts(s.db, userID, userID)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unknown user")
		return
	}
	s.authResponse(c, http.StatusOK, user)
}

func (s *Server) SendOTP(c *gin.Context) {
	var req api.SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.PhoneNumber == "" {
		abortWithError(c, http.StatusBadRequest, "phone_number is required")
		return
	}

	code, err := s.otp.Issue(c.Request.Context(), req.PhoneNumber)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to issue code")
		return
	}
	// There is no SMS gateway in development; the code goes to the log.
	log.Log.WithField("phone", req.PhoneNumber).Infof("issued OTP %s", code)

	c.JSON(http.StatusOK, gin.H{"message": "Verification code sent"})
}

func (s *Server) VerifyOTP(c *gin.Context) {
	var req api.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	ok, err := s.otp.Verify(c.Request.Context(), req.PhoneNumber, req.Code)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to verify code")
		return
	}
	if !ok {
		abortWithError(c, http.StatusUnauthorized, "Invalid or expired code")
		return
	}

	// Phone login provisions an account on first use.
	var cred Credential
	err = s.db.First(&cred, "phone_number = ?", req.PhoneNumber).Error
	if err == nil {
		user, userErr := userWithCounts(s.db, cred.UserID, cred.UserID)
		if userErr != nil {
			abortWithError(c, http.StatusInternalServerError, "Database error")
			return
		}
		s.authResponse(c, http.StatusOK, user)
		return
	}

	user := model.User{
		Username:  fmt.Sprintf("user_%s", req.PhoneNumber),
		Email:     fmt.Sprintf("%s@pulsefeed.com", req.PhoneNumber),
		FullName:  "PulseFeed User",
		CreatedAt: nowStamp(),
		UpdatedAt: nowStamp(),
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return tx.Create(&Credential{UserID: user.ID, PhoneNumber: req.PhoneNumber}).Error
	})
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to create user")
		return
	}
	s.authResponse(c, http.StatusCreated, &user)
}
