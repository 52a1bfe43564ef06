package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/taskrupee/backend/internal/config"
	"github.com/taskrupee/backend/internal/database"
	"github.com/taskrupee/backend/internal/models"
	"github.com/taskrupee/backend/internal/services/referral"
	"github.com/taskrupee/backend/internal/utils"
)

// AuthHandler handles signup and login
type AuthHandler struct {
	db        *gorm.DB
	referrals *referral.Service
	cfg       *config.Config
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(db *gorm.DB, referrals *referral.Service, cfg *config.Config) *AuthHandler {
	return &AuthHandler{db: db, referrals: referrals, cfg: cfg}
}

type signupRequest struct {
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=8"`
	FirstName    string `json:"first_name" binding:"required"`
	LastName     string `json:"last_name" binding:"required"`
	PhoneNumber  string `json:"phone_number"`
	ReferralCode string `json:"referral_code"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Signup registers a new user. A valid referral code attributes the signup;
// an unknown code is ignored and never blocks registration.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	user := models.User{
		Email:         email,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		PasswordHash:  hash,
		AccountStatus: models.AccountStatusActive,
		KYCStatus:     models.KYCStatusNotSubmitted,
		ReferralCode:  referral.GenerateCode(req.FirstName),
	}
	if req.PhoneNumber != "" {
		user.PhoneNumber = &req.PhoneNumber
	}
	if err := h.db.Create(&user).Error; err != nil {
		// The unique index is the authority on duplicates; a concurrent
		// signup with the same email lands here, not in a pre-check
		if database.IsDuplicateKey(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		respondError(c, err)
		return
	}

	if req.ReferralCode != "" {
		if err := h.referrals.Attribute(user.ID, req.ReferralCode); err != nil {
			if errors.Is(err, referral.ErrSelfReferral) {
				// Cannot happen at signup with a fresh account, but a stale
				// code lookup is not worth failing registration over
				log.Warn().Str("user_id", user.ID.String()).Msg("self referral at signup ignored")
			} else {
				log.Error().Err(err).Str("user_id", user.ID.String()).Msg("referral attribution failed")
			}
		}
	}

	token, err := h.token(&user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, authResponse{Token: token, User: &user})
}

// Login authenticates a user by email and password
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	err := h.db.First(&user, "email = ?", strings.ToLower(strings.TrimSpace(req.Email))).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		respondError(c, err)
		return
	}

	if !utils.CheckPassword(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := h.token(&user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, authResponse{Token: token, User: &user})
}

func (h *AuthHandler) token(user *models.User) (string, error) {
	expiration := time.Duration(h.cfg.JWT.ExpirationHours) * time.Hour
	return utils.GenerateToken(user.ID, user.Email, user.IsAdmin, h.cfg.JWT.Secret, expiration)
}
