package handlers

import (
	"net/http"
	"time"

	"advisy-crm/config"
	"advisy-crm/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserInput struct {
	Login     string `json:"login" binding:"required"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Status    string `json:"status"`

	CommissionRate    float64 `json:"commissionRate"`
	CommissionRateLCA float64 `json:"commissionRateLca"`
	CommissionRateVIE float64 `json:"commissionRateVie"`

	ManagerCommissionRateLCA float64 `json:"managerCommissionRateLca"`
	ManagerCommissionRateVIE float64 `json:"managerCommissionRateVie"`

	ManagerID *uint  `json:"managerId"`
	RoleIDs   []uint `json:"roleIds"`
}

type UserResponse struct {
	ID        uint      `json:"id"`
	Login     string    `json:"login"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	Phone     string    `json:"phone"`
	Status    string    `json:"status"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListUsersHandler retourne les collaborateurs, paginés ou complets (all=true).
func ListUsersHandler(c *gin.Context) {
	var users []models.User

	query := config.DB.Preload("Roles").Order("id asc")

	if c.Query("all") == "true" {
		if err := query.Find(&users).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch users"})
			return
		}
	} else {
		if err := query.Scopes(Paginate(c)).Find(&users).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch users"})
			return
		}
	}

	responseData := make([]UserResponse, 0, len(users))
	for _, user := range users {
		var roleNames []string
		for _, role := range user.Roles {
			roleNames = append(roleNames, role.Name)
		}
		responseData = append(responseData, UserResponse{
			ID:        user.ID,
			Login:     user.Login,
			Email:     user.Email,
			FullName:  user.FullName(),
			Phone:     user.Phone,
			Status:    user.Status,
			Roles:     roleNames,
			CreatedAt: user.CreatedAt,
		})
	}

	if c.Query("all") == "true" {
		c.JSON(http.StatusOK, gin.H{"data": responseData})
		return
	}

	var totalRows int64
	config.DB.Model(&models.User{}).Count(&totalRows)
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, responseData, totalRows))
}

func GetUserHandler(c *gin.Context) {
	var user models.User
	if err := config.DB.Preload("Roles").Preload("Manager").First(&user, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Utilisateur introuvable"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// CreateUserHandler crée un collaborateur avec ses taux et ses rôles.
func CreateUserHandler(c *gin.Context) {
	var input UserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}
	if input.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Mot de passe requis"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Échec du hachage du mot de passe"})
		return
	}

	user := models.User{
		AgencyID:                 c.GetUint("agency_id"),
		Login:                    input.Login,
		Password:                 string(hashedPassword),
		FirstName:                input.FirstName,
		LastName:                 input.LastName,
		Email:                    input.Email,
		Phone:                    input.Phone,
		Status:                   "active",
		CommissionRate:           input.CommissionRate,
		CommissionRateLCA:        input.CommissionRateLCA,
		CommissionRateVIE:        input.CommissionRateVIE,
		ManagerCommissionRateLCA: input.ManagerCommissionRateLCA,
		ManagerCommissionRateVIE: input.ManagerCommissionRateVIE,
		ManagerID:                input.ManagerID,
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		if len(input.RoleIDs) > 0 {
			var roles []models.Role
			if err := tx.Find(&roles, input.RoleIDs).Error; err != nil {
				return err
			}
			return tx.Model(&user).Association("Roles").Replace(roles)
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de créer l'utilisateur: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, user)
}

// UpdateUserHandler met à jour un collaborateur, mot de passe compris si fourni.
func UpdateUserHandler(c *gin.Context) {
	var user models.User
	if err := config.DB.First(&user, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Utilisateur introuvable"})
		return
	}

	var input UserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}

	user.Login = input.Login
	user.FirstName = input.FirstName
	user.LastName = input.LastName
	user.Email = input.Email
	user.Phone = input.Phone
	if input.Status != "" {
		user.Status = input.Status
	}
	user.CommissionRate = input.CommissionRate
	user.CommissionRateLCA = input.CommissionRateLCA
	user.CommissionRateVIE = input.CommissionRateVIE
	user.ManagerCommissionRateLCA = input.ManagerCommissionRateLCA
	user.ManagerCommissionRateVIE = input.ManagerCommissionRateVIE
	user.ManagerID = input.ManagerID

	if input.Password != "" {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Échec du hachage du mot de passe"})
			return
		}
		user.Password = string(hashedPassword)
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&user).Error; err != nil {
			return err
		}
		if input.RoleIDs != nil {
			var roles []models.Role
			if err := tx.Find(&roles, input.RoleIDs).Error; err != nil {
				return err
			}
			return tx.Model(&user).Association("Roles").Replace(roles)
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de mettre à jour l'utilisateur: " + err.Error()})
		return
	}

	invalidateUserCache(user.ID)
	c.JSON(http.StatusOK, user)
}

func DeleteUserHandler(c *gin.Context) {
	result := config.DB.Delete(&models.User{}, c.Param("id"))
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de supprimer l'utilisateur"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Utilisateur introuvable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Utilisateur supprimé"})
}
