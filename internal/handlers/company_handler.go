package handlers

import (
	"net/http"
	"strings"

	"advisy-crm/config"
	"advisy-crm/models"

	"github.com/gin-gonic/gin"
)

type CompanyInput struct {
	Name     string `json:"name" binding:"required"`
	Status   string `json:"status"`
	Category string `json:"category"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Website  string `json:"website"`
}

func ListCompaniesHandler(c *gin.Context) {
	var companies []models.Company
	var totalRows int64

	query := config.DB.Model(&models.Company{})
	if search := c.Query("search"); search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&totalRows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de compter les compagnies"})
		return
	}
	if err := query.Scopes(Paginate(c)).Order("name").Find(&companies).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de charger les compagnies"})
		return
	}

	c.JSON(http.StatusOK, CreatePaginatedResponse(c, companies, totalRows))
}

func GetCompanyHandler(c *gin.Context) {
	var company models.Company
	if err := config.DB.Preload("Products").First(&company, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Compagnie introuvable"})
		return
	}
	c.JSON(http.StatusOK, company)
}

func CreateCompanyHandler(c *gin.Context) {
	var input CompanyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}

	company := models.Company{
		Name:     input.Name,
		Status:   input.Status,
		Category: input.Category,
		Email:    input.Email,
		Phone:    input.Phone,
		Website:  input.Website,
	}
	if company.Status == "" {
		company.Status = "active"
	}

	if err := config.DB.Create(&company).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de créer la compagnie: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, company)
}

func UpdateCompanyHandler(c *gin.Context) {
	var company models.Company
	if err := config.DB.First(&company, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Compagnie introuvable"})
		return
	}

	var input CompanyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}

	company.Name = input.Name
	if input.Status != "" {
		company.Status = input.Status
	}
	company.Category = input.Category
	company.Email = input.Email
	company.Phone = input.Phone
	company.Website = input.Website

	if err := config.DB.Save(&company).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de mettre à jour la compagnie"})
		return
	}
	c.JSON(http.StatusOK, company)
}

func DeleteCompanyHandler(c *gin.Context) {
	result := config.DB.Delete(&models.Company{}, c.Param("id"))
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de supprimer la compagnie"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Compagnie introuvable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Compagnie supprimée"})
}
