package handlers

import (
	"net/http"

	"advisy-crm/config"
	"advisy-crm/models"

	"github.com/gin-gonic/gin"
)

type TaskInput struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	DueDate     string `json:"dueDate"`
	ClientID    *uint  `json:"clientId"`
	AssigneeID  *uint  `json:"assigneeId"`
}

// ListTasksHandler retourne les tâches de l'agence, filtrables par statut,
// assigné et client.
func ListTasksHandler(c *gin.Context) {
	var tasks []models.Task
	var totalRows int64

	query := config.DB.Model(&models.Task{}).
		Where("agency_id = ?", c.GetUint("agency_id"))
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if assignee := c.Query("assignee_id"); assignee != "" {
		query = query.Where("assignee_id = ?", assignee)
	}
	if clientID := c.Query("client_id"); clientID != "" {
		query = query.Where("client_id = ?", clientID)
	}

	if err := query.Count(&totalRows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de compter les tâches"})
		return
	}
	if err := query.Preload("Assignee").Scopes(Paginate(c)).
		Order("due_date asc NULLS LAST, created_at desc").Find(&tasks).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de charger les tâches"})
		return
	}

	c.JSON(http.StatusOK, CreatePaginatedResponse(c, tasks, totalRows))
}

func CreateTaskHandler(c *gin.Context) {
	var input TaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}

	task := models.Task{
		AgencyID:    c.GetUint("agency_id"),
		Title:       input.Title,
		Description: input.Description,
		DueDate:     parseDatePtr(input.DueDate),
		Status:      "open",
		ClientID:    input.ClientID,
		AssigneeID:  input.AssigneeID,
	}
	if err := config.DB.Create(&task).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de créer la tâche"})
		return
	}

	if task.AssigneeID != nil {
		GlobalHub.NotifyUser(*task.AssigneeID, "task_assigned", gin.H{"taskId": task.ID, "title": task.Title})
	}
	c.JSON(http.StatusCreated, task)
}

func UpdateTaskHandler(c *gin.Context) {
	var task models.Task
	if err := config.DB.First(&task, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tâche introuvable"})
		return
	}

	var input struct {
		TaskInput
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}

	previousAssignee := task.AssigneeID
	task.Title = input.Title
	task.Description = input.Description
	task.DueDate = parseDatePtr(input.DueDate)
	task.ClientID = input.ClientID
	task.AssigneeID = input.AssigneeID
	if input.Status != "" {
		task.Status = input.Status
	}

	if err := config.DB.Save(&task).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de mettre à jour la tâche"})
		return
	}

	reassigned := task.AssigneeID != nil &&
		(previousAssignee == nil || *previousAssignee != *task.AssigneeID)
	if reassigned {
		GlobalHub.NotifyUser(*task.AssigneeID, "task_assigned", gin.H{"taskId": task.ID, "title": task.Title})
	}
	c.JSON(http.StatusOK, task)
}

func DeleteTaskHandler(c *gin.Context) {
	result := config.DB.Where("id = ?", c.Param("id")).Delete(&models.Task{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de supprimer la tâche"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tâche introuvable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Tâche supprimée"})
}
