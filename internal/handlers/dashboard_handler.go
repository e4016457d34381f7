package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"advisy-crm/config"
	"advisy-crm/models"

	"github.com/gin-gonic/gin"
)

const dashboardCacheTTL = 5 * time.Minute

// DashboardStats regroupe les indicateurs de la page d'accueil. Le
// périmètre dépend du rôle: un agent ne voit que son portefeuille.
type DashboardStats struct {
	Clients          int64   `json:"clients"`
	ActivePolicies   int64   `json:"activePolicies"`
	MonthlyPremiums  float64 `json:"monthlyPremiums"`
	PendingScans     int64   `json:"pendingScans"`
	OpenTasks        int64   `json:"openTasks"`
	CommissionsMonth float64 `json:"commissionsMonth"`
}

func dashboardCacheKey(agencyID, userID uint, scope string) string {
	if scope == "agency" {
		return fmt.Sprintf("dashboard:agency:%d", agencyID)
	}
	return fmt.Sprintf("dashboard:user:%d", userID)
}

// DashboardStatsHandler calcule (ou ressort du cache) les indicateurs.
// Les rôles king, admin et manager voient toute l'agence, les autres leur
// propre portefeuille.
func DashboardStatsHandler(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Non authentifié"})
		return
	}
	agencyID := c.GetUint("agency_id")

	scope := "user"
	if rolesVal, exists := c.Get("roles"); exists {
		if roles, ok := rolesVal.([]string); ok {
			for _, role := range roles {
				if role == "king" || role == "admin" || role == "manager" {
					scope = "agency"
					break
				}
			}
		}
	}

	cacheKey := dashboardCacheKey(agencyID, userID, scope)
	if config.RDB != nil {
		if cached, err := config.RDB.Get(config.Ctx, cacheKey).Result(); err == nil {
			var stats DashboardStats
			if json.Unmarshal([]byte(cached), &stats) == nil {
				c.JSON(http.StatusOK, stats)
				return
			}
		}
	}

	stats := computeDashboardStats(agencyID, userID, scope)

	if config.RDB != nil {
		if data, err := json.Marshal(stats); err == nil {
			if err := config.RDB.Set(config.Ctx, cacheKey, data, dashboardCacheTTL).Err(); err != nil {
				slog.Warn("Mise en cache du dashboard en échec", "key", cacheKey, "error", err)
			}
		}
	}

	c.JSON(http.StatusOK, stats)
}

func computeDashboardStats(agencyID, userID uint, scope string) DashboardStats {
	var stats DashboardStats
	monthStart := time.Now().AddDate(0, 0, 1-time.Now().Day()).Truncate(24 * time.Hour)

	clients := config.DB.Model(&models.Client{}).Where("agency_id = ?", agencyID)
	policies := config.DB.Model(&models.Policy{}).
		Joins("JOIN clients ON clients.id = policies.client_id").
		Where("policies.agency_id = ? AND policies.status = ?", agencyID, "active")
	commissions := config.DB.Model(&models.CommissionPart{}).
		Joins("JOIN commissions ON commissions.id = commission_parts.commission_id").
		Where("commissions.agency_id = ? AND commissions.created_at >= ?", agencyID, monthStart)

	if scope != "agency" {
		clients = clients.Where("agent_id = ?", userID)
		policies = policies.Where("clients.agent_id = ?", userID)
		commissions = commissions.Where("commission_parts.agent_id = ?", userID)
	}

	clients.Count(&stats.Clients)
	policies.Count(&stats.ActivePolicies)
	policies.Select("COALESCE(SUM(policies.premium_monthly), 0)").Scan(&stats.MonthlyPremiums)
	commissions.Select("COALESCE(SUM(commission_parts.amount), 0)").Scan(&stats.CommissionsMonth)

	scans := config.DB.Model(&models.ScanSession{}).
		Where("agency_id = ? AND status IN ?", agencyID, []string{"uploaded", "extracted"})
	tasks := config.DB.Model(&models.Task{}).
		Where("agency_id = ? AND status = ?", agencyID, "open")
	if scope != "agency" {
		scans = scans.Where("uploaded_by = ?", userID)
		tasks = tasks.Where("assignee_id = ?", userID)
	}
	scans.Count(&stats.PendingScans)
	tasks.Count(&stats.OpenTasks)

	return stats
}
