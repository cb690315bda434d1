package services

import (
	"net/http"

	"github.com/finlens/backend/internal/models"
)

// CategoryService serves the fixed category catalog. The catalog lives in
// code rather than the database, so responses are safe to cache.
type CategoryService struct{}

func NewCategoryService() *CategoryService {
	return &CategoryService{}
}

// HandleList returns the category catalog
// @Summary List categories
// @Tags categories
// @Produce json
// @Param type query string false "income or expense"
// @Success 200 {object} map[string][]models.Category
// @Router /categories [get]
func (s *CategoryService) HandleList(w http.ResponseWriter, r *http.Request) {
	categories := models.Categories
	if t := r.URL.Query().Get("type"); t == models.TransactionTypeIncome || t == models.TransactionTypeExpense {
		filtered := make([]models.Category, 0, len(categories))
		for _, c := range categories {
			if c.Type == t {
				filtered = append(filtered, c)
			}
		}
		categories = filtered
	}

	w.Header().Set("Cache-Control", "public, max-age=86400")
	SendJSON(w, http.StatusOK, map[string][]models.Category{"categories": categories})
}
