package main

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (a *App) storeListCategories(ctx context.Context) ([]Category, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, name
		FROM report_categories
		ORDER BY LOWER(name) ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []Category{}
	for rows.Next() {
		var category Category
		if err := rows.Scan(&category.ID, &category.Name); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

// storeCreateCategory persists a trimmed name. Uniqueness is case-insensitive
// against the live set; the unique index on LOWER(name) closes the race
// between the existence check and the insert.
func (a *App) storeCreateCategory(ctx context.Context, name string) (*Category, error) {
	var exists bool
	if err := a.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM report_categories WHERE LOWER(name) = LOWER($1))
	`, name).Scan(&exists); err != nil {
		return nil, err
	}
	if exists {
		return nil, duplicateCategoryError(name)
	}

	category := Category{ID: uuid.NewString(), Name: name}
	if _, err := a.db.ExecContext(ctx, `
		INSERT INTO report_categories (id, name) VALUES ($1, $2)
	`, category.ID, category.Name); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, duplicateCategoryError(name)
		}
		return nil, err
	}
	return &category, nil
}

// storeDeleteCategory hard-deletes. Reports referencing the deleted name are
// left alone; that reference going stale is accepted behavior.
func (a *App) storeDeleteCategory(ctx context.Context, categoryID string) error {
	result, err := a.db.ExecContext(ctx, `DELETE FROM report_categories WHERE id = $1`, categoryID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &apiError{Status: http.StatusNotFound, Code: "category_not_found", Message: "Categoria não encontrada"}
	}
	return nil
}

func duplicateCategoryError(name string) error {
	return &apiError{
		Status:  http.StatusConflict,
		Code:    "category_exists",
		Message: `Categoria "` + name + `" já existe.`,
	}
}

func (a *App) publicCategoriesHandler(c *gin.Context) {
	categories, err := a.adminListCategories(c.Request.Context())
	if err != nil {
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (a *App) adminCategoriesHandler(c *gin.Context) {
	categories, err := a.adminListCategories(c.Request.Context())
	if err != nil {
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (a *App) adminCreateCategoryHandler(c *gin.Context) {
	var body struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_payload", Message: "Payload inválido"})
		return
	}

	name := strings.TrimSpace(body.Name)
	if name == "" {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_category_name", Message: "O nome da categoria não pode estar vazio."})
		return
	}

	category, err := a.adminCreateCategory(c.Request.Context(), name)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (a *App) adminDeleteCategoryHandler(c *gin.Context) {
	categoryID := strings.TrimSpace(c.Param("id"))
	if categoryID == "" {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_id", Message: "ID de categoria inválido"})
		return
	}
	if err := a.adminDeleteCategory(c.Request.Context(), categoryID); err != nil {
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
