package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDuplicateCategoryErrorShape(t *testing.T) {
	err := duplicateCategoryError("Lixo")
	apiErr, ok := err.(*apiError)
	assert.True(t, ok, "expected apiError")
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "category_exists", apiErr.Code)
	assert.Equal(t, `Categoria "Lixo" já existe.`, apiErr.Message)
}

func TestAdminCreateCategoryDuplicateConflict(t *testing.T) {
	app, router := newAdminTestServer(t)
	app.adminCreateCategory = func(ctx context.Context, name string) (*Category, error) {
		return nil, duplicateCategoryError(name)
	}

	rec := httptest.NewRecorder()
	req := authenticatedRequest(t, app, http.MethodPost, "/api/v1/admin/categorias", `{"name":"Lixo"}`)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "category_exists")
}

func TestPublicCategoriesHandler(t *testing.T) {
	app, router := newAdminTestServer(t)
	app.adminListCategories = func(ctx context.Context) ([]Category, error) {
		return []Category{{ID: "c-1", Name: "Desmatamento"}}, nil
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/categorias", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Desmatamento")
}
