package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"ecodenuncia/api/mailer"
)

// Admin is an administrator account allowed into the dashboard endpoints.
type Admin struct {
	ID       int    `json:"id"`
	Email    string `json:"email"`
	IsActive bool   `json:"-"`
}

func (a *App) authenticateAdminCredentials(ctx context.Context, email string, password string) (*Admin, error) {
	var admin Admin
	var passwordHash string
	err := a.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, is_active
		FROM admins
		WHERE email = $1
	`, email).Scan(&admin.ID, &admin.Email, &passwordHash, &admin.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &apiError{Status: http.StatusUnauthorized, Code: "invalid_credentials", Message: "E-mail ou senha inválidos"}
		}
		return nil, err
	}
	if !admin.IsActive || bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)) != nil {
		return nil, &apiError{Status: http.StatusUnauthorized, Code: "invalid_credentials", Message: "E-mail ou senha inválidos"}
	}
	return &admin, nil
}

func (a *App) bootstrapAdmin(ctx context.Context) error {
	email := a.cfg.BootstrapAdminEmail
	password := a.cfg.BootstrapAdminPassword
	if email == "" || password == "" {
		a.log.Info("bootstrap admin not configured")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	_, err = a.db.ExecContext(ctx, `
		INSERT INTO admins (email, password_hash, is_active)
		VALUES ($1, $2, TRUE)
		ON CONFLICT (email)
		DO UPDATE SET
			password_hash = EXCLUDED.password_hash,
			is_active = TRUE,
			updated_at = NOW()
	`, email, string(hash))
	if err != nil {
		return err
	}

	a.log.Info("bootstrap admin ensured", "email", email)
	return nil
}

func (a *App) adminLoginHandler(c *gin.Context) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_payload", Message: "Dados de login inválidos"})
		return
	}
	payload.Email = strings.TrimSpace(payload.Email)

	admin, err := a.adminAuthenticate(c.Request.Context(), payload.Email, payload.Password)
	if err != nil {
		writeAPIError(c, err)
		return
	}

	if err := a.startAdminSession(c, AdminSession{Email: admin.Email}); err != nil {
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"email": admin.Email})
}

func (a *App) adminLogoutHandler(c *gin.Context) {
	a.clearAdminSession(c)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (a *App) adminSessionHandler(c *gin.Context) {
	token, err := c.Cookie(adminCookieName)
	if err != nil {
		writeAPIError(c, &apiError{Status: http.StatusUnauthorized, Code: "unauthorized", Message: "Sessão de administrador necessária"})
		return
	}
	session, err := a.verifyAdminSessionToken(token)
	if err != nil {
		writeAPIError(c, &apiError{Status: http.StatusUnauthorized, Code: "unauthorized", Message: "Sessão de administrador necessária"})
		return
	}
	c.JSON(http.StatusOK, session)
}

// storeCreatePasswordResetToken issues a single-use reset token for the
// admin behind email. Only the SHA-256 of the token touches the database.
// For unknown or inactive accounts it still returns a token so the request
// endpoint stays uniform, but nothing is persisted.
func (a *App) storeCreatePasswordResetToken(ctx context.Context, email string) (string, error) {
	token := createResetToken()

	var adminID int
	var isActive bool
	err := a.db.QueryRowContext(ctx, `
		SELECT id, is_active FROM admins WHERE email = $1
	`, email).Scan(&adminID, &isActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return token, nil
		}
		return "", err
	}
	if !isActive {
		return token, nil
	}

	_, err = a.db.ExecContext(ctx, `
		INSERT INTO password_reset_tokens (token_hash, admin_id, expires_at)
		VALUES ($1, $2, $3)
	`, hashResetToken(token), adminID, time.Now().Add(passwordResetTokenExpiry))
	if err != nil {
		return "", err
	}
	return token, nil
}

func (a *App) storeConsumePasswordReset(ctx context.Context, token string, newPassword string) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var adminID int
	var expiresAt time.Time
	var usedAt sql.NullTime
	err = tx.QueryRowContext(ctx, `
		SELECT admin_id, expires_at, used_at
		FROM password_reset_tokens
		WHERE token_hash = $1
		FOR UPDATE
	`, hashResetToken(token)).Scan(&adminID, &expiresAt, &usedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &apiError{Status: http.StatusBadRequest, Code: "invalid_reset_token", Message: "Link de redefinição inválido ou expirado"}
		}
		return err
	}
	if usedAt.Valid || time.Now().After(expiresAt) {
		return &apiError{Status: http.StatusBadRequest, Code: "invalid_reset_token", Message: "Link de redefinição inválido ou expirado"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE admins SET password_hash = $1, updated_at = NOW() WHERE id = $2
	`, string(hash), adminID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE password_reset_tokens SET used_at = NOW() WHERE token_hash = $1
	`, hashResetToken(token)); err != nil {
		return err
	}
	return tx.Commit()
}

func (a *App) passwordResetRequestHandler(c *gin.Context) {
	var payload struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_payload", Message: "Informe um e-mail válido"})
		return
	}
	payload.Email = strings.TrimSpace(payload.Email)
	if payload.Email == "" {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_payload", Message: "Informe um e-mail válido"})
		return
	}

	token, err := a.createPasswordResetToken(c.Request.Context(), payload.Email)
	if err != nil {
		writeAPIError(c, err)
		return
	}

	resetURL := fmt.Sprintf("%s/admin/redefinir-senha?token=%s", strings.TrimRight(a.cfg.PublicBaseURL, "/"), token)
	_, err = a.mailer.Send(mailer.Message{
		To:      []string{payload.Email},
		Subject: "Redefinição de senha - EcoDenúncia",
		Text:    fmt.Sprintf("Para redefinir sua senha de administrador, acesse o link abaixo. Ele expira em %d minutos.\n\n%s\n\nSe você não solicitou esta redefinição, ignore este e-mail.", int(passwordResetTokenExpiry.Minutes()), resetURL),
		HTML:    fmt.Sprintf(`<p>Para redefinir sua senha de administrador, acesse o link abaixo. Ele expira em %d minutos.</p><p><a href="%s">Redefinir senha</a></p><p>Se você não solicitou esta redefinição, ignore este e-mail.</p>`, int(passwordResetTokenExpiry.Minutes()), resetURL),
	})
	if err != nil {
		a.log.Error("password reset email failed", "error", err)
	}

	// Same answer whether or not the address belongs to an admin.
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (a *App) passwordResetConfirmHandler(c *gin.Context) {
	var payload struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_payload", Message: "Dados de redefinição inválidos"})
		return
	}
	if strings.TrimSpace(payload.Token) == "" {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_reset_token", Message: "Link de redefinição inválido ou expirado"})
		return
	}
	if len(payload.Password) < 8 {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "weak_password", Message: "A senha deve ter pelo menos 8 caracteres"})
		return
	}

	if err := a.consumePasswordReset(c.Request.Context(), payload.Token, payload.Password); err != nil {
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
