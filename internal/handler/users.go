package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/shopledger/internal/model"
	"github.com/mmeshcher/shopledger/internal/service"
)

type signUpRequest struct {
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Email     string     `json:"email"`
	Password  string     `json:"password"`
	Role      model.Role `json:"role,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userPatchRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Email     *string `json:"email"`
	Password  *string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// SignUp обрабатывает регистрацию нового пользователя.
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !h.decode(w, r, &req) {
		return
	}

	u, err := h.service.SignUp(r.Context(), service.SignUpInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      req.Role,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, newUserResponse(u))
}

// Login выполняет аутентификацию пользователя и выдаёт пару токенов.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	if req.Email == "" || req.Password == "" {
		h.writeJSON(w, http.StatusBadRequest, "Missing required field: email or password")
		return
	}

	u, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	tokens, err := h.authMiddleware.IssueTokens(u.PublicID, u.Role)
	if err != nil {
		h.logger.Error("issue tokens", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	h.writeJSON(w, http.StatusOK, tokens)
}

// Refresh выдаёт новую пару токенов по действительному refresh-токену.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.decode(w, r, &req) {
		return
	}

	claims, err := h.authMiddleware.ParseRefreshToken(req.RefreshToken)
	if err != nil {
		h.writeJSON(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	// роль берётся из базы: она могла измениться после выдачи токена
	u, err := h.service.GetUser(r.Context(), claims.Subject)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	tokens, err := h.authMiddleware.IssueTokens(u.PublicID, u.Role)
	if err != nil {
		h.logger.Error("issue tokens", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	h.writeJSON(w, http.StatusOK, tokens)
}

// Profile возвращает профиль текущего пользователя вместе с его секретным токеном.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	u, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, newUserResponse(u))
}

// GetUser возвращает профиль по {id}; доступен только самому пользователю.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.ownPath(w, r)
	if !ok {
		return
	}

	u, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, newUserResponse(u))
}

// UpdateUser меняет имя, email или пароль текущего пользователя.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.ownPath(w, r)
	if !ok {
		return
	}

	var req userPatchRequest
	if !h.decode(w, r, &req) {
		return
	}

	u, err := h.service.UpdateUser(r.Context(), userID, service.UserPatch(req))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, newUserResponse(u))
}

// DeleteUser удаляет учётную запись текущего пользователя.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.ownPath(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteUser(r.Context(), userID); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetBalance возвращает баланс текущего пользователя.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	b, err := h.service.BalanceOf(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, balanceResponse{
		Amount:    b.Amount,
		Formatted: b.Formatted,
		Currency:  b.Currency,
	})
}
