package rest

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/coursecloud/internal/common"
	"github.com/dmitrijs2005/coursecloud/internal/server/services"
	"github.com/gorilla/mux"
)

func (h *Handler) setAccessCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.AccessTokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearAccessCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.AccessTokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	user, err := h.users.Register(r.Context(), in)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	ok(w, http.StatusCreated, "Account created successfully. Please verify your email.", envelope{"data": user})
}

// verify takes the verification token as a bearer credential.
func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	err := h.users.Verify(r.Context(), bearerToken(r))
	switch {
	case err == nil:
		ok(w, http.StatusOK, "Email verified successfully", nil)
	case errors.Is(err, common.ErrTokenExpired):
		fail(w, http.StatusBadRequest, "The registration token has expired")
	case errors.Is(err, common.ErrInvalidToken):
		fail(w, http.StatusBadRequest, "Token verification failed")
	default:
		writeError(r.Context(), w, h.logger, err)
	}
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	res, err := h.users.Login(r.Context(), strings.TrimSpace(in.Email), in.Password)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	h.setAccessCookie(w, res.AccessToken)
	ok(w, http.StatusOK, "Welcome back "+res.User.Name, envelope{
		"user":         res.User,
		"accessToken":  res.AccessToken,
		"refreshToken": res.RefreshToken,
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	if err := h.users.Logout(r.Context(), id.UserID); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	h.clearAccessCookie(w)
	ok(w, http.StatusOK, "Logged out successfully", nil)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var in struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	pair, err := h.users.Refresh(r.Context(), in.RefreshToken)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	h.setAccessCookie(w, pair.AccessToken)
	ok(w, http.StatusOK, "Token refreshed", envelope{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	photo, closer, err := h.parseUpload(w, r)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	defer closeQuietly(closer)

	user, err := h.users.UpdateProfile(r.Context(), id.UserID, services.ProfileUpdate{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Photo:       photo,
	})
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	ok(w, http.StatusOK, "Profile updated successfully", envelope{"user": user})
}

func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	if err := h.users.ForgotPassword(r.Context(), strings.TrimSpace(in.Email)); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	ok(w, http.StatusOK, "Otp sent successfully. Please check your email", nil)
}

func (h *Handler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var in struct {
		OTP string `json:"otp"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	if err := h.users.VerifyOTP(r.Context(), mux.Vars(r)["email"], strings.TrimSpace(in.OTP)); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	ok(w, http.StatusOK, "OTP verified successfully", nil)
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		NewPassword     string `json:"newPassword"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	err := h.users.ChangePassword(r.Context(), mux.Vars(r)["email"], in.NewPassword, in.ConfirmPassword)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	ok(w, http.StatusOK, "Password changed successfully", nil)
}

func (h *Handler) enrolledCourses(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	list, err := h.enrollments.EnrolledCourses(r.Context(), id.UserID)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	ok(w, http.StatusOK, "", envelope{"courses": list})
}
