package rest

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (h *Handler) auth(fn http.HandlerFunc) http.Handler {
	return h.requireAuth(fn)
}

// Routes builds the API router wrapped in the common middleware.
func (h *Handler) Routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)

	user := r.PathPrefix("/api/v1/user").Subrouter()
	user.HandleFunc("/register", h.register).Methods(http.MethodPost)
	user.HandleFunc("/verify", h.verify).Methods(http.MethodPost)
	user.HandleFunc("/login", h.login).Methods(http.MethodPost)
	user.Handle("/logout", h.auth(h.logout)).Methods(http.MethodPost)
	user.HandleFunc("/refresh-token", h.refresh).Methods(http.MethodPost)
	user.Handle("/profile/update", h.auth(h.updateProfile)).Methods(http.MethodPut)
	user.HandleFunc("/forgot-password", h.forgotPassword).Methods(http.MethodPost)
	user.HandleFunc("/verify-otp/{email}", h.verifyOTP).Methods(http.MethodPost)
	user.HandleFunc("/change-password/{email}", h.changePassword).Methods(http.MethodPost)
	user.Handle("/enrolled", h.auth(h.enrolledCourses)).Methods(http.MethodGet)

	course := r.PathPrefix("/api/v1/course").Subrouter()
	course.Handle("/admin/all-courses", h.auth(h.allCourses)).Methods(http.MethodGet)
	course.HandleFunc("/published-courses", h.publishedCourses).Methods(http.MethodGet)
	course.Handle("/", h.auth(h.createCourse)).Methods(http.MethodPost)
	course.Handle("/", h.auth(h.creatorCourses)).Methods(http.MethodGet)
	course.Handle("/lecture/{lectureId}", h.auth(h.removeLecture)).Methods(http.MethodDelete)
	course.Handle("/{courseId}", h.auth(h.getCourse)).Methods(http.MethodGet)
	course.Handle("/{courseId}", h.auth(h.editCourse)).Methods(http.MethodPut)
	course.HandleFunc("/{courseId}", h.togglePublish).Methods(http.MethodPatch)
	course.Handle("/{courseId}/enroll", h.auth(h.enroll)).Methods(http.MethodPost)
	course.Handle("/{courseId}/confirm-enroll", h.auth(h.confirmEnroll)).Methods(http.MethodPost)
	course.Handle("/{courseId}/check-enrollment", h.auth(h.checkEnrollment)).Methods(http.MethodGet)
	course.Handle("/{courseId}/lecture", h.auth(h.createLecture)).Methods(http.MethodPost)
	course.Handle("/{courseId}/lecture", h.auth(h.listLectures)).Methods(http.MethodGet)
	course.Handle("/{courseId}/lecture/{lectureId}", h.auth(h.editLecture)).Methods(http.MethodPut)

	r.HandleFunc("/api/v1/media/upload-video", h.uploadVideo).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fail(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fail(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	var handler http.Handler = r
	handler = RecoverMiddleware(h.logger)(handler)
	handler = CORSMiddleware(h.allowedOrigin)(handler)
	handler = LoggingMiddleware(h.logger)(handler)
	return handler
}
