package rest

import (
	"net/http"

	"github.com/dmitrijs2005/coursecloud/internal/server/services"
	"github.com/gorilla/mux"
)

func (h *Handler) createCourse(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	var in struct {
		Title    string `json:"courseTitle"`
		Category string `json:"category"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	course, err := h.courses.Create(r.Context(), id.UserID, in.Title, in.Category)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	ok(w, http.StatusCreated, "Course created successfully", envelope{"course": course})
}

func (h *Handler) publishedCourses(w http.ResponseWriter, r *http.Request) {
	list, err := h.courses.ListPublished(r.Context())
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	ok(w, http.StatusOK, "", envelope{"courses": list})
}

func (h *Handler) creatorCourses(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	list, err := h.courses.ListByCreator(r.Context(), id.UserID)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	ok(w, http.StatusOK, "", envelope{"courses": list})
}

func (h *Handler) allCourses(w http.ResponseWriter, r *http.Request) {
	list, err := h.courses.ListAllWithStudents(r.Context())
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	ok(w, http.StatusOK, "", envelope{"courses": list})
}

func (h *Handler) getCourse(w http.ResponseWriter, r *http.Request) {
	course, err := h.courses.Get(r.Context(), mux.Vars(r)["courseId"])
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	ok(w, http.StatusOK, "", envelope{"course": course})
}

func (h *Handler) editCourse(w http.ResponseWriter, r *http.Request) {
	thumbnail, closer, err := h.parseUpload(w, r)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	defer closeQuietly(closer)

	course, err := h.courses.Edit(r.Context(), mux.Vars(r)["courseId"], services.CourseEdit{
		Title:       r.FormValue("courseTitle"),
		Subtitle:    r.FormValue("subTitle"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		Level:       r.FormValue("courseLevel"),
		Price:       r.FormValue("coursePrice"),
		Thumbnail:   thumbnail,
	})
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	ok(w, http.StatusOK, "Course updated successfully", envelope{"course": course})
}

func (h *Handler) togglePublish(w http.ResponseWriter, r *http.Request) {
	published, err := h.courses.TogglePublish(r.Context(), mux.Vars(r)["courseId"])
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	msg := "Course is unpublished"
	if published {
		msg = "Course is published"
	}
	ok(w, http.StatusOK, msg, envelope{"isPublished": published})
}

func (h *Handler) enroll(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	if err := h.enrollments.Enroll(r.Context(), id.UserID, mux.Vars(r)["courseId"]); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	ok(w, http.StatusOK, "Successfully enrolled", nil)
}

func (h *Handler) confirmEnroll(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	if err := h.enrollments.ConfirmEnrollment(r.Context(), id.UserID, mux.Vars(r)["courseId"]); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	ok(w, http.StatusOK, "Enrollment successful!", nil)
}

func (h *Handler) checkEnrollment(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	enrolled, err := h.enrollments.CheckEnrollment(r.Context(), id.UserID, mux.Vars(r)["courseId"])
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	ok(w, http.StatusOK, "", envelope{"isEnrolled": enrolled})
}

func (h *Handler) createLecture(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Title string `json:"lectureTitle"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	lecture, err := h.lectures.Create(r.Context(), mux.Vars(r)["courseId"], in.Title)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	ok(w, http.StatusCreated, "Lecture created successfully", envelope{"lecture": lecture})
}

func (h *Handler) listLectures(w http.ResponseWriter, r *http.Request) {
	list, err := h.lectures.List(r.Context(), mux.Vars(r)["courseId"])
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	ok(w, http.StatusOK, "", envelope{"lectures": list})
}

func (h *Handler) editLecture(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Title     string `json:"lectureTitle"`
		VideoInfo *struct {
			VideoURL string `json:"videoUrl"`
			PublicID string `json:"publicId"`
		} `json:"videoInfo"`
		IsPreviewFree *bool `json:"isPreviewFree"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	edit := services.LectureEdit{Title: in.Title, IsPreviewFree: in.IsPreviewFree}
	if in.VideoInfo != nil {
		edit.VideoURL = in.VideoInfo.VideoURL
		edit.PublicID = in.VideoInfo.PublicID
	}

	vars := mux.Vars(r)
	lecture, err := h.lectures.Edit(r.Context(), vars["courseId"], vars["lectureId"], edit)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	ok(w, http.StatusOK, "Lecture updated successfully", envelope{"lecture": lecture})
}

func (h *Handler) removeLecture(w http.ResponseWriter, r *http.Request) {
	if err := h.lectures.Remove(r.Context(), mux.Vars(r)["lectureId"]); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	ok(w, http.StatusOK, "Lecture removed successfully", nil)
}
