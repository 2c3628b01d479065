package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/domain"
)

// GET /api/doctors
func (h *Handler) ListDoctors(c echo.Context) error {
	doctors, err := h.service.ListDoctors(c.Request().Context())
	if err != nil {
		return h.fail(c, err, "Failed to fetch doctors")
	}
	return ok(c, http.StatusOK, payload{"doctors": doctors})
}

// POST /api/doctors
func (h *Handler) AddDoctor(c echo.Context) error {
	var in domain.DoctorInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	d, err := h.service.AddDoctor(c.Request().Context(), in)
	if err != nil {
		return h.fail(c, err, "Failed to add doctor")
	}
	return ok(c, http.StatusCreated, payload{"doctor": d})
}

// PUT /api/doctors/:id
func (h *Handler) UpdateDoctor(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return h.fail(c, err, "")
	}
	var in domain.DoctorInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	d, err := h.service.UpdateDoctor(c.Request().Context(), id, in)
	if err != nil {
		return h.fail(c, err, "Failed to update doctor")
	}
	return ok(c, http.StatusOK, payload{"doctor": d})
}

// DELETE /api/doctors/:id
func (h *Handler) DeleteDoctor(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return h.fail(c, err, "")
	}
	if err := h.service.DeleteDoctor(c.Request().Context(), id); err != nil {
		return h.fail(c, err, "Failed to delete doctor")
	}
	return ok(c, http.StatusOK, payload{"message": "Doctor deleted"})
}

// BookAppointment books an appointment from the public form.
// POST /api/appointments
func (h *Handler) BookAppointment(c echo.Context) error {
	var in domain.AppointmentInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	a, err := h.service.BookAppointment(c.Request().Context(), in)
	if err != nil {
		return h.fail(c, err, "Failed to book appointment")
	}
	return ok(c, http.StatusCreated, payload{"appointment_id": a.ID, "appointment": a})
}

// GET /api/appointments
func (h *Handler) ListAppointments(c echo.Context) error {
	appts, err := h.service.ListAppointments(c.Request().Context())
	if err != nil {
		return h.fail(c, err, "Failed to fetch appointments")
	}
	return ok(c, http.StatusOK, payload{"appointments": appts})
}

// UpdateAppointment changes an appointment status.
// PUT /api/appointments/:id
func (h *Handler) UpdateAppointment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return h.fail(c, err, "")
	}
	var req domain.StatusUpdate
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := h.service.UpdateAppointmentStatus(c.Request().Context(), id, req.Status); err != nil {
		return h.fail(c, err, "Failed to update appointment")
	}
	return ok(c, http.StatusOK, payload{"message": "Appointment updated"})
}
